package engine

import (
	"fmt"

	"github.com/example/classbook/internal/domain/booking"
)

const (
	disabledText = "⚠️ Booking is disabled. Use /enable_booking to enable."
	noSlotsText  = "ℹ️ No matching slots found in this run."
)

func slotFoundText(c booking.Candidate) string {
	return fmt.Sprintf("🏸 Slot found (center %d)\n📅 Date: %s\n⏰ Time: %s\n🎟 Seats: %d\n🆔 Class ID: %s",
		c.CenterID, c.Date, c.Time, c.Seats, c.SlotID)
}

func bookingSuccessText(c booking.Candidate, ts int64) string {
	return fmt.Sprintf("🎉 Booking successful!\n📍 Center: %d\n🆔 Slot ID: %s\n⏰ Timestamp: %d",
		c.CenterID, c.SlotID, ts)
}

func bookingFailedText(c booking.Candidate, reason string) string {
	return fmt.Sprintf("❌ Booking failed\n📍 Center: %d\n🆔 Slot ID: %s\n📝 Reason: %s",
		c.CenterID, c.SlotID, reason)
}

func noTimestampText(c booking.Candidate) string {
	return fmt.Sprintf("⚠️ Could not parse start time %q for slot %s at center %d; skipping center.",
		c.StartTimeUTC, c.SlotID, c.CenterID)
}

func cycleErrorText(err error) string {
	return fmt.Sprintf("❌ Booking job error: %v", err)
}
