package booking

import (
	"fmt"
	"strings"
	"time"
)

// startTimeLayout matches "Tue, 21 Oct 2026 02:30:00" after the zone suffix is removed.
// Day, hour, minute and second may be unpadded.
const startTimeLayout = "Mon, 2 Jan 2006 15:4:5"

// BookingTimestamp converts a class start time such as
// "Tue, 21 Oct 2026 02:30:00 GMT" to epoch milliseconds, reading it as UTC.
// Any failure wraps ErrNoTimestamp.
func BookingTimestamp(startTimeUTC string) (int64, error) {
	v := strings.TrimSpace(startTimeUTC)
	v = strings.TrimSpace(strings.TrimSuffix(v, "GMT"))
	if v == "" {
		return 0, fmt.Errorf("%w: empty start time", ErrNoTimestamp)
	}
	t, err := time.ParseInLocation(startTimeLayout, v, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoTimestamp, err)
	}
	ms := t.UnixMilli()
	if ms <= 0 {
		return 0, fmt.Errorf("%w: start time %q is not after the epoch", ErrNoTimestamp, startTimeUTC)
	}
	return ms, nil
}
