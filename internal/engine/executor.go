package engine

import (
	"context"
	"time"

	"github.com/example/classbook/internal/domain/booking"
	"github.com/example/classbook/internal/logx"
)

// Notifier delivers operator messages. Delivery is best-effort and must not block.
type Notifier interface {
	Notify(text string)
}

type Attempt struct {
	CenterID    int64
	SlotID      string
	Date        string
	Time        string
	TimestampMs int64
	Success     bool
	Reason      string
	At          time.Time
}

// Executor books exactly one candidate and reports the result to the operator.
type Executor struct {
	Platform booking.Platform
	Notifier Notifier
	Log      logx.Logger
	Now      func() time.Time
}

// Book derives the booking timestamp, submits the booking once and notifies
// on both outcomes. A bad start time returns an error wrapping
// booking.ErrNoTimestamp without contacting the platform. Rejections come
// back as *booking.RejectedError, transport failures as *booking.TransportError.
func (x *Executor) Book(ctx context.Context, c booking.Candidate) (Attempt, error) {
	att := Attempt{CenterID: c.CenterID, SlotID: c.SlotID, Date: c.Date, Time: c.Time, At: x.now()}

	ts, err := booking.BookingTimestamp(c.StartTimeUTC)
	if err != nil {
		x.Log.Warn("slot timestamp unparsable",
			logx.Int64("center", c.CenterID), logx.String("slot", c.SlotID), logx.String("start", c.StartTimeUTC), logx.Err(err))
		att.Reason = err.Error()
		return att, err
	}
	att.TimestampMs = ts

	res, err := x.Platform.Book(ctx, booking.BookRequest{
		CenterID:    c.CenterID,
		SlotID:      c.SlotID,
		WorkoutID:   c.WorkoutID,
		TimestampMs: ts,
	})
	if err != nil {
		att.Reason = "request failed: " + err.Error()
		x.Log.Error("booking request failed", logx.Int64("center", c.CenterID), logx.String("slot", c.SlotID), logx.Err(err))
		x.notify(bookingFailedText(c, att.Reason))
		return att, err
	}

	if !res.Confirmed() {
		att.Reason = res.Reason()
		x.Log.Warn("booking rejected",
			logx.Int64("center", c.CenterID), logx.String("slot", c.SlotID), logx.Int("status", res.StatusCode), logx.String("reason", att.Reason))
		x.notify(bookingFailedText(c, att.Reason))
		return att, &booking.RejectedError{StatusCode: res.StatusCode, Reason: att.Reason}
	}

	att.Success = true
	x.Log.Info("booking confirmed", logx.Int64("center", c.CenterID), logx.String("slot", c.SlotID), logx.Int64("timestamp", ts))
	x.notify(bookingSuccessText(c, ts))
	return att, nil
}

func (x *Executor) notify(text string) {
	if x.Notifier != nil {
		x.Notifier.Notify(text)
	}
}

func (x *Executor) now() time.Time {
	if x.Now != nil {
		return x.Now()
	}
	return time.Now()
}
