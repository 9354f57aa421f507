package booking

import "context"

type BookRequest struct {
	CenterID    int64
	SlotID      string
	WorkoutID   int64
	TimestampMs int64
}

// Platform is the third-party scheduling service.
//
// FetchSchedule returns the raw schedule document for a center; a non-2xx
// reply or a body that is not JSON is a *TransportError.
// Book returns whatever the platform answered; err is reserved for failures
// where no answer was read at all.
type Platform interface {
	FetchSchedule(ctx context.Context, centerID int64) ([]byte, error)
	Book(ctx context.Context, req BookRequest) (BookResponse, error)
}
