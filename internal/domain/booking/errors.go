package booking

import (
	"errors"
	"fmt"
)

var (
	ErrNoTimestamp  = errors.New("could not parse slot timestamp")
	ErrUnauthorized = errors.New("unauthorized")
)

// TransportError is a fetch or submit that failed at the network or parsing layer.
type TransportError struct {
	Op         string
	CenterID   int64
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s center %d: status %d: %v", e.Op, e.CenterID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s center %d: %v", e.Op, e.CenterID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError is a booking response that was delivered but not confirmed.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("booking rejected (status=%d): %s", e.StatusCode, e.Reason)
}
