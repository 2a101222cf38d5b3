package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrMovieNotFound     = errors.New("movie not found")
	ErrInvalidSlot       = errors.New("showtime slot is not part of the movie's schedule")
	ErrUnknownSeat       = errors.New("seat is not part of the screen layout")
	ErrHoldExpired       = errors.New("hold has expired, please start a new reservation")
	ErrInvalidTransition = errors.New("reservation state does not allow this transition")
	ErrEditConflict      = errors.New("edit conflict")
	ErrUploadFailed      = errors.New("attachment upload failed")
)

// SeatConflictError reports the seats of a hold request that are already
// claimed by a non-terminal reservation in the same show slot.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat(s) already reserved: %s", strings.Join(e.Seats, ", "))
}
