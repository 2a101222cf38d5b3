package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ShowSlot is one bookable (movie, date, time, screen) unit of a movie's
// published schedule. Immutable once published.
type ShowSlot struct {
	ID        int64
	MovieID   uuid.UUID
	Date      time.Time
	StartTime string
	ScreenID  string

	// SeatLayout is the set of valid seat ids for the slot's screen.
	SeatLayout []string
}

// HasSeat reports whether the seat id belongs to the slot's screen layout.
func (s ShowSlot) HasSeat(seatID string) bool {
	for _, id := range s.SeatLayout {
		if id == seatID {
			return true
		}
	}

	return false
}

type ScheduleEntry struct {
	Date      time.Time
	StartTime string
	ScreenID  string
	SeatCount int
}

type MovieSchedule struct {
	MovieID uuid.UUID
	Title   string
	Slots   []ScheduleEntry
}

type CatalogRepository interface {
	// GetShowSlot resolves a (movie, date, time, screen) quadruple against the
	// published schedule. Returns ErrMovieNotFound when the movie is absent
	// and ErrInvalidSlot when the movie exists but the slot does not.
	GetShowSlot(ctx context.Context, movieID uuid.UUID, date time.Time, startTime, screenID string) (*ShowSlot, error)

	GetSchedule(ctx context.Context, movieID uuid.UUID) (*MovieSchedule, error)
}

type UserRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
