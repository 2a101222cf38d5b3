package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	StatusHold      ReservationStatus = "HOLD"
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCancelled ReservationStatus = "CANCELLED"

	// StatusExpired is derived from a lapsed HOLD at read time. The create
	// path never writes it; the reaper may materialize it for hygiene.
	StatusExpired ReservationStatus = "EXPIRED"
)

func (s ReservationStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusConfirmed || s == StatusExpired
}

const (
	ActionHoldCreated = "hold_created"
	ActionConfirmed   = "confirmed"
	ActionCancelled   = "cancelled"
	ActionReclaimed   = "expired_reclaimed"

	// ActorClient marks transitions driven by an API caller, ActorSystem
	// ones driven by the reclamation sweep.
	ActorClient = "client"
	ActorSystem = "system"
)

type Reservation struct {
	ID            uuid.UUID
	Slot          ShowSlot
	Seats         []string
	OwnerID       *uuid.UUID
	Status        ReservationStatus
	HoldExpiresAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Events        []AuditEvent
	Attachments   []Attachment
}

// AuditEvent is one entry of a reservation's append-only history.
type AuditEvent struct {
	Actor     string
	Action    string
	CreatedAt time.Time
}

// Expired reports whether a stored HOLD has lapsed at the given instant.
// Reservations in any other status never expire.
func (r *Reservation) Expired(now time.Time) bool {
	if r.Status != StatusHold || r.HoldExpiresAt == nil {
		return false
	}

	return !r.HoldExpiresAt.After(now)
}

// EffectiveStatus applies the expiry predicate to the stored status. It is
// evaluated fresh on every read and never cached.
func (r *Reservation) EffectiveStatus(now time.Time) ReservationStatus {
	if r.Expired(now) {
		return StatusExpired
	}

	return r.Status
}

// NewHold carries everything the reservation store needs to run the atomic
// conflict-check-and-create unit.
type NewHold struct {
	Slot         ShowSlot
	Seats        []string
	OwnerID      *uuid.UUID
	HoldDuration time.Duration
	Attachments  []Attachment
}

// NormalizeSeats trims surrounding whitespace from each seat id and collapses
// duplicates silently, preserving first-seen order. The returned slice is
// empty if every id trims to nothing.
func NormalizeSeats(seatIDs []string) []string {
	seen := make(map[string]bool, len(seatIDs))
	seats := make([]string, 0, len(seatIDs))

	for _, id := range seatIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true
		seats = append(seats, id)
	}

	return seats
}

type ReservationRepository interface {
	// CreateHold verifies seat availability and inserts the reservation in a
	// single serializable transaction. It returns *SeatConflictError when any
	// requested seat is held by a non-terminal, unexpired reservation.
	CreateHold(ctx context.Context, hold NewHold) (*Reservation, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	Confirm(ctx context.Context, id uuid.UUID, actor string) (*Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID, actor string) (*Reservation, error)

	// ReapExpired rewrites lapsed HOLD rows to EXPIRED. Storage hygiene only;
	// conflict checks never depend on it.
	ReapExpired(ctx context.Context, limit int) (int, error)
}
