// Package api defines the request and response shapes of the reservation
// service's HTTP surface.
package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime/types"
)

// CreateHoldRequest is the body of POST /movies/{movieID}/holds. Duplicate
// seat ids collapse silently; ownership is optional unless the server is
// configured to require it.
type CreateHoldRequest struct {
	Date     types.Date `json:"date" validate:"required"`
	Time     string     `json:"time" validate:"required,showtime"`
	ScreenId string     `json:"screenId" validate:"required,max=32"`
	SeatIds  []string   `json:"seatIds" validate:"required,min=1,max=20,dive,seat_id"`
	OwnerId  *uuid.UUID `json:"ownerId,omitempty"`
}

type CreateHoldResponse struct {
	ReservationId uuid.UUID `json:"reservationId"`
	Seats         []string  `json:"seats"`
	Status        string    `json:"status"`
	HoldExpiresAt time.Time `json:"holdExpiresAt"`
}

type ReservationResponse struct {
	Id              uuid.UUID    `json:"id"`
	MovieId         uuid.UUID    `json:"movieId"`
	Date            types.Date   `json:"date"`
	Time            string       `json:"time"`
	ScreenId        string       `json:"screenId"`
	Seats           []string     `json:"seats"`
	OwnerId         *uuid.UUID   `json:"ownerId,omitempty"`
	Status          string       `json:"status"`
	EffectiveStatus string       `json:"effectiveStatus"`
	HoldExpiresAt   *time.Time   `json:"holdExpiresAt,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
	Events          []AuditEvent `json:"events"`
	Attachments     []Attachment `json:"attachments"`
}

type AuditEvent struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type Attachment struct {
	Url         string `json:"url"`
	ContentType string `json:"contentType"`
}

type ScheduleSlot struct {
	Date      types.Date `json:"date"`
	Time      string     `json:"time"`
	ScreenId  string     `json:"screenId"`
	SeatCount int        `json:"seatCount"`
}

type ScheduleResponse struct {
	MovieId uuid.UUID      `json:"movieId"`
	Title   string         `json:"title"`
	Slots   []ScheduleSlot `json:"slots"`
}

type ErrorResponse struct {
	// Code is a stable machine-readable kind; Message is for humans and may
	// change wording between releases.
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestId string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// ConflictingSeats is set on seat-conflict responses only. Capped for
	// display; the underlying check is not.
	ConflictingSeats []string `json:"conflictingSeats,omitempty"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}
