package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/blackticket/reservation-service/api"
	"github.com/blackticket/reservation-service/internal/domain"
)

const maxMultipartMemory = 32 << 20

// CreateHoldHandler places a time-bounded hold on a set of seats. The request
// body is JSON, or multipart/form-data with a "payload" JSON part plus
// optional "attachments" file parts for payment proofs.
func (app *Application) CreateHoldHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	movieID, err := readUUIDParam(r, "movieID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input, multipart, err := app.readHoldRequest(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	seats := domain.NormalizeSeats(input.SeatIds)
	if len(seats) == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("seatIds must contain at least one non-blank seat id"))
		return
	}

	if app.config.Hold.RequireOwner && input.OwnerId == nil {
		app.badRequestResponse(w, r, fmt.Errorf("ownerId is required"))
		return
	}

	if input.OwnerId != nil {
		exists, err := app.userRepo.Exists(r.Context(), *input.OwnerId)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		if !exists {
			app.errorResponse(w, r, http.StatusNotFound, CodeNotFound, "The specified owner does not exist")
			return
		}
	}

	slot, err := app.catalogRepo.GetShowSlot(r.Context(), movieID, input.Date.Time, input.Time, input.ScreenId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMovieNotFound), errors.Is(err, domain.ErrInvalidSlot):
			app.errorResponse(w, r, http.StatusNotFound, CodeNotFound, err.Error())
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	for _, seatID := range seats {
		if !slot.HasSeat(seatID) {
			app.badRequestResponse(w, r, fmt.Errorf("%v: %s", domain.ErrUnknownSeat, seatID))
			return
		}
	}

	// Advisory marks are a hint only. The serializable transaction below is
	// the sole authority on conflicts; a stale mark must never reject a
	// request the store would accept.
	held, err := app.advisoryConflicts(r.Context(), slot.ID, seats)
	if err != nil {
		logger.Warn("advisory seat check unavailable", "error", err)
	} else if len(held) > 0 {
		logger.Debug("advisory marks report contested seats", "seats", len(held))
	}

	var attachments []domain.Attachment

	if multipart {
		attachments, err = app.collectAttachments(r, input.OwnerId)
		if err != nil {
			if errors.Is(err, domain.ErrUploadFailed) {
				logger.Error("payment proof upload failed", "error", err)
				app.errorResponse(w, r, http.StatusBadGateway, CodeUploadFailed, domain.ErrUploadFailed.Error())
			} else {
				app.badRequestResponse(w, r, err)
			}
			return
		}
	}

	hold := domain.NewHold{
		Slot:         *slot,
		Seats:        seats,
		OwnerID:      input.OwnerId,
		HoldDuration: app.config.Hold.Duration,
		Attachments:  attachments,
	}

	reservation, err := app.reservationRepo.CreateHold(r.Context(), hold)
	if err != nil {
		var conflictErr *domain.SeatConflictError

		if errors.As(err, &conflictErr) {
			app.metrics.seatConflicts.Add(r.Context(), 1)
			app.seatConflictResponse(w, r, conflictErr.Seats)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	app.markSeatsHeld(r.Context(), slot.ID, seats, *reservation.HoldExpiresAt)
	app.metrics.holdsCreated.Add(r.Context(), 1)

	logger.Info("hold created",
		"reservation_id", reservation.ID,
		"show_slot_id", slot.ID,
		"seats", len(seats),
	)

	resp := api.CreateHoldResponse{
		ReservationId: reservation.ID,
		Seats:         reservation.Seats,
		Status:        string(reservation.Status),
		HoldExpiresAt: *reservation.HoldExpiresAt,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) readHoldRequest(w http.ResponseWriter, r *http.Request) (api.CreateHoldRequest, bool, error) {
	var input api.CreateHoldRequest

	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return input, true, fmt.Errorf("malformed multipart request: %v", err)
		}

		payload := r.FormValue("payload")
		if payload == "" {
			return input, true, fmt.Errorf("multipart requests must include a payload part")
		}

		if err := json.Unmarshal([]byte(payload), &input); err != nil {
			return input, true, fmt.Errorf("payload part contains invalid JSON: %v", err)
		}

		return input, true, nil
	}

	err := app.readJSON(w, r, &input)

	return input, false, err
}
