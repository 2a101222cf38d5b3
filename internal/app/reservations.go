package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/blackticket/reservation-service/api"
	"github.com/blackticket/reservation-service/internal/domain"
	"github.com/oapi-codegen/runtime/types"
)

func (app *Application) GetReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationID, err := readUUIDParam(r, "reservationID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reservation, err := app.reservationRepo.GetByID(r.Context(), reservationID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := toReservationResponse(reservation)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ConfirmReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationID, err := readUUIDParam(r, "reservationID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reservation, err := app.reservationRepo.Confirm(r.Context(), reservationID, domain.ActorClient)
	if err != nil {
		app.transitionErrorResponse(w, r, err)
		return
	}

	app.contextGetLogger(r).Info("hold confirmed", "reservation_id", reservation.ID)

	resp := toReservationResponse(reservation)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationID, err := readUUIDParam(r, "reservationID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reservation, err := app.reservationRepo.Cancel(r.Context(), reservationID, domain.ActorClient)
	if err != nil {
		app.transitionErrorResponse(w, r, err)
		return
	}

	// The seats are free again, drop the advisory marks right away.
	app.releaseSeatMarks(r.Context(), reservation.Slot.ID, reservation.Seats)

	app.contextGetLogger(r).Info("reservation cancelled", "reservation_id", reservation.ID)

	resp := toReservationResponse(reservation)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) transitionErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrHoldExpired):
		app.editConflictResponse(w, r, CodeHoldExpired, err)
	case errors.Is(err, domain.ErrInvalidTransition):
		app.editConflictResponse(w, r, CodeInvalidTransition, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}

func toReservationResponse(reservation *domain.Reservation) api.ReservationResponse {
	resp := api.ReservationResponse{
		Id:              reservation.ID,
		MovieId:         reservation.Slot.MovieID,
		Date:            types.Date{Time: reservation.Slot.Date},
		Time:            reservation.Slot.StartTime,
		ScreenId:        reservation.Slot.ScreenID,
		Seats:           reservation.Seats,
		OwnerId:         reservation.OwnerID,
		Status:          string(reservation.Status),
		EffectiveStatus: string(reservation.EffectiveStatus(time.Now().UTC())),
		HoldExpiresAt:   reservation.HoldExpiresAt,
		CreatedAt:       reservation.CreatedAt,
		UpdatedAt:       reservation.UpdatedAt,
		Events:          toAuditEvents(reservation.Events),
		Attachments:     toAttachments(reservation.Attachments),
	}

	return resp
}

func toAuditEvents(events []domain.AuditEvent) []api.AuditEvent {
	apiEvents := make([]api.AuditEvent, len(events))

	for i, v := range events {
		apiEvents[i] = api.AuditEvent{
			Actor:     v.Actor,
			Action:    v.Action,
			Timestamp: v.CreatedAt,
		}
	}

	return apiEvents
}

func toAttachments(attachments []domain.Attachment) []api.Attachment {
	apiAttachments := make([]api.Attachment, len(attachments))

	for i, v := range attachments {
		apiAttachments[i] = api.Attachment{
			Url:         v.URL,
			ContentType: v.ContentType,
		}
	}

	return apiAttachments
}
