package app

import (
	"net/http"
	"time"

	"github.com/blackticket/reservation-service/api"
	appvalidator "github.com/blackticket/reservation-service/internal/validator"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	ErrInternalServer = "The server encountered a problem and could not process your request"
	ErrNotFound       = "The requested resource not found"
)

// Error codes are part of the API contract; clients branch on these, never on
// message text.
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeNotFound          = "NOT_FOUND"
	CodeSeatConflict      = "SEAT_CONFLICT"
	CodeHoldExpired       = "HOLD_EXPIRED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeUploadFailed      = "UPLOAD_FAILED"
	CodeInternal          = "INTERNAL"
)

// conflictReportLimit caps how many conflicting seats an error response
// names. Display shaping only; the conflict check itself is uncapped.
const conflictReportLimit = 10

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := api.ErrorResponse{
		Code:      code,
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	app.errorResponse(w, r, http.StatusInternalServerError, CodeInternal, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, CodeNotFound, ErrNotFound)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
}

func (app *Application) editConflictResponse(w http.ResponseWriter, r *http.Request, code string, err error) {
	app.errorResponse(w, r, http.StatusConflict, code, err.Error())
}

// seatConflictResponse reports the conflicting seats so the client can
// re-query availability and retry with a different selection.
func (app *Application) seatConflictResponse(w http.ResponseWriter, r *http.Request, seats []string) {
	if len(seats) > conflictReportLimit {
		seats = seats[:conflictReportLimit]
	}

	resp := api.ErrorResponse{
		Code:             CodeSeatConflict,
		Message:          "Some of the selected seats are already reserved",
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ConflictingSeats: seats,
	}

	err := app.writeJSON(w, http.StatusConflict, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		app.serverErrorResponse(w, r, err)
		return
	}

	errs := make([]api.ValidationError, 0, len(validationErrors))

	for _, vErr := range validationErrors {
		errs = append(errs, api.ValidationError{
			Field: vErr.Field(),
			Issue: appvalidator.ValidationMessage(vErr),
		})
	}

	resp := api.ValidationErrorResponse{
		Message:          "Request validation failed",
		ValidationErrors: errs,
	}

	writeErr := app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if writeErr != nil {
		app.logError(r, writeErr)
		w.WriteHeader(500)
	}
}
