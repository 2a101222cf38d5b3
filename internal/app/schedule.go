package app

import (
	"errors"
	"net/http"

	"github.com/blackticket/reservation-service/api"
	"github.com/blackticket/reservation-service/internal/domain"
	"github.com/oapi-codegen/runtime/types"
)

// GetMovieScheduleHandler exposes a read-only view of a movie's published
// show slots.
func (app *Application) GetMovieScheduleHandler(w http.ResponseWriter, r *http.Request) {
	movieID, err := readUUIDParam(r, "movieID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	schedule, err := app.catalogRepo.GetSchedule(r.Context(), movieID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMovieNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := api.ScheduleResponse{
		MovieId: schedule.MovieID,
		Title:   schedule.Title,
		Slots:   toScheduleSlots(schedule.Slots),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toScheduleSlots(entries []domain.ScheduleEntry) []api.ScheduleSlot {
	slots := make([]api.ScheduleSlot, len(entries))

	for i, v := range entries {
		slots[i] = api.ScheduleSlot{
			Date:      types.Date{Time: v.Date},
			Time:      v.StartTime,
			ScreenId:  v.ScreenID,
			SeatCount: v.SeatCount,
		}
	}

	return slots
}
