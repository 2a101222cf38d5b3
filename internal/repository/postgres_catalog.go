package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blackticket/reservation-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresCatalogRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogRepository(db *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db: db,
	}
}

// GetShowSlot resolves the (movie, date, time, screen) quadruple against the
// published schedule. Pure read, no side effects.
func (p *PostgresCatalogRepository) GetShowSlot(
	ctx context.Context,
	movieID uuid.UUID,
	date time.Time,
	startTime, screenID string) (*domain.ShowSlot, error) {

	exists, err := p.movieExists(ctx, movieID)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, domain.ErrMovieNotFound
	}

	query := `
		SELECT id, show_date, start_time, screen_id
		FROM show_slots
		WHERE movie_id = $1 AND show_date = $2 AND start_time = $3 AND screen_id = $4
	`

	slot := domain.ShowSlot{MovieID: movieID}

	err = p.db.QueryRow(ctx, query, movieID, date, startTime, screenID).Scan(
		&slot.ID,
		&slot.Date,
		&slot.StartTime,
		&slot.ScreenID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidSlot
		}

		return nil, err
	}

	slot.SeatLayout, err = p.retrieveSeatLayout(ctx, slot.ID)
	if err != nil {
		return nil, err
	}

	return &slot, nil
}

func (p *PostgresCatalogRepository) GetSchedule(ctx context.Context, movieID uuid.UUID) (*domain.MovieSchedule, error) {
	query := `
		SELECT title
		FROM movies
		WHERE id = $1
	`

	schedule := domain.MovieSchedule{MovieID: movieID}

	err := p.db.QueryRow(ctx, query, movieID).Scan(&schedule.Title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMovieNotFound
		}

		return nil, err
	}

	query = `
		SELECT s.show_date, s.start_time, s.screen_id, count(ss.seat_id)
		FROM show_slots s
		LEFT JOIN slot_seats ss ON ss.show_slot_id = s.id
		WHERE s.movie_id = $1
		GROUP BY s.id
		ORDER BY s.show_date, s.start_time, s.screen_id
	`

	rows, err := p.db.Query(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedule.Slots = make([]domain.ScheduleEntry, 0)

	for rows.Next() {
		var entry domain.ScheduleEntry

		err := rows.Scan(&entry.Date, &entry.StartTime, &entry.ScreenID, &entry.SeatCount)
		if err != nil {
			return nil, err
		}

		schedule.Slots = append(schedule.Slots, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return &schedule, nil
}

func (p *PostgresCatalogRepository) movieExists(ctx context.Context, movieID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)
	`

	var exists bool

	err := p.db.QueryRow(ctx, query, movieID).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (p *PostgresCatalogRepository) retrieveSeatLayout(ctx context.Context, slotID int64) ([]string, error) {
	query := `
		SELECT seat_id
		FROM slot_seats
		WHERE show_slot_id = $1
		ORDER BY seat_id
	`

	rows, err := p.db.Query(ctx, query, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]string, 0)

	for rows.Next() {
		var seatID string

		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}

		seats = append(seats, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
