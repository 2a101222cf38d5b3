package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	showDate  = "2030-01-15"
	showTime  = "19:00"
	screenID  = "S1"
	userName  = "Jordan Reyes"
	userEmail = "jordan@example.com"
)

func (s *BaseSuite) do(method, url string, body any) (*httptest.ResponseRecorder, error) {
	var reader *bytes.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonData)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.app.Routes().ServeHTTP(rec, req)

	return rec, nil
}

func decode[T any](t testing.TB, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))

	return out
}

func (s *BaseSuite) seedUser(t testing.TB) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := s.db.QueryRow(
		context.Background(),
		`INSERT INTO users (name, email) VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		userName, userEmail,
	).Scan(&id)
	require.NoError(t, err)

	return id
}

// seedShowSlot creates a movie with a single show slot and seat layout. Each
// call gets a fresh movie so tests never contend for each other's seats.
func (s *BaseSuite) seedShowSlot(t testing.TB, seats []string) (uuid.UUID, int64) {
	t.Helper()

	ctx := context.Background()

	var movieID uuid.UUID
	err := s.db.QueryRow(
		ctx,
		`INSERT INTO movies (title) VALUES ($1) RETURNING id`,
		fmt.Sprintf("Test Feature %s", uuid.NewString()[:8]),
	).Scan(&movieID)
	require.NoError(t, err)

	var slotID int64
	err = s.db.QueryRow(
		ctx,
		`INSERT INTO show_slots (movie_id, show_date, start_time, screen_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		movieID, showDate, showTime, screenID,
	).Scan(&slotID)
	require.NoError(t, err)

	for _, seatID := range seats {
		_, err = s.db.Exec(
			ctx,
			`INSERT INTO slot_seats (show_slot_id, seat_id) VALUES ($1, $2)`,
			slotID, seatID,
		)
		require.NoError(t, err)
	}

	return movieID, slotID
}

// seedLapsedHold inserts a HOLD whose deadline has already passed, the state
// a row is in after the hold window elapses but before any sweep.
func (s *BaseSuite) seedLapsedHold(t testing.TB, slotID int64, seats []string) uuid.UUID {
	t.Helper()

	ctx := context.Background()

	createdAt := time.Now().UTC().Add(-20 * time.Minute)
	expiresAt := time.Now().UTC().Add(-10 * time.Minute)

	var reservationID uuid.UUID
	err := s.db.QueryRow(
		ctx,
		`INSERT INTO reservations (show_slot_id, status, hold_expires_at, created_at, updated_at)
		 VALUES ($1, 'HOLD', $2, $3, $3)
		 RETURNING id`,
		slotID, expiresAt, createdAt,
	).Scan(&reservationID)
	require.NoError(t, err)

	for _, seatID := range seats {
		_, err = s.db.Exec(
			ctx,
			`INSERT INTO reservation_seats (reservation_id, show_slot_id, seat_id) VALUES ($1, $2, $3)`,
			reservationID, slotID, seatID,
		)
		require.NoError(t, err)
	}

	return reservationID
}

func (s *BaseSuite) reservationStatus(t testing.TB, reservationID uuid.UUID) string {
	t.Helper()

	var status string
	err := s.db.QueryRow(
		context.Background(),
		`SELECT status FROM reservations WHERE id = $1`,
		reservationID,
	).Scan(&status)
	require.NoError(t, err)

	return status
}

func holdRequestBody(seats []string, ownerID *uuid.UUID) map[string]any {
	body := map[string]any{
		"date":     showDate,
		"time":     showTime,
		"screenId": screenID,
		"seatIds":  seats,
	}

	if ownerID != nil {
		body["ownerId"] = ownerID.String()
	}

	return body
}
