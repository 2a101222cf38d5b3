package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blackticket/reservation-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxTxRetries bounds how often a serialization failure is retried before the
// error is surfaced. Each retry re-runs the conflict check from scratch, so a
// genuinely lost race resolves to a seat conflict rather than a 40001.
const maxTxRetries = 3

type PostgresReservationRepository struct {
	db *pgxpool.Pool
}

func NewPostgresReservationRepository(db *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{
		db: db,
	}
}

// CreateHold runs the conflict check and all creation writes in a single
// serializable transaction. No concurrent create or confirm for the same slot
// can interleave between the check and the write.
func (p *PostgresReservationRepository) CreateHold(ctx context.Context, hold domain.NewHold) (*domain.Reservation, error) {
	var reservation *domain.Reservation

	err := runInSerializableTx(ctx, p.db, func(tx pgx.Tx) error {
		conflicts, err := findConflictingSeats(ctx, tx, hold.Slot.ID, hold.Seats)
		if err != nil {
			return err
		}

		if len(conflicts) > 0 {
			return &domain.SeatConflictError{Seats: conflicts}
		}

		reservation, err = insertHold(ctx, tx, hold)

		return err
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// findConflictingSeats returns the requested seats already claimed by a
// non-terminal reservation in the slot. Lapsed holds are excluded by
// re-evaluating the expiry predicate against the database clock, never from
// any cached state.
func findConflictingSeats(ctx context.Context, tx pgx.Tx, slotID int64, seats []string) ([]string, error) {
	query := `
		SELECT DISTINCT rs.seat_id
		FROM reservation_seats rs
		JOIN reservations r ON r.id = rs.reservation_id
		WHERE rs.show_slot_id = $1
			AND rs.seat_id = ANY($2)
			AND r.status IN ('HOLD', 'PENDING', 'CONFIRMED')
			AND (r.status <> 'HOLD' OR r.hold_expires_at > now())
		ORDER BY rs.seat_id
	`

	rows, err := tx.Query(ctx, query, slotID, seats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conflicts := make([]string, 0)

	for rows.Next() {
		var seatID string

		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}

		conflicts = append(conflicts, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return conflicts, nil
}

func insertHold(ctx context.Context, tx pgx.Tx, hold domain.NewHold) (*domain.Reservation, error) {
	query := `
		INSERT INTO reservations (show_slot_id, user_id, status, hold_expires_at)
		VALUES ($1, $2, 'HOLD', now() + $3 * interval '1 second')
		RETURNING id, hold_expires_at, created_at, updated_at
	`

	reservation := domain.Reservation{
		Slot:    hold.Slot,
		Seats:   hold.Seats,
		OwnerID: hold.OwnerID,
		Status:  domain.StatusHold,
	}

	var holdExpiresAt time.Time

	err := tx.QueryRow(
		ctx,
		query,
		hold.Slot.ID,
		hold.OwnerID,
		hold.HoldDuration.Seconds()).Scan(
		&reservation.ID,
		&holdExpiresAt,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	reservation.HoldExpiresAt = &holdExpiresAt

	rows := make([][]any, 0, len(hold.Seats))
	for _, seatID := range hold.Seats {
		rows = append(rows, []any{reservation.ID, hold.Slot.ID, seatID})
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"reservation_seats"},
		[]string{"reservation_id", "show_slot_id", "seat_id"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return nil, err
	}

	event, err := appendEvent(ctx, tx, reservation.ID, domain.ActorSystem, domain.ActionHoldCreated)
	if err != nil {
		return nil, err
	}

	reservation.Events = []domain.AuditEvent{*event}

	for _, attachment := range hold.Attachments {
		query = `
			INSERT INTO attachments (reservation_id, object_key, url, content_type, size_bytes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`

		err = tx.QueryRow(
			ctx,
			query,
			reservation.ID,
			attachment.ObjectKey,
			attachment.URL,
			attachment.ContentType,
			attachment.Size).Scan(&attachment.ID, &attachment.CreatedAt)
		if err != nil {
			return nil, err
		}

		reservation.Attachments = append(reservation.Attachments, attachment)
	}

	return &reservation, nil
}

func appendEvent(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID, actor, action string) (*domain.AuditEvent, error) {
	query := `
		INSERT INTO reservation_events (reservation_id, actor, action)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	event := domain.AuditEvent{Actor: actor, Action: action}

	err := tx.QueryRow(ctx, query, reservationID, actor, action).Scan(&event.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &event, nil
}

func (p *PostgresReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	query := `
		SELECT
			r.id,
			r.user_id,
			r.status,
			r.hold_expires_at,
			r.created_at,
			r.updated_at,
			s.id,
			s.movie_id,
			s.show_date,
			s.start_time,
			s.screen_id
		FROM reservations r
		JOIN show_slots s ON r.show_slot_id = s.id
		WHERE r.id = $1
	`

	var reservation domain.Reservation

	err := p.db.QueryRow(ctx, query, id).Scan(
		&reservation.ID,
		&reservation.OwnerID,
		&reservation.Status,
		&reservation.HoldExpiresAt,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
		&reservation.Slot.ID,
		&reservation.Slot.MovieID,
		&reservation.Slot.Date,
		&reservation.Slot.StartTime,
		&reservation.Slot.ScreenID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	reservation.Seats, err = p.retrieveSeats(ctx, id)
	if err != nil {
		return nil, err
	}

	reservation.Events, err = p.retrieveEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	reservation.Attachments, err = p.retrieveAttachments(ctx, id)
	if err != nil {
		return nil, err
	}

	return &reservation, nil
}

// Confirm promotes a live hold to CONFIRMED. Confirming an already confirmed
// reservation is a no-op success; a lapsed hold fails with ErrHoldExpired.
func (p *PostgresReservationRepository) Confirm(ctx context.Context, id uuid.UUID, actor string) (*domain.Reservation, error) {
	err := runInSerializableTx(ctx, p.db, func(tx pgx.Tx) error {
		status, expired, err := lockReservation(ctx, tx, id)
		if err != nil {
			return err
		}

		switch {
		case status == domain.StatusConfirmed:
			return nil
		// A reaped hold and a lapsed one are the same hold; the sweep must
		// not change which error the caller sees.
		case status == domain.StatusExpired || expired:
			return domain.ErrHoldExpired
		case status == domain.StatusCancelled:
			return domain.ErrInvalidTransition
		}

		return transition(ctx, tx, id, domain.StatusConfirmed, actor, domain.ActionConfirmed)
	})
	if err != nil {
		return nil, err
	}

	return p.GetByID(ctx, id)
}

// Cancel moves a non-terminal reservation to CANCELLED. Cancelling an already
// cancelled reservation is a no-op success.
func (p *PostgresReservationRepository) Cancel(ctx context.Context, id uuid.UUID, actor string) (*domain.Reservation, error) {
	err := runInSerializableTx(ctx, p.db, func(tx pgx.Tx) error {
		status, expired, err := lockReservation(ctx, tx, id)
		if err != nil {
			return err
		}

		switch {
		case status == domain.StatusCancelled:
			return nil
		case status == domain.StatusExpired || expired:
			return domain.ErrHoldExpired
		case status == domain.StatusConfirmed:
			return domain.ErrInvalidTransition
		}

		return transition(ctx, tx, id, domain.StatusCancelled, actor, domain.ActionCancelled)
	})
	if err != nil {
		return nil, err
	}

	return p.GetByID(ctx, id)
}

// lockReservation row-locks the reservation and evaluates the expiry
// predicate with the database clock inside the same transaction.
func lockReservation(ctx context.Context, tx pgx.Tx, id uuid.UUID) (domain.ReservationStatus, bool, error) {
	query := `
		SELECT status, status = 'HOLD' AND hold_expires_at <= now()
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`

	var (
		status  domain.ReservationStatus
		expired bool
	)

	err := tx.QueryRow(ctx, query, id).Scan(&status, &expired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, domain.ErrRecordNotFound
		}

		return "", false, err
	}

	return status, expired, nil
}

func transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, to domain.ReservationStatus, actor, action string) error {
	// The deadline only has meaning while the row is a HOLD.
	query := `
		UPDATE reservations
		SET status = $2, hold_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query, id, to)
	if err != nil {
		return err
	}

	_, err = appendEvent(ctx, tx, id, actor, action)

	return err
}

// ReapExpired materializes EXPIRED on lapsed HOLD rows. Purely storage
// hygiene: the conflict query and every read re-derive expiry on their own.
func (p *PostgresReservationRepository) ReapExpired(ctx context.Context, limit int) (int, error) {
	reaped := 0

	err := runInSerializableTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			WITH lapsed AS (
				SELECT id
				FROM reservations
				WHERE status = 'HOLD' AND hold_expires_at <= now()
				ORDER BY hold_expires_at
				LIMIT $1
				FOR UPDATE SKIP LOCKED
			)
			UPDATE reservations r
			SET status = 'EXPIRED', updated_at = now()
			FROM lapsed
			WHERE r.id = lapsed.id
			RETURNING r.id
		`

		rows, err := tx.Query(ctx, query, limit)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0)

		for rows.Next() {
			var id uuid.UUID

			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}

			ids = append(ids, id)
		}
		rows.Close()

		if err = rows.Err(); err != nil {
			return err
		}

		for _, id := range ids {
			if _, err := appendEvent(ctx, tx, id, domain.ActorSystem, domain.ActionReclaimed); err != nil {
				return err
			}
		}

		reaped = len(ids)

		return nil
	})
	if err != nil {
		return 0, err
	}

	return reaped, nil
}

func (p *PostgresReservationRepository) retrieveSeats(ctx context.Context, reservationID uuid.UUID) ([]string, error) {
	query := `
		SELECT seat_id
		FROM reservation_seats
		WHERE reservation_id = $1
		ORDER BY seat_id
	`

	rows, err := p.db.Query(ctx, query, reservationID)
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

func (p *PostgresReservationRepository) retrieveEvents(ctx context.Context, reservationID uuid.UUID) ([]domain.AuditEvent, error) {
	query := `
		SELECT actor, action, created_at
		FROM reservation_events
		WHERE reservation_id = $1
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.AuditEvent, 0)

	for rows.Next() {
		var event domain.AuditEvent

		if err := rows.Scan(&event.Actor, &event.Action, &event.CreatedAt); err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (p *PostgresReservationRepository) retrieveAttachments(ctx context.Context, reservationID uuid.UUID) ([]domain.Attachment, error) {
	query := `
		SELECT id, object_key, url, content_type, size_bytes, created_at
		FROM attachments
		WHERE reservation_id = $1
		ORDER BY created_at
	`

	rows, err := p.db.Query(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := make([]domain.Attachment, 0)

	for rows.Next() {
		var attachment domain.Attachment

		err := rows.Scan(
			&attachment.ID,
			&attachment.ObjectKey,
			&attachment.URL,
			&attachment.ContentType,
			&attachment.Size,
			&attachment.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		attachments = append(attachments, attachment)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return attachments, nil
}

// runInSerializableTx executes fn in a serializable transaction, retrying a
// bounded number of times when Postgres aborts the transaction with a
// serialization failure.
func runInSerializableTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	txOptions := pgx.TxOptions{IsoLevel: pgx.Serializable}

	var err error

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = runInTx(ctx, db, txOptions, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}

	return err
}

func runInTx(ctx context.Context, db *pgxpool.Pool, txOptions pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.SerializationFailure
}
