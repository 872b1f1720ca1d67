package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
	"github.com/artisanhubapp/artisanhub/internal/models"
)

type BookingStore struct {
	pool *pgxpool.Pool
}

func NewBookingStore(pool *pgxpool.Pool) *BookingStore {
	return &BookingStore{pool: pool}
}

const bookingColumns = `
id, service_id, service_name, date, start_time, end_time, price::text, currency,
status, payment_ref, customer_id, customer_name, customer_email, provider_id, refund, refund_at, activities,
created_at, updated_at, cancelled_at, completed_at
`

func (s *BookingStore) Create(ctx context.Context, booking *models.Booking) error {
	activitiesJSON, err := json.Marshal(booking.Activities)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO bookings (
	id, service_id, service_name, date, start_time, end_time, price, currency,
	status, payment_ref, customer_id, customer_name, customer_email, provider_id, refund, refund_at, activities,
	created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
)
`
	_, err = s.pool.Exec(ctx, q,
		booking.ID,
		booking.ServiceID,
		booking.ServiceName,
		booking.Date,
		booking.StartTime,
		booking.EndTime,
		booking.Price.String(),
		booking.Currency,
		string(booking.Status),
		booking.PaymentRef,
		booking.CustomerID,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.ProviderID,
		string(booking.Refund),
		nullableTime(booking.RefundAt),
		activitiesJSON,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	return err
}

func (s *BookingStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingStore) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, q, customerID)
}

func (s *BookingStore) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE provider_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, q, providerID)
}

func (s *BookingStore) list(ctx context.Context, query string, arg any) ([]*models.Booking, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, booking)
	}
	return out, rows.Err()
}

// Update persists a mutated booking under the same conditional-write guard
// as OrderStore.Update.
func (s *BookingStore) Update(ctx context.Context, booking *models.Booking, expectedUpdatedAt time.Time) error {
	activitiesJSON, err := json.Marshal(booking.Activities)
	if err != nil {
		return err
	}

	const q = `
UPDATE bookings SET
	date = $1,
	start_time = $2,
	end_time = $3,
	status = $4,
	refund = $5,
	refund_at = $6,
	activities = $7,
	updated_at = $8,
	cancelled_at = $9,
	completed_at = $10
WHERE id = $11 AND updated_at = $12
`
	tag, err := s.pool.Exec(ctx, q,
		booking.Date,
		booking.StartTime,
		booking.EndTime,
		string(booking.Status),
		string(booking.Refund),
		nullableTime(booking.RefundAt),
		activitiesJSON,
		booking.UpdatedAt,
		nullableTime(booking.CancelledAt),
		nullableTime(booking.CompletedAt),
		booking.ID,
		expectedUpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, booking.ID); errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("booking %s was modified concurrently: %w", booking.ID, lifecycle.ErrConflict)
	}
	return nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		booking        models.Booking
		price          string
		status         string
		refund         string
		refundAt       pgtype.Timestamptz
		activitiesJSON []byte
		cancelledAt    pgtype.Timestamptz
		completedAt    pgtype.Timestamptz
	)

	if err := row.Scan(
		&booking.ID, &booking.ServiceID, &booking.ServiceName, &booking.Date,
		&booking.StartTime, &booking.EndTime, &price, &booking.Currency,
		&status, &booking.PaymentRef, &booking.CustomerID, &booking.CustomerName, &booking.CustomerEmail,
		&booking.ProviderID, &refund, &refundAt,
		&activitiesJSON, &booking.CreatedAt, &booking.UpdatedAt, &cancelledAt, &completedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if booking.Status, err = models.ParseBookingStatus(status); err != nil {
		return nil, err
	}
	if booking.Refund, err = models.ParseRefundState(refund); err != nil {
		return nil, err
	}
	if booking.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(activitiesJSON, &booking.Activities); err != nil {
		return nil, err
	}

	booking.RefundAt = timeOrZero(refundAt)
	booking.CancelledAt = timeOrZero(cancelledAt)
	booking.CompletedAt = timeOrZero(completedAt)

	return &booking, nil
}
