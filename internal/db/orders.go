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

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
id, order_number, kind, items, subtotal::text, tax::text, shipping::text, total::text,
currency, status, payment_ref, buyer_id, buyer_name, buyer_email, seller_id, seller_role, custom_specs, refund, refund_at,
activities, created_at, updated_at, cancelled_at, delivered_at
`

func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	if err := order.Validate(); err != nil {
		return fmt.Errorf("%w: %s", lifecycle.ErrValidation, err)
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}
	activitiesJSON, err := json.Marshal(order.Activities)
	if err != nil {
		return err
	}
	var specsJSON []byte
	if order.CustomSpecs != nil {
		specsJSON, err = json.Marshal(order.CustomSpecs)
		if err != nil {
			return err
		}
	}

	const q = `
INSERT INTO orders (
	id, kind, items, subtotal, tax, shipping, total, currency, status,
	payment_ref, buyer_id, buyer_name, buyer_email, seller_id, seller_role, custom_specs, refund, refund_at,
	activities, created_at, updated_at
) VALUES (
	$1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8, $9,
	$10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
)
RETURNING order_number
`
	row := s.pool.QueryRow(ctx, q,
		order.ID,
		string(order.Kind),
		itemsJSON,
		order.Subtotal.String(),
		order.Tax.String(),
		order.Shipping.String(),
		order.Total.String(),
		order.Currency,
		string(order.Status),
		order.PaymentRef,
		order.BuyerID,
		order.BuyerName,
		order.BuyerEmail,
		order.SellerID,
		string(order.SellerRole),
		specsJSON,
		string(order.Refund),
		nullableTime(order.RefundAt),
		activitiesJSON,
		order.CreatedAt,
		order.UpdatedAt,
	)
	var orderNumber int
	if err := row.Scan(&orderNumber); err != nil {
		return err
	}
	order.OrderNumber = orderNumber
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderStore) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, q, buyerID)
}

func (s *OrderStore) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE seller_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, q, sellerID)
}

func (s *OrderStore) list(ctx context.Context, query string, arg any) ([]*models.Order, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

// Update persists a mutated order. The expectedUpdatedAt guard makes the
// write conditional on the row being unchanged since the caller read it;
// a concurrent writer surfaces as lifecycle.ErrConflict so the caller can
// re-read and retry.
func (s *OrderStore) Update(ctx context.Context, order *models.Order, expectedUpdatedAt time.Time) error {
	if err := order.Validate(); err != nil {
		return fmt.Errorf("%w: %s", lifecycle.ErrValidation, err)
	}

	activitiesJSON, err := json.Marshal(order.Activities)
	if err != nil {
		return err
	}

	const q = `
UPDATE orders SET
	subtotal = $1::numeric,
	tax = $2::numeric,
	shipping = $3::numeric,
	total = $4::numeric,
	status = $5,
	refund = $6,
	refund_at = $7,
	activities = $8,
	updated_at = $9,
	cancelled_at = $10,
	delivered_at = $11
WHERE id = $12 AND updated_at = $13
`
	tag, err := s.pool.Exec(ctx, q,
		order.Subtotal.String(),
		order.Tax.String(),
		order.Shipping.String(),
		order.Total.String(),
		string(order.Status),
		string(order.Refund),
		nullableTime(order.RefundAt),
		activitiesJSON,
		order.UpdatedAt,
		nullableTime(order.CancelledAt),
		nullableTime(order.DeliveredAt),
		order.ID,
		expectedUpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, order.ID); errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("order %s was modified concurrently: %w", order.ID, lifecycle.ErrConflict)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order          models.Order
		kind           string
		itemsJSON      []byte
		subtotal       string
		tax            string
		shipping       string
		total          string
		status         string
		sellerRole     string
		specsJSON      []byte
		refund         string
		refundAt       pgtype.Timestamptz
		activitiesJSON []byte
		cancelledAt    pgtype.Timestamptz
		deliveredAt    pgtype.Timestamptz
	)

	if err := row.Scan(
		&order.ID, &order.OrderNumber, &kind, &itemsJSON, &subtotal, &tax, &shipping, &total,
		&order.Currency, &status, &order.PaymentRef, &order.BuyerID, &order.BuyerName, &order.BuyerEmail,
		&order.SellerID, &sellerRole, &specsJSON,
		&refund, &refundAt, &activitiesJSON, &order.CreatedAt, &order.UpdatedAt, &cancelledAt, &deliveredAt,
	); err != nil {
		return nil, err
	}

	order.Kind = models.OrderKind(kind)

	var err error
	if order.Status, err = models.ParseOrderStatus(status); err != nil {
		return nil, err
	}
	if order.SellerRole, err = models.ParseRole(sellerRole); err != nil {
		return nil, err
	}
	if order.Refund, err = models.ParseRefundState(refund); err != nil {
		return nil, err
	}

	if order.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, err
	}
	if order.Tax, err = decimal.NewFromString(tax); err != nil {
		return nil, err
	}
	if order.Shipping, err = decimal.NewFromString(shipping); err != nil {
		return nil, err
	}
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(activitiesJSON, &order.Activities); err != nil {
		return nil, err
	}
	if len(specsJSON) > 0 {
		order.CustomSpecs = &models.CustomSpecs{}
		if err := json.Unmarshal(specsJSON, order.CustomSpecs); err != nil {
			return nil, err
		}
	}

	order.RefundAt = timeOrZero(refundAt)
	order.CancelledAt = timeOrZero(cancelledAt)
	order.DeliveredAt = timeOrZero(deliveredAt)

	return &order, nil
}

func nullableTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

func timeOrZero(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
