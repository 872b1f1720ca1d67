package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusInTransit OrderStatus = "in-transit"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderKind discriminates standard orders from bespoke artisan orders. The two
// are mutually exclusive: a custom order always carries CustomSpecs, a
// standard order never does.
type OrderKind string

const (
	OrderKindStandard OrderKind = "standard"
	OrderKindCustom   OrderKind = "custom"
)

type Order struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber int             `json:"order_number"`
	Kind        OrderKind       `json:"kind"`
	Items       []OrderItem     `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Shipping    decimal.Decimal `json:"shipping"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Status      OrderStatus     `json:"status"`
	PaymentRef  string          `json:"payment_ref,omitempty"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	BuyerName   string          `json:"buyer_name"`
	BuyerEmail  string          `json:"buyer_email"`
	SellerID    uuid.UUID       `json:"seller_id"`
	SellerRole  Role            `json:"seller_role"`
	CustomSpecs *CustomSpecs    `json:"custom_specs,omitempty"`
	Refund      RefundState     `json:"refund"`
	RefundAt    time.Time       `json:"refund_at"`
	Activities  []ActivityEntry `json:"activities"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CancelledAt time.Time       `json:"cancelled_at"`
	DeliveredAt time.Time       `json:"delivered_at"`
}

type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CustomSpecs is the bespoke specification attached to artisan custom orders.
type CustomSpecs struct {
	Materials       []string `json:"materials"`
	TimelineDays    int      `json:"timeline_days"`
	ReferenceImages []string `json:"reference_images"`
	Notes           string   `json:"notes"`
}

// IsCustom reports whether the order is the bespoke artisan variant.
func (o *Order) IsCustom() bool {
	return o.Kind == OrderKindCustom
}

// RecomputeTotal re-derives Total from the component money fields. The
// lifecycle engine calls this on every mutation instead of trusting a
// caller-supplied total.
func (o *Order) RecomputeTotal() {
	o.Total = o.Subtotal.Add(o.Tax).Add(o.Shipping)
}

// Clone returns a deep copy. The lifecycle engine works on a clone so an
// error never leaves the caller's record half-mutated.
func (o *Order) Clone() *Order {
	out := *o
	out.Items = append([]OrderItem(nil), o.Items...)
	out.Activities = append([]ActivityEntry(nil), o.Activities...)
	if o.CustomSpecs != nil {
		specs := *o.CustomSpecs
		specs.Materials = append([]string(nil), o.CustomSpecs.Materials...)
		specs.ReferenceImages = append([]string(nil), o.CustomSpecs.ReferenceImages...)
		out.CustomSpecs = &specs
	}
	return &out
}

// Validate checks the structural invariants that hold for every persisted
// order: a recognized status, kind/specs exclusivity, and the money identity
// total == subtotal + tax + shipping.
func (o *Order) Validate() error {
	if _, err := ParseOrderStatus(string(o.Status)); err != nil {
		return err
	}
	switch o.Kind {
	case OrderKindStandard:
		if o.CustomSpecs != nil {
			return fmt.Errorf("standard order %s carries custom specs", o.ID)
		}
	case OrderKindCustom:
		if o.CustomSpecs == nil {
			return fmt.Errorf("custom order %s is missing custom specs", o.ID)
		}
	default:
		return fmt.Errorf("unknown order kind: %s", o.Kind)
	}
	if !o.Total.Equal(o.Subtotal.Add(o.Tax).Add(o.Shipping)) {
		return fmt.Errorf("order %s total %s does not equal subtotal+tax+shipping", o.ID, o.Total)
	}
	return nil
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusInTransit, OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("unknown order status: %s", s)
	}
}
