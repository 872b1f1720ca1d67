package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusInProgress BookingStatus = "inprogress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

type Booking struct {
	ID            uuid.UUID       `json:"id"`
	ServiceID     uuid.UUID       `json:"service_id"`
	ServiceName   string          `json:"service_name"`
	Date          string          `json:"date"` // YYYY-MM-DD in the provider's locale
	StartTime     string          `json:"start_time"`
	EndTime       string          `json:"end_time"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Status        BookingStatus   `json:"status"`
	PaymentRef    string          `json:"payment_ref,omitempty"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	ProviderID    uuid.UUID       `json:"provider_id"`
	Refund        RefundState     `json:"refund"`
	RefundAt      time.Time       `json:"refund_at"`
	Activities    []ActivityEntry `json:"activities"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CancelledAt   time.Time       `json:"cancelled_at"`
	CompletedAt   time.Time       `json:"completed_at"`
}

func (b *Booking) Clone() *Booking {
	out := *b
	out.Activities = append([]ActivityEntry(nil), b.Activities...)
	return &out
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return BookingStatus(s), nil
	default:
		return "", fmt.Errorf("unknown booking status: %s", s)
	}
}
