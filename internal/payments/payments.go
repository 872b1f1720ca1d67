// Package payments reverses captured payments when a refund is approved.
package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reversal describes a payment to reverse. PaymentRef is the gateway's
// reference for the original charge.
type Reversal struct {
	RecordID   uuid.UUID
	PaymentRef string
	Amount     decimal.Decimal
	Currency   string
}

// Reverser returns money to the customer. Implementations must be safe to
// call more than once for the same record.
type Reverser interface {
	Reverse(ctx context.Context, reversal Reversal) error
}

// NoopReverser records nothing and reverses nothing. Used when no payment
// gateway is configured.
type NoopReverser struct{}

func (NoopReverser) Reverse(ctx context.Context, reversal Reversal) error { return nil }
