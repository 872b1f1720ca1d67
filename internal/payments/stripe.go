package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/artisanhubapp/artisanhub/internal/observability"
)

// StripeReverser issues refunds against the original payment intent.
type StripeReverser struct {
	client *stripe.Client
}

func NewStripeReverser(secretKey string) *StripeReverser {
	backends := stripe.NewBackends(observability.NewHTTPClient(30 * time.Second))
	return &StripeReverser{
		client: stripe.NewClient(secretKey, stripe.WithBackends(backends)),
	}
}

func (r *StripeReverser) Reverse(ctx context.Context, reversal Reversal) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}
	if reversal.PaymentRef == "" {
		return fmt.Errorf("record %s has no payment reference", reversal.RecordID)
	}

	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(reversal.PaymentRef),
		Amount:        stripe.Int64(minorUnits(reversal.Amount)),
		Metadata: map[string]string{
			"record_id": reversal.RecordID.String(),
		},
	}

	if _, err := r.client.V1Refunds.Create(ctx, params); err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

// minorUnits converts a decimal amount to the gateway's integer minor units.
// All supported currencies use two decimal places.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
