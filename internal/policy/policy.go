// Package policy loads deployment-specific lifecycle policy: refund windows,
// refund-eligible statuses, and cancellation waivers. Policy is data, not
// code, so operators can change it without a deploy.
package policy

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
	"github.com/artisanhubapp/artisanhub/internal/models"
)

type Policy struct {
	Refund       RefundConfig       `yaml:"refund"`
	Cancellation CancellationConfig `yaml:"cancellation"`
}

type RefundConfig struct {
	WindowDays      int      `yaml:"window_days" validate:"min=0,max=365"`
	OrderStatuses   []string `yaml:"order_statuses" validate:"required,min=1,dive,oneof=pending in-transit delivered cancelled"`
	BookingStatuses []string `yaml:"booking_statuses" validate:"required,min=1,dive,oneof=pending inprogress completed cancelled"`
}

type CancellationConfig struct {
	WaiveShipping bool `yaml:"waive_shipping"`
	WaiveTax      bool `yaml:"waive_tax"`
}

var policyValidator = validator.New()

// Default is the policy used when no file is configured: a 14-day refund
// window from cancellation (or delivery, for orders), shipping waived on
// cancellation.
func Default() *Policy {
	return &Policy{
		Refund: RefundConfig{
			WindowDays:      14,
			OrderStatuses:   []string{string(models.OrderStatusCancelled), string(models.OrderStatusDelivered)},
			BookingStatuses: []string{string(models.BookingStatusCancelled)},
		},
		Cancellation: CancellationConfig{
			WaiveShipping: true,
		},
	}
}

// Load reads and validates a policy file. An empty path returns Default.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return Parse(content)
}

// Parse decodes a policy document and validates it.
func Parse(content []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(content, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}
	if err := policyValidator.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return &p, nil
}

// RefundPolicy converts the loaded configuration into the engine's policy
// input.
func (p *Policy) RefundPolicy() lifecycle.RefundPolicy {
	out := lifecycle.RefundPolicy{
		Window: time.Duration(p.Refund.WindowDays) * 24 * time.Hour,
	}
	for _, s := range p.Refund.OrderStatuses {
		out.OrderStatuses = append(out.OrderStatuses, models.OrderStatus(s))
	}
	for _, s := range p.Refund.BookingStatuses {
		out.BookingStatuses = append(out.BookingStatuses, models.BookingStatus(s))
	}
	return out
}

// OrderWaiver returns the engine hook that applies the configured tax and
// shipping waivers when an order is rejected or cancelled.
func (p *Policy) OrderWaiver() lifecycle.OrderWaiverFunc {
	waiveShipping := p.Cancellation.WaiveShipping
	waiveTax := p.Cancellation.WaiveTax
	if !waiveShipping && !waiveTax {
		return nil
	}
	return func(order *models.Order, target models.OrderStatus) {
		if target != models.OrderStatusCancelled {
			return
		}
		if waiveShipping {
			order.Shipping = decimal.Zero
		}
		if waiveTax {
			order.Tax = decimal.Zero
		}
	}
}
