// Package email provides email provider interface.
package email

import (
	"context"
	"fmt"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
	ValidateAPIKey(ctx context.Context) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
}

func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "none", "":
		return NoopProvider{}, nil
	case "resend":
		return NewResendProvider(config.APIKey, config.From), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'none' or 'resend'")
	}
}

// NoopProvider discards all mail. Used when no provider is configured,
// typically in local development and tests.
type NoopProvider struct{}

func (NoopProvider) SendEmail(ctx context.Context, email *Email) error { return nil }

func (NoopProvider) ValidateAPIKey(ctx context.Context) error { return nil }
