// Package email provides email templates.
package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// StatusInfo contains the information needed for lifecycle notification
// emails.
type StatusInfo struct {
	RecipientEmail string
	RecipientName  string
	RecordLabel    string // e.g. "Order #1042" or "Booking: Kitchen remodel consult"
	Status         string
	Amount         string
	Currency       string
	Detail         string
}

// EmailTemplate defines a named email template
type EmailTemplate struct {
	Name    string
	Subject string
	Text    string
}

// Renderer provides methods to render email templates
type Renderer struct {
	templates *template.Template
}

// NewRenderer creates a new email template renderer with built-in templates
func NewRenderer() (*Renderer, error) {
	templates := map[string]EmailTemplate{
		"status_changed": {
			Name: "Status Changed",
			Text: statusChangedText,
		},
		"refund_requested": {
			Name: "Refund Requested",
			Text: refundRequestedText,
		},
		"refund_resolved": {
			Name: "Refund Resolved",
			Text: refundResolvedText,
		},
	}

	tmpl := template.New("email")
	for key, t := range templates {
		if _, err := tmpl.New(key + "_text").Parse(t.Text); err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", key, err)
		}
	}

	return &Renderer{templates: tmpl}, nil
}

// Render renders an email template with the given data
func (r *Renderer) Render(ctx context.Context, templateName string, data *StatusInfo) (*Email, error) {
	var textBuf bytes.Buffer

	if err := r.templates.ExecuteTemplate(&textBuf, templateName+"_text", data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}

	subject := ""
	switch templateName {
	case "status_changed":
		subject = fmt.Sprintf("%s is now %s", data.RecordLabel, data.Status)
	case "refund_requested":
		subject = fmt.Sprintf("Refund requested for %s", data.RecordLabel)
	case "refund_resolved":
		subject = fmt.Sprintf("Refund decision for %s", data.RecordLabel)
	}

	return &Email{
		To:      data.RecipientEmail,
		Subject: subject,
		Text:    textBuf.String(),
	}, nil
}

// SendStatusChanged sends a lifecycle status notification
func SendStatusChanged(ctx context.Context, p Provider, info *StatusInfo) error {
	return send(ctx, p, "status_changed", info)
}

// SendRefundRequested notifies the counterparty that a refund was requested
func SendRefundRequested(ctx context.Context, p Provider, info *StatusInfo) error {
	return send(ctx, p, "refund_requested", info)
}

// SendRefundResolved notifies the requester of the refund decision
func SendRefundResolved(ctx context.Context, p Provider, info *StatusInfo) error {
	return send(ctx, p, "refund_resolved", info)
}

func send(ctx context.Context, p Provider, templateName string, info *StatusInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	email, err := renderer.Render(ctx, templateName, info)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, email)
}

const statusChangedText = `Hi {{.RecipientName}},

{{.RecordLabel}} is now {{.Status}}.
{{if .Detail}}
{{.Detail}}
{{end}}
Amount: {{.Amount}} {{.Currency}}

Thanks,
The ArtisanHub Team
`

const refundRequestedText = `Hi {{.RecipientName}},

A refund has been requested for {{.RecordLabel}}.
{{if .Detail}}
Reason: {{.Detail}}
{{end}}
Amount: {{.Amount}} {{.Currency}}

Our team will review the request and follow up with a decision.

Thanks,
The ArtisanHub Team
`

const refundResolvedText = `Hi {{.RecipientName}},

Your refund request for {{.RecordLabel}} has been {{.Status}}.
{{if .Detail}}
{{.Detail}}
{{end}}
Amount: {{.Amount}} {{.Currency}}

Thanks,
The ArtisanHub Team
`
