// Package email provides the email client for sending transactional emails.
package email

import (
	"errors"
	"fmt"

	"github.com/resendlabs/resend-go"
	"github.com/zurichjs/conference-go/internal/infrastructure/email/templates"
)

// ErrNotConfigured is returned by NewService when no API key is set.
var ErrNotConfigured = errors.New("RESEND_API_KEY is not set")

// Message is a rendered email ready to send.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	Send(msg Message) error
}

// Options configures the Resend client.
type Options struct {
	APIKey   string
	From     string
	FromName string
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService(opts Options) (Service, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	return &ResendClient{
		client:    resend.NewClient(opts.APIKey),
		fromEmail: opts.From,
		fromName:  opts.FromName,
	}, nil
}

// Send delivers one message.
func (c *ResendClient) Send(msg Message) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}

	if _, err := c.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}
	return nil
}

// DiscountCodeMessage renders the discount code email.
func DiscountCodeMessage(to string, props templates.DiscountCodeEmailProps) Message {
	content := templates.GetDiscountCodeEmailContent(props)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your %d%% ZurichJS Conf discount: %s", props.PercentOff, props.Code),
		HTML: templates.GetEmailLayout(templates.EmailLayoutProps{
			Title:     "Your ZurichJS Conf discount",
			Preheader: fmt.Sprintf("%s takes %d%% off your ticket", props.Code, props.PercentOff),
			Content:   content,
			SiteURL:   props.TicketsURL,
		}),
	}
}
