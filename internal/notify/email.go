// Package notify sends booking confirmations outside the chat.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/common/logger"
	"bookings-bot/pkg/messages"
)

// Confirmation is the data a confirmation mail is rendered from.
type Confirmation struct {
	AppointmentID string
	BusinessName  string
	ServiceName   string
	CustomerName  string
	CustomerEmail string
	Start         string
	End           string
}

// Notifier is told about every created appointment.
type Notifier interface {
	AppointmentBooked(ctx context.Context, c Confirmation) error
}

// MailSender is satisfied by aws.SESClient.
type MailSender interface {
	SendText(ctx context.Context, to, subject, body string) (string, error)
}

type EmailNotifier struct {
	sender  MailSender
	subject *template.Template
	body    *template.Template
	logger  logger.Logger
}

func NewEmailNotifier(sender MailSender, tmpl messages.Email, log logger.Logger) (*EmailNotifier, error) {
	subject, err := template.New("subject").Parse(tmpl.Subject)
	if err != nil {
		return nil, fmt.Errorf("parse email subject template: %w", err)
	}
	body, err := template.New("body").Parse(tmpl.Body)
	if err != nil {
		return nil, fmt.Errorf("parse email body template: %w", err)
	}
	return &EmailNotifier{sender: sender, subject: subject, body: body, logger: log}, nil
}

func (n *EmailNotifier) AppointmentBooked(ctx context.Context, c Confirmation) error {
	if c.CustomerEmail == "" {
		return errors.NewNotificationSendFailedError("email", fmt.Errorf("no recipient"))
	}

	var subject, body bytes.Buffer
	if err := n.subject.Execute(&subject, c); err != nil {
		return errors.NewNotificationSendFailedError("email", err)
	}
	if err := n.body.Execute(&body, c); err != nil {
		return errors.NewNotificationSendFailedError("email", err)
	}

	id, err := n.sender.SendText(ctx, c.CustomerEmail, subject.String(), body.String())
	if err != nil {
		return errors.NewNotificationSendFailedError("email", err)
	}
	n.logger.Info("confirmation email sent", map[string]interface{}{
		"appointmentId": c.AppointmentID,
		"messageId":     id,
	})
	return nil
}
