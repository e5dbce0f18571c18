package mailer

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"

	"github.com/shift-tracker/backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var ErrUnsupportedType = errors.New("unsupported mail type")

// Sender is satisfied by *mail.Client.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// Build turns a queued domain.MailMessage body into a ready to send message.
func Build(from string, body []byte) (*mail.Msg, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(env.To); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	switch env.Type {
	case domain.MailTypeWelcome:
		var data domain.WelcomeMailData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		if err := msg.SetBodyHTMLTemplate(templates.Lookup("welcome.html"), data); err != nil {
			return nil, err
		}
		msg.Subject("Учёт смен - ваш аккаунт")
	case domain.MailTypeShiftExport:
		var data domain.ShiftExportMailData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		if err := msg.SetBodyHTMLTemplate(templates.Lookup("shift_export.html"), data); err != nil {
			return nil, err
		}
		attachment, err := json.MarshalIndent(data.Export, "", "  ")
		if err != nil {
			return nil, err
		}
		msg.AttachReadSeeker(data.Filename, bytes.NewReader(attachment))
		msg.Subject("Учёт смен - экспорт данных")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}

	return msg, nil
}

type Worker struct {
	from   string
	sender Sender
}

func NewWorker(from string, sender Sender) *Worker {
	return &Worker{from: from, sender: sender}
}

// Run consumes deliveries until ctx is done or the channel closes. Messages that cannot be
// built are dropped, messages that fail to send go back to the queue.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d amqp.Delivery) {
	msg, err := Build(w.from, d.Body)
	if err != nil {
		slog.Error("failed to build mail", "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.sender.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("failed to send mail", "error", err)
		_ = d.Nack(false, true)
		return
	}

	slog.Info("mail sent", "deliveryTag", d.DeliveryTag)
	_ = d.Ack(false)
}
