// Package notify delivers operational notifications (booking confirmations,
// cancellations, schedule generation summaries) with template rendering and
// an in-memory record of what was sent.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel represents how a notification is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Notification is a single outbound message.
type Notification struct {
	ID         string            `json:"id"`
	Channel    Channel           `json:"channel"`
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject,omitempty"`
	Body       string            `json:"body"`
	TemplateID string            `json:"template_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	SentAt     *time.Time        `json:"sent_at,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// EmailSender sends email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender sends SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Template is a reusable message template with {{key}} placeholders.
type Template struct {
	ID      string  `json:"id"`
	Subject string  `json:"subject"`
	Body    string  `json:"body"`
	Channel Channel `json:"channel"`
}

// TemplateEngine stores templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates an engine with the built-in clinic templates.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      "visit-booked",
			Subject: "Appointment Confirmed",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{physician_name}} is confirmed for {{date}} at {{time}}.",
			Channel: ChannelEmail,
		},
		{
			ID:      "visit-cancelled",
			Subject: "Appointment Cancelled",
			Body:    "Dear {{patient_name}}, your appointment on {{date}} at {{time}} has been cancelled.",
			Channel: ChannelEmail,
		},
		{
			ID:      "visit-rescheduled",
			Subject: "Appointment Rescheduled",
			Body:    "Dear {{patient_name}}, your appointment has been moved to {{date}} at {{time}} with Dr. {{physician_name}}.",
			Channel: ChannelEmail,
		},
		{
			ID:      "schedule-generated",
			Subject: "Schedule Generated",
			Body:    "Dr. {{physician_name}}, {{slot_count}} appointment slots were generated from {{from}} to {{to}}.",
			Channel: ChannelEmail,
		},
		{
			ID:      "diagnosis-review-requested",
			Subject: "Diagnosis Review Requested",
			Body:    "Dr. {{mentor_name}}, a diagnosis by {{intern_name}} for patient {{patient_name}} is awaiting your review.",
			Channel: ChannelEmail,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// Register adds or replaces a template.
func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render performs {{key}} substitution on the named template. Placeholders
// without a matching key are left untouched.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, channel Channel, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, t.Channel, nil
}

// Notifier dispatches notifications and keeps an in-memory history.
type Notifier struct {
	email     EmailSender
	sms       SMSSender
	templates *TemplateEngine

	mu   sync.RWMutex
	sent map[string]*Notification
}

// NewNotifier constructs a Notifier.
func NewNotifier(email EmailSender, sms SMSSender, tpl *TemplateEngine) *Notifier {
	return &Notifier{
		email:     email,
		sms:       sms,
		templates: tpl,
		sent:      make(map[string]*Notification),
	}
}

// Send dispatches a notification through its channel and records the outcome.
func (n *Notifier) Send(ctx context.Context, msg *Notification) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now().UTC()

	var sendErr error
	switch msg.Channel {
	case ChannelEmail:
		sendErr = n.email.SendEmail(ctx, msg.Recipient, msg.Subject, msg.Body)
	case ChannelSMS:
		sendErr = n.sms.SendSMS(ctx, msg.Recipient, msg.Body)
	default:
		sendErr = fmt.Errorf("unsupported channel: %s", msg.Channel)
	}

	if sendErr != nil {
		msg.Status = "failed"
		msg.Error = sendErr.Error()
	} else {
		msg.Status = "sent"
		at := time.Now().UTC()
		msg.SentAt = &at
	}

	n.mu.Lock()
	n.sent[msg.ID] = msg
	n.mu.Unlock()

	return sendErr
}

// SendTemplate renders a template and sends the result.
func (n *Notifier) SendTemplate(ctx context.Context, templateID, recipient string, data map[string]string) (*Notification, error) {
	subject, body, channel, err := n.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	msg := &Notification{
		Channel:    channel,
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
		Data:       data,
	}
	if err := n.Send(ctx, msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// Get returns a recorded notification by id.
func (n *Notifier) Get(id string) (*Notification, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	msg, ok := n.sent[id]
	if !ok {
		return nil, fmt.Errorf("notification %q not found", id)
	}
	return msg, nil
}

// ListByRecipient returns up to limit notifications sent to a recipient.
func (n *Notifier) ListByRecipient(recipient string, limit int) []*Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var out []*Notification
	for _, msg := range n.sent {
		if msg.Recipient == recipient {
			out = append(out, msg)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Stats returns notification counts grouped by status.
func (n *Notifier) Stats() map[string]int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	stats := make(map[string]int)
	for _, msg := range n.sent {
		stats[msg.Status]++
	}
	return stats
}

// NopEmailSender discards email. Used when no SMTP transport is configured.
type NopEmailSender struct{}

func (NopEmailSender) SendEmail(context.Context, string, string, string) error { return nil }

// NopSMSSender discards SMS.
type NopSMSSender struct{}

func (NopSMSSender) SendSMS(context.Context, string, string) error { return nil }

// MockEmailSender records SendEmail calls for tests.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// EmailCall records one SendEmail invocation.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
