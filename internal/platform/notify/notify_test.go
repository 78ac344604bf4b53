package notify

import (
	"context"
	"strings"
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	engine := NewTemplateEngine()

	subject, body, channel, err := engine.Render("visit-booked", map[string]string{
		"patient_name":   "John Doe",
		"physician_name": "Smith",
		"date":           "2026-03-05",
		"time":           "14:30",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if channel != ChannelEmail {
		t.Errorf("channel = %q, want email", channel)
	}
	if subject != "Appointment Confirmed" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "John Doe") || !strings.Contains(body, "Dr. Smith") {
		t.Errorf("body missing substitutions: %q", body)
	}
	if strings.Contains(body, "{{") {
		t.Errorf("body has unrendered placeholders: %q", body)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	engine := NewTemplateEngine()
	if _, _, _, err := engine.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestRenderLeavesUnmatchedPlaceholders(t *testing.T) {
	engine := NewTemplateEngine()
	_, body, _, err := engine.Render("visit-booked", map[string]string{"date": "2026-03-05"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, "{{patient_name}}") {
		t.Errorf("unmatched placeholder should survive: %q", body)
	}
}

func TestSendTemplate(t *testing.T) {
	email := &MockEmailSender{}
	n := NewNotifier(email, NopSMSSender{}, NewTemplateEngine())

	msg, err := n.SendTemplate(context.Background(), "visit-cancelled", "patient@example.com", map[string]string{
		"patient_name": "Jane Roe",
		"date":         "2026-03-06",
		"time":         "09:00",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Status != "sent" {
		t.Errorf("status = %q, want sent", msg.Status)
	}
	if msg.SentAt == nil {
		t.Error("sent_at not set")
	}

	calls := email.Calls()
	if len(calls) != 1 {
		t.Fatalf("email calls = %d, want 1", len(calls))
	}
	if calls[0].To != "patient@example.com" {
		t.Errorf("recipient = %q", calls[0].To)
	}

	got, err := n.Get(msg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TemplateID != "visit-cancelled" {
		t.Errorf("template id = %q", got.TemplateID)
	}
}

func TestSendFailureRecorded(t *testing.T) {
	email := &MockEmailSender{ShouldFail: true, FailError: "smtp unreachable"}
	n := NewNotifier(email, NopSMSSender{}, NewTemplateEngine())

	msg, err := n.SendTemplate(context.Background(), "visit-booked", "patient@example.com", nil)
	if err == nil {
		t.Fatal("expected send error")
	}
	if msg.Status != "failed" {
		t.Errorf("status = %q, want failed", msg.Status)
	}
	if msg.Error != "smtp unreachable" {
		t.Errorf("error = %q", msg.Error)
	}

	stats := n.Stats()
	if stats["failed"] != 1 {
		t.Errorf("failed count = %d, want 1", stats["failed"])
	}
}

func TestListByRecipient(t *testing.T) {
	n := NewNotifier(NopEmailSender{}, NopSMSSender{}, NewTemplateEngine())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := n.SendTemplate(ctx, "visit-booked", "a@example.com", nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := n.SendTemplate(ctx, "visit-booked", "b@example.com", nil); err != nil {
		t.Fatal(err)
	}

	if got := n.ListByRecipient("a@example.com", 10); len(got) != 3 {
		t.Errorf("recipient a count = %d, want 3", len(got))
	}
	if got := n.ListByRecipient("a@example.com", 2); len(got) != 2 {
		t.Errorf("limited count = %d, want 2", len(got))
	}
	if got := n.ListByRecipient("nobody@example.com", 10); len(got) != 0 {
		t.Errorf("unknown recipient count = %d, want 0", len(got))
	}
}
