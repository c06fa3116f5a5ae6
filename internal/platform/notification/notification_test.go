package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
)

func TestTemplateEngine_BuiltIns(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render(TemplateAssessmentSent, map[string]string{"app_url": "https://app.example.com"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "New Mental Health Assessment from Your Doctor" {
		t.Errorf("unexpected subject: %q", subject)
	}
	if !strings.Contains(body, `href="https://app.example.com/dashboard"`) {
		t.Errorf("expected dashboard link, got %s", body)
	}

	subject, _, _ = e.Render(TemplateAssessmentResend, nil)
	if subject != "Reminder: Complete Your Mental Health Assessment" {
		t.Errorf("unexpected resend subject: %q", subject)
	}
}

func TestTemplateEngine_EscapesBodyValues(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render(TemplateAssessmentResults, map[string]string{"name": "<script>x</script>"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Errorf("expected escaped name, got %s", body)
	}
}

func TestTemplateEngine_Unknown(t *testing.T) {
	if _, _, err := NewTemplateEngine().Render("nope", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestMailer_DeliverSends(t *testing.T) {
	sender := &MockEmailSender{}
	m := NewMailer(sender, "https://app.example.com/", zerolog.Nop())

	m.Deliver(context.Background(), TemplateAssessmentResend, "pat@example.com", nil)

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "pat@example.com" {
		t.Errorf("unexpected recipient %q", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, "https://app.example.com/dashboard") {
		t.Errorf("expected trimmed app url in body: %s", calls[0].Body)
	}
}

func TestMailer_DeliverSwallowsFailure(t *testing.T) {
	var buf bytes.Buffer
	sender := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	m := NewMailer(sender, "http://localhost:3000", zerolog.New(&buf))

	m.Deliver(context.Background(), TemplateAssessmentSent, "pat@example.com", nil)

	if len(sender.Calls()) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(sender.Calls()))
	}
	if !strings.Contains(buf.String(), "email delivery failed") {
		t.Errorf("expected failure to be logged, got %s", buf.String())
	}
}

func TestMailer_SkipsEmptyRecipient(t *testing.T) {
	sender := &MockEmailSender{}
	NewMailer(sender, "", zerolog.Nop()).Deliver(context.Background(), TemplateAssessmentSent, "", nil)
	if len(sender.Calls()) != 0 {
		t.Error("expected no send without recipient")
	}
}

func TestNewSMTPSender_RequiresConfig(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"}); err == nil {
		t.Error("expected error for incomplete SMTP config")
	}
	s, err := NewSMTPSender(SMTPConfig{Host: "h", Port: 587, User: "u", Password: "p", From: "noreply@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.fromHeader(); got != "Mindful Assessment Platform <noreply@example.com>" {
		t.Errorf("unexpected from header %q", got)
	}
}

func TestSMTPSender_RejectsHeaderInjection(t *testing.T) {
	s, _ := NewSMTPSender(SMTPConfig{Host: "h", Port: 587, User: "u", Password: "p", From: "f@example.com"})
	if err := s.SendEmail(context.Background(), "a@example.com\r\nBcc: x@example.com", "s", "b"); err == nil {
		t.Error("expected header injection to be rejected")
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("F <f@x>", "t@x", "Hi", "<p>body</p>"))
	if !strings.Contains(msg, "Content-Type: text/html") || !strings.HasSuffix(msg, "\r\n\r\n<p>body</p>") {
		t.Errorf("unexpected message: %q", msg)
	}
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{}, f.err
}

func TestSQSSender_Enqueues(t *testing.T) {
	fake := &fakeSQS{}
	s := &SQSSender{client: fake, queueURL: "https://sqs.local/mail", from: "noreply@example.com"}

	if err := s.SendEmail(context.Background(), "pat@example.com", "Subject", "<p>x</p>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.inputs) != 1 || *fake.inputs[0].QueueUrl != "https://sqs.local/mail" {
		t.Fatalf("unexpected inputs: %+v", fake.inputs)
	}

	var got QueuedEmail
	if err := json.Unmarshal([]byte(*fake.inputs[0].MessageBody), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.To != "pat@example.com" || got.From != "Mindful Assessment Platform <noreply@example.com>" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestSQSSender_Error(t *testing.T) {
	s := &SQSSender{client: &fakeSQS{err: errors.New("throttled")}, queueURL: "q"}
	if err := s.SendEmail(context.Background(), "a@example.com", "s", "b"); err == nil {
		t.Error("expected error")
	}
}
