// Package notification delivers outbound email. Workflows treat delivery as
// fire-and-forget: a failed send is logged and never retried here.
package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender is implemented by each mail transport.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Template IDs used by the workflows.
const (
	TemplateAssessmentSent    = "assessment-sent"
	TemplateAssessmentResend  = "assessment-resend"
	TemplateAssessmentResults = "assessment-results"
)

type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine renders {{key}} placeholders. Values are HTML-escaped in the
// body.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	for _, t := range builtInTemplates {
		e.RegisterTemplate(t)
	}
	return e
}

const signature = `<p>Thank you,</p>
<p>The Mindful Assessment Platform Team</p>`

var builtInTemplates = []Template{
	{
		ID:      TemplateAssessmentSent,
		Subject: "New Mental Health Assessment from Your Doctor",
		Body: `<p>Hello,</p>
<p>Your doctor has sent you a new mental health assessment (PHQ-9 &amp; GAD-7).</p>
<p>Please log in to your account to complete it at your earliest convenience.</p>
<p><a href="{{app_url}}/dashboard">Click here to go to your dashboard</a></p>
` + signature,
	},
	{
		ID:      TemplateAssessmentResend,
		Subject: "Reminder: Complete Your Mental Health Assessment",
		Body: `<p>Hello,</p>
<p>This is a reminder from your doctor to complete your mental health assessment (PHQ-9 &amp; GAD-7).</p>
<p>Please log in to your account to complete it at your earliest convenience.</p>
<p><a href="{{app_url}}/dashboard">Click here to go to your dashboard</a></p>
` + signature,
	},
	{
		ID:      TemplateAssessmentResults,
		Subject: "Your Mental Health Assessment Results",
		Body: `<p>Hello {{name}},</p>
<p>Here are the results of the assessment you completed on {{date}}.</p>
<ul>
<li>PHQ-9 (depression): {{phq9_score}} ({{phq9_severity}})</li>
<li>GAD-7 (anxiety): {{gad7_score}} ({{gad7_severity}})</li>
</ul>
<p>These results are a screening, not a diagnosis. Please discuss them with your doctor.</p>
<p><a href="{{app_url}}/dashboard">View your assessment history</a></p>
` + signature,
	},
}

func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render fills templateID with data. Unknown placeholders are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, html.EscapeString(v))
	}
	return subject, body, nil
}

// Mailer renders templates and hands them to a transport.
type Mailer struct {
	sender    EmailSender
	templates *TemplateEngine
	appURL    string
	logger    zerolog.Logger
}

func NewMailer(sender EmailSender, appURL string, logger zerolog.Logger) *Mailer {
	return &Mailer{
		sender:    sender,
		templates: NewTemplateEngine(),
		appURL:    strings.TrimRight(appURL, "/"),
		logger:    logger,
	}
}

// Deliver renders and sends a message. Failures are logged and swallowed.
func (m *Mailer) Deliver(ctx context.Context, templateID, to string, data map[string]string) {
	if to == "" {
		m.logger.Warn().Str("template", templateID).Msg("email skipped: no recipient")
		return
	}
	vars := map[string]string{"app_url": m.appURL}
	for k, v := range data {
		vars[k] = v
	}

	subject, body, err := m.templates.Render(templateID, vars)
	if err != nil {
		m.logger.Error().Err(err).Str("template", templateID).Msg("email render failed")
		return
	}
	if err := m.sender.SendEmail(ctx, to, subject, body); err != nil {
		m.logger.Error().Err(err).Str("template", templateID).Msg("email delivery failed")
		return
	}
	m.logger.Info().Str("template", templateID).Msg("email sent")
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) SendEmail(_ context.Context, to, subject, _ string) error {
	s.Logger.Info().Str("to", to).Str("subject", subject).Msg("email transport disabled, message logged")
	return nil
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
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

// Calls returns a copy of recorded calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
