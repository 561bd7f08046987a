package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/internal/quiz"
)

// Sender delivers a prepared message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var reportHTML = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<h2>{{.QuizTitle}}</h2>
<p>Score: <strong>{{.Correct}}/{{.Total}} ({{.Percentage}}%)</strong></p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>#</th><th>Question</th><th>Your answer</th><th>Correct answer</th><th></th></tr>
{{range $i, $q := .Questions}}<tr><td>{{inc $i}}</td><td>{{$q.Prompt}}</td><td>{{$q.UserAnswer}}</td><td>{{$q.CorrectAnswer}}</td><td>{{if $q.Correct}}&#10003;{{else}}&#10007;{{end}}</td></tr>
{{end}}</table>`))

// ReportMailer adapts a Sender to the quiz results contract.
type ReportMailer struct {
	sender Sender
	owner  string
}

var _ quiz.Mailer = (*ReportMailer)(nil)

// NewReportMailer wraps sender. A non-empty owner is blind copied on
// every report sent to someone else.
func NewReportMailer(sender Sender, owner string) *ReportMailer {
	return &ReportMailer{sender: sender, owner: strings.TrimSpace(owner)}
}

// Send renders r and delivers it to recipient.
func (m *ReportMailer) Send(ctx context.Context, r quiz.Report, recipient, subject string) error {
	html, err := RenderHTML(r)
	if err != nil {
		return fmt.Errorf("mail.ReportMailer: %w", err)
	}
	msg := Message{
		To:      []Address{{Email: recipient}},
		Subject: subject,
		Text:    RenderText(r),
		HTML:    html,
	}
	if m.owner != "" && !strings.EqualFold(m.owner, recipient) {
		msg.Bcc = []Address{{Email: m.owner}}
	}
	return m.sender.Send(ctx, msg)
}

// RenderText formats a report as plain text.
func RenderText(r quiz.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nScore: %s\n\n", r.QuizTitle, r.Summary())
	for i, q := range r.Questions {
		mark := "✗"
		if q.Correct {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%d. %s %s\n   Your answer: %s\n   Correct answer: %s\n", i+1, mark, q.Prompt, q.UserAnswer, q.CorrectAnswer)
	}
	return b.String()
}

// RenderHTML formats a report as an HTML table with user text escaped.
func RenderHTML(r quiz.Report) (string, error) {
	var buf bytes.Buffer
	if err := reportHTML.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LogMailer records reports in the log instead of sending them. It is
// used when no mail provider is configured.
type LogMailer struct {
	log *logger.Logger
}

var _ quiz.Mailer = (*LogMailer)(nil)

// NewLogMailer returns a mailer writing to log.
func NewLogMailer(log *logger.Logger) *LogMailer {
	if log == nil {
		log = logger.Nop()
	}
	return &LogMailer{log: log.With("component", "mail.log")}
}

// Send logs the report summary.
func (m *LogMailer) Send(_ context.Context, r quiz.Report, recipient, subject string) error {
	m.log.Info("quiz report not emailed, no mail provider configured",
		"recipient", recipient,
		"subject", subject,
		"score", r.Summary(),
	)
	return nil
}
