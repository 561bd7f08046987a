package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/naveenspark/stepdeck/internal/quiz"
)

func testSendGrid(t *testing.T, url string, retries int) *SendGrid {
	t.Helper()
	sg, err := NewSendGrid(Config{APIKey: "SG.key", BaseURL: url, FromEmail: "noreply@example.com", MaxRetries: retries}, nil)
	if err != nil {
		t.Fatalf("NewSendGrid: %v", err)
	}
	sg.backoff = time.Millisecond
	sg.maxBackoff = 5 * time.Millisecond
	return sg
}

func sampleReport() quiz.Report {
	return quiz.Report{
		QuizTitle:  "Safety <basics>",
		Correct:    1,
		Total:      2,
		Percentage: 50,
		Questions: []quiz.QuestionResult{
			{Prompt: "Exit?", UserAnswer: "Door", CorrectAnswer: "Door", Correct: true},
			{Prompt: "Alarm?", UserAnswer: quiz.NoAnswer, CorrectAnswer: "Red", Correct: false},
		},
	}
}

func TestNewSendGrid_RequiresKey(t *testing.T) {
	if _, err := NewSendGrid(Config{}, nil); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestSend(t *testing.T) {
	var got mailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" || r.Header.Get("Authorization") != "Bearer SG.key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg := testSendGrid(t, srv.URL, 0)
	err := sg.Send(context.Background(), Message{
		To:      []Address{{Email: "learner@example.com"}},
		Subject: "Quiz results: Safety",
		Text:    "1/2",
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got.From.Email != "noreply@example.com" {
		t.Errorf("From = %+v, want default sender", got.From)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "learner@example.com" {
		t.Errorf("Personalizations = %+v", got.Personalizations)
	}
	if len(got.Content) != 1 || got.Content[0].Type != "text/plain" {
		t.Errorf("Content = %+v", got.Content)
	}
}

func TestSend_Validation(t *testing.T) {
	sg := testSendGrid(t, "http://unused.invalid", 0)
	tests := []struct {
		name string
		msg  Message
	}{
		{"no recipient", Message{Subject: "s", Text: "t"}},
		{"no subject", Message{To: []Address{{Email: "a@example.com"}}, Text: "t"}},
		{"no body", Message{To: []Address{{Email: "a@example.com"}}, Subject: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sg.Send(context.Background(), tt.msg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSend_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusAccepted)
		}
	}))
	defer srv.Close()

	sg := testSendGrid(t, srv.URL, 3)
	msg := Message{To: []Address{{Email: "a@example.com"}}, Subject: "s", Text: "t"}
	if err := sg.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestSend_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"invalid email"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	sg := testSendGrid(t, srv.URL, 3)
	err := sg.Send(context.Background(), Message{To: []Address{{Email: "bad"}}, Subject: "s", Text: "t"})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		t.Fatalf("err = %v, want HTTP 400", err)
	}
	if !strings.Contains(err.Error(), "invalid email") {
		t.Errorf("error = %q, want server message", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestSend_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sg := testSendGrid(t, srv.URL, 2)
	if err := sg.Send(context.Background(), Message{To: []Address{{Email: "a@example.com"}}, Subject: "s", Text: "t"}); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

type captureSender struct {
	msgs []Message
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestReportMailer(t *testing.T) {
	var cs captureSender
	m := NewReportMailer(&cs, "Owner@example.com")
	if err := m.Send(context.Background(), sampleReport(), "owner@example.com", "Quiz results: Safety"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(cs.msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(cs.msgs))
	}
	msg := cs.msgs[0]
	if msg.To[0].Email != "owner@example.com" || msg.Subject != "Quiz results: Safety" {
		t.Errorf("message = %+v", msg)
	}
	if !strings.Contains(msg.Text, "Score: 1/2 (50%)") || !strings.Contains(msg.Text, "Your answer: "+quiz.NoAnswer) {
		t.Errorf("Text = %q", msg.Text)
	}
	if !strings.Contains(msg.HTML, "Safety &lt;basics&gt;") {
		t.Errorf("HTML does not escape the title: %q", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "<td>2</td><td>Alarm?</td>") {
		t.Errorf("HTML rows not numbered: %q", msg.HTML)
	}
	if len(msg.Bcc) != 0 {
		t.Errorf("owner copied on their own report: %+v", msg.Bcc)
	}

	if err := m.Send(context.Background(), sampleReport(), "learner@example.com", "Quiz results: Safety"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if bcc := cs.msgs[1].Bcc; len(bcc) != 1 || bcc[0].Email != "Owner@example.com" {
		t.Errorf("Bcc = %+v", bcc)
	}
}

func TestLogMailer(t *testing.T) {
	if err := NewLogMailer(nil).Send(context.Background(), sampleReport(), "a@example.com", "s"); err != nil {
		t.Errorf("Send() error: %v", err)
	}
}
