// Package mail delivers quiz result reports by email.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/naveenspark/stepdeck/internal/platform/logger"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Config configures the SendGrid client.
type Config struct {
	APIKey     string
	BaseURL    string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	MaxRetries int
}

// Address is an email address with an optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Message is one outgoing email.
type Message struct {
	From    Address
	To      []Address
	Bcc     []Address
	Subject string
	Text    string
	HTML    string
}

// SendGrid posts messages to the v3 mail send endpoint.
type SendGrid struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewSendGrid validates cfg and fills in defaults.
func NewSendGrid(cfg Config, log *logger.Logger) (*SendGrid, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("mail.NewSendGrid: missing API key")
	}
	if log == nil {
		log = logger.Nop()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &SendGrid{
		log:        log.With("component", "mail.sendgrid"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		backoff:    time.Second,
		maxBackoff: 10 * time.Second,
	}, nil
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             Address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To  []Address `json:"to"`
	Bcc []Address `json:"bcc,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// HTTPError is a non-2xx response from SendGrid.
type HTTPError struct {
	StatusCode int
	Message    string
	retryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, e.Message)
}

// Send delivers msg, retrying rate limits and server errors with
// exponential backoff.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if msg.From.Email == "" {
		msg.From = Address{Email: s.cfg.FromEmail, Name: s.cfg.FromName}
	}
	switch {
	case msg.From.Email == "":
		return fmt.Errorf("mail.Send: from address required")
	case len(msg.To) == 0:
		return fmt.Errorf("mail.Send: recipient required")
	case strings.TrimSpace(msg.Subject) == "":
		return fmt.Errorf("mail.Send: subject required")
	}
	wire := mailSendRequest{
		Personalizations: []personalization{{To: msg.To, Bcc: msg.Bcc}},
		From:             msg.From,
		Subject:          strings.TrimSpace(msg.Subject),
	}
	if t := strings.TrimSpace(msg.Text); t != "" {
		wire.Content = append(wire.Content, mailContent{Type: "text/plain", Value: t})
	}
	if h := strings.TrimSpace(msg.HTML); h != "" {
		wire.Content = append(wire.Content, mailContent{Type: "text/html", Value: h})
	}
	if len(wire.Content) == 0 {
		return fmt.Errorf("mail.Send: body required")
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("mail.Send: %w", err)
	}

	backoff := s.backoff
	for attempt := 0; ; attempt++ {
		err := s.post(ctx, body)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt >= s.cfg.MaxRetries {
			return fmt.Errorf("mail.Send: %w", err)
		}
		wait := backoff
		var he *HTTPError
		if errors.As(err, &he) && he.retryAfter > 0 {
			wait = he.retryAfter
		}
		wait = min(wait, s.maxBackoff)
		wait += rand.N(wait/4 + 1)
		s.log.Warn("mail send retrying", "attempt", attempt+1, "sleep", wait.String(), "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("mail.Send: %w", ctx.Err())
		case <-time.After(wait):
		}
		backoff *= 2
	}
}

func (s *SendGrid) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	he := &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && len(er.Errors) > 0 && er.Errors[0].Message != "" {
		he.Message = er.Errors[0].Message
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		he.retryAfter = time.Duration(secs) * time.Second
	}
	return he
}

func retryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
