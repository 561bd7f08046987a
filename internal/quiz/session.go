package quiz

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/mail"
	"sync"
	"time"

	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// sendTimeout bounds a background delivery to the quiz creator.
const sendTimeout = 30 * time.Second

// Mailer delivers a results report.
type Mailer interface {
	Send(ctx context.Context, r Report, recipient, subject string) error
}

// State is the position of a Session in its flow.
type State int

const (
	StateQuestion State = iota
	StateFeedback
	StateResults
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateQuestion:
		return "question"
	case StateFeedback:
		return "feedback"
	case StateResults:
		return "results"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// Subject is the mail subject used for a report.
func Subject(r Report) string {
	return "Quiz results: " + r.QuizTitle
}

// Session walks one quiz from its first question to finished.
type Session struct {
	log    *logger.Logger
	quiz   domain.Quiz
	owner  string
	mailer Mailer
	rng    *rand.Rand

	state       State
	index       int
	layout      Layout
	answers     map[string]Answer
	lastCorrect bool
	report      Report
	emailed     string

	wg sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithMailer sets the collaborator used for emailUser and emailCreator.
func WithMailer(m Mailer) Option {
	return func(s *Session) { s.mailer = m }
}

// WithRand fixes the shuffling source.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// WithLogger sets the session logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Start validates qz and enters its first question. ownerID is the
// element that launched the quiz.
func Start(qz domain.Quiz, ownerID string, opts ...Option) (*Session, error) {
	if !qz.Enabled || len(qz.Questions) == 0 {
		return nil, domain.Invalid("quiz.Start", "quiz is disabled or empty")
	}
	if err := qz.Validate(); err != nil {
		return nil, fmt.Errorf("quiz.Start: %w", err)
	}
	s := &Session{quiz: qz, owner: ownerID, answers: map[string]Answer{}}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("component", "quiz", "element", ownerID)
	s.show(0)
	return s, nil
}

func (s *Session) show(i int) {
	s.index = i
	s.state = StateQuestion
	q := s.quiz.Questions[i]
	var prev *Answer
	if a, ok := s.answers[q.ID]; ok {
		prev = &a
	}
	s.layout = NewLayout(q, prev, s.rng)
}

// Quiz returns the descriptor being run.
func (s *Session) Quiz() domain.Quiz { return s.quiz }

// Owner returns the id of the element that launched the quiz.
func (s *Session) Owner() string { return s.owner }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Index returns the current question index.
func (s *Session) Index() int { return s.index }

// Len returns the number of questions.
func (s *Session) Len() int { return len(s.quiz.Questions) }

// Layout returns the current question's arrangement for the answer widget
// to edit.
func (s *Session) Layout() *Layout { return &s.layout }

// LastCorrect reports the verdict shown in StateFeedback.
func (s *Session) LastCorrect() bool { return s.lastCorrect }

// Report returns the results once the last question has been answered.
func (s *Session) Report() Report { return s.report }

// Timing returns the quiz's feedback policy.
func (s *Session) Timing() domain.FeedbackTiming { return s.quiz.Timing() }

// CollectEmail reports whether the results view should offer the email
// form.
func (s *Session) CollectEmail() bool {
	return s.state == StateResults && s.Timing() == domain.FeedbackEmailUser && s.emailed == ""
}

// Emailed returns the address results were sent to from the form.
func (s *Session) Emailed() string { return s.emailed }

// Submit records the current layout's answer and moves on. With per
// question feedback the verdict is shown first.
func (s *Session) Submit(ctx context.Context) State {
	if s.state != StateQuestion {
		return s.state
	}
	q := s.quiz.Questions[s.index]
	a := s.layout.Answer.clone()
	s.answers[q.ID] = a
	if s.Timing() == domain.FeedbackEach {
		s.lastCorrect = Score(q, &a)
		s.state = StateFeedback
		return s.state
	}
	return s.advance(ctx)
}

// Continue leaves the feedback or results view.
func (s *Session) Continue(ctx context.Context) State {
	switch s.state {
	case StateFeedback:
		return s.advance(ctx)
	case StateResults:
		s.state = StateFinished
	}
	return s.state
}

// Prev returns to the previous question, keeping any draft of the
// current one.
func (s *Session) Prev() bool {
	if s.state != StateQuestion || s.index == 0 {
		return false
	}
	q := s.quiz.Questions[s.index]
	if !s.layout.Answer.Empty(q.Type()) {
		s.answers[q.ID] = s.layout.Answer.clone()
	}
	s.show(s.index - 1)
	return true
}

func (s *Session) advance(ctx context.Context) State {
	if s.index+1 < len(s.quiz.Questions) {
		s.show(s.index + 1)
		return s.state
	}
	s.finish(ctx)
	return s.state
}

func (s *Session) finish(ctx context.Context) {
	s.report = BuildReport(s.quiz, s.answers)
	s.log.Info("quiz finished", "score", s.report.Summary(), "feedback", string(s.Timing()))
	switch s.Timing() {
	case domain.FeedbackEnd, domain.FeedbackEmailUser:
		s.state = StateResults
	case domain.FeedbackEmailCreator:
		s.state = StateFinished
		s.sendAsync(ctx, s.quiz.CreatorEmail)
	default:
		s.state = StateFinished
	}
}

// sendAsync delivers the report without blocking playback. Failures are
// only logged.
func (s *Session) sendAsync(ctx context.Context, recipient string) {
	if s.mailer == nil {
		s.log.Warn("no mailer configured, report not sent", "recipient", recipient)
		return
	}
	report := s.report
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, report, recipient, Subject(report)); err != nil {
			s.log.Error("quiz report delivery failed", "recipient", recipient, "error", err)
			return
		}
		s.log.Info("quiz report sent", "recipient", recipient)
	}()
}

// SubmitEmail sends the results to a user-supplied address. The session
// stays on the results view until Continue.
func (s *Session) SubmitEmail(ctx context.Context, address string) error {
	if s.state != StateResults {
		return domain.Invalid("quiz.SubmitEmail", "quiz is not showing results")
	}
	addr, err := mail.ParseAddress(address)
	if err != nil {
		return domain.Invalid("quiz.SubmitEmail", "invalid email address %q", address)
	}
	if s.mailer == nil {
		return fmt.Errorf("quiz.SubmitEmail: no mailer configured")
	}
	if err := s.mailer.Send(ctx, s.report, addr.Address, Subject(s.report)); err != nil {
		s.log.Error("quiz report delivery failed", "recipient", addr.Address, "error", err)
		return fmt.Errorf("quiz.SubmitEmail: %w", err)
	}
	s.emailed = addr.Address
	return nil
}

// Wait blocks until background deliveries have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}
