package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FeedbackTiming says when quiz results are shown or delivered.
type FeedbackTiming string

const (
	FeedbackNone         FeedbackTiming = "none"
	FeedbackEach         FeedbackTiming = "each"
	FeedbackEnd          FeedbackTiming = "end"
	FeedbackEmailCreator FeedbackTiming = "emailCreator"
	FeedbackEmailUser    FeedbackTiming = "emailUser"
)

// ValidFeedbackTimings lists the accepted feedback policies.
var ValidFeedbackTimings = []FeedbackTiming{
	FeedbackNone, FeedbackEach, FeedbackEnd, FeedbackEmailCreator, FeedbackEmailUser,
}

// ValidFeedbackTiming reports whether f is a known policy.
func ValidFeedbackTiming(f FeedbackTiming) bool {
	for _, v := range ValidFeedbackTimings {
		if v == f {
			return true
		}
	}
	return false
}

// Quiz is embedded in an element's interactions.
type Quiz struct {
	Enabled      bool           `json:"enabled,omitempty"`
	Title        string         `json:"title,omitempty"`
	Feedback     FeedbackTiming `json:"feedback,omitempty"`
	CreatorEmail string         `json:"creatorEmail,omitempty"`
	Questions    []Question     `json:"questions,omitempty"`
}

// QuestionType discriminates the answer key of a question.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multipleChoice"
	QuestionFillBlank      QuestionType = "fillBlank"
	QuestionMatching       QuestionType = "matching"
	QuestionOrdering       QuestionType = "ordering"
)

// AnswerKey is the type-specific part of a question.
type AnswerKey interface {
	Type() QuestionType
}

// Option is one choice of a multiple-choice question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Pair is one prompt/answer row of a matching question.
type Pair struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// MultipleChoice is answered by selecting one option.
type MultipleChoice struct {
	Options []Option
}

// FillBlank is answered with free text.
type FillBlank struct {
	CorrectAnswer string
	CaseSensitive bool
}

// Matching is answered by pairing every prompt with an answer.
type Matching struct {
	Pairs []Pair
}

// Ordering is answered by arranging Items in order.
type Ordering struct {
	Items []string
}

func (MultipleChoice) Type() QuestionType { return QuestionMultipleChoice }
func (FillBlank) Type() QuestionType      { return QuestionFillBlank }
func (Matching) Type() QuestionType       { return QuestionMatching }
func (Ordering) Type() QuestionType       { return QuestionOrdering }

// Question is one quiz item.
type Question struct {
	ID     string
	Prompt string
	Key    AnswerKey
}

// Type returns the question's variant, or "" when the key is missing.
func (q Question) Type() QuestionType {
	if q.Key == nil {
		return ""
	}
	return q.Key.Type()
}

type questionWire struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	CaseSensitive bool         `json:"caseSensitive,omitempty"`
	Pairs         []Pair       `json:"pairs,omitempty"`
	Items         []string     `json:"items,omitempty"`
}

// MarshalJSON writes the question flat with a "type" discriminator.
func (q Question) MarshalJSON() ([]byte, error) {
	w := questionWire{ID: q.ID, Prompt: q.Prompt}
	switch k := q.Key.(type) {
	case MultipleChoice:
		w.Type, w.Options = QuestionMultipleChoice, k.Options
	case FillBlank:
		w.Type, w.CorrectAnswer, w.CaseSensitive = QuestionFillBlank, k.CorrectAnswer, k.CaseSensitive
	case Matching:
		w.Type, w.Pairs = QuestionMatching, k.Pairs
	case Ordering:
		w.Type, w.Items = QuestionOrdering, k.Items
	default:
		return nil, fmt.Errorf("question %s: unsupported answer key %T", q.ID, q.Key)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Question{ID: w.ID, Prompt: w.Prompt}
	switch w.Type {
	case QuestionMultipleChoice:
		out.Key = MultipleChoice{Options: w.Options}
	case QuestionFillBlank:
		out.Key = FillBlank{CorrectAnswer: w.CorrectAnswer, CaseSensitive: w.CaseSensitive}
	case QuestionMatching:
		out.Key = Matching{Pairs: w.Pairs}
	case QuestionOrdering:
		out.Key = Ordering{Items: w.Items}
	default:
		return fmt.Errorf("question %s: unknown type %q", w.ID, w.Type)
	}
	*q = out
	return nil
}

// Validate checks that the question has everything needed to be answered
// and scored.
func (q Question) Validate() error {
	const op = "domain.Question.Validate"
	if q.ID == "" {
		return Invalid(op, "question id is required")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return Invalid(op, "question %s: prompt is required", q.ID)
	}
	switch k := q.Key.(type) {
	case MultipleChoice:
		if len(k.Options) < 2 {
			return Invalid(op, "question %s: needs at least 2 options", q.ID)
		}
		correct := 0
		for _, o := range k.Options {
			if o.ID == "" {
				return Invalid(op, "question %s: option id is required", q.ID)
			}
			if o.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return Invalid(op, "question %s: needs a correct option", q.ID)
		}
	case FillBlank:
		if strings.TrimSpace(k.CorrectAnswer) == "" {
			return Invalid(op, "question %s: correct answer is required", q.ID)
		}
	case Matching:
		if len(k.Pairs) < 2 {
			return Invalid(op, "question %s: needs at least 2 pairs", q.ID)
		}
		for _, p := range k.Pairs {
			if p.ID == "" {
				return Invalid(op, "question %s: pair id is required", q.ID)
			}
		}
	case Ordering:
		if len(k.Items) < 2 {
			return Invalid(op, "question %s: needs at least 2 items", q.ID)
		}
	default:
		return Invalid(op, "question %s: unknown type", q.ID)
	}
	return nil
}

// Validate checks an enabled quiz. A disabled quiz is always valid.
func (qz Quiz) Validate() error {
	const op = "domain.Quiz.Validate"
	if !qz.Enabled {
		return nil
	}
	if len(qz.Questions) == 0 {
		return Invalid(op, "quiz has no questions")
	}
	if qz.Feedback != "" && !ValidFeedbackTiming(qz.Feedback) {
		return Invalid(op, "unknown feedback timing %q", qz.Feedback)
	}
	if qz.Feedback == FeedbackEmailCreator && !strings.Contains(qz.CreatorEmail, "@") {
		return Invalid(op, "creator email is required for emailCreator feedback")
	}
	seen := make(map[string]bool, len(qz.Questions))
	for _, q := range qz.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if seen[q.ID] {
			return Invalid(op, "duplicate question id %s", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

// Timing returns the feedback policy, defaulting to none.
func (qz Quiz) Timing() FeedbackTiming {
	if qz.Feedback == "" {
		return FeedbackNone
	}
	return qz.Feedback
}
