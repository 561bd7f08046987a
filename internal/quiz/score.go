// Package quiz runs the question-by-question flow of an element's quiz,
// scores answers and builds the results report.
package quiz

import (
	"fmt"
	"slices"
	"strings"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// NoAnswer is shown in reports for questions left unanswered.
const NoAnswer = "(no answer)"

// Answer is a recorded response. Only the field matching the question
// type is read.
type Answer struct {
	Choice  string            `json:"choice,omitempty"`
	Text    string            `json:"text,omitempty"`
	Matches map[string]string `json:"matches,omitempty"` // prompt pair id -> answer pair id
	Order   []string          `json:"order,omitempty"`
}

// Empty reports whether a holds nothing for a question of type t.
func (a Answer) Empty(t domain.QuestionType) bool {
	switch t {
	case domain.QuestionMultipleChoice:
		return a.Choice == ""
	case domain.QuestionFillBlank:
		return strings.TrimSpace(a.Text) == ""
	case domain.QuestionMatching:
		return len(a.Matches) == 0
	case domain.QuestionOrdering:
		return len(a.Order) == 0
	}
	return true
}

func (a Answer) clone() Answer {
	out := a
	if a.Matches != nil {
		out.Matches = make(map[string]string, len(a.Matches))
		for k, v := range a.Matches {
			out.Matches[k] = v
		}
	}
	out.Order = slices.Clone(a.Order)
	return out
}

// Score reports whether a answers q correctly. A nil or empty answer is
// incorrect.
func Score(q domain.Question, a *Answer) bool {
	if a == nil || a.Empty(q.Type()) {
		return false
	}
	switch k := q.Key.(type) {
	case domain.MultipleChoice:
		for _, o := range k.Options {
			if o.ID == a.Choice {
				return o.IsCorrect
			}
		}
		return false
	case domain.FillBlank:
		got, want := strings.TrimSpace(a.Text), strings.TrimSpace(k.CorrectAnswer)
		if k.CaseSensitive {
			return got == want
		}
		return strings.EqualFold(got, want)
	case domain.Matching:
		if len(a.Matches) != len(k.Pairs) {
			return false
		}
		for _, p := range k.Pairs {
			if a.Matches[p.ID] != p.ID {
				return false
			}
		}
		return true
	case domain.Ordering:
		return slices.Equal(a.Order, k.Items)
	}
	return false
}

// FormatAnswer renders a user's answer for the results report.
func FormatAnswer(q domain.Question, a *Answer) string {
	if a == nil || a.Empty(q.Type()) {
		return NoAnswer
	}
	switch k := q.Key.(type) {
	case domain.MultipleChoice:
		for _, o := range k.Options {
			if o.ID == a.Choice {
				return o.Text
			}
		}
		return a.Choice
	case domain.FillBlank:
		return strings.TrimSpace(a.Text)
	case domain.Matching:
		parts := make([]string, 0, len(k.Pairs))
		for _, p := range k.Pairs {
			got, ok := a.Matches[p.ID]
			if !ok {
				parts = append(parts, fmt.Sprintf("%s → ?", p.Prompt))
				continue
			}
			parts = append(parts, fmt.Sprintf("%s → %s", p.Prompt, pairAnswer(k.Pairs, got)))
		}
		return strings.Join(parts, "; ")
	case domain.Ordering:
		return strings.Join(a.Order, ", ")
	}
	return NoAnswer
}

// FormatCorrect renders the expected answer of q.
func FormatCorrect(q domain.Question) string {
	switch k := q.Key.(type) {
	case domain.MultipleChoice:
		var texts []string
		for _, o := range k.Options {
			if o.IsCorrect {
				texts = append(texts, o.Text)
			}
		}
		return strings.Join(texts, " / ")
	case domain.FillBlank:
		return k.CorrectAnswer
	case domain.Matching:
		parts := make([]string, len(k.Pairs))
		for i, p := range k.Pairs {
			parts[i] = fmt.Sprintf("%s → %s", p.Prompt, p.Answer)
		}
		return strings.Join(parts, "; ")
	case domain.Ordering:
		return strings.Join(k.Items, ", ")
	}
	return ""
}

func pairAnswer(pairs []domain.Pair, id string) string {
	for _, p := range pairs {
		if p.ID == id {
			return p.Answer
		}
	}
	return id
}

// QuestionResult is one row of a Report.
type QuestionResult struct {
	Prompt        string `json:"prompt"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

// Report summarizes a finished quiz.
type Report struct {
	QuizTitle  string           `json:"quizTitle"`
	Correct    int              `json:"correct"`
	Total      int              `json:"total"`
	Percentage int              `json:"percentage"`
	Questions  []QuestionResult `json:"questions"`
}

// BuildReport scores every question of qz against answers keyed by
// question id.
func BuildReport(qz domain.Quiz, answers map[string]Answer) Report {
	r := Report{QuizTitle: qz.Title, Total: len(qz.Questions)}
	if r.QuizTitle == "" {
		r.QuizTitle = "Quiz"
	}
	r.Questions = make([]QuestionResult, len(qz.Questions))
	for i, q := range qz.Questions {
		var a *Answer
		if got, ok := answers[q.ID]; ok {
			a = &got
		}
		ok := Score(q, a)
		if ok {
			r.Correct++
		}
		r.Questions[i] = QuestionResult{
			Prompt:        q.Prompt,
			UserAnswer:    FormatAnswer(q, a),
			CorrectAnswer: FormatCorrect(q),
			Correct:       ok,
		}
	}
	if r.Total > 0 {
		r.Percentage = (r.Correct*100 + r.Total/2) / r.Total
	}
	return r
}

// Summary is the one-line score, e.g. "2/3 (67%)".
func (r Report) Summary() string {
	return fmt.Sprintf("%d/%d (%d%%)", r.Correct, r.Total, r.Percentage)
}
