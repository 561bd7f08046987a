package quiz

import (
	"math/rand/v2"
	"slices"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// Layout is the on-screen arrangement of one question. Options, Answers
// and Items are shuffled each time the question is shown; Answer holds
// the previously recorded response, if any.
type Layout struct {
	Question domain.Question
	Options  []domain.Option // multiple choice
	Prompts  []domain.Pair   // matching, left column in authored order
	Answers  []domain.Pair   // matching, right column shuffled
	Items    []string        // ordering, current arrangement
	Answer   Answer
}

// NewLayout arranges q, restoring prev into the fresh arrangement. An
// ordering question with a previous answer keeps that order.
func NewLayout(q domain.Question, prev *Answer, rng *rand.Rand) Layout {
	l := Layout{Question: q}
	if prev != nil {
		l.Answer = prev.clone()
	}
	switch k := q.Key.(type) {
	case domain.MultipleChoice:
		l.Options = slices.Clone(k.Options)
		shuffle(rng, l.Options)
	case domain.Matching:
		l.Prompts = slices.Clone(k.Pairs)
		l.Answers = slices.Clone(k.Pairs)
		shuffle(rng, l.Answers)
		if l.Answer.Matches == nil {
			l.Answer.Matches = map[string]string{}
		}
	case domain.Ordering:
		if prev != nil && len(prev.Order) == len(k.Items) {
			l.Items = slices.Clone(prev.Order)
		} else {
			l.Items = slices.Clone(k.Items)
			shuffle(rng, l.Items)
		}
		l.Answer.Order = slices.Clone(l.Items)
	}
	return l
}

// Select picks a multiple-choice option.
func (l *Layout) Select(optionID string) {
	l.Answer.Choice = optionID
}

// SetText records a fill-blank response.
func (l *Layout) SetText(s string) {
	l.Answer.Text = s
}

// Match pairs a prompt with an answer. Any other prompt already holding
// that answer loses it.
func (l *Layout) Match(promptID, answerID string) {
	if l.Answer.Matches == nil {
		l.Answer.Matches = map[string]string{}
	}
	for p, a := range l.Answer.Matches {
		if a == answerID {
			delete(l.Answer.Matches, p)
		}
	}
	l.Answer.Matches[promptID] = answerID
}

// Unmatch clears a prompt's pairing.
func (l *Layout) Unmatch(promptID string) {
	delete(l.Answer.Matches, promptID)
}

// Move drags the ordering item at from to position to.
func (l *Layout) Move(from, to int) bool {
	if from < 0 || from >= len(l.Items) || to < 0 || to >= len(l.Items) || from == to {
		return false
	}
	item := l.Items[from]
	l.Items = slices.Delete(l.Items, from, from+1)
	l.Items = slices.Insert(l.Items, to, item)
	l.Answer.Order = slices.Clone(l.Items)
	return true
}

func shuffle[T any](rng *rand.Rand, s []T) {
	if rng == nil {
		rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		return
	}
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
