package quiz

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

var mcQuestion = domain.Question{ID: "mc", Prompt: "Which?", Key: domain.MultipleChoice{Options: []domain.Option{
	{ID: "a", Text: "X"},
	{ID: "b", Text: "Y", IsCorrect: true},
}}}

var fillQuestion = domain.Question{ID: "fill", Prompt: "Language?", Key: domain.FillBlank{CorrectAnswer: "Go"}}

var matchQuestion = domain.Question{ID: "match", Prompt: "Sounds", Key: domain.Matching{Pairs: []domain.Pair{
	{ID: "p1", Prompt: "Cat", Answer: "Meow"},
	{ID: "p2", Prompt: "Dog", Answer: "Woof"},
}}}

var orderQuestion = domain.Question{ID: "order", Prompt: "Sort", Key: domain.Ordering{Items: []string{"A", "B", "C"}}}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		q    domain.Question
		a    *Answer
		want bool
	}{
		{"mc correct", mcQuestion, &Answer{Choice: "b"}, true},
		{"mc wrong", mcQuestion, &Answer{Choice: "a"}, false},
		{"mc unknown option", mcQuestion, &Answer{Choice: "z"}, false},
		{"mc no answer", mcQuestion, nil, false},
		{"mc empty answer", mcQuestion, &Answer{}, false},
		{"fill case folded", fillQuestion, &Answer{Text: " go "}, true},
		{"fill wrong", fillQuestion, &Answer{Text: "rust"}, false},
		{"fill case sensitive", domain.Question{ID: "cs", Key: domain.FillBlank{CorrectAnswer: "Go", CaseSensitive: true}}, &Answer{Text: "go"}, false},
		{"match all", matchQuestion, &Answer{Matches: map[string]string{"p1": "p1", "p2": "p2"}}, true},
		{"match swapped", matchQuestion, &Answer{Matches: map[string]string{"p1": "p2", "p2": "p1"}}, false},
		{"match partial", matchQuestion, &Answer{Matches: map[string]string{"p1": "p1"}}, false},
		{"order exact", orderQuestion, &Answer{Order: []string{"A", "B", "C"}}, true},
		{"order swapped", orderQuestion, &Answer{Order: []string{"A", "C", "B"}}, false},
		{"order short", orderQuestion, &Answer{Order: []string{"A", "B"}}, false},
		{"order long", orderQuestion, &Answer{Order: []string{"A", "B", "C", "D"}}, false},
		{"missing key", domain.Question{ID: "x"}, &Answer{Choice: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.q, tt.a); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatAnswer(t *testing.T) {
	tests := []struct {
		name string
		q    domain.Question
		a    *Answer
		want string
	}{
		{"mc", mcQuestion, &Answer{Choice: "a"}, "X"},
		{"missing", mcQuestion, nil, NoAnswer},
		{"fill", fillQuestion, &Answer{Text: " Go "}, "Go"},
		{"match", matchQuestion, &Answer{Matches: map[string]string{"p1": "p2"}}, "Cat → Woof; Dog → ?"},
		{"order", orderQuestion, &Answer{Order: []string{"C", "A", "B"}}, "C, A, B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAnswer(tt.q, tt.a); got != tt.want {
				t.Errorf("FormatAnswer() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := FormatCorrect(matchQuestion); got != "Cat → Meow; Dog → Woof" {
		t.Errorf("FormatCorrect(match) = %q", got)
	}
	if got := FormatCorrect(mcQuestion); got != "Y" {
		t.Errorf("FormatCorrect(mc) = %q", got)
	}
}

func TestBuildReport(t *testing.T) {
	qz := domain.Quiz{Title: "Basics", Questions: []domain.Question{mcQuestion, fillQuestion, orderQuestion}}
	r := BuildReport(qz, map[string]Answer{
		"mc":   {Choice: "b"},
		"fill": {Text: "go"},
	})
	if r.QuizTitle != "Basics" || r.Correct != 2 || r.Total != 3 || r.Percentage != 67 {
		t.Errorf("report = %+v", r)
	}
	if r.Questions[2].Correct || r.Questions[2].UserAnswer != NoAnswer || r.Questions[2].CorrectAnswer != "A, B, C" {
		t.Errorf("unanswered row = %+v", r.Questions[2])
	}
	if r.Summary() != "2/3 (67%)" {
		t.Errorf("Summary() = %q", r.Summary())
	}
	if got := BuildReport(domain.Quiz{}, nil); got.Percentage != 0 || got.QuizTitle != "Quiz" {
		t.Errorf("empty report = %+v", got)
	}
}

func TestLayoutShufflesAndRestores(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	l := NewLayout(orderQuestion, nil, rng)
	if len(l.Items) != 3 || !slices.Equal(l.Answer.Order, l.Items) {
		t.Fatalf("ordering layout = %+v", l)
	}
	sorted := slices.Clone(l.Items)
	slices.Sort(sorted)
	if !slices.Equal(sorted, []string{"A", "B", "C"}) {
		t.Errorf("items lost or duplicated: %v", l.Items)
	}

	prev := &Answer{Order: []string{"C", "B", "A"}}
	l = NewLayout(orderQuestion, prev, rng)
	if !slices.Equal(l.Items, prev.Order) {
		t.Errorf("previous order not restored: %v", l.Items)
	}
	l.Items[0] = "mutated"
	if prev.Order[0] != "C" {
		t.Error("layout aliases the recorded answer")
	}

	l = NewLayout(mcQuestion, &Answer{Choice: "b"}, rng)
	if len(l.Options) != 2 || l.Answer.Choice != "b" {
		t.Errorf("mc layout = %+v", l)
	}
}

func TestLayoutEditing(t *testing.T) {
	l := NewLayout(matchQuestion, nil, nil)
	l.Match("p1", "p1")
	l.Match("p2", "p1")
	if _, ok := l.Answer.Matches["p1"]; ok || l.Answer.Matches["p2"] != "p1" {
		t.Errorf("answer reused across prompts: %v", l.Answer.Matches)
	}
	l.Unmatch("p2")
	if len(l.Answer.Matches) != 0 {
		t.Error("Unmatch left a pairing")
	}

	o := NewLayout(orderQuestion, &Answer{Order: []string{"A", "B", "C"}}, nil)
	if !o.Move(2, 0) || strings.Join(o.Answer.Order, "") != "CAB" {
		t.Errorf("Move = %v", o.Answer.Order)
	}
	if o.Move(0, 5) || o.Move(1, 1) {
		t.Error("invalid Move accepted")
	}
}
