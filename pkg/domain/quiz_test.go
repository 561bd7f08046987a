package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestQuestionJSONRoundTrip(t *testing.T) {
	questions := []Question{
		{ID: "q1", Prompt: "Pick", Key: MultipleChoice{Options: []Option{
			{ID: "a", Text: "X"}, {ID: "b", Text: "Y", IsCorrect: true},
		}}},
		{ID: "q2", Prompt: "Fill", Key: FillBlank{CorrectAnswer: "Go", CaseSensitive: true}},
		{ID: "q3", Prompt: "Match", Key: Matching{Pairs: []Pair{
			{ID: "p1", Prompt: "Cat", Answer: "Meow"}, {ID: "p2", Prompt: "Dog", Answer: "Woof"},
		}}},
		{ID: "q4", Prompt: "Order", Key: Ordering{Items: []string{"A", "B", "C"}}},
	}

	for _, q := range questions {
		t.Run(string(q.Type()), func(t *testing.T) {
			data, err := json.Marshal(q)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got Question
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, q) {
				t.Errorf("round trip = %+v, want %+v", got, q)
			}
		})
	}
}

func TestQuestionUnmarshalUnknownType(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"id":"q","type":"essay","prompt":"?"}`), &q); err == nil {
		t.Error("expected error for unknown question type")
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name  string
		q     Question
		valid bool
	}{
		{"mc ok", Question{ID: "q", Prompt: "p", Key: MultipleChoice{Options: []Option{{ID: "a"}, {ID: "b", IsCorrect: true}}}}, true},
		{"mc one option", Question{ID: "q", Prompt: "p", Key: MultipleChoice{Options: []Option{{ID: "a", IsCorrect: true}}}}, false},
		{"mc no correct", Question{ID: "q", Prompt: "p", Key: MultipleChoice{Options: []Option{{ID: "a"}, {ID: "b"}}}}, false},
		{"fill ok", Question{ID: "q", Prompt: "p", Key: FillBlank{CorrectAnswer: "x"}}, true},
		{"fill blank", Question{ID: "q", Prompt: "p", Key: FillBlank{CorrectAnswer: "  "}}, false},
		{"matching ok", Question{ID: "q", Prompt: "p", Key: Matching{Pairs: []Pair{{ID: "1"}, {ID: "2"}}}}, true},
		{"matching one pair", Question{ID: "q", Prompt: "p", Key: Matching{Pairs: []Pair{{ID: "1"}}}}, false},
		{"ordering ok", Question{ID: "q", Prompt: "p", Key: Ordering{Items: []string{"a", "b"}}}, true},
		{"ordering one item", Question{ID: "q", Prompt: "p", Key: Ordering{Items: []string{"a"}}}, false},
		{"missing prompt", Question{ID: "q", Key: Ordering{Items: []string{"a", "b"}}}, false},
		{"missing key", Question{ID: "q", Prompt: "p"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err == nil) != tt.valid {
				t.Errorf("Validate() = %v, valid want %v", err, tt.valid)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error %v is not ErrValidation", err)
			}
		})
	}
}

func TestQuizValidate(t *testing.T) {
	ok := Question{ID: "q", Prompt: "p", Key: FillBlank{CorrectAnswer: "x"}}

	if err := (Quiz{}).Validate(); err != nil {
		t.Errorf("disabled quiz: %v", err)
	}
	if err := (Quiz{Enabled: true}).Validate(); err == nil {
		t.Error("enabled quiz without questions should fail")
	}
	if err := (Quiz{Enabled: true, Feedback: "sometimes", Questions: []Question{ok}}).Validate(); err == nil {
		t.Error("unknown feedback should fail")
	}
	if err := (Quiz{Enabled: true, Feedback: FeedbackEmailCreator, Questions: []Question{ok}}).Validate(); err == nil {
		t.Error("emailCreator without address should fail")
	}
	if err := (Quiz{Enabled: true, Questions: []Question{ok, ok}}).Validate(); err == nil {
		t.Error("duplicate ids should fail")
	}
	if err := (Quiz{Enabled: true, Feedback: FeedbackEmailCreator, CreatorEmail: "me@example.com", Questions: []Question{ok}}).Validate(); err != nil {
		t.Errorf("valid quiz: %v", err)
	}
}

func TestValidFeedbackTiming(t *testing.T) {
	for _, f := range ValidFeedbackTimings {
		if !ValidFeedbackTiming(f) {
			t.Errorf("ValidFeedbackTiming(%q) = false", f)
		}
	}
	if ValidFeedbackTiming("Each") {
		t.Error("ValidFeedbackTiming should be case-sensitive")
	}
	if got := (Quiz{}).Timing(); got != FeedbackNone {
		t.Errorf("Timing() = %q, want none", got)
	}
}
