package eval

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestRawRecordAliases(t *testing.T) {
	tests := []struct {
		name     string
		rec      RawRecord
		question string
		expected string
		actual   string
	}{
		{
			name:     "snake case",
			rec:      RawRecord{"question": " Q1 ", "expected_answer": "A", "actual_answer": "B"},
			question: "Q1", expected: "A", actual: "B",
		},
		{
			name:     "camel case",
			rec:      RawRecord{"question": "Q1", "expectedAnswer": "A", "actualAnswer": "B"},
			question: "Q1", expected: "A", actual: "B",
		},
		{
			name:     "capitalized",
			rec:      RawRecord{"Question": "Q1", "Answer": "A"},
			question: "Q1", expected: "A", actual: "A",
		},
		{
			name:     "empty alias falls through",
			rec:      RawRecord{"question": "", "Question": "Q2", "expected_answer": "", "answer": "fallback"},
			question: "Q2", expected: "fallback", actual: "fallback",
		},
		{
			name: "missing fields",
			rec:  RawRecord{"other": "x"},
		},
		{
			name: "nil record",
			rec:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Question(); got != tt.question {
				t.Errorf("Question() = %q, want %q", got, tt.question)
			}
			if got := tt.rec.ExpectedAnswer(); got != tt.expected {
				t.Errorf("ExpectedAnswer() = %q, want %q", got, tt.expected)
			}
			if got := tt.rec.ActualAnswer(); got != tt.actual {
				t.Errorf("ActualAnswer() = %q, want %q", got, tt.actual)
			}
		})
	}
}

func TestProcessTestResultsExactPair(t *testing.T) {
	golden := []RawRecord{{"question": "What is the capital of France?", "expected_answer": "Paris"}}
	actual := []RawRecord{{"question": "What is the capital of France?", "actual_answer": "Paris"}}

	got := ProcessTestResults(golden, actual)
	want := []EvaluationRecord{{
		Question:       "What is the capital of France?",
		ExpectedAnswer: "Paris",
		ActualAnswer:   "Paris",
		BLEUScore:      100,
		TokenOverlap:   100,
		ExactMatch:     true,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProcessTestResults mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessTestResultsPartialAnswer(t *testing.T) {
	golden := []RawRecord{{"question": "Q1", "expected_answer": "William Shakespeare"}}
	actual := []RawRecord{{"question": "Q1", "actual_answer": "Shakespeare"}}

	got := ProcessTestResults(golden, actual)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	r := got[0]
	if r.ExactMatch {
		t.Error("ExactMatch = true, want false")
	}
	if !approxEqual(r.TokenOverlap, 50) {
		t.Errorf("TokenOverlap = %.4f, want 50", r.TokenOverlap)
	}
	if want := 100 * math.Exp(-1); !approxEqual(r.BLEUScore, want) {
		t.Errorf("BLEUScore = %.4f, want %.4f", r.BLEUScore, want)
	}
}

func TestProcessTestResultsUnmatchedQuestion(t *testing.T) {
	golden := []RawRecord{{"question": "Who painted the Mona Lisa?", "expected_answer": "Leonardo da Vinci"}}
	actual := []RawRecord{{"question": "Something else", "actual_answer": "Leonardo da Vinci"}}

	got := ProcessTestResults(golden, actual)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	r := got[0]
	if r.ActualAnswer != "" || r.ExactMatch || r.BLEUScore != 0 || r.TokenOverlap != 0 {
		t.Errorf("unmatched record = %+v, want empty answer and zero scores", r)
	}
}

func TestProcessTestResultsJoin(t *testing.T) {
	golden := []RawRecord{
		{"question": "  Q-B  ", "expected_answer": "beta"},
		{"question": "   ", "expected_answer": "dropped"},
		{"Question": "q-a", "Answer": "alpha"},
		{"expected_answer": "no question"},
		{"question": "Q-C", "expected_answer": "gamma"},
	}
	actual := []RawRecord{
		{"question": "q-b", "actual_answer": "first"},
		{"question": "Q-A", "answer": "alpha"},
		{"question": "", "actual_answer": "ignored"},
		{"question": "Q-B ", "actual_answer": "beta"},
	}

	got := ProcessTestResults(golden, actual)

	type row struct{ Q, Expected, Actual string }
	var rows []row
	for _, r := range got {
		rows = append(rows, row{r.Question, r.ExpectedAnswer, r.ActualAnswer})
	}
	want := []row{
		{"Q-B", "beta", "beta"},
		{"q-a", "alpha", "alpha"},
		{"Q-C", "gamma", ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("joined rows mismatch (-want +got):\n%s", diff)
	}
	for _, r := range got[:2] {
		if !r.ExactMatch {
			t.Errorf("%q: ExactMatch = false, want true", r.Question)
		}
	}
}

func TestProcessTestResultsEmptyInputs(t *testing.T) {
	tests := []struct {
		name   string
		golden []RawRecord
		actual []RawRecord
	}{
		{"both nil", nil, nil},
		{"golden nil", nil, []RawRecord{{"question": "Q", "actual_answer": "A"}}},
		{"golden all blank", []RawRecord{{"question": " "}, {}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProcessTestResults(tt.golden, tt.actual)
			if diff := cmp.Diff([]EvaluationRecord{}, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProcessTestResultsNilActual(t *testing.T) {
	golden := []RawRecord{{"question": "Q", "expected_answer": "A"}}
	got := ProcessTestResults(golden, nil)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].ActualAnswer != "" {
		t.Errorf("ActualAnswer = %q, want empty", got[0].ActualAnswer)
	}
}

func TestProcessTestResultsDoesNotShareLookup(t *testing.T) {
	golden := []RawRecord{{"question": "Q", "expected_answer": "A"}}

	first := ProcessTestResults(golden, []RawRecord{{"question": "Q", "actual_answer": "A"}})
	second := ProcessTestResults(golden, nil)

	if first[0].ActualAnswer != "A" {
		t.Errorf("first run ActualAnswer = %q, want A", first[0].ActualAnswer)
	}
	if second[0].ActualAnswer != "" {
		t.Errorf("second run ActualAnswer = %q, want empty", second[0].ActualAnswer)
	}
}
