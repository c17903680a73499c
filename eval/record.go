package eval

import "strings"

// RawRecord is one loosely-typed row as produced by a loader: field name to
// value, with every value already coerced to a string.
type RawRecord map[string]string

// Field aliases, tried in order. The first alias holding a non-empty value wins.
var (
	QuestionAliases       = []string{"question", "Question"}
	ExpectedAnswerAliases = []string{"expected_answer", "expectedAnswer", "answer", "Answer"}
	ActualAnswerAliases   = []string{"actual_answer", "actualAnswer", "answer", "Answer"}
)

// Field returns the value of the first alias present with a non-empty value,
// or "" when none match.
func (r RawRecord) Field(aliases []string) string {
	for _, key := range aliases {
		if v, ok := r[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Question returns the trimmed question text.
func (r RawRecord) Question() string {
	return strings.TrimSpace(r.Field(QuestionAliases))
}

// ExpectedAnswer returns the reference answer of a golden record.
func (r RawRecord) ExpectedAnswer() string {
	return r.Field(ExpectedAnswerAliases)
}

// ActualAnswer returns the produced answer of an actual record.
func (r RawRecord) ActualAnswer() string {
	return r.Field(ActualAnswerAliases)
}

// normalizeQuestion is the join key between golden and actual records.
func normalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// EvaluationRecord is the scored comparison of one golden question.
type EvaluationRecord struct {
	Question       string  `json:"question"`
	ExpectedAnswer string  `json:"expectedAnswer"`
	ActualAnswer   string  `json:"actualAnswer"`
	BLEUScore      float64 `json:"bleuScore"`
	TokenOverlap   float64 `json:"tokenOverlap"`
	ExactMatch     bool    `json:"exactMatch"`
}

// SummaryMetrics holds run-level metrics, all on a 0-100 scale.
// Accuracy and ExactMatch always carry the same value.
type SummaryMetrics struct {
	BLEUScore           float64 `json:"bleuScore"`
	F1Score             float64 `json:"f1Score"`
	Precision           float64 `json:"precision"`
	Recall              float64 `json:"recall"`
	Accuracy            float64 `json:"accuracy"`
	ExactMatch          float64 `json:"exactMatch"`
	AverageTokenOverlap float64 `json:"averageTokenOverlap"`
}
