package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Run grades, computed from the summary F1.
const (
	GradeExcellent        = "excellent"
	GradeGood             = "good"
	GradeNeedsImprovement = "needs-improvement"
)

// Per-question badges, computed from BLEU.
const (
	BadgeHigh   = "high"
	BadgeMedium = "medium"
	BadgeLow    = "low"
)

// Per-question statuses.
const (
	StatusPass    = "pass"    // exact match
	StatusPartial = "partial" // BLEU at or above the partial threshold
	StatusFail    = "fail"
)

// Thresholds are the 0-100 cut-offs used to label questions and runs.
type Thresholds struct {
	HighScore   float64 `json:"high_score" yaml:"high_score"`     // badge high, counted in Analytics.HighBLEU
	MediumScore float64 `json:"medium_score" yaml:"medium_score"` // badge medium; below it a question needs review
	PartialBLEU float64 `json:"partial_bleu" yaml:"partial_bleu"`
	ExcellentF1 float64 `json:"excellent_f1" yaml:"excellent_f1"`
	GoodF1      float64 `json:"good_f1" yaml:"good_f1"`
}

// DefaultThresholds returns badge cut-offs of 80/50, partial credit at BLEU
// 70 and grade cut-offs of F1 80/60.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighScore:   80,
		MediumScore: 50,
		PartialBLEU: 70,
		ExcellentF1: 80,
		GoodF1:      60,
	}
}

// Badge labels a single BLEU score.
func (t Thresholds) Badge(score float64) string {
	switch {
	case score >= t.HighScore:
		return BadgeHigh
	case score >= t.MediumScore:
		return BadgeMedium
	default:
		return BadgeLow
	}
}

// Status labels a scored question.
func (t Thresholds) Status(r EvaluationRecord) string {
	switch {
	case r.ExactMatch:
		return StatusPass
	case r.BLEUScore >= t.PartialBLEU:
		return StatusPartial
	default:
		return StatusFail
	}
}

// Grade labels a whole run by its F1.
func (t Thresholds) Grade(m SummaryMetrics) string {
	switch {
	case m.F1Score >= t.ExcellentF1:
		return GradeExcellent
	case m.F1Score >= t.GoodF1:
		return GradeGood
	default:
		return GradeNeedsImprovement
	}
}

// Analytics counts questions per outcome bucket.
type Analytics struct {
	ExactMatches int `json:"exact_matches"`
	HighBLEU     int `json:"high_bleu"`
	NeedsReview  int `json:"needs_review"`
	Unmatched    int `json:"unmatched"`
}

// Analyze buckets records using t.
func Analyze(results []EvaluationRecord, t Thresholds) Analytics {
	var a Analytics
	for _, r := range results {
		if r.ExactMatch {
			a.ExactMatches++
		}
		if r.BLEUScore >= t.HighScore {
			a.HighBLEU++
		}
		if r.BLEUScore < t.MediumScore {
			a.NeedsReview++
		}
		if r.ActualAnswer == "" {
			a.Unmatched++
		}
	}
	return a
}

// ScoredQuestion is an EvaluationRecord with its display labels.
type ScoredQuestion struct {
	EvaluationRecord
	Badge  string `json:"badge"`
	Status string `json:"status"`
}

// Report holds the results of an evaluation run.
type Report struct {
	RunID          string           `json:"run_id"`
	GoldenName     string           `json:"golden_name,omitempty"`
	ActualName     string           `json:"actual_name,omitempty"`
	GoldenRecords  int              `json:"golden_records"`
	ActualRecords  int              `json:"actual_records"`
	TotalQuestions int              `json:"total_questions"`
	Summary        SummaryMetrics   `json:"summary"`
	Analytics      Analytics        `json:"analytics"`
	Grade          string           `json:"grade"`
	Results        []ScoredQuestion `json:"results"`
	RunTime        time.Duration    `json:"run_time"`
}

// Records returns the plain evaluation records of the run, in golden order.
func (r *Report) Records() []EvaluationRecord {
	out := make([]EvaluationRecord, len(r.Results))
	for i, q := range r.Results {
		out[i] = q.EvaluationRecord
	}
	return out
}

// Evaluator scores golden/actual pairs, optionally in parallel.
type Evaluator struct {
	workers    int
	thresholds Thresholds
}

// NewEvaluator creates an evaluator that scores sequentially with the
// default thresholds.
func NewEvaluator() *Evaluator {
	return &Evaluator{workers: 1, thresholds: DefaultThresholds()}
}

// SetWorkers bounds the number of questions scored concurrently. Values
// below 1 mean sequential scoring.
func (e *Evaluator) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	e.workers = n
}

// SetThresholds replaces the labelling cut-offs.
func (e *Evaluator) SetThresholds(t Thresholds) {
	e.thresholds = t
}

// Thresholds returns the labelling cut-offs in use.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Join is ProcessTestResults with a bounded worker pool. Results keep golden
// order regardless of the worker count.
func (e *Evaluator) Join(ctx context.Context, goldenData, actualData []RawRecord) ([]EvaluationRecord, error) {
	items := pairItems(goldenData, actualData)
	results := make([]EvaluationRecord, len(items))

	if e.workers <= 1 || len(items) < 2 {
		for i, it := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = scorePair(it)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = scorePair(it)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run joins, aggregates and labels one evaluation.
func (e *Evaluator) Run(ctx context.Context, goldenData, actualData []RawRecord) (*Report, error) {
	start := time.Now()

	records, err := e.Join(ctx, goldenData, actualData)
	if err != nil {
		return nil, fmt.Errorf("scoring questions: %w", err)
	}

	report := &Report{
		RunID:          uuid.NewString(),
		GoldenRecords:  len(goldenData),
		ActualRecords:  len(actualData),
		TotalQuestions: len(records),
		Summary:        CalculateOverallMetrics(records),
		Analytics:      Analyze(records, e.thresholds),
		Results:        make([]ScoredQuestion, len(records)),
	}
	report.Grade = e.thresholds.Grade(report.Summary)

	for i, r := range records {
		report.Results[i] = ScoredQuestion{
			EvaluationRecord: r,
			Badge:            e.thresholds.Badge(r.BLEUScore),
			Status:           e.thresholds.Status(r),
		}
		if r.ActualAnswer == "" {
			slog.Debug("eval: no actual answer", "question", truncate(r.Question, 80))
		}
	}

	report.RunTime = time.Since(start)

	slog.Info("eval: run complete",
		"run_id", report.RunID,
		"questions", report.TotalQuestions,
		"skipped", report.GoldenRecords-report.TotalQuestions,
		"unmatched", report.Analytics.Unmatched,
		"bleu", fmt.Sprintf("%.2f", report.Summary.BLEUScore),
		"f1", fmt.Sprintf("%.2f", report.Summary.F1Score),
		"exact_match", fmt.Sprintf("%.2f", report.Summary.ExactMatch),
		"grade", report.Grade,
		"workers", e.workers,
		"elapsed_ms", report.RunTime.Milliseconds())

	return report, nil
}

// FormatReport produces a human-readable report string.
func FormatReport(r *Report) string {
	var b strings.Builder
	title := "Evaluation Report"
	if r.GoldenName != "" || r.ActualName != "" {
		title = fmt.Sprintf("Evaluation Report: %s vs %s", nameOr(r.ActualName, "actual"), nameOr(r.GoldenName, "golden"))
	}
	fmt.Fprintf(&b, "=== %s ===\n", title)
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	fmt.Fprintf(&b, "Questions: %d (golden rows %d, actual rows %d)\n",
		r.TotalQuestions, r.GoldenRecords, r.ActualRecords)
	fmt.Fprintf(&b, "Grade: %s\n", r.Grade)
	fmt.Fprintf(&b, "Run time: %s\n\n", r.RunTime.Round(time.Millisecond))

	m := r.Summary
	fmt.Fprintf(&b, "Summary Metrics:\n")
	fmt.Fprintf(&b, "  BLEU:           %6.2f\n", m.BLEUScore)
	fmt.Fprintf(&b, "  F1:             %6.2f\n", m.F1Score)
	fmt.Fprintf(&b, "  Precision:      %6.2f\n", m.Precision)
	fmt.Fprintf(&b, "  Recall:         %6.2f\n", m.Recall)
	fmt.Fprintf(&b, "  Accuracy:       %6.2f\n", m.Accuracy)
	fmt.Fprintf(&b, "  Exact Match:    %6.2f\n", m.ExactMatch)
	fmt.Fprintf(&b, "  Token Overlap:  %6.2f\n\n", m.AverageTokenOverlap)

	a := r.Analytics
	fmt.Fprintf(&b, "Analytics:\n")
	fmt.Fprintf(&b, "  Exact matches:  %d (%.1f%%)\n", a.ExactMatches, passRate(a.ExactMatches, r.TotalQuestions))
	fmt.Fprintf(&b, "  High BLEU:      %d\n", a.HighBLEU)
	fmt.Fprintf(&b, "  Needs review:   %d\n", a.NeedsReview)
	fmt.Fprintf(&b, "  Unmatched:      %d\n\n", a.Unmatched)

	for i, q := range r.Results {
		fmt.Fprintf(&b, "[%s] %d. %s\n", strings.ToUpper(q.Status), i+1, q.Question)
		fmt.Fprintf(&b, "  BLEU=%.2f Overlap=%.2f Exact=%t Badge=%s\n",
			q.BLEUScore, q.TokenOverlap, q.ExactMatch, q.Badge)
		if q.Status != StatusPass {
			fmt.Fprintf(&b, "  Expected: %s\n", truncate(q.ExpectedAnswer, 120))
			actual := q.ActualAnswer
			if actual == "" {
				actual = "(no answer)"
			}
			fmt.Fprintf(&b, "  Actual:   %s\n", truncate(actual, 120))
		}
	}

	return b.String()
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func passRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total) * 100
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
