package eval

// CalculateOverallMetrics reduces per-question records into run metrics.
// Precision, recall and F1 are recomputed from each record's answers since
// EvaluationRecord does not carry them.
func CalculateOverallMetrics(results []EvaluationRecord) SummaryMetrics {
	if len(results) == 0 {
		return SummaryMetrics{}
	}

	var (
		totalBLEU, totalOverlap              float64
		totalPrecision, totalRecall, totalF1 float64
		exactMatches                         int
	)

	for _, r := range results {
		totalBLEU += r.BLEUScore
		totalOverlap += r.TokenOverlap
		if r.ExactMatch {
			exactMatches++
		}
		prf := F1Metrics(r.ExpectedAnswer, r.ActualAnswer)
		totalPrecision += prf.Precision
		totalRecall += prf.Recall
		totalF1 += prf.F1
	}

	n := float64(len(results))
	exactRate := float64(exactMatches) / n * 100

	return SummaryMetrics{
		BLEUScore:           totalBLEU / n,
		F1Score:             totalF1 / n,
		Precision:           totalPrecision / n,
		Recall:              totalRecall / n,
		Accuracy:            exactRate,
		ExactMatch:          exactRate,
		AverageTokenOverlap: totalOverlap / n,
	}
}
