package eval

// goldenItem is a golden record that survived question filtering, with the
// actual answer it was joined to.
type goldenItem struct {
	question string
	expected string
	actual   string
}

// ProcessTestResults joins golden records to actual records by normalized
// question and scores every pair. Output follows golden order; golden records
// without a question are dropped. nil inputs are treated as empty.
func ProcessTestResults(goldenData, actualData []RawRecord) []EvaluationRecord {
	items := pairItems(goldenData, actualData)
	results := make([]EvaluationRecord, 0, len(items))
	for _, it := range items {
		results = append(results, scorePair(it))
	}
	return results
}

// actualLookup maps normalized question to answer. Later duplicates overwrite
// earlier ones.
func actualLookup(actualData []RawRecord) map[string]string {
	lookup := make(map[string]string, len(actualData))
	for _, rec := range actualData {
		q := rec.Question()
		if q == "" {
			continue
		}
		lookup[normalizeQuestion(q)] = rec.ActualAnswer()
	}
	return lookup
}

func pairItems(goldenData, actualData []RawRecord) []goldenItem {
	lookup := actualLookup(actualData)

	items := make([]goldenItem, 0, len(goldenData))
	for _, rec := range goldenData {
		q := rec.Question()
		if q == "" {
			continue
		}
		items = append(items, goldenItem{
			question: q,
			expected: rec.ExpectedAnswer(),
			actual:   lookup[normalizeQuestion(q)],
		})
	}
	return items
}

func scorePair(it goldenItem) EvaluationRecord {
	return EvaluationRecord{
		Question:       it.question,
		ExpectedAnswer: it.expected,
		ActualAnswer:   it.actual,
		BLEUScore:      BLEU(it.expected, it.actual),
		TokenOverlap:   TokenOverlap(it.expected, it.actual),
		ExactMatch:     ExactMatch(it.expected, it.actual),
	}
}
