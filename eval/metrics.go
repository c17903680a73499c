package eval

import (
	"math"
	"strings"
)

// PRF holds token-set precision, recall and F1 on a 0-100 scale.
type PRF struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// ExactMatch reports whether expected and actual are equal after trimming
// and lower-casing.
func ExactMatch(expected, actual string) bool {
	return strings.ToLower(strings.TrimSpace(expected)) == strings.ToLower(strings.TrimSpace(actual))
}

// ExactMatchValue is ExactMatch over loosely-typed values, which are
// stringified first.
func ExactMatchValue(expected, actual any) bool {
	return ExactMatch(Stringify(expected), Stringify(actual))
}

// BLEU computes the simplified unigram BLEU used across goldeneval: the share
// of candidate tokens (with repetition) found in the reference vocabulary,
// times a brevity penalty of min(1, exp(1 - |ref|/max(1, |cand|))). Scaled to
// 0-100. Unigrams only.
func BLEU(reference, candidate string) float64 {
	refTokens := Tokenize(reference)
	candTokens := Tokenize(candidate)

	if len(candTokens) == 0 {
		return 0
	}

	refSet := make(map[string]struct{}, len(refTokens))
	for _, t := range refTokens {
		refSet[t] = struct{}{}
	}

	matches := 0
	for _, t := range candTokens {
		if _, ok := refSet[t]; ok {
			matches++
		}
	}

	precision := float64(matches) / float64(len(candTokens))
	ratio := float64(len(refTokens)) / float64(max(1, len(candTokens)))
	brevityPenalty := math.Min(1, math.Exp(1-ratio))

	return precision * brevityPenalty * 100
}

// TokenOverlap is the Jaccard similarity of the two token sets, scaled to
// 0-100. Either side empty gives 0.
func TokenOverlap(text1, text2 string) float64 {
	tokens1 := tokenSet(text1)
	tokens2 := tokenSet(text2)

	if len(tokens1) == 0 || len(tokens2) == 0 {
		return 0
	}

	intersection := 0
	for t := range tokens1 {
		if _, ok := tokens2[t]; ok {
			intersection++
		}
	}
	union := len(tokens1) + len(tokens2) - intersection

	return float64(intersection) / float64(union) * 100
}

// F1Metrics treats the expected token set as ground truth and the actual
// token set as the prediction.
func F1Metrics(expected, actual string) PRF {
	expectedTokens := tokenSet(expected)
	actualTokens := tokenSet(actual)

	if len(expectedTokens) == 0 || len(actualTokens) == 0 {
		return PRF{}
	}

	truePositives := 0
	for t := range actualTokens {
		if _, ok := expectedTokens[t]; ok {
			truePositives++
		}
	}

	precision := float64(truePositives) / float64(len(actualTokens)) * 100
	recall := float64(truePositives) / float64(len(expectedTokens)) * 100

	var f1 float64
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return PRF{Precision: precision, Recall: recall, F1: f1}
}
