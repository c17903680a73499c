package loader

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/brunobiangulo/goldeneval/eval"
)

// TranscriptLoader reads plain-text or Markdown Q/A transcripts:
//
//	Q: What is the capital of France?
//	A: Paris
//
// "Question:" and "Answer:" work too, with an optional number ("Q1:"), and
// lines may carry Markdown list, quote, heading or bold markers. Lines that
// follow a Q or A line continue it; text before the first question is ignored.
type TranscriptLoader struct{}

func (l *TranscriptLoader) SupportedFormats() []string { return []string{"txt", "md"} }

func (l *TranscriptLoader) Load(ctx context.Context, path string) ([]eval.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return ParseTranscript(string(data)), nil
}

var (
	questionLine = regexp.MustCompile(`(?i)^(?:q|question)\s*\d*\s*:\s*(.*)$`)
	answerLine   = regexp.MustCompile(`(?i)^(?:a|answer)\s*\d*\s*:\s*(.*)$`)
	markdownLead = regexp.MustCompile(`^(?:[#>*+-]+\s*|\d+[.)]\s+)+`)
)

// ParseTranscript extracts question/answer records from transcript text. Each
// record has "question" and "answer" fields, so it can serve as either a
// golden or an actual dataset.
func ParseTranscript(text string) []eval.RawRecord {
	var (
		records  = make([]eval.RawRecord, 0)
		question strings.Builder
		answer   strings.Builder
		inQ      bool
		inA      bool
	)

	flush := func() {
		if inQ || inA {
			records = append(records, eval.RawRecord{
				"question": strings.TrimSpace(question.String()),
				"answer":   strings.TrimSpace(answer.String()),
			})
		}
		question.Reset()
		answer.Reset()
		inQ, inA = false, false
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		marker := cleanTranscriptLine(line)

		if m := questionLine.FindStringSubmatch(marker); m != nil {
			flush()
			inQ = true
			question.WriteString(m[1])
			continue
		}
		if m := answerLine.FindStringSubmatch(marker); m != nil && (inQ || inA) {
			if inA {
				answer.WriteString("\n")
			}
			inQ, inA = false, true
			answer.WriteString(m[1])
			continue
		}

		switch {
		case line == "":
			continue
		case inQ:
			appendLine(&question, line)
		case inA:
			appendLine(&answer, line)
		}
	}
	flush()

	return records
}

// cleanTranscriptLine strips Markdown decoration so Q/A markers can be matched.
func cleanTranscriptLine(line string) string {
	line = markdownLead.ReplaceAllString(line, "")
	// **Q:** text -> Q: text
	line = strings.Replace(line, "**", "", 2)
	return strings.TrimSpace(line)
}

func appendLine(b *strings.Builder, line string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(line)
}
