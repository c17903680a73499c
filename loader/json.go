package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/brunobiangulo/goldeneval/eval"
)

// JSONLoader reads a JSON array of objects, or a single object.
type JSONLoader struct{}

func (l *JSONLoader) SupportedFormats() []string { return []string{"json"} }

func (l *JSONLoader) Load(ctx context.Context, path string) ([]eval.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading JSON file: %w", err)
	}
	return DecodeJSON(data)
}

// DecodeJSON converts a JSON document into records. A top-level object is
// treated as a one-element array. Values become strings: numbers keep their
// literal text, null fields are left out and nested values are re-encoded as
// compact JSON. Array elements that are not objects yield empty records.
func DecodeJSON(data []byte) ([]eval.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrParsingFailed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: invalid JSON: trailing data after document", ErrParsingFailed)
	}

	return RecordsFromValue(doc)
}

// RecordsFromValue normalizes an already-decoded JSON value (object or array
// of objects) into records.
func RecordsFromValue(doc any) ([]eval.RawRecord, error) {
	switch v := doc.(type) {
	case []any:
		records := make([]eval.RawRecord, 0, len(v))
		for _, item := range v {
			obj, _ := item.(map[string]any)
			records = append(records, recordFromObject(obj))
		}
		return records, nil
	case map[string]any:
		return []eval.RawRecord{recordFromObject(v)}, nil
	case nil:
		return []eval.RawRecord{}, nil
	default:
		return nil, fmt.Errorf("%w: expected a JSON object or array, got %T", ErrParsingFailed, doc)
	}
}

func recordFromObject(obj map[string]any) eval.RawRecord {
	rec := make(eval.RawRecord, len(obj))
	for k, v := range obj {
		if s, ok := stringValue(v); ok {
			rec[k] = s
		}
	}
	return rec
}

func stringValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x), true
		}
		return string(data), true
	}
}
