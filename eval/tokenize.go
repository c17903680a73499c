package eval

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// nonWordPattern matches anything that is neither an ASCII word character
// nor whitespace.
var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

// Tokenize lower-cases text, turns punctuation and other non-word characters
// into spaces and splits on whitespace. Token order and duplicates are kept.
func Tokenize(text string) []string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Fields(cleaned)
}

// TokenizeValue tokenizes a loosely-typed value. nil and falsy non-strings
// (false, numeric zero, NaN) produce no tokens; strings, including "", go
// through Tokenize.
func TokenizeValue(v any) []string {
	if v == nil {
		return []string{}
	}
	if s, ok := v.(string); ok {
		return Tokenize(s)
	}
	if isFalsy(v) {
		return []string{}
	}
	return Tokenize(Stringify(v))
}

// Stringify renders a value the way a display layer would print it: strings
// as-is, integral floats without a fraction, nil as "null".
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isFalsy(v any) bool {
	switch x := v.(type) {
	case bool:
		return !x
	case float64:
		return x == 0 || math.IsNaN(x)
	case float32:
		return x == 0 || math.IsNaN(float64(x))
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// tokenSet returns the distinct tokens of text.
func tokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
