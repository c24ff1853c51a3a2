// Package parse recovers structured data from free-form generator output.
// Nothing here returns an error: output that cannot be understood yields an
// empty result.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/chris/wingman/internal/llm"
)

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Text returns the trimmed payload of the first candidate, or "".
func Text(resp *llm.Response) string {
	return strings.TrimSpace(resp.Text())
}

// Object finds the JSON object in raw, trying in order a fenced code block,
// the span from the first '{' to the last '}', and finally the first '{'
// from which a complete object decodes.
func Object(raw string) (string, bool) {
	if m := fenced.FindStringSubmatch(raw); m != nil && isObject(m[1]) {
		return m[1], true
	}

	start, end := strings.IndexByte(raw, '{'), strings.LastIndexByte(raw, '}')
	if start < 0 {
		return "", false
	}
	if end > start && isObject(raw[start:end+1]) {
		return raw[start : end+1], true
	}

	for i := start; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		var obj json.RawMessage
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&obj); err == nil && isObject(string(obj)) {
			return string(obj), true
		}
	}
	return "", false
}

func isObject(s string) bool {
	return gjson.Valid(s) && gjson.Parse(s).IsObject()
}
