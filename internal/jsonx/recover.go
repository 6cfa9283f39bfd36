// Package jsonx recovers a JSON object from unreliable model output: raw
// JSON, JSON wrapped in markdown fences, or JSON buried in surrounding
// prose.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// Recover extracts the first well-formed JSON object from raw text. The
// attempts run in order: parse the trimmed text directly, parse the interior
// of the first fenced code block, then balanced-brace scan for the first
// top-level object. Failure is an expected outcome, not an error.
func Recover(raw string) (map[string]any, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, false
	}

	if obj, ok := parseObject(text); ok {
		return obj, true
	}

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if obj, ok := parseObject(m[1]); ok {
			return obj, true
		}
	}

	if candidate, ok := firstObject(text); ok {
		if obj, ok := parseObject(candidate); ok {
			return obj, true
		}
	}

	return nil, false
}

func parseObject(text string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// firstObject walks from the first '{' tracking brace depth. Inside a string
// literal braces are inert, and a backslash consumes the following byte
// outright so escaped quotes never terminate the string state.
func firstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaping := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch {
			case escaping:
				escaping = false
			case ch == '\\':
				escaping = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
