package jsonutils

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	reFence         = regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	reObject        = regexp.MustCompile(`(?s)\{.*\}`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// ExtractJSON pulls a JSON object out of free-form model output.
//
// Priority:
// 1. Triple-backtick fenced ```json ... ``` block
// 2. The outermost {...} span (first opening brace to last closing brace)
//
// Common model formatting noise is sanitized: BOMs and zero-width
// characters are stripped and trailing commas before } or ] removed.
// Returns "" when the input holds no brace-delimited object at all;
// callers treat that the same as a failed parse.
func ExtractJSON(input string) string {
	input = strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\uFEFF' || r == '\u200B' || r == '\u200C' || r == '\u200D' {
			return -1
		}
		return r
	}, input))

	if match := reFence.FindStringSubmatch(input); len(match) > 1 {
		input = strings.TrimSpace(match[1])
	}

	match := reObject.FindString(input)
	if match == "" {
		return ""
	}
	input = strings.TrimSpace(match)

	input = reTrailingComma.ReplaceAllString(input, "$1")

	return input
}

// ToJSON serializes a Go value to an indented JSON string, or "" on error.
func ToJSON(v interface{}) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(bytes))
}
