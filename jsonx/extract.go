// Package jsonx factors the balanced-brace JSON extractor and fenced-code
// stripper into one shared utility, used by every agent that parses LLM
// output. LLMs routinely wrap JSON in prose or markdown fences, so every
// call site needs the same tolerant extraction instead of a bare
// json.Unmarshal.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// StripFences returns the trimmed contents of the first markdown code
// fence in text, dropping any prose around it. Text with no fence is
// returned trimmed but otherwise unchanged.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// Extract applies a tolerant extraction policy:
//  1. Strip markdown fences.
//  2. If text starts with '{', try a direct parse.
//  3. Otherwise scan for the first '{', track brace depth, and take the
//     balanced substring.
//  4. On parse failure return nil.
//
// Extract never returns a non-nil map on invalid JSON: for text with no
// '{' or only unbalanced braces, it returns nil.
func Extract(text string) map[string]any {
	text = StripFences(text)
	if strings.HasPrefix(text, "{") {
		var m map[string]any
		if err := json.Unmarshal([]byte(text), &m); err == nil {
			return m
		}
	}
	balanced := balancedObject(text)
	if balanced == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(balanced), &m); err != nil {
		return nil
	}
	return m
}

// balancedObject scans for the first '{' and returns the substring up to
// its matching closing brace, tracking depth and skipping braces inside
// string literals. Returns "" if no balanced object is found.
func balancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string literal, braces don't count
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
