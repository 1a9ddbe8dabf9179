/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"chainguard.dev/agentpress/pipeline/envelope"
)

// Extraction is the outcome of recovering one record's payload. Failures are
// carried in Err with Success false; Extract never panics and never returns a
// Go error, so one malformed row cannot abort processing of a batch.
type Extraction struct {
	CustomID string
	Success  bool
	Data     any
	Err      error
}

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	fencedPattern     = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

// Extract recovers the structured JSON payload from one batch result record.
//
// The model was instructed to emit a single envelope object, but in practice
// the text may be split across blocks, wrapped in markdown, preceded by prose,
// or be the continuation of the assistant prefill the builder seeded. The
// recovery order is fixed and must not change: stored batches were produced
// against exactly this behavior.
func Extract(rec Record) Extraction {
	out := Extraction{CustomID: rec.CustomID}

	if rec.Result.Type != TypeSucceeded {
		msg := rec.Result.Type
		if rec.Result.Error != nil && rec.Result.Error.Message != "" {
			msg = fmt.Sprintf("%s: %s", rec.Result.Type, rec.Result.Error.Message)
		}
		out.Err = fmt.Errorf("request did not succeed: %s", msg)
		return out
	}

	if rec.Result.Message == nil || len(rec.Result.Message.Content) == 0 {
		out.Err = errors.New("succeeded result has no content blocks")
		return out
	}

	// Concatenate text blocks in order. Tool-use blocks represent the model's
	// intermediate searches, not final output, and are skipped.
	var sb strings.Builder
	sawText := false
	for _, block := range rec.Result.Message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
			sawText = true
		}
	}
	if !sawText {
		out.Err = errors.New("no text blocks in result content")
		return out
	}

	text := strings.TrimSpace(sb.String())

	if isContinuation(text) {
		// The response continues the prefill the builder seeded. Re-derive
		// the preamble from the custom_id so the tail parses as a whole
		// object again. A custom_id that cannot be split leaves the text
		// untouched and extraction proceeds on whatever is there.
		if collectionType, village, err := envelope.ParseCustomID(rec.CustomID); err == nil {
			text = envelope.Preamble(collectionType, village) + text
		}
	}

	span, ok := balancedSpan(text)
	if !ok {
		span, ok = fencedSpan(text)
	}
	if !ok {
		out.Err = errors.New("no JSON object found in response text")
		return out
	}

	var data any
	if err := json.Unmarshal([]byte(span), &data); err != nil {
		out.Err = fmt.Errorf("parsing extracted JSON: %w", err)
		return out
	}

	out.Success = true
	out.Data = data
	return out
}

// ExtractAll runs Extract over every record.
func ExtractAll(recs []Record) []Extraction {
	outs := make([]Extraction, 0, len(recs))
	for _, rec := range recs {
		outs = append(outs, Extract(rec))
	}
	return outs
}

// isContinuation reports whether the text looks like a continuation of a
// prefill rather than a complete object. Text starting with exactly `{"` is
// ambiguous (a continuation tail can begin with a quoted string inside an
// object just as a complete object does), so it is only trusted as complete
// when the collection_type field is already present.
func isContinuation(text string) bool {
	ambiguousStart := !strings.HasPrefix(text, "{") || strings.HasPrefix(text, `{"`)
	return ambiguousStart && !strings.Contains(text, `"collection_type"`)
}

// balancedSpan returns the first brace-balanced {...} span in text. The scan
// counts braces naively, without string or escape awareness. A string value
// containing unbalanced braces will mis-extract; the structured output the
// models produce for this domain does not contain raw braces in practice.
func balancedSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
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

// fencedSpan extracts a brace-balanced object from a ```json fenced block, or
// failing that from a bare ``` block.
func fencedSpan(text string) (string, bool) {
	for _, pattern := range []*regexp.Regexp{fencedJSONPattern, fencedPattern} {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if span, ok := balancedSpan(strings.TrimSpace(m[1])); ok {
			return span, true
		}
	}
	return "", false
}
