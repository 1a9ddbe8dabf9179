/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"encoding/json"
	"fmt"
	"testing"

	"chainguard.dev/agentpress/pipeline/envelope"
	"github.com/google/go-cmp/cmp"
)

func succeeded(customID string, blocks ...ContentBlock) Record {
	return Record{
		CustomID: customID,
		Result: Result{
			Type:    TypeSucceeded,
			Message: &Message{Content: blocks},
		},
	}
}

func text(s string) ContentBlock { return ContentBlock{Type: "text", Text: s} }

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		rec      Record
		wantData any
		wantErr  bool
	}{{
		name:     "plain object",
		rec:      succeeded("restaurants-vernazza", text(`{"collection_type":"restaurants","village":"vernazza","items":[]}`)),
		wantData: map[string]any{"collection_type": "restaurants", "village": "vernazza", "items": []any{}},
	}, {
		name: "object wrapped in prose",
		rec: succeeded("hikes-corniglia", text(`Here is the generated collection:

{"collection_type":"hikes","village":"corniglia","items":[{"name":"Sentiero Azzurro"}]}

Let me know if you need more.`)),
		wantData: map[string]any{
			"collection_type": "hikes",
			"village":         "corniglia",
			"items":           []any{map[string]any{"name": "Sentiero Azzurro"}},
		},
	}, {
		name: "fenced json block with continuation preamble",
		rec:  succeeded("cinqueterre_events-vernazza", text("```json\n{\"a\":1}\n```")),
		// The fenced text does not start with { and carries no collection_type,
		// so the preamble is prepended; the balanced scan then fails on the
		// unterminated items array and the fenced fallback recovers {"a":1}.
		wantData: map[string]any{"a": float64(1)},
	}, {
		name: "continuation tail cut mid-object stays a per-item failure",
		rec: succeeded("restaurants-manarola",
			text(`"Trattoria dal Billy","cuisine":"ligurian"}],"closing":true}`)),
		wantErr: true,
	}, {
		name: "text split across multiple blocks with tool use between",
		rec: succeeded("weather-riomaggiore",
			text(`{"collection_type":"weather",`),
			ContentBlock{Type: "tool_use", Name: "web_search"},
			text(`"village":"riomaggiore","items":[]}`)),
		wantData: map[string]any{"collection_type": "weather", "village": "riomaggiore", "items": []any{}},
	}, {
		name: "errored result never attempts parsing",
		rec: Record{
			CustomID: "restaurants-vernazza",
			Result: Result{
				Type:  TypeErrored,
				Error: &APIError{Type: "invalid_request_error", Message: "prompt too long"},
			},
		},
		wantErr: true,
	}, {
		name:    "expired result",
		rec:     Record{CustomID: "hikes-vernazza", Result: Result{Type: TypeExpired}},
		wantErr: true,
	}, {
		name:    "no content blocks",
		rec:     Record{CustomID: "hikes-vernazza", Result: Result{Type: TypeSucceeded, Message: &Message{}}},
		wantErr: true,
	}, {
		name: "only tool use blocks",
		rec: succeeded("hikes-vernazza",
			ContentBlock{Type: "tool_use", Name: "web_search"}),
		wantErr: true,
	}, {
		name:    "no json at all",
		rec:     succeeded("hikes-vernazza", text("I could not generate the collection.")),
		wantErr: true,
	}, {
		name:    "truncated object never closes",
		rec:     succeeded("events-vernazza", text(`{"collection_type":"events","village":"vernazza","items":[{"name":"Sagra`)),
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.rec)

			if got.CustomID != tt.rec.CustomID {
				t.Errorf("CustomID = %q, want %q", got.CustomID, tt.rec.CustomID)
			}
			if tt.wantErr {
				if got.Success || got.Err == nil {
					t.Fatalf("expected failure, got success=%v err=%v data=%v", got.Success, got.Err, got.Data)
				}
				return
			}
			if !got.Success {
				t.Fatalf("expected success, got err: %v", got.Err)
			}
			if diff := cmp.Diff(tt.wantData, got.Data); diff != "" {
				t.Errorf("Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// A continuation tail cut mid-string cannot be repaired; the failure must stay
// contained in the extraction rather than surfacing as a Go error.
func TestExtractContinuationTail(t *testing.T) {
	rec := succeeded("restaurants-manarola",
		text(`{"name":"Trattoria dal Billy","cuisine":"ligurian"}],"note":"x"}`))

	got := Extract(rec)
	if !got.Success {
		t.Fatalf("expected success, got err: %v", got.Err)
	}

	want := map[string]any{
		"collection_type": "restaurants",
		"village":         "manarola",
		"generated_at":    envelope.SentinelGeneratedAt,
		"item_count":      float64(envelope.DefaultItemCount),
		"items":           []any{map[string]any{"name": "Trattoria dal Billy", "cuisine": "ligurian"}},
		"note":            "x",
	}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Errorf("Data mismatch (-want +got):\n%s", diff)
	}
}

// Round-trip: any envelope whose string values contain no braces survives
// formatting followed by brace-matching extraction.
func TestExtractRoundTrip(t *testing.T) {
	items := []map[string]any{
		{"name": "Belforte", "rating": 4.5},
		{"name": "Gambero Rosso", "rating": 4.2, "tags": []any{"seafood", "terrace"}},
	}
	env := map[string]any{
		"collection_type": "restaurants",
		"village":         "vernazza",
		"generated_at":    envelope.SentinelGeneratedAt,
		"item_count":      2,
		"items":           items,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	rec := succeeded("restaurants-vernazza", text(fmt.Sprintf("Sure, here you go:\n\n%s\n\nDone.", raw)))
	got := Extract(rec)
	if !got.Success {
		t.Fatalf("expected success, got err: %v", got.Err)
	}

	var want any
	if err := json.Unmarshal(raw, &want); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestIsContinuation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{{
		name: "complete object with collection_type",
		text: `{"collection_type":"x","village":"y"}`,
		want: false,
	}, {
		name: "starts with brace-quote but no collection_type",
		text: `{"name":"tail"}]}`,
		want: true,
	}, {
		name: "plain tail",
		text: `"vernazza","items":[]}`,
		want: true,
	}, {
		name: "brace followed by whitespace",
		text: "{\n  \"collection_type\": \"x\"\n}",
		want: false,
	}, {
		name: "brace followed by whitespace without collection_type",
		text: "{\n  \"name\": \"x\"\n}",
		want: false,
	}, {
		name: "prose mentioning collection_type literal",
		text: "the \"collection_type\" field was omitted",
		want: false,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isContinuation(tt.text); got != tt.want {
				t.Errorf("isContinuation(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
