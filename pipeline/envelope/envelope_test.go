/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package envelope

import (
	"strings"
	"testing"
)

func TestCustomIDRoundTrip(t *testing.T) {
	tests := []struct {
		name           string
		collectionType string
		village        string
	}{{
		name:           "simple pair",
		collectionType: "restaurants",
		village:        "vernazza",
	}, {
		name:           "hyphenated collection type",
		collectionType: "cinque-terre-events",
		village:        "corniglia",
	}, {
		name:           "underscored collection type",
		collectionType: "cinqueterre_events",
		village:        "manarola",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := CustomID(tt.collectionType, tt.village)
			if err != nil {
				t.Fatalf("CustomID() error = %v", err)
			}

			gotType, gotVillage, err := ParseCustomID(id)
			if err != nil {
				t.Fatalf("ParseCustomID(%q) error = %v", id, err)
			}
			if gotType != tt.collectionType || gotVillage != tt.village {
				t.Errorf("ParseCustomID(%q) = (%q, %q), want (%q, %q)",
					id, gotType, gotVillage, tt.collectionType, tt.village)
			}
		})
	}
}

func TestCustomIDRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name           string
		collectionType string
		village        string
	}{{
		name:           "empty village",
		collectionType: "restaurants",
		village:        "",
	}, {
		name:           "hyphenated village",
		collectionType: "restaurants",
		village:        "monterosso-al-mare",
	}, {
		name:           "spaces",
		collectionType: "restaurants",
		village:        "riomaggiore alta",
	}, {
		name:           "unicode",
		collectionType: "restaurants",
		village:        "vernazzà",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CustomID(tt.collectionType, tt.village); err == nil {
				t.Errorf("CustomID(%q, %q) expected error, got nil", tt.collectionType, tt.village)
			}
		})
	}
}

func TestParseCustomIDErrors(t *testing.T) {
	for _, id := range []string{"", "nohyphen", "-village", "type-"} {
		if _, _, err := ParseCustomID(id); err == nil {
			t.Errorf("ParseCustomID(%q) expected error, got nil", id)
		}
	}
}

func TestPreambleShape(t *testing.T) {
	got := Preamble("cinqueterre_events", "vernazza")
	want := `{"collection_type":"cinqueterre_events","village":"vernazza","generated_at":"2024-01-01T00:00:00Z","item_count":20,"items":[`
	if got != want {
		t.Errorf("Preamble() = %q, want %q", got, want)
	}

	// The preamble must end mid-array so the model continues rather than restarts.
	if !strings.HasSuffix(got, "[") {
		t.Errorf("Preamble() must end with the opening of the items array, got %q", got)
	}
}
