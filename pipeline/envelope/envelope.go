/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package envelope defines the JSON envelope that batch-generated collections
// are wrapped in, and the custom_id scheme that ties each batch request back
// to its (collection type, village) pair.
//
// The preamble produced here is used in two places that must stay
// byte-for-byte identical: the assistant prefill seeded by the request
// builder, and the header the result extractor re-derives when a model
// response turns out to be a continuation of that prefill.
package envelope

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// SentinelGeneratedAt is the fixed timestamp stamped into every preamble.
	// The extractor cannot recover the submission time from a custom_id, so
	// the same sentinel is used on both sides. Changing it breaks recovery of
	// every truncated response already stored.
	SentinelGeneratedAt = "2024-01-01T00:00:00Z"

	// DefaultItemCount is the item count baked into the preamble. Recovery
	// always assumes this value regardless of what the caller asked for.
	DefaultItemCount = 20
)

// customIDPattern is the character set Anthropic accepts for custom_id values.
var customIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Envelope is the top-level object every batch response is instructed to emit.
// Items are carried opaquely; their shape is dictated by the per-collection
// schema blob, not by Go types.
type Envelope struct {
	CollectionType string            `json:"collection_type"`
	Village        string            `json:"village"`
	GeneratedAt    string            `json:"generated_at"`
	ItemCount      int               `json:"item_count"`
	Items          []json.RawMessage `json:"items"`
}

// CustomID builds the batch custom_id for a (collection type, village) pair.
// The village must not contain hyphens: the custom_id is the only context
// available when results come back, and it is recovered by splitting on the
// last hyphen.
func CustomID(collectionType, village string) (string, error) {
	if collectionType == "" || village == "" {
		return "", fmt.Errorf("collection type and village are required, got %q / %q", collectionType, village)
	}
	if strings.Contains(village, "-") {
		return "", fmt.Errorf("village %q must not contain hyphens", village)
	}
	id := collectionType + "-" + village
	if !customIDPattern.MatchString(id) {
		return "", fmt.Errorf("custom_id %q contains characters outside [a-zA-Z0-9_-]", id)
	}
	return id, nil
}

// ParseCustomID recovers the (collection type, village) pair from a custom_id
// by splitting on the last hyphen. Collection types may contain hyphens;
// villages never do.
func ParseCustomID(customID string) (collectionType, village string, err error) {
	idx := strings.LastIndex(customID, "-")
	if idx <= 0 || idx == len(customID)-1 {
		return "", "", fmt.Errorf("custom_id %q is not of the form {collectionType}-{village}", customID)
	}
	return customID[:idx], customID[idx+1:], nil
}

// Preamble renders the fixed-shape JSON header up to and including the opening
// of the items array. Field order and literals are load-bearing: see the
// package comment.
func Preamble(collectionType, village string) string {
	return fmt.Sprintf(`{"collection_type":%q,"village":%q,"generated_at":%q,"item_count":%d,"items":[`,
		collectionType, village, SentinelGeneratedAt, DefaultItemCount)
}
