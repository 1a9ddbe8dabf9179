/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package collections carries the registry of travel-guide collection types
// and the content-repository path layout. Collection schemas are descriptive
// data handed verbatim to the generation prompt; they are deliberately kept as
// opaque JSON blobs rather than Go types so that editing a schema never
// requires a code change.
package collections

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed schemas/*.json
var schemasFS embed.FS

// Collection is one registered collection type and its schema blob.
type Collection struct {
	Type   string
	Schema json.RawMessage
}

// Registry holds the known collection types, keyed by type name.
type Registry struct {
	byType map[string]Collection
}

// Load reads the embedded schema blobs into a registry. Each blob must be
// well-formed JSON; nothing beyond that is assumed about its shape.
func Load() (*Registry, error) {
	entries, err := fs.ReadDir(schemasFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("reading embedded schemas: %w", err)
	}

	r := &Registry{byType: make(map[string]Collection, len(entries))}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		raw, err := fs.ReadFile(schemasFS, path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", entry.Name(), err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("schema %s is not valid JSON", entry.Name())
		}
		r.byType[name] = Collection{Type: name, Schema: raw}
	}
	return r, nil
}

// Get returns the collection for the given type name.
func (r *Registry) Get(collectionType string) (Collection, bool) {
	c, ok := r.byType[collectionType]
	return c, ok
}

// Types returns all registered type names, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
