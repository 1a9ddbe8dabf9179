/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSiteConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{{
		name: "valid",
		yaml: "villages: [vernazza, manarola]\ncollections: [restaurants, hikes]\n",
	}, {
		name:    "no villages",
		yaml:    "collections: [restaurants]\n",
		wantErr: true,
	}, {
		name:    "no collections",
		yaml:    "villages: [vernazza]\n",
		wantErr: true,
	}, {
		name:    "malformed yaml",
		yaml:    "villages: [unclosed\n",
		wantErr: true,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "site.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatalf("writing config: %v", err)
			}
			sc, err := loadSiteConfig(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadSiteConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (len(sc.Villages) != 2 || len(sc.Collections) != 2) {
				t.Errorf("loadSiteConfig() = %+v, want 2 villages and 2 collections", sc)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := loadSiteConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("loadSiteConfig(missing) = nil, want error")
		}
	})
}

func TestContentTitle(t *testing.T) {
	tests := []struct {
		collectionType string
		village        string
		want           string
	}{
		{"restaurants", "vernazza", "Restaurants in Vernazza"},
		{"hikes", "manarola", "Hikes in Manarola"},
		{"weather", "riomaggiore", "Weather in Riomaggiore"},
	}
	for _, tt := range tests {
		if got := contentTitle(tt.collectionType, tt.village); got != tt.want {
			t.Errorf("contentTitle(%s, %s) = %q, want %q", tt.collectionType, tt.village, got, tt.want)
		}
	}
}
