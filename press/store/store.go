/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package store persists the reconciliation state of the agent press: the
// mapping table binding internal entities to GitHub artifacts, and the
// entities themselves. Two implementations share one interface: an in-memory
// store for tests and single-process runs, and a SQLite store for anything
// that must survive a restart. Lookups by GitHub number go through an
// explicit secondary index in both.
package store

import (
	"context"
	"errors"
	"time"

	"chainguard.dev/agentpress/press"
)

// timeNow is a seam for retention tests.
var timeNow = time.Now

// ErrNotFound is returned for lookups that miss. Callers in webhook paths
// treat it as a warn-and-drop condition, never a failure.
var ErrNotFound = errors.New("not found")

// EntityType discriminates what kind of internal entity a mapping binds.
type EntityType string

const (
	EntityContent EntityType = "content"
	EntityTask    EntityType = "task"
	EntityTicket  EntityType = "ticket"
)

// GitHubType discriminates what kind of GitHub artifact a mapping points at.
type GitHubType string

const (
	GitHubPR    GitHubType = "pr"
	GitHubIssue GitHubType = "issue"
)

// Mapping binds one internal entity to one GitHub artifact. At most one
// mapping exists per (entity type, entity id) pair.
type Mapping struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	GitHubType GitHubType `json:"github_type"`
	Number     int        `json:"github_number"`
	URL        string     `json:"github_url"`
	Branch     string     `json:"branch,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RetentionPolicy bounds how much reconciliation state is kept. Zero values
// disable the corresponding bound.
type RetentionPolicy struct {
	// MaxAge evicts mappings created longer ago than this.
	MaxAge time.Duration
	// MaxCount evicts the oldest mappings beyond this count.
	MaxCount int
}

// Interface is the storage contract shared by the in-memory and SQLite
// implementations.
type Interface interface {
	// GetMapping returns the mapping for an entity, or ErrNotFound.
	GetMapping(ctx context.Context, entityType EntityType, entityID string) (*Mapping, error)
	// PutMapping inserts or overwrites the mapping for its entity.
	PutMapping(ctx context.Context, m Mapping) error
	// MappingByNumber returns the mapping for a GitHub artifact via the
	// secondary index, or ErrNotFound.
	MappingByNumber(ctx context.Context, githubType GitHubType, number int) (*Mapping, error)
	// ListMappings returns all mappings ordered by creation time.
	ListMappings(ctx context.Context) ([]Mapping, error)
	// SweepMappings applies the retention policy and reports how many
	// mappings were evicted.
	SweepMappings(ctx context.Context, policy RetentionPolicy) (int, error)

	GetContent(ctx context.Context, id string) (*press.Content, error)
	PutContent(ctx context.Context, c *press.Content) error
	ListContent(ctx context.Context) ([]*press.Content, error)

	GetTask(ctx context.Context, id string) (*press.Task, error)
	PutTask(ctx context.Context, t *press.Task) error

	GetTicket(ctx context.Context, id string) (*press.Ticket, error)
	PutTicket(ctx context.Context, t *press.Ticket) error

	Close() error
}
