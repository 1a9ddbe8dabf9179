/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"sort"
	"sync"

	"chainguard.dev/agentpress/press"
)

type mappingKey struct {
	entityType EntityType
	entityID   string
}

type numberKey struct {
	githubType GitHubType
	number     int
}

// Memory is the in-process store. All methods are safe for concurrent use:
// webhook handlers and outbound sync may touch the same tables from
// different goroutines.
type Memory struct {
	mu       sync.Mutex
	mappings map[mappingKey]Mapping
	byNumber map[numberKey]mappingKey
	content  map[string]press.Content
	tasks    map[string]press.Task
	tickets  map[string]press.Ticket
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		mappings: make(map[mappingKey]Mapping),
		byNumber: make(map[numberKey]mappingKey),
		content:  make(map[string]press.Content),
		tasks:    make(map[string]press.Task),
		tickets:  make(map[string]press.Ticket),
	}
}

var _ Interface = (*Memory)(nil)

func (s *Memory) GetMapping(_ context.Context, entityType EntityType, entityID string) (*Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[mappingKey{entityType, entityID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *Memory) PutMapping(_ context.Context, m Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := mappingKey{m.EntityType, m.EntityID}
	if old, ok := s.mappings[key]; ok {
		delete(s.byNumber, numberKey{old.GitHubType, old.Number})
	}
	s.mappings[key] = m
	s.byNumber[numberKey{m.GitHubType, m.Number}] = key
	return nil
}

func (s *Memory) MappingByNumber(_ context.Context, githubType GitHubType, number int) (*Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byNumber[numberKey{githubType, number}]
	if !ok {
		return nil, ErrNotFound
	}
	m := s.mappings[key]
	return &m, nil
}

func (s *Memory) ListMappings(_ context.Context) ([]Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Mapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) SweepMappings(_ context.Context, policy RetentionPolicy) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	remove := func(key mappingKey) {
		m := s.mappings[key]
		delete(s.byNumber, numberKey{m.GitHubType, m.Number})
		delete(s.mappings, key)
		evicted++
	}

	if policy.MaxAge > 0 {
		cutoff := timeNow().Add(-policy.MaxAge)
		for key, m := range s.mappings {
			if m.CreatedAt.Before(cutoff) {
				remove(key)
			}
		}
	}

	if policy.MaxCount > 0 && len(s.mappings) > policy.MaxCount {
		ordered := make([]Mapping, 0, len(s.mappings))
		for _, m := range s.mappings {
			ordered = append(ordered, m)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].CreatedAt.Before(ordered[j].CreatedAt) })
		for _, m := range ordered[:len(ordered)-policy.MaxCount] {
			remove(mappingKey{m.EntityType, m.EntityID})
		}
	}

	return evicted, nil
}

func (s *Memory) GetContent(_ context.Context, id string) (*press.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.content[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *Memory) PutContent(_ context.Context, c *press.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[c.ID] = *c
	return nil
}

func (s *Memory) ListContent(_ context.Context) ([]*press.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*press.Content, 0, len(s.content))
	for _, c := range s.content {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) GetTask(_ context.Context, id string) (*press.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *Memory) PutTask(_ context.Context, t *press.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
	return nil
}

func (s *Memory) GetTicket(_ context.Context, id string) (*press.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *Memory) PutTicket(_ context.Context, t *press.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = *t
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Memory) Close() error { return nil }
