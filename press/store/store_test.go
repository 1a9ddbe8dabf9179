/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"chainguard.dev/agentpress/press"
)

// openStores returns every Interface implementation under test, so each
// behavior test runs against both the in-memory and SQLite stores.
func openStores(t *testing.T) map[string]Interface {
	t.Helper()
	sq, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Interface{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func TestMappingLifecycle(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.GetMapping(ctx, EntityContent, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetMapping(missing) = %v, want ErrNotFound", err)
			}

			m := Mapping{
				EntityType: EntityContent,
				EntityID:   "c-1",
				GitHubType: GitHubPR,
				Number:     42,
				URL:        "https://github.com/acme/guides/pull/42",
				Branch:     "content/c-1",
				CreatedAt:  time.Now().UTC(),
			}
			if err := s.PutMapping(ctx, m); err != nil {
				t.Fatalf("PutMapping() = %v", err)
			}

			got, err := s.GetMapping(ctx, EntityContent, "c-1")
			if err != nil {
				t.Fatalf("GetMapping() = %v", err)
			}
			if got.Number != 42 || got.GitHubType != GitHubPR || got.Branch != "content/c-1" {
				t.Errorf("GetMapping() = %+v, want number 42 on branch content/c-1", got)
			}

			byNum, err := s.MappingByNumber(ctx, GitHubPR, 42)
			if err != nil {
				t.Fatalf("MappingByNumber() = %v", err)
			}
			if byNum.EntityID != "c-1" {
				t.Errorf("MappingByNumber().EntityID = %q, want c-1", byNum.EntityID)
			}

			// Re-putting the same mapping is idempotent.
			if err := s.PutMapping(ctx, m); err != nil {
				t.Fatalf("PutMapping() again = %v", err)
			}
			all, err := s.ListMappings(ctx)
			if err != nil {
				t.Fatalf("ListMappings() = %v", err)
			}
			if len(all) != 1 {
				t.Errorf("ListMappings() returned %d mappings, want 1", len(all))
			}

			// Overwriting with a new number retires the old number lookup.
			m.Number = 43
			m.URL = "https://github.com/acme/guides/pull/43"
			if err := s.PutMapping(ctx, m); err != nil {
				t.Fatalf("PutMapping(overwrite) = %v", err)
			}
			if _, err := s.MappingByNumber(ctx, GitHubPR, 42); !errors.Is(err, ErrNotFound) {
				t.Errorf("MappingByNumber(stale 42) = %v, want ErrNotFound", err)
			}
			if byNum, err := s.MappingByNumber(ctx, GitHubPR, 43); err != nil || byNum.EntityID != "c-1" {
				t.Errorf("MappingByNumber(43) = %+v, %v, want entity c-1", byNum, err)
			}
		})
	}
}

func TestMappingTypeDiscrimination(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// The same number is legal for a PR and an issue at once.
			for _, m := range []Mapping{{
				EntityType: EntityContent,
				EntityID:   "c-1",
				GitHubType: GitHubPR,
				Number:     7,
				URL:        "https://github.com/acme/guides/pull/7",
				CreatedAt:  time.Now().UTC(),
			}, {
				EntityType: EntityTicket,
				EntityID:   "t-1",
				GitHubType: GitHubIssue,
				Number:     7,
				URL:        "https://github.com/acme/guides/issues/7",
				CreatedAt:  time.Now().UTC(),
			}} {
				if err := s.PutMapping(ctx, m); err != nil {
					t.Fatalf("PutMapping(%s) = %v", m.EntityType, err)
				}
			}

			pr, err := s.MappingByNumber(ctx, GitHubPR, 7)
			if err != nil || pr.EntityID != "c-1" {
				t.Errorf("MappingByNumber(pr, 7) = %+v, %v, want entity c-1", pr, err)
			}
			issue, err := s.MappingByNumber(ctx, GitHubIssue, 7)
			if err != nil || issue.EntityID != "t-1" {
				t.Errorf("MappingByNumber(issue, 7) = %+v, %v, want entity t-1", issue, err)
			}
		})
	}
}

func TestSweepMappings(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			for i, age := range []time.Duration{90 * 24 * time.Hour, 10 * 24 * time.Hour, time.Hour} {
				m := Mapping{
					EntityType: EntityContent,
					EntityID:   string(rune('a' + i)),
					GitHubType: GitHubPR,
					Number:     100 + i,
					URL:        "https://github.com/acme/guides/pull/x",
					CreatedAt:  now.Add(-age),
				}
				if err := s.PutMapping(ctx, m); err != nil {
					t.Fatalf("PutMapping() = %v", err)
				}
			}

			evicted, err := s.SweepMappings(ctx, RetentionPolicy{MaxAge: 30 * 24 * time.Hour})
			if err != nil {
				t.Fatalf("SweepMappings(age) = %v", err)
			}
			if evicted != 1 {
				t.Errorf("SweepMappings(age) evicted %d, want 1", evicted)
			}

			evicted, err = s.SweepMappings(ctx, RetentionPolicy{MaxCount: 1})
			if err != nil {
				t.Fatalf("SweepMappings(count) = %v", err)
			}
			if evicted != 1 {
				t.Errorf("SweepMappings(count) evicted %d, want 1", evicted)
			}

			rest, err := s.ListMappings(ctx)
			if err != nil {
				t.Fatalf("ListMappings() = %v", err)
			}
			if len(rest) != 1 || rest[0].EntityID != "c" {
				t.Errorf("ListMappings() = %+v, want only the newest mapping c", rest)
			}

			// A zero policy disables both bounds.
			if evicted, err := s.SweepMappings(ctx, RetentionPolicy{}); err != nil || evicted != 0 {
				t.Errorf("SweepMappings(zero) = %d, %v, want 0, nil", evicted, err)
			}
		})
	}
}

func TestContentRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.GetContent(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetContent(missing) = %v, want ErrNotFound", err)
			}

			c := press.NewContent("Restaurants in Vernazza", "vernazza-restaurants")
			c.Village = "vernazza"
			c.CollectionType = "restaurants"
			c.Body = []byte(`{"items":[{"name":"Belforte"}]}`)
			if err := s.PutContent(ctx, c); err != nil {
				t.Fatalf("PutContent() = %v", err)
			}

			got, err := s.GetContent(ctx, c.ID)
			if err != nil {
				t.Fatalf("GetContent() = %v", err)
			}
			if got.Status != press.ContentDraft || got.Village != "vernazza" || string(got.Body) != string(c.Body) {
				t.Errorf("GetContent() = %+v, want draft vernazza body preserved", got)
			}

			if err := got.Transition(press.ContentInReview); err != nil {
				t.Fatalf("Transition() = %v", err)
			}
			if err := s.PutContent(ctx, got); err != nil {
				t.Fatalf("PutContent(update) = %v", err)
			}

			all, err := s.ListContent(ctx)
			if err != nil {
				t.Fatalf("ListContent() = %v", err)
			}
			if len(all) != 1 || all[0].Status != press.ContentInReview {
				t.Errorf("ListContent() = %+v, want single in_review page", all)
			}
		})
	}
}

func TestTaskAndTicketRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			task := press.NewTask("Verify opening hours", "Call the three restaurants flagged by the agent.")
			if err := s.PutTask(ctx, task); err != nil {
				t.Fatalf("PutTask() = %v", err)
			}
			gotTask, err := s.GetTask(ctx, task.ID)
			if err != nil {
				t.Fatalf("GetTask() = %v", err)
			}
			if gotTask.Status != press.TaskOpen || gotTask.Title != task.Title {
				t.Errorf("GetTask() = %+v, want open task %q", gotTask, task.Title)
			}

			ticket := press.NewTicket("Is the Sentiero Azzurro open in May?")
			if err := s.PutTicket(ctx, ticket); err != nil {
				t.Fatalf("PutTicket() = %v", err)
			}
			gotTicket, err := s.GetTicket(ctx, ticket.ID)
			if err != nil {
				t.Fatalf("GetTicket() = %v", err)
			}
			if err := gotTicket.MarkAnswered("Opens mid-May.", "editor-in-chief"); err != nil {
				t.Fatalf("MarkAnswered() = %v", err)
			}
			if err := s.PutTicket(ctx, gotTicket); err != nil {
				t.Fatalf("PutTicket(update) = %v", err)
			}
			final, err := s.GetTicket(ctx, ticket.ID)
			if err != nil {
				t.Fatalf("GetTicket(final) = %v", err)
			}
			if final.Status != press.TicketAnswered || final.AnsweredBy != "editor-in-chief" {
				t.Errorf("GetTicket(final) = %+v, want answered by editor-in-chief", final)
			}
		})
	}
}
