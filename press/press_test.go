/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package press

import (
	"errors"
	"testing"
)

func TestContentTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    ContentStatus
		to      ContentStatus
		wantErr bool
	}{{
		name: "draft to in_review",
		from: ContentDraft,
		to:   ContentInReview,
	}, {
		name: "in_review to approved",
		from: ContentInReview,
		to:   ContentApproved,
	}, {
		name: "in_review to changes_requested",
		from: ContentInReview,
		to:   ContentChangesRequested,
	}, {
		name: "changes_requested back to in_review",
		from: ContentChangesRequested,
		to:   ContentInReview,
	}, {
		name: "approved to published",
		from: ContentApproved,
		to:   ContentPublished,
	}, {
		name:    "draft straight to published",
		from:    ContentDraft,
		to:      ContentPublished,
		wantErr: true,
	}, {
		name:    "published is terminal",
		from:    ContentPublished,
		to:      ContentInReview,
		wantErr: true,
	}, {
		name:    "re-entering current state is a conflict",
		from:    ContentInReview,
		to:      ContentInReview,
		wantErr: true,
	}, {
		name:    "approved cannot regress",
		from:    ContentApproved,
		to:      ContentChangesRequested,
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContent("Vernazza Restaurants", "vernazza-restaurants")
			c.Status = tt.from

			err := c.Transition(tt.to)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				if c.Status != tt.from {
					t.Errorf("status mutated on failed transition: %s", c.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transition(%s) error = %v", tt.to, err)
			}
			if c.Status != tt.to {
				t.Errorf("status = %s, want %s", c.Status, tt.to)
			}
		})
	}
}

func TestNewContentDefaults(t *testing.T) {
	c := NewContent("Hiking Guide", "hiking-guide")
	if c.ID == "" {
		t.Error("expected generated id")
	}
	if c.Status != ContentDraft {
		t.Errorf("status = %s, want draft", c.Status)
	}
}

func TestTicketMarkAnswered(t *testing.T) {
	tk := NewTicket("Is the Via dell'Amore open this season?")
	if err := tk.MarkAnswered("Reopened in July.", "editor-in-chief"); err != nil {
		t.Fatalf("MarkAnswered() error = %v", err)
	}
	if tk.Status != TicketAnswered || tk.Answer == "" || tk.AnsweredBy != "editor-in-chief" {
		t.Errorf("ticket not answered correctly: %+v", tk)
	}

	if err := tk.MarkAnswered("Again.", "someone-else"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second answer should conflict, got %v", err)
	}
}
