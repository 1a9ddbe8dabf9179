/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package press defines the editorial entities the agent press moves through
// its pipeline: content pages under review, operator tasks, and question
// tickets awaiting a human answer. State transitions are validated here so
// that reconcilers never have to reason about legality themselves.
package press

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when an entity is asked to move to a state
// it cannot legally reach from its current one.
var ErrInvalidTransition = errors.New("invalid state transition")

// ContentStatus is the editorial state of a content page.
type ContentStatus string

const (
	ContentDraft            ContentStatus = "draft"
	ContentInReview         ContentStatus = "in_review"
	ContentChangesRequested ContentStatus = "changes_requested"
	ContentApproved         ContentStatus = "approved"
	ContentPublished        ContentStatus = "published"
)

// contentTransitions enumerates the legal editorial moves.
var contentTransitions = map[ContentStatus][]ContentStatus{
	ContentDraft:            {ContentInReview},
	ContentInReview:         {ContentApproved, ContentChangesRequested},
	ContentChangesRequested: {ContentInReview},
	ContentApproved:         {ContentPublished},
}

// Content is one content page moving through editorial review.
type Content struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Slug           string          `json:"slug"`
	Village        string          `json:"village,omitempty"`
	CollectionType string          `json:"collection_type,omitempty"`
	Body           json.RawMessage `json:"body,omitempty"`
	Status         ContentStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewContent creates a draft content page with a fresh id.
func NewContent(title, slug string) *Content {
	now := time.Now().UTC()
	return &Content{
		ID:        uuid.NewString(),
		Title:     title,
		Slug:      slug,
		Status:    ContentDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the content to the given status, enforcing the editorial
// state machine. Re-entering the current status is a conflict, not a no-op:
// callers that want idempotence check the status first.
func (c *Content) Transition(to ContentStatus) error {
	for _, allowed := range contentTransitions[c.Status] {
		if allowed == to {
			c.Status = to
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("content %s: %s -> %s: %w", c.ID, c.Status, to, ErrInvalidTransition)
}

// TaskStatus is the state of an operator task.
type TaskStatus string

const (
	TaskOpen TaskStatus = "open"
	TaskDone TaskStatus = "done"
)

// Task is a unit of operator work mirrored to a GitHub issue.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates an open task with a fresh id.
func NewTask(title, description string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      TaskOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TicketStatus is the state of a question ticket.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketAnswered TicketStatus = "answered"
)

// Ticket is a question raised by an agent that needs a human answer, mirrored
// to a labeled GitHub issue.
type Ticket struct {
	ID         string       `json:"id"`
	Question   string       `json:"question"`
	Answer     string       `json:"answer,omitempty"`
	AnsweredBy string       `json:"answered_by,omitempty"`
	Status     TicketStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewTicket creates an open ticket with a fresh id.
func NewTicket(question string) *Ticket {
	now := time.Now().UTC()
	return &Ticket{
		ID:        uuid.NewString(),
		Question:  question,
		Status:    TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkAnswered records the reviewer's answer on an open ticket. Answering an
// already-answered ticket is a conflict.
func (t *Ticket) MarkAnswered(answer, reviewer string) error {
	if t.Status != TicketOpen {
		return fmt.Errorf("ticket %s already %s: %w", t.ID, t.Status, ErrInvalidTransition)
	}
	t.Answer = answer
	t.AnsweredBy = reviewer
	t.Status = TicketAnswered
	t.UpdatedAt = time.Now().UTC()
	return nil
}
