/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package webhookreconciler applies GitHub webhook deliveries to press state.
//
// Webhooks are at-least-once and arrive for plenty of activity the press does
// not own, so every handler is defensive: payloads that don't concern us, or
// reference entities we don't know, are logged and dropped rather than
// errored. Returning nil keeps GitHub from endlessly redelivering events we
// can never act on.
package webhookreconciler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"chainguard.dev/agentpress/press"
	"chainguard.dev/agentpress/press/store"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
)

// DefaultReviewerLogin is the GitHub login whose comments answer question
// tickets when no reviewer is configured.
const DefaultReviewerLogin = "editor-in-chief"

// ticketLabel marks issues whose comments may answer tickets.
const ticketLabel = "question-ticket"

// contentBranchPattern matches head branches owned by the press.
var contentBranchPattern = regexp.MustCompile(`^content/(.+)$`)

// Option configures a Reconciler.
type Option func(*Reconciler) error

// WithReviewerLogin sets the GitHub login treated as the privileged reviewer.
func WithReviewerLogin(login string) Option {
	return func(r *Reconciler) error {
		if login == "" {
			return errors.New("reviewer login cannot be empty")
		}
		r.reviewerLogin = login
		return nil
	}
}

// Reconciler folds webhook payloads into the press store.
type Reconciler struct {
	store         store.Interface
	reviewerLogin string
}

// New creates a Reconciler over the given store.
func New(st store.Interface, opts ...Option) (*Reconciler, error) {
	if st == nil {
		return nil, errors.New("store cannot be nil")
	}
	r := &Reconciler{
		store:         st,
		reviewerLogin: DefaultReviewerLogin,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// PROpened handles an opened or reopened pull request. PRs whose head branch
// doesn't match content/{id}, or that name a content page we don't know, are
// dropped. The mapping is overwritten unconditionally so a PR reopened under
// a new number stays reachable. The page moves to in_review from draft and,
// after a reviewer requested changes, back to in_review when the author
// pushes fixes and the PR comes around again.
func (r *Reconciler) PROpened(ctx context.Context, pr *github.PullRequest) error {
	log := clog.FromContext(ctx).With("pr", pr.GetNumber())

	head := pr.GetHead().GetRef()
	m := contentBranchPattern.FindStringSubmatch(head)
	if m == nil {
		log.With("head", head).Warn("PR head is not a content branch, dropping")
		return nil
	}
	contentID := m[1]

	c, err := r.store.GetContent(ctx, contentID)
	if errors.Is(err, store.ErrNotFound) {
		log.With("content", contentID).Warn("PR references unknown content, dropping")
		return nil
	} else if err != nil {
		return fmt.Errorf("looking up content %s: %w", contentID, err)
	}

	if err := r.store.PutMapping(ctx, store.Mapping{
		EntityType: store.EntityContent,
		EntityID:   contentID,
		GitHubType: store.GitHubPR,
		Number:     pr.GetNumber(),
		URL:        pr.GetHTMLURL(),
		Branch:     head,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("recording mapping: %w", err)
	}

	if c.Status == press.ContentInReview {
		log.With("content", contentID).Info("content already in review, mapping refreshed")
		return nil
	}
	if err := c.Transition(press.ContentInReview); err != nil {
		if errors.Is(err, press.ErrInvalidTransition) {
			log.With("content", contentID, "status", c.Status).Warn("content cannot enter review, mapping refreshed")
			return nil
		}
		return fmt.Errorf("moving content %s to review: %w", contentID, err)
	}
	if err := r.store.PutContent(ctx, c); err != nil {
		return fmt.Errorf("saving content %s: %w", contentID, err)
	}
	log.With("content", contentID).Info("content entered review")
	return nil
}

// PRReview handles a submitted review. Approvals and change requests move the
// page; every other review state (commented, dismissed) is ignored.
func (r *Reconciler) PRReview(ctx context.Context, pr *github.PullRequest, review *github.PullRequestReview) error {
	log := clog.FromContext(ctx).With("pr", pr.GetNumber())

	var to press.ContentStatus
	switch review.GetState() {
	case "approved":
		to = press.ContentApproved
	case "changes_requested":
		to = press.ContentChangesRequested
	default:
		log.With("state", review.GetState()).Info("ignoring review state")
		return nil
	}

	m, err := r.store.MappingByNumber(ctx, store.GitHubPR, pr.GetNumber())
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("review on unmapped PR, dropping")
		return nil
	} else if err != nil {
		return fmt.Errorf("looking up PR #%d: %w", pr.GetNumber(), err)
	}

	c, err := r.store.GetContent(ctx, m.EntityID)
	if errors.Is(err, store.ErrNotFound) {
		log.With("content", m.EntityID).Warn("mapping points at unknown content, dropping")
		return nil
	} else if err != nil {
		return fmt.Errorf("looking up content %s: %w", m.EntityID, err)
	}

	if c.Status == to {
		log.With("content", c.ID, "status", to).Info("content already there, redelivery dropped")
		return nil
	}
	if err := c.Transition(to); err != nil {
		log.With("content", c.ID, "status", c.Status, "to", to).Warn("review does not apply to current status, dropping")
		return nil
	}
	if err := r.store.PutContent(ctx, c); err != nil {
		return fmt.Errorf("saving content %s: %w", c.ID, err)
	}
	log.With("content", c.ID, "status", to).Info("review applied")
	return nil
}

// IssueComment handles a comment on an issue. Only comments by the privileged
// reviewer on issues labeled as question tickets answer the underlying
// ticket; everything else is discussion and is ignored.
func (r *Reconciler) IssueComment(ctx context.Context, issue *github.Issue, comment *github.IssueComment) error {
	log := clog.FromContext(ctx).With("issue", issue.GetNumber())

	if !hasLabel(issue, ticketLabel) {
		log.Info("comment on unlabeled issue, ignoring")
		return nil
	}
	if !r.isPrivileged(comment) {
		log.With("author", comment.GetUser().GetLogin()).Info("comment from non-reviewer, ignoring")
		return nil
	}

	m, err := r.store.MappingByNumber(ctx, store.GitHubIssue, issue.GetNumber())
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("comment on unmapped issue, dropping")
		return nil
	} else if err != nil {
		return fmt.Errorf("looking up issue #%d: %w", issue.GetNumber(), err)
	}
	if m.EntityType != store.EntityTicket {
		log.With("entity", m.EntityType).Info("issue is not a ticket, ignoring")
		return nil
	}

	ticket, err := r.store.GetTicket(ctx, m.EntityID)
	if errors.Is(err, store.ErrNotFound) {
		log.With("ticket", m.EntityID).Warn("mapping points at unknown ticket, dropping")
		return nil
	} else if err != nil {
		return fmt.Errorf("looking up ticket %s: %w", m.EntityID, err)
	}

	if ticket.Status != press.TicketOpen {
		log.With("ticket", ticket.ID).Info("ticket already answered, redelivery dropped")
		return nil
	}
	if err := ticket.MarkAnswered(comment.GetBody(), comment.GetUser().GetLogin()); err != nil {
		return fmt.Errorf("answering ticket %s: %w", ticket.ID, err)
	}
	if err := r.store.PutTicket(ctx, ticket); err != nil {
		return fmt.Errorf("saving ticket %s: %w", ticket.ID, err)
	}
	log.With("ticket", ticket.ID, "reviewer", ticket.AnsweredBy).Info("ticket answered")
	return nil
}

// isPrivileged reports whether a comment author may answer tickets: either
// the configured reviewer login or a repository owner.
func (r *Reconciler) isPrivileged(comment *github.IssueComment) bool {
	if comment.GetUser().GetLogin() == r.reviewerLogin {
		return true
	}
	return comment.GetAuthorAssociation() == "OWNER"
}

func hasLabel(issue *github.Issue, name string) bool {
	return slices.ContainsFunc(issue.Labels, func(l *github.Label) bool {
		return l.GetName() == name
	})
}
