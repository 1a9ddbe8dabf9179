/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package syncreconciler pushes editorial state out to GitHub.
//
// Every operation is idempotent against the mapping table: the first call for
// an entity creates the GitHub artifact and records the mapping, and any
// replay finds the mapping and does nothing. Operations that act on an
// existing artifact (approve, reject, publish) warn and return nil when no
// mapping exists, since an unsynced entity has nothing to act on.
//
// GitHub API failures propagate to the caller. Partially created resources
// are not rolled back; the next attempt picks up from the mapping table.
package syncreconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/agentpress/collections"
	"chainguard.dev/agentpress/contentstore"
	"chainguard.dev/agentpress/press"
	"chainguard.dev/agentpress/press/store"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"github.com/shurcooL/githubv4"
)

// ErrNotMergeable is returned by SyncPublish when GitHub reports the PR as
// conflicting with its base branch.
var ErrNotMergeable = errors.New("pull request is not mergeable")

// Labels applied to the GitHub artifacts we create.
const (
	LabelContent = "agent-press"
	LabelTicket  = "question-ticket"
	LabelTask    = "press-task"
)

// Option configures a Reconciler.
type Option func(*Reconciler) error

// WithGraphQLClient overrides the GraphQL client used for mergeability
// queries. Tests point this at an httptest server.
func WithGraphQLClient(gql *githubv4.Client) Option {
	return func(r *Reconciler) error {
		r.gql = gql
		return nil
	}
}

// WithBaseBranch overrides the base branch content PRs target.
func WithBaseBranch(branch string) Option {
	return func(r *Reconciler) error {
		if branch == "" {
			return errors.New("base branch cannot be empty")
		}
		r.baseBranch = branch
		return nil
	}
}

// Reconciler mirrors press entities to pull requests and issues in one
// GitHub repository.
type Reconciler struct {
	client     *github.Client
	gql        *githubv4.Client
	store      store.Interface
	files      *contentstore.Store
	owner      string
	repo       string
	baseBranch string
}

// New creates a Reconciler for the given repository.
func New(client *github.Client, st store.Interface, files *contentstore.Store, owner, repo string, opts ...Option) (*Reconciler, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if st == nil {
		return nil, errors.New("store cannot be nil")
	}
	if files == nil {
		return nil, errors.New("content store cannot be nil")
	}
	if owner == "" || repo == "" {
		return nil, errors.New("owner and repo are required")
	}
	r := &Reconciler{
		client:     client,
		gql:        githubv4.NewClient(client.Client()),
		store:      st,
		files:      files,
		owner:      owner,
		repo:       repo,
		baseBranch: files.BaseBranch(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ContentBranch is the deterministic branch name for a content page.
func ContentBranch(contentID string) string {
	return "content/" + contentID
}

// contentPath derives where a content page lives in the repository.
func contentPath(c *press.Content) string {
	if c.Village != "" && c.CollectionType != "" {
		return collections.VillageItemPath(c.CollectionType, c.Village, c.Slug)
	}
	return collections.PagePath(c.Slug)
}

// SyncContent opens a review PR for a content page. If the page already has a
// PR mapping this is a logged no-op, which makes redelivered sync events safe.
func (r *Reconciler) SyncContent(ctx context.Context, c *press.Content) error {
	log := clog.FromContext(ctx).With("content", c.ID)

	if m, err := r.store.GetMapping(ctx, store.EntityContent, c.ID); err == nil {
		log.With("pr", m.Number).Info("content already synced, skipping")
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up content mapping: %w", err)
	}

	branch := ContentBranch(c.ID)
	if _, err := r.files.EnsureBranch(ctx, branch); err != nil {
		return fmt.Errorf("ensuring branch: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing content: %w", err)
	}
	if _, err := r.files.CommitFiles(ctx, branch, fmt.Sprintf("Add %s for review", c.Title), []contentstore.File{{
		Path: contentPath(c),
		Data: data,
	}}); err != nil {
		return fmt.Errorf("committing content: %w", err)
	}

	pr, _, err := r.client.PullRequests.Create(ctx, r.owner, r.repo, &github.NewPullRequest{
		Title: github.Ptr(fmt.Sprintf("Review: %s", c.Title)),
		Body:  github.Ptr(prBody(c)),
		Head:  github.Ptr(branch),
		Base:  github.Ptr(r.baseBranch),
	})
	if err != nil {
		return fmt.Errorf("creating pull request: %w", err)
	}

	labels := []string{LabelContent}
	if c.CollectionType != "" {
		labels = append(labels, c.CollectionType)
	}
	if _, _, err := r.client.Issues.AddLabelsToIssue(ctx, r.owner, r.repo, pr.GetNumber(), labels); err != nil {
		return fmt.Errorf("adding labels: %w", err)
	}

	if err := r.store.PutMapping(ctx, store.Mapping{
		EntityType: store.EntityContent,
		EntityID:   c.ID,
		GitHubType: store.GitHubPR,
		Number:     pr.GetNumber(),
		URL:        pr.GetHTMLURL(),
		Branch:     branch,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("recording mapping: %w", err)
	}

	log.With("pr", pr.GetNumber()).Info("opened review PR")
	return nil
}

func prBody(c *press.Content) string {
	body := fmt.Sprintf("Generated content page `%s` is ready for editorial review.", c.Slug)
	if c.Village != "" {
		body += fmt.Sprintf("\n\n- Village: %s\n- Collection: %s", c.Village, c.CollectionType)
	}
	return body
}

// SyncApproval submits an approving review on the content page's PR.
func (r *Reconciler) SyncApproval(ctx context.Context, contentID string) error {
	return r.review(ctx, contentID, "APPROVE", "")
}

// SyncRejection submits a changes-requested review with the editor's reason.
func (r *Reconciler) SyncRejection(ctx context.Context, contentID, reason string) error {
	return r.review(ctx, contentID, "REQUEST_CHANGES", reason)
}

func (r *Reconciler) review(ctx context.Context, contentID, event, body string) error {
	log := clog.FromContext(ctx).With("content", contentID)

	m, err := r.store.GetMapping(ctx, store.EntityContent, contentID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("no PR mapping for content, skipping review")
		return nil
	} else if err != nil {
		return fmt.Errorf("looking up content mapping: %w", err)
	}

	review := &github.PullRequestReviewRequest{
		Event: github.Ptr(event),
	}
	if body != "" {
		review.Body = github.Ptr(body)
	}
	if _, _, err := r.client.PullRequests.CreateReview(ctx, r.owner, r.repo, m.Number, review); err != nil {
		return fmt.Errorf("creating %s review on #%d: %w", event, m.Number, err)
	}
	log.With("pr", m.Number, "event", event).Info("submitted review")
	return nil
}

// SyncPublish merges the content page's PR. GitHub's computed mergeability is
// checked first so a conflicting PR surfaces as ErrNotMergeable instead of a
// failed merge call.
func (r *Reconciler) SyncPublish(ctx context.Context, contentID string) error {
	log := clog.FromContext(ctx).With("content", contentID)

	m, err := r.store.GetMapping(ctx, store.EntityContent, contentID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("no PR mapping for content, skipping publish")
		return nil
	} else if err != nil {
		return fmt.Errorf("looking up content mapping: %w", err)
	}

	var query struct {
		Repository struct {
			PullRequest struct {
				Mergeable string // MERGEABLE, CONFLICTING, UNKNOWN
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}
	variables := map[string]any{
		"owner":  githubv4.String(r.owner),
		"repo":   githubv4.String(r.repo),
		"number": githubv4.Int(m.Number),
	}
	if err := r.gql.Query(ctx, &query, variables); err != nil {
		return fmt.Errorf("querying mergeability of #%d: %w", m.Number, err)
	}
	if query.Repository.PullRequest.Mergeable == "CONFLICTING" {
		return fmt.Errorf("#%d: %w", m.Number, ErrNotMergeable)
	}

	if _, _, err := r.client.PullRequests.Merge(ctx, r.owner, r.repo, m.Number, "Publish content", nil); err != nil {
		return fmt.Errorf("merging #%d: %w", m.Number, err)
	}
	log.With("pr", m.Number).Info("published content")
	return nil
}

// SyncQuestion opens a labeled issue for a question ticket. Replays find the
// existing mapping and do nothing.
func (r *Reconciler) SyncQuestion(ctx context.Context, ticket *press.Ticket) error {
	return r.syncIssue(ctx, store.EntityTicket, ticket.ID,
		fmt.Sprintf("Question: %s", truncate(ticket.Question, 80)),
		ticket.Question, LabelTicket)
}

// SyncTask opens a labeled issue for an operator task. Replays find the
// existing mapping and do nothing.
func (r *Reconciler) SyncTask(ctx context.Context, task *press.Task) error {
	return r.syncIssue(ctx, store.EntityTask, task.ID, task.Title, task.Description, LabelTask)
}

func (r *Reconciler) syncIssue(ctx context.Context, entityType store.EntityType, entityID, title, body, label string) error {
	log := clog.FromContext(ctx).With(string(entityType), entityID)

	if m, err := r.store.GetMapping(ctx, entityType, entityID); err == nil {
		log.With("issue", m.Number).Info("already synced, skipping")
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up %s mapping: %w", entityType, err)
	}

	issue, _, err := r.client.Issues.Create(ctx, r.owner, r.repo, &github.IssueRequest{
		Title:  github.Ptr(title),
		Body:   github.Ptr(body),
		Labels: &[]string{label},
	})
	if err != nil {
		return fmt.Errorf("creating issue: %w", err)
	}

	if err := r.store.PutMapping(ctx, store.Mapping{
		EntityType: entityType,
		EntityID:   entityID,
		GitHubType: store.GitHubIssue,
		Number:     issue.GetNumber(),
		URL:        issue.GetHTMLURL(),
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("recording mapping: %w", err)
	}

	log.With("issue", issue.GetNumber()).Info("opened issue")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
