/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package contentstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"golang.org/x/sync/errgroup"
)

// ErrAbsent is returned by ReadFile when the requested path does not exist on
// the requested branch. Callers probe for files that may legitimately not be
// there yet, so absence is a sentinel rather than a wrapped API error.
var ErrAbsent = errors.New("file absent")

// defaultBaseBranch is the branch reads and commits target unless overridden.
const defaultBaseBranch = "main"

// blobUploadConcurrency bounds parallel blob creation in CommitFiles.
const blobUploadConcurrency = 8

// Option configures a Store.
type Option func(*Store) error

// WithBaseBranch overrides the default base branch.
func WithBaseBranch(branch string) Option {
	return func(s *Store) error {
		if branch == "" {
			return errors.New("base branch cannot be empty")
		}
		s.baseBranch = branch
		return nil
	}
}

// Store accesses content files in one GitHub repository.
type Store struct {
	client     *github.Client
	owner      string
	repo       string
	baseBranch string
}

// New creates a Store for the given repository.
func New(client *github.Client, owner, repo string, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if owner == "" || repo == "" {
		return nil, errors.New("owner and repo are required")
	}
	s := &Store{
		client:     client,
		owner:      owner,
		repo:       repo,
		baseBranch: defaultBaseBranch,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// BaseBranch returns the branch reads default to.
func (s *Store) BaseBranch() string { return s.baseBranch }

// File is one content file together with the SHA needed to update it.
type File struct {
	Path string
	Data []byte
	// SHA is the blob SHA of the version read. WriteFile passes it back to
	// GitHub as the optimistic concurrency token.
	SHA string
}

// ReadFile fetches a file from the given branch (the base branch when branch
// is empty). A missing path yields ErrAbsent.
func (s *Store) ReadFile(ctx context.Context, path, branch string) (*File, error) {
	if branch == "" {
		branch = s.baseBranch
	}
	content, _, resp, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path, &github.RepositoryContentGetOptions{
		Ref: branch,
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s on %s: %w", path, branch, ErrAbsent)
		}
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	if content == nil {
		return nil, fmt.Errorf("%s on %s is a directory, not a file", path, branch)
	}
	raw, err := content.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &File{
		Path: path,
		Data: []byte(raw),
		SHA:  content.GetSHA(),
	}, nil
}

// WriteFile creates or updates a single file on the given branch. For updates
// the File's SHA must be the blob SHA previously read; GitHub rejects the
// write if the file moved underneath us.
func (s *Store) WriteFile(ctx context.Context, f File, branch, message string) error {
	if branch == "" {
		branch = s.baseBranch
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: f.Data,
		Branch:  github.Ptr(branch),
	}
	if f.SHA != "" {
		opts.SHA = github.Ptr(f.SHA)
	}
	if _, _, err := s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, f.Path, opts); err != nil {
		return fmt.Errorf("writing %s on %s: %w", f.Path, branch, err)
	}
	return nil
}

// EnsureBranch makes sure the named branch exists, creating it from the base
// branch head when it doesn't. Returns true when the branch already existed.
func (s *Store) EnsureBranch(ctx context.Context, branch string) (bool, error) {
	_, resp, err := s.client.Git.GetRef(ctx, s.owner, s.repo, "heads/"+branch)
	if err == nil {
		return true, nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return false, fmt.Errorf("looking up branch %s: %w", branch, err)
	}

	base, _, err := s.client.Git.GetRef(ctx, s.owner, s.repo, "heads/"+s.baseBranch)
	if err != nil {
		return false, fmt.Errorf("looking up base branch %s: %w", s.baseBranch, err)
	}
	if _, _, err := s.client.Git.CreateRef(ctx, s.owner, s.repo, github.CreateRef{
		Ref: "refs/heads/" + branch,
		SHA: base.Object.GetSHA(),
	}); err != nil {
		return false, fmt.Errorf("creating branch %s: %w", branch, err)
	}
	clog.FromContext(ctx).With("branch", branch).Info("created branch")
	return false, nil
}

// CommitFiles writes all files as a single commit on the given branch. Blob
// uploads fan out in parallel; the tree, commit, and ref update are one
// sequence on top of the current branch head, so the whole batch lands
// atomically or not at all.
func (s *Store) CommitFiles(ctx context.Context, branch, message string, files []File) (string, error) {
	if len(files) == 0 {
		return "", errors.New("no files to commit")
	}
	if branch == "" {
		branch = s.baseBranch
	}
	log := clog.FromContext(ctx)

	head, _, err := s.client.Git.GetRef(ctx, s.owner, s.repo, "heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("looking up branch %s: %w", branch, err)
	}
	headSHA := head.Object.GetSHA()

	parent, _, err := s.client.Git.GetCommit(ctx, s.owner, s.repo, headSHA)
	if err != nil {
		return "", fmt.Errorf("fetching head commit %s: %w", headSHA, err)
	}

	entries := make([]*github.TreeEntry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobUploadConcurrency)
	for i, f := range files {
		g.Go(func() error {
			blob, _, err := s.client.Git.CreateBlob(gctx, s.owner, s.repo, github.Blob{
				Content:  github.Ptr(string(f.Data)),
				Encoding: github.Ptr("utf-8"),
			})
			if err != nil {
				return fmt.Errorf("creating blob for %s: %w", f.Path, err)
			}
			entries[i] = &github.TreeEntry{
				Path: github.Ptr(f.Path),
				Mode: github.Ptr("100644"),
				Type: github.Ptr("blob"),
				SHA:  blob.SHA,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	tree, _, err := s.client.Git.CreateTree(ctx, s.owner, s.repo, parent.Tree.GetSHA(), entries)
	if err != nil {
		return "", fmt.Errorf("creating tree: %w", err)
	}

	commit, _, err := s.client.Git.CreateCommit(ctx, s.owner, s.repo, github.Commit{
		Message: github.Ptr(message),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: github.Ptr(headSHA)}},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("creating commit: %w", err)
	}

	if _, _, err := s.client.Git.UpdateRef(ctx, s.owner, s.repo, "refs/heads/"+branch, github.UpdateRef{
		SHA:   commit.GetSHA(),
		Force: github.Ptr(false),
	}); err != nil {
		return "", fmt.Errorf("updating branch %s: %w", branch, err)
	}

	log.With("branch", branch, "files", len(files), "sha", commit.GetSHA()).Info("committed files")
	return commit.GetSHA(), nil
}
