/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"time"

	"chainguard.dev/agentpress/contentstore"
	"chainguard.dev/agentpress/githubauth"
	"chainguard.dev/agentpress/press/store"
	"chainguard.dev/agentpress/reconcilers/syncreconciler"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	gogithub "github.com/google/go-github/v75/github"
)

type config struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	GitHubToken          string `env:"GITHUB_TOKEN"`
	GitHubOwner          string `env:"GITHUB_OWNER"`
	GitHubRepo           string `env:"GITHUB_REPO"`
	GitHubAppID          int64  `env:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `env:"GITHUB_INSTALLATION_ID"`
	GitHubPrivateKeyPath string `env:"GITHUB_PRIVATE_KEY_PATH"`
	WebhookSecret        string `env:"GITHUB_WEBHOOK_SECRET"`

	BaseBranch    string `env:"BASE_BRANCH, default=main"`
	ReviewerLogin string `env:"REVIEWER_LOGIN, default=editor-in-chief"`

	DataDir string `env:"AGENTPRESS_DATA_DIR, default=.agentpress"`
	Port    int    `env:"PORT, default=8080"`

	RetentionMaxAge   time.Duration `env:"RETENTION_MAX_AGE, default=2160h"`
	RetentionMaxCount int           `env:"RETENTION_MAX_COUNT, default=10000"`
}

var cfg config

func (c *config) anthropicClient() (anthropic.Client, error) {
	if c.AnthropicAPIKey == "" {
		return anthropic.Client{}, errors.New("ANTHROPIC_API_KEY is required")
	}
	return anthropic.NewClient(option.WithAPIKey(c.AnthropicAPIKey)), nil
}

// githubClient prefers App installation credentials and falls back to a
// personal access token.
func (c *config) githubClient(ctx context.Context) (*gogithub.Client, error) {
	if c.GitHubAppID != 0 {
		return githubauth.NewAppClient(c.GitHubAppID, c.GitHubInstallationID, c.GitHubPrivateKeyPath)
	}
	if c.GitHubToken != "" {
		return githubauth.NewTokenClient(ctx, c.GitHubToken)
	}
	return nil, errors.New("either GITHUB_APP_ID or GITHUB_TOKEN is required")
}

func (c *config) openStore() (store.Interface, error) {
	return store.Open(c.DataDir)
}

func (c *config) retention() store.RetentionPolicy {
	return store.RetentionPolicy{
		MaxAge:   c.RetentionMaxAge,
		MaxCount: c.RetentionMaxCount,
	}
}

// syncStack assembles everything SyncContent and friends need.
func (c *config) syncStack(ctx context.Context, st store.Interface) (*syncreconciler.Reconciler, error) {
	if c.GitHubOwner == "" || c.GitHubRepo == "" {
		return nil, errors.New("GITHUB_OWNER and GITHUB_REPO are required")
	}
	client, err := c.githubClient(ctx)
	if err != nil {
		return nil, err
	}
	files, err := contentstore.New(client, c.GitHubOwner, c.GitHubRepo,
		contentstore.WithBaseBranch(c.BaseBranch))
	if err != nil {
		return nil, err
	}
	return syncreconciler.New(client, st, files, c.GitHubOwner, c.GitHubRepo)
}
