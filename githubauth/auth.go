/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubauth builds authenticated GitHub clients for the press.
//
// Two credential shapes are supported: a personal access token for local use
// and the generate CLI, and a GitHub App installation for the long-running
// webhook server.
package githubauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

// NewTokenClient returns a client authenticated with a personal access token.
func NewTokenClient(ctx context.Context, token string) (*github.Client, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts)), nil
}

// NewAppClient returns a client authenticated as a GitHub App installation,
// reading the App's private key from privateKeyPath. Tokens are minted and
// refreshed per request by the installation transport.
func NewAppClient(appID, installationID int64, privateKeyPath string) (*github.Client, error) {
	if appID == 0 || installationID == 0 {
		return nil, errors.New("app id and installation id are required")
	}
	itr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading app key from %s: %w", privateKeyPath, err)
	}
	return github.NewClient(&http.Client{Transport: itr}), nil
}
