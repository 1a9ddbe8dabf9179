/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// The agentpress command drives the travel-guide content pipeline: it
// generates collection drafts through the Anthropic Message Batches API,
// opens review pull requests for them, and serves the webhook endpoint that
// folds editorial decisions back into press state.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "agentpress",
	Short:         "Multi-agent press for travel guide content",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// A .env file is a local convenience; absence is not an error.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			clog.FromContext(cmd.Context()).With("error", err).Warn("skipping .env file")
		}
		return envconfig.Process(cmd.Context(), &cfg)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd, statusCmd, resultsCmd, contentCmd, syncCmd, serveCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		clog.FatalContextf(ctx, "%v", err)
	}
}
