/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"os"
	"strconv"

	"chainguard.dev/agentpress/pipeline/batch"
	"chainguard.dev/agentpress/pipeline/retry"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <batch-id>",
	Short: "Show the processing status of a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := cfg.anthropicClient()
		if err != nil {
			return err
		}
		controller, err := batch.New(client, cfg.AnthropicAPIKey)
		if err != nil {
			return err
		}

		// Status checks are cheap and safe to retry on transient API errors.
		mb, err := retry.Do(ctx, retry.Default(), "batch status", retry.RetryableAPIError,
			func() (*anthropic.MessageBatch, error) {
				return controller.Status(ctx, args[0])
			})
		if err != nil {
			return err
		}

		fmt.Printf("Batch %s: %s\n\n", mb.ID, mb.ProcessingStatus)

		counts := mb.RequestCounts
		table := newTable(os.Stdout, "Outcome", "Requests")
		table.Append([]string{"processing", strconv.FormatInt(counts.Processing, 10)})
		table.Append([]string{"succeeded", strconv.FormatInt(counts.Succeeded, 10)})
		table.Append([]string{"errored", strconv.FormatInt(counts.Errored, 10)})
		table.Append([]string{"canceled", strconv.FormatInt(counts.Canceled, 10)})
		table.Append([]string{"expired", strconv.FormatInt(counts.Expired, 10)})
		if err := table.Render(); err != nil {
			return err
		}

		if mb.ProcessingStatus == anthropic.MessageBatchProcessingStatusEnded {
			fmt.Printf("\nFetch results with: agentpress results %s\n", mb.ID)
		}
		return nil
	},
}
