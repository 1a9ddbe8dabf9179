/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"os"

	"chainguard.dev/agentpress/pipeline/batch"
	"chainguard.dev/agentpress/pipeline/metrics"
	"chainguard.dev/agentpress/pipeline/result"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results <batch-id>",
	Short: "Fetch and extract the results of an ended batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		save, _ := cmd.Flags().GetBool("save")
		sync, _ := cmd.Flags().GetBool("sync")

		client, err := cfg.anthropicClient()
		if err != nil {
			return err
		}
		controller, err := batch.New(client, cfg.AnthropicAPIKey,
			batch.WithMetrics(metrics.NewBatch("agentpress")))
		if err != nil {
			return err
		}

		mb, err := controller.Status(ctx, args[0])
		if err != nil {
			return err
		}
		if mb.ProcessingStatus != anthropic.MessageBatchProcessingStatusEnded {
			return fmt.Errorf("batch %s is still %s", mb.ID, mb.ProcessingStatus)
		}
		if mb.ResultsURL == "" {
			return fmt.Errorf("batch %s ended without a results URL", mb.ID)
		}

		records, err := controller.FetchResults(ctx, mb.ResultsURL)
		if err != nil {
			return err
		}
		extractions := result.ExtractAll(records)

		table := newTable(os.Stdout, "Custom ID", "Outcome", "Detail")
		for _, ex := range extractions {
			if ex.Success {
				table.Append([]string{ex.CustomID, "ok", ""})
			} else {
				table.Append([]string{ex.CustomID, "failed", ex.Err.Error()})
			}
		}
		if err := table.Render(); err != nil {
			return err
		}

		if save || sync {
			return saveExtractions(ctx, extractions, sync)
		}
		return nil
	},
}

func init() {
	resultsCmd.Flags().Bool("save", false, "save successful extractions as draft content pages")
	resultsCmd.Flags().Bool("sync", false, "open review PRs for saved drafts (implies --save)")
}
