/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"chainguard.dev/agentpress/press"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror press decisions to GitHub",
}

var syncPushCmd = &cobra.Command{
	Use:   "push <content-id>",
	Short: "Open a review pull request for a content page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := cfg.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		c, err := st.GetContent(ctx, args[0])
		if err != nil {
			return err
		}
		syncer, err := cfg.syncStack(ctx, st)
		if err != nil {
			return err
		}
		if err := syncer.SyncContent(ctx, c); err != nil {
			return err
		}
		fmt.Printf("Opened review PR for %s\n", c.ID)
		return nil
	},
}

var syncApproveCmd = &cobra.Command{
	Use:   "approve <content-id>",
	Short: "Approve the review pull request for a content page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := cfg.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		syncer, err := cfg.syncStack(ctx, st)
		if err != nil {
			return err
		}
		return syncer.SyncApproval(ctx, args[0])
	},
}

var syncRejectCmd = &cobra.Command{
	Use:   "reject <content-id>",
	Short: "Request changes on the review pull request for a content page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reason, _ := cmd.Flags().GetString("reason")

		st, err := cfg.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		syncer, err := cfg.syncStack(ctx, st)
		if err != nil {
			return err
		}
		return syncer.SyncRejection(ctx, args[0], reason)
	},
}

var syncPublishCmd = &cobra.Command{
	Use:   "publish <content-id>",
	Short: "Merge the approved review pull request for a content page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := cfg.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		c, err := st.GetContent(ctx, args[0])
		if err != nil {
			return err
		}
		syncer, err := cfg.syncStack(ctx, st)
		if err != nil {
			return err
		}
		if err := syncer.SyncPublish(ctx, c.ID); err != nil {
			return err
		}
		// Merges deliver no webhook we act on, so publication is recorded here.
		if err := c.Transition(press.ContentPublished); err != nil {
			return err
		}
		if err := st.PutContent(ctx, c); err != nil {
			return err
		}
		fmt.Printf("Published %s\n", c.ID)
		return nil
	},
}

func init() {
	syncRejectCmd.Flags().String("reason", "", "review comment explaining the requested changes")

	syncCmd.AddCommand(syncPushCmd, syncApproveCmd, syncRejectCmd, syncPublishCmd)
}
