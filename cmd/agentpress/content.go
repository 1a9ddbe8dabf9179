/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"os"

	"chainguard.dev/agentpress/press"
	"github.com/spf13/cobra"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Manage content pages",
}

var contentNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a draft content page",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		title, _ := cmd.Flags().GetString("title")
		slug, _ := cmd.Flags().GetString("slug")
		village, _ := cmd.Flags().GetString("village")
		collectionType, _ := cmd.Flags().GetString("type")
		bodyFile, _ := cmd.Flags().GetString("body")
		sync, _ := cmd.Flags().GetBool("sync")

		if title == "" || slug == "" {
			return fmt.Errorf("--title and --slug are required")
		}

		c := press.NewContent(title, slug)
		c.Village = village
		c.CollectionType = collectionType
		if bodyFile != "" {
			body, err := os.ReadFile(bodyFile)
			if err != nil {
				return fmt.Errorf("reading body file: %w", err)
			}
			c.Body = body
		}

		st, err := cfg.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.PutContent(ctx, c); err != nil {
			return err
		}
		if sync {
			syncer, err := cfg.syncStack(ctx, st)
			if err != nil {
				return err
			}
			if err := syncer.SyncContent(ctx, c); err != nil {
				return err
			}
		}
		fmt.Printf("Created draft %s (%s)\n", c.ID, c.Slug)
		return nil
	},
}

var contentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List content pages and their review state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := cfg.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		pages, err := st.ListContent(cmd.Context())
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			fmt.Println("No content pages yet.")
			return nil
		}

		table := newTable(os.Stdout, "ID", "Title", "Status", "Updated")
		for _, c := range pages {
			table.Append([]string{c.ID, c.Title, string(c.Status), c.UpdatedAt.Format("2006-01-02 15:04")})
		}
		return table.Render()
	},
}

func init() {
	contentNewCmd.Flags().String("title", "", "page title")
	contentNewCmd.Flags().String("slug", "", "page slug")
	contentNewCmd.Flags().String("village", "", "village the page belongs to")
	contentNewCmd.Flags().String("type", "", "collection type the page belongs to")
	contentNewCmd.Flags().String("body", "", "file with the JSON body")
	contentNewCmd.Flags().Bool("sync", false, "open a review PR for the new draft")

	contentCmd.AddCommand(contentNewCmd, contentListCmd)
}
