/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"chainguard.dev/agentpress/collections"
	"chainguard.dev/agentpress/pipeline/batch"
	"chainguard.dev/agentpress/pipeline/envelope"
	"chainguard.dev/agentpress/pipeline/metrics"
	"chainguard.dev/agentpress/pipeline/requestbuilder"
	"chainguard.dev/agentpress/pipeline/result"
	"chainguard.dev/agentpress/press"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// siteConfig is the YAML file naming what to generate.
type siteConfig struct {
	Villages    []string `yaml:"villages"`
	Collections []string `yaml:"collections"`
}

func loadSiteConfig(path string) (*siteConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site config: %w", err)
	}
	var sc siteConfig
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parsing site config: %w", err)
	}
	if len(sc.Villages) == 0 || len(sc.Collections) == 0 {
		return nil, fmt.Errorf("site config %s needs at least one village and one collection", path)
	}
	return &sc, nil
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Submit a content generation batch",
	Long: `Submit a content generation batch.

Builds one request per (village, collection) pair from the site config and
submits them as a single message batch. With --wait the command polls until
the batch ends, extracts the results, and saves the recovered collections as
draft content pages.

Examples:
  agentpress generate --config site.yaml
  agentpress generate --config site.yaml --wait --sync`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		configPath, _ := cmd.Flags().GetString("config")
		model, _ := cmd.Flags().GetString("model")
		items, _ := cmd.Flags().GetInt("items")
		declareTool, _ := cmd.Flags().GetBool("envelope-tool")
		wait, _ := cmd.Flags().GetBool("wait")
		sync, _ := cmd.Flags().GetBool("sync")
		pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
		maxWait, _ := cmd.Flags().GetDuration("max-wait")
		if sync {
			wait = true
		}

		sc, err := loadSiteConfig(configPath)
		if err != nil {
			return err
		}
		registry, err := collections.Load()
		if err != nil {
			return err
		}

		var opts []requestbuilder.Option
		if model != "" {
			opts = append(opts, requestbuilder.WithModel(model))
		}
		if items > 0 {
			opts = append(opts, requestbuilder.WithItemCount(items))
		}
		if declareTool {
			opts = append(opts, requestbuilder.WithEnvelopeTool())
		}

		var requests []anthropic.MessageBatchNewParamsRequest
		for _, collectionType := range sc.Collections {
			col, ok := registry.Get(collectionType)
			if !ok {
				return fmt.Errorf("unknown collection type %q", collectionType)
			}
			for _, village := range sc.Villages {
				req, err := requestbuilder.Build(village, collectionType, col.Schema, opts...)
				if err != nil {
					return fmt.Errorf("building request for %s/%s: %w", collectionType, village, err)
				}
				requests = append(requests, req)
			}
		}

		client, err := cfg.anthropicClient()
		if err != nil {
			return err
		}
		controller, err := batch.New(client, cfg.AnthropicAPIKey,
			batch.WithMetrics(metrics.NewBatch("agentpress")))
		if err != nil {
			return err
		}

		mb, err := controller.Submit(ctx, requests)
		if err != nil {
			return err
		}
		fmt.Printf("Submitted batch %s with %d requests\n", mb.ID, len(requests))

		if !wait {
			fmt.Printf("Check progress with: agentpress status %s\n", mb.ID)
			return nil
		}

		url, err := controller.WaitForCompletion(ctx, mb.ID, batch.WaitOptions{
			PollInterval: pollInterval,
			MaxWait:      maxWait,
			OnProgress: func(succeeded, total int64) {
				fmt.Printf("  %d/%d requests succeeded\n", succeeded, total)
			},
		})
		if err != nil {
			return err
		}

		records, err := controller.FetchResults(ctx, url)
		if err != nil {
			return err
		}
		return saveExtractions(ctx, result.ExtractAll(records), sync)
	},
}

func init() {
	generateCmd.Flags().String("config", "site.yaml", "YAML file listing villages and collections")
	generateCmd.Flags().String("model", "", "override the generation model")
	generateCmd.Flags().Int("items", 0, "override the requested item count")
	generateCmd.Flags().Bool("envelope-tool", false, "declare the save_collection tool on each request")
	generateCmd.Flags().Bool("wait", false, "wait for the batch and save results")
	generateCmd.Flags().Bool("sync", false, "open review PRs for saved drafts (implies --wait)")
	generateCmd.Flags().Duration("poll-interval", 30*time.Second, "delay between status polls")
	generateCmd.Flags().Duration("max-wait", 24*time.Hour, "wall clock limit on waiting")
}

// saveExtractions persists every successful extraction as a draft content
// page, optionally opening review PRs for them. Failed extractions are
// reported but never abort the save: each request stands alone.
func saveExtractions(ctx context.Context, extractions []result.Extraction, sync bool) error {
	log := clog.FromContext(ctx)

	st, err := cfg.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var syncer interface {
		SyncContent(context.Context, *press.Content) error
	}
	if sync {
		s, err := cfg.syncStack(ctx, st)
		if err != nil {
			return err
		}
		syncer = s
	}

	var saved, failed int
	for _, ex := range extractions {
		if !ex.Success {
			failed++
			log.With("custom_id", ex.CustomID).With("error", ex.Err).Warn("extraction failed")
			continue
		}
		collectionType, village, err := envelope.ParseCustomID(ex.CustomID)
		if err != nil {
			failed++
			log.With("custom_id", ex.CustomID).With("error", err).Warn("unparseable custom id")
			continue
		}
		body, err := json.Marshal(ex.Data)
		if err != nil {
			failed++
			log.With("custom_id", ex.CustomID).With("error", err).Warn("re-serializing payload")
			continue
		}

		c := press.NewContent(contentTitle(collectionType, village), ex.CustomID)
		c.Village = village
		c.CollectionType = collectionType
		c.Body = body
		if err := st.PutContent(ctx, c); err != nil {
			return fmt.Errorf("saving content for %s: %w", ex.CustomID, err)
		}
		if syncer != nil {
			if err := syncer.SyncContent(ctx, c); err != nil {
				return fmt.Errorf("syncing content for %s: %w", ex.CustomID, err)
			}
		}
		saved++
	}

	fmt.Printf("Saved %d draft pages (%d extractions failed)\n", saved, failed)
	return nil
}

func contentTitle(collectionType, village string) string {
	return fmt.Sprintf("%s in %s", capitalize(collectionType), capitalize(village))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
