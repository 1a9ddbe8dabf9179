/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chainguard.dev/agentpress/press/store"
	"chainguard.dev/agentpress/reconcilers/webhookreconciler"
	"github.com/chainguard-dev/clog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/go-github/v75/github"
	"github.com/spf13/cobra"
)

// sweepInterval is how often the retention sweep runs.
const sweepInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the GitHub webhook endpoint",
	Long: `Serve the GitHub webhook endpoint.

Listens for pull request, review, and issue comment deliveries and folds
them into press state. A background sweep enforces the mapping retention
policy.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := clog.FromContext(ctx)

		if cfg.WebhookSecret == "" {
			return errors.New("GITHUB_WEBHOOK_SECRET is required")
		}

		st, err := cfg.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := webhookreconciler.New(st,
			webhookreconciler.WithReviewerLogin(cfg.ReviewerLogin))
		if err != nil {
			return err
		}

		go sweepLoop(ctx, st, cfg.retention())

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Post("/webhook", webhookHandler(rec, []byte(cfg.WebhookSecret)))

		srv := &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Port),
			Handler:     r,
			ReadTimeout: 30 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.With("addr", srv.Addr).Info("listening for webhooks")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	},
}

// webhookHandler validates the delivery signature and dispatches the payload.
// Events the press doesn't care about are acknowledged without action so
// GitHub doesn't mark the hook as failing.
func webhookHandler(rec *webhookreconciler.Reconciler, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := clog.FromContext(ctx)

		payload, err := github.ValidatePayload(r, secret)
		if err != nil {
			log.With("error", err).Warn("rejecting webhook with bad signature")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		event, err := github.ParseWebHook(github.WebHookType(r), payload)
		if err != nil {
			log.With("error", err).Warn("unparseable webhook payload")
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		switch e := event.(type) {
		case *github.PullRequestEvent:
			if action := e.GetAction(); action == "opened" || action == "reopened" {
				err = rec.PROpened(ctx, e.GetPullRequest())
			}
		case *github.PullRequestReviewEvent:
			if e.GetAction() == "submitted" {
				err = rec.PRReview(ctx, e.GetPullRequest(), e.GetReview())
			}
		case *github.IssueCommentEvent:
			if e.GetAction() == "created" {
				err = rec.IssueComment(ctx, e.GetIssue(), e.GetComment())
			}
		default:
			log.With("type", github.WebHookType(r)).Info("ignoring event type")
		}
		if err != nil {
			log.With("error", err).Error("webhook reconciliation failed")
			http.Error(w, "reconciliation failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// sweepLoop periodically evicts mappings past the retention policy.
func sweepLoop(ctx context.Context, st store.Interface, policy store.RetentionPolicy) {
	log := clog.FromContext(ctx)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, err := st.SweepMappings(ctx, policy)
			if err != nil {
				log.With("error", err).Warn("retention sweep failed")
				continue
			}
			if evicted > 0 {
				log.With("evicted", evicted).Info("retention sweep evicted mappings")
			}
		}
	}
}
