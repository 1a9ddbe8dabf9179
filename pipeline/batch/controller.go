/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package batch drives the lifecycle of one asynchronous generation batch:
// submit the requests, poll until the remote side reports it ended, and fetch
// the newline-delimited results.
//
// Nothing in this package retries. A transient failure during polling aborts
// the wait and surfaces to the caller, which owns every retry decision.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"chainguard.dev/agentpress/pipeline/metrics"
	"chainguard.dev/agentpress/pipeline/result"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultMaxWait      = 24 * time.Hour

	anthropicVersion = "2023-06-01"

	// Result lines carry full model output and can run to megabytes.
	maxResultLineBytes = 32 * 1024 * 1024
)

// Controller submits and tracks message batches.
type Controller struct {
	client     anthropic.Client
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Batch
}

// Option configures a Controller.
type Option func(*Controller) error

// WithHTTPClient overrides the HTTP client used to download results files.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Controller) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Batch) Option {
	return func(c *Controller) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = m
		return nil
	}
}

// New creates a Controller. The API key is used to authenticate the raw
// results-file download, which goes around the SDK.
func New(client anthropic.Client, apiKey string, opts ...Option) (*Controller, error) {
	c := &Controller{
		client:     client,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		metrics:    metrics.NewBatch("agentpress.pipeline"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return c, nil
}

// Submit creates one remote batch from the given requests.
func (c *Controller) Submit(ctx context.Context, requests []anthropic.MessageBatchNewParamsRequest) (*anthropic.MessageBatch, error) {
	if len(requests) == 0 {
		return nil, errors.New("no requests to submit")
	}

	log := clog.FromContext(ctx)
	log.With("requests", len(requests)).Info("Submitting message batch")

	batch, err := c.client.Messages.Batches.New(ctx, anthropic.MessageBatchNewParams{
		Requests: requests,
	})
	if err != nil {
		return nil, fmt.Errorf("creating batch: %w", err)
	}

	c.metrics.RecordSubmission(ctx, string(requests[0].Params.Model), int64(len(requests)))

	log.With("batch_id", batch.ID).
		With("status", string(batch.ProcessingStatus)).
		Info("Batch submitted")
	return batch, nil
}

// Status fetches a point-in-time snapshot of the batch. Read-only.
func (c *Controller) Status(ctx context.Context, batchID string) (*anthropic.MessageBatch, error) {
	batch, err := c.client.Messages.Batches.Get(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("fetching batch %s: %w", batchID, err)
	}
	return batch, nil
}

// WaitOptions tunes the completion poll loop.
type WaitOptions struct {
	// PollInterval is the fixed delay between status checks (default 30s).
	PollInterval time.Duration
	// MaxWait is the wall-clock ceiling on the whole wait (default 24h).
	MaxWait time.Duration
	// OnProgress, if set, is invoked with (succeeded, total) on every tick.
	OnProgress func(succeeded, total int64)
}

// WaitForCompletion polls the batch at a fixed interval until its processing
// status is ended, then returns the results URL. It fails with a timeout
// error once MaxWait elapses, and with a fatal inconsistency error if the
// remote reports ended without supplying a results URL. Network failures
// propagate immediately; this loop does not retry.
func (c *Controller) WaitForCompletion(ctx context.Context, batchID string, opts WaitOptions) (string, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = defaultMaxWait
	}

	log := clog.FromContext(ctx)
	deadline := time.Now().Add(opts.MaxWait)

	for {
		batch, err := c.Status(ctx, batchID)
		if err != nil {
			return "", err
		}

		counts := batch.RequestCounts
		total := counts.Processing + counts.Succeeded + counts.Errored + counts.Canceled + counts.Expired
		if opts.OnProgress != nil {
			opts.OnProgress(counts.Succeeded, total)
		}

		log.With("batch_id", batchID).
			With("status", string(batch.ProcessingStatus)).
			With("succeeded", counts.Succeeded).
			With("total", total).
			Debug("Polled batch status")

		if batch.ProcessingStatus == anthropic.MessageBatchProcessingStatusEnded {
			if batch.ResultsURL == "" {
				return "", fmt.Errorf("batch %s ended without a results URL", batchID)
			}
			return batch.ResultsURL, nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("timed out after %s waiting for batch %s (status %s)",
				opts.MaxWait, batchID, batch.ProcessingStatus)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(opts.PollInterval):
		}
	}
}

// FetchResults downloads and parses the newline-delimited results file. A
// line that fails to parse is logged and dropped rather than failing the
// fetch: the remaining lines are still valid results.
func (c *Controller) FetchResults(ctx context.Context, url string) ([]result.Record, error) {
	log := clog.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building results request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("downloading results: status %d: %s", resp.StatusCode, body)
	}

	var records []result.Record
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxResultLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec result.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.With("line", line).With("error", err).Warn("Dropping unparseable result line")
			c.metrics.RecordResult(ctx, "dropped")
			continue
		}
		c.metrics.RecordResult(ctx, rec.Result.Type)
		if rec.Result.Type == result.TypeSucceeded && rec.Result.Message != nil {
			c.metrics.RecordTokens(ctx, rec.Result.Message.Model, rec.Result.Message.Usage.InputTokens, rec.Result.Message.Usage.OutputTokens)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading results stream: %w", err)
	}

	log.With("records", len(records)).Info("Fetched batch results")
	return records, nil
}
