/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics provides OpenTelemetry counters for the batch generation
// pipeline: requests submitted, result outcomes, and token usage.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Batch holds the pipeline counters. Counter creation degrades gracefully: a
// counter that fails to initialize is replaced with a no-op so metrics never
// take the pipeline down.
type Batch struct {
	meter            metric.Meter
	requests         metric.Int64Counter
	results          metric.Int64Counter
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
}

// NewBatch creates pipeline metrics under the given meter name. Use one
// unified meter (e.g. "agentpress.pipeline") across the process, with model
// and outcome as dimensions on the recorded metrics.
func NewBatch(meterName string) *Batch {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	requests, err := meter.Int64Counter("batch.requests.submitted",
		metric.WithDescription("The number of batch requests submitted"),
		metric.WithUnit("{requests}"))
	if err != nil {
		slog.Warn("Failed to create request counter, metrics will be disabled", "error", err, "meter", meterName)
		requests = noop.Int64Counter{}
	}

	results, err := meter.Int64Counter("batch.results.processed",
		metric.WithDescription("The number of batch results processed, by outcome"),
		metric.WithUnit("{results}"))
	if err != nil {
		slog.Warn("Failed to create result counter, metrics will be disabled", "error", err, "meter", meterName)
		results = noop.Int64Counter{}
	}

	promptTokens, err := meter.Int64Counter("batch.token.prompt",
		metric.WithDescription("The number of prompt tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create prompt token counter, metrics will be disabled", "error", err, "meter", meterName)
		promptTokens = noop.Int64Counter{}
	}

	completionTokens, err := meter.Int64Counter("batch.token.completion",
		metric.WithDescription("The number of completion tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create completion token counter, metrics will be disabled", "error", err, "meter", meterName)
		completionTokens = noop.Int64Counter{}
	}

	return &Batch{
		meter:            meter,
		requests:         requests,
		results:          results,
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
	}
}

// RecordSubmission records requests submitted as part of one batch.
func (m *Batch) RecordSubmission(ctx context.Context, model string, count int64) {
	m.requests.Add(ctx, count, metric.WithAttributes(
		attribute.String("model", model),
	))
}

// RecordResult records one processed result row. Outcome is one of the result
// types (succeeded, errored, expired, canceled) or "dropped" for lines that
// failed to parse, plus "extracted"/"extraction_failed" for recovery outcomes.
func (m *Batch) RecordResult(ctx context.Context, outcome string) {
	m.results.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordTokens records token usage reported on one succeeded result.
func (m *Batch) RecordTokens(ctx context.Context, model string, promptTokens, completionTokens int64) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.promptTokens.Add(ctx, promptTokens, attrs)
	m.completionTokens.Add(ctx, completionTokens, attrs)
}
