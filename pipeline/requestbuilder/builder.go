/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package requestbuilder constructs batch requests for village collection
// generation. Each request carries a system/user/prefill triple engineered to
// force strict JSON-only output: the assistant prefill seeds the opening of
// the envelope so the model is statistically steered to continue the
// structure rather than restart it.
package requestbuilder

import (
	"encoding/json"
	"fmt"
	"strings"

	"chainguard.dev/agentpress/pipeline/envelope"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 16384
)

// defaultLanguages are the locales every generated item must cover.
var defaultLanguages = []string{"en", "de", "it", "fr"}

type builder struct {
	model       string
	maxTokens   int64
	itemCount   int
	languages   []string
	declareTool bool
}

// Option configures request construction.
type Option func(*builder) error

// WithModel overrides the model identifier.
func WithModel(model string) Option {
	return func(b *builder) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model", model)
		}
		b.model = model
		return nil
	}
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(tokens int64) Option {
	return func(b *builder) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		b.maxTokens = tokens
		return nil
	}
}

// WithItemCount overrides how many items the model is asked for. The prefill
// header always advertises the fixed default count regardless: result
// recovery for truncated responses re-derives the header and has no way to
// know a non-default count was requested.
func WithItemCount(count int) Option {
	return func(b *builder) error {
		if count <= 0 {
			return fmt.Errorf("item count must be positive, got %d", count)
		}
		b.itemCount = count
		return nil
	}
}

// WithLanguages overrides the locale list.
func WithLanguages(langs ...string) Option {
	return func(b *builder) error {
		if len(langs) == 0 {
			return fmt.Errorf("at least one language is required")
		}
		b.languages = langs
		return nil
	}
}

// WithEnvelopeTool declares a save_collection tool whose input schema mirrors
// the envelope, steering tool-capable models toward the exact output shape.
func WithEnvelopeTool() Option {
	return func(b *builder) error {
		b.declareTool = true
		return nil
	}
}

// Build constructs one batch request for a (village, collection type) pair.
// It is a pure function: no side effects, no network calls.
func Build(village, collectionType string, schema json.RawMessage, opts ...Option) (anthropic.MessageBatchNewParamsRequest, error) {
	b := &builder{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		itemCount: envelope.DefaultItemCount,
		languages: defaultLanguages,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return anthropic.MessageBatchNewParamsRequest{}, fmt.Errorf("applying option: %w", err)
		}
	}

	customID, err := envelope.CustomID(collectionType, village)
	if err != nil {
		return anthropic.MessageBatchNewParamsRequest{}, err
	}

	if len(schema) == 0 || !json.Valid(schema) {
		return anthropic.MessageBatchNewParamsRequest{}, fmt.Errorf("collection %q schema is not valid JSON", collectionType)
	}

	params := anthropic.MessageBatchNewParamsRequestParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: b.maxTokens,
		System: []anthropic.TextBlockParam{{
			Text: systemPrompt(),
		}},
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(userPrompt(village, collectionType, schema, b.itemCount, b.languages)),
			},
		}, {
			// Assistant prefill: must stay byte-identical to the header the
			// extractor reconstructs for truncated continuations.
			Role: anthropic.MessageParamRoleAssistant,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(envelope.Preamble(collectionType, village)),
			},
		}},
	}

	if b.declareTool {
		tool, err := envelopeTool()
		if err != nil {
			return anthropic.MessageBatchNewParamsRequest{}, fmt.Errorf("building tool declaration: %w", err)
		}
		params.Tools = []anthropic.ToolUnionParam{tool}
	}

	return anthropic.MessageBatchNewParamsRequest{
		CustomID: customID,
		Params:   params,
	}, nil
}

func systemPrompt() string {
	return strings.TrimSpace(`
You are a travel content writer for a Cinque Terre guide site.
You respond with a single JSON object and nothing else: no prose, no markdown
fences, no commentary before or after the JSON. Every string you emit must be
factual for the requested village; do not invent places that don't exist.`)
}

func userPrompt(village, collectionType string, schema json.RawMessage, itemCount int, languages []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d %s entries for the village of %s.\n\n", itemCount, collectionType, village)
	fmt.Fprintf(&sb, "Each item in the items array must conform to this JSON schema:\n\n%s\n\n", schema)
	fmt.Fprintf(&sb, "Localized text fields must cover these languages: %s.\n", strings.Join(languages, ", "))
	sb.WriteString("Respond with exactly one JSON object of the form " +
		`{"collection_type": ..., "village": ..., "generated_at": ..., "item_count": ..., "items": [...]}.`)
	return sb.String()
}

// envelopeTool reflects the envelope shape into a tool declaration so the
// model can be pointed at the exact output structure.
func envelopeTool() (anthropic.ToolUnionParam, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&envelope.Envelope{})

	raw, err := json.Marshal(schema.Properties)
	if err != nil {
		return anthropic.ToolUnionParam{}, err
	}
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return anthropic.ToolUnionParam{}, err
	}

	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        "save_collection",
			Description: anthropic.String("Record the generated collection envelope."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: props,
			},
		},
	}, nil
}
