/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

// Record is one line of a batch results file: the echo of a submitted
// custom_id plus the outcome for that request.
type Record struct {
	CustomID string `json:"custom_id"`
	Result   Result `json:"result"`
}

// Result outcome types reported by the batch API.
const (
	TypeSucceeded = "succeeded"
	TypeErrored   = "errored"
	TypeExpired   = "expired"
	TypeCanceled  = "canceled"
)

// Result is the per-request outcome. Message is set for succeeded results,
// Error for errored ones.
type Result struct {
	Type    string    `json:"type"`
	Message *Message  `json:"message,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// Message is the assistant output for a succeeded request.
type Message struct {
	Model   string         `json:"model,omitempty"`
	Content []ContentBlock `json:"content"`
	Usage   Usage          `json:"usage"`
}

// ContentBlock is one segment of assistant output. Only text blocks carry
// final output; tool_use blocks are intermediate search actions.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
}

// Usage reports token consumption for a single request.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// APIError is the error payload attached to errored results.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
