/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package result recovers structured collection JSON from raw batch result
// records. Model output arrives as a sequence of text and tool-use blocks and
// may be wrapped in prose, fenced in markdown, or truncated mid-array by the
// token budget; extraction deals with all three without ever panicking or
// failing a whole batch for one bad row.
package result
