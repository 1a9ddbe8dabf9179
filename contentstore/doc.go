/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package contentstore reads and writes content files in a GitHub repository.
//
// The content repository is the source of truth for published guide data, laid
// out under content/ with paths derived by the collections package. Reads are
// optimistic: a missing file is reported as ErrAbsent rather than an error, so
// callers can treat "not there yet" as a normal state. Writes carry the blob
// SHA of the version they read, letting GitHub reject concurrent updates.
//
// Multi-file updates go through CommitFiles, which builds a single commit via
// the Git data API so that a batch of generated collection files lands
// atomically on its branch.
package contentstore
