/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainguard.dev/agentpress/press"
	"chainguard.dev/agentpress/press/store"
	"chainguard.dev/agentpress/reconcilers/webhookreconciler"
)

func signedRequest(t *testing.T, secret, event string, payload []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestWebhookHandler(t *testing.T) {
	const secret = "hunter2"

	st := store.NewMemory()
	c := press.NewContent("Restaurants in Vernazza", "vernazza")
	c.ID = "c-1"
	if err := st.PutContent(context.Background(), c); err != nil {
		t.Fatalf("PutContent() = %v", err)
	}

	rec, err := webhookreconciler.New(st)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	handler := webhookHandler(rec, []byte(secret))

	t.Run("bad signature is rejected", func(t *testing.T) {
		req := signedRequest(t, "wrong-secret", "pull_request", []byte(`{}`))
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("opened PR moves content into review", func(t *testing.T) {
		payload := []byte(`{
			"action": "opened",
			"pull_request": {
				"number": 5,
				"html_url": "https://github.com/acme/guides/pull/5",
				"head": {"ref": "content/c-1"}
			}
		}`)
		w := httptest.NewRecorder()
		handler(w, signedRequest(t, secret, "pull_request", payload))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		got, err := st.GetContent(context.Background(), "c-1")
		if err != nil {
			t.Fatalf("GetContent() = %v", err)
		}
		if got.Status != press.ContentInReview {
			t.Errorf("status = %s, want in_review", got.Status)
		}
	})

	t.Run("unrelated event types are acknowledged", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, signedRequest(t, secret, "push", []byte(`{"ref":"refs/heads/main"}`)))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200 for ignored event", w.Code)
		}
	})

	t.Run("closed PR action is acknowledged without effect", func(t *testing.T) {
		payload := []byte(`{"action": "closed", "pull_request": {"number": 5, "head": {"ref": "content/c-1"}}}`)
		w := httptest.NewRecorder()
		handler(w, signedRequest(t, secret, "pull_request", payload))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})
}
