/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import "testing"

func TestSyncCommandTree(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"sync"})
	if err != nil || cmd.Name() != "sync" {
		t.Fatalf("Find(sync) = %v, %v", cmd, err)
	}

	for _, sub := range []string{"push", "approve", "reject", "publish"} {
		c, _, err := rootCmd.Find([]string{"sync", sub})
		if err != nil || c.Name() != sub {
			t.Errorf("Find(sync %s) = %v, %v", sub, c, err)
			continue
		}
		if c.Args == nil {
			t.Errorf("sync %s should require a content id", sub)
		}
	}

	reject, _, _ := rootCmd.Find([]string{"sync", "reject"})
	if reject.Flags().Lookup("reason") == nil {
		t.Error("sync reject is missing the --reason flag")
	}
}
