/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package inventory

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleInventory = `
nodes:
  - name: build-01
    executors: 8
    labels:
      zone: eu-west
  - name: build-02
    executors: 4
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.yaml")
	if err := os.WriteFile(path, []byte(sampleInventory), 0o644); err != nil {
		t.Fatalf("write inventory: %v", err)
	}

	inv, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(inv.Nodes()) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(inv.Nodes()))
	}

	node, ok := inv.Lookup("build-01")
	if !ok {
		t.Fatal("build-01 not found")
	}
	if node.ExecutorCount() != 8 {
		t.Errorf("expected 8 executors, got %d", node.ExecutorCount())
	}
	if node.Labels["zone"] != "eu-west" {
		t.Errorf("expected zone label, got %v", node.Labels)
	}
	if _, ok := inv.Lookup("missing"); ok {
		t.Error("lookup of a missing node should fail")
	}
}

func TestParseRejectsBadInventories(t *testing.T) {
	bad := []string{
		"nodes:\n  - executors: 4\n",                                    // nameless
		"nodes:\n  - name: a\n    executors: -1\n",                      // negative
		"nodes:\n  - name: a\n    executors: 1\n  - name: a\n    executors: 2\n", // duplicate
		"nodes: {",                                                      // invalid yaml
	}
	for _, text := range bad {
		if _, err := Parse([]byte(text)); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}
