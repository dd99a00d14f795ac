/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package inventory loads the static node list the reservation scheduler
// evaluates against.
package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Node is one compute resource with a fixed executor slot count. It
// implements reservation.Node.
type Node struct {
	Name      string            `yaml:"name" json:"name"`
	Executors int               `yaml:"executors" json:"executors"`
	Labels    map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// ExecutorCount returns the node's total executor slots.
func (n *Node) ExecutorCount() int { return n.Executors }

// Inventory is an immutable set of nodes loaded from a YAML file.
type Inventory struct {
	nodes  []*Node
	byName map[string]*Node
}

type inventoryFile struct {
	Nodes []*Node `yaml:"nodes"`
}

// Load reads and validates the inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	return Parse(data)
}

// Parse builds an Inventory from YAML bytes.
func Parse(data []byte) (*Inventory, error) {
	var file inventoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}

	inv := &Inventory{byName: make(map[string]*Node, len(file.Nodes))}
	for _, node := range file.Nodes {
		if node.Name == "" {
			return nil, fmt.Errorf("inventory node without a name")
		}
		if node.Executors < 0 {
			return nil, fmt.Errorf("node %q: negative executor count %d", node.Name, node.Executors)
		}
		if _, dup := inv.byName[node.Name]; dup {
			return nil, fmt.Errorf("duplicate node name %q", node.Name)
		}
		inv.nodes = append(inv.nodes, node)
		inv.byName[node.Name] = node
	}
	return inv, nil
}

// Nodes returns all nodes in file order.
func (inv *Inventory) Nodes() []*Node {
	out := make([]*Node, len(inv.nodes))
	copy(out, inv.nodes)
	return out
}

// Lookup returns the node with the given name.
func (inv *Inventory) Lookup(name string) (*Node, bool) {
	node, ok := inv.byName[name]
	return node, ok
}
