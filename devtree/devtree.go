// Copyright 2017-2018 DigitalOcean.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package devtree holds a read-only static configuration tree: named nodes
// carrying string properties and child nodes, in the shape of a flattened
// device tree.
//
// A nil *Node is the null node. Every lookup on it fails, so callers can
// chain Subnode calls without checking each step.
package devtree

import (
	"strconv"
	"strings"
)

// A Node is one node of the tree.
type Node struct {
	name     string
	parent   *Node
	props    map[string][]string
	children []*Node
}

// New returns an empty root node.
func New() *Node {
	return &Node{props: make(map[string][]string)}
}

// Valid reports whether n is a real node.
func (n *Node) Valid() bool { return n != nil }

// Name returns the node name; the root's name is empty.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	return n.name
}

// Root returns the root of the tree containing n.
func (n *Node) Root() *Node {
	if n == nil {
		return nil
	}
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// AddSubnode appends a child named name and returns it.
func (n *Node) AddSubnode(name string) *Node {
	c := &Node{name: name, parent: n, props: make(map[string][]string)}
	n.children = append(n.children, c)
	return c
}

// SetProperty sets a property to one or more string values.
func (n *Node) SetProperty(name string, values ...string) {
	n.props[name] = values
}

// Subnode returns the first child named name, or nil.
func (n *Node) Subnode(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Subnodes returns the children of n in document order.
func (n *Node) Subnodes() []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// Find resolves a slash-separated path relative to n. Leading and
// repeated slashes are ignored, so "/sysinfo/smbios" on the root and
// "sysinfo/smbios" are the same node.
func (n *Node) Find(path string) *Node {
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		n = n.Subnode(part)
	}
	return n
}

// ReadString returns the first value of a property.
func (n *Node) ReadString(prop string) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.props[prop]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// ReadStringList returns all values of a property.
func (n *Node) ReadStringList(prop string) ([]string, bool) {
	if n == nil {
		return nil, false
	}
	v, ok := n.props[prop]
	return v, ok
}

// ReadU32 parses the first value of a property as an unsigned 32-bit
// integer. Decimal, 0x-prefixed hex and 0-prefixed octal are accepted.
func (n *Node) ReadU32(prop string) (uint32, bool) {
	s, ok := n.ReadString(prop)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// ReadBool reports whether a property is present and not "false".
func (n *Node) ReadBool(prop string) bool {
	s, ok := n.ReadString(prop)
	if !ok {
		_, ok = n.ReadStringList(prop)
		return ok
	}
	b, err := strconv.ParseBool(s)
	return err != nil || b
}
