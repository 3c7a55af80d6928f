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

package devtree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ParseYAML builds a tree from a YAML document. Mappings become nodes,
// scalars become single-valued properties and sequences of scalars become
// multi-valued properties:
//
//	model: Acme Widget
//	compatible: ["acme,widget", "acme,soc"]
//	sysinfo:
//	  smbios:
//	    system:
//	      manufacturer: Acme
func ParseYAML(b []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parsing config tree: %w", err)
	}

	root := New()
	if len(doc.Content) == 0 {
		return root, nil
	}

	if err := fill(root, doc.Content[0]); err != nil {
		return nil, err
	}
	return root, nil
}

// ParseJSONC builds a tree from JSON with comments and trailing commas.
func ParseJSONC(b []byte) (*Node, error) {
	// JSON is a subset of YAML, and the YAML node API keeps key order.
	return ParseYAML(jsonc.ToJSON(b))
}

// Load reads a tree from a file, choosing the parser by extension: .json
// and .jsonc use ParseJSONC, anything else ParseYAML.
func Load(path string) (*Node, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	parse := ParseYAML
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		parse = ParseJSONC
	}

	n, err := parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

func fill(n *Node, m *yaml.Node) error {
	if m.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: node %q must be a mapping", m.Line, n.name)
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]

		switch val.Kind {
		case yaml.MappingNode:
			if err := fill(n.AddSubnode(key.Value), val); err != nil {
				return err
			}
		case yaml.SequenceNode:
			vs := make([]string, 0, len(val.Content))
			for _, v := range val.Content {
				if v.Kind != yaml.ScalarNode {
					return fmt.Errorf("line %d: property %q may only hold scalars", v.Line, key.Value)
				}
				vs = append(vs, v.Value)
			}
			n.SetProperty(key.Value, vs...)
		case yaml.ScalarNode:
			if val.Tag == "!!null" {
				// Presence-only property.
				n.SetProperty(key.Value)
				continue
			}
			n.SetProperty(key.Value, val.Value)
		default:
			return fmt.Errorf("line %d: unsupported value for %q", val.Line, key.Value)
		}
	}

	return nil
}
