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

package sysinfo

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// factsFile is the on-disk form of a Static driver. Keys are ID names as
// accepted by ParseID; data values are hex strings.
type factsFile struct {
	Bools     map[string]bool     `yaml:"bools"`
	Ints      map[string]int      `yaml:"ints"`
	Strings   map[string]string   `yaml:"strings"`
	Data      map[string]string   `yaml:"data"`
	Loadables map[string][]string `yaml:"loadables"`
}

// ParseFacts decodes a YAML facts document into a Static driver:
//
//	strings:
//	  bios.vendor: Acme
//	ints:
//	  cache.level: 1
//	  cache.l1.max-size: 32
//	data:
//	  cache.handle: "000000000000"
//	loadables:
//	  fdt: [board-a.dtb]
func ParseFacts(b []byte) (*Static, error) {
	var f factsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parsing facts: %w", err)
	}

	s := &Static{
		Bools:     make(map[ID]bool, len(f.Bools)),
		Ints:      make(map[ID]int, len(f.Ints)),
		Strings:   make(map[ID]string, len(f.Strings)),
		Data:      make(map[ID][]byte, len(f.Data)),
		Loadables: f.Loadables,
	}

	for k, v := range f.Bools {
		id, err := ParseID(k)
		if err != nil {
			return nil, err
		}
		s.Bools[id] = v
	}
	for k, v := range f.Ints {
		id, err := ParseID(k)
		if err != nil {
			return nil, err
		}
		s.Ints[id] = v
	}
	for k, v := range f.Strings {
		id, err := ParseID(k)
		if err != nil {
			return nil, err
		}
		s.Strings[id] = v
	}
	for k, v := range f.Data {
		id, err := ParseID(k)
		if err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(strings.ReplaceAll(v, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("data %q: %w", k, err)
		}
		s.Data[id] = raw
	}

	return s, nil
}

// LoadFacts reads and parses a YAML facts file.
func LoadFacts(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	s, err := ParseFacts(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
