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

package smbios

import (
	"strings"

	"github.com/digitalocean/go-smbios-builder/devtree"
	"github.com/digitalocean/go-smbios-builder/sysinfo"
)

// A remap fills a section property from a root property when the section
// has no node of its own. The root value is split on commas and token
// min(max, n)-1 is used.
type remap struct {
	section  string
	prop     string
	rootProp string
	max      int
}

var remaps = []remap{
	{section: "system", prop: "product", rootProp: "model", max: 2},
	{section: "system", prop: "manufacturer", rootProp: "compatible", max: 1},
	{section: "baseboard", prop: "product", rootProp: "model", max: 2},
	{section: "baseboard", prop: "manufacturer", rootProp: "compatible", max: 1},
}

// resolveString returns a string fact. A non-empty probe value for id wins;
// otherwise prop is read from the section node, or remapped from the root
// node when there is no section node. dval is returned when nothing is
// found or prop is empty.
func (c *writeContext) resolveString(prop string, id sysinfo.ID, dval string) string {
	if id != sysinfo.None && c.probe != nil {
		s, err := c.probe.ReadString(id)
		if err == nil && s != "" {
			if len(s) > StrMax-1 {
				s = s[:StrMax-1]
			}
			return s
		}
	}

	if prop == "" {
		return dval
	}

	var s string
	if c.node.Valid() {
		s, _ = c.node.ReadString(prop)
	} else {
		s = c.remap(prop)
	}
	if s == "" {
		return dval
	}

	return s
}

// addProp resolves a string fact and adds it to the current string set.
func (c *writeContext) addProp(prop string, id sysinfo.ID, dval string) uint8 {
	return c.addString(c.resolveString(prop, id, dval))
}

func (c *writeContext) remap(prop string) string {
	for _, m := range remaps {
		if m.section == c.section && m.prop == prop {
			return rootToken(c.root, m.rootProp, m.max)
		}
	}

	return ""
}

func rootToken(root *devtree.Node, prop string, max int) string {
	if max <= 0 {
		return ""
	}

	s, ok := root.ReadString(prop)
	if !ok {
		return ""
	}

	var (
		tok string
		n   int
	)
	for _, t := range strings.Split(s, ",") {
		if t == "" {
			continue
		}
		tok = t
		if n++; n == max {
			break
		}
	}

	return tok
}

// resolveInt returns an integer fact from the probe, then from prop on the
// section node, then 0.
func (c *writeContext) resolveInt(prop string, id sysinfo.ID) int {
	if id != sysinfo.None && c.probe != nil {
		if v, err := c.probe.ReadInt(id); err == nil {
			return v
		}
	}

	if prop != "" {
		if v, ok := c.node.ReadU32(prop); ok {
			return int(v)
		}
	}

	return 0
}

// resolveData returns the probe's blob for id, or nil. The blob aliases
// driver storage.
func (c *writeContext) resolveData(id sysinfo.ID) []byte {
	if c.probe == nil {
		return nil
	}

	b, err := c.probe.ReadData(id)
	if err != nil {
		return nil
	}

	return b
}
