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
	"bytes"
	"errors"
	"strings"

	"github.com/digitalocean/go-smbios-builder/devtree"
	"github.com/digitalocean/go-smbios-builder/sysinfo"
)

// StrMax bounds strings read from a sysinfo.Driver, including the
// terminating NUL.
const StrMax = 64

// ErrNoSpace is returned when a table does not fit in its memory region.
var ErrNoSpace = errors.New("smbios: table exceeds available memory")

// A writeContext is the state shared by the structure writers: where facts
// come from and the string set of the structure being written.
type writeContext struct {
	// Fact sources.
	root    *devtree.Node
	node    *devtree.Node
	section string
	probe   sysinfo.Driver

	// buf is the output window; eos is the start of the current string
	// set, next the offset the next string goes to and last the offset of
	// the most recently added or matched string, or -1.
	buf  []byte
	eos  int
	next int
	last int

	// private is the offset of a string that is never shared, or 0.
	private int

	err error
}

// setEOS starts a new, empty string set at off.
func (c *writeContext) setEOS(off int) {
	c.eos = off
	c.next = off
	c.last = -1
	if !c.reserve(off, 2) {
		return
	}
	c.buf[off] = 0
	c.buf[off+1] = 0
}

// reserve reports whether n bytes at off fit in the output window, and
// records ErrNoSpace if they do not.
func (c *writeContext) reserve(off, n int) bool {
	if c.err != nil {
		return false
	}
	if off < 0 || off+n > len(c.buf) {
		c.err = ErrNoSpace
		return false
	}
	return true
}

// addString adds s to the current string set and returns its 1-based
// number. Identical strings share a number. s ends at its first NUL; empty
// strings are never added and return 0.
func (c *writeContext) addString(s string) uint8 {
	return c.appendString(s, true)
}

// appendString adds s to the current string set. With dedup, an identical
// string already in the set is shared; without it, s gets its own copy that
// later strings never share.
func (c *writeContext) appendString(s string, dedup bool) uint8 {
	s = cString(s)
	if s == "" || c.err != nil {
		return 0
	}

	var n uint8 = 1
	for off := c.eos; off < c.next; n++ {
		end := bytes.IndexByte(c.buf[off:c.next], 0)
		if end < 0 {
			break
		}
		if dedup && off != c.private && string(c.buf[off:off+end]) == s {
			c.last = off
			return n
		}
		off += end + 1
	}

	// The set always stays terminated by two NULs.
	if !c.reserve(c.next, len(s)+2) {
		return 0
	}
	copy(c.buf[c.next:], s)
	c.buf[c.next+len(s)] = 0
	c.buf[c.next+len(s)+1] = 0
	c.last = c.next
	if !dedup {
		c.private = c.next
	}
	c.next += len(s) + 1

	return n
}

// stringTableLen returns the length of the current string set including
// its terminator.
func (c *writeContext) stringTableLen() int {
	if c.next == c.eos {
		return 2
	}
	return c.next - c.eos + 1
}

// cString returns s up to its first NUL.
func cString(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}
