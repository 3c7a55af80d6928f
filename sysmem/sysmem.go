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

// Package sysmem addresses a window of memory by physical address, the way
// firmware code maps a system address to a pointer before writing tables.
package sysmem

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a mapping falls outside a Region.
var ErrOutOfRange = errors.New("sysmem: address out of range")

// A Region is a contiguous window of memory starting at a base address.
type Region struct {
	base  uint64
	b     []byte
	close func() error
}

// New allocates a zeroed heap-backed region of size bytes at base.
func New(base uint64, size int) *Region {
	return FromBytes(base, make([]byte, size))
}

// FromBytes wraps b as a region starting at base. The region aliases b.
func FromBytes(base uint64, b []byte) *Region {
	return &Region{base: base, b: b}
}

// Base returns the address of the first byte.
func (r *Region) Base() uint64 { return r.base }

// Limit returns the address one past the last byte.
func (r *Region) Limit() uint64 { return r.base + uint64(len(r.b)) }

// Bytes returns the whole region.
func (r *Region) Bytes() []byte { return r.b }

// Map returns the size bytes starting at addr. The returned slice aliases
// the region and cannot be grown past the mapped window.
func (r *Region) Map(addr uint64, size int) ([]byte, error) {
	if size < 0 || addr < r.base || addr > r.Limit() || uint64(size) > r.Limit()-addr {
		return nil, fmt.Errorf("%w: %#x+%d not in [%#x, %#x)", ErrOutOfRange, addr, size, r.base, r.Limit())
	}
	off := int(addr - r.base)
	return r.b[off : off+size : off+size], nil
}

// Close releases the backing memory of a file-backed region, flushing it to
// the file. It is a no-op for heap regions.
func (r *Region) Close() error {
	if r.close == nil {
		return nil
	}
	err := r.close()
	r.close = nil
	r.b = nil
	return err
}
