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
	"fmt"
	"io"
)

// paragraph is the alignment at which entry points are searched for.
const paragraph = 16

// MemoryStream searches a memory image for an SMBIOS entry point on a
// 16 byte boundary in the offset range [start, end) and returns a stream of
// the structure table it points to. base is the physical address of the
// first byte of rs; table addresses are translated by it.
func MemoryStream(rs io.ReadSeeker, base uint64, start, end int) (io.ReadCloser, EntryPoint, error) {
	off, err := findEntryPoint(rs, start, end)
	if err != nil {
		return nil, nil, err
	}

	// Peek at the declared length so the entry point is parsed exactly.
	hb := make([]byte, 8)
	if err := readAt(rs, int64(off), hb); err != nil {
		return nil, nil, err
	}

	epb := make([]byte, entryPointLen(hb))
	if err := readAt(rs, int64(off), epb); err != nil {
		return nil, nil, err
	}

	ep, err := ParseEntryPoint(bytes.NewReader(epb))
	if err != nil {
		return nil, nil, err
	}

	addr, size := ep.Table()
	if uint64(addr) < base {
		return nil, nil, fmt.Errorf("SMBIOS table address %#x is below image base %#x", addr, base)
	}

	tb := make([]byte, size)
	if err := readAt(rs, int64(uint64(addr)-base), tb); err != nil {
		return nil, nil, fmt.Errorf("failed to read SMBIOS table at %#x: %w", addr, err)
	}

	return io.NopCloser(bytes.NewReader(tb)), ep, nil
}

// findEntryPoint returns the offset of the first paragraph in [start, end)
// that begins with an entry point anchor.
func findEntryPoint(rs io.ReadSeeker, start, end int) (int, error) {
	if _, err := rs.Seek(int64(start), io.SeekStart); err != nil {
		return 0, err
	}

	b := make([]byte, paragraph)
	for off := start; off < end; off += paragraph {
		if _, err := io.ReadFull(rs, b); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}

			return 0, err
		}

		if bytes.HasPrefix(b, magic32) || bytes.HasPrefix(b, magic64) {
			return off, nil
		}
	}

	return 0, fmt.Errorf("no SMBIOS entry point found in range [%#x, %#x)", start, end)
}

func readAt(rs io.ReadSeeker, off int64, b []byte) error {
	if _, err := rs.Seek(off, io.SeekStart); err != nil {
		return err
	}

	_, err := io.ReadFull(rs, b)
	return err
}
