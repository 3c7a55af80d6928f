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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// rawSMBIOSDataHeaderSize is the size of the RawSMBIOSData header Windows
// places before the structure table.
const rawSMBIOSDataHeaderSize = 8

// WindowsEntryPoint contains SMBIOS Table entry point data returned from
// GetSystemFirmwareTable. As raw access to the underlying memory is not given,
// the full bredth of information is not available.
type WindowsEntryPoint struct {
	Size         uint32
	MajorVersion byte
	MinorVersion byte
	Revision     byte
}

var _ EntryPoint = &WindowsEntryPoint{}

// Table implements EntryPoint. The returned address will always be 0, as it
// is not returned by GetSystemFirmwareTable.
func (e *WindowsEntryPoint) Table() (address, size int) {
	return 0, int(e.Size)
}

// Version implements EntryPoint.
func (e *WindowsEntryPoint) Version() (major, minor, revision int) {
	return int(e.MajorVersion), int(e.MinorVersion), int(e.Revision)
}

// rawStream parses a RawSMBIOSData buffer:
//
//	struct RawSMBIOSData {
//		BYTE	Used20CallingMethod;
//		BYTE	SMBIOSMajorVersion;
//		BYTE	SMBIOSMinorVersion;
//		BYTE	DMIRevision;
//		DWORD	Length;
//		BYTE	SMBIOSTableData[];
//	}
func rawStream(b []byte) (io.ReadCloser, EntryPoint, error) {
	if l := len(b); l < rawSMBIOSDataHeaderSize {
		return nil, nil, fmt.Errorf("too few bytes for RawSMBIOSData header: %d", l)
	}

	size := binary.LittleEndian.Uint32(b[4:8])
	if avail := len(b) - rawSMBIOSDataHeaderSize; uint64(size) > uint64(avail) {
		return nil, nil, fmt.Errorf("RawSMBIOSData length %d exceeds %d available bytes", size, avail)
	}

	ep := &WindowsEntryPoint{
		MajorVersion: b[1],
		MinorVersion: b[2],
		Revision:     b[3],
		Size:         size,
	}

	table := b[rawSMBIOSDataHeaderSize : rawSMBIOSDataHeaderSize+int(size)]

	return io.NopCloser(bytes.NewReader(table)), ep, nil
}

// ioregStream parses the hex-encoded "SMBIOS-EPS" and "SMBIOS" properties
// from `ioreg -rd1 -c AppleSMBIOS` output.
func ioregStream(out string) (io.ReadCloser, EntryPoint, error) {
	var eps, table string
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		v = strings.Trim(strings.TrimSpace(v), "<>")
		switch strings.TrimSpace(k) {
		case `"SMBIOS-EPS"`:
			eps = v
		case `"SMBIOS"`:
			table = v
		}
	}
	if eps == "" || table == "" {
		return nil, nil, fmt.Errorf("no SMBIOS properties in ioreg output:\n%s", out)
	}

	epb, err := hex.DecodeString(eps)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding SMBIOS-EPS: %w", err)
	}
	tb, err := hex.DecodeString(table)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding SMBIOS: %w", err)
	}

	ep, err := ParseEntryPoint(bytes.NewReader(epb))
	if err != nil {
		return nil, nil, err
	}

	return io.NopCloser(bytes.NewReader(tb)), ep, nil
}
