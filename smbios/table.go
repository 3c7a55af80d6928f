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
	"log/slog"

	"github.com/digitalocean/go-smbios-builder/cpu"
	"github.com/digitalocean/go-smbios-builder/devtree"
	"github.com/digitalocean/go-smbios-builder/sysinfo"
)

// DefaultSection is the path, relative to the tree root, of the node whose
// subnodes describe each structure.
const DefaultSection = "sysinfo/smbios"

// Version of the SMBIOS specification the written tables follow.
const (
	specMajor = 3
	specMinor = 7
)

// tableAlign is the alignment of the structure table.
const tableAlign = 16

var (
	// ErrVersionNotWritten is returned when patching the firmware version
	// of a table that recorded none.
	ErrVersionNotWritten = errors.New("smbios: no firmware version in table")

	// ErrVersionTooLong is returned when a patched firmware version is
	// longer than the one it replaces.
	ErrVersionTooLong = errors.New("smbios: firmware version longer than original")
)

// Features are firmware capabilities advertised in the BIOS
// characteristics fields.
type Features uint32

// Possible Features values.
const (
	FeaturePCI Features = 1 << iota
	FeatureSelectableBoot
	FeatureUpgradeable
	FeatureACPI
	FeatureUEFI
)

// Options configure Build.
type Options struct {
	// Probe supplies facts and takes precedence over Tree. It is detected
	// once by Build; a failed detection is logged and the tree is used.
	Probe sysinfo.Driver

	// Tree is the root of the property tree. Section names the node,
	// relative to Tree, holding the per-structure subnodes; it defaults to
	// DefaultSection.
	Tree    *devtree.Node
	Section string

	// CPU identifies the processor ahead of Probe and Tree facts.
	CPU cpu.Classifier

	// Serial is an environment serial number. When set it replaces the
	// system serial number and seeds the system UUID.
	Serial string

	// Firmware identity used when Probe has none.
	Vendor      string
	Version     string
	ReleaseDate string

	MajorRelease uint8
	MinorRelease uint8

	// ROMSize is the firmware image size in bytes.
	ROMSize  uint64
	Features Features

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Memory is the address space a table is written into.
type Memory interface {
	// Map returns size bytes at physical address addr.
	Map(addr uint64, size int) ([]byte, error)

	// Limit returns the first address past the writable range.
	Limit() uint64
}

// A Table is a structure table written by Build.
type Table struct {
	// EntryPoint is the address of the 64-bit entry point.
	EntryPoint uint64

	// Address and Length locate the structure table; End is the address
	// just past it.
	Address uint64
	Length  int
	End     uint64

	// Structures is the number of structures in the table.
	Structures int

	buf     []byte
	version int
}

// Bytes returns the structure table. The slice aliases the memory the
// table was written to.
func (t *Table) Bytes() []byte {
	return t.buf[:t.Length]
}

// PatchVersion replaces the firmware version string in place, padding with
// spaces. The new version must not be longer than the original.
func (t *Table) PatchVersion(version string) error {
	if t == nil || t.version < 0 {
		return ErrVersionNotWritten
	}

	version = cString(version)
	b := t.buf[t.version:]
	n := bytes.IndexByte(b, 0)
	if n < 0 || n > StrMax {
		n = min(len(b), StrMax)
	}
	if len(version) > n {
		return fmt.Errorf("%w: %q does not fit in %d bytes", ErrVersionTooLong, version, n)
	}

	copy(b, version)
	for i := len(version); i < n; i++ {
		b[i] = ' '
	}

	return nil
}

// A tableWriter holds the state of one Build.
type tableWriter struct {
	ctx    writeContext
	opts   *Options
	logger *slog.Logger

	off     int
	handle  uint16
	count   int
	version int
}

// Build writes a 64-bit entry point at addr and a structure table at the
// next 16 byte boundary after it, describing the platform from opts.
//
// Build only fails when the table does not fit below mem.Limit, returning
// ErrNoSpace, or when mem cannot map the addresses used.
func Build(mem Memory, addr uint64, opts Options) (*Table, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	probe := detect(opts.Probe, logger)

	section := opts.Section
	if section == "" {
		section = DefaultSection
	}
	parent := opts.Tree.Find(section)

	tables := alignUp(addr+EntryPoint64Len, tableAlign)
	limit := mem.Limit()
	if tables >= limit {
		return nil, ErrNoSpace
	}
	buf, err := mem.Map(tables, int(limit-tables))
	if err != nil {
		return nil, fmt.Errorf("failed to map structure table at %#x: %w", tables, err)
	}

	w := &tableWriter{
		ctx: writeContext{
			root:  opts.Tree,
			probe: probe,
			buf:   buf,
			last:  -1,
		},
		opts:    &opts,
		logger:  logger,
		version: -1,
	}

	var length int
	for _, wr := range writers {
		if wr.section != "" {
			w.ctx.section = wr.section
			w.ctx.node = parent.Subnode(wr.section)
		}

		n := wr.write(w)
		if err := w.ctx.err; err != nil {
			return nil, err
		}
		length += n
	}

	ep := &EntryPoint64Bit{
		Major:                 specMajor,
		Minor:                 specMinor,
		EntryPointRevision:    1,
		StructureTableMaxSize: uint32(length),
		StructureTableAddress: tables,
	}
	epb, err := ep.MarshalBinary()
	if err != nil {
		return nil, err
	}
	dst, err := mem.Map(addr, len(epb))
	if err != nil {
		return nil, fmt.Errorf("failed to map entry point at %#x: %w", addr, err)
	}
	copy(dst, epb)

	logger.Debug("wrote SMBIOS table",
		"entry_point", fmt.Sprintf("%#x", addr),
		"address", fmt.Sprintf("%#x", tables),
		"length", length,
		"structures", w.count)

	return &Table{
		EntryPoint: addr,
		Address:    tables,
		Length:     length,
		End:        tables + uint64(length),
		Structures: w.count,
		buf:        buf,
		version:    w.version,
	}, nil
}

// detect runs probe detection once. A probe that fails detection stays in
// place and reports sysinfo.ErrNotReady for every fact.
func detect(probe sysinfo.Driver, logger *slog.Logger) sysinfo.Driver {
	if probe == nil {
		return nil
	}

	dev, ok := probe.(*sysinfo.Device)
	if !ok {
		dev = sysinfo.NewDevice(probe)
	}
	if dev.Detected() {
		return dev
	}

	if err := dev.Detect(); err != nil {
		logger.Warn("sysinfo detection failed, using property tree only", "err", err)
	}

	return dev
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
