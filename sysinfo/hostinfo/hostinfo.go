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

// Package hostinfo is a sysinfo driver describing the machine it runs on:
// identity strings from the kernel's DMI export and processor and cache
// facts from CPUID. It is useful for building a table that mirrors the host,
// for example for a virtual machine.
package hostinfo

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/digitalocean/go-smbios-builder/smbios"
	"github.com/digitalocean/go-smbios-builder/sysinfo"
	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"
)

// dmiStrings maps files under class/dmi/id to string facts.
var dmiStrings = []struct {
	file string
	id   sysinfo.ID
}{
	{"bios_vendor", sysinfo.BIOSVendor},
	{"bios_version", sysinfo.BIOSVersion},
	{"bios_date", sysinfo.BIOSReleaseDate},
	{"sys_vendor", sysinfo.SystemManufacturer},
	{"product_name", sysinfo.SystemProduct},
	{"product_version", sysinfo.SystemVersion},
	{"product_serial", sysinfo.SystemSerial},
	{"product_sku", sysinfo.SystemSKU},
	{"product_family", sysinfo.SystemFamily},
	{"board_vendor", sysinfo.BaseboardManufacturer},
	{"board_name", sysinfo.BaseboardProduct},
	{"board_version", sysinfo.BaseboardVersion},
	{"board_serial", sysinfo.BaseboardSerial},
	{"board_asset_tag", sysinfo.BaseboardAssetTag},
	{"chassis_vendor", sysinfo.EnclosureManufacturer},
	{"chassis_version", sysinfo.EnclosureVersion},
	{"chassis_serial", sysinfo.EnclosureSerial},
	{"chassis_asset_tag", sysinfo.EnclosureAssetTag},
}

// SMBIOS cache field values used for CPUID-derived caches.
const (
	cacheEnabled   = 1 << 7
	cacheWriteBack = 1 << 8
	cacheUnknown   = 0x02
	cacheData      = 0x04
	cacheUnified   = 0x05

	processorCentral = 0x03
	processorEnabled = 0x41
)

// Driver reports host facts. Create it with New; facts are gathered by
// Detect.
type Driver struct {
	sysRoot string
	cpu     *cpuid.CPUInfo
	logger  *slog.Logger

	strings map[sysinfo.ID]string
	ints    map[sysinfo.ID]int
	data    map[sysinfo.ID][]byte
}

var _ sysinfo.Driver = &Driver{}

// New returns a driver reading /sys and the host CPU.
func New(logger *slog.Logger) *Driver {
	return newFrom("/sys", &cpuid.CPU, logger)
}

// newFrom is the testable form of New.
func newFrom(sysRoot string, cpu *cpuid.CPUInfo, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Driver{sysRoot: sysRoot, cpu: cpu, logger: logger}
}

// Detect reads DMI identity and CPU facts. Missing or unreadable DMI files
// are skipped; a machine without DMI still reports its processor.
func (d *Driver) Detect() error {
	d.strings = make(map[sysinfo.ID]string)
	d.ints = make(map[sysinfo.ID]int)
	d.data = map[sysinfo.ID][]byte{
		sysinfo.CacheHandle: make([]byte, sysinfo.CacheHandleSize),
	}

	dir := filepath.Join(d.sysRoot, "class/dmi/id")
	for _, f := range dmiStrings {
		if s := d.readFile(dir, f.file); s != "" {
			d.strings[f.id] = s
		}
	}

	if s := d.readFile(dir, "chassis_type"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			d.ints[sysinfo.EnclosureType] = v
		}
	}

	if s := d.readFile(dir, "product_uuid"); s != "" {
		u, err := uuid.Parse(s)
		if err != nil {
			d.logger.Debug("ignoring malformed product UUID", "uuid", s, "err", err)
		} else {
			d.data[sysinfo.SystemUUID] = smbios.EncodeUUID(u)
		}
	}

	d.detectCPU()
	d.logger.Debug("host facts detected",
		"strings", len(d.strings), "ints", len(d.ints), "cache_levels", d.ints[sysinfo.CacheLevel]+1)

	return nil
}

func (d *Driver) readFile(dir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			d.logger.Debug("skipping DMI file", "file", name, "err", err)
		}
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (d *Driver) detectCPU() {
	c := d.cpu

	if s := strings.TrimSpace(c.VendorString); s != "" {
		d.strings[sysinfo.ProcessorManufacturer] = s
	}
	if s := strings.TrimSpace(c.BrandName); s != "" {
		d.strings[sysinfo.ProcessorVersion] = s
	}
	d.strings[sysinfo.ProcessorSocket] = "CPU0"
	d.ints[sysinfo.ProcessorType] = processorCentral
	d.ints[sysinfo.ProcessorStatus] = processorEnabled

	if c.PhysicalCores > 0 {
		d.ints[sysinfo.ProcessorCoreCount] = min(c.PhysicalCores, 0xff)
		d.ints[sysinfo.ProcessorCoreEnabled] = min(c.PhysicalCores, 0xff)
		d.ints[sysinfo.ProcessorCoreCount2] = c.PhysicalCores
		d.ints[sysinfo.ProcessorCoreEnabled2] = c.PhysicalCores
	}
	if c.LogicalCores > 0 {
		d.ints[sysinfo.ProcessorThreadCount] = min(c.LogicalCores, 0xff)
		d.ints[sysinfo.ProcessorThreadCount2] = c.LogicalCores
		d.ints[sysinfo.ProcessorThreadEnabled] = c.LogicalCores
	}
	if c.Hz > 0 {
		mhz := int(c.Hz / 1000000)
		d.ints[sysinfo.ProcessorMaxSpeed] = mhz
		d.ints[sysinfo.ProcessorCurrentSpeed] = mhz
	}

	// Present caches fill consecutive slots so a missing level never
	// becomes an empty structure; each keeps its own level in the
	// configuration word and socket name.
	sizes := [sysinfo.CacheLevelMax]int{c.Cache.L1D, c.Cache.L2, c.Cache.L3}
	highest := -1
	for level, size := range sizes {
		if size <= 0 {
			continue
		}
		highest++

		kb := size / 1024
		id := sysinfo.ID(highest)
		d.strings[sysinfo.CacheSocket+id] = fmt.Sprintf("L%d-Cache", level+1)
		d.ints[sysinfo.CacheConfig+id] = level | cacheEnabled | cacheWriteBack
		d.ints[sysinfo.CacheMaxSize+id] = cacheSize16(kb)
		d.ints[sysinfo.CacheInstalledSize+id] = cacheSize16(kb)
		d.ints[sysinfo.CacheMaxSize2+id] = cacheSize32(kb)
		d.ints[sysinfo.CacheInstalledSize2+id] = cacheSize32(kb)
		d.ints[sysinfo.CacheSupportedSRAMType+id] = cacheUnknown
		d.ints[sysinfo.CacheCurrentSRAMType+id] = cacheUnknown
		d.ints[sysinfo.CacheErrorCorrection+id] = cacheUnknown
		d.ints[sysinfo.CacheAssociativity+id] = cacheUnknown
		d.ints[sysinfo.CacheSystemType+id] = cacheUnified
		if level == 0 {
			d.ints[sysinfo.CacheSystemType+id] = cacheData
		}
	}
	if highest >= 0 {
		d.ints[sysinfo.CacheLevel] = highest
	}
}

// cacheSize16 encodes a size for the 16-bit cache size fields: 1K
// granularity when it fits in 15 bits, else 64K granularity with bit 15 set.
func cacheSize16(kb int) int {
	if kb < 0x8000 {
		return kb
	}
	return min(kb/64, 0x7fff) | 0x8000
}

// cacheSize32 encodes a size for the 32-bit cache size fields. Any real
// cache fits the 1K granularity form, so bit 31 is never set.
func cacheSize32(kb int) int {
	return kb
}

func (d *Driver) ReadBool(sysinfo.ID) (bool, error) { return false, sysinfo.ErrNotFound }

func (d *Driver) ReadInt(id sysinfo.ID) (int, error) {
	v, ok := d.ints[id]
	if !ok {
		return 0, sysinfo.ErrNotFound
	}
	return v, nil
}

func (d *Driver) ReadString(id sysinfo.ID) (string, error) {
	v, ok := d.strings[id]
	if !ok {
		return "", sysinfo.ErrNotFound
	}
	return v, nil
}

func (d *Driver) ReadData(id sysinfo.ID) ([]byte, error) {
	v, ok := d.data[id]
	if !ok {
		return nil, sysinfo.ErrNotFound
	}
	return v, nil
}

func (d *Driver) FITLoadable(int, string) (string, error) { return "", sysinfo.ErrNotFound }
