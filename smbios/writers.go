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
	"encoding/binary"
	"fmt"

	"github.com/digitalocean/go-smbios-builder/cpu"
	"github.com/digitalocean/go-smbios-builder/sysinfo"
	"github.com/google/uuid"
)

// BIOS characteristics bits.
const (
	biosCharPCI            = 1 << 7
	biosCharUpgradeable    = 1 << 11
	biosCharSelectableBoot = 1 << 16

	biosCharExt1ACPI = 1 << 0

	biosCharExt2Target = 1 << 2
	biosCharExt2UEFI   = 1 << 3
)

// ROM images of this size and above use the extended ROM size field.
const romSizeExtended = 16 << 20

// A writer emits one or more structures at the cursor and returns the
// number of bytes written.
type writer func(w *tableWriter) int

// writers lists the structure writers in table order with the name of the
// section node each reads.
var writers = []struct {
	section string
	write   writer
}{
	{section: "bios", write: (*tableWriter).writeBIOS},
	{section: "system", write: (*tableWriter).writeSystem},
	{section: "baseboard", write: (*tableWriter).writeBaseboard},
	{section: "chassis", write: (*tableWriter).writeEnclosure},
	{section: "cache", write: (*tableWriter).writeCaches},
	{section: "processor", write: (*tableWriter).writeProcessor},
	{write: (*tableWriter).writeBoot},
	{write: (*tableWriter).writeEnd},
}

// begin starts a structure with a formatted area of size bytes at the
// cursor, clears it, and returns the structure's header. ok is false once
// the table has run out of space.
func (w *tableWriter) begin(typ uint8, size int) (h Header, ok bool) {
	c := &w.ctx
	if !c.reserve(w.off, size+2) {
		return Header{}, false
	}
	clear(c.buf[w.off : w.off+size])
	c.setEOS(w.off + size)

	h = Header{
		Type:   typ,
		Length: uint8(size),
		Handle: w.handle,
	}
	w.handle++
	w.count++

	return h, true
}

// finish encodes the fixed layout v at the cursor and advances past the
// structure and its string set.
func (w *tableWriter) finish(v any, size int) int {
	c := &w.ctx
	if c.err != nil {
		return 0
	}

	marshal(c.buf[w.off:w.off+size], v)
	n := size + c.stringTableLen()

	w.logger.Debug("wrote structure",
		"type", c.buf[w.off],
		"handle", binary.LittleEndian.Uint16(c.buf[w.off+2:]),
		"length", n)

	w.off += n

	return n
}

func (w *tableWriter) writeBIOS() int {
	c := &w.ctx
	h, ok := w.begin(TypeBIOSInformation, sizeBIOSInformation)
	if !ok {
		return 0
	}

	t := BIOSInformation{
		Header:         h,
		Vendor:         c.addProp("", sysinfo.BIOSVendor, w.opts.Vendor),
		Version:        c.appendString(c.resolveString("version", sysinfo.BIOSVersion, w.opts.Version), false),
		StartSegment:   0xe000,
		MajorRelease:   w.opts.MajorRelease,
		MinorRelease:   w.opts.MinorRelease,
		ECMajorRelease: 0xff,
		ECMinorRelease: 0xff,
	}
	if t.Version != 0 {
		w.version = c.last
		w.logger.Debug("recorded firmware version location", "offset", c.last)
	}
	t.ReleaseDate = c.addProp("", sysinfo.BIOSReleaseDate, w.opts.ReleaseDate)

	if size := w.opts.ROMSize; size < romSizeExtended {
		if size >= 64<<10 {
			t.ROMSize = uint8(size/(64<<10) - 1)
		}
	} else {
		t.ROMSize = 0xff
		t.ExtendedROMSize = uint16(size >> 20)
	}

	f := w.opts.Features
	if f&FeaturePCI != 0 {
		t.Characteristics |= biosCharPCI
	}
	if f&FeatureSelectableBoot != 0 {
		t.Characteristics |= biosCharSelectableBoot
	}
	if f&FeatureUpgradeable != 0 {
		t.Characteristics |= biosCharUpgradeable
	}
	if f&FeatureACPI != 0 {
		t.CharacteristicsExt1 |= biosCharExt1ACPI
	}
	if f&FeatureUEFI != 0 {
		t.CharacteristicsExt2 |= biosCharExt2UEFI
	}
	t.CharacteristicsExt2 |= biosCharExt2Target

	return w.finish(&t, sizeBIOSInformation)
}

func (w *tableWriter) writeSystem() int {
	c := &w.ctx
	h, ok := w.begin(TypeSystemInformation, sizeSystemInformation)
	if !ok {
		return 0
	}

	t := SystemInformation{
		Header:       h,
		Manufacturer: c.addProp("manufacturer", sysinfo.SystemManufacturer, ""),
		ProductName:  c.addProp("product", sysinfo.SystemProduct, ""),
		Version:      c.addProp("version", sysinfo.SystemVersion, ""),
	}

	// A serial number from the environment also seeds the UUID.
	if serial := w.opts.Serial; serial != "" {
		t.SerialNumber = c.addString(serial)
		copy(t.UUID[:len(t.UUID)-1], serial)
	} else {
		t.SerialNumber = c.addProp("serial", sysinfo.SystemSerial, "")
		w.systemUUID(t.UUID[:])
	}

	t.WakeupType = uint8(c.resolveInt("wakeup-type", sysinfo.SystemWakeup))
	t.SKUNumber = c.addProp("sku", sysinfo.SystemSKU, "")
	t.Family = c.addProp("family", sysinfo.SystemFamily, "")

	return w.finish(&t, sizeSystemInformation)
}

// systemUUID fills b from the SystemUUID fact or the section's "uuid"
// property. b is left zero if neither is usable.
func (w *tableWriter) systemUUID(b []byte) {
	c := &w.ctx
	if data := c.resolveData(sysinfo.SystemUUID); len(data) == len(uuid.UUID{}) {
		copy(b, data)
		return
	}

	s, ok := c.node.ReadString("uuid")
	if !ok {
		return
	}

	u, err := uuid.Parse(s)
	if err != nil {
		w.logger.Debug("ignoring malformed system UUID", "uuid", s, "err", err)
		return
	}
	copy(b, EncodeUUID(u))
}

func (w *tableWriter) writeBaseboard() int {
	c := &w.ctx

	// TODO: fill contained object handles from BaseboardObjectsNum and
	// BaseboardObjectsHandle.
	const objects = 0
	size := sizeBaseboardInformation + objects*2

	h, ok := w.begin(TypeBaseboardInformation, size)
	if !ok {
		return 0
	}

	t := BaseboardInformation{
		Header:       h,
		Manufacturer: c.addProp("manufacturer", sysinfo.BaseboardManufacturer, ""),
		ProductName:  c.addProp("product", sysinfo.BaseboardProduct, ""),
		Version:      c.addProp("version", sysinfo.BaseboardVersion, ""),
		SerialNumber: c.addProp("serial", sysinfo.BaseboardSerial, ""),
		AssetTag:     c.addProp("asset-tag", sysinfo.BaseboardAssetTag, ""),
		FeatureFlags: uint8(c.resolveInt("feature-flags", sysinfo.BaseboardFeature)),
		// The enclosure is always the next structure.
		ChassisHandle:          h.Handle + 1,
		BoardType:              uint8(c.resolveInt("board-type", sysinfo.BaseboardType)),
		NumberContainedObjects: objects,
	}
	t.ChassisLocation = c.addProp("chassis-location", sysinfo.BaseboardChassisLocation, "")

	return w.finish(&t, size)
}

func (w *tableWriter) writeEnclosure() int {
	c := &w.ctx

	// TODO: fill contained element records from EnclosureElementCount,
	// EnclosureElementLength and EnclosureElements.
	const elements = 0
	size := sizeSystemEnclosure + elements + 1

	h, ok := w.begin(TypeSystemEnclosure, size)
	if !ok {
		return 0
	}

	t := SystemEnclosure{
		Header:             h,
		Manufacturer:       c.addProp("manufacturer", sysinfo.EnclosureManufacturer, ""),
		Version:            c.addProp("version", sysinfo.EnclosureVersion, ""),
		SerialNumber:       c.addProp("serial", sysinfo.EnclosureSerial, ""),
		AssetTag:           c.addProp("asset-tag", sysinfo.EnclosureAssetTag, ""),
		ChassisType:        uint8(c.resolveInt("chassis-type", sysinfo.EnclosureType)),
		BootupState:        uint8(c.resolveInt("bootup-state", sysinfo.EnclosureBootup)),
		PowerSupplyState:   uint8(c.resolveInt("power-supply-state", sysinfo.EnclosurePower)),
		ThermalState:       uint8(c.resolveInt("thermal-state", sysinfo.EnclosureThermal)),
		SecurityStatus:     uint8(c.resolveInt("security-status", sysinfo.EnclosureSecurity)),
		OEMDefined:         uint32(c.resolveInt("oem-defined", sysinfo.EnclosureOEM)),
		Height:             uint8(c.resolveInt("height", sysinfo.EnclosureHeight)),
		NumberOfPowerCords: uint8(c.resolveInt("number-of-power-cords", sysinfo.EnclosurePowerCords)),
	}

	// The SKU number follows the element records.
	sku := c.addProp("sku", sysinfo.EnclosureSKU, "")
	if c.err == nil {
		c.buf[w.off+sizeSystemEnclosure+elements] = sku
	}

	return w.finish(&t, size)
}

// writeCaches emits one cache structure per level up to the CacheLevel
// fact, each reading the "l<n>-cache" subnode of the cache section.
func (w *tableWriter) writeCaches() int {
	c := &w.ctx

	level := c.resolveInt("", sysinfo.CacheLevel)
	if level < 0 || level >= sysinfo.CacheLevelMax {
		w.logger.Warn("unsupported cache level, skipping cache information",
			"level", level, "max", sysinfo.CacheLevelMax-1)
		return 0
	}

	parent, section := c.node, c.section
	defer func() { c.node, c.section = parent, section }()

	var n int
	for i := 0; i <= level; i++ {
		c.section = fmt.Sprintf("l%d-cache", i+1)
		c.node = parent.Subnode(c.section)
		n += w.writeCache(i)
	}

	return n
}

func (w *tableWriter) writeCache(level int) int {
	c := &w.ctx
	h, ok := w.begin(TypeCacheInformation, sizeCacheInformation)
	if !ok {
		return 0
	}

	id := func(base sysinfo.ID) sysinfo.ID { return base + sysinfo.ID(level) }

	t := CacheInformation{
		Header:              h,
		SocketDesignation:   c.addProp("socket-design", id(sysinfo.CacheSocket), ""),
		Configuration:       uint16(c.resolveInt("config", id(sysinfo.CacheConfig))),
		MaxSize:             uint16(c.resolveInt("max-size", id(sysinfo.CacheMaxSize))),
		InstalledSize:       uint16(c.resolveInt("installed-size", id(sysinfo.CacheInstalledSize))),
		SupportedSRAMType:   uint16(c.resolveInt("supported-sram-type", id(sysinfo.CacheSupportedSRAMType))),
		CurrentSRAMType:     uint16(c.resolveInt("current-sram-type", id(sysinfo.CacheCurrentSRAMType))),
		Speed:               uint8(c.resolveInt("speed", id(sysinfo.CacheSpeed))),
		ErrorCorrectionType: uint8(c.resolveInt("error-correction-type", id(sysinfo.CacheErrorCorrection))),
		SystemCacheType:     uint8(c.resolveInt("system-cache-type", id(sysinfo.CacheSystemType))),
		Associativity:       uint8(c.resolveInt("associativity", id(sysinfo.CacheAssociativity))),
		MaxSize2:            uint32(c.resolveInt("max-size2", id(sysinfo.CacheMaxSize2))),
		InstalledSize2:      uint32(c.resolveInt("installed-size2", id(sysinfo.CacheInstalledSize2))),
	}

	// Publish the handle for the processor structure.
	if data := c.resolveData(sysinfo.CacheHandle); len(data) == sysinfo.CacheHandleSize {
		binary.LittleEndian.PutUint16(data[level*2:], h.Handle)
	}

	return w.finish(&t, sizeCacheInformation)
}

func (w *tableWriter) writeProcessor() int {
	c := &w.ctx
	h, ok := w.begin(TypeProcessorInformation, sizeProcessorInformation)
	if !ok {
		return 0
	}

	t := ProcessorInformation{
		Header:            h,
		SocketDesignation: c.addProp("socket-design", sysinfo.ProcessorSocket, ""),
		ProcessorType:     uint8(c.resolveInt("processor-type", sysinfo.ProcessorType)),
	}
	w.processorIdentity(&t)

	t.Voltage = uint8(c.resolveInt("voltage", sysinfo.ProcessorVoltage))
	t.ExternalClock = uint16(c.resolveInt("external-clock", sysinfo.ProcessorExternalClock))
	t.MaxSpeed = uint16(c.resolveInt("max-speed", sysinfo.ProcessorMaxSpeed))
	t.CurrentSpeed = uint16(c.resolveInt("current-speed", sysinfo.ProcessorCurrentSpeed))
	t.Status = uint8(c.resolveInt("processor-status", sysinfo.ProcessorStatus))
	t.ProcessorUpgrade = uint8(c.resolveInt("upgrade", sysinfo.ProcessorUpgrade))

	handles := [sysinfo.CacheLevelMax]uint16{CacheHandleNone, CacheHandleNone, CacheHandleNone}
	if data := c.resolveData(sysinfo.CacheHandle); len(data) == sysinfo.CacheHandleSize {
		for i := range handles {
			// Handle 0 is the BIOS structure, so 0 means no cache.
			if v := binary.LittleEndian.Uint16(data[i*2:]); v != 0 {
				handles[i] = v
			}
		}
	}
	t.L1CacheHandle, t.L2CacheHandle, t.L3CacheHandle = handles[0], handles[1], handles[2]

	t.SerialNumber = c.addProp("serial", sysinfo.ProcessorSerial, "")
	t.AssetTag = c.addProp("asset-tag", sysinfo.ProcessorAssetTag, "")
	t.PartNumber = c.addProp("part-number", sysinfo.ProcessorPartNumber, "")
	t.CoreCount = uint8(c.resolveInt("core-count", sysinfo.ProcessorCoreCount))
	t.CoreEnabled = uint8(c.resolveInt("core-enabled", sysinfo.ProcessorCoreEnabled))
	t.ThreadCount = uint8(c.resolveInt("thread-count", sysinfo.ProcessorThreadCount))
	t.ProcessorCharacteristics = uint16(c.resolveInt("characteristics", sysinfo.ProcessorCharacteristics))
	t.CoreCount2 = uint16(c.resolveInt("core-count2", sysinfo.ProcessorCoreCount2))
	t.CoreEnabled2 = uint16(c.resolveInt("core-enabled2", sysinfo.ProcessorCoreEnabled2))
	t.ThreadCount2 = uint16(c.resolveInt("thread-count2", sysinfo.ProcessorThreadCount2))
	t.ThreadEnabled = uint16(c.resolveInt("thread-enabled", sysinfo.ProcessorThreadEnabled))

	return w.finish(&t, sizeProcessorInformation)
}

// processorIdentity sets the family, manufacturer, version and ID fields,
// preferring the CPU classifier over recorded facts.
func (w *tableWriter) processorIdentity(t *ProcessorInformation) {
	c := &w.ctx

	var info cpu.Info
	if w.opts.CPU != nil {
		var err error
		if info, err = w.opts.CPU.Classify(); err != nil {
			w.logger.Debug("failed to classify processor", "err", err)
			info = cpu.Info{}
		}
	}

	family := int(info.Family)
	if family == 0 || family == cpu.FamilyUnknown {
		family = c.resolveInt("family", sysinfo.ProcessorFamily)
	}
	switch {
	case family > 0xff:
		t.ProcessorFamily = cpu.FamilyExtended
		t.ProcessorFamily2 = uint16(family)
	case family == cpu.FamilyExtended:
		t.ProcessorFamily = cpu.FamilyExtended
		t.ProcessorFamily2 = uint16(c.resolveInt("family2", sysinfo.ProcessorFamily2))
	default:
		t.ProcessorFamily = uint8(family)
	}

	if info.Vendor != "" {
		t.ProcessorManufacturer = c.addString(info.Vendor)
	} else {
		t.ProcessorManufacturer = c.addProp("manufacturer", sysinfo.ProcessorManufacturer, "")
	}
	if info.Description != "" {
		t.ProcessorVersion = c.addString(info.Description)
	} else {
		t.ProcessorVersion = c.addProp("version", sysinfo.ProcessorVersion, "")
	}

	t.ProcessorID = info.ID
	if t.ProcessorID == [2]uint32{} {
		if data := c.resolveData(sysinfo.ProcessorID); len(data) == 8 {
			t.ProcessorID[0] = binary.LittleEndian.Uint32(data[0:4])
			t.ProcessorID[1] = binary.LittleEndian.Uint32(data[4:8])
		}
	}
}

func (w *tableWriter) writeBoot() int {
	h, ok := w.begin(TypeSystemBootInformation, sizeSystemBootInformation)
	if !ok {
		return 0
	}

	t := SystemBootInformation{Header: h}

	return w.finish(&t, sizeSystemBootInformation)
}

func (w *tableWriter) writeEnd() int {
	h, ok := w.begin(TypeEndOfTable, sizeEndOfTable)
	if !ok {
		return 0
	}

	return w.finish(&h, sizeEndOfTable)
}
