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
	"fmt"
	"strconv"
	"strings"
)

// CacheLevelMax is the number of cache levels a table can describe. Every
// cache attribute ID reserves this many consecutive values, one per level.
const CacheLevelMax = 3

// CacheHandleSize is the size in bytes of the CacheHandle data area: one
// little-endian 16-bit handle per cache level.
const CacheHandleSize = CacheLevelMax * 2

// An ID identifies one fact a Driver can report. Values are stable: an ID
// is never reused for a different meaning, and new IDs are only appended.
type ID int

// Standard IDs.
const (
	None ID = iota

	// BIOS Information (Type 0)
	BIOSVendor
	BIOSVersion
	BIOSReleaseDate

	// System Information (Type 1)
	SystemManufacturer
	SystemProduct
	SystemVersion
	SystemSerial
	SystemWakeup
	SystemSKU
	SystemFamily

	// Baseboard (or Module) Information (Type 2)
	BaseboardManufacturer
	BaseboardProduct
	BaseboardVersion
	BaseboardSerial
	BaseboardAssetTag
	BaseboardFeature
	BaseboardChassisLocation
	BaseboardType
	BaseboardObjectsNum
	BaseboardObjectsHandle

	// System Enclosure or Chassis (Type 3)
	EnclosureManufacturer
	EnclosureVersion
	EnclosureSerial
	EnclosureAssetTag
	EnclosureType
	EnclosureBootup
	EnclosurePower
	EnclosureThermal
	EnclosureSecurity
	EnclosureOEM
	EnclosureHeight
	EnclosurePowerCords
	EnclosureElementCount
	EnclosureElementLength
	EnclosureElements
	EnclosureSKU

	// Processor Information (Type 4)
	ProcessorSocket
	ProcessorType
	ProcessorManufacturer
	ProcessorID
	ProcessorVersion
	ProcessorVoltage
	ProcessorExternalClock
	ProcessorMaxSpeed
	ProcessorCurrentSpeed
	ProcessorStatus
	ProcessorUpgrade
	ProcessorSerial
	ProcessorAssetTag
	ProcessorPartNumber
	ProcessorCoreCount
	ProcessorCoreEnabled
	ProcessorThreadCount
	ProcessorCharacteristics
	ProcessorFamily
	ProcessorFamily2
	ProcessorCoreCount2
	ProcessorCoreEnabled2
	ProcessorThreadCount2
	ProcessorThreadEnabled

	// Cache Information (Type 7)
	CacheLevel
	CacheHandle
	CacheInfoStart
)

// Cache attribute IDs. Each is the level 0 (L1) value; level n is at
// ID + n, for n < CacheLevelMax.
const (
	CacheSocket ID = CacheInfoStart + iota*CacheLevelMax
	CacheConfig
	CacheMaxSize
	CacheInstalledSize
	CacheSupportedSRAMType
	CacheCurrentSRAMType
	CacheSpeed
	CacheErrorCorrection
	CacheSystemType
	CacheAssociativity
	CacheMaxSize2
	CacheInstalledSize2

	CacheInfoEnd = CacheInstalledSize2 + CacheLevelMax - 1
)

const (
	BoardModel ID = CacheInfoEnd + 1 + iota
	BoardManufacturer
	PriorStageVersion
	PriorStageDate

	// SystemUUID is a 16-byte data area holding the system UUID in
	// SMBIOS byte order.
	SystemUUID
)

// User is the first ID available for board-specific facts.
const User ID = 0x1000

var names = map[ID]string{
	None: "none",

	BIOSVendor:      "bios.vendor",
	BIOSVersion:     "bios.version",
	BIOSReleaseDate: "bios.release-date",

	SystemManufacturer: "system.manufacturer",
	SystemProduct:      "system.product",
	SystemVersion:      "system.version",
	SystemSerial:       "system.serial",
	SystemWakeup:       "system.wakeup-type",
	SystemSKU:          "system.sku",
	SystemFamily:       "system.family",

	BaseboardManufacturer:    "baseboard.manufacturer",
	BaseboardProduct:         "baseboard.product",
	BaseboardVersion:         "baseboard.version",
	BaseboardSerial:          "baseboard.serial",
	BaseboardAssetTag:        "baseboard.asset-tag",
	BaseboardFeature:         "baseboard.feature-flags",
	BaseboardChassisLocation: "baseboard.chassis-location",
	BaseboardType:            "baseboard.board-type",
	BaseboardObjectsNum:      "baseboard.objects-num",
	BaseboardObjectsHandle:   "baseboard.objects-handle",

	EnclosureManufacturer:  "chassis.manufacturer",
	EnclosureVersion:       "chassis.version",
	EnclosureSerial:        "chassis.serial",
	EnclosureAssetTag:      "chassis.asset-tag",
	EnclosureType:          "chassis.chassis-type",
	EnclosureBootup:        "chassis.bootup-state",
	EnclosurePower:         "chassis.power-supply-state",
	EnclosureThermal:       "chassis.thermal-state",
	EnclosureSecurity:      "chassis.security-status",
	EnclosureOEM:           "chassis.oem-defined",
	EnclosureHeight:        "chassis.height",
	EnclosurePowerCords:    "chassis.number-of-power-cords",
	EnclosureElementCount:  "chassis.element-count",
	EnclosureElementLength: "chassis.element-length",
	EnclosureElements:      "chassis.elements",
	EnclosureSKU:           "chassis.sku",

	ProcessorSocket:          "processor.socket-design",
	ProcessorType:            "processor.processor-type",
	ProcessorManufacturer:    "processor.manufacturer",
	ProcessorID:              "processor.id",
	ProcessorVersion:         "processor.version",
	ProcessorVoltage:         "processor.voltage",
	ProcessorExternalClock:   "processor.external-clock",
	ProcessorMaxSpeed:        "processor.max-speed",
	ProcessorCurrentSpeed:    "processor.current-speed",
	ProcessorStatus:          "processor.processor-status",
	ProcessorUpgrade:         "processor.upgrade",
	ProcessorSerial:          "processor.serial",
	ProcessorAssetTag:        "processor.asset-tag",
	ProcessorPartNumber:      "processor.part-number",
	ProcessorCoreCount:       "processor.core-count",
	ProcessorCoreEnabled:     "processor.core-enabled",
	ProcessorThreadCount:     "processor.thread-count",
	ProcessorCharacteristics: "processor.characteristics",
	ProcessorFamily:          "processor.family",
	ProcessorFamily2:         "processor.family2",
	ProcessorCoreCount2:      "processor.core-count2",
	ProcessorCoreEnabled2:    "processor.core-enabled2",
	ProcessorThreadCount2:    "processor.thread-count2",
	ProcessorThreadEnabled:   "processor.thread-enabled",

	CacheLevel:  "cache.level",
	CacheHandle: "cache.handle",

	BoardModel:        "board.model",
	BoardManufacturer: "board.manufacturer",
	PriorStageVersion: "prior-stage.version",
	PriorStageDate:    "prior-stage.date",
	SystemUUID:        "system.uuid",
}

// cacheNames is indexed by (id - CacheInfoStart) / CacheLevelMax.
var cacheNames = [...]string{
	"socket-design",
	"config",
	"max-size",
	"installed-size",
	"supported-sram-type",
	"current-sram-type",
	"speed",
	"error-correction-type",
	"system-cache-type",
	"associativity",
	"max-size2",
	"installed-size2",
}

var byName = func() map[string]ID {
	m := make(map[string]ID, len(names)+len(cacheNames)*CacheLevelMax)
	for id, n := range names {
		m[n] = id
	}
	for id := CacheInfoStart; id <= CacheInfoEnd; id++ {
		m[id.String()] = id
	}
	return m
}()

// String returns the dotted name of an ID, such as "bios.vendor" or
// "cache.l2.max-size". Unnamed IDs are printed as integers.
func (id ID) String() string {
	if id >= CacheInfoStart && id <= CacheInfoEnd {
		off := int(id - CacheInfoStart)
		return fmt.Sprintf("cache.l%d.%s", off%CacheLevelMax+1, cacheNames[off/CacheLevelMax])
	}
	if n, ok := names[id]; ok {
		return n
	}
	return strconv.Itoa(int(id))
}

// ParseID returns the ID named by s. It accepts the names produced by
// String, and plain decimal or 0x-prefixed integers for unnamed IDs.
func ParseID(s string) (ID, error) {
	if id, ok := byName[strings.TrimSpace(s)]; ok {
		return id, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return None, fmt.Errorf("unknown sysinfo ID %q", s)
	}
	return ID(v), nil
}
