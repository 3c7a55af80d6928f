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
)

// Structure types written by Build.
const (
	TypeBIOSInformation       = 0
	TypeSystemInformation     = 1
	TypeBaseboardInformation  = 2
	TypeSystemEnclosure       = 3
	TypeProcessorInformation  = 4
	TypeCacheInformation      = 7
	TypeSystemBootInformation = 32
	TypeEndOfTable            = 127
)

// CacheHandleNone marks an absent cache in a processor structure.
const CacheHandleNone = 0xffff

// A Header is a Structure's header.
type Header struct {
	Type   uint8
	Length uint8
	Handle uint16
}

// A Structure is a generic SMBIOS structure.
type Structure struct {
	Header    Header
	Formatted []byte
	Strings   []string
}

// String returns the string referenced by a 1-based string number, or ""
// for 0 and out of range numbers.
func (s *Structure) String(n uint8) string {
	if n == 0 || int(n) > len(s.Strings) {
		return ""
	}
	return s.Strings[n-1]
}

// Fixed layouts of the structures Build writes. Each is followed in the
// table by its string set. Byte fields named after strings hold string
// numbers.

// BIOSInformation is the formatted area of a type 0 structure.
type BIOSInformation struct {
	Header              Header
	Vendor              uint8
	Version             uint8
	StartSegment        uint16
	ReleaseDate         uint8
	ROMSize             uint8
	Characteristics     uint64
	CharacteristicsExt1 uint8
	CharacteristicsExt2 uint8
	MajorRelease        uint8
	MinorRelease        uint8
	ECMajorRelease      uint8
	ECMinorRelease      uint8
	ExtendedROMSize     uint16
}

// SystemInformation is the formatted area of a type 1 structure.
type SystemInformation struct {
	Header       Header
	Manufacturer uint8
	ProductName  uint8
	Version      uint8
	SerialNumber uint8
	UUID         [16]byte
	WakeupType   uint8
	SKUNumber    uint8
	Family       uint8
}

// BaseboardInformation is the formatted area of a type 2 structure, up to
// the variable list of contained object handles.
type BaseboardInformation struct {
	Header                 Header
	Manufacturer           uint8
	ProductName            uint8
	Version                uint8
	SerialNumber           uint8
	AssetTag               uint8
	FeatureFlags           uint8
	ChassisLocation        uint8
	ChassisHandle          uint16
	BoardType              uint8
	NumberContainedObjects uint8
}

// SystemEnclosure is the formatted area of a type 3 structure, up to the
// variable list of contained element records. The SKU number string
// follows the element records.
type SystemEnclosure struct {
	Header              Header
	Manufacturer        uint8
	ChassisType         uint8
	Version             uint8
	SerialNumber        uint8
	AssetTag            uint8
	BootupState         uint8
	PowerSupplyState    uint8
	ThermalState        uint8
	SecurityStatus      uint8
	OEMDefined          uint32
	Height              uint8
	NumberOfPowerCords  uint8
	ElementCount        uint8
	ElementRecordLength uint8
}

// ProcessorInformation is the formatted area of a type 4 structure.
type ProcessorInformation struct {
	Header                   Header
	SocketDesignation        uint8
	ProcessorType            uint8
	ProcessorFamily          uint8
	ProcessorManufacturer    uint8
	ProcessorID              [2]uint32
	ProcessorVersion         uint8
	Voltage                  uint8
	ExternalClock            uint16
	MaxSpeed                 uint16
	CurrentSpeed             uint16
	Status                   uint8
	ProcessorUpgrade         uint8
	L1CacheHandle            uint16
	L2CacheHandle            uint16
	L3CacheHandle            uint16
	SerialNumber             uint8
	AssetTag                 uint8
	PartNumber               uint8
	CoreCount                uint8
	CoreEnabled              uint8
	ThreadCount              uint8
	ProcessorCharacteristics uint16
	ProcessorFamily2         uint16
	CoreCount2               uint16
	CoreEnabled2             uint16
	ThreadCount2             uint16
	ThreadEnabled            uint16
}

// CacheInformation is the formatted area of a type 7 structure.
type CacheInformation struct {
	Header              Header
	SocketDesignation   uint8
	Configuration       uint16
	MaxSize             uint16
	InstalledSize       uint16
	SupportedSRAMType   uint16
	CurrentSRAMType     uint16
	Speed               uint8
	ErrorCorrectionType uint8
	SystemCacheType     uint8
	Associativity       uint8
	MaxSize2            uint32
	InstalledSize2      uint32
}

// SystemBootInformation is the formatted area of a type 32 structure.
type SystemBootInformation struct {
	Header     Header
	Reserved   [6]byte
	BootStatus uint8
}

// Sizes of the fixed layouts, including the header.
var (
	sizeBIOSInformation       = binary.Size(BIOSInformation{})
	sizeSystemInformation     = binary.Size(SystemInformation{})
	sizeBaseboardInformation  = binary.Size(BaseboardInformation{})
	sizeSystemEnclosure       = binary.Size(SystemEnclosure{})
	sizeProcessorInformation  = binary.Size(ProcessorInformation{})
	sizeCacheInformation      = binary.Size(CacheInformation{})
	sizeSystemBootInformation = binary.Size(SystemBootInformation{})
	sizeEndOfTable            = binary.Size(Header{})
)

// Unmarshal decodes the formatted area of s into v, which must point to
// one of the fixed layouts above (or any fixed-size struct starting with a
// Header). Bytes missing at the end of a short structure decode as zero.
func (s *Structure) Unmarshal(v any) error {
	b := make([]byte, binary.Size(v))
	b[0] = s.Header.Type
	b[1] = s.Header.Length
	binary.LittleEndian.PutUint16(b[2:4], s.Header.Handle)
	copy(b[headerLen:], s.Formatted)

	return binary.Read(bytes.NewReader(b), binary.LittleEndian, v)
}

// marshal encodes the fixed layout v into b.
func marshal(b []byte, v any) {
	var buf bytes.Buffer
	buf.Grow(binary.Size(v))

	// Writing a fixed-size struct to a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, v)
	copy(b, buf.Bytes())
}
