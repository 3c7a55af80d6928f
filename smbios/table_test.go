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

package smbios_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/digitalocean/go-smbios-builder/cpu"
	"github.com/digitalocean/go-smbios-builder/devtree"
	"github.com/digitalocean/go-smbios-builder/smbios"
	"github.com/digitalocean/go-smbios-builder/sysinfo"
	"github.com/digitalocean/go-smbios-builder/sysmem"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

const base = 0x1000

func TestBuildMinimal(t *testing.T) {
	probe := &sysinfo.Static{
		Strings: map[sysinfo.ID]string{
			sysinfo.BIOSVendor:  "Acme",
			sysinfo.BIOSVersion: "1.2",
		},
	}

	mem, tbl := mustBuild(t, 0x1000, smbios.Options{Probe: probe})
	ss := mustDecode(t, mem)

	if diff := cmp.Diff(uint64(0x1020), tbl.Address); diff != "" {
		t.Fatalf("unexpected table address (-want +got):\n%s", diff)
	}

	var (
		types   []uint8
		handles []uint16
	)
	for _, s := range ss {
		types = append(types, s.Header.Type)
		handles = append(handles, s.Header.Handle)
	}

	wantTypes := []uint8{0, 1, 2, 3, 7, 4, 32, 127}
	if diff := cmp.Diff(wantTypes, types); diff != "" {
		t.Fatalf("unexpected structure types (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint16{0, 1, 2, 3, 4, 5, 6, 7}, handles); diff != "" {
		t.Fatalf("unexpected structure handles (-want +got):\n%s", diff)
	}

	// 36 + 29 + 17 + 24 + 29 + 52 + 13 + 6
	if diff := cmp.Diff(206, tbl.Length); diff != "" {
		t.Fatalf("unexpected table length (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(len(ss), tbl.Structures); diff != "" {
		t.Fatalf("unexpected structure count (-want +got):\n%s", diff)
	}

	var bios smbios.BIOSInformation
	mustUnmarshal(t, ss[0], &bios)

	wantBIOS := smbios.BIOSInformation{
		Header:              smbios.Header{Type: 0, Length: 26, Handle: 0},
		Vendor:              1,
		Version:             2,
		StartSegment:        0xe000,
		CharacteristicsExt2: 1 << 2,
		ECMajorRelease:      0xff,
		ECMinorRelease:      0xff,
	}
	if diff := cmp.Diff(wantBIOS, bios); diff != "" {
		t.Fatalf("unexpected BIOS information (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Acme", "1.2"}, ss[0].Strings); diff != "" {
		t.Fatalf("unexpected BIOS strings (-want +got):\n%s", diff)
	}

	var proc smbios.ProcessorInformation
	mustUnmarshal(t, ss[5], &proc)

	none := []uint16{smbios.CacheHandleNone, smbios.CacheHandleNone, smbios.CacheHandleNone}
	got := []uint16{proc.L1CacheHandle, proc.L2CacheHandle, proc.L3CacheHandle}
	if diff := cmp.Diff(none, got); diff != "" {
		t.Fatalf("unexpected cache handles (-want +got):\n%s", diff)
	}
}

func TestBuildEntryPoint(t *testing.T) {
	mem, tbl := mustBuild(t, 0x1000, smbios.Options{})

	b := mem.Bytes()[:smbios.EntryPoint64Len]

	var sum uint8
	for _, c := range b {
		sum += c
	}
	if sum != 0 {
		t.Fatalf("entry point bytes sum to %#02x, want 0", sum)
	}

	ep, err := smbios.ParseEntryPoint(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("failed to parse entry point: %v", err)
	}

	major, minor, _ := ep.Version()
	addr, size := ep.Table()

	want := []int{3, 7, int(tbl.Address), tbl.Length}
	if diff := cmp.Diff(want, []int{major, minor, addr, size}); diff != "" {
		t.Fatalf("unexpected entry point (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(tbl.Address+uint64(tbl.Length), tbl.End); diff != "" {
		t.Fatalf("unexpected table end (-want +got):\n%s", diff)
	}
}

func TestBuildBaseboardChassisHandle(t *testing.T) {
	mem, _ := mustBuild(t, 0x1000, smbios.Options{})
	ss := mustDecode(t, mem)

	var board smbios.BaseboardInformation
	mustUnmarshal(t, find(t, ss, smbios.TypeBaseboardInformation), &board)
	chassis := find(t, ss, smbios.TypeSystemEnclosure)

	if diff := cmp.Diff(board.Header.Handle+1, board.ChassisHandle); diff != "" {
		t.Fatalf("unexpected chassis handle (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(chassis.Header.Handle, board.ChassisHandle); diff != "" {
		t.Fatalf("chassis handle does not reference enclosure (-want +got):\n%s", diff)
	}
}

func TestBuildCaches(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		types   []uint8
		handles []uint16
	}{
		{
			name:    "L1",
			level:   0,
			types:   []uint8{0, 1, 2, 3, 7, 4, 32, 127},
			handles: []uint16{4, smbios.CacheHandleNone, smbios.CacheHandleNone},
		},
		{
			name:    "L1-L3",
			level:   2,
			types:   []uint8{0, 1, 2, 3, 7, 7, 7, 4, 32, 127},
			handles: []uint16{4, 5, 6},
		},
		{
			name:    "first unsupported level",
			level:   sysinfo.CacheLevelMax,
			types:   []uint8{0, 1, 2, 3, 4, 32, 127},
			handles: []uint16{smbios.CacheHandleNone, smbios.CacheHandleNone, smbios.CacheHandleNone},
		},
		{
			name:    "unsupported level",
			level:   4,
			types:   []uint8{0, 1, 2, 3, 4, 32, 127},
			handles: []uint16{smbios.CacheHandleNone, smbios.CacheHandleNone, smbios.CacheHandleNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := (&sysinfo.Static{
				Ints: map[sysinfo.ID]int{
					sysinfo.CacheLevel:             tt.level,
					sysinfo.CacheConfig:            0x180,
					sysinfo.CacheInstalledSize + 1: 256,
					sysinfo.CacheAssociativity + 2: 8,
				},
				Strings: map[sysinfo.ID]string{
					sysinfo.CacheSocket: "L1-Cache",
				},
			}).WithCacheHandles()

			mem, _ := mustBuild(t, 0x1000, smbios.Options{Probe: probe})
			ss := mustDecode(t, mem)

			var types []uint8
			for _, s := range ss {
				types = append(types, s.Header.Type)
			}
			if diff := cmp.Diff(tt.types, types); diff != "" {
				t.Fatalf("unexpected structure types (-want +got):\n%s", diff)
			}

			var proc smbios.ProcessorInformation
			mustUnmarshal(t, find(t, ss, smbios.TypeProcessorInformation), &proc)

			got := []uint16{proc.L1CacheHandle, proc.L2CacheHandle, proc.L3CacheHandle}
			if diff := cmp.Diff(tt.handles, got); diff != "" {
				t.Fatalf("unexpected cache handles (-want +got):\n%s", diff)
			}

			if tt.level != 2 {
				return
			}

			var l1, l2, l3 smbios.CacheInformation
			mustUnmarshal(t, ss[4], &l1)
			mustUnmarshal(t, ss[5], &l2)
			mustUnmarshal(t, ss[6], &l3)

			if diff := cmp.Diff([]string{"L1-Cache"}, ss[4].Strings); diff != "" {
				t.Fatalf("unexpected L1 strings (-want +got):\n%s", diff)
			}
			want := []int{0x180, 1, 0, 256, 0, 8}
			got2 := []int{
				int(l1.Configuration), int(l1.SocketDesignation),
				int(l2.Configuration), int(l2.InstalledSize),
				int(l2.SocketDesignation), int(l3.Associativity),
			}
			if diff := cmp.Diff(want, got2); diff != "" {
				t.Fatalf("unexpected cache fields (-want +got):\n%s", diff)
			}
		})
	}
}

const treeYAML = `
model: Acme,X1000
compatible: acme,x1000
sysinfo:
  smbios:
    bios:
      version: "2024.01"
    system:
      manufacturer: Acme Corp
      uuid: d2b4a0b4-1c3e-4f5a-9b6c-7d8e9fa0b1c2
      wakeup-type: "6"
    chassis:
      chassis-type: "0x17"
      sku: CH-1
    processor:
      family: "0xfe"
      family2: "0x101"
      version: Cortex-A72
`

func TestBuildTree(t *testing.T) {
	tree, err := devtree.ParseYAML([]byte(treeYAML))
	if err != nil {
		t.Fatalf("failed to parse tree: %v", err)
	}

	mem, _ := mustBuild(t, 0x1000, smbios.Options{Tree: tree})
	ss := mustDecode(t, mem)

	bios := find(t, ss, smbios.TypeBIOSInformation)
	if diff := cmp.Diff([]string{"2024.01"}, bios.Strings); diff != "" {
		t.Fatalf("unexpected BIOS strings (-want +got):\n%s", diff)
	}

	var sys smbios.SystemInformation
	s1 := find(t, ss, smbios.TypeSystemInformation)
	mustUnmarshal(t, s1, &sys)

	// A system node exists, so nothing is remapped from the root.
	if diff := cmp.Diff([]string{"Acme Corp"}, s1.Strings); diff != "" {
		t.Fatalf("unexpected system strings (-want +got):\n%s", diff)
	}
	wantUUID := []byte{
		0xb4, 0xa0, 0xb4, 0xd2, 0x3e, 0x1c, 0x5a, 0x4f,
		0x9b, 0x6c, 0x7d, 0x8e, 0x9f, 0xa0, 0xb1, 0xc2,
	}
	if diff := cmp.Diff(wantUUID, sys.UUID[:]); diff != "" {
		t.Fatalf("unexpected system UUID (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(uint8(6), sys.WakeupType); diff != "" {
		t.Fatalf("unexpected wakeup type (-want +got):\n%s", diff)
	}

	// No baseboard node: manufacturer and product come from the root.
	var board smbios.BaseboardInformation
	s2 := find(t, ss, smbios.TypeBaseboardInformation)
	mustUnmarshal(t, s2, &board)

	got := []string{s2.String(board.Manufacturer), s2.String(board.ProductName)}
	if diff := cmp.Diff([]string{"acme", "X1000"}, got); diff != "" {
		t.Fatalf("unexpected remapped baseboard strings (-want +got):\n%s", diff)
	}

	s3 := find(t, ss, smbios.TypeSystemEnclosure)
	var chassis smbios.SystemEnclosure
	mustUnmarshal(t, s3, &chassis)

	if diff := cmp.Diff(uint8(0x17), chassis.ChassisType); diff != "" {
		t.Fatalf("unexpected chassis type (-want +got):\n%s", diff)
	}
	// SKU number is the last formatted byte.
	if sku := s3.Formatted[len(s3.Formatted)-1]; s3.String(sku) != "CH-1" {
		t.Fatalf("unexpected chassis SKU %q", s3.String(sku))
	}

	var proc smbios.ProcessorInformation
	s4 := find(t, ss, smbios.TypeProcessorInformation)
	mustUnmarshal(t, s4, &proc)

	want := []int{0xfe, 0x101}
	if diff := cmp.Diff(want, []int{int(proc.ProcessorFamily), int(proc.ProcessorFamily2)}); diff != "" {
		t.Fatalf("unexpected processor family (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Cortex-A72", s4.String(proc.ProcessorVersion)); diff != "" {
		t.Fatalf("unexpected processor version (-want +got):\n%s", diff)
	}
}

func TestBuildRemapSystem(t *testing.T) {
	tree := devtree.New()
	tree.SetProperty("model", "Acme,,X1000,rev-b")
	tree.SetProperty("compatible", "acme,x1000")

	mem, _ := mustBuild(t, 0x1000, smbios.Options{Tree: tree})
	ss := mustDecode(t, mem)

	var sys smbios.SystemInformation
	s := find(t, ss, smbios.TypeSystemInformation)
	mustUnmarshal(t, s, &sys)

	got := []string{s.String(sys.Manufacturer), s.String(sys.ProductName)}
	if diff := cmp.Diff([]string{"acme", "X1000"}, got); diff != "" {
		t.Fatalf("unexpected remapped system strings (-want +got):\n%s", diff)
	}
}

func TestBuildSerialSeedsUUID(t *testing.T) {
	tree := devtree.New()
	tree.AddSubnode("sysinfo").AddSubnode("smbios").AddSubnode("system").
		SetProperty("uuid", "d2b4a0b4-1c3e-4f5a-9b6c-7d8e9fa0b1c2")

	probe := &sysinfo.Static{
		Strings: map[sysinfo.ID]string{
			sysinfo.SystemSerial: "probe-serial",
		},
	}

	mem, _ := mustBuild(t, 0x1000, smbios.Options{
		Tree:   tree,
		Probe:  probe,
		Serial: "SN-0123456789ABCDEF",
	})
	ss := mustDecode(t, mem)

	var sys smbios.SystemInformation
	s := find(t, ss, smbios.TypeSystemInformation)
	mustUnmarshal(t, s, &sys)

	if diff := cmp.Diff("SN-0123456789ABCDEF", s.String(sys.SerialNumber)); diff != "" {
		t.Fatalf("unexpected serial number (-want +got):\n%s", diff)
	}

	var want [16]byte
	copy(want[:], "SN-0123456789AB")
	if diff := cmp.Diff(want, sys.UUID); diff != "" {
		t.Fatalf("unexpected system UUID (-want +got):\n%s", diff)
	}
}

func TestBuildUUIDFromProbe(t *testing.T) {
	u := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	probe := &sysinfo.Static{
		Data: map[sysinfo.ID][]byte{
			sysinfo.SystemUUID: smbios.EncodeUUID(u),
		},
	}

	mem, _ := mustBuild(t, 0x1000, smbios.Options{Probe: probe})
	ss := mustDecode(t, mem)

	var sys smbios.SystemInformation
	mustUnmarshal(t, find(t, ss, smbios.TypeSystemInformation), &sys)

	if diff := cmp.Diff(u, smbios.DecodeUUID(sys.UUID[:])); diff != "" {
		t.Fatalf("unexpected system UUID (-want +got):\n%s", diff)
	}
}

func TestBuildDetectFailure(t *testing.T) {
	tree := devtree.New()
	tree.AddSubnode("sysinfo").AddSubnode("smbios").AddSubnode("system").
		SetProperty("manufacturer", "Tree Corp")

	probe := &sysinfo.Static{
		Strings: map[sysinfo.ID]string{
			sysinfo.BIOSVendor:         "Probe BIOS",
			sysinfo.SystemManufacturer: "Probe Corp",
		},
		DetectErr: errors.New("no such device"),
	}

	mem, _ := mustBuild(t, 0x1000, smbios.Options{
		Tree:   tree,
		Probe:  probe,
		Vendor: "Fallback BIOS",
	})
	ss := mustDecode(t, mem)

	bios := find(t, ss, smbios.TypeBIOSInformation)
	sys := find(t, ss, smbios.TypeSystemInformation)

	got := []string{bios.Strings[0], sys.Strings[0]}
	if diff := cmp.Diff([]string{"Fallback BIOS", "Tree Corp"}, got); diff != "" {
		t.Fatalf("unexpected strings after failed detection (-want +got):\n%s", diff)
	}
}

type fakeCPU struct {
	info cpu.Info
	err  error
}

func (f fakeCPU) Classify() (cpu.Info, error) { return f.info, f.err }

func TestBuildProcessor(t *testing.T) {
	facts := func() *sysinfo.Static {
		return &sysinfo.Static{
			Ints: map[sysinfo.ID]int{
				sysinfo.ProcessorFamily: 0x0c,
			},
			Strings: map[sysinfo.ID]string{
				sysinfo.ProcessorManufacturer: "Probe Vendor",
				sysinfo.ProcessorVersion:      "Probe Model",
			},
			Data: map[sysinfo.ID][]byte{
				sysinfo.ProcessorID: {0x78, 0x56, 0x34, 0x12, 0xef, 0xcd, 0xab, 0x89},
			},
		}
	}

	tests := []struct {
		name    string
		cpu     cpu.Classifier
		family  []int
		strings []string
		id      [2]uint32
	}{
		{
			name:    "facts only",
			family:  []int{0x0c, 0},
			strings: []string{"Probe Vendor", "Probe Model"},
			id:      [2]uint32{0x12345678, 0x89abcdef},
		},
		{
			name: "classifier wins",
			cpu: fakeCPU{info: cpu.Info{
				Vendor:      "GenuineIntel",
				Description: "Intel(R) Xeon(R) Gold 6130",
				Family:      cpu.FamilyXeon,
				ID:          [2]uint32{0x00050654, 0xbfebfbff},
			}},
			family:  []int{cpu.FamilyXeon, 0},
			strings: []string{"GenuineIntel", "Intel(R) Xeon(R) Gold 6130"},
			id:      [2]uint32{0x00050654, 0xbfebfbff},
		},
		{
			name: "extended family",
			cpu: fakeCPU{info: cpu.Info{
				Vendor: "ARM",
				Family: cpu.FamilyARMv8,
			}},
			family:  []int{cpu.FamilyExtended, cpu.FamilyARMv8},
			strings: []string{"ARM", "Probe Model"},
			id:      [2]uint32{0x12345678, 0x89abcdef},
		},
		{
			name:    "classifier error",
			cpu:     fakeCPU{err: errors.New("unsupported")},
			family:  []int{0x0c, 0},
			strings: []string{"Probe Vendor", "Probe Model"},
			id:      [2]uint32{0x12345678, 0x89abcdef},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, _ := mustBuild(t, 0x1000, smbios.Options{Probe: facts(), CPU: tt.cpu})
			ss := mustDecode(t, mem)

			var proc smbios.ProcessorInformation
			s := find(t, ss, smbios.TypeProcessorInformation)
			mustUnmarshal(t, s, &proc)

			family := []int{int(proc.ProcessorFamily), int(proc.ProcessorFamily2)}
			if diff := cmp.Diff(tt.family, family); diff != "" {
				t.Fatalf("unexpected processor family (-want +got):\n%s", diff)
			}

			strs := []string{s.String(proc.ProcessorManufacturer), s.String(proc.ProcessorVersion)}
			if diff := cmp.Diff(tt.strings, strs); diff != "" {
				t.Fatalf("unexpected processor strings (-want +got):\n%s", diff)
			}

			if diff := cmp.Diff(tt.id, proc.ProcessorID); diff != "" {
				t.Fatalf("unexpected processor ID (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildBIOSCharacteristics(t *testing.T) {
	tests := []struct {
		name  string
		opts  smbios.Options
		rom   []int
		chars []uint64
	}{
		{
			name:  "8 MiB, no features",
			opts:  smbios.Options{ROMSize: 8 << 20},
			rom:   []int{127, 0},
			chars: []uint64{0, 0, 1 << 2},
		},
		{
			name: "32 MiB, all features",
			opts: smbios.Options{
				ROMSize: 32 << 20,
				Features: smbios.FeaturePCI | smbios.FeatureSelectableBoot |
					smbios.FeatureUpgradeable | smbios.FeatureACPI | smbios.FeatureUEFI,
			},
			rom:   []int{0xff, 32},
			chars: []uint64{1<<7 | 1<<11 | 1<<16, 1, 1<<2 | 1<<3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, _ := mustBuild(t, 0x1000, tt.opts)
			ss := mustDecode(t, mem)

			var bios smbios.BIOSInformation
			mustUnmarshal(t, find(t, ss, smbios.TypeBIOSInformation), &bios)

			rom := []int{int(bios.ROMSize), int(bios.ExtendedROMSize)}
			if diff := cmp.Diff(tt.rom, rom); diff != "" {
				t.Fatalf("unexpected ROM size (-want +got):\n%s", diff)
			}

			chars := []uint64{
				bios.Characteristics,
				uint64(bios.CharacteristicsExt1),
				uint64(bios.CharacteristicsExt2),
			}
			if diff := cmp.Diff(tt.chars, chars); diff != "" {
				t.Fatalf("unexpected characteristics (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildNoSpace(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "no room for table", size: 16},
		{name: "table truncated", size: 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := sysmem.New(base, tt.size)

			_, err := smbios.Build(mem, base, smbios.Options{
				Vendor:  "Acme",
				Version: "1.2",
			})
			if !errors.Is(err, smbios.ErrNoSpace) {
				t.Fatalf("expected ErrNoSpace, but got: %v", err)
			}
		})
	}
}

func TestBuildNULInString(t *testing.T) {
	probe := &sysinfo.Static{
		Strings: map[sysinfo.ID]string{
			sysinfo.SystemManufacturer: "Acme\x00",
			sysinfo.SystemProduct:      "X1000",
		},
	}

	mem, tbl := mustBuild(t, 0x1000, smbios.Options{Probe: probe})
	ss := mustDecode(t, mem)

	if diff := cmp.Diff(tbl.Structures, len(ss)); diff != "" {
		t.Fatalf("unexpected structure count (-want +got):\n%s", diff)
	}

	sys := find(t, ss, smbios.TypeSystemInformation)
	if diff := cmp.Diff([]string{"Acme", "X1000"}, sys.Strings); diff != "" {
		t.Fatalf("unexpected system strings (-want +got):\n%s", diff)
	}
}

func TestTablePatchVersion(t *testing.T) {
	tests := []struct {
		name    string
		opts    smbios.Options
		patch   string
		strings []string
		err     error
	}{
		{
			name:    "shorter",
			opts:    smbios.Options{Vendor: "Acme", Version: "v1.0.0"},
			patch:   "v2",
			strings: []string{"Acme", "v2    "},
		},
		{
			name:    "same length",
			opts:    smbios.Options{Vendor: "Acme", Version: "v1.0.0"},
			patch:   "v1.0.1",
			strings: []string{"Acme", "v1.0.1"},
		},
		{
			name:    "NUL ends version",
			opts:    smbios.Options{Vendor: "Acme", Version: "v1.0.0"},
			patch:   "v2\x00junk",
			strings: []string{"Acme", "v2    "},
		},
		{
			name:    "vendor text equals version",
			opts:    smbios.Options{Vendor: "1.0", Version: "1.0"},
			patch:   "2",
			strings: []string{"1.0", "2  "},
		},
		{
			name:    "release date text equals version",
			opts:    smbios.Options{Vendor: "Acme", Version: "1.0", ReleaseDate: "1.0"},
			patch:   "2",
			strings: []string{"Acme", "2  ", "1.0"},
		},
		{
			name:  "too long",
			opts:  smbios.Options{Vendor: "Acme", Version: "v1.0.0"},
			patch: "v10.0.0",
			err:   smbios.ErrVersionTooLong,
		},
		{
			name:  "no version",
			opts:  smbios.Options{Vendor: "Acme"},
			patch: "v2",
			err:   smbios.ErrVersionNotWritten,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, tbl := mustBuild(t, 0x1000, tt.opts)

			err := tbl.PatchVersion(tt.patch)
			if !errors.Is(err, tt.err) {
				t.Fatalf("unexpected error: want %v, got %v", tt.err, err)
			}
			if tt.err != nil {
				t.Logf("OK error: %v", err)
				return
			}

			bios := find(t, mustDecode(t, mem), smbios.TypeBIOSInformation)
			if diff := cmp.Diff(tt.strings, bios.Strings); diff != "" {
				t.Fatalf("unexpected BIOS strings (-want +got):\n%s", diff)
			}
		})
	}

	var nilTable *smbios.Table
	if err := nilTable.PatchVersion("v1"); !errors.Is(err, smbios.ErrVersionNotWritten) {
		t.Fatalf("expected ErrVersionNotWritten from nil table, but got: %v", err)
	}
}

func mustBuild(t *testing.T, size int, opts smbios.Options) (*sysmem.Region, *smbios.Table) {
	t.Helper()

	mem := sysmem.New(base, size)
	tbl, err := smbios.Build(mem, base, opts)
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}

	return mem, tbl
}

func mustDecode(t *testing.T, mem *sysmem.Region) []*smbios.Structure {
	t.Helper()

	b := mem.Bytes()
	rc, _, err := smbios.MemoryStream(bytes.NewReader(b), mem.Base(), 0, len(b))
	if err != nil {
		t.Fatalf("failed to open table stream: %v", err)
	}
	defer rc.Close()

	ss, err := smbios.NewDecoder(rc).Decode()
	if err != nil {
		t.Fatalf("failed to decode structures: %v", err)
	}

	return ss
}

func mustUnmarshal(t *testing.T, s *smbios.Structure, v any) {
	t.Helper()

	if err := s.Unmarshal(v); err != nil {
		t.Fatalf("failed to unmarshal type %d structure: %v", s.Header.Type, err)
	}
}

func find(t *testing.T, ss []*smbios.Structure, typ uint8) *smbios.Structure {
	t.Helper()

	for _, s := range ss {
		if s.Header.Type == typ {
			return s
		}
	}

	t.Fatalf("no type %d structure in table", typ)
	return nil
}
