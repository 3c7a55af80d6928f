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

// Package cpu classifies the boot processor for firmware tables.
package cpu

import (
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// SMBIOS processor family codes used by the classifier.
const (
	FamilyUnknown  = 0x02
	FamilyXeon     = 0xb3
	FamilyCoreI7   = 0xc6
	FamilyCoreI5   = 0xcd
	FamilyCoreI3   = 0xce
	FamilyAMDZen   = 0x6b
	FamilyExtended = 0xfe
	FamilyARMv7    = 0x100
	FamilyARMv8    = 0x101
)

// Info identifies a processor. Empty strings and a zero Family mean the
// classifier could not tell.
type Info struct {
	Vendor      string
	Description string

	// Family is an SMBIOS processor family code. Codes above 0xff only
	// fit the 16-bit family2 field.
	Family uint16

	// ID holds the two 32-bit processor ID words. On x86 these are the
	// CPUID leaf 1 EAX signature and EDX feature flags.
	ID [2]uint32
}

// A Classifier identifies the processor a table describes.
type Classifier interface {
	Classify() (Info, error)
}

// Host classifies the processor this program runs on.
type Host struct{}

var _ Classifier = Host{}

// Classify implements Classifier using CPUID.
func (Host) Classify() (Info, error) {
	return classify(&cpuid.CPU, runtime.GOARCH), nil
}

func classify(c *cpuid.CPUInfo, arch string) Info {
	info := Info{
		Vendor:      strings.TrimSpace(c.VendorString),
		Description: strings.TrimSpace(c.BrandName),
	}

	switch arch {
	case "amd64", "386":
		info.Family = x86Family(info.Description)
		info.ID[0] = signature(c.Family, c.Model)
		info.ID[1] = features(c)
	case "arm64":
		info.Family = FamilyARMv8
	case "arm":
		info.Family = FamilyARMv7
	}

	return info
}

func x86Family(brand string) uint16 {
	switch {
	case strings.Contains(brand, "Xeon"):
		return FamilyXeon
	case strings.Contains(brand, "i7-"):
		return FamilyCoreI7
	case strings.Contains(brand, "i5-"):
		return FamilyCoreI5
	case strings.Contains(brand, "i3-"):
		return FamilyCoreI3
	case strings.Contains(brand, "EPYC"), strings.Contains(brand, "Ryzen"):
		return FamilyAMDZen
	}
	return 0
}

// signature rebuilds the leaf 1 EAX layout from the display family and
// model. Stepping is not available and stays zero.
func signature(family, model int) uint32 {
	var fam, extFam uint32
	if family >= 0xf {
		fam, extFam = 0xf, uint32(family-0xf)
	} else if family > 0 {
		fam = uint32(family)
	}
	if model < 0 {
		model = 0
	}
	m := uint32(model)
	return (m&0xf)<<4 | fam<<8 | (m>>4&0xf)<<16 | (extFam&0xff)<<20
}

// features sets the leaf 1 EDX bits CPUID reports through feature IDs.
func features(c *cpuid.CPUInfo) uint32 {
	var edx uint32
	for _, f := range []struct {
		id  cpuid.FeatureID
		bit uint
	}{
		{cpuid.CMOV, 15},
		{cpuid.MMX, 23},
		{cpuid.SSE, 25},
		{cpuid.SSE2, 26},
		{cpuid.HTT, 28},
	} {
		if c.Has(f.id) {
			edx |= 1 << f.bit
		}
	}
	return edx
}
