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
	"io"
	"os"
)

const (
	// Locations of SMBIOS data in sysfs.
	sysfsDMI        = "/sys/firmware/dmi/tables/DMI"
	sysfsEntryPoint = "/sys/firmware/dmi/tables/smbios_entry_point"

	// The legacy BIOS area searched when sysfs is unavailable.
	devMem    = "/dev/mem"
	biosStart = 0x000f0000
	biosEnd   = 0x00100000
)

// stream opens the SMBIOS entry point and an SMBIOS structure stream.
func stream() (io.ReadCloser, EntryPoint, error) {
	// First, check for the sysfs location present in modern kernels.
	_, err := os.Stat(sysfsEntryPoint)
	switch {
	case err == nil:
		return sysfsStream()
	case os.IsNotExist(err):
		return devMemStream()
	default:
		return nil, nil, err
	}
}

// sysfsStream reads the SMBIOS entry point and structure stream from
// two files; usually the modern sysfs locations.
func sysfsStream() (io.ReadCloser, EntryPoint, error) {
	epf, err := os.Open(sysfsEntryPoint)
	if err != nil {
		return nil, nil, err
	}
	defer epf.Close()

	ep, err := ParseEntryPoint(epf)
	if err != nil {
		return nil, nil, err
	}

	sf, err := os.Open(sysfsDMI)
	if err != nil {
		return nil, nil, err
	}

	return sf, ep, nil
}

// devMemStream searches physical memory for an entry point.
func devMemStream() (io.ReadCloser, EntryPoint, error) {
	f, err := os.Open(devMem)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return MemoryStream(f, 0, biosStart, biosEnd)
}
