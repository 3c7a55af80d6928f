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

// Command lssmbios accesses and displays SMBIOS data, either from the
// running machine or from a memory image written by mksmbios.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/digitalocean/go-smbios-builder/smbios"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lssmbios: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, args []string) error {
	var (
		image string
		base  uint64
	)

	flagSet := pflag.NewFlagSet("lssmbios", pflag.ContinueOnError)
	flagSet.StringVar(&image, "image", "", "read a memory image instead of the host tables")
	flagSet.Uint64Var(&base, "base", 0xf0000, "physical address of the image")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rc, ep, err := open(image, base)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	// Be sure to close the stream!
	defer rc.Close()

	// Decode SMBIOS structures from the stream.
	d := smbios.NewDecoder(rc)
	ss, err := d.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode structures: %w", err)
	}

	// Determine SMBIOS version and table location from entry point.
	major, minor, rev := ep.Version()
	addr, size := ep.Table()

	fmt.Fprintf(w, "SMBIOS %d.%d.%d - table: address: %#x, size: %d\n",
		major, minor, rev, addr, size)

	for _, s := range ss {
		printStructure(w, s)
	}

	return nil
}

// open finds SMBIOS data in an image file or the operating system-specific
// location.
func open(image string, base uint64) (io.ReadCloser, smbios.EntryPoint, error) {
	if image == "" {
		return smbios.Stream()
	}

	f, err := os.Open(image)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	return smbios.MemoryStream(f, base, 0, int(fi.Size()))
}

func printStructure(w io.Writer, s *smbios.Structure) {
	fmt.Fprintf(w, "handle %#04x, type %d, %d bytes\n", s.Header.Handle, s.Header.Type, s.Header.Length)

	if s.Header.Type == smbios.TypeSystemInformation {
		var sys smbios.SystemInformation
		if err := s.Unmarshal(&sys); err == nil {
			if u := smbios.DecodeUUID(sys.UUID[:]); u != uuid.Nil {
				fmt.Fprintf(w, "\tUUID: %s\n", u)
			}
		}
	}

	for i, str := range s.Strings {
		fmt.Fprintf(w, "\t%d: %q\n", i+1, str)
	}
}
