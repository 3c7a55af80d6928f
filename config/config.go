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

// Package config loads the mksmbios configuration file.
//
// A configuration is a YAML document layered over Default. String values
// may reference environment variables as ${VAR} or ${VAR:-default}, which
// is how an environment serial number is usually supplied.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/digitalocean/go-smbios-builder/smbios"
	"gopkg.in/yaml.v3"
)

// Config configures a table build.
type Config struct {
	// Image describes the memory the table is written to.
	Image ImageConfig `yaml:"image"`

	// Firmware is the firmware identity used when no probe reports one.
	Firmware FirmwareConfig `yaml:"firmware"`

	// Features are the advertised BIOS characteristics.
	Features FeaturesConfig `yaml:"features"`

	// Sources selects where facts come from.
	Sources SourcesConfig `yaml:"sources"`
}

// ImageConfig describes the output image.
type ImageConfig struct {
	// Path is the image file. It is created or extended to Size bytes.
	Path string `yaml:"path"`

	// Base is the physical address of the first byte of the image.
	Base uint64 `yaml:"base"`

	// Size is the image size in bytes.
	Size int `yaml:"size"`

	// Address is where the entry point is written. The table follows at
	// the next 16 byte boundary.
	Address uint64 `yaml:"address"`
}

// FirmwareConfig is the firmware identity.
type FirmwareConfig struct {
	Vendor       string `yaml:"vendor"`
	Version      string `yaml:"version"`
	ReleaseDate  string `yaml:"release_date"`
	MajorRelease uint8  `yaml:"major_release"`
	MinorRelease uint8  `yaml:"minor_release"`

	// ROMSize is the firmware image size in bytes; 0 leaves the ROM size
	// fields clear.
	ROMSize uint64 `yaml:"rom_size"`
}

// FeaturesConfig switches BIOS characteristics.
type FeaturesConfig struct {
	PCI            bool `yaml:"pci"`
	SelectableBoot bool `yaml:"selectable_boot"`
	Upgradeable    bool `yaml:"upgradeable"`
	ACPI           bool `yaml:"acpi"`
	UEFI           bool `yaml:"uefi"`
}

// SourcesConfig selects fact sources.
type SourcesConfig struct {
	// Tree is a YAML or JSONC property tree file.
	Tree string `yaml:"tree"`

	// Section is the node path of the per-structure subnodes within Tree.
	Section string `yaml:"section"`

	// Facts is a YAML facts file served as the probe.
	Facts string `yaml:"facts"`

	// HostProbe uses the running machine as the probe instead of Facts.
	HostProbe bool `yaml:"host_probe"`

	// HostCPU classifies the running machine's processor.
	HostCPU bool `yaml:"host_cpu"`

	// Serial is the environment serial number.
	Serial string `yaml:"serial"`
}

// Default returns the built-in configuration: a 64 KiB image at
// 0xf0000 with the entry point at its start.
func Default() *Config {
	return &Config{
		Image: ImageConfig{
			Path:    "smbios.bin",
			Base:    0xf0000,
			Size:    64 << 10,
			Address: 0xf0000,
		},
		Firmware: FirmwareConfig{
			Vendor:       "go-smbios-builder",
			Version:      "1.0",
			MajorRelease: 1,
			MinorRelease: 0,
		},
		Features: FeaturesConfig{
			PCI:            true,
			SelectableBoot: true,
			ACPI:           true,
		},
		Sources: SourcesConfig{
			Section: smbios.DefaultSection,
			Serial:  "${SERIAL_NUMBER:-}",
		},
	}
}

// LoadFile loads a configuration file over Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Parse parses a configuration document over Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.Expand()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Expand expands ${VAR} references in path and identity values.
func (c *Config) Expand() {
	c.Image.Path = expandVars(c.Image.Path)
	c.Sources.Tree = expandVars(c.Sources.Tree)
	c.Sources.Facts = expandVars(c.Sources.Facts)
	c.Sources.Serial = expandVars(c.Sources.Serial)
	c.Firmware.Version = expandVars(c.Firmware.Version)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Image.Size <= 0 {
		errs = append(errs, fmt.Errorf("image.size must be positive, got %d", c.Image.Size))
	}
	if c.Image.Address < c.Image.Base ||
		c.Image.Address-c.Image.Base >= uint64(max(c.Image.Size, 0)) {
		errs = append(errs, fmt.Errorf("image.address %#x is outside the image at %#x", c.Image.Address, c.Image.Base))
	}
	if c.Sources.HostProbe && c.Sources.Facts != "" {
		errs = append(errs, errors.New("sources.host_probe and sources.facts are mutually exclusive"))
	}

	return errors.Join(errs...)
}

// SMBIOSFeatures returns the feature switches as smbios.Features.
func (f FeaturesConfig) SMBIOSFeatures() smbios.Features {
	var out smbios.Features
	for _, s := range []struct {
		on bool
		f  smbios.Features
	}{
		{f.PCI, smbios.FeaturePCI},
		{f.SelectableBoot, smbios.FeatureSelectableBoot},
		{f.Upgradeable, smbios.FeatureUpgradeable},
		{f.ACPI, smbios.FeatureACPI},
		{f.UEFI, smbios.FeatureUEFI},
	} {
		if s.on {
			out |= s.f
		}
	}
	return out
}

// Options returns the build options the configuration determines. Fact
// sources are left for the caller to open.
func (c *Config) Options() smbios.Options {
	return smbios.Options{
		Section:      c.Sources.Section,
		Serial:       c.Sources.Serial,
		Vendor:       c.Firmware.Vendor,
		Version:      c.Firmware.Version,
		ReleaseDate:  c.Firmware.ReleaseDate,
		MajorRelease: c.Firmware.MajorRelease,
		MinorRelease: c.Firmware.MinorRelease,
		ROMSize:      c.Firmware.ROMSize,
		Features:     c.Features.SMBIOSFeatures(),
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
