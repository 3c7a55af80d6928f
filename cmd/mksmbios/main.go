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

// Command mksmbios writes an SMBIOS table into a memory image.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/digitalocean/go-smbios-builder/config"
	"github.com/digitalocean/go-smbios-builder/cpu"
	"github.com/digitalocean/go-smbios-builder/devtree"
	"github.com/digitalocean/go-smbios-builder/smbios"
	"github.com/digitalocean/go-smbios-builder/sysinfo"
	"github.com/digitalocean/go-smbios-builder/sysinfo/hostinfo"
	"github.com/digitalocean/go-smbios-builder/sysmem"
	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mksmbios: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath   string
		logLevel     string
		patchVersion string
		digest       bool
	)

	cfg := config.Default()

	flagSet := pflag.NewFlagSet("mksmbios", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML configuration file")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.StringVar(&patchVersion, "patch-version", "", "replace the firmware version string after building")
	flagSet.BoolVar(&digest, "digest", false, "print the BLAKE3 digest of the structure table")

	// Flags that override configuration file values. Their defaults are
	// only shown in help; the file or built-in defaults apply unless set.
	flagSet.StringVar(&cfg.Image.Path, "image", cfg.Image.Path, "output image file")
	flagSet.Uint64Var(&cfg.Image.Base, "base", cfg.Image.Base, "physical address of the image")
	flagSet.IntVar(&cfg.Image.Size, "size", cfg.Image.Size, "image size in bytes")
	flagSet.Uint64Var(&cfg.Image.Address, "address", cfg.Image.Address, "entry point address")
	flagSet.StringVar(&cfg.Sources.Tree, "tree", cfg.Sources.Tree, "YAML or JSONC property tree")
	flagSet.StringVar(&cfg.Sources.Section, "section", cfg.Sources.Section, "node path of the structure sections in the tree")
	flagSet.StringVar(&cfg.Sources.Facts, "facts", cfg.Sources.Facts, "YAML facts file used as the probe")
	flagSet.BoolVar(&cfg.Sources.HostProbe, "host-probe", cfg.Sources.HostProbe, "probe the running machine")
	flagSet.BoolVar(&cfg.Sources.HostCPU, "host-cpu", cfg.Sources.HostCPU, "classify the running machine's processor")
	flagSet.StringVar(&cfg.Sources.Serial, "serial", cfg.Sources.Serial, "system serial number")
	flagSet.StringVar(&cfg.Firmware.Vendor, "vendor", cfg.Firmware.Vendor, "firmware vendor")
	flagSet.StringVar(&cfg.Firmware.Version, "fw-version", cfg.Firmware.Version, "firmware version")
	flagSet.StringVar(&cfg.Firmware.ReleaseDate, "release-date", cfg.Firmware.ReleaseDate, "firmware release date (MM/DD/YYYY)")
	flagSet.Uint64Var(&cfg.Firmware.ROMSize, "rom-size", cfg.Firmware.ROMSize, "firmware image size in bytes")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	if configPath != "" {
		fileCfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		overlay(fileCfg, cfg, flagSet)
		cfg = fileCfg
	}
	cfg.Expand()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}

	opts, err := buildOptions(cfg, logger)
	if err != nil {
		return err
	}

	mem, err := sysmem.OpenFile(cfg.Image.Path, cfg.Image.Base, cfg.Image.Size)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	tbl, err := smbios.Build(mem, cfg.Image.Address, opts)
	if err == nil && patchVersion != "" {
		err = tbl.PatchVersion(patchVersion)
	}
	if err == nil && digest {
		fmt.Printf("%x  %s\n", blake3.Sum256(tbl.Bytes()), cfg.Image.Path)
	}
	if cerr := mem.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	logger.Info("wrote SMBIOS table",
		"image", cfg.Image.Path,
		"entry_point", fmt.Sprintf("%#x", tbl.EntryPoint),
		"address", fmt.Sprintf("%#x", tbl.Address),
		"length", tbl.Length,
		"structures", tbl.Structures)

	return nil
}

// overlay copies the values of flags set on the command line from flagCfg
// into dst.
func overlay(dst, flagCfg *config.Config, flagSet *pflag.FlagSet) {
	set := map[string]func(){
		"image":        func() { dst.Image.Path = flagCfg.Image.Path },
		"base":         func() { dst.Image.Base = flagCfg.Image.Base },
		"size":         func() { dst.Image.Size = flagCfg.Image.Size },
		"address":      func() { dst.Image.Address = flagCfg.Image.Address },
		"tree":         func() { dst.Sources.Tree = flagCfg.Sources.Tree },
		"section":      func() { dst.Sources.Section = flagCfg.Sources.Section },
		"facts":        func() { dst.Sources.Facts = flagCfg.Sources.Facts },
		"host-probe":   func() { dst.Sources.HostProbe = flagCfg.Sources.HostProbe },
		"host-cpu":     func() { dst.Sources.HostCPU = flagCfg.Sources.HostCPU },
		"serial":       func() { dst.Sources.Serial = flagCfg.Sources.Serial },
		"vendor":       func() { dst.Firmware.Vendor = flagCfg.Firmware.Vendor },
		"fw-version":   func() { dst.Firmware.Version = flagCfg.Firmware.Version },
		"release-date": func() { dst.Firmware.ReleaseDate = flagCfg.Firmware.ReleaseDate },
		"rom-size":     func() { dst.Firmware.ROMSize = flagCfg.Firmware.ROMSize },
	}
	flagSet.Visit(func(f *pflag.Flag) {
		if fn, ok := set[f.Name]; ok {
			fn()
		}
	})
}

// buildOptions opens the fact sources cfg names.
func buildOptions(cfg *config.Config, logger *slog.Logger) (smbios.Options, error) {
	opts := cfg.Options()
	opts.Logger = logger

	if path := cfg.Sources.Tree; path != "" {
		tree, err := devtree.Load(path)
		if err != nil {
			return smbios.Options{}, fmt.Errorf("failed to load tree: %w", err)
		}
		opts.Tree = tree
	}

	switch {
	case cfg.Sources.HostProbe:
		opts.Probe = hostinfo.New(logger)
	case cfg.Sources.Facts != "":
		facts, err := sysinfo.LoadFacts(cfg.Sources.Facts)
		if err != nil {
			return smbios.Options{}, fmt.Errorf("failed to load facts: %w", err)
		}
		if _, ok := facts.Data[sysinfo.CacheHandle]; !ok {
			facts.WithCacheHandles()
		}
		opts.Probe = facts
	}

	if cfg.Sources.HostCPU {
		opts.CPU = cpu.Host{}
	}

	return opts, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Write an SMBIOS 3 table into a memory image.

Probe facts (--facts or --host-probe) take precedence over the property
tree (--tree), which takes precedence over the firmware identity flags.

Usage:
  mksmbios [flags]

Flags:
`)
	flagSet.PrintDefaults()
}
