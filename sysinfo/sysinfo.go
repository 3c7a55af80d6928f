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

// Package sysinfo describes the hardware-probe capability a firmware table
// builder consults for board facts.
//
// A Driver is one backend (a static map, the running host, a board EEPROM).
// A Device wraps a Driver and enforces the detection protocol: Detect must
// succeed once before any fact can be read, and every read before that
// fails with ErrNotReady.
package sysinfo

import (
	"errors"
)

var (
	// ErrNotReady is returned by a Device when a fact is read before a
	// successful Detect.
	ErrNotReady = errors.New("sysinfo: device not detected")

	// ErrNotFound indicates the driver has no value for an ID.
	ErrNotFound = errors.New("sysinfo: not found")

	// ErrNotSupported indicates the driver does not implement an operation.
	ErrNotSupported = errors.New("sysinfo: operation not supported")
)

// A Driver reports typed facts about the hardware, each identified by an
// ID. Implementations return ErrNotFound for facts they do not carry.
type Driver interface {
	// Detect runs the (possibly slow) hardware detection procedure. It is
	// called once, before any other method.
	Detect() error

	ReadBool(id ID) (bool, error)
	ReadInt(id ID) (int, error)
	ReadString(id ID) (string, error)

	// ReadData returns a data area owned by the driver. The returned
	// slice aliases driver storage: writes through it are visible to
	// later ReadData calls for the same ID.
	ReadData(id ID) ([]byte, error)

	// FITLoadable returns the name of the index'th image of the given
	// kind (for example "fdt") to load, or ErrNotFound past the last one.
	FITLoadable(index int, kind string) (string, error)
}

// A Device gates access to a Driver on successful detection.
type Device struct {
	drv      Driver
	detected bool
}

var _ Driver = &Device{}

// NewDevice wraps drv. The returned Device is not yet detected.
func NewDevice(drv Driver) *Device {
	return &Device{drv: drv}
}

// Detect runs driver detection. A failed detection leaves the device
// unusable; it may be retried.
func (d *Device) Detect() error {
	if err := d.drv.Detect(); err != nil {
		return err
	}
	d.detected = true
	return nil
}

// Detected reports whether Detect has succeeded.
func (d *Device) Detected() bool { return d.detected }

func (d *Device) ReadBool(id ID) (bool, error) {
	if !d.detected {
		return false, ErrNotReady
	}
	return d.drv.ReadBool(id)
}

func (d *Device) ReadInt(id ID) (int, error) {
	if !d.detected {
		return 0, ErrNotReady
	}
	return d.drv.ReadInt(id)
}

func (d *Device) ReadString(id ID) (string, error) {
	if !d.detected {
		return "", ErrNotReady
	}
	return d.drv.ReadString(id)
}

func (d *Device) ReadData(id ID) ([]byte, error) {
	if !d.detected {
		return nil, ErrNotReady
	}
	return d.drv.ReadData(id)
}

func (d *Device) FITLoadable(index int, kind string) (string, error) {
	if !d.detected {
		return "", ErrNotReady
	}
	return d.drv.FITLoadable(index, kind)
}
