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
	"errors"
	"strings"
	"testing"

	"github.com/digitalocean/go-smbios-builder/devtree"
	"github.com/digitalocean/go-smbios-builder/sysinfo"
	"github.com/google/go-cmp/cmp"
)

func Test_writeContextAddString(t *testing.T) {
	c := &writeContext{buf: make([]byte, 64)}
	c.setEOS(4)

	if diff := cmp.Diff(2, c.stringTableLen()); diff != "" {
		t.Fatalf("unexpected empty string set length (-want +got):\n%s", diff)
	}

	got := []uint8{
		c.addString("Acme"),
		c.addString("1.2"),
		c.addString("Acme"),
		c.addString(""),
		c.addString("1.2"),
		c.addString("Acm"),
	}
	if diff := cmp.Diff([]uint8{1, 2, 1, 0, 2, 3}, got); diff != "" {
		t.Fatalf("unexpected string numbers (-want +got):\n%s", diff)
	}

	want := "Acme\x001.2\x00Acm\x00\x00"
	if diff := cmp.Diff(want, string(c.buf[4:4+c.stringTableLen()])); diff != "" {
		t.Fatalf("unexpected string set (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(13, c.last); diff != "" {
		t.Fatalf("unexpected last string offset (-want +got):\n%s", diff)
	}
	c.addString("1.2")
	if diff := cmp.Diff(9, c.last); diff != "" {
		t.Fatalf("unexpected last string offset (-want +got):\n%s", diff)
	}
}

func Test_writeContextAddStringNUL(t *testing.T) {
	c := &writeContext{buf: make([]byte, 64)}
	c.setEOS(4)

	got := []uint8{
		c.addString("Acme\x00Corp"),
		c.addString("\x00hidden"),
		c.addString("X1000"),
		c.addString("Acme"),
	}
	if diff := cmp.Diff([]uint8{1, 0, 2, 1}, got); diff != "" {
		t.Fatalf("unexpected string numbers (-want +got):\n%s", diff)
	}

	want := "Acme\x00X1000\x00\x00"
	if diff := cmp.Diff(want, string(c.buf[4:4+c.stringTableLen()])); diff != "" {
		t.Fatalf("unexpected string set (-want +got):\n%s", diff)
	}
}

func Test_writeContextAppendStringPrivate(t *testing.T) {
	c := &writeContext{buf: make([]byte, 64)}
	c.setEOS(4)

	got := []uint8{
		c.addString("1.0"),
		c.appendString("1.0", false),
		c.addString("1.0"),
	}
	if diff := cmp.Diff([]uint8{1, 2, 1}, got); diff != "" {
		t.Fatalf("unexpected string numbers (-want +got):\n%s", diff)
	}

	// A private string is not shared even when it is the only match.
	c = &writeContext{buf: make([]byte, 64)}
	c.setEOS(4)

	got = []uint8{
		c.appendString("1.0", false),
		c.addString("1.0"),
	}
	if diff := cmp.Diff([]uint8{1, 2}, got); diff != "" {
		t.Fatalf("unexpected string numbers (-want +got):\n%s", diff)
	}

	want := "1.0\x001.0\x00\x00"
	if diff := cmp.Diff(want, string(c.buf[4:4+c.stringTableLen()])); diff != "" {
		t.Fatalf("unexpected string set (-want +got):\n%s", diff)
	}
}

func Test_writeContextNoSpace(t *testing.T) {
	c := &writeContext{buf: make([]byte, 8)}
	c.setEOS(2)

	if n := c.addString("abc"); n != 1 {
		t.Fatalf("expected string 1, but got: %d", n)
	}
	if n := c.addString("defg"); n != 0 {
		t.Fatalf("expected no string for overflow, but got: %d", n)
	}
	if !errors.Is(c.err, ErrNoSpace) {
		t.Fatalf("expected ErrNoSpace, but got: %v", c.err)
	}

	// Once out of space, nothing else is written.
	if n := c.addString("abc"); n != 0 {
		t.Fatalf("expected no string after overflow, but got: %d", n)
	}
}

func Test_writeContextResolveString(t *testing.T) {
	root := devtree.New()
	root.SetProperty("model", "Acme,X1000")
	root.SetProperty("compatible", ",acme,x1000")
	system := root.AddSubnode("system")
	system.SetProperty("version", "rev-a")

	long := strings.Repeat("x", 80)
	probe := sysinfo.NewDevice(&sysinfo.Static{
		Strings: map[sysinfo.ID]string{
			sysinfo.SystemProduct: long,
			sysinfo.SystemVersion: "",
		},
	})
	if err := probe.Detect(); err != nil {
		t.Fatalf("failed to detect: %v", err)
	}

	tests := []struct {
		name    string
		node    *devtree.Node
		section string
		prop    string
		id      sysinfo.ID
		dval    string
		want    string
	}{
		{
			name:    "probe truncated",
			node:    system,
			section: "system",
			prop:    "product",
			id:      sysinfo.SystemProduct,
			want:    long[:StrMax-1],
		},
		{
			name:    "empty probe falls through to node",
			node:    system,
			section: "system",
			prop:    "version",
			id:      sysinfo.SystemVersion,
			want:    "rev-a",
		},
		{
			name:    "no property uses default",
			node:    system,
			section: "system",
			id:      sysinfo.SystemSerial,
			dval:    "default",
			want:    "default",
		},
		{
			name:    "missing property uses default",
			node:    system,
			section: "system",
			prop:    "serial",
			id:      sysinfo.SystemSerial,
			dval:    "default",
			want:    "default",
		},
		{
			name:    "remap product",
			section: "baseboard",
			prop:    "product",
			id:      sysinfo.BaseboardProduct,
			want:    "X1000",
		},
		{
			name:    "remap manufacturer skips empty tokens",
			section: "baseboard",
			prop:    "manufacturer",
			id:      sysinfo.BaseboardManufacturer,
			want:    "acme",
		},
		{
			name:    "no remap",
			section: "chassis",
			prop:    "manufacturer",
			id:      sysinfo.EnclosureManufacturer,
			dval:    "default",
			want:    "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &writeContext{
				root:    root,
				node:    tt.node,
				section: tt.section,
				probe:   probe,
			}

			got := c.resolveString(tt.prop, tt.id, tt.dval)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected string (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_rootToken(t *testing.T) {
	root := devtree.New()
	root.SetProperty("model", "a,b,,c")

	tests := []struct {
		max  int
		want string
	}{
		{max: 0, want: ""},
		{max: 1, want: "a"},
		{max: 2, want: "b"},
		{max: 3, want: "c"},
		{max: 5, want: "c"},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, rootToken(root, "model", tt.max)); diff != "" {
			t.Fatalf("unexpected token for max %d (-want +got):\n%s", tt.max, diff)
		}
	}

	if got := rootToken(root, "compatible", 1); got != "" {
		t.Fatalf("expected no token for missing property, but got: %q", got)
	}
}

func Test_writeContextResolveInt(t *testing.T) {
	node := devtree.New()
	node.SetProperty("wakeup-type", "0x06")
	node.SetProperty("sku", "not a number")

	c := &writeContext{
		node: node,
		probe: &sysinfo.Static{
			Ints: map[sysinfo.ID]int{sysinfo.EnclosureType: 3},
		},
	}

	got := []int{
		c.resolveInt("chassis-type", sysinfo.EnclosureType),
		c.resolveInt("wakeup-type", sysinfo.SystemWakeup),
		c.resolveInt("wakeup-type", sysinfo.None),
		c.resolveInt("sku", sysinfo.None),
		c.resolveInt("", sysinfo.SystemWakeup),
	}
	if diff := cmp.Diff([]int{3, 6, 6, 0, 0}, got); diff != "" {
		t.Fatalf("unexpected integers (-want +got):\n%s", diff)
	}
}
