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

//go:build unix

package sysmem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenFile maps size bytes of the file at path, creating or extending it as
// needed, as a region starting at base. Writes go straight to the file
// through a shared mapping; Close unmaps it.
func OpenFile(path string, base uint64, size int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return nil, fmt.Errorf("extending %s: %w", path, err)
		}
	}

	b, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}

	r := FromBytes(base, b)
	r.close = func() error {
		if err := unix.Msync(b, unix.MS_SYNC); err != nil {
			_ = unix.Munmap(b)
			return err
		}
		return unix.Munmap(b)
	}
	return r, nil
}
