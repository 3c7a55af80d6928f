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

//go:build !unix

package sysmem

import (
	"io"
	"os"
)

// OpenFile loads size bytes of the file at path, creating it as needed, as
// a region starting at base. Close writes the region back to the file.
func OpenFile(path string, base uint64, size int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	b := make([]byte, size)
	if _, err := io.ReadFull(f, b); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()
		return nil, err
	}

	r := FromBytes(base, b)
	r.close = func() error {
		defer f.Close()
		if _, err := f.WriteAt(b, 0); err != nil {
			return err
		}
		return f.Sync()
	}
	return r, nil
}
