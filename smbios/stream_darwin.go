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
	"bytes"
	"io"
	"os"
	"os/exec"
)

// stream opens the SMBIOS entry point and an SMBIOS structure stream from
// the AppleSMBIOS registry entry.
func stream() (io.ReadCloser, EntryPoint, error) {
	var buf bytes.Buffer

	c := exec.Command("ioreg", "-rd1", "-c", "AppleSMBIOS")
	c.Stdout = &buf
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return nil, nil, err
	}

	return ioregStream(buf.String())
}
