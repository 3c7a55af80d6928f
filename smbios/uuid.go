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
	"github.com/google/uuid"
)

// EncodeUUID returns u in SMBIOS wire order: the time_low, time_mid and
// time_hi_and_version fields are little-endian, the rest is unchanged.
func EncodeUUID(u uuid.UUID) []byte {
	b := make([]byte, len(u))
	copy(b, u[:])
	swapUUID(b)
	return b
}

// DecodeUUID reverses EncodeUUID. b must hold at least 16 bytes.
func DecodeUUID(b []byte) uuid.UUID {
	var u uuid.UUID
	copy(u[:], b)
	swapUUID(u[:])
	return u
}

func swapUUID(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]
}
