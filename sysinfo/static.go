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

package sysinfo

// Static is a Driver backed by in-memory maps. The zero value reports
// nothing; populate the maps directly or load them with ParseFacts.
type Static struct {
	Bools   map[ID]bool
	Ints    map[ID]int
	Strings map[ID]string
	Data    map[ID][]byte

	// Loadables maps an image kind to the names returned by FITLoadable,
	// in index order.
	Loadables map[string][]string

	// DetectErr, if set, is returned by Detect.
	DetectErr error
}

var _ Driver = &Static{}

// WithCacheHandles allocates the CacheHandle data area so table writers can
// record cache structure handles in it, and returns s.
func (s *Static) WithCacheHandles() *Static {
	if s.Data == nil {
		s.Data = make(map[ID][]byte)
	}
	s.Data[CacheHandle] = make([]byte, CacheHandleSize)
	return s
}

func (s *Static) Detect() error { return s.DetectErr }

func (s *Static) ReadBool(id ID) (bool, error) {
	v, ok := s.Bools[id]
	if !ok {
		return false, ErrNotFound
	}
	return v, nil
}

func (s *Static) ReadInt(id ID) (int, error) {
	v, ok := s.Ints[id]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (s *Static) ReadString(id ID) (string, error) {
	v, ok := s.Strings[id]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *Static) ReadData(id ID) ([]byte, error) {
	v, ok := s.Data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *Static) FITLoadable(index int, kind string) (string, error) {
	names := s.Loadables[kind]
	if index < 0 || index >= len(names) {
		return "", ErrNotFound
	}
	return names[index], nil
}
