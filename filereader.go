// Copyright 2018 The Cacophony Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cptv

import (
	"os"
)

// NewFileReader returns a new FileReader from the filename.
func NewFileReader(filename string) (*FileReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileReader{
		Reader: r,
		f:      f,
	}, nil
}

// FileReader wraps a Reader and provides a convenient way of reading
// a CPTV stream from a disk file.
type FileReader struct {
	*Reader
	f *os.File
}

// Name returns the name of the FileReader
func (fr *FileReader) Name() string {
	return fr.f.Name()
}

// Close closes the Reader and the file.
func (fr *FileReader) Close() error {
	err := fr.Reader.Close()
	if ferr := fr.f.Close(); err == nil {
		err = ferr
	}
	return err
}
