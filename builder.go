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
	"io"
	"math"
	"time"

	"github.com/klauspost/compress/gzip"
)

// NewBuilder returns a new Builder instance, ready to emit a gzip
// compressed CPTV file to the provided Writer.
func NewBuilder(w io.Writer) *Builder {
	return &Builder{
		w: gzip.NewWriter(w),
	}
}

// Builder handles the low-level construction of CPTV sections and
// fields. See Writer for a higher-level interface.
type Builder struct {
	w *gzip.Writer
}

// SetModTime sets the modification time recorded in the gzip
// header. It has no effect once the header has been written. Times
// the 32 bit gzip field can't hold leave the modification time unset.
func (b *Builder) SetModTime(t time.Time) {
	if t.Unix() < 0 || t.Unix() > math.MaxUint32 {
		b.w.ModTime = time.Time{}
		return
	}
	b.w.ModTime = t
}

// WriteHeader writes the CPTV magic, version and header section.
func (b *Builder) WriteHeader(version byte, f *FieldWriter) error {
	if _, err := b.w.Write(append([]byte(magic), version)); err != nil {
		return err
	}
	return WriteSection(b.w, HeaderSection, f)
}

// WriteFrame writes a CPTV frame section followed by the compressed
// frame data.
func (b *Builder) WriteFrame(f *FieldWriter, frameData []byte) error {
	if err := WriteSection(b.w, FrameSection, f); err != nil {
		return err
	}
	_, err := b.w.Write(frameData)
	return err
}

// Close flushes and finalises the gzip stream. The underlying Writer
// is not closed.
func (b *Builder) Close() error {
	return b.w.Close()
}
