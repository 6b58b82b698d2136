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

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
)

// NewWriter creates and returns a new Writer component. Frames
// written must match the resolution given.
func NewWriter(w io.Writer, c cptvframe.CameraResolution) *Writer {
	return &Writer{
		bldr: NewBuilder(w),
		comp: NewCompressor(c),
		res:  cptvframe.Resolution{Cols: c.ResX(), Rows: c.ResY()},
	}
}

// Writer uses a Builder and Compressor to create CPTV files.
type Writer struct {
	bldr          *Builder
	comp          *Compressor
	res           cptvframe.Resolution
	headerWritten bool
	closed        bool
}

// WriteHeader writes a CPTV file header. It must be called exactly
// once, before any frames are written. A zero Timestamp is replaced
// with the current time.
func (w *Writer) WriteHeader(header Header) error {
	if w.closed {
		return ErrClosed
	}
	if w.headerWritten {
		return ErrHeaderWritten
	}
	if err := checkResolution(w.res.Cols, w.res.Rows); err != nil {
		return err
	}
	if header.Timestamp.IsZero() {
		header.Timestamp = time.Now()
	}
	fields, err := header.fields(w.res)
	if err != nil {
		return err
	}
	w.bldr.SetModTime(header.Timestamp)
	if err := w.bldr.WriteHeader(Version2, fields); err != nil {
		return err
	}
	w.headerWritten = true
	return nil
}

// WriteFrame writes a CPTV frame
func (w *Writer) WriteFrame(frame *cptvframe.Frame) error {
	if w.closed {
		return ErrClosed
	}
	if !w.headerWritten {
		return ErrNoHeader
	}
	bitWidth, compFrame, err := w.comp.Next(frame)
	if err != nil {
		return err
	}
	fields := NewFieldWriter()
	fields.Uint32(TimeOn, durationToMillis(frame.Status.TimeOn))
	fields.Uint32(LastFFCTime, durationToMillis(frame.Status.LastFFCTime))
	fields.Uint8(BitWidth, bitWidth)
	fields.Uint32(FrameSize, uint32(len(compFrame)))
	if frame.Status.TempC != 0 {
		fields.Float32(TempC, float32(frame.Status.TempC))
	}
	if frame.Status.LastFFCTempC != 0 {
		fields.Float32(LastFFCTempC, float32(frame.Status.LastFFCTempC))
	}
	if frame.Status.BackgroundFrame {
		fields.Uint8(BackgroundFrame, 1)
	}
	return w.bldr.WriteFrame(fields, compFrame)
}

// Close flushes and finalises the CPTV stream. The io.Writer given to
// NewWriter is not closed. Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.bldr.Close()
}

func durationToMillis(d time.Duration) uint32 {
	ms := d / time.Millisecond
	if ms < 0 {
		return 0
	}
	if ms > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ms)
}
