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
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/TheCacophonyProject/go-cptv/loglimiter"
)

// NewReader returns a new Reader from the io.Reader given. The CPTV
// header is read and checked before returning.
func NewReader(r io.Reader) (*Reader, error) {
	parser, err := NewParser(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	fields, err := parser.Header()
	if err != nil {
		parser.Close()
		return nil, err
	}
	reader := &Reader{
		parser: parser,
		fields: fields,
		warn:   loglimiter.New(time.Minute),
	}
	if err := reader.parseHeader(); err != nil {
		parser.Close()
		return nil, err
	}
	reader.decomp = NewDecompressor(reader.res)
	parser.SetMaxFrameSize(4 + PackedSize(reader.res.Cols*reader.res.Rows-1, 32))
	return reader, nil
}

// Reader uses a Parser and Decompressor to read CPTV recordings.
type Reader struct {
	parser      *Parser
	decomp      *Decompressor
	fields      Fields
	header      Header
	res         cptvframe.Resolution
	compression uint8
	frameOffset time.Duration
	warn        *loglimiter.LogLimiter

	// err is sticky: once reading frames fails every later read
	// returns the same error.
	err error
}

func (r *Reader) parseHeader() error {
	var err error
	r.compression, err = r.fields.Uint8(Compression)
	if err != nil {
		return fmt.Errorf("%w: compression: %v", ErrMissingField, err)
	}
	if r.compression != compressionDeltaDelta {
		return fmt.Errorf("%w: %d", ErrUnsupportedCompression, r.compression)
	}
	cols, err := r.fields.Uint32(XResolution)
	if err != nil {
		return fmt.Errorf("%w: x resolution: %v", ErrMissingField, err)
	}
	rows, err := r.fields.Uint32(YResolution)
	if err != nil {
		return fmt.Errorf("%w: y resolution: %v", ErrMissingField, err)
	}
	if err := checkResolution(int(cols), int(rows)); err != nil {
		return err
	}
	r.res = cptvframe.Resolution{Cols: int(cols), Rows: int(rows)}
	if !r.fields.Has(Timestamp) {
		return fmt.Errorf("%w: timestamp", ErrMissingField)
	}

	r.header = HeaderFromFields(r.fields)
	r.logUnusual(HeaderSection, r.fields)
	return nil
}

func (r *Reader) logUnusual(section byte, fields Fields) {
	for _, f := range fields.Unknown() {
		r.warn.Printf("cptv: unknown field %q in section %q (skipping)", f.Code, section)
	}
	for _, f := range fields {
		if f.Recovered {
			r.warn.Printf("cptv: timestamp field %q out of range, using epoch", f.Code)
		}
	}
}

// Version returns the version number of the CPTV file.
func (r *Reader) Version() int {
	return int(r.parser.Version())
}

// Timestamp returns the CPTV timestamp. A zero time is returned if
// the field wasn't present (shouldn't happen).
func (r *Reader) Timestamp() time.Time {
	return r.header.Timestamp
}

// TimestampRecovered reports whether the stored recording timestamp
// was out of range and replaced by the Unix epoch.
func (r *Reader) TimestampRecovered() bool {
	f, ok := r.fields.Get(Timestamp)
	return ok && f.Recovered
}

// ResX returns the x resolution of the CPTV file.
func (r *Reader) ResX() int {
	return r.res.Cols
}

// ResY returns the y resolution of the CPTV file.
func (r *Reader) ResY() int {
	return r.res.Rows
}

// Compression returns the frame compression scheme.
func (r *Reader) Compression() int {
	return int(r.compression)
}

// DeviceName returns the device name field from a CPTV file. An empty
// string is returned if the field is not present.
func (r *Reader) DeviceName() string {
	return r.header.DeviceName
}

// DeviceID returns the device id field from a CPTV file. Zero is
// returned if the field is not present.
func (r *Reader) DeviceID() int {
	return r.header.DeviceID
}

// PreviewSecs returns the number of seconds included in the recording
// before motion was detected.
func (r *Reader) PreviewSecs() int {
	return r.header.PreviewSecs
}

// MotionConfig returns the YAML motion detection configuration used
// for the recording.
func (r *Reader) MotionConfig() string {
	return r.header.MotionConfig
}

func (r *Reader) Latitude() float32 {
	return r.header.Latitude
}

func (r *Reader) Longitude() float32 {
	return r.header.Longitude
}

func (r *Reader) LocTimestamp() time.Time {
	return r.header.LocTimestamp
}

func (r *Reader) Altitude() float32 {
	return r.header.Altitude
}

func (r *Reader) Accuracy() float32 {
	return r.header.Accuracy
}

func (r *Reader) FPS() int {
	return r.header.FPS
}

func (r *Reader) Brand() string {
	return r.header.Brand
}

func (r *Reader) Model() string {
	return r.header.Model
}

func (r *Reader) Firmware() string {
	return r.header.Firmware
}

func (r *Reader) CameraSerial() int {
	return r.header.CameraSerial
}

// HasBackgroundFrame reports whether the first frame of the recording
// is a background frame.
func (r *Reader) HasBackgroundFrame() bool {
	return r.header.BackgroundFrame
}

// Header returns all decoded header attributes.
func (r *Reader) Header() Header {
	return r.header
}

// HeaderFields returns the raw header fields, including any the
// Reader doesn't understand.
func (r *Reader) HeaderFields() Fields {
	return r.fields
}

// FrameOffset returns the offset from the start of the recording of
// the frame most recently read. Only version 1 files carry offsets.
func (r *Reader) FrameOffset() time.Duration {
	return r.frameOffset
}

// NewFrame returns a frame sized for this recording.
func (r *Reader) NewFrame() *cptvframe.Frame {
	return cptvframe.NewFrame(r.res)
}

// ReadFrame extracts and decompresses the next frame in a CPTV
// recording. At the end of the recording an io.EOF error will be
// returned.
func (r *Reader) ReadFrame(out *cptvframe.Frame) error {
	if r.err != nil {
		return r.err
	}
	if !out.HasResolution(r.res) {
		return ErrResolutionMismatch
	}
	if err := r.readFrame(out); err != nil {
		r.err = err
		return err
	}
	return nil
}

func (r *Reader) readFrame(out *cptvframe.Frame) error {
	fields, frameData, err := r.parser.Frame()
	if err != nil {
		return err
	}
	bitWidth, err := fields.Uint8(BitWidth)
	if err != nil {
		return fmt.Errorf("%w: bit width: %v", ErrMissingField, err)
	}
	r.logUnusual(FrameSection, fields)
	if err := r.decomp.Next(bitWidth, frameData, out); err != nil {
		return err
	}

	out.Status = cptvframe.Telemetry{}
	if r.parser.Version() == Version1 {
		if offset, err := fields.Uint32(Offset); err == nil {
			r.frameOffset = time.Duration(offset) * time.Microsecond
		}
		return nil
	}
	if timeOn, err := fields.Uint32(TimeOn); err == nil {
		out.Status.TimeOn = time.Duration(timeOn) * time.Millisecond
	}
	if lastFFC, err := fields.Uint32(LastFFCTime); err == nil {
		out.Status.LastFFCTime = time.Duration(lastFFC) * time.Millisecond
	}
	if temp, err := fields.Float32(TempC); err == nil {
		out.Status.TempC = float64(temp)
	}
	if temp, err := fields.Float32(LastFFCTempC); err == nil {
		out.Status.LastFFCTempC = float64(temp)
	}
	if bg, err := fields.Uint8(BackgroundFrame); err == nil {
		out.Status.BackgroundFrame = bg > 0
	}
	return nil
}

// FrameCount returns the remaining number of frames in a CPTV file.
// After this call, all frames will have been consumed.
func (r *Reader) FrameCount() (int, error) {
	if r.err != nil {
		if r.err == io.EOF {
			return 0, nil
		}
		return 0, r.err
	}
	count := 0
	for {
		_, _, err := r.parser.Frame()
		if err == io.EOF {
			r.err = io.EOF
			return count, nil
		}
		if err != nil {
			r.err = err
			return count, err
		}
		count++
	}
}

// Close closes the CPTV reader. The io.Reader given to NewReader is
// not closed.
func (r *Reader) Close() error {
	return r.parser.Close()
}
