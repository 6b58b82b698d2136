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
	"bytes"
	"io"
	"io/ioutil"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripHeaderDefaults(t *testing.T) {
	cptvBytes := new(bytes.Buffer)

	w := NewWriter(cptvBytes, cptvframe.Lepton3Resolution)
	require.NoError(t, w.WriteHeader(Header{}))
	require.NoError(t, w.Close())

	r, err := NewReader(cptvBytes)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Version())
	assert.True(t, time.Since(r.Timestamp()) < time.Minute) // "now" was used
	assert.False(t, r.TimestampRecovered())
	assert.Equal(t, 160, r.ResX())
	assert.Equal(t, 120, r.ResY())
	assert.Equal(t, 1, r.Compression())
	assert.Equal(t, "", r.DeviceName())
	assert.Equal(t, 0, r.DeviceID())
	assert.Equal(t, 0, r.PreviewSecs())
	assert.Equal(t, "", r.MotionConfig())
	assert.Equal(t, float32(0), r.Latitude())
	assert.True(t, r.LocTimestamp().IsZero())
	assert.Equal(t, 0, r.FPS())
	assert.False(t, r.HasBackgroundFrame())
}

func TestRoundTripHeader(t *testing.T) {
	ts := time.Date(2016, 5, 4, 3, 2, 1, 0, time.UTC)
	locTs := time.Date(2016, 5, 3, 22, 0, 0, 123000, time.UTC)
	cptvBytes := new(bytes.Buffer)

	w := NewWriter(cptvBytes, cptvframe.Lepton3Resolution)
	header := Header{
		Timestamp:       ts,
		DeviceName:      "nz42",
		DeviceID:        1234,
		PreviewSecs:     8,
		MotionConfig:    "keep on movin",
		Latitude:        -36.86667,
		Longitude:       174.76667,
		LocTimestamp:    locTs,
		Altitude:        120.5,
		Accuracy:        10,
		FPS:             9,
		Brand:           "flir",
		Model:           "lepton3.5",
		Firmware:        "3.3.26",
		CameraSerial:    700123,
		BackgroundFrame: true,
	}
	require.NoError(t, w.WriteHeader(header))
	require.NoError(t, w.Close())

	r, err := NewReader(cptvBytes)
	require.NoError(t, err)
	assert.Equal(t, ts, r.Timestamp().UTC())
	assert.Equal(t, "nz42", r.DeviceName())
	assert.Equal(t, 1234, r.DeviceID())
	assert.Equal(t, 8, r.PreviewSecs())
	assert.Equal(t, "keep on movin", r.MotionConfig())
	assert.Equal(t, float32(-36.86667), r.Latitude())
	assert.Equal(t, float32(174.76667), r.Longitude())
	assert.Equal(t, locTs, r.LocTimestamp())
	assert.Equal(t, float32(120.5), r.Altitude())
	assert.Equal(t, float32(10), r.Accuracy())
	assert.Equal(t, 9, r.FPS())
	assert.Equal(t, "flir", r.Brand())
	assert.Equal(t, "lepton3.5", r.Model())
	assert.Equal(t, "3.3.26", r.Firmware())
	assert.Equal(t, 700123, r.CameraSerial())
	assert.True(t, r.HasBackgroundFrame())
	assert.Equal(t, header, r.Header())
	assert.Empty(t, r.HeaderFields().Unknown())
}

func TestHeaderOutOfRange(t *testing.T) {
	for _, header := range []Header{
		{PreviewSecs: 256},
		{FPS: -1},
		{DeviceID: -5},
		{MotionConfig: strings.Repeat("m", 300)},
	} {
		w := NewWriter(new(bytes.Buffer), cptvframe.Lepton3Resolution)
		assert.Error(t, w.WriteHeader(header), "%+v", header)
	}
}

func TestHeaderTimestampRange(t *testing.T) {
	tooEarly := []time.Time{
		time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1969, 12, 31, 23, 59, 59, 999999000, time.UTC),
	}
	tooLate := time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, ts := range append(tooEarly, tooLate) {
		w := NewWriter(new(bytes.Buffer), smallRes)
		assert.ErrorIs(t, w.WriteHeader(Header{Timestamp: ts}), ErrTimestampRange, "%s", ts)

		w = NewWriter(new(bytes.Buffer), smallRes)
		assert.ErrorIs(t, w.WriteHeader(Header{LocTimestamp: ts}), ErrTimestampRange, "location %s", ts)
	}
}

func TestHeaderTimestampLimits(t *testing.T) {
	for _, ts := range []time.Time{
		time.Unix(0, 0).UTC(),
		time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC),
	} {
		cptvBytes := new(bytes.Buffer)
		w := NewWriter(cptvBytes, smallRes)
		require.NoError(t, w.WriteHeader(Header{Timestamp: ts, LocTimestamp: ts}))
		require.NoError(t, w.Close())

		r, err := NewReader(cptvBytes)
		require.NoError(t, err)
		assert.Equal(t, ts, r.Timestamp())
		assert.Equal(t, ts, r.LocTimestamp())
		assert.False(t, r.TimestampRecovered())
	}
}

func TestGzipModTime(t *testing.T) {
	ts := time.Date(2021, 7, 8, 9, 10, 11, 0, time.UTC)
	cptvBytes := new(bytes.Buffer)
	w := NewWriter(cptvBytes, smallRes)
	require.NoError(t, w.WriteHeader(Header{Timestamp: ts}))
	require.NoError(t, w.Close())

	gr, err := gzip.NewReader(cptvBytes)
	require.NoError(t, err)
	assert.Equal(t, ts.Unix(), gr.ModTime.Unix())

	raw, err := ioutil.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, []byte("CPTV\x02H"), raw[:6])
}

func TestHeaderOnly(t *testing.T) {
	cptvBytes := new(bytes.Buffer)
	w := NewWriter(cptvBytes, smallRes)
	require.NoError(t, w.WriteHeader(Header{DeviceName: "nz42"}))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(cptvBytes.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 4, r.ResX())
	assert.Equal(t, 2, r.ResY())
	assert.Equal(t, io.EOF, r.ReadFrame(r.NewFrame()))
	assert.Equal(t, io.EOF, r.ReadFrame(r.NewFrame()))

	r, err = NewReader(bytes.NewReader(cptvBytes.Bytes()))
	require.NoError(t, err)
	c, err := r.FrameCount()
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestReaderFrameCount(t *testing.T) {
	frame := makeRandomFrame(rand.New(rand.NewSource(3)), cptvframe.Lepton3Resolution)
	cptvBytes := new(bytes.Buffer)

	w := NewWriter(cptvBytes, cptvframe.Lepton3Resolution)
	require.NoError(t, w.WriteHeader(Header{}))
	require.NoError(t, w.WriteFrame(frame))
	require.NoError(t, w.WriteFrame(frame))
	require.NoError(t, w.WriteFrame(frame))
	require.NoError(t, w.Close())

	r, err := NewReader(cptvBytes)
	require.NoError(t, err)
	c, err := r.FrameCount()
	require.NoError(t, err)
	assert.Equal(t, 3, c)

	// Everything has been consumed.
	assert.Equal(t, io.EOF, r.ReadFrame(r.NewFrame()))
}

func TestFrameRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	res := cptvframe.Lepton3Resolution

	frames := make([]*cptvframe.Frame, 5)
	for i := range frames {
		frames[i] = makeRandomFrame(rng, res)
		frames[i].Status.TimeOn = time.Duration(60+i) * time.Second
		frames[i].Status.LastFFCTime = time.Duration(30+i) * time.Second
		frames[i].Status.TempC = 25.5
		frames[i].Status.LastFFCTempC = 24.25
	}
	frames[0].Status.BackgroundFrame = true

	cptvBytes := new(bytes.Buffer)
	w := NewWriter(cptvBytes, res)
	require.NoError(t, w.WriteHeader(Header{BackgroundFrame: true}))
	for _, frame := range frames {
		require.NoError(t, w.WriteFrame(frame))
	}
	require.NoError(t, w.Close())

	r, err := NewReader(cptvBytes)
	require.NoError(t, err)
	defer r.Close()

	frameD := r.NewFrame()
	for i, frame := range frames {
		require.NoError(t, r.ReadFrame(frameD), "frame %d", i)
		assert.Equal(t, frame, frameD, "frame %d", i)
	}
	assert.Equal(t, io.EOF, r.ReadFrame(frameD))
}

func TestWriterUsage(t *testing.T) {
	frame := cptvframe.NewFrame(smallRes)
	w := NewWriter(new(bytes.Buffer), smallRes)

	assert.Equal(t, ErrNoHeader, w.WriteFrame(frame))
	require.NoError(t, w.WriteHeader(Header{}))
	assert.Equal(t, ErrHeaderWritten, w.WriteHeader(Header{}))

	err := w.WriteFrame(cptvframe.NewFrame(cptvframe.Lepton3Resolution))
	assert.ErrorIs(t, err, ErrResolutionMismatch)
	require.NoError(t, w.WriteFrame(frame))

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, ErrClosed, w.WriteFrame(frame))
	assert.Equal(t, ErrClosed, w.WriteHeader(Header{}))
}

func TestWriterInvalidResolution(t *testing.T) {
	w := NewWriter(new(bytes.Buffer), cptvframe.Resolution{Cols: 0, Rows: 10})
	assert.ErrorIs(t, w.WriteHeader(Header{}), ErrInvalidResolution)
}

func TestReadVersion1(t *testing.T) {
	ts := time.Date(2018, 9, 6, 9, 21, 25, 0, time.UTC)
	rng := rand.New(rand.NewSource(11))

	hf := testHeaderFields(4, 2)
	hf.Timestamp(Timestamp, ts)
	require.NoError(t, hf.String(DeviceName, "livingsprings03"))

	buf := new(bytes.Buffer)
	b := NewBuilder(buf)
	require.NoError(t, b.WriteHeader(Version1, hf))

	comp := NewCompressor(smallRes)
	var frames []*cptvframe.Frame
	for i := 0; i < 3; i++ {
		frame := makeRandomFrame(rng, smallRes)
		frames = append(frames, frame)
		width, data, err := comp.Next(frame)
		require.NoError(t, err)

		ff := NewFieldWriter()
		ff.Uint32(Offset, uint32(i*111111))
		ff.Uint8(BitWidth, width)
		ff.Uint32(FrameSize, uint32(len(data)))
		require.NoError(t, b.WriteFrame(ff, data))
	}
	require.NoError(t, b.Close())

	r, err := NewReader(buf)
	require.NoError(t, err)
	require.Equal(t, 1, r.Version())
	assert.Equal(t, "livingsprings03", r.DeviceName())
	assert.Equal(t, ts, r.Timestamp())

	frame := r.NewFrame()
	for i, expected := range frames {
		require.NoError(t, r.ReadFrame(frame))
		assert.Equal(t, expected.Pix, frame.Pix)

		// Unsupported fields in v1.
		assert.Equal(t, cptvframe.Telemetry{}, frame.Status)
		assert.Equal(t, time.Duration(i*111111)*time.Microsecond, r.FrameOffset())
	}
	assert.Equal(t, io.EOF, r.ReadFrame(frame))
}

func TestReadV2FrameWithoutStatus(t *testing.T) {
	frame := cptvframe.NewFrame(smallRes)
	fillFrame(frame, 500)
	frame.Pix[1][2] = 510

	raw := rawStream(t, Version2, testHeaderFields(4, 2), frame)
	r, err := NewReader(bytes.NewReader(gzipBytes(t, raw)))
	require.NoError(t, err)

	out := r.NewFrame()
	require.NoError(t, r.ReadFrame(out))
	assert.Equal(t, frame.Pix, out.Pix)
	assert.Equal(t, time.Duration(0), out.Status.TimeOn)
	assert.Equal(t, time.Duration(0), out.Status.LastFFCTime)
	assert.Equal(t, io.EOF, r.ReadFrame(out))
}

func TestReadTruncated(t *testing.T) {
	frame := cptvframe.NewFrame(smallRes)
	fillFrame(frame, 1000)
	oneFrame := rawStream(t, Version2, testHeaderFields(4, 2), frame)
	twoFrames := rawStream(t, Version2, testHeaderFields(4, 2), frame, frame)
	require.Equal(t, oneFrame, twoFrames[:len(oneFrame)])

	// Ending exactly on a section boundary is a clean end.
	r, err := NewReader(bytes.NewReader(gzipBytes(t, oneFrame)))
	require.NoError(t, err)
	out := r.NewFrame()
	require.NoError(t, r.ReadFrame(out))
	assert.Equal(t, io.EOF, r.ReadFrame(out))

	// Ending anywhere inside the second frame section is not.
	for cut := len(oneFrame) + 1; cut < len(twoFrames); cut++ {
		r, err := NewReader(bytes.NewReader(gzipBytes(t, twoFrames[:cut])))
		require.NoError(t, err)
		out := r.NewFrame()
		require.NoError(t, r.ReadFrame(out))
		err = r.ReadFrame(out)
		assert.ErrorIs(t, err, ErrTruncated, "cut at %d", cut)

		// Errors are sticky.
		assert.Equal(t, err, r.ReadFrame(out))
	}

	// Ending inside the header.
	headerOnly := rawStream(t, Version2, testHeaderFields(4, 2))
	for cut := 0; cut < len(headerOnly); cut++ {
		_, err := NewReader(bytes.NewReader(gzipBytes(t, oneFrame[:cut])))
		assert.ErrorIs(t, err, ErrTruncated, "cut at %d", cut)
	}
}

func TestReadTruncatedGzip(t *testing.T) {
	frame := makeRandomFrame(rand.New(rand.NewSource(5)), cptvframe.Lepton3Resolution)
	cptvBytes := new(bytes.Buffer)
	w := NewWriter(cptvBytes, cptvframe.Lepton3Resolution)
	require.NoError(t, w.WriteHeader(Header{}))
	require.NoError(t, w.WriteFrame(frame))
	require.NoError(t, w.Close())

	// Depending on where the deflate blocks end the header may or may
	// not be readable.
	data := cptvBytes.Bytes()
	r, err := NewReader(bytes.NewReader(data[:len(data)/2]))
	if err == nil {
		out := r.NewFrame()
		for err == nil {
			err = r.ReadFrame(out)
		}
	}
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReadUnexpectedSection(t *testing.T) {
	frame := cptvframe.NewFrame(smallRes)
	raw := rawStream(t, Version2, testHeaderFields(4, 2), frame)
	raw = append(raw, 'Q', 0)

	r, err := NewReader(bytes.NewReader(gzipBytes(t, raw)))
	require.NoError(t, err)
	out := r.NewFrame()
	require.NoError(t, r.ReadFrame(out))
	err = r.ReadFrame(out)
	assert.ErrorIs(t, err, ErrUnexpectedSection)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadBadHeaders(t *testing.T) {
	validFields := func() *FieldWriter {
		return testHeaderFields(4, 2)
	}
	sectionBytes := func(section byte, fw *FieldWriter) []byte {
		buf := new(bytes.Buffer)
		require.NoError(t, WriteSection(buf, section, fw))
		return buf.Bytes()
	}

	noCompression := NewFieldWriter()
	noCompression.Uint32(XResolution, 4)
	noCompression.Uint32(YResolution, 2)
	noCompression.Timestamp(Timestamp, time.Now())

	badCompression := NewFieldWriter()
	badCompression.Uint8(Compression, 2)

	noTimestamp := NewFieldWriter()
	noTimestamp.Uint8(Compression, 1)
	noTimestamp.Uint32(XResolution, 4)
	noTimestamp.Uint32(YResolution, 2)

	tests := []struct {
		name     string
		raw      []byte
		expected error
	}{
		{"magic", append([]byte("CPTX\x02"), sectionBytes(HeaderSection, validFields())...), ErrBadMagic},
		{"version", append([]byte("CPTV\x03"), sectionBytes(HeaderSection, validFields())...), ErrUnsupportedVersion},
		{"section", append([]byte("CPTV\x02"), sectionBytes(FrameSection, validFields())...), ErrNoHeaderSection},
		{"compression missing", append([]byte("CPTV\x02"), sectionBytes(HeaderSection, noCompression)...), ErrMissingField},
		{"compression", append([]byte("CPTV\x02"), sectionBytes(HeaderSection, badCompression)...), ErrUnsupportedCompression},
		{"timestamp", append([]byte("CPTV\x02"), sectionBytes(HeaderSection, noTimestamp)...), ErrMissingField},
		{"zero resolution", append([]byte("CPTV\x02"), sectionBytes(HeaderSection, testHeaderFields(0, 2))...), ErrInvalidResolution},
		{"huge resolution", append([]byte("CPTV\x02"), sectionBytes(HeaderSection, testHeaderFields(1<<13, 1<<13))...), ErrInvalidResolution},
	}
	for _, test := range tests {
		_, err := NewReader(bytes.NewReader(gzipBytes(t, test.raw)))
		assert.ErrorIs(t, err, test.expected, test.name)
		assert.ErrorIs(t, err, ErrFormat, test.name)
	}
}

func TestReadNotGzip(t *testing.T) {
	_, err := NewReader(strings.NewReader("CPTV\x02H\x00 this is not compressed"))
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = NewReader(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReadFrameSizeMismatch(t *testing.T) {
	frame := cptvframe.NewFrame(smallRes)
	fillFrame(frame, 100)
	width, data, err := NewCompressor(smallRes).Next(frame)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	b := NewBuilder(buf)
	require.NoError(t, b.WriteHeader(Version2, testHeaderFields(4, 2)))
	ff := NewFieldWriter()
	ff.Uint8(BitWidth, width)
	ff.Uint32(FrameSize, uint32(len(data)-1))
	require.NoError(t, b.WriteFrame(ff, data[:len(data)-1]))
	require.NoError(t, b.Close())

	r, err := NewReader(buf)
	require.NoError(t, err)
	assert.ErrorIs(t, r.ReadFrame(r.NewFrame()), ErrFrameSize)
}

func TestReadFrameMissingFields(t *testing.T) {
	buf := new(bytes.Buffer)
	b := NewBuilder(buf)
	require.NoError(t, b.WriteHeader(Version2, testHeaderFields(4, 2)))
	ff := NewFieldWriter()
	ff.Uint8(BitWidth, 1)
	require.NoError(t, b.WriteFrame(ff, nil))
	require.NoError(t, b.Close())

	r, err := NewReader(buf)
	require.NoError(t, err)
	assert.ErrorIs(t, r.ReadFrame(r.NewFrame()), ErrMissingField)
}

func TestReadFrameResolutionMismatch(t *testing.T) {
	raw := rawStream(t, Version2, testHeaderFields(4, 2), cptvframe.NewFrame(smallRes))
	r, err := NewReader(bytes.NewReader(gzipBytes(t, raw)))
	require.NoError(t, err)

	// The wrong sized frame is rejected without consuming anything.
	assert.ErrorIs(t, r.ReadFrame(cptvframe.NewFrame(cptvframe.Lepton3Resolution)), ErrResolutionMismatch)
	require.NoError(t, r.ReadFrame(r.NewFrame()))
}

func TestReadUnknownAndRecoveredFields(t *testing.T) {
	hf := NewFieldWriter()
	hf.Uint8(Compression, 1)
	hf.Uint32(XResolution, 4)
	hf.Uint32(YResolution, 2)
	hf.Uint64(Timestamp, maxTimestampMicros+1000)
	require.NoError(t, hf.Opaque(FPS, []byte{1, 2, 3}))
	require.NoError(t, hf.Opaque('q', []byte("hello")))

	raw := rawStream(t, Version2, hf)
	r, err := NewReader(bytes.NewReader(gzipBytes(t, raw)))
	require.NoError(t, err)
	assert.True(t, r.TimestampRecovered())
	assert.Equal(t, time.Unix(0, 0).UTC(), r.Timestamp())
	assert.Equal(t, 0, r.FPS())

	unknown := r.HeaderFields().Unknown()
	require.Len(t, unknown, 2)
	assert.Equal(t, FPS, unknown[0].Code)
	assert.Equal(t, byte('q'), unknown[1].Code)
	assert.Equal(t, []byte("hello"), unknown[1].Value)
}

func TestFileRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.cptv")
	frame := makeRandomFrame(rand.New(rand.NewSource(9)), cptvframe.Lepton3Resolution)

	fw, err := NewFileWriter(filename, cptvframe.Lepton3Resolution)
	require.NoError(t, err)
	assert.Equal(t, filename, fw.Name())
	require.NoError(t, fw.WriteHeader(Header{DeviceName: "nz42"}))
	require.NoError(t, fw.WriteFrame(frame))
	require.NoError(t, fw.Close())

	fr, err := NewFileReader(filename)
	require.NoError(t, err)
	defer fr.Close()
	assert.Equal(t, filename, fr.Name())
	assert.Equal(t, "nz42", fr.DeviceName())

	out := fr.NewFrame()
	require.NoError(t, fr.ReadFrame(out))
	assert.Equal(t, frame.Pix, out.Pix)
	assert.Equal(t, io.EOF, fr.ReadFrame(out))
}

func testHeaderFields(cols, rows uint32) *FieldWriter {
	fw := NewFieldWriter()
	fw.Uint8(Compression, 1)
	fw.Uint32(XResolution, cols)
	fw.Uint32(YResolution, rows)
	fw.Timestamp(Timestamp, time.Date(2020, 2, 2, 2, 2, 2, 0, time.UTC))
	return fw
}

// rawStream returns the uncompressed bytes of a CPTV stream holding
// frames. Frame sections carry only bit width and frame size.
func rawStream(t *testing.T, version byte, header *FieldWriter, frames ...*cptvframe.Frame) []byte {
	buf := bytes.NewBufferString(magic)
	buf.WriteByte(version)
	require.NoError(t, WriteSection(buf, HeaderSection, header))

	if len(frames) > 0 {
		comp := NewCompressor(cptvframe.Resolution{Cols: len(frames[0].Pix[0]), Rows: len(frames[0].Pix)})
		for _, frame := range frames {
			width, data, err := comp.Next(frame)
			require.NoError(t, err)
			ff := NewFieldWriter()
			ff.Uint8(BitWidth, width)
			ff.Uint32(FrameSize, uint32(len(data)))
			require.NoError(t, WriteSection(buf, FrameSection, ff))
			buf.Write(data)
		}
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, raw []byte) []byte {
	buf := new(bytes.Buffer)
	gw := gzip.NewWriter(buf)
	_, err := gw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}
