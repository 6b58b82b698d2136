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
	"encoding/binary"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsRoundTrip(t *testing.T) {
	ts := time.Date(2019, 3, 14, 1, 59, 26, 535897000, time.UTC)

	fw := NewFieldWriter()
	fw.Uint8(Compression, 1)
	fw.Uint32(XResolution, 160)
	fw.Float32(Latitude, -43.5)
	fw.Timestamp(Timestamp, ts)
	require.NoError(t, fw.String(DeviceName, "nz42"))

	buf := new(bytes.Buffer)
	require.NoError(t, WriteSection(buf, HeaderSection, fw))

	section, fields, err := ReadSection(buf)
	require.NoError(t, err)
	assert.Equal(t, HeaderSection, section)
	assert.Len(t, fields, 5)

	c, err := fields.Uint8(Compression)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), c)

	x, err := fields.Uint32(XResolution)
	require.NoError(t, err)
	assert.Equal(t, uint32(160), x)

	lat, err := fields.Float32(Latitude)
	require.NoError(t, err)
	assert.Equal(t, float32(-43.5), lat)

	readTs, err := fields.Timestamp(Timestamp)
	require.NoError(t, err)
	assert.Equal(t, ts, readTs)

	name, err := fields.String(DeviceName)
	require.NoError(t, err)
	assert.Equal(t, "nz42", name)

	assert.Empty(t, fields.Unknown())

	// Nothing left.
	_, _, err = ReadSection(buf)
	assert.Equal(t, io.EOF, err)
}

func TestFieldsAccessErrors(t *testing.T) {
	fields := Fields{{Code: DeviceName, Type: TypeString, Value: "nz42"}}

	_, err := fields.Uint32(DeviceID)
	assert.ErrorIs(t, err, ErrFieldNotFound)

	_, err = fields.Uint32(DeviceName)
	assert.ErrorIs(t, err, ErrFieldType)
	assert.False(t, fields.Has(DeviceID))
	assert.True(t, fields.Has(DeviceName))
}

func TestFieldsLastOccurrenceWins(t *testing.T) {
	fw := NewFieldWriter()
	require.NoError(t, fw.String(DeviceName, "first"))
	require.NoError(t, fw.String(DeviceName, "second"))

	fields := readBack(t, fw)
	name, err := fields.String(DeviceName)
	require.NoError(t, err)
	assert.Equal(t, "second", name)
}

func TestUnknownFieldKeptOpaque(t *testing.T) {
	fw := NewFieldWriter()
	require.NoError(t, fw.Opaque('q', []byte{1, 2, 3}))
	fw.Uint32(XResolution, 4)

	fields := readBack(t, fw)
	require.Len(t, fields, 2)
	raw, err := fields.Opaque('q')
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw)

	x, err := fields.Uint32(XResolution)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), x)
}

func TestRegisteredFieldWithWrongLength(t *testing.T) {
	// FPS is a single byte. A three byte value can't be interpreted
	// so it is kept as opaque and reading continues.
	fw := NewFieldWriter()
	require.NoError(t, fw.Opaque(FPS, []byte{9, 9, 9}))
	fw.Uint8(PreviewSecs, 5)

	fields := readBack(t, fw)
	unknown := fields.Unknown()
	require.Len(t, unknown, 1)
	assert.Equal(t, FPS, unknown[0].Code)
	assert.Equal(t, []byte{9, 9, 9}, unknown[0].Value)

	_, err := fields.Uint8(FPS)
	assert.ErrorIs(t, err, ErrFieldType)

	p, err := fields.Uint8(PreviewSecs)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), p)
}

func TestTimestampAlwaysEightBytes(t *testing.T) {
	ts := time.Date(2020, 1, 2, 3, 4, 5, 6000, time.UTC)
	value := make([]byte, 8)
	binary.LittleEndian.PutUint64(value, microsFromTimestamp(ts))

	// The length byte claims 4 but the full 8 bytes follow.
	raw := append([]byte{2, 4, Timestamp}, value...)
	raw = append(raw, 1, PreviewSecs, 7)

	fields, err := ReadFields(bytes.NewReader(raw))
	require.NoError(t, err)
	readTs, err := fields.Timestamp(Timestamp)
	require.NoError(t, err)
	assert.Equal(t, ts, readTs)

	p, err := fields.Uint8(PreviewSecs)
	require.NoError(t, err)
	assert.Equal(t, uint8(7), p)
}

func TestTimestampOutOfRange(t *testing.T) {
	fw := NewFieldWriter()
	fw.Uint64(Timestamp, maxTimestampMicros+1)
	fw.Timestamp(LocTimestamp, time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC))

	fields := readBack(t, fw)
	field, ok := fields.Get(Timestamp)
	require.True(t, ok)
	assert.True(t, field.Recovered)
	assert.Equal(t, time.Unix(0, 0).UTC(), field.Value)

	field, ok = fields.Get(LocTimestamp)
	require.True(t, ok)
	assert.False(t, field.Recovered)
}

func TestStringTooLong(t *testing.T) {
	fw := NewFieldWriter()
	assert.Error(t, fw.String(MotionConfig, strings.Repeat("x", 256)))
	assert.NoError(t, fw.String(MotionConfig, strings.Repeat("x", 255)))
	_, count := fw.Bytes()
	assert.Equal(t, 1, count)
}

func TestTooManyFields(t *testing.T) {
	fw := NewFieldWriter()
	for i := 0; i < 256; i++ {
		fw.Uint8('q', 0)
	}
	assert.Error(t, WriteSection(new(bytes.Buffer), FrameSection, fw))
}

func TestReadFieldsTruncated(t *testing.T) {
	fw := NewFieldWriter()
	fw.Uint32(XResolution, 160)
	fw.Uint32(YResolution, 120)
	data, _ := fw.Bytes()
	raw := append([]byte{2}, data...)

	for i := 0; i < len(raw); i++ {
		_, err := ReadFields(bytes.NewReader(raw[:i]))
		assert.ErrorIs(t, err, ErrTruncated, "cut at %d", i)
	}
}

func TestReadSectionTruncated(t *testing.T) {
	_, _, err := ReadSection(bytes.NewReader([]byte{FrameSection}))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestFieldTypeString(t *testing.T) {
	assert.Equal(t, "uint32", TypeUint32.String())
	assert.Equal(t, "timestamp", TypeTimestamp.String())
	assert.Equal(t, "opaque", TypeOpaque.String())
}

func readBack(t *testing.T, fw *FieldWriter) Fields {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteSection(buf, FrameSection, fw))
	section, fields, err := ReadSection(buf)
	require.NoError(t, err)
	require.Equal(t, FrameSection, section)
	return fields
}
