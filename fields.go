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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// FieldType identifies how the value of a field is encoded.
type FieldType uint8

const (
	// TypeOpaque fields are kept as raw bytes. Unregistered field codes
	// are always opaque.
	TypeOpaque FieldType = iota
	TypeUint8
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeString
	TypeTimestamp
)

func (t FieldType) String() string {
	switch t {
	case TypeUint8:
		return "uint8"
	case TypeUint32:
		return "uint32"
	case TypeUint64:
		return "uint64"
	case TypeFloat32:
		return "float32"
	case TypeString:
		return "string"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "opaque"
	}
}

// size returns the encoded size of fixed size types, or 0.
func (t FieldType) size() int {
	switch t {
	case TypeUint8:
		return 1
	case TypeUint32, TypeFloat32:
		return 4
	case TypeUint64, TypeTimestamp:
		return 8
	default:
		return 0
	}
}

// fieldTypes maps field codes to their value types. Header and frame
// fields share the table; where a code appears in both sections it has
// the same type in both.
var fieldTypes = map[byte]FieldType{
	Timestamp:       TypeTimestamp,
	LocTimestamp:    TypeTimestamp,
	XResolution:     TypeUint32,
	YResolution:     TypeUint32,
	FrameSize:       TypeUint32,
	TimeOn:          TypeUint32,
	LastFFCTime:     TypeUint32,
	DeviceID:        TypeUint32,
	CameraSerial:    TypeUint32,
	Compression:     TypeUint8,
	BitWidth:        TypeUint8,
	PreviewSecs:     TypeUint8,
	FPS:             TypeUint8,
	BackgroundFrame: TypeUint8,
	DeviceName:      TypeString,
	MotionConfig:    TypeString,
	Model:           TypeString,
	Brand:           TypeString,
	Firmware:        TypeString,
	Latitude:        TypeFloat32,
	Longitude:       TypeFloat32,
	Altitude:        TypeFloat32,
	Accuracy:        TypeFloat32,
	TempC:           TypeFloat32,
	LastFFCTempC:    TypeFloat32,
}

// maxTimestampMicros is 9999-12-31T23:59:59.999999Z. Later timestamps
// are treated as corrupt.
const maxTimestampMicros = 253402300799999999

var (
	epoch        = time.Unix(0, 0).UTC()
	maxTimestamp = time.Unix(maxTimestampMicros/1000000, maxTimestampMicros%1000000*1000).UTC()
)

// Field is a single decoded field from a CPTV section.
type Field struct {
	Code  byte
	Type  FieldType
	Value interface{}

	// Recovered is set on timestamp fields whose stored value was out
	// of range. Value holds the Unix epoch instead.
	Recovered bool
}

// Fields holds the fields of a section in the order they were read.
type Fields []Field

// ReadFields reads the fields for a CPTV section, returning a new
// Fields instance.
func ReadFields(r io.Reader) (Fields, error) {
	return readFieldsN(&nReader{r})
}

// ReadSection reads a section type and its fields. io.EOF is returned
// if r ends before the section starts.
func ReadSection(r io.Reader) (byte, Fields, error) {
	nr := &nReader{r}
	sectionType, err := nr.ReadSectionType()
	if err != nil {
		return 0, nil, err
	}
	fields, err := readFieldsN(nr)
	if err != nil {
		return 0, nil, err
	}
	return sectionType, fields, nil
}

func readFieldsN(r *nReader) (Fields, error) {
	fieldCount, err := r.ReadByteInt()
	if err != nil {
		return nil, err
	}
	f := make(Fields, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		field, err := readField(r)
		if err != nil {
			return nil, err
		}
		f = append(f, field)
	}
	return f, nil
}

func readField(r *nReader) (Field, error) {
	size, err := r.ReadByteInt()
	if err != nil {
		return Field{}, err
	}
	code, err := r.ReadByte()
	if err != nil {
		return Field{}, err
	}
	typ := fieldTypes[code]

	// Timestamps are always 8 bytes, whatever the length byte says.
	if typ == TypeTimestamp {
		size = typ.size()
	}
	data, err := r.ReadN(size)
	if err != nil {
		return Field{}, err
	}

	if fixed := typ.size(); fixed > 0 && fixed != size {
		return Field{Code: code, Type: TypeOpaque, Value: data}, nil
	}

	field := Field{Code: code, Type: typ}
	switch typ {
	case TypeUint8:
		field.Value = data[0]
	case TypeUint32:
		field.Value = binary.LittleEndian.Uint32(data)
	case TypeUint64:
		field.Value = binary.LittleEndian.Uint64(data)
	case TypeFloat32:
		field.Value = math.Float32frombits(binary.LittleEndian.Uint32(data))
	case TypeString:
		field.Value = string(data)
	case TypeTimestamp:
		ts, ok := timestampFromMicros(binary.LittleEndian.Uint64(data))
		field.Value = ts
		field.Recovered = !ok
	default:
		field.Value = data
	}
	return field, nil
}

func timestampFromMicros(micros uint64) (time.Time, bool) {
	if micros > maxTimestampMicros {
		return epoch, false
	}
	return time.Unix(int64(micros/1e6), int64(micros%1e6)*1e3).UTC(), true
}

func microsFromTimestamp(t time.Time) uint64 {
	return uint64(t.Unix()*1e6 + int64(t.Nanosecond()/1e3))
}

// Get returns the field with key 'code'. If the code appears more than
// once the last occurrence wins.
func (f Fields) Get(code byte) (Field, bool) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i].Code == code {
			return f[i], true
		}
	}
	return Field{}, false
}

// Has reports whether a field with key 'code' is present.
func (f Fields) Has(code byte) bool {
	_, ok := f.Get(code)
	return ok
}

// Unknown returns the fields which were kept as opaque bytes.
func (f Fields) Unknown() Fields {
	var out Fields
	for _, field := range f {
		if field.Type == TypeOpaque {
			out = append(out, field)
		}
	}
	return out
}

// Uint8 returns the field at 'key' as a uint8
func (f Fields) Uint8(key byte) (uint8, error) {
	v, err := f.value(key, TypeUint8)
	if err != nil {
		return 0, err
	}
	return v.(uint8), nil
}

// Uint32 returns the field at 'key' as a uint32
func (f Fields) Uint32(key byte) (uint32, error) {
	v, err := f.value(key, TypeUint32)
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}

// Uint64 returns the field at 'key' as a uint64
func (f Fields) Uint64(key byte) (uint64, error) {
	v, err := f.value(key, TypeUint64)
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

// Float32 returns the field at 'key' as a float32
func (f Fields) Float32(key byte) (float32, error) {
	v, err := f.value(key, TypeFloat32)
	if err != nil {
		return 0, err
	}
	return v.(float32), nil
}

// Timestamp returns the field at 'key' as a time value
func (f Fields) Timestamp(key byte) (time.Time, error) {
	v, err := f.value(key, TypeTimestamp)
	if err != nil {
		return time.Time{}, err
	}
	return v.(time.Time), nil
}

// String returns the field at 'key' as a character string
func (f Fields) String(key byte) (string, error) {
	v, err := f.value(key, TypeString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Opaque returns the raw bytes of an opaque field.
func (f Fields) Opaque(key byte) ([]byte, error) {
	v, err := f.value(key, TypeOpaque)
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f Fields) value(key byte, typ FieldType) (interface{}, error) {
	field, ok := f.Get(key)
	if !ok {
		return nil, fmt.Errorf("field %q: %w", key, ErrFieldNotFound)
	}
	if field.Type != typ {
		return nil, fmt.Errorf("field %q is %s, not %s: %w", key, field.Type, typ, ErrFieldType)
	}
	return field.Value, nil
}

// NewFieldWriter creates a new FieldWriter
func NewFieldWriter() *FieldWriter {
	return &FieldWriter{
		data: make([]byte, 0, 128),
	}
}

// FieldWriter generates CPTV encoded fields.
type FieldWriter struct {
	data       []byte
	fieldCount int
}

// Bytes returns the encoded fields and how many there are.
func (f *FieldWriter) Bytes() ([]byte, int) {
	return f.data, f.fieldCount
}

// Uint8 writes a uint8 field with key 'code' and value 'v'
func (f *FieldWriter) Uint8(code byte, v uint8) {
	f.data = append(f.data, byte(1), code, byte(v))
	f.fieldCount++
}

// Uint32 writes a uint32 field with key 'code' and value 'v'
func (f *FieldWriter) Uint32(code byte, v uint32) {
	b := []byte{4, code, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[2:], v)
	f.data = append(f.data, b...)
	f.fieldCount++
}

// Uint64 writes a uint64 field with key 'code' and value 'v'
func (f *FieldWriter) Uint64(code byte, v uint64) {
	b := []byte{8, code, 0, 0, 0, 0, 0, 0, 0, 0}
	binary.LittleEndian.PutUint64(b[2:], v)
	f.data = append(f.data, b...)
	f.fieldCount++
}

// Float32 writes a float32 field with key 'code' and value 'v'
func (f *FieldWriter) Float32(code byte, v float32) {
	f.Uint32(code, math.Float32bits(v))
}

// Timestamp writes a time field with key 'code' and value 't'
func (f *FieldWriter) Timestamp(code byte, t time.Time) {
	f.Uint64(code, microsFromTimestamp(t))
}

// String writes a character string field with key 'code' and value 'v'
func (f *FieldWriter) String(code byte, v string) error {
	return f.Opaque(code, []byte(v))
}

// Opaque writes an uninterpreted field with key 'code'.
func (f *FieldWriter) Opaque(code byte, v []byte) error {
	if len(v) > math.MaxUint8 {
		return fmt.Errorf("field %q: length %d greater than 255", code, len(v))
	}
	f.data = append(f.data, byte(len(v)), code)
	f.data = append(f.data, v...)
	f.fieldCount++
	return nil
}

// WriteSection writes a section of the given type holding the fields
// in f.
func WriteSection(w io.Writer, sectionType byte, f *FieldWriter) error {
	if f.fieldCount > math.MaxUint8 {
		return fmt.Errorf("section %q: %d fields, at most 255 allowed", sectionType, f.fieldCount)
	}
	if _, err := w.Write([]byte{sectionType, byte(f.fieldCount)}); err != nil {
		return err
	}
	_, err := w.Write(f.data)
	return err
}
