// Copyright 2018 The Cacophony Project. All rights reserved.
// Use of this source code is governed by the Apache License Version 2.0;
// see the LICENSE file for further details.

// Package rawframe converts between the raw frames sent by camera
// services and cptvframe.Frame.
package rawframe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
)

// TelemetrySize is the number of telemetry bytes following the pixels
// of a raw frame, when present.
const TelemetrySize = 64

var ErrFrameSize = errors.New("raw frame has the wrong size")

// Format describes how a camera lays out its raw frames: pixels as 16
// bit words in row order, optionally followed by telemetry.
type Format struct {
	Res       cptvframe.CameraResolution
	Order     binary.ByteOrder
	Telemetry bool
}

// LeptonFormat is the layout used by FLIR Lepton cameras: big endian
// pixels followed by telemetry.
func LeptonFormat(c cptvframe.CameraResolution) Format {
	return Format{Res: c, Order: binary.BigEndian, Telemetry: true}
}

// BosonFormat is the layout used by FLIR Boson cameras: little endian
// pixels with no telemetry.
func BosonFormat(c cptvframe.CameraResolution) Format {
	return Format{Res: c, Order: binary.LittleEndian}
}

// ForBrand returns the format used by cameras of the given brand.
// withTelemetry selects whether frames carry telemetry, which only
// Lepton cameras send.
func ForBrand(brand string, c cptvframe.CameraResolution, withTelemetry bool) Format {
	if strings.EqualFold(brand, "boson") {
		return BosonFormat(c)
	}
	f := LeptonFormat(c)
	f.Telemetry = withTelemetry
	return f
}

// ForFrameSize returns the format for a camera of the given brand
// sending frames of frameSize bytes.
func ForFrameSize(brand string, c cptvframe.CameraResolution, frameSize int) (Format, error) {
	f := ForBrand(brand, c, true)
	if f.Size() != frameSize {
		f.Telemetry = false
	}
	if f.Size() != frameSize {
		return f, fmt.Errorf("%w: %d bytes for %dx%d %s frames", ErrFrameSize, frameSize, c.ResX(), c.ResY(), brand)
	}
	return f, nil
}

// Size returns the number of bytes in each raw frame.
func (f Format) Size() int {
	n := 2 * f.Res.ResX() * f.Res.ResY()
	if f.Telemetry {
		n += TelemetrySize
	}
	return n
}

// Decode fills out from raw. Without telemetry, out.Status is reset
// to zero values.
func (f Format) Decode(raw []byte, out *cptvframe.Frame) error {
	if len(raw) != f.Size() {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrFrameSize, len(raw), f.Size())
	}
	if !out.HasResolution(f.Res) {
		return fmt.Errorf("%w: output frame is not %dx%d", ErrFrameSize, f.Res.ResX(), f.Res.ResY())
	}

	i := 0
	for _, row := range out.Pix {
		for x := range row {
			row[x] = f.Order.Uint16(raw[i : i+2])
			i += 2
		}
	}

	out.Status = cptvframe.Telemetry{}
	if f.Telemetry {
		return ParseTelemetry(raw[i:], &out.Status)
	}
	return nil
}

// Encode appends frame to dst in this format.
func (f Format) Encode(dst []byte, frame *cptvframe.Frame) ([]byte, error) {
	if !frame.HasResolution(f.Res) {
		return dst, fmt.Errorf("%w: frame is not %dx%d", ErrFrameSize, f.Res.ResX(), f.Res.ResY())
	}
	var word [2]byte
	for _, row := range frame.Pix {
		for _, v := range row {
			f.Order.PutUint16(word[:], v)
			dst = append(dst, word[:]...)
		}
	}
	if f.Telemetry {
		dst = append(dst, EncodeTelemetry(&frame.Status)...)
	}
	return dst, nil
}
