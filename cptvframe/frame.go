// Copyright 2018 The Cacophony Project. All rights reserved.
// Use of this source code is governed by the Apache License Version 2.0;
// see the LICENSE file for further details.

package cptvframe

import (
	"time"
)

// Telemetry holds the per-frame camera status stored alongside the
// pixels of a CPTV frame.
type Telemetry struct {
	TimeOn          time.Duration
	FFCState        string
	FrameCount      int
	FrameMean       uint16
	TempC           float64
	LastFFCTempC    float64
	LastFFCTime     time.Duration
	BackgroundFrame bool
}

// Frame represents the thermal readings for a single frame.
type Frame struct {
	Pix    [][]uint16
	Status Telemetry
}

// CameraResolution describes the dimensions of the frames produced by
// a camera.
type CameraResolution interface {
	ResX() int
	ResY() int
}

// Resolution is a fixed CameraResolution.
type Resolution struct {
	Cols, Rows int
}

// ResX implements CameraResolution.
func (r Resolution) ResX() int {
	return r.Cols
}

// ResY implements CameraResolution.
func (r Resolution) ResY() int {
	return r.Rows
}

// Lepton3Resolution is the resolution of a FLIR Lepton 3 camera, which
// was the only resolution early CPTV writers produced.
var Lepton3Resolution = Resolution{Cols: 160, Rows: 120}

// NewFrame returns a zeroed frame sized for c.
func NewFrame(c CameraResolution) *Frame {
	frame := new(Frame)
	frame.Pix = make([][]uint16, c.ResY())
	for i := range frame.Pix {
		frame.Pix[i] = make([]uint16, c.ResX())
	}
	return frame
}

// Copy sets current frame as other frame
func (fr *Frame) Copy(orig *Frame) {
	fr.Status = orig.Status
	for y, row := range orig.Pix {
		copy(fr.Pix[y][:], row)
	}
}

// HasResolution reports whether the frame's pixel grid matches c
// exactly, including every row.
func (fr *Frame) HasResolution(c CameraResolution) bool {
	if len(fr.Pix) != c.ResY() {
		return false
	}
	for _, row := range fr.Pix {
		if len(row) != c.ResX() {
			return false
		}
	}
	return true
}
