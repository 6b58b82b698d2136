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
	"fmt"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
)

// NewDecompressor creates a new Decompressor for frames of the given
// resolution.
func NewDecompressor(c cptvframe.CameraResolution) *Decompressor {
	cols, rows := c.ResX(), c.ResY()
	return &Decompressor{
		res:        cptvframe.Resolution{Cols: cols, Rows: rows},
		pixelCount: cols * rows,
		snake:      snakeOrder(cols, rows),
		prevFrame:  cptvframe.NewFrame(c),
		deltas:     make([]int32, cols*rows),
	}
}

// Decompressor is used to decompress successive CPTV frames. See the
// Next() method.
type Decompressor struct {
	res        cptvframe.Resolution
	pixelCount int
	snake      []int
	prevFrame  *cptvframe.Frame
	deltas     []int32 // raster order
}

// Next decompresses a frame payload packed at bitWidth into out. out
// must have the decompressor's resolution. Frames must be passed in
// recording order as each one is reconstructed from the one before.
func (d *Decompressor) Next(bitWidth uint8, payload []byte, out *cptvframe.Frame) error {
	if d.pixelCount == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, d.res.Cols, d.res.Rows)
	}
	if err := checkBitWidth(bitWidth); err != nil {
		return err
	}
	if !out.HasResolution(d.res) {
		return fmt.Errorf("%w: expected %dx%d", ErrResolutionMismatch, d.res.Cols, d.res.Rows)
	}
	expected := 4 + PackedSize(d.pixelCount-1, bitWidth)
	if len(payload) != expected {
		return fmt.Errorf("%w: got %d bytes, expected %d for bit width %d",
			ErrFrameSize, len(payload), expected, bitWidth)
	}

	v := int32(binary.LittleEndian.Uint32(payload[:4]))
	unpacker := NewBitUnpacker(bitWidth, bytes.NewReader(payload[4:]))
	d.deltas[d.snake[0]] = v
	for _, offset := range d.snake[1:] {
		dv, err := unpacker.Next()
		if err != nil {
			return err
		}
		v += dv
		d.deltas[offset] = v
	}

	// Add to delta frame to previous frame.
	cols := d.res.Cols
	for y, row := range d.prevFrame.Pix {
		for x := range row {
			row[x] = uint16(int32(row[x]) + d.deltas[y*cols+x])
		}
		copy(out.Pix[y], row)
	}
	return nil
}

// Reset forgets the previous frame, as at the start of a recording.
func (d *Decompressor) Reset() {
	clearFrame(d.prevFrame)
}
