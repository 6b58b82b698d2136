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

// NewCompressor creates a new Compressor for frames of the given
// resolution.
func NewCompressor(c cptvframe.CameraResolution) *Compressor {
	cols, rows := c.ResX(), c.ResY()
	elems := rows * cols
	outBuf := new(bytes.Buffer)
	outBuf.Grow(4 + 2*elems) // 16 bits per element; worst case
	adjLen := elems - 1
	if adjLen < 0 {
		adjLen = 0
	}
	return &Compressor{
		res:        cptvframe.Resolution{Cols: cols, Rows: rows},
		snake:      snakeOrder(cols, rows),
		frameDelta: make([]int32, elems),
		adjDeltas:  make([]int32, adjLen),
		outBuf:     outBuf,
		prevFrame:  cptvframe.NewFrame(c),
	}
}

// Compressor generates a compressed representation of successive
// frames, returning CPTV frame payloads.
type Compressor struct {
	res        cptvframe.Resolution
	snake      []int
	frameDelta []int32
	adjDeltas  []int32
	outBuf     *bytes.Buffer
	prevFrame  *cptvframe.Frame
}

// Next takes the next frame in a recording and converts it to a
// compressed stream of bytes. The bit width used for packing is also
// returned (this is required for unpacking).
//
// IMPORTANT: The returned byte slice is reused and therefore is only
// valid until the next call to Next.
func (c *Compressor) Next(curr *cptvframe.Frame) (uint8, []byte, error) {
	if !curr.HasResolution(c.res) {
		return 0, nil, fmt.Errorf("%w: expected %dx%d", ErrResolutionMismatch, c.res.Cols, c.res.Rows)
	}
	if len(c.frameDelta) == 0 {
		return 0, nil, fmt.Errorf("%w: %dx%d", ErrInvalidResolution, c.res.Cols, c.res.Rows)
	}

	// Generate the interframe delta in snake order.
	cols := c.res.Cols
	for i, offset := range c.snake {
		y, x := offset/cols, offset%cols
		c.frameDelta[i] = int32(curr.Pix[y][x]) - int32(c.prevFrame.Pix[y][x])
	}
	c.prevFrame.Copy(curr)

	// Now generate the adjacent "delta of deltas".
	var maxD uint32
	for i := range c.adjDeltas {
		d := c.frameDelta[i+1] - c.frameDelta[i]
		c.adjDeltas[i] = d
		if absD := abs(d); absD > maxD {
			maxD = absD
		}
	}

	// How many bits required to store the largest delta?
	width := numBits(maxD) + 1 // add 1 to allow for sign bit

	// Write out the starting frame delta value (required for reconstruction)
	c.outBuf.Reset()
	var start [4]byte
	binary.LittleEndian.PutUint32(start[:], uint32(c.frameDelta[0]))
	c.outBuf.Write(start[:])

	// Pack the deltas according to the bit width determined
	if err := PackBits(width, c.adjDeltas, c.outBuf); err != nil {
		return 0, nil, err
	}
	return width, c.outBuf.Bytes(), nil
}

// Reset forgets the previous frame so the next frame is compressed
// against an all zero frame, as at the start of a recording.
func (c *Compressor) Reset() {
	clearFrame(c.prevFrame)
}

func clearFrame(f *cptvframe.Frame) {
	for _, row := range f.Pix {
		for x := range row {
			row[x] = 0
		}
	}
	f.Status = cptvframe.Telemetry{}
}
