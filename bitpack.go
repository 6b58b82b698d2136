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
	"fmt"
	"io"
	"math/bits"
)

const maxBitWidth = 32

// PackBits takes a slice of signed integers and packs them into an
// abitrary (smaller) bit width. The most significant bit is written
// out first. A trailing partial byte is padded with zero bits.
func PackBits(width uint8, input []int32, w io.ByteWriter) error {
	if err := checkBitWidth(width); err != nil {
		return err
	}
	var scratch uint64 // values are left aligned at bit 63
	var nBits uint8    // number of bits in use in scratch
	for _, d := range input {
		scratch |= uint64(twosComp(d, width)) << (64 - width - nBits)
		nBits += width
		for nBits >= 8 {
			if err := w.WriteByte(uint8(scratch >> 56)); err != nil {
				return err
			}
			scratch <<= 8
			nBits -= 8
		}
	}
	if nBits > 0 {
		return w.WriteByte(uint8(scratch >> 56))
	}
	return nil
}

// PackedSize returns the number of bytes PackBits produces for count
// values at the given bit width.
func PackedSize(count int, width uint8) int {
	return (count*int(width) + 7) / 8
}

// UnpackBits extracts count signed integers packed at width bits from
// packed. packed must hold at least PackedSize(count, width) bytes.
func UnpackBits(width uint8, packed []byte, count int) ([]int32, error) {
	if err := checkBitWidth(width); err != nil {
		return nil, err
	}
	if need := PackedSize(count, width); len(packed) < need {
		return nil, fmt.Errorf("%w: need %d packed bytes, have %d", ErrTruncated, need, len(packed))
	}
	u := NewBitUnpacker(width, bytes.NewReader(packed))
	out := make([]int32, count)
	for i := range out {
		v, err := u.Next()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// NewBitUnpacker creates a new BitUnpacker. Integers will be
// extracted from the ByteReader and are expected to be packed at the
// bit width specified.
func NewBitUnpacker(width uint8, r io.ByteReader) *BitUnpacker {
	return &BitUnpacker{
		bitw: width,
		r:    r,
	}
}

// BitUnpacker extracts signed integers, packed at some bit width,
// from a bitstream.
type BitUnpacker struct {
	r     io.ByteReader
	bitw  uint8
	bits  uint64
	nbits uint8
}

// Next returns the next signed integer from the bitstream.
func (u *BitUnpacker) Next() (int32, error) {
	if err := checkBitWidth(u.bitw); err != nil {
		return 0, err
	}
	for u.nbits < u.bitw {
		b, err := u.r.ReadByte()
		if err != nil {
			return 0, truncated(err)
		}
		u.bits |= uint64(b) << (56 - u.nbits)
		u.nbits += 8
	}

	out := twosUncomp(uint32(u.bits>>(64-u.bitw)), u.bitw)
	u.bits <<= u.bitw
	u.nbits -= u.bitw
	return out, nil
}

func checkBitWidth(width uint8) error {
	if width == 0 || width > maxBitWidth {
		return fmt.Errorf("%w: %d", ErrInvalidBitWidth, width)
	}
	return nil
}

func widthMask(width uint8) uint32 {
	return uint32(1<<width - 1)
}

func abs(x int32) uint32 {
	if x < 0 {
		return uint32(-int64(x))
	}
	return uint32(x)
}

// twosComp returns the two's complement representation of v in width
// bits. v must be representable in width bits.
func twosComp(v int32, width uint8) uint32 {
	return uint32(v) & widthMask(width)
}

func twosUncomp(v uint32, width uint8) int32 {
	shift := maxBitWidth - width
	return int32(v<<shift) >> shift
}

// numBits returns the number of bits needed to hold x; numBits(0) is 0.
func numBits(x uint32) uint8 {
	return uint8(bits.Len32(x))
}
