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

package main

import (
	"encoding/binary"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/cespare/xxhash/v2"
)

// frameDigest hashes the pixels of a frame. Frame status is not
// included.
func frameDigest(frame *cptvframe.Frame) uint64 {
	d := xxhash.New()
	var rowBuf []byte
	for _, row := range frame.Pix {
		rowBuf = rowBuf[:0]
		for _, v := range row {
			rowBuf = binary.LittleEndian.AppendUint16(rowBuf, v)
		}
		d.Write(rowBuf)
	}
	return d.Sum64()
}
