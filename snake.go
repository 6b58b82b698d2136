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

// snakeOrder returns the raster offset (y*cols + x) visited at each
// step of a "snaked" walk over a cols x rows frame: even rows left to
// right, odd rows right to left. Snaking avoids potentially greater
// deltas at the row edges.
//
// The compressor and decompressor both derive their traversal from
// this function so they always agree on pixel positions.
func snakeOrder(cols, rows int) []int {
	order := make([]int, 0, cols*rows)
	for y := 0; y < rows; y++ {
		rowStart := y * cols
		if y&1 == 0 {
			for x := 0; x < cols; x++ {
				order = append(order, rowStart+x)
			}
		} else {
			for x := cols - 1; x >= 0; x-- {
				order = append(order, rowStart+x)
			}
		}
	}
	return order
}
