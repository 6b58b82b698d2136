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
	"fmt"
	"io"

	cptv "github.com/TheCacophonyProject/go-cptv"
)

func runFrames(filename string, w io.Writer) error {
	fr, err := cptv.NewFileReader(filename)
	if err != nil {
		return err
	}
	defer fr.Close()
	return writeFrames(w, fr.Reader)
}

func writeFrames(w io.Writer, r *cptv.Reader) error {
	frame := r.NewFrame()
	for i := 0; ; i++ {
		err := r.ReadFrame(frame)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		s := frame.Status
		if r.Version() == int(cptv.Version1) {
			fmt.Fprintf(w, "%5d offset=%-12v %016x\n", i, r.FrameOffset(), frameDigest(frame))
			continue
		}
		fmt.Fprintf(w, "%5d on=%-12v ffc=%-12v temp=%6.2f ffc-temp=%6.2f bg=%-5t %016x\n",
			i, s.TimeOn, s.LastFFCTime, s.TempC, s.LastFFCTempC, s.BackgroundFrame, frameDigest(frame))
	}
}
