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

func runInfo(filename string, w io.Writer) error {
	fr, err := cptv.NewFileReader(filename)
	if err != nil {
		return err
	}
	defer fr.Close()
	return writeInfo(w, fr.Reader)
}

func writeInfo(w io.Writer, r *cptv.Reader) error {
	h := r.Header()
	fmt.Fprintln(w, "Version:       ", r.Version())
	fmt.Fprintln(w, "Timestamp:     ", h.Timestamp)
	if r.TimestampRecovered() {
		fmt.Fprintln(w, "               (stored timestamp was out of range)")
	}
	fmt.Fprintf(w, "Resolution:     %dx%d\n", r.ResX(), r.ResY())
	fmt.Fprintln(w, "Device name:   ", h.DeviceName)
	fmt.Fprintln(w, "Device ID:     ", h.DeviceID)
	if r.Version() >= int(cptv.Version2) {
		fmt.Fprintln(w, "Preview secs:  ", h.PreviewSecs)
		fmt.Fprintf(w, "Location:       %f, %f (altitude %.1f, accuracy %.1f)\n",
			h.Latitude, h.Longitude, h.Altitude, h.Accuracy)
		if !h.LocTimestamp.IsZero() {
			fmt.Fprintln(w, "Location time: ", h.LocTimestamp)
		}
		fmt.Fprintf(w, "Camera:         %s %s (firmware %q, serial %d) at %d fps\n",
			h.Brand, h.Model, h.Firmware, h.CameraSerial, h.FPS)
		fmt.Fprintln(w, "Background:    ", h.BackgroundFrame)
	}
	for _, f := range r.HeaderFields().Unknown() {
		fmt.Fprintf(w, "Unknown field:  %q (%d bytes)\n", f.Code, len(f.Value.([]byte)))
	}
	if h.MotionConfig != "" {
		fmt.Fprintf(w, "Motion config:\n%s\n", h.MotionConfig)
	}

	count, err := r.FrameCount()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Frame count:   ", count)
	return nil
}
