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

const (
	magic = "CPTV"

	// Version1 is the original container format: frames carry a
	// microsecond offset from the recording start.
	Version1 byte = 0x01
	// Version2 adds camera status (time on, last FFC) to frames and
	// location, preview and motion details to the header.
	Version2 byte = 0x02

	// HeaderSection and FrameSection are the section type tags.
	HeaderSection byte = 'H'
	FrameSection  byte = 'F'

	// compressionDeltaDelta is the only supported frame compression
	// scheme: snaked delta of deltas at a dynamic bit width.
	compressionDeltaDelta = 1

	// Header field keys
	Timestamp       byte = 'T'
	XResolution     byte = 'X'
	YResolution     byte = 'Y'
	Compression     byte = 'C'
	DeviceName      byte = 'D'
	DeviceID        byte = 'I'
	PreviewSecs     byte = 'P'
	MotionConfig    byte = 'M'
	Latitude        byte = 'L'
	Longitude       byte = 'O'
	LocTimestamp    byte = 'S'
	Altitude        byte = 'A'
	Accuracy        byte = 'U'
	FPS             byte = 'Z'
	Model           byte = 'E'
	Brand           byte = 'B'
	Firmware        byte = 'V'
	CameraSerial    byte = 'N'
	BackgroundFrame byte = 'g'

	// Frame field keys
	Offset       byte = 't' // version 1 only, microseconds since recording start
	TimeOn       byte = 't' // version 2, milliseconds since camera power on
	BitWidth     byte = 'w'
	FrameSize    byte = 'f'
	LastFFCTime  byte = 'c'
	TempC        byte = 'a'
	LastFFCTempC byte = 'b'
)

// maxFramePixels bounds the resolution a header may declare.
const maxFramePixels = 1 << 24
