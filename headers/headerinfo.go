// go-cptv - read and write Cacophony Project thermal video files
// Copyright (C) 2020, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package headers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v1"
)

// Keys used in the camera header block.
const (
	XResolution  = "ResX"
	YResolution  = "ResY"
	FPS          = "FPS"
	FrameSize    = "FrameSize"
	Brand        = "Brand"
	Model        = "Model"
	Firmware     = "Firmware"
	CameraSerial = "CameraSerial"
)

// HeaderInfo contains the camera description fields sent by a camera
// service before its first frame.
type HeaderInfo struct {
	resX      int
	resY      int
	fps       int
	framesize int
	brand     string
	model     string
	firmware  string
	serial    int
}

// New returns a HeaderInfo describing a camera.
func New(resX, resY, fps, frameSize int, brand, model string) *HeaderInfo {
	return &HeaderInfo{
		resX:      resX,
		resY:      resY,
		fps:       fps,
		framesize: frameSize,
		brand:     brand,
		model:     model,
	}
}

// ResX implements cptvframe.CameraResolution.
func (h *HeaderInfo) ResX() int {
	return h.resX
}

// ResY implements cptvframe.CameraResolution.
func (h *HeaderInfo) ResY() int {
	return h.resY
}

func (h *HeaderInfo) FPS() int {
	return h.fps
}

// FrameSize returns the number of bytes in each frame (include any
// telemetry bytes).
func (h *HeaderInfo) FrameSize() int {
	return h.framesize
}

// Model returns the camera model.
func (h *HeaderInfo) Model() string {
	return h.model
}

// Brand returns the camera brand.
func (h *HeaderInfo) Brand() string {
	return h.brand
}

func (h *HeaderInfo) Firmware() string {
	return h.firmware
}

func (h *HeaderInfo) CameraSerial() int {
	return h.serial
}

// Validate checks that frames can be read using the header.
func (h *HeaderInfo) Validate() error {
	if h.resX <= 0 || h.resY <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", h.resX, h.resY)
	}
	if h.framesize < 2*h.resX*h.resY {
		return fmt.Errorf("frame size %d too small for %dx%d", h.framesize, h.resX, h.resY)
	}
	if h.fps <= 0 {
		return errors.New("fps not set")
	}
	return nil
}

// ReadHeaderInfo reads the header block, which ends at the first blank
// line.
func ReadHeaderInfo(reader *bufio.Reader) (*HeaderInfo, error) {
	var buf bytes.Buffer
	for {
		line, err := reader.ReadString(byte('\n'))
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		buf.WriteString(line)
	}
	h := make(map[string]interface{})
	err := yaml.Unmarshal(buf.Bytes(), &h)
	if err != nil {
		return nil, err
	}

	return &HeaderInfo{
		resX:      toInt(h[XResolution]),
		resY:      toInt(h[YResolution]),
		fps:       toInt(h[FPS]),
		framesize: toInt(h[FrameSize]),
		brand:     toStr(h[Brand]),
		model:     toStr(h[Model]),
		firmware:  toStr(h[Firmware]),
		serial:    toInt(h[CameraSerial]),
	}, nil
}

// WriteHeaderInfo writes h as a header block, as a camera service
// does at the start of a connection.
func WriteHeaderInfo(w io.Writer, h *HeaderInfo) error {
	m := map[string]interface{}{
		XResolution: h.resX,
		YResolution: h.resY,
		FPS:         h.fps,
		FrameSize:   h.framesize,
		Brand:       h.brand,
		Model:       h.model,
	}
	if h.firmware != "" {
		m[Firmware] = h.firmware
	}
	if h.serial != 0 {
		m[CameraSerial] = h.serial
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}

func toInt(v interface{}) int {
	out, ok := v.(int)
	if !ok {
		return 0
	}
	return out
}

func toStr(v interface{}) string {
	out, ok := v.(string)
	if !ok {
		return ""
	}
	return out
}
