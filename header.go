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
	"fmt"
	"math"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
)

// Header describes the recording level attributes stored in the
// header section of a CPTV file. Zero values are treated as unset
// and are not written, except for Timestamp which defaults to the
// time the header is written.
type Header struct {
	Timestamp       time.Time
	DeviceName      string
	DeviceID        int
	PreviewSecs     int
	MotionConfig    string
	Latitude        float32
	Longitude       float32
	LocTimestamp    time.Time
	Altitude        float32
	Accuracy        float32
	FPS             int
	Brand           string
	Model           string
	Firmware        string
	CameraSerial    int
	BackgroundFrame bool
}

func (h *Header) fields(c cptvframe.CameraResolution) (*FieldWriter, error) {
	f := NewFieldWriter()
	f.Uint8(Compression, compressionDeltaDelta)
	f.Uint32(XResolution, uint32(c.ResX()))
	f.Uint32(YResolution, uint32(c.ResY()))
	if err := checkTimestamp(h.Timestamp); err != nil {
		return nil, err
	}
	f.Timestamp(Timestamp, h.Timestamp)

	if h.DeviceName != "" {
		if err := f.String(DeviceName, h.DeviceName); err != nil {
			return nil, err
		}
	}
	if h.DeviceID != 0 {
		if h.DeviceID < 0 || int64(h.DeviceID) > math.MaxUint32 {
			return nil, fmt.Errorf("device id %d out of range", h.DeviceID)
		}
		f.Uint32(DeviceID, uint32(h.DeviceID))
	}
	if h.PreviewSecs != 0 {
		if h.PreviewSecs < 0 || h.PreviewSecs > math.MaxUint8 {
			return nil, fmt.Errorf("preview seconds %d out of range", h.PreviewSecs)
		}
		f.Uint8(PreviewSecs, uint8(h.PreviewSecs))
	}
	if h.MotionConfig != "" {
		if err := f.String(MotionConfig, h.MotionConfig); err != nil {
			return nil, err
		}
	}
	if h.Latitude != 0 {
		f.Float32(Latitude, h.Latitude)
	}
	if h.Longitude != 0 {
		f.Float32(Longitude, h.Longitude)
	}
	if !h.LocTimestamp.IsZero() {
		if err := checkTimestamp(h.LocTimestamp); err != nil {
			return nil, fmt.Errorf("location %w", err)
		}
		f.Timestamp(LocTimestamp, h.LocTimestamp)
	}
	if h.Altitude != 0 {
		f.Float32(Altitude, h.Altitude)
	}
	if h.Accuracy != 0 {
		f.Float32(Accuracy, h.Accuracy)
	}
	if h.FPS != 0 {
		if h.FPS < 0 || h.FPS > math.MaxUint8 {
			return nil, fmt.Errorf("fps %d out of range", h.FPS)
		}
		f.Uint8(FPS, uint8(h.FPS))
	}
	for _, s := range []struct {
		code byte
		v    string
	}{
		{Model, h.Model},
		{Brand, h.Brand},
		{Firmware, h.Firmware},
	} {
		if s.v == "" {
			continue
		}
		if err := f.String(s.code, s.v); err != nil {
			return nil, err
		}
	}
	if h.CameraSerial != 0 {
		if h.CameraSerial < 0 || int64(h.CameraSerial) > math.MaxUint32 {
			return nil, fmt.Errorf("camera serial %d out of range", h.CameraSerial)
		}
		f.Uint32(CameraSerial, uint32(h.CameraSerial))
	}
	if h.BackgroundFrame {
		f.Uint8(BackgroundFrame, 1)
	}
	return f, nil
}

// HeaderFromFields builds a Header from decoded header fields. Fields
// that are absent, or stored with an unexpected length, are left at
// their zero value. Required fields are checked by the Reader.
func HeaderFromFields(fields Fields) Header {
	var h Header
	h.Timestamp, _ = fields.Timestamp(Timestamp)
	h.DeviceName, _ = fields.String(DeviceName)
	if v, err := fields.Uint32(DeviceID); err == nil {
		h.DeviceID = int(v)
	}
	if v, err := fields.Uint8(PreviewSecs); err == nil {
		h.PreviewSecs = int(v)
	}
	h.MotionConfig, _ = fields.String(MotionConfig)
	h.Latitude, _ = fields.Float32(Latitude)
	h.Longitude, _ = fields.Float32(Longitude)
	h.LocTimestamp, _ = fields.Timestamp(LocTimestamp)
	h.Altitude, _ = fields.Float32(Altitude)
	h.Accuracy, _ = fields.Float32(Accuracy)
	if v, err := fields.Uint8(FPS); err == nil {
		h.FPS = int(v)
	}
	h.Brand, _ = fields.String(Brand)
	h.Model, _ = fields.String(Model)
	h.Firmware, _ = fields.String(Firmware)
	if v, err := fields.Uint32(CameraSerial); err == nil {
		h.CameraSerial = int(v)
	}
	if v, err := fields.Uint8(BackgroundFrame); err == nil {
		h.BackgroundFrame = v > 0
	}
	return h
}

// checkTimestamp rejects times a reader could not decode: anything
// before the Unix epoch or after maxTimestampMicros.
func checkTimestamp(t time.Time) error {
	if t.Before(epoch) || t.After(maxTimestamp) {
		return fmt.Errorf("%w: %s", ErrTimestampRange, t.UTC().Format(time.RFC3339Nano))
	}
	return nil
}

// checkResolution rejects resolutions with no pixels or more pixels
// than a frame may hold.
func checkResolution(cols, rows int) error {
	if cols <= 0 || rows <= 0 || int64(cols)*int64(rows) > maxFramePixels {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, cols, rows)
	}
	return nil
}
