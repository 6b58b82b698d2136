// Copyright 2018 The Cacophony Project. All rights reserved.
// Use of this source code is governed by the Apache License Version 2.0;
// see the LICENSE file for further details.

package thermalraw

import (
	"errors"
	"fmt"
	"io"
	"time"

	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/TheCacophonyProject/go-cptv/rawframe"
)

var errHeaderWritten = errors.New("header already written")

// NewWriter returns a Writer which writes a raw recording of frames
// in the given format to w.
func NewWriter(w io.Writer, format rawframe.Format) *Writer {
	return &Writer{
		w:      w,
		format: format,
	}
}

// Writer handles the construction of raw recording sections and
// fields.
type Writer struct {
	w             io.Writer
	format        rawframe.Format
	headerWritten bool
}

// WriteHeader writes the magic, version and header section. The
// camera details and resolution come from the Writer's format.
func (w *Writer) WriteHeader(h cptv.Header) error {
	if w.headerWritten {
		return errHeaderWritten
	}
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now()
	}

	fields := cptv.NewFieldWriter()
	fields.Timestamp(cptv.Timestamp, h.Timestamp)
	if err := fields.String(cptv.Model, h.Model); err != nil {
		return err
	}
	if err := fields.String(cptv.Brand, h.Brand); err != nil {
		return err
	}
	fields.Uint8(cptv.FPS, uint8(h.FPS))
	fields.Uint32(cptv.XResolution, uint32(w.format.Res.ResX()))
	fields.Uint32(cptv.YResolution, uint32(w.format.Res.ResY()))
	fields.Uint32(cptv.FrameSize, uint32(w.format.Size()))
	fields.Uint8(cptv.Compression, compressionNone)
	if err := fields.String(cptv.DeviceName, h.DeviceName); err != nil {
		return err
	}
	fields.Uint32(cptv.DeviceID, uint32(h.DeviceID))
	if h.PreviewSecs > 0 {
		fields.Uint8(cptv.PreviewSecs, uint8(h.PreviewSecs))
	}
	if h.MotionConfig != "" {
		if err := fields.String(cptv.MotionConfig, h.MotionConfig); err != nil {
			return err
		}
	}
	if h.Latitude != 0 || h.Longitude != 0 {
		fields.Float32(cptv.Latitude, h.Latitude)
		fields.Float32(cptv.Longitude, h.Longitude)
	}

	if _, err := w.w.Write(append([]byte(magic), Version)); err != nil {
		return err
	}
	if err := cptv.WriteSection(w.w, cptv.HeaderSection, fields); err != nil {
		return err
	}
	w.headerWritten = true
	return nil
}

// WriteFrame writes a frame section holding raw exactly as the camera
// sent it.
func (w *Writer) WriteFrame(raw []byte) error {
	if !w.headerWritten {
		return cptv.ErrNoHeader
	}
	if len(raw) != w.format.Size() {
		return fmt.Errorf("%w: got %d bytes, expected %d", rawframe.ErrFrameSize, len(raw), w.format.Size())
	}
	fields := cptv.NewFieldWriter()
	fields.Uint32(cptv.FrameSize, uint32(len(raw)))
	if err := cptv.WriteSection(w.w, cptv.FrameSection, fields); err != nil {
		return err
	}
	_, err := w.w.Write(raw)
	return err
}
