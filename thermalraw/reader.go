// Copyright 2018 The Cacophony Project. All rights reserved.
// Use of this source code is governed by the Apache License Version 2.0;
// see the LICENSE file for further details.

package thermalraw

import (
	"bufio"
	"fmt"
	"io"

	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/TheCacophonyProject/go-cptv/rawframe"
)

// NewReader reads and checks the header of a raw recording.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	var start [5]byte
	if _, err := io.ReadFull(br, start[:]); err != nil {
		return nil, truncated(err)
	}
	if string(start[:4]) != magic {
		return nil, fmt.Errorf("%w: got %q", cptv.ErrBadMagic, start[:4])
	}
	if start[4] != Version {
		return nil, fmt.Errorf("%w: %d", cptv.ErrUnsupportedVersion, start[4])
	}

	section, fields, err := cptv.ReadSection(br)
	if err != nil {
		return nil, truncated(err)
	}
	if section != cptv.HeaderSection {
		return nil, fmt.Errorf("%w: got section %q", cptv.ErrNoHeaderSection, section)
	}
	compression, err := fields.Uint8(cptv.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: compression: %v", cptv.ErrMissingField, err)
	}
	if compression != compressionNone {
		return nil, fmt.Errorf("%w: %d", cptv.ErrUnsupportedCompression, compression)
	}
	cols, err := fields.Uint32(cptv.XResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: x resolution: %v", cptv.ErrMissingField, err)
	}
	rows, err := fields.Uint32(cptv.YResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: y resolution: %v", cptv.ErrMissingField, err)
	}
	if cols == 0 || rows == 0 || cols > 1<<12 || rows > 1<<12 {
		return nil, fmt.Errorf("%w: %dx%d", cptv.ErrInvalidResolution, cols, rows)
	}
	res := cptvframe.Resolution{Cols: int(cols), Rows: int(rows)}

	header := cptv.HeaderFromFields(fields)
	format := rawframe.ForBrand(header.Brand, res, true)
	if frameSize, err := fields.Uint32(cptv.FrameSize); err == nil {
		format, err = rawframe.ForFrameSize(header.Brand, res, int(frameSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cptv.ErrFrameSize, err)
		}
	}

	return &Reader{
		r:      br,
		fields: fields,
		header: header,
		format: format,
	}, nil
}

// Reader reads frames from a raw recording.
type Reader struct {
	r      *bufio.Reader
	fields cptv.Fields
	header cptv.Header
	format rawframe.Format
}

// Header returns the decoded header attributes.
func (r *Reader) Header() cptv.Header {
	return r.header
}

// HeaderFields returns the raw header fields.
func (r *Reader) HeaderFields() cptv.Fields {
	return r.fields
}

// Format returns the layout of the recorded frames.
func (r *Reader) Format() rawframe.Format {
	return r.format
}

// ResX implements cptvframe.CameraResolution.
func (r *Reader) ResX() int {
	return r.format.Res.ResX()
}

// ResY implements cptvframe.CameraResolution.
func (r *Reader) ResY() int {
	return r.format.Res.ResY()
}

// ReadRawFrame returns the next raw frame. io.EOF is returned at the
// end of the recording.
func (r *Reader) ReadRawFrame() ([]byte, error) {
	section, fields, err := cptv.ReadSection(r.r)
	if err != nil {
		return nil, err
	}
	if section != cptv.FrameSection {
		return nil, fmt.Errorf("%w: %q", cptv.ErrUnexpectedSection, section)
	}
	frameSize, err := fields.Uint32(cptv.FrameSize)
	if err != nil {
		return nil, fmt.Errorf("%w: frame size: %v", cptv.ErrMissingField, err)
	}
	if int(frameSize) != r.format.Size() {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", cptv.ErrFrameSize, frameSize, r.format.Size())
	}
	raw := make([]byte, frameSize)
	if _, err := io.ReadFull(r.r, raw); err != nil {
		return nil, truncated(err)
	}
	return raw, nil
}

// ReadFrame decodes the next frame into out. io.EOF is returned at the
// end of the recording.
func (r *Reader) ReadFrame(out *cptvframe.Frame) error {
	raw, err := r.ReadRawFrame()
	if err != nil {
		return err
	}
	return r.format.Decode(raw, out)
}

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return cptv.ErrTruncated
	}
	return err
}
