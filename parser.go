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
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// NewParser returns a new Parser instance, for parsing a gzip
// compressed CPTV stream using the provided Reader.
//
// Providing a buffered Reader is preferable.
func NewParser(r io.Reader) (*Parser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		if errors.Is(err, gzip.ErrHeader) {
			return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
		}
		return nil, truncated(err)
	}
	return &Parser{
		gz: gr,
		r:  nReader{gr},
	}, nil
}

// Parser is the low-level type for pulling apart the sections and
// fields of a CPTV file. See Reader for a high-level interface.
type Parser struct {
	gz           *gzip.Reader
	r            nReader
	version      byte
	maxFrameSize int
}

// Header checks the magic and version and reads the header section.
func (p *Parser) Header() (Fields, error) {
	if magicRead, err := p.r.ReadN(len(magic)); err != nil {
		return nil, err
	} else if string(magicRead) != magic {
		return nil, fmt.Errorf("%w: got %q", ErrBadMagic, magicRead)
	}

	version, err := p.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != Version1 && version != Version2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	p.version = version

	section, err := p.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if section != HeaderSection {
		return nil, fmt.Errorf("%w: got section %q", ErrNoHeaderSection, section)
	}
	return readFieldsN(&p.r)
}

// Version returns the format version read by Header.
func (p *Parser) Version() byte {
	return p.version
}

// SetMaxFrameSize limits the frame data size Frame will accept. Zero
// means no limit.
func (p *Parser) SetMaxFrameSize(n int) {
	p.maxFrameSize = n
}

// Frame reads the next frame section and its data. io.EOF is returned
// when the stream ends cleanly after the previous section.
func (p *Parser) Frame() (Fields, []byte, error) {
	section, err := p.r.ReadSectionType()
	if err != nil {
		return nil, nil, err
	}
	if section != FrameSection {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnexpectedSection, section)
	}
	fields, err := readFieldsN(&p.r)
	if err != nil {
		return nil, nil, err
	}
	frameSize, err := fields.Uint32(FrameSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMissingField, err)
	}
	if p.maxFrameSize > 0 && int64(frameSize) > int64(p.maxFrameSize) {
		return nil, nil, fmt.Errorf("%w: frame size %d exceeds %d", ErrFrameSize, frameSize, p.maxFrameSize)
	}
	frameData, err := p.r.ReadN(int(frameSize))
	if err != nil {
		return nil, nil, err
	}
	return fields, frameData, nil
}

// Close releases the gzip reader. The underlying Reader is not closed.
func (p *Parser) Close() error {
	return p.gz.Close()
}
