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
)

// ErrFormat is the root of every error caused by malformed CPTV
// data. Use errors.Is(err, ErrFormat) to tell bad input apart from I/O
// or usage errors.
var ErrFormat = errors.New("cptv format error")

var (
	ErrBadMagic               = fmt.Errorf("%w: magic not found", ErrFormat)
	ErrUnsupportedVersion     = fmt.Errorf("%w: unsupported version", ErrFormat)
	ErrNoHeaderSection        = fmt.Errorf("%w: header not found", ErrFormat)
	ErrUnsupportedCompression = fmt.Errorf("%w: unsupported compression type", ErrFormat)
	ErrMissingField           = fmt.Errorf("%w: required field missing", ErrFormat)
	ErrInvalidResolution      = fmt.Errorf("%w: invalid resolution", ErrFormat)
	ErrUnexpectedSection      = fmt.Errorf("%w: unexpected section", ErrFormat)
	ErrFrameSize              = fmt.Errorf("%w: frame size does not match bit width and resolution", ErrFormat)
	ErrTruncated              = fmt.Errorf("%w: short read", ErrFormat)
	ErrInvalidBitWidth        = fmt.Errorf("%w: invalid bit width", ErrFormat)
)

var (
	ErrResolutionMismatch = errors.New("frame resolution does not match stream resolution")
	ErrHeaderWritten      = errors.New("header already written")
	ErrNoHeader           = errors.New("header not written yet")
	ErrClosed             = errors.New("writer is closed")
	ErrTimestampRange     = errors.New("timestamp outside the storable range")
	ErrFieldNotFound      = errors.New("not found")
	ErrFieldType          = errors.New("field has a different type")
)
