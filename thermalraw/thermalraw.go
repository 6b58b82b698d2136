// Copyright 2018 The Cacophony Project. All rights reserved.
// Use of this source code is governed by the Apache License Version 2.0;
// see the LICENSE file for further details.

// Package thermalraw reads and writes uncompressed thermal
// recordings. They use the same section and field framing as CPTV
// but store raw camera frames without compression, so recording costs
// almost no CPU. cptvtool converts them to CPTV afterwards.
package thermalraw

import (
	"time"
)

const (
	magic = "CPTR"

	// Version is the only version of the format.
	Version byte = 0x02

	compressionNone = 0

	// FileExt is the extension used for raw recordings.
	FileExt = "thermalraw"
)

// NewFileName returns a file name for a raw recording started at t.
func NewFileName(t time.Time) string {
	return t.Format("2006_01_02T15_04_05") + "." + FileExt
}
