// Copyright 2018 The Cacophony Project. All rights reserved.
// Use of this source code is governed by the Apache License Version 2.0;
// see the LICENSE file for further details.

package rawframe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/TheCacophonyProject/lepton3"
)

// These are the valid values for the Telemetry.FFCState field.
const (
	FFCNever    = "never"
	FFCImminent = "imminent"
	FFCRunning  = "running"
	FFCComplete = "complete"
)

// telemetryWords is the layout of the Lepton 3 telemetry row. Words
// are big endian, multi-word values have their least significant word
// first.
type telemetryWords struct {
	TelemetryRevision  uint16    // 0
	TimeOn             uint32    // 1  milliseconds
	StatusBits         uint32    // 3  bit field
	Reserved5          [8]uint16 // 5
	SoftwareRevision   uint64    // 13
	Reserved17         [3]uint16 // 17
	FrameCounter       uint32    // 20
	FrameMean          uint16    // 22
	FPATempCounts      uint16    // 23
	FPATemp            uint16    // 24 centi-Kelvin
	Reserved25         [4]uint16 // 25
	FPATempLastFFC     uint16    // 29 centi-Kelvin
	TimeCounterLastFFC uint32    // 30 milliseconds
}

const (
	statusFFCStateMask  uint32 = 3 << 4
	statusFFCStateShift uint32 = 4
	zeroCelsiusCentiK          = 27315
)

// ParseTelemetry converts raw Lepton 3 telemetry into t.
func ParseTelemetry(raw []byte, t *cptvframe.Telemetry) error {
	if len(raw) < TelemetrySize {
		return fmt.Errorf("%w: telemetry is %d bytes, expected %d", ErrFrameSize, len(raw), TelemetrySize)
	}
	var tw telemetryWords
	if err := binary.Read(bytes.NewReader(raw[:TelemetrySize]), lepton3.Big16, &tw); err != nil {
		return err
	}
	t.TimeOn = time.Duration(tw.TimeOn) * time.Millisecond
	t.FFCState = statusToFFCState(tw.StatusBits)
	t.FrameCount = int(tw.FrameCounter)
	t.FrameMean = tw.FrameMean
	t.TempC = centiKToC(tw.FPATemp)
	t.LastFFCTempC = centiKToC(tw.FPATempLastFFC)
	t.LastFFCTime = time.Duration(tw.TimeCounterLastFFC) * time.Millisecond
	return nil
}

// EncodeTelemetry produces the raw Lepton 3 telemetry for t.
func EncodeTelemetry(t *cptvframe.Telemetry) []byte {
	tw := telemetryWords{
		TimeOn:             durationToMS(t.TimeOn),
		StatusBits:         ffcStateToStatus(t.FFCState),
		FrameCounter:       uint32(t.FrameCount),
		FrameMean:          t.FrameMean,
		FPATemp:            cToCentiK(t.TempC),
		FPATempLastFFC:     cToCentiK(t.LastFFCTempC),
		TimeCounterLastFFC: durationToMS(t.LastFFCTime),
	}
	buf := bytes.NewBuffer(make([]byte, 0, TelemetrySize))
	binary.Write(buf, lepton3.Big16, &tw)
	return buf.Bytes()
}

func statusToFFCState(status uint32) string {
	switch status & statusFFCStateMask >> statusFFCStateShift {
	case 0:
		return FFCNever
	case 1:
		return FFCImminent
	case 2:
		return FFCRunning
	default:
		return FFCComplete
	}
}

func ffcStateToStatus(state string) uint32 {
	var bits uint32
	switch state {
	case FFCImminent:
		bits = 1
	case FFCRunning:
		bits = 2
	case FFCComplete:
		bits = 3
	}
	return bits << statusFFCStateShift
}

func centiKToC(c uint16) float64 {
	return float64(int(c)-zeroCelsiusCentiK) / 100
}

func cToCentiK(c float64) uint16 {
	k := math.Round(c*100) + zeroCelsiusCentiK
	if k < 0 {
		return 0
	}
	if k > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(k)
}

func durationToMS(d time.Duration) uint32 {
	ms := d / time.Millisecond
	if ms < 0 {
		return 0
	}
	if ms > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ms)
}
