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
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/TheCacophonyProject/go-cptv/cptvframe"
)

func runVerify(filenames []string) error {
	failed := 0
	for _, filename := range filenames {
		count, err := verifyFile(filename)
		if err != nil {
			log.Printf("%s: FAILED after %d frames: %v", filename, count, err)
			failed++
			continue
		}
		log.Printf("%s: ok (%d frames)", filename, count)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(filenames))
	}
	return nil
}

func verifyFile(filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return verifyRecording(f)
}

type frameSummary struct {
	digest uint64
	status cptvframe.Telemetry
}

// verifyRecording decodes every frame of a recording, encodes them
// into a new recording and decodes that again. The pixels and status
// of each frame must survive unchanged. The number of frames decoded
// from the original is returned.
func verifyRecording(in io.Reader) (int, error) {
	r, err := cptv.NewReader(in)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	reencoded := new(bytes.Buffer)
	w := cptv.NewWriter(reencoded, r)
	if err := w.WriteHeader(r.Header()); err != nil {
		return 0, err
	}

	var summaries []frameSummary
	frame := r.NewFrame()
	for {
		err := r.ReadFrame(frame)
		if err == io.EOF {
			break
		}
		if err != nil {
			return len(summaries), fmt.Errorf("frame %d: %w", len(summaries), err)
		}
		summaries = append(summaries, frameSummary{frameDigest(frame), frame.Status})
		if err := w.WriteFrame(frame); err != nil {
			return len(summaries), err
		}
	}
	if err := w.Close(); err != nil {
		return len(summaries), err
	}

	r2, err := cptv.NewReader(reencoded)
	if err != nil {
		return len(summaries), fmt.Errorf("re-encoded recording: %w", err)
	}
	defer r2.Close()
	for i, want := range summaries {
		if err := r2.ReadFrame(frame); err != nil {
			return len(summaries), fmt.Errorf("re-encoded frame %d: %w", i, err)
		}
		if got := frameDigest(frame); got != want.digest {
			return len(summaries), fmt.Errorf("frame %d: pixel digest %016x after re-encoding, expected %016x", i, got, want.digest)
		}
		if frame.Status != want.status {
			return len(summaries), fmt.Errorf("frame %d: status %+v after re-encoding, expected %+v", i, frame.Status, want.status)
		}
	}
	if err := r2.ReadFrame(frame); err != io.EOF {
		return len(summaries), fmt.Errorf("re-encoded recording has extra data: %v", err)
	}
	return len(summaries), nil
}
