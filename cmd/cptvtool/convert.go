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
	"bufio"
	"io"
	"log"
	"os"
	"strings"

	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/TheCacophonyProject/go-cptv/thermalraw"
)

func runConvert(input, output string) error {
	if output == "" {
		output = outputName(input)
	}
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	tempName := output + ".temp"
	out, err := os.Create(tempName)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	count, err := convertRaw(bufio.NewReader(in), bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}
	if err := os.Rename(tempName, output); err != nil {
		return err
	}
	log.Printf("wrote %d frames to %s", count, output)
	return nil
}

func outputName(input string) string {
	return strings.TrimSuffix(input, "."+thermalraw.FileExt) + ".cptv"
}

// convertRaw compresses a thermalraw recording into CPTV, returning
// the number of frames written.
func convertRaw(in io.Reader, out io.Writer) (int, error) {
	r, err := thermalraw.NewReader(in)
	if err != nil {
		return 0, err
	}
	w := cptv.NewWriter(out, r)
	if err := w.WriteHeader(r.Header()); err != nil {
		return 0, err
	}

	count := 0
	frame := cptvframe.NewFrame(r)
	for {
		err := r.ReadFrame(frame)
		if err == io.EOF {
			break
		}
		if err != nil {
			w.Close()
			return count, err
		}
		if err := w.WriteFrame(frame); err != nil {
			return count, err
		}
		count++
	}
	return count, w.Close()
}
