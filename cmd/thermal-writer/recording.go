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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/TheCacophonyProject/go-cptv/rawframe"
	"github.com/TheCacophonyProject/go-cptv/thermalraw"
)

const tempExt = "temp"

// recording receives raw camera frames for a single output file.
type recording interface {
	WriteFrame(raw []byte) error
	Close() error
	Name() string
}

func newRecording(outputDir string, raw bool, format rawframe.Format, header cptv.Header) (recording, error) {
	if raw {
		return newRawRecording(outputDir, format, header)
	}
	return newCPTVRecording(outputDir, format, header)
}

// cptvRecording decodes each raw frame and compresses it into a CPTV
// file.
type cptvRecording struct {
	writer *cptv.FileWriter
	format rawframe.Format
	frame  *cptvframe.Frame
}

func newCPTVRecording(outputDir string, format rawframe.Format, header cptv.Header) (*cptvRecording, error) {
	filename := filepath.Join(outputDir, newRecordingTempName("cptv"))
	writer, err := cptv.NewFileWriter(filename, format.Res)
	if err != nil {
		return nil, err
	}
	if err := writer.WriteHeader(header); err != nil {
		writer.Close()
		os.Remove(filename)
		return nil, err
	}
	return &cptvRecording{
		writer: writer,
		format: format,
		frame:  cptvframe.NewFrame(format.Res),
	}, nil
}

func (cr *cptvRecording) WriteFrame(raw []byte) error {
	if err := cr.format.Decode(raw, cr.frame); err != nil {
		return err
	}
	return cr.writer.WriteFrame(cr.frame)
}

func (cr *cptvRecording) Close() error {
	return cr.writer.Close()
}

func (cr *cptvRecording) Name() string {
	return cr.writer.Name()
}

// rawRecording stores frames exactly as the camera sent them.
type rawRecording struct {
	file   *bufferedFile
	writer *thermalraw.Writer
}

func newRawRecording(outputDir string, format rawframe.Format, header cptv.Header) (*rawRecording, error) {
	filename := filepath.Join(outputDir, newRecordingTempName(thermalraw.FileExt))
	file, err := newBufferedFile(filename)
	if err != nil {
		return nil, err
	}
	writer := thermalraw.NewWriter(file, format)
	if err := writer.WriteHeader(header); err != nil {
		file.Close()
		os.Remove(filename)
		return nil, err
	}
	return &rawRecording{file: file, writer: writer}, nil
}

func (rr *rawRecording) WriteFrame(raw []byte) error {
	return rr.writer.WriteFrame(raw)
}

func (rr *rawRecording) Close() error {
	return rr.file.Close()
}

func (rr *rawRecording) Name() string {
	return rr.file.Name()
}

func newRecordingTempName(ext string) string {
	return time.Now().Format("20060102.150405.000." + ext + "." + tempExt)
}

func renameTempRecording(tempName string) (string, error) {
	finalName := recordingFinalName(tempName)
	err := os.Rename(tempName, finalName)
	if err != nil {
		return "", err
	}
	return finalName, nil
}

var reTempName = regexp.MustCompile(`(.+)\.temp$`)

func recordingFinalName(filename string) string {
	return reTempName.ReplaceAllString(filename, `$1`)
}

// deleteTempFiles removes recordings left behind by an unclean
// shutdown.
func deleteTempFiles(directory string) error {
	matches, _ := filepath.Glob(filepath.Join(directory, "*."+tempExt))
	for _, filename := range matches {
		if err := os.Remove(filename); err != nil {
			return err
		}
	}
	return nil
}

func checkDiskSpace(mb uint64, dir string) (bool, error) {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(dir, &fs); err != nil {
		return false, err
	}
	return fs.Bavail*uint64(fs.Bsize)/1024/1024 >= mb, nil
}

func ensureDiskSpace(mb uint64, dir string) error {
	enoughSpace, err := checkDiskSpace(mb, dir)
	if err != nil {
		return fmt.Errorf("problem with checking disk space: %v", err)
	}
	if !enoughSpace {
		return fmt.Errorf("less than %dMB free in %s", mb, dir)
	}
	return nil
}
