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
	"bufio"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"time"

	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/TheCacophonyProject/go-cptv/headers"
	"github.com/TheCacophonyProject/go-cptv/loglimiter"
	"github.com/TheCacophonyProject/go-cptv/rawframe"
	"github.com/TheCacophonyProject/go-cptv/throttle"
	config "github.com/TheCacophonyProject/go-config"
	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
)

const (
	inFlight           = 256
	secsPerSdNotify    = 5
	frameLogFirstSecs  = 15
	frameLogSecs       = 60 * 5
	frameLogFirstLimit = 60
)

var (
	version = "<not set>"

	errWriterFailed = errors.New("recording writer failed")
)

type Args struct {
	ConfigDir  string `arg:"-c,--config" help:"path to configuration directory"`
	OutputDir  string `arg:"-o,--output-dir" help:"directory to write recordings to"`
	Raw        bool   `arg:"--raw" help:"store uncompressed thermalraw recordings instead of CPTV"`
	Throttle   bool   `arg:"--throttle" help:"limit how much of the camera stream is recorded"`
	Timestamps bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigDir = config.DefaultConfigDir
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	conf, err := ParseConfig(args.ConfigDir)
	if err != nil {
		return err
	}
	if args.OutputDir != "" {
		conf.OutputDir = args.OutputDir
	}
	conf.Throttler.Activate = args.Throttle

	logConfig(conf, args.Raw)

	log.Print("deleting temp files")
	if err := deleteTempFiles(conf.OutputDir); err != nil {
		return err
	}

	if err := startService(); err != nil {
		log.Printf("failed to start dbus service: %v", err)
	}

	daemon.SdNotify(false, "READY=1")

	for {
		// Set up listener for frames sent by the camera service.
		os.Remove(conf.FrameInput)
		listener, err := net.Listen("unix", conf.FrameInput)
		if err != nil {
			return err
		}
		log.Print("waiting for camera connection")

		conn, err := listener.Accept()
		if err != nil {
			log.Printf("socket accept failed: %v", err)
			listener.Close()
			continue
		}

		// Prevent concurrent connections.
		listener.Close()

		_, err = handleConn(conn, conf, args.Raw)
		conn.Close()
		log.Printf("camera connection ended with: %v", err)
	}
}

// handleConn reads the camera description and raw frames from conn
// until it closes, writing them to recordings in the output
// directory. The names of the completed recordings are returned.
func handleConn(conn io.Reader, conf *Config, raw bool) ([]string, error) {
	reader := bufio.NewReader(conn)
	info, err := headers.ReadHeaderInfo(reader)
	if err != nil {
		return nil, err
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	format, err := rawframe.ForFrameSize(info.Brand(), info, info.FrameSize())
	if err != nil {
		return nil, err
	}

	log.Printf("connection from %s %s (%dx%d@%dfps)", info.Brand(), info.Model(), info.ResX(), info.ResY(), info.FPS())

	motionYAML, err := conf.motionYAML(info.Model())
	if err != nil {
		return nil, err
	}
	header := cptv.Header{
		DeviceName:   conf.DeviceName,
		DeviceID:     conf.DeviceID,
		PreviewSecs:  conf.PreviewSecs,
		MotionConfig: motionYAML,
		Latitude:     conf.Latitude,
		Longitude:    conf.Longitude,
		FPS:          info.FPS(),
		Brand:        info.Brand(),
		Model:        info.Model(),
		Firmware:     info.Firmware(),
		CameraSerial: info.CameraSerial(),
	}

	writeFrames := make(chan []byte, inFlight)
	spentFrames := make(chan []byte, inFlight)
	for i := 0; i < inFlight; i++ {
		spentFrames <- make([]byte, format.Size())
	}
	failed := make(chan struct{})

	fw := &frameWriter{
		newRecording: func() (recording, error) {
			if err := ensureDiskSpace(conf.MinDiskSpace, conf.OutputDir); err != nil {
				return nil, err
			}
			return newRecording(conf.OutputDir, raw, format, header)
		},
		maxFrames: conf.MaxSecs * info.FPS(),
	}
	if conf.Throttler.Activate {
		fw.throttler = throttle.New(&conf.Throttler, conf.MinSecs, info.FPS(), throttle.EventListener{})
	}
	done := make(chan error, 1)
	go func() {
		done <- fw.run(writeFrames, spentFrames, failed)
	}()

	log.Print("reading frames")
	readErr := readFrames(reader, info.FPS(), writeFrames, spentFrames, failed)
	close(writeFrames)
	if err := <-done; err != nil {
		return fw.finished, err
	}

	switch readErr {
	case io.EOF:
		return fw.finished, nil
	case io.ErrUnexpectedEOF:
		log.Print("connection closed part way through a frame, partial frame dropped")
		return fw.finished, nil
	}
	return fw.finished, readErr
}

// readFrames copies frames from the connection to the writer until
// the connection ends or the writer fails.
func readFrames(reader io.Reader, fps int, writeFrames chan<- []byte, spentFrames <-chan []byte, failed <-chan struct{}) error {
	backlog := loglimiter.New(time.Minute)
	framesPerSdNotify := secsPerSdNotify * fps
	totalFrames := 0
	count := 0
	t0 := time.Now()
	for {
		var frame []byte
		select {
		case frame = <-spentFrames:
		case <-failed:
			return errWriterFailed
		}
		if _, err := io.ReadFull(reader, frame); err != nil {
			return err
		}
		totalFrames++

		count++
		if count == 100 {
			t1 := time.Now()
			log.Printf("%.1f Hz", float64(count)/t1.Sub(t0).Seconds())
			t0 = t1
			count = 0
		}

		if totalFrames%(frameLogFirstSecs*fps) == 0 && totalFrames <= frameLogFirstLimit*fps ||
			totalFrames%(frameLogSecs*fps) == 0 {
			log.Printf("%d frames for this connection", totalFrames)
		}
		if totalFrames%framesPerSdNotify == 0 {
			daemon.SdNotify(false, "WATCHDOG=1")
		}

		select {
		case writeFrames <- frame:
		case <-failed:
			return errWriterFailed
		}
		if chLen := len(writeFrames); chLen > inFlight/2 {
			backlog.Printf("write channel backlog: %d frames", chLen)
		}
	}
}

// frameWriter writes frames to a sequence of recordings, starting a
// new one after maxFrames frames when maxFrames is positive. Frames
// refused by the throttler end the current recording and are dropped.
type frameWriter struct {
	newRecording func() (recording, error)
	maxFrames    int
	throttler    *throttle.Throttler

	current  recording
	frames   int
	finished []string
}

func (fw *frameWriter) run(inFrames <-chan []byte, spentFrames chan<- []byte, failed chan<- struct{}) error {
	for frame := range inFrames {
		if err := fw.write(frame); err != nil {
			close(failed)
			fw.abort()
			return err
		}
		spentFrames <- frame
	}
	return fw.finish()
}

func (fw *frameWriter) write(frame []byte) error {
	if fw.throttler != nil && !fw.throttler.Allow() {
		return fw.finish()
	}
	if fw.current == nil {
		rec, err := fw.newRecording()
		if err != nil {
			return err
		}
		log.Printf("recording started: %s", rec.Name())
		fw.current = rec
		fw.frames = 0
	}
	if err := fw.current.WriteFrame(frame); err != nil {
		return err
	}
	fw.frames++
	status.update(fw.current.Name(), fw.frames)
	if fw.maxFrames > 0 && fw.frames >= fw.maxFrames {
		return fw.finish()
	}
	return nil
}

func (fw *frameWriter) finish() error {
	if fw.current == nil {
		return nil
	}
	rec := fw.current
	fw.current = nil
	status.update("", 0)
	if err := rec.Close(); err != nil {
		os.Remove(rec.Name())
		return err
	}
	finalName, err := renameTempRecording(rec.Name())
	if err != nil {
		return err
	}
	log.Printf("recording stopped: %s (%d frames)", finalName, fw.frames)
	fw.finished = append(fw.finished, finalName)
	return nil
}

func (fw *frameWriter) abort() {
	if fw.current != nil {
		fw.current.Close()
		os.Remove(fw.current.Name())
		fw.current = nil
		status.update("", 0)
	}
}

func logConfig(conf *Config, raw bool) {
	log.Printf("device name: %s", conf.DeviceName)
	log.Printf("frame input: %s", conf.FrameInput)
	log.Printf("output dir: %s", conf.OutputDir)
	log.Printf("max recording length: %ds", conf.MaxSecs)
	if conf.Throttler.Activate {
		log.Printf("throttling after %s of recording, min refill %s", conf.Throttler.BucketSize, conf.Throttler.MinRefill)
	}
	if raw {
		log.Print("writing uncompressed thermalraw recordings")
	}
}
