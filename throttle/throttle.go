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

package throttle

import (
	"log"
	"time"

	config "github.com/TheCacophonyProject/go-config"
	"github.com/juju/ratelimit"
)

// Listener is told when frames start being dropped.
type Listener interface {
	WhenThrottled()
}

type nullListener struct{}

func (nullListener) WhenThrottled() {}

// Throttler limits how much of a long running camera stream gets
// recorded. A token bucket tracks the number of frames available for
// recording. Once it empties, frames are dropped until enough tokens
// have returned for a recording of at least the minimum length.
type Throttler struct {
	bucket    *ratelimit.Bucket
	minFrames int64
	listener  Listener
	recording bool
}

func New(conf *config.ThermalThrottler, minSecs, fps int, listener Listener) *Throttler {
	return NewWithClock(conf, minSecs, fps, listener, new(realClock))
}

func NewWithClock(conf *config.ThermalThrottler, minSecs, fps int, listener Listener, clock ratelimit.Clock) *Throttler {
	bucketFrames := int64(conf.BucketSize.Seconds()) * int64(fps)
	minFrames := int64(minSecs * fps)
	if minFrames < 1 {
		minFrames = 1
	}
	refillRate := float64(minFrames) / conf.MinRefill.Seconds()

	if minFrames > bucketFrames {
		log.Println("minimum recording length is greater than throttle bucket - recording will not be possible!")
	}
	if listener == nil {
		listener = nullListener{}
	}

	return &Throttler{
		bucket:    ratelimit.NewBucketWithRateAndClock(refillRate, bucketFrames, clock),
		minFrames: minFrames,
		listener:  listener,
	}
}

// Allow reports whether the next frame should be recorded.
func (t *Throttler) Allow() bool {
	if !t.recording {
		if t.bucket.Available() < t.minFrames {
			return false
		}
		t.recording = true
	}
	if t.bucket.TakeAvailable(1) > 0 {
		return true
	}

	t.recording = false
	log.Print("recording throttled")
	t.listener.WhenThrottled()
	return false
}

// Throttled reports whether frames are currently being dropped.
func (t *Throttler) Throttled() bool {
	return !t.recording
}

// realClock implements ratelimit.Clock in terms of standard time functions.
type realClock struct{}

// Now implements Clock.Now by calling time.Now.
func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.Sleep by calling time.Sleep.
func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
