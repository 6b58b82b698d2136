// go-cptv - read and write Cacophony Project thermal video files
// Copyright (C) 2019, The Cacophony Project
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

package loglimiter

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// New returns a new LogLimiter with the configured minimum log
// interval, writing to the standard logger.
func New(interval time.Duration) *LogLimiter {
	return NewWithLogger(interval, nil)
}

// NewWithLogger returns a LogLimiter writing to logger. A nil logger
// means the standard logger.
func NewWithLogger(interval time.Duration, logger *log.Logger) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		logger:   logger,
		nowFunc:  time.Now,
		seen:     make(map[string]time.Time),
	}
}

// LogLimiter will suppress log messages if the same log message has
// been logged within some time interval. Each distinct message is
// tracked separately so interleaved warnings are each limited.
type LogLimiter struct {
	interval time.Duration
	logger   *log.Logger
	nowFunc  func() time.Time

	mu         sync.Mutex
	seen       map[string]time.Time
	suppressed int
}

func (limiter *LogLimiter) Printf(format string, v ...interface{}) {
	limiter.Print(fmt.Sprintf(format, v...))
}

func (limiter *LogLimiter) Print(s string) {
	now := limiter.nowFunc()

	limiter.mu.Lock()
	if last, ok := limiter.seen[s]; ok && now.Sub(last) < limiter.interval {
		limiter.suppressed++
		limiter.mu.Unlock()
		return
	}
	limiter.seen[s] = now
	limiter.expire(now)
	limiter.mu.Unlock()

	if limiter.logger != nil {
		limiter.logger.Print(s)
	} else {
		log.Print(s)
	}
}

// Suppressed returns how many messages have been dropped so far.
func (limiter *LogLimiter) Suppressed() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return limiter.suppressed
}

// expire forgets messages whose interval has passed. Must be called
// with mu held.
func (limiter *LogLimiter) expire(now time.Time) {
	for s, last := range limiter.seen {
		if now.Sub(last) >= limiter.interval {
			delete(limiter.seen, s)
		}
	}
}
