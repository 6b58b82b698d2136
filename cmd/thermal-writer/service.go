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
	"errors"
	"sync"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"
)

const (
	dbusName = "org.cacophony.thermalwriter"
	dbusPath = "/org/cacophony/thermalwriter"
)

var status = new(recordingStatus)

// recordingStatus tracks the recording in progress.
type recordingStatus struct {
	mu     sync.Mutex
	name   string
	frames int
}

func (s *recordingStatus) update(name string, frames int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.frames = frames
}

func (s *recordingStatus) get() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, s.frames
}

type service struct {
	status *recordingStatus
}

func startService() error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{status: status}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// Recording returns the name of the recording being written and how
// many frames it holds. The name is empty when nothing is recording.
func (s *service) Recording() (string, int32, *dbus.Error) {
	name, frames := s.status.get()
	return name, int32(frames), nil
}
