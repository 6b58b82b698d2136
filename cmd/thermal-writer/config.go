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
	"time"

	goconfig "github.com/TheCacophonyProject/go-config"
	yaml "gopkg.in/yaml.v2"
)

const defaultOutputDir = "/var/spool/cptv"

type Config struct {
	DeviceID     int
	DeviceName   string
	FrameInput   string
	OutputDir    string
	MinDiskSpace uint64
	PreviewSecs  int
	MinSecs      int
	MaxSecs      int
	Throttler    goconfig.ThermalThrottler
	Latitude     float32
	Longitude    float32

	configRW *goconfig.Config
}

func ParseConfig(configFolder string) (*Config, error) {
	configRW, err := goconfig.New(configFolder)
	if err != nil {
		return nil, err
	}

	leptonConfig := goconfig.DefaultLepton()
	if err := configRW.Unmarshal(goconfig.LeptonKey, &leptonConfig); err != nil {
		return nil, err
	}

	var deviceConfig goconfig.Device
	if err := configRW.Unmarshal(goconfig.DeviceKey, &deviceConfig); err != nil {
		return nil, err
	}

	recorderConfig := goconfig.DefaultThermalRecorder()
	if err := configRW.Unmarshal(goconfig.ThermalRecorderKey, &recorderConfig); err != nil {
		return nil, err
	}

	locationConfig := goconfig.DefaultWindowLocation()
	if err := configRW.Unmarshal(goconfig.LocationKey, &locationConfig); err != nil {
		return nil, err
	}

	return &Config{
		DeviceID:     deviceConfig.ID,
		DeviceName:   deviceConfig.Name,
		FrameInput:   leptonConfig.FrameOutput,
		OutputDir:    defaultOutputDir,
		MinDiskSpace: 200,
		PreviewSecs:  recorderConfig.PreviewSecs,
		MinSecs:      recorderConfig.MinSecs,
		MaxSecs:      recorderConfig.MaxSecs,
		Throttler: goconfig.ThermalThrottler{
			BucketSize: 10 * time.Minute,
			MinRefill:  10 * time.Minute,
		},
		Latitude:     float32(locationConfig.Latitude),
		Longitude:    float32(locationConfig.Longitude),
		configRW:     configRW,
	}, nil
}

// motionYAML returns the motion detection settings for a camera model
// as the YAML stored in each recording's header.
func (conf *Config) motionYAML(cameraModel string) (string, error) {
	motionConfig := goconfig.DefaultThermalMotion(cameraModel)
	if conf.configRW != nil {
		if err := conf.configRW.Unmarshal(goconfig.ThermalMotionKey, &motionConfig); err != nil {
			return "", err
		}
	}
	out, err := yaml.Marshal(motionConfig)
	if err != nil {
		return "", fmt.Errorf("failed to convert motion config to YAML: %v", err)
	}
	return string(out), nil
}
