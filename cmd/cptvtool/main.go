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
	"errors"
	"log"
	"os"

	arg "github.com/alexflint/go-arg"
)

var version = "<not set>"

type InfoCmd struct {
	Filename string `arg:"positional,required" help:"CPTV file"`
}

type FramesCmd struct {
	Filename string `arg:"positional,required" help:"CPTV file"`
}

type VerifyCmd struct {
	Filenames []string `arg:"positional,required" help:"CPTV files"`
}

type ConvertCmd struct {
	Input  string `arg:"positional,required" help:"thermalraw file"`
	Output string `arg:"positional" help:"CPTV file to create (default: input name with a .cptv extension)"`
}

type Args struct {
	Info       *InfoCmd    `arg:"subcommand:info" help:"show the header and frame count of a CPTV file"`
	Frames     *FramesCmd  `arg:"subcommand:frames" help:"list the status and pixel digest of every frame"`
	Verify     *VerifyCmd  `arg:"subcommand:verify" help:"check every frame decodes and survives re-encoding"`
	Convert    *ConvertCmd `arg:"subcommand:convert" help:"convert a thermalraw recording to CPTV"`
	Timestamps bool        `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
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

	switch {
	case args.Info != nil:
		return runInfo(args.Info.Filename, os.Stdout)
	case args.Frames != nil:
		return runFrames(args.Frames.Filename, os.Stdout)
	case args.Verify != nil:
		return runVerify(args.Verify.Filenames)
	case args.Convert != nil:
		return runConvert(args.Convert.Input, args.Convert.Output)
	}
	return errors.New("no command given (see --help)")
}
