// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
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
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// bocctl is a small entry point for exercising a Runtime from the command
// line: it wires the region algebra and scheduler up to stdlib logging and
// runs one of a couple of built-in demonstration programs.
package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/boclang/boc/util/errwrap"
)

var (
	// program and version are set at compile time with -ldflags.
	program = "bocctl"
	version = "dev"
)

// Args is the top-level CLI parsing structure.
type Args struct {
	Demo    string `arg:"positional" help:"demo to run: swap, parallelism, isolation"`
	Workers int    `arg:"--workers" help:"worker pool size; 0 means hardware parallelism"`
	Verbose bool   `arg:"--verbose" help:"enable verbose logging"`
}

// Version implements the API go-arg's parser wants for --version.
func (Args) Version() string {
	return fmt.Sprintf("%s %s", program, version)
}

func main() {
	args := Args{Demo: "swap"}
	parser, err := arg.NewParser(arg.Config{Program: program}, &args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cli config error: %s\n", program, errwrap.String(err))
		os.Exit(1)
	}
	if err := parser.Parse(os.Args[1:]); err == arg.ErrHelp {
		parser.WriteHelp(os.Stdout)
		return
	} else if err == arg.ErrVersion {
		fmt.Println(args.Version())
		return
	} else if err != nil {
		parser.WriteHelp(os.Stderr)
		fmt.Fprintf(os.Stderr, "%s: %s\n", program, errwrap.String(err))
		os.Exit(1)
	}

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", program, errwrap.String(err))
		os.Exit(1)
	}
}
