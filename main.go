// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/beevik/gochip8/cpu"
	"github.com/beevik/gochip8/host"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/sirupsen/logrus"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

var (
	monitor        bool
	cyclesPerFrame int
	seed           int64
	clip           bool
	logLevel       string
	showVersion    bool
)

func init() {
	flag.BoolVar(&monitor, "d", false, "load the ROM and start the interactive monitor")
	flag.IntVar(&cyclesPerFrame, "cpf", 10, "instructions executed per 60Hz frame")
	flag.Int64Var(&seed, "seed", 0, "seed for the random number generator (0 uses the clock)")
	flag.BoolVar(&clip, "clip", false, "clip sprites at the display edges instead of wrapping")
	flag.StringVar(&logLevel, "log", "error", "log level (error, warn, info, debug, trace)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.CommandLine.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gochip8 [options] <rom>\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("gochip8 version: %s\n", buildinfo.Version(version, commit, date))
		return
	}

	if flag.NArg() != 1 {
		flag.CommandLine.Usage()
		os.Exit(1)
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		exitOnError(err)
	}

	var cpuOpts []cpu.Option
	if seed != 0 {
		cpuOpts = append(cpuOpts, cpu.WithRandom(cpu.NewRandom(seed)))
	}
	if clip {
		cpuOpts = append(cpuOpts, cpu.WithSpritePolicy(cpu.SpriteClip))
	}

	h := host.New(
		host.WithLogger(host.NewLogger(level)),
		host.WithCPUOptions(cpuOpts...),
		host.WithCyclesPerFrame(cyclesPerFrame),
	)
	if err := h.LoadROM(flag.Arg(0)); err != nil {
		exitOnError(err)
	}

	if monitor {
		// Break on Ctrl-C.
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go handleInterrupt(h, c)

		h.RunCommands(os.Stdin, os.Stdout, true)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = h.Play(ctx, os.Stdin, os.Stdout)
	stop()
	if err != nil {
		exitOnError(err)
	}
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
