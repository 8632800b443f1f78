// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ds18b20-read periodically reads a DS18B20 wired alone to a GPIO line and
// logs the temperature.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/thermowire/bitbang"
	"github.com/GermanBionicSystems/thermowire/ds18b20"
	"github.com/GermanBionicSystems/thermowire/inoutpin"
	"github.com/GermanBionicSystems/thermowire/tempbar"
)

var maskAny = errors.WithStack

// defaultDrive suits a sensor with its own VDD supply.
const defaultDrive = "push-pull"

func main() {
	var levelFlag string
	var pinFlag string
	var driveFlag string
	var interval time.Duration
	var metricsAddr string
	var showBar bool
	var barMin, barMax float32

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&pinFlag, "pin", "p", "GPIO4", "GPIO line the sensor data pin is wired to")
	pflag.StringVarP(&driveFlag, "drive", "d", defaultDrive, "Line drive style: push-pull for an externally powered sensor, open-drain for parasite power")
	pflag.DurationVarP(&interval, "interval", "i", 500*time.Millisecond, "Pause between two readings")
	pflag.StringVar(&metricsAddr, "metrics-addr", "", "Address to serve prometheus metrics on (disabled when empty)")
	pflag.BoolVar(&showBar, "bar", false, "Show the temperature as a colored bar on stdout")
	pflag.Float32Var(&barMin, "bar-min", 0, "Temperature in °C at the left of the bar")
	pflag.Float32Var(&barMax, "bar-max", 40, "Temperature in °C at the right of the bar")
	pflag.Parse()

	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	style, err := inoutpin.ParseDriveStyle(driveFlag)
	if err != nil {
		Exitf("%v\n", err)
	}
	if interval <= 0 {
		Exitf("Interval must be positive, got %s\n", interval)
	}

	if _, err := host.Init(); err != nil {
		Exitf("Failed to initialize host drivers: %v\n", err)
	}
	pin := gpioreg.ByName(pinFlag)
	if pin == nil {
		Exitf("Unknown GPIO line '%s'\n", pinFlag)
	}
	line, err := inoutpin.New(pin, style)
	if err != nil {
		Exitf("Failed to configure %s: %v\n", pinFlag, err)
	}
	bus, err := bitbang.New(line, bitbang.HostDelay{})
	if errors.Cause(err) == bitbang.ErrIdleLow {
		Exitf("%s reads low while idle: check the %s wiring and the pull-up resistor\n", line, style)
	} else if err != nil {
		Exitf("Failed to initialize the 1-Wire bus: %v\n", err)
	}
	dev := ds18b20.New(bus, bitbang.HostDelay{}, &ds18b20.Opts{Logger: &logger})

	l := &loop{dev: dev, interval: interval, log: logger}
	if showBar {
		l.bar = tempbar.New(&tempbar.Opts{Min: barMin, Max: barMax})
	}

	// Prepare to shutdown in a controlled manner
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	logger.Info().
		Str("dev", dev.String()).
		Dur("interval", interval).
		Msg("Starting")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.run(ctx) })
	if metricsAddr != "" {
		g.Go(func() error { return runMetricsServer(ctx, metricsAddr, logger) })
	}
	err = g.Wait()
	halt(logger, dev, l.bar, bus, line)
	if err != nil {
		Exitf("Run failed: %+v\n", err)
	}
}

type halter interface {
	Halt() error
}

// halt releases the resources in order. A nil tempbar is skipped.
func halt(log zerolog.Logger, dev *ds18b20.Dev, bar *tempbar.Dev, bus *bitbang.Bus, line *inoutpin.Pin) {
	hs := []halter{dev}
	if bar != nil {
		hs = append(hs, bar)
	}
	hs = append(hs, bus, line)
	for _, h := range hs {
		if err := h.Halt(); err != nil {
			log.Warn().Err(err).Msgf("Failed to halt %s", h)
		}
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
