// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/GermanBionicSystems/thermowire/tempbar"
)

type reader interface {
	ReadCelsius() (float32, error)
}

// loop reads the sensor until its context is canceled.
type loop struct {
	dev      reader
	interval time.Duration
	log      zerolog.Logger
	bar      *tempbar.Dev // optional
}

// run starts a fresh cycle interval after the previous one returned. A failed
// cycle is logged and counted; it does not end the loop.
func (l *loop) run(ctx context.Context) error {
	for {
		l.once()
		select {
		case <-ctx.Done():
			return nil
		case <-after(l.interval):
		}
	}
}

func (l *loop) once() {
	c, err := l.dev.ReadCelsius()
	if err != nil {
		readErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		l.log.Warn().Err(err).Msg("Reading cycle failed")
		return
	}
	readsTotal.Inc()
	temperatureCelsius.Set(float64(c))
	l.log.Info().Float32("celsius", c).Msg("Temperature")
	if l.bar != nil {
		if err := l.bar.Show(c); err != nil {
			l.log.Debug().Err(err).Msg("Failed to show bar")
		}
	}
}

var after = time.After
