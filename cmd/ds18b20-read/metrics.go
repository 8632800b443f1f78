// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/onewire"
)

const (
	namespace = "thermowire"
	subSystem = "ds18b20"
)

var (
	// Last temperature read
	temperatureCelsius = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subSystem,
		Name:      "temperature_celsius",
		Help:      "Last temperature read in degrees Celsius",
	})
	// Total number of successful reading cycles
	readsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subSystem,
		Name:      "reads_total",
		Help:      "Total number of successful reading cycles",
	})
	// Total number of failed reading cycles per error kind
	readErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subSystem,
		Name:      "read_errors_total",
		Help:      "Total number of failed reading cycles per kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(temperatureCelsius, readsTotal, readErrorsTotal)
}

// errorKind classifies a failed cycle for the read_errors_total label.
func errorKind(err error) string {
	switch e := errors.Cause(err).(type) {
	case onewire.NoDevicesError:
		if e.NoDevices() {
			return "no_devices"
		}
	case onewire.ShortedBusError:
		if e.IsShorted() {
			return "shorted"
		}
	}
	if e, ok := errors.Cause(err).(onewire.BusError); ok && e.BusError() {
		return "bus"
	}
	return "line"
}

func newMetricsRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	return e
}

// runMetricsServer serves /metrics on addr until ctx is canceled.
func runMetricsServer(ctx context.Context, addr string, log zerolog.Logger) error {
	e := newMetricsRouter()
	errs := make(chan error, 1)
	go func() {
		log.Debug().Str("address", addr).Msg("Serving metrics")
		errs <- e.Start(addr)
	}()
	select {
	case err := <-errs:
		return errors.Wrapf(err, "serving metrics on %s", addr)
	case <-ctx.Done():
	}
	log.Info().Msg("Closing metrics server")
	sctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return maskAny(err)
	}
	return nil
}
