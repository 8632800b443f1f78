// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/onewire"
)

// ErrIdleLow is returned by New when the line does not read high while idle.
//
// It means the drive style does not match the sensor wiring or the pull-up is
// missing. No transaction can succeed on such a bus.
var ErrIdleLow = errors.New("bitbang: line is low while idle (check drive style and pull-up)")

// ErrSearchUnsupported is returned by Search.
var ErrSearchUnsupported = errors.New("bitbang: search is not supported on a single-drop bus")

// noDevicesError implements onewire.NoDevicesError and onewire.BusError.
type noDevicesError string

func (e noDevicesError) Error() string   { return string(e) }
func (e noDevicesError) NoDevices() bool { return true }
func (e noDevicesError) BusError() bool  { return true }

// shortedBusError implements onewire.ShortedBusError and onewire.BusError.
type shortedBusError string

func (e shortedBusError) Error() string   { return string(e) }
func (e shortedBusError) IsShorted() bool { return true }
func (e shortedBusError) BusError() bool  { return true }

const (
	errNoPresence = noDevicesError("bitbang: no presence pulse after reset")
	errShorted    = shortedBusError("bitbang: line did not return high before reset")
)

var (
	_ onewire.NoDevicesError  = errNoPresence
	_ onewire.BusError        = errNoPresence
	_ onewire.ShortedBusError = errShorted
	_ onewire.BusError        = errShorted
)
