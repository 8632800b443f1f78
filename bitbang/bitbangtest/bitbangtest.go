// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitbangtest simulates a DS18B20 sitting on a GPIO line, with a
// virtual clock, to test 1-Wire bus masters without hardware.
//
// Device implements gpio.PinIO for the master side of the line and
// bitbang.Delayer for the clock. Delays advance the virtual time instead of
// sleeping, so the device sees exactly the pulse widths the master intended.
package bitbangtest

import (
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/onewire"
)

// Device thresholds.
const (
	ResetMin      = 480 * time.Microsecond // minimum low time read as a reset
	SampleAt      = 15 * time.Microsecond  // a write slot shorter than this is a 1
	PresenceDelay = 15 * time.Microsecond
	PresenceWidth = 120 * time.Microsecond
	ZeroHold      = 30 * time.Microsecond // how long a 0 read slot is held low
)

type state int

const (
	stIdle state = iota
	stROM
	stMatch
	stFunction
	stTransmit
)

// Device is a simulated DS18B20 on a single line.
//
// Set the exported fields before use. Device is not safe for concurrent use.
type Device struct {
	gpiotest.Pin

	// Scratchpad is sent in response to Read Scratchpad (0xbe).
	Scratchpad [9]byte
	// Addr is the ROM code matched by Match ROM.
	Addr onewire.Address
	// Absent makes the device ignore resets: no presence pulse is sent.
	Absent bool
	// StuckLow shorts the line to ground.
	StuckLow bool
	// OutErr, if set, is returned by Out.
	OutErr error
	// Waits records every delay of a millisecond or more.
	Waits []time.Duration

	now        time.Duration
	masterLow  bool
	drivenHigh bool
	fallAt     time.Duration
	holdFrom   time.Duration
	holdUntil  time.Duration
	st         state
	rx         byte
	rxBits     int
	match      []byte
	tx         []bool
	received   []byte
	resets     int
}

// Now returns the virtual time elapsed since the device was created.
func (d *Device) Now() time.Duration {
	return d.now
}

// Received returns every byte the device decoded since its creation,
// including ROM commands.
func (d *Device) Received() []byte {
	return append([]byte(nil), d.received...)
}

// Resets returns the number of reset pulses seen.
func (d *Device) Resets() int {
	return d.resets
}

// DrivenHigh reports whether the master is actively driving the line high.
func (d *Device) DrivenHigh() bool {
	return d.drivenHigh && !d.masterLow
}

// Delay implements bitbang.Delayer by advancing the virtual clock.
func (d *Device) Delay(t time.Duration) {
	if t >= time.Millisecond {
		d.Waits = append(d.Waits, t)
	}
	d.now += t
}

// In implements gpio.PinIn. The master releases the line.
func (d *Device) In(pull gpio.Pull, edge gpio.Edge) error {
	d.P = pull
	d.drivenHigh = false
	d.release()
	return nil
}

// Out implements gpio.PinOut.
func (d *Device) Out(l gpio.Level) error {
	if d.OutErr != nil {
		return d.OutErr
	}
	if l == gpio.Low {
		d.drivenHigh = false
		if !d.masterLow {
			d.masterLow = true
			d.fallAt = d.now
			d.onFall()
		}
		return nil
	}
	d.drivenHigh = true
	d.release()
	return nil
}

// Read implements gpio.PinIn. The line is low if anybody pulls it low.
func (d *Device) Read() gpio.Level {
	l := gpio.High
	if d.masterLow || d.StuckLow || (d.now >= d.holdFrom && d.now < d.holdUntil) {
		l = gpio.Low
	}
	d.L = l
	return l
}

func (d *Device) release() {
	if !d.masterLow {
		return
	}
	d.masterLow = false
	d.onRise(d.now - d.fallAt)
}

func (d *Device) onFall() {
	if d.st != stTransmit || len(d.tx) == 0 {
		return
	}
	bit := d.tx[0]
	d.tx = d.tx[1:]
	if !bit {
		d.holdFrom = d.now
		d.holdUntil = d.now + ZeroHold
	}
}

func (d *Device) onRise(low time.Duration) {
	if low >= ResetMin {
		d.resets++
		d.rx, d.rxBits = 0, 0
		d.tx = nil
		d.match = nil
		if d.Absent {
			d.st = stIdle
			return
		}
		d.st = stROM
		d.holdFrom = d.now + PresenceDelay
		d.holdUntil = d.holdFrom + PresenceWidth
		return
	}
	switch d.st {
	case stROM, stMatch, stFunction:
	default:
		return
	}
	if low < SampleAt {
		d.rx |= 1 << uint(d.rxBits)
	}
	d.rxBits++
	if d.rxBits == 8 {
		b := d.rx
		d.rx, d.rxBits = 0, 0
		d.onByte(b)
	}
}

func (d *Device) onByte(b byte) {
	d.received = append(d.received, b)
	switch d.st {
	case stROM:
		switch b {
		case 0xcc:
			d.st = stFunction
		case 0x55:
			d.st = stMatch
		default:
			d.st = stIdle
		}
	case stMatch:
		d.match = append(d.match, b)
		if len(d.match) < 8 {
			return
		}
		d.st = stIdle
		for i, v := range d.match {
			if v != byte(d.Addr>>(8*uint(i))) {
				return
			}
		}
		d.st = stFunction
	case stFunction:
		d.st = stIdle
		if b == 0xbe {
			d.st = stTransmit
			d.tx = d.tx[:0]
			for _, v := range d.Scratchpad {
				for i := 0; i < 8; i++ {
					d.tx = append(d.tx, v&(1<<uint(i)) != 0)
				}
			}
		}
	}
}

var _ gpio.PinIO = &Device{}
