// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18b20

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Function commands, datasheet p.11.
const (
	cmdConvert        = 0x44
	cmdReadScratchpad = 0xbe
)

// ConversionTime is the worst case conversion time at the power-on default
// 12 bits resolution, datasheet p.3.
const ConversionTime = 750 * time.Millisecond

// Bus is the set of 1-Wire primitives needed to read the sensor.
//
// bitbang.Bus implements it.
type Bus interface {
	// Reset sends a reset pulse and reports whether a presence pulse was seen.
	Reset() (bool, error)
	// SendCommand resets the bus, selects addr (all devices when nil) and
	// sends cmd.
	SendCommand(cmd byte, addr *onewire.Address) error
	// ReadBytes fills p from the bus.
	ReadBytes(p []byte) error
	String() string
}

// Delayer blocks for at least d.
type Delayer interface {
	Delay(d time.Duration)
}

// ReadTemperature performs a conversion on the only device on the bus and
// returns the temperature in °C.
//
// It waits ConversionTime for the conversion, reads the two temperature bytes
// of the scratchpad and resets the bus to abort the rest of the transfer. The
// scratchpad CRC is not read.
//
// Errors from the bus are returned as is and end the cycle.
func ReadTemperature(b Bus, d Delayer) (float32, error) {
	raw, err := readRaw(b, d)
	if err != nil {
		return 0, err
	}
	return Celsius(raw), nil
}

// Celsius converts a raw 12 bits reading, 1/16°C per count, to °C.
func Celsius(raw int16) float32 {
	return float32(raw) / 16
}

// Decode interprets the first two scratchpad bytes.
func Decode(lsb, msb byte) int16 {
	return int16(msb)<<8 | int16(lsb)
}

// Opts contains options to pass to the constructor.
type Opts struct {
	// Logger receives failed cycles while sensing continuously. Disabled when
	// nil.
	Logger *zerolog.Logger
}

// New returns a Dev reading the single DS18B20 on b.
//
// The Dev takes ownership of b; the caller must not use it anymore.
func New(b Bus, d Delayer, opts *Opts) *Dev {
	dev := &Dev{
		name:  "DS18B20{" + b.String() + "}",
		bus:   make(chan Bus, 1),
		delay: d,
		log:   zerolog.Nop(),
	}
	if opts != nil && opts.Logger != nil {
		dev.log = *opts.Logger
	}
	dev.bus <- b
	return dev
}

// Dev is a handle to a DS18B20 alone on a 1-Wire bus.
//
// Only one reading cycle runs at a time: the cycle takes the bus and gives
// it back when done, concurrent callers wait for their turn.
type Dev struct {
	name  string
	bus   chan Bus // holds the bus while no cycle is running
	delay Delayer
	log   zerolog.Logger

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func (d *Dev) String() string {
	return d.name
}

// ReadCelsius runs one reading cycle and returns the temperature in °C.
func (d *Dev) ReadCelsius() (float32, error) {
	raw, err := d.cycle()
	if err != nil {
		return 0, err
	}
	return Celsius(raw), nil
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	raw, err := d.cycle()
	if err != nil {
		return err
	}
	// raw has 4 fractional bits.
	e.Temperature = physic.Temperature(raw)*physic.Kelvin/16 + physic.ZeroCelsius
	return nil
}

// SenseContinuous implements physic.SenseEnv.
//
// A fresh cycle is started interval after the previous one returned. Failed
// cycles are logged and skipped. The channel is closed by Halt.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval <= 0 {
		return nil, errors.New("ds18b20: invalid interval")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("ds18b20: already sensing continuously")
	}
	d.stop = make(chan struct{})
	c := make(chan physic.Env)
	d.wg.Add(1)
	go d.sensePoll(interval, c, d.stop)
	return c, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 16
}

// Halt implements conn.Resource.
//
// It stops continuous sensing. A cycle in flight runs to completion first.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		// SenseContinuous waits on mu, so no new run can be added to wg
		// before the previous one is done.
		d.wg.Wait()
		d.stop = nil
	}
	return nil
}

//

func (d *Dev) cycle() (int16, error) {
	b := <-d.bus
	defer func() { d.bus <- b }()
	return readRaw(b, d.delay)
}

func (d *Dev) sensePoll(interval time.Duration, c chan<- physic.Env, stop <-chan struct{}) {
	defer d.wg.Done()
	defer close(c)
	for {
		var e physic.Env
		if err := d.Sense(&e); err != nil {
			d.log.Warn().Err(err).Str("dev", d.name).Msg("ds18b20: reading cycle failed")
		} else {
			select {
			case c <- e:
			case <-stop:
				return
			}
		}
		select {
		case <-stop:
			return
		case <-after(interval):
		}
	}
}

func readRaw(b Bus, d Delayer) (int16, error) {
	if err := b.SendCommand(cmdConvert, nil); err != nil {
		return 0, err
	}
	d.Delay(ConversionTime)
	if err := b.SendCommand(cmdReadScratchpad, nil); err != nil {
		return 0, err
	}
	var spad [2]byte
	if err := b.ReadBytes(spad[:]); err != nil {
		return 0, err
	}
	// Skip the rest of the scratchpad.
	if _, err := b.Reset(); err != nil {
		return 0, err
	}
	return Decode(spad[0], spad[1]), nil
}

var after = time.After

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
