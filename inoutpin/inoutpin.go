// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package inoutpin

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// DriveStyle is the electrical convention used while the pin is an output.
type DriveStyle uint8

const (
	// PushPull drives both logic levels.
	PushPull DriveStyle = iota
	// OpenDrain drives low only; high is left to the external pull-up.
	OpenDrain
)

func (s DriveStyle) String() string {
	switch s {
	case PushPull:
		return "PushPull"
	case OpenDrain:
		return "OpenDrain"
	default:
		return fmt.Sprintf("DriveStyle(%d)", uint8(s))
	}
}

// ParseDriveStyle accepts "push-pull" or "open-drain".
func ParseDriveStyle(s string) (DriveStyle, error) {
	switch s {
	case "push-pull", "pushpull", "pp":
		return PushPull, nil
	case "open-drain", "opendrain", "od":
		return OpenDrain, nil
	}
	return 0, fmt.Errorf("inoutpin: unknown drive style %q", s)
}

// Direction is the logical direction of the pin.
type Direction uint8

const (
	// Output means the pin was last driven.
	Output Direction = iota
	// Input means the pin was last sampled.
	Input
)

func (d Direction) String() string {
	if d == Input {
		return "In"
	}
	return "Out"
}

// ErrNotImplemented is returned by PWM.
var ErrNotImplemented = errors.New("inoutpin: not implemented")

// Pin is a dual mode pin wrapping a gpio.PinIO.
//
// Pin is not safe for concurrent use. It is meant to be owned by a single
// bus driver.
type Pin struct {
	p     gpio.PinIO
	style DriveStyle
	dir   Direction
	// driven is true while the hardware line is configured as an output.
	// For OpenDrain that only ever happens while driving low.
	driven bool
	err    error // first platform error seen by Read since ClearErr
}

// New configures p as an output in the given drive style at the idle high
// level and returns the wrapping Pin.
//
// With PushPull the line is actively driven high. With OpenDrain it is
// released to the pull-up.
func New(p gpio.PinIO, style DriveStyle) (*Pin, error) {
	if p == nil {
		return nil, errors.New("inoutpin: nil pin")
	}
	d := &Pin{p: p, style: style, dir: Output}
	switch style {
	case PushPull:
		if err := p.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("inoutpin: %s: %w", p, err)
		}
		d.driven = true
	case OpenDrain:
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("inoutpin: %s: %w", p, err)
		}
	default:
		return nil, fmt.Errorf("inoutpin: invalid drive style %s", style)
	}
	return d, nil
}

// Style returns the drive style chosen at construction.
func (d *Pin) Style() DriveStyle {
	return d.style
}

// Direction returns the current logical direction.
func (d *Pin) Direction() Direction {
	return d.dir
}

// Err returns the first error the underlying pin returned while Read was
// switching it to input since the last ClearErr, if any.
func (d *Pin) Err() error {
	return d.err
}

// ClearErr forgets the error reported by Err.
func (d *Pin) ClearErr() {
	d.err = nil
}

// Read switches the pin to input if it is not one already and samples it.
func (d *Pin) Read() gpio.Level {
	d.setInput()
	return d.p.Read()
}

// Out switches the pin to output if it is not one already and applies l
// according to the drive style.
func (d *Pin) Out(l gpio.Level) error {
	d.dir = Output
	if d.style == PushPull {
		// Out both switches the line to output and sets the level.
		if err := d.p.Out(l); err != nil {
			return fmt.Errorf("inoutpin: %s: %w", d.p, err)
		}
		d.driven = true
		return nil
	}
	if l == gpio.High {
		return d.release()
	}
	if d.driven {
		return nil
	}
	if err := d.p.Out(gpio.Low); err != nil {
		return fmt.Errorf("inoutpin: %s: %w", d.p, err)
	}
	d.driven = true
	return nil
}

// In implements gpio.PinIn.
//
// Asking for the default pull without edge detection is the same as the
// implicit switch done by Read. Anything else is passed through.
func (d *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge == gpio.NoEdge && (pull == gpio.PullNoChange || pull == d.DefaultPull()) {
		prev := d.err
		d.setInput()
		if d.err != prev {
			return d.err
		}
		return nil
	}
	d.dir = Input
	d.driven = false
	if err := d.p.In(pull, edge); err != nil {
		return fmt.Errorf("inoutpin: %s: %w", d.p, err)
	}
	return nil
}

// WaitForEdge implements gpio.PinIn.
func (d *Pin) WaitForEdge(timeout time.Duration) bool {
	return d.p.WaitForEdge(timeout)
}

// Pull implements gpio.PinIn.
func (d *Pin) Pull() gpio.Pull {
	return d.p.Pull()
}

// DefaultPull returns the pull applied when the pin switches to input:
// pull-up for OpenDrain, none for PushPull.
func (d *Pin) DefaultPull() gpio.Pull {
	if d.style == OpenDrain {
		return gpio.PullUp
	}
	return gpio.Float
}

// PWM is not supported.
func (d *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

// Name implements pin.Pin.
func (d *Pin) Name() string {
	return d.p.Name()
}

// Number implements pin.Pin.
func (d *Pin) Number() int {
	return d.p.Number()
}

// Function implements pin.Pin.
func (d *Pin) Function() string {
	return d.dir.String()
}

// Halt implements conn.Resource.
func (d *Pin) Halt() error {
	return d.p.Halt()
}

func (d *Pin) String() string {
	return d.style.String() + "{" + d.p.String() + "}"
}

// setInput moves the pin to Input. An OpenDrain pin that is already released
// is electrically an input and is left alone.
func (d *Pin) setInput() {
	if d.dir == Input {
		return
	}
	d.dir = Input
	if !d.driven {
		return
	}
	// On failure the line may still be an output; the next switch retries.
	if err := d.p.In(d.DefaultPull(), gpio.NoEdge); err != nil {
		if d.err == nil {
			d.err = fmt.Errorf("inoutpin: %s: %w", d.p, err)
		}
		return
	}
	d.driven = false
}

// release lets an OpenDrain line float up to the pull-up.
func (d *Pin) release() error {
	if !d.driven {
		return nil
	}
	if err := d.p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("inoutpin: %s: %w", d.p, err)
	}
	d.driven = false
	return nil
}

var _ gpio.PinIO = &Pin{}
