// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"
)

// Line is the dual mode data line the bus toggles.
//
// Out(gpio.High) must release the line (or drive it high for push-pull
// wiring) and Read must sample it as an input. Err reports a failure that
// happened while Read reconfigured the line, until ClearErr is called.
// inoutpin.Pin implements Line.
type Line interface {
	String() string
	Out(l gpio.Level) error
	Read() gpio.Level
	Err() error
	ClearErr()
}

// ROM commands.
const (
	cmdMatchROM = 0x55
	cmdSkipROM  = 0xcc
)

// Slot timings, Maxim AN126 standard speed.
const (
	tWaitHigh     = time.Microsecond // one poll of the line before a reset
	waitHighPolls = 125

	tResetLow      = 480 * time.Microsecond
	tPresence      = 70 * time.Microsecond
	tResetRecovery = 410 * time.Microsecond

	tWrite1Low  = 6 * time.Microsecond
	tWrite1High = 64 * time.Microsecond
	tWrite0Low  = 60 * time.Microsecond
	tWrite0High = 10 * time.Microsecond

	tReadLow      = 6 * time.Microsecond
	tReadSample   = 9 * time.Microsecond
	tReadRecovery = 55 * time.Microsecond
)

// New returns a 1-Wire bus master toggling l.
//
// The line must read high while idle. If it does not, ErrIdleLow is returned
// and the bus must not be used.
func New(l Line, d Delayer) (*Bus, error) {
	if l == nil || d == nil {
		return nil, errors.New("bitbang: line and delay are required")
	}
	level := l.Read()
	if err := l.Err(); err != nil {
		return nil, errors.Wrap(err, "bitbang: sampling idle level")
	}
	if level != gpio.High {
		return nil, ErrIdleLow
	}
	return &Bus{line: l, delay: d}, nil
}

// Bus is a bit-banged 1-Wire bus master.
//
// It implements onewire.Bus. Bus is not safe for concurrent use; it is meant
// to be owned by one reader at a time.
type Bus struct {
	line  Line
	delay Delayer
}

func (b *Bus) String() string {
	return "bitbang(" + b.line.String() + ")"
}

// Halt implements conn.Resource.
//
// It leaves the line at its idle level.
func (b *Bus) Halt() error {
	return b.out(gpio.High)
}

// Reset sends a reset pulse and reports whether a device answered with a
// presence pulse.
//
// Every transaction starts with a reset, so a line error left over from a
// previous failed transaction is cleared here.
func (b *Bus) Reset() (bool, error) {
	b.line.ClearErr()
	if err := b.waitForHigh(); err != nil {
		return false, err
	}
	if err := b.out(gpio.Low); err != nil {
		return false, err
	}
	b.delay.Delay(tResetLow)
	if err := b.out(gpio.High); err != nil {
		return false, err
	}
	b.delay.Delay(tPresence)
	present := b.line.Read() == gpio.Low
	b.delay.Delay(tResetRecovery)
	if err := b.lineErr(); err != nil {
		return false, err
	}
	return present, nil
}

// SendCommand resets the bus, selects the device and sends cmd.
//
// With a nil addr all devices are selected with Skip ROM, which is only
// meaningful on a bus with a single device. A missing presence pulse is
// reported as an error implementing onewire.NoDevicesError.
func (b *Bus) SendCommand(cmd byte, addr *onewire.Address) error {
	if err := b.selectDevice(addr); err != nil {
		return err
	}
	return b.writeByte(cmd)
}

// ReadBytes fills p with bytes read from the bus, least significant bit
// first.
func (b *Bus) ReadBytes(p []byte) error {
	for i := range p {
		v, err := b.readByte()
		if err != nil {
			return err
		}
		p[i] = v
	}
	return nil
}

// WriteBytes writes p to the bus, least significant bit first.
func (b *Bus) WriteBytes(p []byte) error {
	for _, v := range p {
		if err := b.writeByte(v); err != nil {
			return err
		}
	}
	return nil
}

// Tx implements onewire.Bus.
//
// w must start with the ROM command. With StrongPullup the line is left
// driven high; this only powers a parasitic device when the line is push-pull.
func (b *Bus) Tx(w, r []byte, power onewire.Pullup) error {
	if len(w) == 0 && len(r) == 0 {
		return nil
	}
	present, err := b.Reset()
	if err != nil {
		return err
	}
	if !present {
		return errNoPresence
	}
	if err := b.WriteBytes(w); err != nil {
		return err
	}
	if err := b.ReadBytes(r); err != nil {
		return err
	}
	if power == onewire.StrongPullup {
		return b.out(gpio.High)
	}
	return nil
}

// Search implements onewire.Bus.
//
// Device discovery is not supported; it always returns ErrSearchUnsupported.
func (b *Bus) Search(alarmOnly bool) ([]onewire.Address, error) {
	return nil, ErrSearchUnsupported
}

//

func (b *Bus) selectDevice(addr *onewire.Address) error {
	present, err := b.Reset()
	if err != nil {
		return err
	}
	if !present {
		return errNoPresence
	}
	if addr == nil {
		return b.writeByte(cmdSkipROM)
	}
	if err := b.writeByte(cmdMatchROM); err != nil {
		return err
	}
	var a [8]byte
	for i := range a {
		a[i] = byte(*addr >> (8 * uint(i)))
	}
	return b.WriteBytes(a[:])
}

// waitForHigh gives a device up to 125µs to let go of the line.
func (b *Bus) waitForHigh() error {
	for i := 0; i < waitHighPolls; i++ {
		if b.line.Read() == gpio.High {
			return b.lineErr()
		}
		b.delay.Delay(tWaitHigh)
	}
	if err := b.lineErr(); err != nil {
		return err
	}
	return errShorted
}

func (b *Bus) writeBit(v bool) error {
	low, high := tWrite0Low, tWrite0High
	if v {
		low, high = tWrite1Low, tWrite1High
	}
	if err := b.out(gpio.Low); err != nil {
		return err
	}
	b.delay.Delay(low)
	if err := b.out(gpio.High); err != nil {
		return err
	}
	b.delay.Delay(high)
	return nil
}

func (b *Bus) readBit() (bool, error) {
	if err := b.out(gpio.Low); err != nil {
		return false, err
	}
	b.delay.Delay(tReadLow)
	if err := b.out(gpio.High); err != nil {
		return false, err
	}
	b.delay.Delay(tReadSample)
	v := b.line.Read() == gpio.High
	b.delay.Delay(tReadRecovery)
	return v, nil
}

func (b *Bus) writeByte(v byte) error {
	for i := 0; i < 8; i++ {
		if err := b.writeBit(v&1 == 1); err != nil {
			return err
		}
		v >>= 1
	}
	return nil
}

func (b *Bus) readByte() (byte, error) {
	var v byte
	for i := 0; i < 8; i++ {
		bit, err := b.readBit()
		if err != nil {
			return 0, err
		}
		v >>= 1
		if bit {
			v |= 0x80
		}
	}
	return v, b.lineErr()
}

func (b *Bus) out(l gpio.Level) error {
	return errors.Wrapf(b.line.Out(l), "bitbang: driving %s", l)
}

func (b *Bus) lineErr() error {
	return errors.Wrap(b.line.Err(), "bitbang: sampling")
}

var _ onewire.Bus = &Bus{}
var _ conn.Resource = &Bus{}
