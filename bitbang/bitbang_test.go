// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	pkgerrors "github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/onewire"

	"github.com/GermanBionicSystems/thermowire/bitbang/bitbangtest"
	"github.com/GermanBionicSystems/thermowire/inoutpin"
)

var scratchpad = [9]byte{0x90, 0x01, 0x4b, 0x46, 0x7f, 0xff, 0x0c, 0x10, 0x1c}

func newBus(t *testing.T, style inoutpin.DriveStyle) (*Bus, *bitbangtest.Device) {
	dev := &bitbangtest.Device{Pin: gpiotest.Pin{N: "GPIO4", Num: 4}, Scratchpad: scratchpad}
	p, err := inoutpin.New(dev, style)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(p, dev)
	if err != nil {
		t.Fatal(err)
	}
	return b, dev
}

func TestNew_idleLow(t *testing.T) {
	dev := &bitbangtest.Device{StuckLow: true}
	p, err := inoutpin.New(dev, inoutpin.OpenDrain)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(p, dev); err != ErrIdleLow {
		t.Fatalf("expected ErrIdleLow, got %v", err)
	}
}

func TestNew_nil(t *testing.T) {
	if _, err := New(nil, HostDelay{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNew_lineError(t *testing.T) {
	boom := errors.New("boom")
	l := &fakeLine{level: gpio.High, err: boom}
	if _, err := New(l, DelayFunc(func(time.Duration) {})); pkgerrors.Cause(err) != boom {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestReset(t *testing.T) {
	for _, style := range []inoutpin.DriveStyle{inoutpin.PushPull, inoutpin.OpenDrain} {
		b, dev := newBus(t, style)
		present, err := b.Reset()
		if err != nil {
			t.Fatal(err)
		}
		if !present {
			t.Fatalf("%s: expected presence", style)
		}
		if dev.Resets() != 1 {
			t.Fatalf("%s: %d resets", style, dev.Resets())
		}
		if want := tResetLow + tPresence + tResetRecovery; dev.Now() != want {
			t.Fatalf("%s: reset took %s, want %s", style, dev.Now(), want)
		}
	}
}

func TestReset_absent(t *testing.T) {
	b, dev := newBus(t, inoutpin.PushPull)
	dev.Absent = true
	present, err := b.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if present {
		t.Fatal("unexpected presence")
	}
}

func TestReset_shorted(t *testing.T) {
	b, dev := newBus(t, inoutpin.PushPull)
	dev.StuckLow = true
	_, err := b.Reset()
	if e, ok := err.(onewire.ShortedBusError); !ok || !e.IsShorted() {
		t.Fatalf("expected shorted bus error, got %v", err)
	}
	if e, ok := err.(onewire.BusError); !ok || !e.BusError() {
		t.Fatalf("expected bus error, got %v", err)
	}
	if dev.Resets() != 0 {
		t.Fatal("no reset pulse expected")
	}
}

func TestReset_clearsLineError(t *testing.T) {
	l := &fakeLine{level: gpio.High}
	b, err := New(l, DelayFunc(func(time.Duration) {}))
	if err != nil {
		t.Fatal(err)
	}
	// Left over from a failed transaction.
	l.err = errors.New("boom")
	if _, err := b.Reset(); err != nil {
		t.Fatal(err)
	}
	if l.clears != 1 {
		t.Fatalf("expected the line error to be cleared once, got %d", l.clears)
	}
}

func TestSendCommand_skipROM(t *testing.T) {
	for _, style := range []inoutpin.DriveStyle{inoutpin.PushPull, inoutpin.OpenDrain} {
		b, dev := newBus(t, style)
		if err := b.SendCommand(0x44, nil); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]byte{0xcc, 0x44}, dev.Received()); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", style, diff)
		}
		slot := tWrite1Low + tWrite1High
		if want := tResetLow + tPresence + tResetRecovery + 16*slot; dev.Now() != want {
			t.Fatalf("%s: took %s, want %s", style, dev.Now(), want)
		}
	}
}

func TestSendCommand_matchROM(t *testing.T) {
	b, dev := newBus(t, inoutpin.OpenDrain)
	addr := onewire.Address(0x740000070e41ac28)
	dev.Addr = addr
	if err := b.SendCommand(0xbe, &addr); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x55, 0x28, 0xac, 0x41, 0x0e, 0x07, 0x00, 0x00, 0x74, 0xbe}
	if diff := cmp.Diff(want, dev.Received()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	var got [2]byte
	if err := b.ReadBytes(got[:]); err != nil {
		t.Fatal(err)
	}
	if got != [2]byte{0x90, 0x01} {
		t.Fatalf("got %#v", got)
	}
}

func TestSendCommand_noPresence(t *testing.T) {
	b, dev := newBus(t, inoutpin.PushPull)
	dev.Absent = true
	err := b.SendCommand(0x44, nil)
	if e, ok := err.(onewire.NoDevicesError); !ok || !e.NoDevices() {
		t.Fatalf("expected no devices error, got %v", err)
	}
	if len(dev.Received()) != 0 {
		t.Fatal("nothing must be sent without presence")
	}
}

func TestReadBytes(t *testing.T) {
	for _, style := range []inoutpin.DriveStyle{inoutpin.PushPull, inoutpin.OpenDrain} {
		b, _ := newBus(t, style)
		if err := b.SendCommand(0xbe, nil); err != nil {
			t.Fatal(err)
		}
		var got [9]byte
		if err := b.ReadBytes(got[:]); err != nil {
			t.Fatal(err)
		}
		if got != scratchpad {
			t.Fatalf("%s: got %#v", style, got)
		}
		// Past the scratchpad the device leaves the line alone.
		var extra [1]byte
		if err := b.ReadBytes(extra[:]); err != nil {
			t.Fatal(err)
		}
		if extra[0] != 0xff {
			t.Fatalf("%s: got %#x", style, extra[0])
		}
	}
}

func TestWriteBytes(t *testing.T) {
	b, dev := newBus(t, inoutpin.PushPull)
	if _, err := b.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteBytes([]byte{0xcc, 0x4e}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0xcc, 0x4e}, dev.Received()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestTx(t *testing.T) {
	b, dev := newBus(t, inoutpin.PushPull)
	var r [9]byte
	if err := b.Tx([]byte{0xcc, 0xbe}, r[:], onewire.WeakPullup); err != nil {
		t.Fatal(err)
	}
	if r != scratchpad {
		t.Fatalf("got %#v", r)
	}
	if err := b.Tx([]byte{0xcc, 0x44}, nil, onewire.StrongPullup); err != nil {
		t.Fatal(err)
	}
	if !dev.DrivenHigh() {
		t.Fatal("expected the line to be driven high")
	}
	if dev.Resets() != 2 {
		t.Fatalf("%d resets", dev.Resets())
	}
}

func TestTx_empty(t *testing.T) {
	b, dev := newBus(t, inoutpin.PushPull)
	if err := b.Tx(nil, nil, onewire.WeakPullup); err != nil {
		t.Fatal(err)
	}
	if dev.Now() != 0 {
		t.Fatal("no bus activity expected")
	}
}

func TestTx_noPresence(t *testing.T) {
	b, dev := newBus(t, inoutpin.OpenDrain)
	dev.Absent = true
	err := b.Tx([]byte{0xcc, 0x44}, nil, onewire.WeakPullup)
	if _, ok := err.(onewire.NoDevicesError); !ok {
		t.Fatalf("expected no devices error, got %v", err)
	}
}

func TestOutError(t *testing.T) {
	b, dev := newBus(t, inoutpin.PushPull)
	boom := errors.New("boom")
	dev.OutErr = boom
	err := b.SendCommand(0x44, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := err.(onewire.BusError); ok {
		t.Fatal("a pin failure is not a 1-wire bus error")
	}
}

func TestSearch(t *testing.T) {
	b, _ := newBus(t, inoutpin.PushPull)
	if _, err := b.Search(false); err != ErrSearchUnsupported {
		t.Fatal(err)
	}
}

func TestString_Halt(t *testing.T) {
	b, dev := newBus(t, inoutpin.OpenDrain)
	if s := b.String(); s != "bitbang(OpenDrain{GPIO4(4)})" {
		t.Fatal(s)
	}
	if err := b.Halt(); err != nil {
		t.Fatal(err)
	}
	if dev.Read() != gpio.High {
		t.Fatal("expected idle high")
	}
}

func TestHostDelay(t *testing.T) {
	var sleeps []time.Duration
	sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	defer func() { sleep = time.Sleep }()
	d := HostDelay{}
	d.Delay(0)
	d.Delay(-time.Second)
	d.Delay(5 * time.Microsecond)
	d.Delay(750 * time.Millisecond)
	if diff := cmp.Diff([]time.Duration{750 * time.Millisecond}, sleeps); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

// fakeLine is a Line with a fixed level.
type fakeLine struct {
	level  gpio.Level
	err    error
	clears int
}

func (f *fakeLine) String() string         { return "fake" }
func (f *fakeLine) Out(l gpio.Level) error { return nil }
func (f *fakeLine) Read() gpio.Level       { return f.level }
func (f *fakeLine) Err() error             { return f.err }
func (f *fakeLine) ClearErr()              { f.err = nil; f.clears++ }
