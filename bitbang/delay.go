// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"time"

	"periph.io/x/host/v3/cpu"
)

// Delayer blocks the caller for at least d.
type Delayer interface {
	Delay(d time.Duration)
}

// DelayFunc adapts a function to Delayer.
type DelayFunc func(d time.Duration)

// Delay implements Delayer.
func (f DelayFunc) Delay(d time.Duration) {
	f(d)
}

// HostDelay busy-waits for short delays and sleeps for long ones.
//
// Slot widths are a few microseconds, far below what the scheduler can
// honor, so they spin. The temperature conversion wait yields the CPU.
type HostDelay struct{}

// Delay implements Delayer.
func (HostDelay) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	if d < spinThreshold {
		cpu.Nanospin(d)
		return
	}
	sleep(d)
}

const spinThreshold = time.Millisecond

var sleep = time.Sleep
