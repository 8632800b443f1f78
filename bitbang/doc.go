// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitbang implements a 1-Wire bus master by toggling a single GPIO
// line in software.
//
// The line must switch between driving and sampling on demand, which is what
// inoutpin.Pin provides. The bus owns its line and a delay service used for
// the reset and time slot widths.
//
// Only single-drop buses are supported: commands are broadcast with Skip ROM
// unless an address is given, and Search is not implemented.
//
// # Timing
//
// Reset: 480µs low, presence sampled 70µs after release, 410µs recovery.
// Write 1: 6µs low, 64µs high. Write 0: 60µs low, 10µs high.
// Read: 6µs low, sample 9µs after release, 55µs recovery.
//
// The values follow Maxim application note 126, "1-Wire Communication
// Through Software".
package bitbang
