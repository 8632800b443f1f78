// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermowire reads a DS18B20 temperature sensor through a single GPIO
// line, bit-banging the 1-Wire protocol.
//
// The pieces stack as follows:
//
//   - inoutpin turns a GPIO into a line that switches between input and
//     output on demand, push-pull or open-drain.
//   - bitbang implements the 1-Wire bus master over such a line.
//   - ds18b20 runs the conversion and scratchpad read cycle.
//   - tempbar shows readings on a terminal.
//
// cmd/ds18b20-read ties them together.
package thermowire
