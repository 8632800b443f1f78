// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds18b20 reads the temperature of a single Maxim DS18B20 on a
// dedicated 1-Wire bus.
//
// The sensor must be alone on the bus: it is addressed with Skip ROM and
// neither the ROM code nor the scratchpad CRC is read.
//
// A sensor with its own VDD supply works with a push-pull line. A parasite
// powered sensor draws from the pull-up resistor and needs an open-drain line,
// see inoutpin.OpenDrain.
//
// Page references in the source are to the Maxim DS18B20 datasheet.
package ds18b20
