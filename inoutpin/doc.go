// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package inoutpin turns one GPIO line into a pin that is switched between
// input and output on demand, as required by half-duplex single wire
// protocols such as 1-Wire.
//
// Reading the pin switches it to input, driving it switches it back to
// output. The switch only touches the hardware when the requested direction
// differs from the current one, since reconfiguring a line costs time that a
// bit slot may not have.
//
// Two drive styles are supported. PushPull actively drives both levels and
// suits an externally powered device. OpenDrain only ever sinks the line low
// and implements a high level by releasing the line to its pull-up, so that
// other participants can still pull it low; use it for parasitically powered
// devices.
package inoutpin
