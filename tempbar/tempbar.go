// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tempbar shows a temperature as a colored bar on a terminal
// (stdout) using ANSI color codes.
//
// The bar fills and shifts from blue to red as the temperature goes from
// Opts.Min to Opts.Max.
package tempbar

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for this display.
type Opts struct {
	// Min and Max bound the displayed range in °C. Defaults to 0 and 40.
	Min, Max float32
	// Width is the bar length in characters. Defaults to 40.
	Width   int
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

// Dev renders readings on one terminal line.
type Dev struct {
	w        io.Writer
	min, max float32
	width    int
	palette  ansi256.Palette

	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	d := &Dev{min: 0, max: 40, width: 40, palette: *ansi256.Default}
	if opts == nil {
		opts = &Opts{}
	}
	if opts.Max > opts.Min {
		d.min, d.max = opts.Min, opts.Max
	}
	if opts.Width > 0 {
		d.width = opts.Width
	}
	if opts.Palette != nil {
		d.palette = *opts.Palette
	}
	d.w = opts.W
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
	}
	return d
}

func (d *Dev) String() string {
	return fmt.Sprintf("TempBar{%g°C..%g°C}", d.min, d.max)
}

// Halt implements conn.Resource.
//
// It ends the line and resets the terminal attributes.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Show overwrites the current line with the bar for celsius followed by the
// value. Temperatures out of range are clamped on the bar, not in the text.
func (d *Dev) Show(celsius float32) error {
	f := d.fraction(celsius)
	n := int(f*float32(d.width) + 0.5)
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	c := Color(f)
	for i := 0; i < n; i++ {
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m")
	for i := n; i < d.width; i++ {
		_ = d.buf.WriteByte(' ')
	}
	_, _ = fmt.Fprintf(&d.buf, " %7.2f°C", celsius)
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Color returns the bar color for f in [0, 1]: pure blue at 0, pure red at 1.
func Color(f float32) color.NRGBA {
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	r := byte(255*f + 0.5)
	return color.NRGBA{R: r, B: 255 - r, A: 255}
}

func (d *Dev) fraction(celsius float32) float32 {
	f := (celsius - d.min) / (d.max - d.min)
	if f != f || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

var _ fmt.Stringer = &Dev{}
