// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"image"
	"image/color"
	"image/draw"
)

type subImager interface {
	draw.Image
	SubImage(image.Rectangle) image.Image
}

// subDrawImage returns the rect region of img as an image with its
// origin at rect.Min.
func subDrawImage(img subImager, rect image.Rectangle) draw.Image {
	return panel{
		Image:  img.SubImage(rect).(draw.Image),
		bounds: image.Rectangle{Max: rect.Size()},
		offset: rect.Min,
	}
}

type panel struct {
	draw.Image
	bounds image.Rectangle
	offset image.Point
}

func (p panel) Bounds() image.Rectangle { return p.bounds }

func (p panel) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(p.bounds)) {
		return
	}
	p.Image.Set(x+p.offset.X, y+p.offset.Y, c)
}

func (p panel) At(x, y int) color.Color {
	return p.Image.At(x+p.offset.X, y+p.offset.Y)
}

type number interface{ int32 | uint16 }

// yScale maps values onto rows of a plot. Larger values are placed
// towards the top.
type yScale[T number] struct {
	max    float64
	spread float64
	height int
}

// newYScale returns a scale spanning the values in trace, widened
// symmetrically to at least minRange.
func newYScale[T number](trace []T, minRange T, height int) yScale[T] {
	lo, hi := trace[0], trace[0]
	for _, v := range trace[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	spread := float64(hi) - float64(lo)
	top := float64(hi)
	if r := float64(minRange); spread < r {
		top += (r - spread) / 2
		spread = r
	}
	return yScale[T]{max: top, spread: spread, height: height}
}

func (s yScale[T]) y(v T) int {
	if s.spread == 0 {
		return s.height / 2
	}
	return int((s.max - float64(v)) / s.spread * float64(s.height))
}

// plotTrace draws trace across dst, one sample per column. Each column
// is joined to the previous sample's row. The vertical scale spans at
// least minRange.
func plotTrace[T number](dst draw.Image, trace []T, minRange T) {
	blank(dst)
	if len(trace) < 2 {
		return
	}
	sc := newYScale(trace, minRange, dst.Bounds().Dy()-1)
	prev := sc.y(trace[0])
	for x, v := range trace {
		y := sc.y(v)
		span(dst, x, prev, y, color.Black)
		prev = y
	}
}

// span sets the pixels in column x between rows y0 and y1 inclusive.
func span(img draw.Image, x, y0, y1 int, c color.Color) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		img.Set(x, y, c)
	}
}

func blank(img draw.Image) {
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
}

// displayShim adapts a draw.Image to a tinyfont display.
type displayShim struct {
	img draw.Image
}

func (d displayShim) SetPixel(x, y int16, c color.RGBA) {
	d.img.Set(int(x), int(y), c)
}

func (d displayShim) Size() (x, y int16) {
	b := d.img.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

func (d displayShim) Display() error { return nil }
