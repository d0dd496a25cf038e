// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"image/color"
	"image/draw"
	"strconv"
	"time"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freesans"

	"github.com/kortschak/polar/cmd/internal/ring"
	"github.com/kortschak/polar/heart"
)

// heartRate shows the current heart rate and mean RR interval.
type heartRate struct {
	img    draw.Image
	lastRR time.Duration
}

func newHeartRate(img draw.Image) *heartRate {
	return &heartRate{img: img}
}

func (r *heartRate) add(hr heart.Rate) {
	hrText := "-"
	if hr.HR != 0 {
		hrText = strconv.Itoa(int(hr.HR))
	}
	if len(hr.RR) != 0 {
		r.lastRR = 0
		for _, v := range hr.RR {
			r.lastRR += v
		}
		r.lastRR /= time.Duration(len(hr.RR))
	}
	rrText := "-"
	if r.lastRR != 0 {
		rrText = r.lastRR.Round(time.Millisecond).String()
	}
	r.draw(hrText, rrText)
}

// noContact clears the display when the sensor has lost skin contact.
func (r *heartRate) noContact() {
	r.lastRR = 0
	r.draw("-", "no contact")
}

func (r *heartRate) draw(hrText, rrText string) {
	blank(r.img)

	width := r.img.Bounds().Dx()
	yOffset := -10

	hrFont := &freesans.Bold18pt7b
	_, hrW := tinyfont.LineWidth(hrFont, hrText)
	tinyfont.WriteLine(
		displayShim{r.img},
		hrFont,
		int16(width-int(hrW))/2, int16(int(hrFont.YAdvance)+yOffset), hrText,
		color.RGBA{A: 0xff},
	)

	rrFont := &freesans.Regular9pt7b
	_, rrW := tinyfont.LineWidth(rrFont, rrText)
	tinyfont.WriteLine(
		displayShim{r.img},
		rrFont,
		int16(width-int(rrW))/2, int16(int(rrFont.YAdvance)+int(hrFont.YAdvance)+yOffset), rrText,
		color.RGBA{A: 0xff},
	)
}

// rateHistory plots the mean heart rate of each period.
type rateHistory struct {
	rates *ring.Buffer[uint16]
	ring  *ring.Buffer[uint16]
	wait  time.Duration
	last  time.Time
	img   draw.Image
	buf   []uint16
}

func newRateHistory(period time.Duration, img draw.Image) *rateHistory {
	return &rateHistory{
		rates: ring.NewBuffer[uint16](256),
		ring:  ring.NewBuffer[uint16](img.Bounds().Dx()),
		wait:  period,
		img:   img,
	}
}

// add records the rate hr at ts and replots the history at the end of
// each period.
func (h *rateHistory) add(ts time.Time, hr uint16) {
	h.rates.Write([]uint16{hr})
	if h.last.IsZero() {
		h.last = ts
		return
	}
	if ts.Sub(h.last) <= h.wait {
		return
	}
	h.last = ts
	if len(h.buf) < h.rates.Size() {
		h.buf = make([]uint16, h.rates.Size())
	}
	n := h.rates.Read(h.buf)
	var s float64
	for _, v := range h.buf[:n] {
		s += float64(v)
	}
	h.ring.Write([]uint16{uint16(s / float64(n))})

	h.plot()
}

func (h *rateHistory) plot() {
	if len(h.buf) < h.ring.Size() {
		h.buf = make([]uint16, h.ring.Size())
	}
	n := h.ring.CopyTo(h.buf)
	plotTrace(h.img, h.buf[:n], 20)
}

// tracePlot plots the most recent samples of a measurement stream
// across the width of its image.
type tracePlot struct {
	img      draw.Image
	ring     *ring.Buffer[int32]
	buf      []int32
	minRange int32
}

func newTracePlot(img draw.Image, minRange int32) *tracePlot {
	w := img.Bounds().Dx()
	return &tracePlot{
		img:      img,
		ring:     ring.NewBuffer[int32](w),
		buf:      make([]int32, w),
		minRange: minRange,
	}
}

func (p *tracePlot) width() int {
	return p.img.Bounds().Dx()
}

func (p *tracePlot) write(samples []int32) {
	p.ring.Write(samples)
}

// reset discards the held samples and clears the plot.
func (p *tracePlot) reset() {
	p.ring.Reset()
	blank(p.img)
}

// draw plots the held samples once the trace spans the plot width.
// It reports whether the plot was drawn.
func (p *tracePlot) draw() bool {
	if p.ring.Len() < p.width() {
		return false
	}
	n := p.ring.Last(p.buf)
	plotTrace(p.img, p.buf[:n], p.minRange)
	return true
}
