// Package pattern generates bring-up images for a chain: one pixel per LED.
package pattern

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/coreman2200/tlc59711/model"
)

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index" // one white LED walking down the chain
	RGBTest    Kind = "rgb"   // every LED red, then green, then blue
	ChipSweep  Kind = "chips" // all four LEDs of one chip at a time
	Wheel      Kind = "wheel" // hue wheel spread over the chain, rotating
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case IndexSweep, RGBTest, ChipSweep, Wheel:
		return k, nil
	}
	return None, fmt.Errorf("pattern: unknown kind %q", s)
}

// WheelPeriod is the time the wheel takes for a full turn.
const WheelPeriod = 4 * time.Second

type Runner struct {
	kind Kind
	step int
}

func NewRunner(k Kind) *Runner { return &Runner{kind: k} }

func (r *Runner) Kind() Kind { return r.kind }

func (r *Runner) Reset() { r.step = 0 }

// Step paints the next image into im, whose bounds must come from
// ch.Bounds(). elapsed drives the time based patterns. It returns false
// once a finite pattern is complete.
func (r *Runner) Step(ch model.Chain, im *image.RGBA64, elapsed time.Duration) bool {
	model.Fill(im, model.RGB16{})
	n := ch.LedCount()
	white := model.RGB16{R: 0xFFFF, G: 0xFFFF, B: 0xFFFF}

	switch r.kind {
	case IndexSweep:
		if r.step >= n {
			return false
		}
		im.SetRGBA64(r.step, 0, white.RGBA64())
	case RGBTest:
		if r.step >= 3 {
			return false
		}
		var c model.RGB16
		switch r.step {
		case 0:
			c.R = 0xFFFF
		case 1:
			c.G = 0xFFFF
		case 2:
			c.B = 0xFFFF
		}
		model.Fill(im, c)
	case ChipSweep:
		if r.step >= ch.Chips() {
			return false
		}
		for _, l := range ch.ChipLeds(r.step) {
			im.SetRGBA64(l.Index, 0, white.RGBA64())
		}
	case Wheel:
		turn := math.Mod(float64(elapsed)/float64(WheelPeriod), 1)
		for i := 0; i < n; i++ {
			h := math.Mod(turn+float64(i)/float64(n), 1)
			im.SetRGBA64(i, 0, colorWheel(h).RGBA64())
		}
	default:
		return false
	}
	r.step++
	return true
}

// colorWheel maps h in [0,1) to a fully saturated hue.
func colorWheel(h float64) model.RGB16 {
	h *= 6
	ramp := func(v float64) uint16 { return uint16(math.Round(0xFFFF * v)) }
	switch {
	case h < 1.:
		return model.RGB16{R: 0xFFFF, G: ramp(h)}
	case h < 2.:
		return model.RGB16{R: ramp(2 - h), G: 0xFFFF}
	case h < 3.:
		return model.RGB16{G: 0xFFFF, B: ramp(h - 2)}
	case h < 4.:
		return model.RGB16{G: ramp(4 - h), B: 0xFFFF}
	case h < 5.:
		return model.RGB16{R: ramp(h - 4), B: 0xFFFF}
	default:
		return model.RGB16{R: 0xFFFF, B: ramp(6 - h)}
	}
}
