package tlc59711

import (
	"image"
	"image/color"

	"github.com/coreman2200/tlc59711/model"
	"periph.io/x/conn/v3/display"
)

var _ display.Drawer = (*Dev)(nil)

// ColorModel implements display.Drawer. Each LED channel takes the full 16
// bits of the matching color component.
func (d *Dev) ColorModel() color.Model {
	return color.RGBA64Model
}

// Bounds implements display.Drawer: one row with a pixel per LED.
func (d *Dev) Bounds() image.Rectangle {
	return model.NewChain(d.chips).Bounds()
}

// Draw implements display.Drawer. Pixels of src are copied to the LEDs
// covered by dstRect, then the frame is written. Only the first row of
// dstRect is used.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	r := dstRect.Intersect(d.Bounds())
	srcR := src.Bounds()
	srcR = srcR.Add(dstRect.Min.Sub(sp))
	r = r.Intersect(srcR)
	if r.Empty() {
		return nil
	}
	delta := sp.Sub(dstRect.Min)
	y := r.Min.Y
	for x := r.Min.X; x < r.Max.X; x++ {
		c := model.RGB16Of(src.At(x+delta.X, y+delta.Y))
		d.SetRGB(x, c.R, c.G, c.B)
	}
	return d.Write()
}

// Halt implements conn.Resource. It turns every LED off.
func (d *Dev) Halt() error {
	d.SetAllRGB(0, 0, 0)
	return d.Write()
}

// Image returns the current grayscale values, one pixel per LED.
func (d *Dev) Image() *image.RGBA64 {
	ch := model.NewChain(d.chips)
	im := ch.Image()
	for _, l := range ch.Leds() {
		r, g, b := d.RGB(l.Index)
		im.SetRGBA64(l.Index, 0, model.RGB16{R: r, G: g, B: b}.RGBA64())
	}
	return im
}
