package model

import (
	"image"
)

// Geometry of a single TLC59711 block in the frame buffer.
const (
	LedsPerChip     = 4
	ChannelsPerLed  = 3
	ChannelsPerChip = LedsPerChip * ChannelsPerLed
	// Grayscale words plus the two control word halves.
	WordsPerChip = ChannelsPerChip + 2
)

// Led addresses one RGB output of the chain. Index counts from the chip
// closest to the controller.
type Led struct {
	Index int
	Chip  int
	Slot  int
}

// Channels returns the logical channel indices of the LED's R, G and B lines.
func (l Led) Channels() (r, g, b int) {
	r = l.Index * ChannelsPerLed
	return r, r + 1, r + 2
}

// Chain describes a daisy chain of chips. Position 0 is wired to the
// controller.
type Chain struct {
	chips int
}

func NewChain(chips int) Chain {
	if chips < 0 {
		chips = 0
	}
	return Chain{chips: chips}
}

func (c Chain) Chips() int {
	return c.chips
}

func (c Chain) LedCount() int {
	return c.chips * LedsPerChip
}

func (c Chain) ChannelCount() int {
	return c.chips * ChannelsPerChip
}

// Led returns the LED at index i, or false when i is outside the chain.
func (c Chain) Led(i int) (Led, bool) {
	if i < 0 || i >= c.LedCount() {
		return Led{}, false
	}
	return Led{Index: i, Chip: i / LedsPerChip, Slot: i % LedsPerChip}, true
}

func (c Chain) Leds() []Led {
	r := make([]Led, 0, c.LedCount())
	for i := 0; i < c.LedCount(); i++ {
		l, _ := c.Led(i)
		r = append(r, l)
	}
	return r
}

// ChipLeds returns the LEDs driven by chip, in slot order.
func (c Chain) ChipLeds(chip int) []Led {
	if chip < 0 || chip >= c.chips {
		return nil
	}
	r := make([]Led, 0, LedsPerChip)
	for s := 0; s < LedsPerChip; s++ {
		l, _ := c.Led(chip*LedsPerChip + s)
		r = append(r, l)
	}
	return r
}

// Bounds is the one-row pixel rectangle covering every LED of the chain.
func (c Chain) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.LedCount(), 1)
}

// Image returns a blank one-row image with a pixel per LED.
func (c Chain) Image() *image.RGBA64 {
	return image.NewRGBA64(c.Bounds())
}

// Fill paints every pixel of im with col.
func Fill(im *image.RGBA64, col RGB16) {
	for x := im.Rect.Min.X; x < im.Rect.Max.X; x++ {
		for y := im.Rect.Min.Y; y < im.Rect.Max.Y; y++ {
			im.SetRGBA64(x, y, col.RGBA64())
		}
	}
}
