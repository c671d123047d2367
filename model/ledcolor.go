package model

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

const (
	RED_OFFSET   uint8 = 0x10
	GREEN_OFFSET uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

// RGB16 holds the three 16-bit grayscale values of one LED.
type RGB16 struct {
	R, G, B uint16
}

// RGB16Of converts any color to its 16-bit RGB components. Alpha is dropped.
func RGB16Of(c color.Color) RGB16 {
	v := color.RGBA64Model.Convert(c).(color.RGBA64)
	return RGB16{R: v.R, G: v.G, B: v.B}
}

// RGBA implements color.Color; the value is always opaque.
func (c RGB16) RGBA() (r, g, b, a uint32) {
	return uint32(c.R), uint32(c.G), uint32(c.B), 0xffff
}

func (c RGB16) RGBA64() color.RGBA64 {
	return color.RGBA64{R: c.R, G: c.G, B: c.B, A: 0xffff}
}

func (c RGB16) String() string {
	return fmt.Sprintf("RGB16{%#04x,%#04x,%#04x}", c.R, c.G, c.B)
}

// Scale8 widens an 8-bit level to the full 16-bit range (0xff -> 0xffff).
func Scale8(v uint8) uint16 {
	return uint16(v) * 0x101
}

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & mask) >> off)
}

func setcolor(c uint32, n uint8, off uint8) uint32 {
	var val uint32 = uint32(n) << off
	var mask uint32 = 0xFF << off
	return (c & (^mask)) | val
}

// FromPacked expands a 0xRRGGBB value to 16-bit channels.
func FromPacked(c uint32) RGB16 {
	return RGB16{
		R: Scale8(getcolor(c, RED_OFFSET)),
		G: Scale8(getcolor(c, GREEN_OFFSET)),
		B: Scale8(getcolor(c, BLUE_OFFSET)),
	}
}

// Packed narrows c to 0xRRGGBB using the high byte of each channel.
func (c RGB16) Packed() uint32 {
	var v uint32
	v = setcolor(v, uint8(c.R>>8), RED_OFFSET)
	v = setcolor(v, uint8(c.G>>8), GREEN_OFFSET)
	v = setcolor(v, uint8(c.B>>8), BLUE_OFFSET)
	return v
}

// ParseHex reads "ff8800", "#ff8800" or "0xff8800".
func ParseHex(s string) (RGB16, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "#"), "0x")
	if len(t) != 6 {
		return RGB16{}, fmt.Errorf("model: color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return RGB16{}, fmt.Errorf("model: color %q: %w", s, err)
	}
	return FromPacked(uint32(v)), nil
}
