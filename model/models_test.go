package model_test

import (
	"fmt"
	"image/color"
	"strconv"
	"testing"

	. "github.com/coreman2200/tlc59711/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var TestPackedIsExpectedColor = []struct {
	Packed uint32
	Expect RGB16
}{
	{0xFF0000, RGB16{R: 0xFFFF}},
	{0x00FF00, RGB16{G: 0xFFFF}},
	{0x0000FF, RGB16{B: 0xFFFF}},
	{0x112233, RGB16{R: 0x1111, G: 0x2222, B: 0x3333}},
	{0x80FF01, RGB16{R: 0x8080, G: 0xFFFF, B: 0x0101}},
}

func EntryBitRepresentation(c RGB16) {
	fmt.Println("Red:" + strconv.FormatInt(int64(c.R), 2) + "(0x" + strconv.FormatInt(int64(c.R), 16) + ")")
	fmt.Println("Green:" + strconv.FormatInt(int64(c.G), 2) + "(0x" + strconv.FormatInt(int64(c.G), 16) + ")")
	fmt.Println("Blue:" + strconv.FormatInt(int64(c.B), 2) + "(0x" + strconv.FormatInt(int64(c.B), 16) + ")")
}

func TestColorsPacked(t *testing.T) {
	for k, v := range TestPackedIsExpectedColor {
		t.Run("Given packed"+strconv.FormatUint(uint64(k), 10), func(t *testing.T) {
			col := FromPacked(v.Packed)
			EntryBitRepresentation(col)
			assert.Equal(t, v.Expect, col, "should be same val")
			assert.Equal(t, v.Packed, col.Packed())
		})
	}
}

func TestParseHex(t *testing.T) {
	for _, s := range []string{"112233", "#112233", "0x112233", "0X112233"} {
		c, err := ParseHex(s)
		require.NoError(t, err, s)
		assert.Equal(t, RGB16{R: 0x1111, G: 0x2222, B: 0x3333}, c, s)
	}
	for _, s := range []string{"", "fff", "zz2233", "11223344"} {
		_, err := ParseHex(s)
		assert.Error(t, err, s)
	}
}

func TestRGB16Of(t *testing.T) {
	assert.Equal(t, RGB16{R: 0xFFFF}, RGB16Of(color.RGBA{R: 0xFF, A: 0xFF}))
	assert.Equal(t, RGB16{R: 1, G: 2, B: 3}, RGB16Of(color.RGBA64{R: 1, G: 2, B: 3, A: 0xFFFF}))
	assert.Equal(t, RGB16{G: 0x1234}, RGB16Of(RGB16{G: 0x1234}))
}

func TestChainLeds(t *testing.T) {
	c := NewChain(3)
	assert.Equal(t, 3, c.Chips())
	assert.Equal(t, 12, c.LedCount())
	assert.Equal(t, 36, c.ChannelCount())

	l, ok := c.Led(5)
	require.True(t, ok)
	assert.Equal(t, Led{Index: 5, Chip: 1, Slot: 1}, l)
	r, g, b := l.Channels()
	assert.Equal(t, []int{15, 16, 17}, []int{r, g, b})

	_, ok = c.Led(12)
	assert.False(t, ok)
	_, ok = c.Led(-1)
	assert.False(t, ok)

	assert.Len(t, c.Leds(), 12)
	cl := c.ChipLeds(2)
	require.Len(t, cl, 4)
	assert.Equal(t, 8, cl[0].Index)
	assert.Equal(t, 11, cl[3].Index)
	assert.Nil(t, c.ChipLeds(3))
}

func TestChainImage(t *testing.T) {
	c := NewChain(2)
	im := c.Image()
	assert.Equal(t, 8, im.Bounds().Dx())
	assert.Equal(t, 1, im.Bounds().Dy())

	Fill(im, RGB16{R: 7, G: 8, B: 9})
	assert.Equal(t, RGB16{R: 7, G: 8, B: 9}, RGB16Of(im.At(7, 0)))
}
