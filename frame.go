package tlc59711

import (
	"errors"

	"github.com/coreman2200/tlc59711/model"
)

// Frame geometry re-exported from model for callers of this package.
const (
	LedsPerChip     = model.LedsPerChip
	ChannelsPerChip = model.ChannelsPerChip
	WordsPerChip    = model.WordsPerChip

	// Offsets of the control word halves inside a chip block.
	controlLo = ChannelsPerChip
	controlHi = ChannelsPerChip + 1
)

// ChannelOffset maps a logical channel index to its word offset in the frame,
// skipping the two control words that close every chip block.
func ChannelOffset(idx int) int {
	return WordsPerChip*(idx/ChannelsPerChip) + idx%ChannelsPerChip
}

// BuildOffsetTable precomputes ChannelOffset for every channel of a chain.
func BuildOffsetTable(chips int) []uint32 {
	n := chips * ChannelsPerChip
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = uint32(ChannelOffset(i))
	}
	return out
}

// Frame is the in-memory image of the whole chain's shift registers. It
// holds 14 words per chip: 12 grayscale channels followed by the low and
// high halves of the chip's control word. The length never changes.
type Frame struct {
	words   []uint16
	offsets []uint32
	chips   int
	fc      FunctionControl
}

// NewFrame allocates an all-zero frame for chips chained devices.
func NewFrame(chips int) (*Frame, error) {
	if chips < 1 {
		return nil, errors.New("tlc59711: chip count must be at least 1")
	}
	return &Frame{
		words:   make([]uint16, chips*WordsPerChip),
		offsets: BuildOffsetTable(chips),
		chips:   chips,
		fc:      fcBase | TMGRST,
	}, nil
}

func (f *Frame) Chips() int {
	return f.chips
}

// Len is the frame length in 16-bit words.
func (f *Frame) Len() int {
	return len(f.words)
}

// Word returns the raw word at offset i, or 0 when i is out of bounds.
func (f *Frame) Word(i int) uint16 {
	if i < 0 || i >= len(f.words) {
		return 0
	}
	return f.words[i]
}

// Words returns a copy of the raw frame.
func (f *Frame) Words() []uint16 {
	out := make([]uint16, len(f.words))
	copy(out, f.words)
	return out
}

// Offset maps a logical channel through the cached table. ok is false for
// channels outside the chain.
func (f *Frame) Offset(idx int) (int, bool) {
	if idx < 0 || idx >= len(f.offsets) {
		return 0, false
	}
	return int(f.offsets[idx]), true
}

// SetChannel sets one grayscale channel. Out of range indices are ignored.
func (f *Frame) SetChannel(idx int, val uint16) {
	if off, ok := f.Offset(idx); ok {
		f.words[off] = val
	}
}

// Channel reads one grayscale channel; 0 when idx is out of range.
func (f *Frame) Channel(idx int) uint16 {
	if off, ok := f.Offset(idx); ok {
		return f.words[off]
	}
	return 0
}

// SetRGB sets the three channels of LED idx (channels 3*idx .. 3*idx+2).
func (f *Frame) SetRGB(idx int, r, g, b uint16) {
	idx = 3 * idx
	f.SetChannel(idx, r)
	f.SetChannel(idx+1, g)
	f.SetChannel(idx+2, b)
}

// RGB reads back the three channels of LED idx.
func (f *Frame) RGB(idx int) (r, g, b uint16) {
	idx = 3 * idx
	return f.Channel(idx), f.Channel(idx + 1), f.Channel(idx + 2)
}

// SetAllRGB sets every LED of every chip.
func (f *Frame) SetAllRGB(r, g, b uint16) {
	for i, n := 0, LedsPerChip*f.chips; i < n; i++ {
		f.SetRGB(i, r, g, b)
	}
}

// Reset restores the device default state: grayscale 0 and maximum
// brightness on every chip.
func (f *Frame) Reset() {
	f.SetAllRGB(0, 0, 0)
	f.SetAllBrightness(MaxBrightness, MaxBrightness, MaxBrightness)
}
