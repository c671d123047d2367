package sim

import (
	"github.com/coreman2200/tlc59711"
)

// BitsPerChip is the length of one TLC59711 shift register.
const BitsPerChip = 16 * tlc59711.WordsPerChip

// Chip is the latched content of one shift register.
type Chip struct {
	Control   uint32
	Grayscale [tlc59711.ChannelsPerChip]uint16
}

// Decoded splits the control word into its fields.
func (c Chip) Decoded() tlc59711.Control {
	return tlc59711.DecodeControl(c.Control)
}

// Valid reports whether the chip would accept the data: the top six bits
// must carry the write command.
func (c Chip) Valid() bool {
	return c.Decoded().Magic == uint8(tlc59711.WriteCommand)
}

// decode models the chain as one long shift register fed at chip 0. The
// first bit clocked in ends up at the far end, so chip k holds the window
// that starts (chips-1-k) registers into the tail of the stream. Inside a
// window the control word comes first, then grayscale channels 11 down to 0.
func decode(bits []byte, chips int) []Chip {
	if chips <= 0 {
		return nil
	}
	n := chips * BitsPerChip
	reg := make([]byte, n)
	if len(bits) >= n {
		copy(reg, bits[len(bits)-n:])
	} else {
		copy(reg[n-len(bits):], bits)
	}
	out := make([]Chip, chips)
	for k := 0; k < chips; k++ {
		win := reg[(chips-1-k)*BitsPerChip : (chips-k)*BitsPerChip]
		out[k].Control = uint32(read(win[:32]))
		for ch := 0; ch < tlc59711.ChannelsPerChip; ch++ {
			pos := 32 + (tlc59711.ChannelsPerChip-1-ch)*16
			out[k].Grayscale[ch] = uint16(read(win[pos : pos+16]))
		}
	}
	return out
}

func read(bits []byte) uint64 {
	var v uint64
	for _, b := range bits {
		v = v<<1 | uint64(b&1)
	}
	return v
}
