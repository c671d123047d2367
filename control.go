package tlc59711

import "fmt"

// FunctionControl holds the five chip-wide mode bits of the control word.
type FunctionControl uint8

const (
	BLANK  FunctionControl = 1 << iota // all outputs off
	DSPRPT                             // auto display repeat
	TMGRST                             // display timing reset on latch
	EXTGCK                             // external grayscale clock (SCKI)
	OUTTMG                             // outputs change on the rising edge

	// OUTTMG=1, EXTGCK=0, TMGRST=0, DSPRPT=1, BLANK=0.
	fcBase = OUTTMG | DSPRPT
)

const (
	// WriteCommand occupies the top six bits of every control word.
	WriteCommand uint32 = 0x25

	// MaxBrightness is the largest 7-bit brightness control value.
	MaxBrightness uint8 = 0x7F
)

func (fc FunctionControl) String() string {
	return fmt.Sprintf("FC(%#02x)", uint8(fc))
}

// Control is a decoded 32-bit control word.
type Control struct {
	Magic uint8
	FC    FunctionControl
	BCR   uint8
	BCG   uint8
	BCB   uint8
}

// ControlWord encodes fc and the three brightness values. Every field is
// truncated to its bit width.
func ControlWord(fc FunctionControl, bcr, bcg, bcb uint8) uint32 {
	return WriteCommand<<26 |
		uint32(fc&0x1F)<<21 |
		uint32(bcb&0x7F)<<14 |
		uint32(bcg&0x7F)<<7 |
		uint32(bcr&0x7F)
}

func DecodeControl(w uint32) Control {
	return Control{
		Magic: uint8(w >> 26),
		FC:    FunctionControl(w>>21) & 0x1F,
		BCB:   uint8(w>>14) & 0x7F,
		BCG:   uint8(w>>7) & 0x7F,
		BCR:   uint8(w) & 0x7F,
	}
}

// FunctionControl returns the mode bits used for subsequent brightness writes.
func (f *Frame) FunctionControl() FunctionControl {
	return f.fc
}

// SetBrightness writes chip's control word with the current function
// control bits. Out of range chips are ignored; brightness values keep only
// their low seven bits.
func (f *Frame) SetBrightness(chip int, bcr, bcg, bcb uint8) {
	if chip < 0 || chip >= f.chips {
		return
	}
	w := ControlWord(f.fc, bcr, bcg, bcb)
	idx := WordsPerChip * chip
	f.words[idx+controlLo] = uint16(w)
	f.words[idx+controlHi] = uint16(w >> 16)
}

// SetAllBrightness applies the same brightness to every chip.
func (f *Frame) SetAllBrightness(bcr, bcg, bcb uint8) {
	for i := 0; i < f.chips; i++ {
		f.SetBrightness(i, bcr, bcg, bcb)
	}
}

// SetTmgrst sets or clears the TMGRST bit. Rewriting the control words
// resets the brightness of every chip to the maximum.
func (f *Frame) SetTmgrst(val bool) {
	f.fc = fcBase
	if val {
		f.fc |= TMGRST
	}
	f.SetAllBrightness(MaxBrightness, MaxBrightness, MaxBrightness)
}

// ControlWordAt returns the raw control word stored for chip.
func (f *Frame) ControlWordAt(chip int) (uint32, bool) {
	if chip < 0 || chip >= f.chips {
		return 0, false
	}
	idx := WordsPerChip * chip
	return uint32(f.words[idx+controlHi])<<16 | uint32(f.words[idx+controlLo]), true
}

// Control decodes the control word stored for chip.
func (f *Frame) Control(chip int) (Control, bool) {
	w, ok := f.ControlWordAt(chip)
	if !ok {
		return Control{}, false
	}
	return DecodeControl(w), true
}
