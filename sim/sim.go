// Package sim is a tlc59711.Bus that records the emitted bit stream instead
// of driving hardware, and models the chain's shift registers to decode it.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreman2200/tlc59711"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var _ tlc59711.Bus = (*Bus)(nil)

// Bus records what a Dev sends. Like the chain it models, it only retains
// the last Chips*BitsPerChip bits (one register when Chips is unset) and the
// last MaxDelays settle delays; totals are counted. The zero value is ready
// to use.
type Bus struct {
	mu sync.Mutex

	clock   physic.Frequency
	began   bool
	begins  int
	pins    bool
	clkName string
	dtName  string
	clk     gpio.Level
	data    gpio.Level

	// bits holds at most two register windows; only the newest window is
	// ever read.
	bits     []byte
	total    int
	masked   int
	depth    int
	unmasked int
	delays   []uint32
	settles  int
	blocks   int
	words    int

	// Latched is called with the decoded chain after every settle delay.
	Latched func(chips []Chip)
	// Chips sets the chain length used for Latched decoding and the size of
	// the retained window.
	Chips int
	// Fail, when set, is returned by the next transfer or pin write.
	Fail error
}

// MaxDelays is how many settle delays Stats reports.
const MaxDelays = 64

func New(chips int) *Bus {
	return &Bus{Chips: chips}
}

func (b *Bus) String() string {
	return "sim"
}

func (b *Bus) Begin(f physic.Frequency) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock = f
	b.began = true
	b.begins++
	return nil
}

func (b *Bus) End() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.began = false
	return nil
}

func (b *Bus) Transfer16(w uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLocked(); err != nil {
		return err
	}
	b.words++
	b.pushByte(byte(w >> 8))
	b.pushByte(byte(w))
	return nil
}

func (b *Bus) Transfer(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLocked(); err != nil {
		return err
	}
	b.blocks++
	for _, v := range p {
		b.pushByte(v)
	}
	return nil
}

func (b *Bus) SetupPins(clk, data string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if clk == "" || data == "" || clk == data {
		return fmt.Errorf("sim: invalid pins %q/%q", clk, data)
	}
	b.pins = true
	b.clkName, b.dtName = clk, data
	b.clk, b.data = gpio.Low, gpio.Low
	return nil
}

// Out samples the data line on every rising clock edge.
func (b *Bus) Out(l tlc59711.Line, level gpio.Level) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pins {
		return errors.New("sim: pins not configured")
	}
	if b.Fail != nil {
		err := b.Fail
		b.Fail = nil
		return err
	}
	switch l {
	case tlc59711.ClockLine:
		if level == gpio.High && b.clk == gpio.Low {
			b.pushBit(b.data)
		}
		b.clk = level
	case tlc59711.DataLine:
		b.data = level
	default:
		return fmt.Errorf("sim: unknown line %d", l)
	}
	return nil
}

// DelayMicros records the delay and latches the chain.
func (b *Bus) DelayMicros(us uint32) {
	b.mu.Lock()
	if len(b.delays) >= 2*MaxDelays {
		b.delays = append(b.delays[:0], b.delays[MaxDelays:]...)
	}
	b.delays = append(b.delays, us)
	b.settles++
	fn, chips := b.Latched, b.Chips
	var decoded []Chip
	if fn != nil && chips > 0 {
		decoded = decode(b.window(), chips)
	}
	b.mu.Unlock()
	if fn != nil && chips > 0 {
		fn(decoded)
	}
}

func (b *Bus) DisableInterrupts() tlc59711.InterruptState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depth++
	return tlc59711.InterruptState(b.depth)
}

func (b *Bus) RestoreInterrupts(s tlc59711.InterruptState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depth = int(s) - 1
}

func (b *Bus) checkLocked() error {
	if !b.began {
		return errors.New("sim: peripheral not started")
	}
	if b.Fail != nil {
		err := b.Fail
		b.Fail = nil
		return err
	}
	return nil
}

func (b *Bus) pushByte(v byte) {
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		b.pushBit(v&mask != 0)
	}
}

func (b *Bus) pushBit(l gpio.Level) {
	var v byte
	if l {
		v = 1
	}
	if n := b.windowLen(); len(b.bits) >= 2*n {
		b.bits = append(b.bits[:0], b.bits[len(b.bits)-n:]...)
	}
	b.bits = append(b.bits, v)
	b.total++
	if b.depth > 0 {
		b.masked++
	} else {
		b.unmasked++
	}
}

func (b *Bus) windowLen() int {
	if b.Chips > 0 {
		return b.Chips * BitsPerChip
	}
	return BitsPerChip
}

// window is the content of the chain's shift registers.
func (b *Bus) window() []byte {
	if n := b.windowLen(); len(b.bits) > n {
		return b.bits[len(b.bits)-n:]
	}
	return b.bits
}

func (b *Bus) recentDelays() []uint32 {
	d := b.delays
	if len(d) > MaxDelays {
		d = d[len(d)-MaxDelays:]
	}
	return append([]uint32(nil), d...)
}

// Stats summarizes what the bus saw since the last Reset. Delays holds the
// most recent settle delays, oldest first, and Settles counts all of them.
type Stats struct {
	Clock        physic.Frequency
	Begins       int
	Bits         int
	MaskedBits   int
	UnmaskedBits int
	Blocks       int
	Words        int
	Delays       []uint32
	Settles      int
	Masked       bool
}

func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Clock:        b.clock,
		Begins:       b.begins,
		Bits:         b.total,
		MaskedBits:   b.masked,
		UnmaskedBits: b.unmasked,
		Blocks:       b.blocks,
		Words:        b.words,
		Delays:       b.recentDelays(),
		Settles:      b.settles,
		Masked:       b.depth > 0,
	}
}

// Bits returns a copy of the retained stream, one 0/1 byte per bit.
func (b *Bus) Bits() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.window()...)
}

// Bytes packs the retained stream MSB first. A trailing partial byte is
// padded with zeros.
func (b *Bus) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return pack(b.window())
}

// Reset clears the recording but keeps the peripheral and pin state.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bits = nil
	b.total, b.masked, b.unmasked = 0, 0, 0
	b.delays, b.settles = nil, 0
	b.blocks, b.words = 0, 0
}

// Decode returns the state of a chain of chips after the retained stream.
// Registers beyond the bus's own chain length read as zero.
func (b *Bus) Decode(chips int) []Chip {
	b.mu.Lock()
	defer b.mu.Unlock()
	return decode(b.window(), chips)
}

func pack(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}
