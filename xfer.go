package tlc59711

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Mode selects how the frame reaches the chain.
type Mode uint8

const (
	// Bulk reverses the frame into a byte buffer and sends it with one block
	// transfer on the hardware peripheral.
	Bulk Mode = iota
	// Wordwise sends one 16-bit peripheral transfer per frame word.
	Wordwise
	// Bitbang toggles the clock and data pins directly.
	Bitbang
)

func (m Mode) String() string {
	switch m {
	case Bulk:
		return "bulk"
	case Wordwise:
		return "wordwise"
	case Bitbang:
		return "bitbang"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{Bulk, Wordwise, Bitbang} {
		if s == m.String() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("tlc59711: unknown mode %q", s)
}

// Hardware reports whether m uses the serial peripheral.
func (m Mode) Hardware() bool {
	return m == Bulk || m == Wordwise
}

// Opts configures the transfer side of a Dev.
type Opts struct {
	Mode Mode
	// Clock is the peripheral clock; ignored in Bitbang mode.
	Clock physic.Frequency
	// SettleMicros is waited after every transfer so the chips latch. It has
	// to cover eight clock periods plus 1.34µs, see MinSettle.
	SettleMicros uint32
	// Interrupts leaves interrupts enabled during a Bitbang transfer.
	// Peripheral transfers always run with interrupts masked.
	Interrupts bool
}

// DefaultOpts returns the defaults for m: 10MHz and 4µs for the peripheral
// modes, 200µs with interrupts masked for Bitbang.
func DefaultOpts(m Mode) Opts {
	if m.Hardware() {
		return Opts{Mode: m, Clock: 10 * physic.MegaHertz, SettleMicros: 4}
	}
	return Opts{Mode: Bitbang, SettleMicros: 200}
}

// Begin selects the transfer strategy and claims the bus. Any previous
// configuration is ended first. A nil o means DefaultOpts(Bulk). On error
// the Dev is left unconfigured with zero Opts.
func (d *Dev) Begin(o *Opts) error {
	err := d.End()
	d.opts = Opts{}
	if err != nil {
		return err
	}
	opts := DefaultOpts(Bulk)
	if o != nil {
		opts = *o
	}
	switch opts.Mode {
	case Bulk, Wordwise:
		if opts.Clock <= 0 {
			opts.Clock = DefaultOpts(opts.Mode).Clock
		}
		if err := d.bus.Begin(opts.Clock); err != nil {
			return wrap(err)
		}
		if opts.Mode == Bulk {
			d.xferImpl = d.xferBulk
		} else {
			d.xferImpl = d.xferWordwise
		}
	case Bitbang:
		if err := d.bus.SetupPins(d.clkPin, d.dataPin); err != nil {
			return wrap(err)
		}
		d.xferImpl = d.xferBitbang
	default:
		return fmt.Errorf("tlc59711: unknown mode %d", opts.Mode)
	}
	d.opts = opts
	d.state = Configured
	d.log.Debug().
		Stringer("mode", opts.Mode).
		Stringer("clock", opts.Clock).
		Uint32("settle_us", opts.SettleMicros).
		Bool("interrupts", opts.Interrupts).
		Msg("begin")
	if opts.Mode.Hardware() && opts.SettleMicros < MinSettleMicros(opts.Clock) {
		d.log.Warn().
			Uint32("settle_us", opts.SettleMicros).
			Uint32("min_us", MinSettleMicros(opts.Clock)).
			Msg("settle delay shorter than the latch time")
	}
	return nil
}

// Write shifts the frame out to the chain and waits the settle delay. It is
// a no-op returning nil unless the Dev is configured.
func (d *Dev) Write() error {
	if d.state != Configured {
		return nil
	}
	g := guard{
		host:   d.bus,
		mask:   d.opts.Mode.Hardware() || !d.opts.Interrupts,
		settle: d.opts.SettleMicros,
	}
	if err := g.run(d.xferImpl); err != nil {
		d.log.Warn().Err(err).Stringer("mode", d.opts.Mode).Msg("transfer failed")
		return wrap(err)
	}
	return nil
}

// End releases the bus. The frame is kept; Write is a no-op until the next
// Begin.
func (d *Dev) End() error {
	if d.state != Configured {
		return nil
	}
	d.state = Ended
	d.xferImpl = nil
	d.log.Debug().Stringer("mode", d.opts.Mode).Msg("end")
	if d.opts.Mode.Hardware() {
		return wrap(d.bus.End())
	}
	return nil
}

// Stream returns the bytes of the frame in wire order: last word first, high
// byte first. dst is reused when it has room.
func (f *Frame) Stream(dst []byte) []byte {
	n := 2 * len(f.words)
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, j := len(f.words)-1, 0; i >= 0; i, j = i-1, j+2 {
		w := f.words[i]
		dst[j] = byte(w >> 8)
		dst[j+1] = byte(w)
	}
	return dst
}

func (d *Dev) xferBulk() error {
	d.xferBuf = d.Stream(d.xferBuf)
	return d.bus.Transfer(d.xferBuf)
}

func (d *Dev) xferWordwise() error {
	for i := len(d.words) - 1; i >= 0; i-- {
		if err := d.bus.Transfer16(d.words[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dev) xferBitbang() error {
	for i := len(d.words) - 1; i >= 0; i-- {
		w := d.words[i]
		if err := d.shiftOut(byte(w >> 8)); err != nil {
			return err
		}
		if err := d.shiftOut(byte(w)); err != nil {
			return err
		}
	}
	return nil
}

// shiftOut clocks v out MSB first: data is set while the clock is low and
// sampled by the chip on the rising edge.
func (d *Dev) shiftOut(v byte) error {
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		if err := d.bus.Out(DataLine, v&mask != 0); err != nil {
			return err
		}
		if err := d.bus.Out(ClockLine, gpio.High); err != nil {
			return err
		}
		if err := d.bus.Out(ClockLine, gpio.Low); err != nil {
			return err
		}
	}
	return nil
}
