// Package spi implements tlc59711.Bus on top of periph.io: a spi.Port for
// the peripheral modes and two gpio.PinOut for bit-banging.
package spi

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/coreman2200/tlc59711"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	pspi "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/cpu"
)

var _ tlc59711.Bus = (*Bus)(nil)

// defaultMaxTx is used when the connection does not report its limits.
const defaultMaxTx = 4096

// Opts configures a Bus.
type Opts struct {
	// Port is the spireg name used by Open; empty selects the first port.
	Port string
	// PinByName resolves the bit-bang pin names. Defaults to gpioreg.ByName.
	PinByName func(name string) gpio.PinOut
	// Priority is the SCHED_FIFO priority of the critical section on Linux.
	// Zero disables the priority change; the goroutine is still pinned to
	// its OS thread.
	Priority int
	Logger   *zerolog.Logger
}

// Bus drives a TLC59711 chain through periph.io.
type Bus struct {
	mu sync.Mutex

	port   pspi.Port
	closer io.Closer
	conn   pspi.Conn
	clock  physic.Frequency
	begun  bool
	maxTx  int
	w16    [2]byte

	byName func(string) gpio.PinOut
	pins   [2]gpio.PinOut

	prio  int
	depth int
	saved schedState

	log zerolog.Logger
}

// New wraps an already opened port. p may be nil when only Bitbang is used.
func New(p pspi.Port, o *Opts) *Bus {
	if o == nil {
		o = &Opts{}
	}
	b := &Bus{
		port:   p,
		byName: o.PinByName,
		prio:   o.Priority,
		log:    zerolog.Nop(),
	}
	if b.byName == nil {
		b.byName = func(name string) gpio.PinOut {
			if pin := gpioreg.ByName(name); pin != nil {
				return pin
			}
			return nil
		}
	}
	if o.Logger != nil {
		b.log = o.Logger.With().Str("bus", b.String()).Logger()
	}
	return b
}

// Open initializes the host drivers and opens the SPI port named in o.
func Open(o *Opts) (*Bus, error) {
	if o == nil {
		o = &Opts{}
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spi: host init: %w", err)
	}
	p, err := spireg.Open(o.Port)
	if err != nil {
		return nil, fmt.Errorf("spi: open %q: %w", o.Port, err)
	}
	b := New(p, o)
	b.closer = p
	return b, nil
}

// OpenPins initializes the host drivers for a Bus that only bit-bangs.
func OpenPins(o *Opts) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spi: host init: %w", err)
	}
	return New(nil, o), nil
}

func (b *Bus) String() string {
	if b.port == nil {
		return "periph(gpio)"
	}
	return fmt.Sprintf("periph(%s)", b.port)
}

// Begin connects the port in mode 0, 8 bits per word. periph.io ports can
// only be connected once, so later calls keep the first clock.
func (b *Bus) Begin(f physic.Frequency) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return errors.New("spi: no port")
	}
	if b.conn == nil {
		c, err := b.port.Connect(f, pspi.Mode0, 8)
		if err != nil {
			return fmt.Errorf("spi: connect: %w", err)
		}
		b.conn = c
		b.clock = f
		b.maxTx = defaultMaxTx
		if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
			b.maxTx = l.MaxTxSize()
		}
		b.log.Debug().Stringer("clock", f).Int("max_tx", b.maxTx).Msg("connected")
	} else if f != b.clock {
		b.log.Warn().Stringer("clock", b.clock).Stringer("requested", f).Msg("port already connected, keeping clock")
	}
	b.begun = true
	return nil
}

func (b *Bus) Transfer16(w uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.begun {
		return errors.New("spi: not started")
	}
	b.w16[0] = byte(w >> 8)
	b.w16[1] = byte(w)
	return b.conn.Tx(b.w16[:], nil)
}

// Transfer sends p in chunks no larger than the port's transaction limit.
func (b *Bus) Transfer(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.begun {
		return errors.New("spi: not started")
	}
	for len(p) > 0 {
		n := len(p)
		if n > b.maxTx {
			n = b.maxTx
		}
		if err := b.conn.Tx(p[:n], nil); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (b *Bus) End() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.begun = false
	return nil
}

// SetupPins resolves clk and data and drives both low.
func (b *Bus) SetupPins(clk, data string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if clk == data {
		return fmt.Errorf("spi: clock and data share pin %q", clk)
	}
	for i, name := range []string{clk, data} {
		p := b.byName(name)
		if p == nil {
			return fmt.Errorf("spi: unknown pin %q", name)
		}
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("spi: %s: %w", name, err)
		}
		b.pins[i] = p
	}
	b.log.Debug().Str("clk", clk).Str("data", data).Msg("pins ready")
	return nil
}

func (b *Bus) Out(l tlc59711.Line, level gpio.Level) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(l) >= len(b.pins) || b.pins[l] == nil {
		return fmt.Errorf("spi: %s not configured", l)
	}
	return b.pins[l].Out(level)
}

func (b *Bus) DelayMicros(us uint32) {
	cpu.Nanospin(time.Duration(us) * time.Microsecond)
}

// DisableInterrupts cannot mask interrupts from user space. It pins the
// calling goroutine to its OS thread and, when a priority is configured,
// moves that thread to the real-time scheduler until the matching
// RestoreInterrupts. Calls nest.
func (b *Bus) DisableInterrupts() tlc59711.InterruptState {
	b.depth++
	if b.depth == 1 {
		runtime.LockOSThread()
		if b.prio > 0 {
			s, err := raise(b.prio)
			if err != nil {
				b.log.Warn().Err(err).Msg("real-time priority unavailable")
			}
			b.saved = s
		}
	}
	return tlc59711.InterruptState(b.depth)
}

func (b *Bus) RestoreInterrupts(s tlc59711.InterruptState) {
	if int(s) != b.depth {
		b.log.Warn().Int("depth", b.depth).Uint64("state", uint64(s)).Msg("unbalanced restore")
	}
	b.depth = int(s) - 1
	if b.depth > 0 {
		return
	}
	b.depth = 0
	if err := lower(b.saved); err != nil {
		b.log.Warn().Err(err).Msg("restoring scheduler")
	}
	b.saved = schedState{}
	runtime.UnlockOSThread()
}

// Halt drives both bit-bang pins low.
func (b *Bus) Halt() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.pins {
		if p != nil {
			if err := p.Out(gpio.Low); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases the port opened by Open.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.begun = false
	b.conn = nil
	if b.closer == nil {
		return nil
	}
	err := b.closer.Close()
	b.closer = nil
	return err
}
