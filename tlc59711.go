// Package tlc59711 drives daisy-chained TI TLC59711 12-channel, 16-bit PWM
// LED drivers.
//
// A Dev keeps the whole chain's shift register contents in a Frame. Setters
// only touch the frame; Write shifts it out through the configured Bus, far
// end of the chain first, then waits for the chips to latch.
//
// Index order follows the datasheet, chip 0 being the one wired to the
// controller:
//
//	channel: 0:R0 (chip 0), 1:G0, ..., 12:R0 (chip 1), ...
//	LED:     0:R0,G0,B0 (chip 0), ..., 4:R0,G0,B0 (chip 1), ...
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/tlc59711.pdf
package tlc59711

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// DevOpts configures a chain.
type DevOpts struct {
	// Chips is the number of chained devices; fixed for the Dev's lifetime.
	Chips int
	// ClockPin and DataPin name the pins used in Bitbang mode.
	ClockPin string
	DataPin  string
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// DefaultDevOpts drives a single chip from the SPI0 pins of a Raspberry Pi.
var DefaultDevOpts = DevOpts{
	Chips:    1,
	ClockPin: "GPIO11",
	DataPin:  "GPIO10",
}

// State of the transfer side of a Dev.
type State uint8

const (
	Uninitialized State = iota
	Configured
	Ended
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Configured:
		return "configured"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Dev is a handle to a chain of TLC59711s. It is not safe for concurrent
// use; only one transfer may be in flight on a bus.
type Dev struct {
	*Frame

	bus      Bus
	log      zerolog.Logger
	clkPin   string
	dataPin  string
	state    State
	opts     Opts
	xferBuf  []byte
	xferImpl func() error
}

// New returns a Dev in the default state: all grayscale values 0, all
// brightness values 127 and TMGRST set. Nothing is sent until Begin and Write
// are called.
func New(b Bus, o *DevOpts) (*Dev, error) {
	if b == nil {
		return nil, errors.New("tlc59711: nil bus")
	}
	if o == nil {
		o = &DefaultDevOpts
	}
	f, err := NewFrame(o.Chips)
	if err != nil {
		return nil, err
	}
	d := &Dev{
		Frame:   f,
		bus:     b,
		log:     zerolog.Nop(),
		clkPin:  o.ClockPin,
		dataPin: o.DataPin,
		// Sized once here and reused by every bulk Write, whatever the mode.
		xferBuf: make([]byte, 2*f.Len()),
	}
	if o.Logger != nil {
		d.log = o.Logger.With().Str("dev", "tlc59711").Int("chips", o.Chips).Logger()
	}
	d.SetTmgrst(true)
	return d, nil
}

func (d *Dev) String() string {
	if d.state != Configured {
		return fmt.Sprintf("tlc59711{chips=%d, %s}", d.chips, d.state)
	}
	return fmt.Sprintf("tlc59711{chips=%d, mode=%s, %s}", d.chips, d.opts.Mode, d.state)
}

func (d *Dev) State() State {
	return d.state
}

// Mode returns the transfer strategy of the current configuration. It is
// only meaningful while the Dev is Configured.
func (d *Dev) Mode() Mode {
	return d.opts.Mode
}

// Opts returns the active transfer configuration, or the last one after
// End. It is zero after a failed Begin.
func (d *Dev) Opts() Opts {
	return d.opts
}
