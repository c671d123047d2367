package tlc59711

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Line selects one of the two bit-banged signals.
type Line uint8

const (
	ClockLine Line = iota
	DataLine
)

func (l Line) String() string {
	switch l {
	case ClockLine:
		return "SCKI"
	case DataLine:
		return "SDTI"
	default:
		return "Line(?)"
	}
}

// InterruptState is whatever the host needs to undo DisableInterrupts.
type InterruptState uintptr

// Peripheral is a hardware serial peripheral running SPI mode 0, MSB first.
type Peripheral interface {
	// Begin claims the peripheral at clock frequency f.
	Begin(f physic.Frequency) error
	// Transfer16 shifts out one word, high byte first.
	Transfer16(w uint16) error
	// Transfer shifts out b in order.
	Transfer(b []byte) error
	// End releases the peripheral.
	End() error
}

// Pins drives the clock and data lines directly.
type Pins interface {
	// SetupPins configures the named pins as outputs, driven low.
	SetupPins(clk, data string) error
	Out(l Line, level gpio.Level) error
}

// Host provides timing and interrupt control.
type Host interface {
	DelayMicros(us uint32)
	DisableInterrupts() InterruptState
	RestoreInterrupts(s InterruptState)
}

// Bus is everything a Dev needs from the platform.
type Bus interface {
	Peripheral
	Pins
	Host
}
