package tlc59711

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// latchMargin is the chip-internal time added to eight SCKI periods before
// the shift register is latched (datasheet pg. 22).
const latchMargin = 1340 * time.Nanosecond

// MinSettle is the shortest post-transfer delay that lets the chips latch
// data clocked at f. Dev never applies it on its own; pass the value, rounded
// up, as Opts.SettleMicros.
func MinSettle(f physic.Frequency) time.Duration {
	if f <= 0 {
		return latchMargin
	}
	return 8*f.Period() + latchMargin
}

// MinSettleMicros is MinSettle rounded up to whole microseconds.
func MinSettleMicros(f physic.Frequency) uint32 {
	d := MinSettle(f)
	return uint32((d + time.Microsecond - 1) / time.Microsecond)
}

// guard runs a transfer with interrupts optionally masked and always issues
// the settle delay afterwards.
type guard struct {
	host   Host
	mask   bool
	settle uint32
}

func (g guard) run(xfer func() error) error {
	err := g.critical(xfer)
	g.host.DelayMicros(g.settle)
	return err
}

func (g guard) critical(xfer func() error) error {
	if g.mask {
		s := g.host.DisableInterrupts()
		defer g.host.RestoreInterrupts(s)
	}
	return xfer()
}
