package tlc59711

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// traceBus logs the order of host calls and keeps the last block sent.
type traceBus struct {
	calls []string
	last  []byte
	fail  error
}

func (b *traceBus) Begin(physic.Frequency) error { return nil }
func (b *traceBus) End() error { return nil }
func (b *traceBus) Transfer16(uint16) error { return b.fail }
func (b *traceBus) Transfer(p []byte) error {
	b.calls = append(b.calls, "xfer")
	b.last = p
	return b.fail
}
func (b *traceBus) SetupPins(string, string) error { return nil }
func (b *traceBus) Out(Line, gpio.Level) error { return nil }
func (b *traceBus) DelayMicros(uint32) { b.calls = append(b.calls, "delay") }
func (b *traceBus) DisableInterrupts() InterruptState {
	b.calls = append(b.calls, "mask")
	return 7
}
func (b *traceBus) RestoreInterrupts(s InterruptState) {
	b.calls = append(b.calls, "restore")
}

func TestGuardOrder(t *testing.T) {
	b := &traceBus{}
	g := guard{host: b, mask: true, settle: 4}
	require.NoError(t, g.run(func() error { return b.Transfer(nil) }))
	assert.Equal(t, []string{"mask", "xfer", "restore", "delay"}, b.calls)

	b.calls = nil
	g.mask = false
	require.NoError(t, g.run(func() error { return b.Transfer(nil) }))
	assert.Equal(t, []string{"xfer", "delay"}, b.calls)
}

func TestGuardReleasesOnError(t *testing.T) {
	boom := errors.New("boom")
	b := &traceBus{fail: boom}
	g := guard{host: b, mask: true, settle: 1}
	assert.ErrorIs(t, g.run(func() error { return b.Transfer(nil) }), boom)
	assert.Equal(t, []string{"mask", "xfer", "restore", "delay"}, b.calls)
}

func TestGuardReleasesOnPanic(t *testing.T) {
	b := &traceBus{}
	g := guard{host: b, mask: true}
	assert.Panics(t, func() {
		g.run(func() error { panic("bus gone") })
	})
	assert.Equal(t, []string{"mask", "restore"}, b.calls)
}

func TestBulkBufferAllocatedOnce(t *testing.T) {
	b := &traceBus{}
	d, err := New(b, &DevOpts{Chips: 3})
	require.NoError(t, err)
	require.Len(t, d.xferBuf, 2*14*3)
	buf := &d.xferBuf[0]

	for i := 0; i < 2; i++ {
		require.NoError(t, d.Begin(nil))
		d.SetRGB(i, 1, 2, 3)
		require.NoError(t, d.Write())
		require.Len(t, b.last, 84)
		assert.Same(t, buf, &b.last[0])
	}
	assert.Equal(t, d.Stream(nil), b.last)
}
