package spi

import (
	"bytes"
	"testing"

	"github.com/coreman2200/tlc59711"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	pspi "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

// wire samples the data pin on every rising edge of the clock pin.
type wire struct {
	clk, data gpio.Level
	bits      []byte
}

type wirePin struct {
	*gpiotest.Pin
	w     *wire
	clock bool
}

func (p *wirePin) Out(l gpio.Level) error {
	if p.clock {
		if l == gpio.High && p.w.clk == gpio.Low {
			var v byte
			if p.w.data {
				v = 1
			}
			p.w.bits = append(p.w.bits, v)
		}
		p.w.clk = l
	} else {
		p.w.data = l
	}
	return p.Pin.Out(l)
}

func wirePins(w *wire) func(string) gpio.PinOut {
	return func(name string) gpio.PinOut {
		switch name {
		case "CLK":
			return &wirePin{Pin: &gpiotest.Pin{N: name, Num: 11}, w: w, clock: true}
		case "DAT":
			return &wirePin{Pin: &gpiotest.Pin{N: name, Num: 10}, w: w}
		}
		return nil
	}
}

// limitedPort reports a transaction limit and records the size of every Tx.
type limitedPort struct {
	*spitest.RecordRaw
	max   int
	sizes []int
}

func (p *limitedPort) Connect(f physic.Frequency, mode pspi.Mode, bits int) (pspi.Conn, error) {
	c, err := p.RecordRaw.Connect(f, mode, bits)
	if err != nil {
		return nil, err
	}
	return &limitedConn{Conn: c, p: p}, nil
}

type limitedConn struct {
	pspi.Conn
	p *limitedPort
}

func (c *limitedConn) MaxTxSize() int {
	return c.p.max
}

func (c *limitedConn) Tx(w, r []byte) error {
	c.p.sizes = append(c.p.sizes, len(w))
	return c.Conn.Tx(w, r)
}

func TestTransferHighByteFirst(t *testing.T) {
	var buf bytes.Buffer
	b := New(spitest.NewRecordRaw(&buf), nil)
	assert.Error(t, b.Transfer16(1), "not started")

	require.NoError(t, b.Begin(physic.MegaHertz))
	require.NoError(t, b.Transfer16(0xBEEF))
	require.NoError(t, b.Transfer([]byte{1, 2, 3}))
	assert.Equal(t, []byte{0xBE, 0xEF, 1, 2, 3}, buf.Bytes())
}

func TestBeginConnectsOnce(t *testing.T) {
	var buf bytes.Buffer
	b := New(spitest.NewRecordRaw(&buf), nil)
	require.NoError(t, b.Begin(physic.MegaHertz))
	require.NoError(t, b.End())
	assert.Error(t, b.Transfer([]byte{1}))
	// A second Connect on the port would fail.
	require.NoError(t, b.Begin(2*physic.MegaHertz))
	require.NoError(t, b.Transfer([]byte{1}))
	assert.Equal(t, physic.MegaHertz, b.clock)
	require.NoError(t, b.Close())
}

func TestTransferChunks(t *testing.T) {
	var buf bytes.Buffer
	p := &limitedPort{RecordRaw: spitest.NewRecordRaw(&buf), max: 10}
	b := New(p, nil)
	require.NoError(t, b.Begin(physic.MegaHertz))

	data := make([]byte, 28)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, b.Transfer(data))
	assert.Equal(t, []int{10, 10, 8}, p.sizes)
	assert.Equal(t, data, buf.Bytes())
}

func TestNoPort(t *testing.T) {
	b := New(nil, nil)
	assert.Equal(t, "periph(gpio)", b.String())
	assert.Error(t, b.Begin(physic.MegaHertz))
}

func TestSetupPins(t *testing.T) {
	w := &wire{}
	b := New(nil, &Opts{PinByName: wirePins(w)})
	assert.Error(t, b.Out(tlc59711.ClockLine, gpio.High))
	assert.Error(t, b.SetupPins("CLK", "CLK"))
	assert.Error(t, b.SetupPins("CLK", "GPIO99"))
	require.NoError(t, b.SetupPins("CLK", "DAT"))

	require.NoError(t, b.Out(tlc59711.DataLine, gpio.High))
	require.NoError(t, b.Out(tlc59711.ClockLine, gpio.High))
	require.NoError(t, b.Out(tlc59711.ClockLine, gpio.Low))
	assert.Equal(t, []byte{1}, w.bits)
	require.NoError(t, b.Halt())
	assert.Equal(t, gpio.Low, w.data)
}

func TestOutWhileSettingUpPins(t *testing.T) {
	w := &wire{}
	b := New(nil, &Opts{PinByName: wirePins(w)})
	require.NoError(t, b.SetupPins("CLK", "DAT"))

	done := make(chan error)
	go func() {
		for i := 0; i < 100; i++ {
			if err := b.SetupPins("CLK", "DAT"); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	for i := 0; i < 100; i++ {
		require.NoError(t, b.Out(tlc59711.DataLine, gpio.Level(i%2 == 0)))
		require.NoError(t, b.Halt())
	}
	require.NoError(t, <-done)
	assert.Equal(t, gpio.Low, w.data)
}

func TestInterruptsNest(t *testing.T) {
	b := New(nil, nil)
	s1 := b.DisableInterrupts()
	s2 := b.DisableInterrupts()
	assert.Equal(t, 2, b.depth)
	b.RestoreInterrupts(s2)
	assert.Equal(t, 1, b.depth)
	b.RestoreInterrupts(s1)
	assert.Zero(t, b.depth)
}

func TestDevOverPeriph(t *testing.T) {
	var buf bytes.Buffer
	w := &wire{}
	b := New(spitest.NewRecordRaw(&buf), &Opts{PinByName: wirePins(w)})
	d, err := tlc59711.New(b, &tlc59711.DevOpts{Chips: 2, ClockPin: "CLK", DataPin: "DAT"})
	require.NoError(t, err)
	d.SetRGB(6, 0x1234, 0x5678, 0x9ABC)

	require.NoError(t, d.Begin(nil))
	require.NoError(t, d.Write())
	want := d.Stream(nil)
	assert.Equal(t, want, buf.Bytes())

	o := tlc59711.DefaultOpts(tlc59711.Bitbang)
	o.SettleMicros = 1
	require.NoError(t, d.Begin(&o))
	require.NoError(t, d.Write())
	require.Len(t, w.bits, 8*len(want))
	got := make([]byte, len(want))
	for i, v := range w.bits {
		got[i/8] |= v << (7 - i%8)
	}
	assert.Equal(t, want, got)
}
