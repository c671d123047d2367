// Package pigpio drives Raspberry Pi pins through the pigpio daemon's socket
// interface, so a chain can be bit-banged from another machine.
package pigpio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddr is where pigpiod listens unless told otherwise.
const DefaultAddr = "localhost:8888"

const (
	cmdModes uint32 = 0
	cmdRead  uint32 = 3
	cmdWrite uint32 = 4
	cmdHP    uint32 = 86
)

const modeOutput uint32 = 1

type cmd struct {
	Cmd uint32
	P1  uint32
	P2  uint32
	P3  uint32
}

// Client is a connection to pigpiod. It is safe for concurrent use; every
// command is a request/response pair on the same socket.
type Client struct {
	mu   sync.Mutex
	conn io.ReadWriteCloser
}

// Dial connects to the pigpio socket interface.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("couldn't dial into pigpio socket: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient uses an established connection.
func NewClient(conn io.ReadWriteCloser) *Client {
	return &Client{conn: conn}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("connection is already closed")
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// SetOutput switches the pin to output mode.
func (c *Client) SetOutput(pin int) error {
	_, err := c.do(cmd{Cmd: cmdModes, P1: uint32(pin), P2: modeOutput}, nil)
	return err
}

// Write sets a GPIO pin to LOW or HIGH.
func (c *Client) Write(pin int, level gpio.Level) error {
	var raw uint32
	if level {
		raw = 1
	}
	_, err := c.do(cmd{Cmd: cmdWrite, P1: uint32(pin), P2: raw}, nil)
	return err
}

func (c *Client) Read(pin int) (gpio.Level, error) {
	res, err := c.do(cmd{Cmd: cmdRead, P1: uint32(pin)}, nil)
	return res == 1, err
}

// HardwarePWM sets frequency (1-125,000,000) and duty cycle (0-1,000,000)
// for hardware PWM on the pin.
func (c *Client) HardwarePWM(pin int, hz, duty uint32) error {
	ext := make([]byte, 4)
	binary.LittleEndian.PutUint32(ext, duty)
	_, err := c.do(cmd{Cmd: cmdHP, P1: uint32(pin), P2: hz, P3: 4}, ext)
	return err
}

func (c *Client) do(req cmd, ext []byte) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return 0, errors.New("not connected to pigpio socket interface")
	}
	if err := binary.Write(c.conn, binary.LittleEndian, req); err != nil {
		return 0, fmt.Errorf("unable to write request to socket: %w", err)
	}
	if len(ext) > 0 {
		if _, err := c.conn.Write(ext); err != nil {
			return 0, fmt.Errorf("unable to write request to socket: %w", err)
		}
	}
	var resp cmd
	if err := binary.Read(c.conn, binary.LittleEndian, &resp); err != nil {
		return 0, fmt.Errorf("unable to read response from socket: %w", err)
	}
	res := int32(resp.P3)
	if res < 0 {
		return res, &Error{Cmd: req.Cmd, Code: res}
	}
	return res, nil
}

// Error is a negative status returned by pigpiod.
type Error struct {
	Cmd  uint32
	Code int32
}

func (e *Error) Error() string {
	return fmt.Sprintf("pigpio: command %d failed with %d", e.Cmd, e.Code)
}

// Pin is a BCM pin behind a Client. It implements gpio.PinOut.
type Pin struct {
	c      *Client
	number int
}

var _ gpio.PinOut = &Pin{}

// Pin returns the BCM pin n.
func (c *Client) Pin(n int) *Pin {
	return &Pin{c: c, number: n}
}

// ByName resolves "GPIO<n>" names, returning nil for anything else. The pin
// is switched to output mode on first lookup.
func (c *Client) ByName(name string) gpio.PinOut {
	var n int
	if _, err := fmt.Sscanf(name, "GPIO%d", &n); err != nil || n < 0 || n > 53 {
		return nil
	}
	if err := c.SetOutput(n); err != nil {
		return nil
	}
	return c.Pin(n)
}

func (p *Pin) Name() string {
	return fmt.Sprintf("GPIO%d", p.number)
}

func (p *Pin) Number() int {
	return p.number
}

func (p *Pin) String() string {
	return "pigpio(" + p.Name() + ")"
}

func (p *Pin) Halt() error {
	return nil
}

func (p *Pin) Function() string {
	return "Out"
}

func (p *Pin) Out(l gpio.Level) error {
	return p.c.Write(p.number, l)
}

func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	hz := uint32(f / physic.Hertz)
	if hz == 0 {
		return errors.New("pigpio: PWM frequency below 1Hz")
	}
	return p.c.HardwarePWM(p.number, hz, uint32(int64(duty)*1000000/int64(gpio.DutyMax)))
}
