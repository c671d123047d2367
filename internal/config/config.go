package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

type SPI struct {
	Port    string `yaml:"port"`     // spireg name, e.g. /dev/spidev0.0; empty = first
	ClockHz int64  `yaml:"clock_hz"` // e.g. 10000000
	// Priority of the real-time critical section, 0 disables it.
	Priority int `yaml:"priority,omitempty"`
}

type Pins struct {
	Clock string `yaml:"clock"`
	Data  string `yaml:"data"`
}

type Brightness struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

type Preview struct {
	Addr string `yaml:"addr,omitempty"` // e.g. :8080; empty disables it
}

type Pigpio struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Chips      int    `yaml:"chips"`
	Driver     string `yaml:"driver"` // "sim" | "spi" | "pigpio"
	Mode       string `yaml:"mode"`   // "bulk" | "wordwise" | "bitbang"
	SettleUs   uint32 `yaml:"settle_us"`
	Interrupts bool   `yaml:"interrupts"`
	Tmgrst     bool   `yaml:"tmgrst"`
	FPS        int    `yaml:"fps"`
	Pattern    string `yaml:"pattern"`
	Mirror     bool   `yaml:"mirror"`

	Brightness Brightness `yaml:"brightness"`
	SPI        SPI        `yaml:"spi"`
	Pins       Pins       `yaml:"pins"`
	Preview    Preview    `yaml:"preview,omitempty"`
	Pigpio     Pigpio     `yaml:"pigpio,omitempty"`
}

var (
	Drivers  = []string{"sim", "spi", "pigpio"}
	Modes    = []string{"bulk", "wordwise", "bitbang"}
	Patterns = []string{"index", "rgb", "chips", "wheel"}
)

// Default is a single chip on the simulated bus.
func Default() *Config {
	return &Config{
		Chips:      1,
		Driver:     "sim",
		Mode:       "bulk",
		SettleUs:   4,
		Tmgrst:     true,
		FPS:        30,
		Pattern:    "wheel",
		Brightness: Brightness{R: 127, G: 127, B: 127},
		SPI:        SPI{ClockHz: 10000000},
		Pins:       Pins{Clock: "GPIO11", Data: "GPIO10"},
		Pigpio:     Pigpio{Addr: "localhost:8888"},
	}
}

// Load reads path over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	if c.Chips < 1 {
		return fmt.Errorf("%w: chips must be at least 1, got %d", ErrInvalid, c.Chips)
	}
	if !oneOf(c.Driver, Drivers) {
		return fmt.Errorf("%w: driver %q not in %v", ErrInvalid, c.Driver, Drivers)
	}
	if !oneOf(c.Mode, Modes) {
		return fmt.Errorf("%w: mode %q not in %v", ErrInvalid, c.Mode, Modes)
	}
	if c.Driver == "pigpio" && c.Mode != "bitbang" {
		return fmt.Errorf("%w: the pigpio driver only supports bitbang", ErrInvalid)
	}
	if c.Mode != "bitbang" && c.SPI.ClockHz <= 0 {
		return fmt.Errorf("%w: spi.clock_hz must be positive", ErrInvalid)
	}
	if c.Mode == "bitbang" && (c.Pins.Clock == "" || c.Pins.Data == "" || c.Pins.Clock == c.Pins.Data) {
		return fmt.Errorf("%w: bitbang needs two distinct pins", ErrInvalid)
	}
	if c.Brightness.R > 127 || c.Brightness.G > 127 || c.Brightness.B > 127 {
		return fmt.Errorf("%w: brightness is 7 bits", ErrInvalid)
	}
	if c.FPS < 1 || c.FPS > 1000 {
		return fmt.Errorf("%w: fps %d out of [1,1000]", ErrInvalid, c.FPS)
	}
	if c.Pattern != "" && !oneOf(c.Pattern, Patterns) {
		return fmt.Errorf("%w: pattern %q not in %v", ErrInvalid, c.Pattern, Patterns)
	}
	return nil
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
