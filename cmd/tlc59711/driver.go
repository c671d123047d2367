package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/tlc59711"
	"github.com/coreman2200/tlc59711/internal/config"
	"github.com/coreman2200/tlc59711/internal/diagnostics"
	"github.com/coreman2200/tlc59711/internal/pigpio"
	"github.com/coreman2200/tlc59711/model"
	"github.com/coreman2200/tlc59711/sim"
	"github.com/coreman2200/tlc59711/spi"
)

func devOpts(cfg *config.Config, log *zerolog.Logger) tlc59711.DevOpts {
	return tlc59711.DevOpts{
		Chips:    cfg.Chips,
		ClockPin: cfg.Pins.Clock,
		DataPin:  cfg.Pins.Data,
		Logger:   log,
	}
}

func xferOpts(cfg *config.Config) (tlc59711.Opts, error) {
	m, err := tlc59711.ParseMode(cfg.Mode)
	if err != nil {
		return tlc59711.Opts{}, err
	}
	return tlc59711.Opts{
		Mode:         m,
		Clock:        physic.Frequency(cfg.SPI.ClockHz) * physic.Hertz,
		SettleMicros: cfg.SettleUs,
		Interrupts:   cfg.Interrupts,
	}, nil
}

// openChain builds the renderer for cfg.Driver. The returned sim.Bus is
// non-nil when the chain is simulated.
func openChain(cfg *config.Config, log zerolog.Logger) (*spi.Renderer, *sim.Bus, error) {
	xo, err := xferOpts(cfg)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range diagnostics.Settle(xo) {
		log.Warn().Str("code", d.Code).Str("detail", d.Detail).Msg(d.Summary)
	}
	do := devOpts(cfg, &log)
	so := &spi.Opts{Port: cfg.SPI.Port, Priority: cfg.SPI.Priority, Logger: &log}

	var (
		bus     tlc59711.Bus
		simBus  *sim.Bus
		closers []func() error
	)
	switch cfg.Driver {
	case "sim":
		simBus = sim.New(cfg.Chips)
		bus = simBus
	case "spi":
		if xo.Mode.Hardware() {
			r, err := spi.InitRenderer(cfg.Chips, so, &do, &xo, log)
			if err != nil {
				return nil, nil, err
			}
			if r.Dev != nil {
				applyControl(r.Dev, cfg)
			}
			return r, nil, nil
		}
		pb, err := spi.OpenPins(so)
		if err != nil {
			return nil, nil, err
		}
		bus = pb
	case "pigpio":
		c, err := pigpio.Dial(cfg.Pigpio.Addr)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, c.Close)
		so.PinByName = c.ByName
		bus = spi.New(nil, so)
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}

	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}
	d, err := tlc59711.New(bus, &do)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	applyControl(d, cfg)
	if err := d.Begin(&xo); err != nil {
		closeAll()
		return nil, nil, err
	}
	r := spi.NewRenderer(model.NewChain(cfg.Chips), d)
	r.Dev = d
	for _, fn := range closers {
		r.OnClose(fn)
	}
	r.OnClose(d.End)
	log.Info().Str("driver", cfg.Driver).Stringer("dev", d).Msg("chain ready")
	return r, simBus, nil
}

func applyControl(d *tlc59711.Dev, cfg *config.Config) {
	d.SetTmgrst(cfg.Tmgrst)
	d.SetAllBrightness(cfg.Brightness.R, cfg.Brightness.G, cfg.Brightness.B)
}
