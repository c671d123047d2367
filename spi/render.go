package spi

import (
	"errors"
	"image"

	"github.com/coreman2200/tlc59711"
	"github.com/coreman2200/tlc59711/model"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"
)

// Renderer pushes chain images to one or more drawers.
type Renderer struct {
	Chain   model.Chain
	drawers []display.Drawer
	closers []func() error
	// Dev is the driven chain, nil when only the console is drawn to.
	Dev *tlc59711.Dev
	// Spi is true when the chain is driven through a SPI port.
	Spi bool
}

// NewRenderer draws to every non-nil drawer in order.
func NewRenderer(chain model.Chain, drawers ...display.Drawer) *Renderer {
	r := &Renderer{Chain: chain}
	for _, d := range drawers {
		if d != nil {
			r.drawers = append(r.drawers, d)
		}
	}
	return r
}

// Console returns a drawer printing one colored cell per LED.
func Console(chain model.Chain) display.Drawer {
	return screen.New(chain.LedCount())
}

// Mirror adds a console drawer.
func (r *Renderer) Mirror() {
	r.drawers = append(r.drawers, Console(r.Chain))
}

// OnClose registers fn to run on Close, last registered first.
func (r *Renderer) OnClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

func (r *Renderer) Render(im image.Image) error {
	var errs []error
	for _, d := range r.drawers {
		if err := d.Draw(d.Bounds(), im, image.Point{}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Renderer) Clear() error {
	var errs []error
	for _, d := range r.drawers {
		if err := d.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close turns the LEDs off and releases what the renderer opened.
func (r *Renderer) Close() error {
	errs := []error{r.Clear()}
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// InitRenderer drives a chain of chips on the SPI port named in so. When no
// port can be opened it falls back to printing at the console.
func InitRenderer(chips int, so *Opts, do *tlc59711.DevOpts, xo *tlc59711.Opts, log zerolog.Logger) (*Renderer, error) {
	chain := model.NewChain(chips)
	b, err := Open(so)
	if err != nil {
		log.Warn().Err(err).Msg("failed to find a SPI port, printing at the console")
		r := NewRenderer(chain)
		r.Mirror()
		return r, nil
	}
	opts := tlc59711.DefaultDevOpts
	if do != nil {
		opts = *do
	}
	opts.Chips = chips
	d, err := tlc59711.New(b, &opts)
	if err != nil {
		b.Close()
		return nil, err
	}
	if err := d.Begin(xo); err != nil {
		b.Close()
		return nil, err
	}
	if err := d.Halt(); err != nil {
		d.End()
		b.Close()
		return nil, err
	}
	r := NewRenderer(chain, d)
	r.Dev = d
	r.Spi = true
	r.OnClose(b.Close)
	r.OnClose(d.End)
	return r, nil
}
