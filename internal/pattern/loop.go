package pattern

import (
	"context"
	"image"
	"time"

	"github.com/coreman2200/tlc59711/model"
	"github.com/rs/zerolog"
)

const DefaultFPS = 30

// Target receives every frame.
type Target interface {
	Render(im image.Image) error
}

// Looper steps a Runner at a fixed rate and renders each image. Finite
// patterns restart when they complete.
type Looper struct {
	Chain  model.Chain
	Runner *Runner
	Target Target
	FPS    int
	Log    zerolog.Logger

	frames int
}

// Run blocks until ctx is done or rendering fails. Cancellation is not an
// error.
func (l *Looper) Run(ctx context.Context) error {
	fps := l.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	delta := time.Second / time.Duration(fps)
	ticker := time.NewTicker(delta)
	defer ticker.Stop()

	im := l.Chain.Image()
	start := time.Now()
	l.Log.Info().Str("pattern", string(l.Runner.Kind())).Int("fps", fps).Msg("loop start")
	for {
		select {
		case t := <-ticker.C:
			if err := l.frame(im, t.Sub(start)); err != nil {
				return err
			}
		case <-ctx.Done():
			l.Log.Info().Int("frames", l.frames).Msg("loop stop")
			return nil
		}
	}
}

func (l *Looper) frame(im *image.RGBA64, elapsed time.Duration) error {
	if !l.Runner.Step(l.Chain, im, elapsed) {
		l.Runner.Reset()
		if !l.Runner.Step(l.Chain, im, elapsed) {
			return nil
		}
	}
	if err := l.Target.Render(im); err != nil {
		l.Log.Error().Err(err).Int("frame", l.frames).Msg("render failed")
		return err
	}
	l.frames++
	return nil
}

// Frames is the number of images rendered so far.
func (l *Looper) Frames() int {
	return l.frames
}
