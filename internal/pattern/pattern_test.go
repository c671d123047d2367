package pattern

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/coreman2200/tlc59711/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lit(im *image.RGBA64) []int {
	var on []int
	for x := im.Rect.Min.X; x < im.Rect.Max.X; x++ {
		if im.RGBA64At(x, 0) != (color.RGBA64{A: 0xFFFF}) {
			on = append(on, x)
		}
	}
	return on
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"index", "rgb", "chips", "wheel"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, Kind(s), k)
	}
	_, err := ParseKind("")
	assert.Error(t, err)
}

func TestIndexSweep(t *testing.T) {
	ch := model.NewChain(2)
	im := ch.Image()
	r := NewRunner(IndexSweep)
	for i := 0; i < 8; i++ {
		require.True(t, r.Step(ch, im, 0))
		assert.Equal(t, []int{i}, lit(im))
	}
	assert.False(t, r.Step(ch, im, 0))
	r.Reset()
	assert.True(t, r.Step(ch, im, 0))
}

func TestRGBTest(t *testing.T) {
	ch := model.NewChain(1)
	im := ch.Image()
	r := NewRunner(RGBTest)
	var TestPhases = []model.RGB16{{R: 0xFFFF}, {G: 0xFFFF}, {B: 0xFFFF}}
	for _, want := range TestPhases {
		require.True(t, r.Step(ch, im, 0))
		for x := 0; x < 4; x++ {
			assert.Equal(t, want.RGBA64(), im.RGBA64At(x, 0))
		}
	}
	assert.False(t, r.Step(ch, im, 0))
}

func TestChipSweep(t *testing.T) {
	ch := model.NewChain(3)
	im := ch.Image()
	r := NewRunner(ChipSweep)
	require.True(t, r.Step(ch, im, 0))
	require.True(t, r.Step(ch, im, 0))
	assert.Equal(t, []int{4, 5, 6, 7}, lit(im))
	require.True(t, r.Step(ch, im, 0))
	assert.False(t, r.Step(ch, im, 0))
}

func TestWheel(t *testing.T) {
	ch := model.NewChain(1)
	im := ch.Image()
	r := NewRunner(Wheel)
	require.True(t, r.Step(ch, im, 0))
	assert.Equal(t, model.RGB16{R: 0xFFFF}.RGBA64(), im.RGBA64At(0, 0))
	assert.Equal(t, model.RGB16{G: 0xFFFF, B: 0xFFFF}.RGBA64(), im.RGBA64At(2, 0))

	// A full turn comes back to the same image.
	require.True(t, r.Step(ch, im, WheelPeriod))
	assert.Equal(t, model.RGB16{R: 0xFFFF}.RGBA64(), im.RGBA64At(0, 0))
	assert.True(t, r.Step(ch, im, time.Hour), "never completes")
}

func TestColorWheel(t *testing.T) {
	var TestHues = []struct {
		H      float64
		Expect model.RGB16
	}{
		{0, model.RGB16{R: 0xFFFF}},
		{1. / 6, model.RGB16{R: 0xFFFF, G: 0xFFFF}},
		{2. / 6, model.RGB16{G: 0xFFFF}},
		{0.5, model.RGB16{G: 0xFFFF, B: 0xFFFF}},
		{4. / 6, model.RGB16{B: 0xFFFF}},
		{1. / 12, model.RGB16{R: 0xFFFF, G: 0x8000}},
	}
	for _, v := range TestHues {
		assert.Equal(t, v.Expect, colorWheel(v.H), "h=%v", v.H)
	}
}

type recorder struct {
	mu     sync.Mutex
	frames []image.Image
	fail   error
}

func (r *recorder) Render(im image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	cp := image.NewRGBA64(im.Bounds())
	for x := im.Bounds().Min.X; x < im.Bounds().Max.X; x++ {
		cp.Set(x, 0, im.At(x, 0))
	}
	r.frames = append(r.frames, cp)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestLooperRestartsFinitePatterns(t *testing.T) {
	rec := &recorder{}
	l := &Looper{
		Chain:  model.NewChain(1),
		Runner: NewRunner(RGBTest),
		Target: rec,
		FPS:    500,
		Log:    zerolog.Nop(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	require.Eventually(t, func() bool { return rec.count() >= 5 }, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, rec.count(), l.Frames())
	red := model.RGB16{R: 0xFFFF}.RGBA64()
	assert.Equal(t, red, rec.frames[0].(*image.RGBA64).RGBA64At(0, 0))
	assert.Equal(t, red, rec.frames[3].(*image.RGBA64).RGBA64At(0, 0))
}

func TestLooperStopsOnRenderError(t *testing.T) {
	boom := errors.New("boom")
	l := &Looper{
		Chain:  model.NewChain(1),
		Runner: NewRunner(Wheel),
		Target: &recorder{fail: boom},
		FPS:    1000,
		Log:    zerolog.Nop(),
	}
	assert.ErrorIs(t, l.Run(context.Background()), boom)
	assert.Zero(t, l.Frames())
}
