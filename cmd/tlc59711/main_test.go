package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/tlc59711"
	"github.com/coreman2200/tlc59711/internal/config"
)

func TestDumpModesAgree(t *testing.T) {
	cfg := config.Default()
	cfg.Chips = 2
	var buf bytes.Buffer
	require.NoError(t, dump(&buf, cfg, "#ff0080"))

	out := buf.String()
	assert.Contains(t, out, "bulk     bits=448")
	assert.Contains(t, out, "identical to bulk")
	assert.Equal(t, 2, strings.Count(out, "identical to bulk"))
	assert.Contains(t, out, "chip 1: control=0x96dfffff valid=true fc=FC(0x16) bc=127/127/127")
}

func TestDumpBadColor(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, dump(&buf, config.Default(), "purple"))
}

func TestOpenSimChain(t *testing.T) {
	cfg := config.Default()
	cfg.Chips = 3
	cfg.Brightness = config.Brightness{R: 10, G: 20, B: 30}
	r, simBus, err := openChain(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, simBus)
	require.NotNil(t, r.Dev)
	assert.Equal(t, tlc59711.Configured, r.Dev.State())

	c, ok := r.Dev.Control(2)
	require.True(t, ok)
	assert.Equal(t, uint8(30), c.BCB)

	im := r.Chain.Image()
	require.NoError(t, r.Render(im))
	assert.Equal(t, 3*224, simBus.Stats().Bits)

	require.NoError(t, r.Close())
	assert.Equal(t, tlc59711.Ended, r.Dev.State())
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Driver = "usb"
	_, _, err := openChain(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRunPatternStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.FPS = 200
	cfg.Pattern = "index"
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, runPattern(ctx, cfg))
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tlc59711.yaml")
	require.NoError(t, writeDefaultConfig(path, false))
	assert.Error(t, writeDefaultConfig(path, false))
	require.NoError(t, writeDefaultConfig(path, true))

	c, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)

	c, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)
}

func TestApplyRunFlags(t *testing.T) {
	saved := runFlags
	t.Cleanup(func() { runFlags = saved })

	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Set("chips", "5"))
	require.NoError(t, cmd.Flags().Set("mode", "bitbang"))

	cfg := config.Default()
	applyRunFlags(cfg, cmd)
	assert.Equal(t, 5, cfg.Chips)
	assert.Equal(t, "bitbang", cfg.Mode)
	assert.Equal(t, "wheel", cfg.Pattern)
	assert.False(t, runCmd.Flags().Changed("chips"))

	// A command with no flags set leaves the config alone.
	fresh := &cobra.Command{Use: "run"}
	addRunFlags(fresh.Flags())
	cfg = config.Default()
	applyRunFlags(cfg, fresh)
	assert.Equal(t, config.Default(), cfg)
}
