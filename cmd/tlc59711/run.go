package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/tlc59711/internal/config"
	"github.com/coreman2200/tlc59711/internal/pattern"
	"github.com/coreman2200/tlc59711/internal/preview"
)

func init() {
	addRunFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(f *pflag.FlagSet) {
	f.IntVar(&runFlags.chips, `chips`, 0, `number of chained devices`)
	f.StringVar(&runFlags.driver, `driver`, ``, `driver: sim | spi | pigpio`)
	f.StringVar(&runFlags.mode, `mode`, ``, `transfer mode: bulk | wordwise | bitbang`)
	f.StringVar(&runFlags.pattern, `pattern`, ``, `pattern: index | rgb | chips | wheel`)
	f.IntVar(&runFlags.fps, `fps`, 0, `frames per second`)
	f.StringVar(&runFlags.preview, `preview`, ``, `preview listen address, sim driver only (e.g. :8080)`)
	f.BoolVar(&runFlags.mirror, `mirror`, false, `mirror frames at the console`)
}

var runFlags struct {
	chips   int
	driver  string
	mode    string
	pattern string
	fps     int
	preview string
	mirror  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "drive a test pattern until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFlag)
		if err != nil {
			return err
		}
		applyRunFlags(cfg, cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runPattern(ctx, cfg)
	},
}

// applyRunFlags overrides cfg with the flags set on the command line.
func applyRunFlags(cfg *config.Config, cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("chips") {
		cfg.Chips = runFlags.chips
	}
	if f.Changed("driver") {
		cfg.Driver = runFlags.driver
	}
	if f.Changed("mode") {
		cfg.Mode = runFlags.mode
	}
	if f.Changed("pattern") {
		cfg.Pattern = runFlags.pattern
	}
	if f.Changed("fps") {
		cfg.FPS = runFlags.fps
	}
	if f.Changed("preview") {
		cfg.Preview.Addr = runFlags.preview
	}
	if f.Changed("mirror") {
		cfg.Mirror = runFlags.mirror
	}
}

func runPattern(ctx context.Context, cfg *config.Config) error {
	logger := log.Logger
	r, simBus, err := openChain(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()
	if cfg.Mirror {
		r.Mirror()
	}

	kind := pattern.Wheel
	if cfg.Pattern != "" {
		if kind, err = pattern.ParseKind(cfg.Pattern); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Preview.Addr != "" {
		if simBus == nil {
			log.Warn().Str("driver", cfg.Driver).Msg("preview needs the sim driver; disabled")
		} else {
			srv := preview.New(cfg.Preview.Addr, cfg.Chips, cfg.Driver, logger)
			simBus.Latched = srv.Latch
			g.Go(func() error { return srv.Run(ctx) })
		}
	}
	l := &pattern.Looper{
		Chain:  r.Chain,
		Runner: pattern.NewRunner(kind),
		Target: r,
		FPS:    cfg.FPS,
		Log:    logger,
	}
	g.Go(func() error { return l.Run(ctx) })
	return g.Wait()
}
