package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coreman2200/tlc59711"
	"github.com/coreman2200/tlc59711/internal/config"
	"github.com/coreman2200/tlc59711/internal/pattern"
	"github.com/coreman2200/tlc59711/model"
	"github.com/coreman2200/tlc59711/sim"
)

func init() {
	dumpCmd.Flags().IntVar(&dumpFlags.chips, `chips`, 0, `number of chained devices`)
	dumpCmd.Flags().StringVar(&dumpFlags.color, `color`, ``, `fill every LED with a 0xRRGGBB color instead of a pattern`)
	dumpCmd.Flags().StringVar(&dumpFlags.pattern, `pattern`, ``, `pattern whose first image is dumped`)
	rootCmd.AddCommand(dumpCmd)
}

var dumpFlags struct {
	chips   int
	color   string
	pattern string
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "print the bit stream of one frame in every transfer mode",
	Long: "dump renders one frame on the simulated bus with each transfer mode, " +
		"prints the stream in wire order and the state every chip latched",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFlag)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("chips") {
			cfg.Chips = dumpFlags.chips
		}
		if cmd.Flags().Changed("pattern") {
			cfg.Pattern = dumpFlags.pattern
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return dump(cmd.OutOrStdout(), cfg, dumpFlags.color)
	},
}

func dump(w io.Writer, cfg *config.Config, fill string) error {
	ch := model.NewChain(cfg.Chips)
	im := ch.Image()
	if fill != "" {
		c, err := model.ParseHex(fill)
		if err != nil {
			return err
		}
		model.Fill(im, c)
	} else {
		kind := pattern.Wheel
		if cfg.Pattern != "" {
			k, err := pattern.ParseKind(cfg.Pattern)
			if err != nil {
				return err
			}
			kind = k
		}
		pattern.NewRunner(kind).Step(ch, im, 0)
	}

	var ref []byte
	for _, m := range []tlc59711.Mode{tlc59711.Bulk, tlc59711.Wordwise, tlc59711.Bitbang} {
		b := sim.New(cfg.Chips)
		do := devOpts(cfg, nil)
		d, err := tlc59711.New(b, &do)
		if err != nil {
			return err
		}
		applyControl(d, cfg)
		xo, err := xferOpts(cfg)
		if err != nil {
			return err
		}
		xo.Mode = m
		if err := d.Begin(&xo); err != nil {
			return err
		}
		if err := d.Draw(d.Bounds(), im, im.Rect.Min); err != nil {
			return err
		}
		s := b.Stats()
		out := b.Bytes()
		fmt.Fprintf(w, "%-8s bits=%d masked=%d settle=%v\n", m, s.Bits, s.MaskedBits, s.Delays)
		if ref == nil {
			ref = out
			fmt.Fprint(w, indent(hex.Dump(out)))
			for k, c := range b.Decode(cfg.Chips) {
				ctl := c.Decoded()
				fmt.Fprintf(w, "  chip %d: control=%#08x valid=%v fc=%s bc=%d/%d/%d gs=%04x\n",
					k, c.Control, c.Valid(), ctl.FC, ctl.BCR, ctl.BCG, ctl.BCB, c.Grayscale)
			}
		} else if !bytes.Equal(ref, out) {
			return fmt.Errorf("%s stream differs from %s", m, tlc59711.Bulk)
		} else {
			fmt.Fprintf(w, "  identical to %s\n", tlc59711.Bulk)
		}
	}
	return nil
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return "  " + strings.Join(lines, "\n  ") + "\n"
}
