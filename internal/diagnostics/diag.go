package diagnostics

import (
	"fmt"

	"github.com/coreman2200/tlc59711"
	"github.com/coreman2200/tlc59711/sim"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Chain inspects the latched state of every chip.
func Chain(chips []sim.Chip) []Diagnostic {
	var out []Diagnostic
	for k, c := range chips {
		ctl := c.Decoded()
		ev := map[string]any{"chip": k, "control": fmt.Sprintf("%#08x", c.Control)}
		if !c.Valid() {
			out = append(out, Diagnostic{
				Severity: Err,
				Code:     "bad_write_command",
				Summary:  fmt.Sprintf("chip %d would ignore the frame", k),
				Detail:   fmt.Sprintf("top six bits are %#02x, want %#02x", ctl.Magic, tlc59711.WriteCommand),
				LikelyCauses: []string{
					"frame shorter than the chain",
					"configured chip count differs from the wiring",
				},
				SuggestedFixes: []string{"set chips to the number of devices on the chain"},
				Evidence:       ev,
			})
			continue
		}
		if ctl.FC&tlc59711.BLANK != 0 {
			out = append(out, Diagnostic{
				Severity: Warn,
				Code:     "blanked",
				Summary:  fmt.Sprintf("chip %d has BLANK set, outputs are off", k),
				Evidence: ev,
			})
		}
		if ctl.BCR == 0 && ctl.BCG == 0 && ctl.BCB == 0 {
			out = append(out, Diagnostic{
				Severity:       Info,
				Code:           "zero_brightness",
				Summary:        fmt.Sprintf("chip %d has all brightness controls at 0", k),
				SuggestedFixes: []string{"raise brightness r/g/b"},
				Evidence:       ev,
			})
		}
	}
	return out
}

// Settle warns when the configured post-transfer delay cannot cover the
// latch time at clock.
func Settle(o tlc59711.Opts) []Diagnostic {
	if !o.Mode.Hardware() {
		return nil
	}
	need := tlc59711.MinSettleMicros(o.Clock)
	if o.SettleMicros >= need {
		return nil
	}
	return []Diagnostic{{
		Severity:       Warn,
		Code:           "settle_too_short",
		Summary:        "settle delay shorter than the latch time",
		Detail:         fmt.Sprintf("%dµs configured, %dµs needed at %s", o.SettleMicros, need, o.Clock),
		LikelyCauses:   []string{"clock lowered without raising settle_us"},
		SuggestedFixes: []string{fmt.Sprintf("set settle_us to at least %d", need)},
		Evidence:       map[string]any{"settle_us": o.SettleMicros, "min_us": need},
	}}
}
