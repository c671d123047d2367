package tlc59711

import (
	"errors"
	"fmt"
)

// Setters never fail: out of range input is ignored or truncated. These
// errors are for callers that want to reject such input before it reaches
// the frame.
var (
	ErrChannelRange    = errors.New("tlc59711: channel index out of range")
	ErrLEDRange        = errors.New("tlc59711: LED index out of range")
	ErrChipRange       = errors.New("tlc59711: chip index out of range")
	ErrBrightnessRange = errors.New("tlc59711: brightness exceeds 7 bits")
)

func (f *Frame) CheckChannel(idx int) error {
	if idx < 0 || idx >= f.chips*ChannelsPerChip {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrChannelRange, idx, f.chips*ChannelsPerChip)
	}
	return nil
}

func (f *Frame) CheckLED(idx int) error {
	if idx < 0 || idx >= f.chips*LedsPerChip {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrLEDRange, idx, f.chips*LedsPerChip)
	}
	return nil
}

func (f *Frame) CheckChip(chip int) error {
	if chip < 0 || chip >= f.chips {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrChipRange, chip, f.chips)
	}
	return nil
}

// CheckBrightness reports the first value that would be truncated.
func CheckBrightness(bcr, bcg, bcb uint8) error {
	for _, v := range []uint8{bcr, bcg, bcb} {
		if v > MaxBrightness {
			return fmt.Errorf("%w: %d", ErrBrightnessRange, v)
		}
	}
	return nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("tlc59711: %w", err)
}
