//go:build linux

package channels

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/warthog618/go-gpiocdev"
	"github.com/wheelibin/striplight/internal/models"
)

// GPIODriver drives one GPIO line per channel through the Linux GPIO character device.
// The lines are on/off only: any non-zero duty drives the line active.
type GPIODriver struct {
	logger *log.Logger
	chip   *gpiocdev.Chip
	lines  []*gpiocdev.Line
}

// NewGPIODriver requests the given line offsets as outputs, initially inactive.
// activeLow lists the channels with inverted polarity (the AUX indicator on the reference board).
func NewGPIODriver(logger *log.Logger, chipName string, offsets []int, activeLow []bool) (*GPIODriver, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("striplight"))
	if err != nil {
		return nil, fmt.Errorf("Error opening gpio chip %s: %w", chipName, err)
	}

	d := &GPIODriver{logger: logger, chip: chip}
	for i, offset := range offsets {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
		if i < len(activeLow) && activeLow[i] {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("Error requesting line %d for channel %d: %w", offset, i, err)
		}
		d.lines = append(d.lines, line)
	}
	return d, nil
}

// DetectEnabled samples each line with a pull-up before it is driven: a line held low by the
// board means the channel is populated.
func DetectEnabled(chipName string, offsets []int) ([]bool, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("striplight-detect"))
	if err != nil {
		return nil, fmt.Errorf("Error opening gpio chip %s: %w", chipName, err)
	}
	defer chip.Close()

	enabled := make([]bool, len(offsets))
	for i, offset := range offsets {
		line, err := chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			return nil, fmt.Errorf("Error requesting line %d for detection: %w", offset, err)
		}
		v, err := line.Value()
		line.Close()
		if err != nil {
			return nil, fmt.Errorf("Error reading line %d for detection: %w", offset, err)
		}
		enabled[i] = v == 0
	}
	return enabled, nil
}

func (d *GPIODriver) Write(ch models.Channel, duty uint8) error {
	if int(ch) >= len(d.lines) {
		return fmt.Errorf("Error writing channel %d: %w", ch, ErrInvalidChannel)
	}
	v := 0
	if duty > 0 {
		v = 1
	}
	if err := d.lines[ch].SetValue(v); err != nil {
		return fmt.Errorf("Error setting line for channel %d: %w", ch, err)
	}
	return nil
}

func (d *GPIODriver) Close() error {
	var errs []error
	for i, line := range d.lines {
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure channel %d: %w", i, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %d: %w", i, err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("Error closing gpio driver: %v", errs)
	}
	return nil
}
