package channels

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

var ErrInvalidChannel = errors.New("invalid channel")

// Driver writes a corrected duty value to the hardware for one channel.
type Driver interface {
	Write(ch models.Channel, duty uint8) error
	Close() error
}

// Output is the channel output sink shared by the effect interpreter, the transition engine
// and the on/off state machine.
type Output struct {
	logger    *log.Logger
	driver    Driver
	levels    []uint8
	duties    []uint8
	observers []func(models.OutputReport)
}

func NewOutput(logger *log.Logger, driver Driver, channels int) *Output {
	duties := make([]uint8, channels)
	for i := range duties {
		// force the first write through
		duties[i] = 0xFF
	}
	return &Output{
		logger: logger,
		driver: driver,
		levels: make([]uint8, channels),
		duties: duties,
	}
}

func (o *Output) OnWrite(fn func(models.OutputReport)) {
	o.observers = append(o.observers, fn)
}

// SetLevel drives the channel to a perceptual level 0..254. The driver is only called when
// the corrected duty differs from the last one written.
func (o *Output) SetLevel(ch models.Channel, level uint8) {
	if int(ch) >= len(o.levels) {
		o.logger.Error(fmt.Errorf("Error setting level %d: channel %d: %w", level, ch, ErrInvalidChannel))
		return
	}
	if level > constants.MaxLevel {
		level = constants.MaxLevel
	}

	changed := o.levels[ch] != level
	o.levels[ch] = level

	duty := Duty(level)
	if duty != o.duties[ch] {
		if err := o.driver.Write(ch, duty); err != nil {
			o.logger.Error(fmt.Errorf("Error writing duty %d to channel %d: %w", duty, ch, err))
		} else {
			o.duties[ch] = duty
		}
	}

	if changed {
		for _, fn := range o.observers {
			fn(models.OutputReport{Channel: ch, Level: level})
		}
	}
}

// Last returns the last level written to the channel.
func (o *Output) Last(ch models.Channel) uint8 {
	if int(ch) >= len(o.levels) {
		return 0
	}
	return o.levels[ch]
}

func (o *Output) Close() error {
	return o.driver.Close()
}
