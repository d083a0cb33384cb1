//go:build !linux

package channels

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/striplight/internal/models"
)

var errNoGPIO = errors.New("gpio is only available on linux")

type GPIODriver struct{}

func NewGPIODriver(logger *log.Logger, chipName string, offsets []int, activeLow []bool) (*GPIODriver, error) {
	return nil, errNoGPIO
}

func DetectEnabled(chipName string, offsets []int) ([]bool, error) {
	return nil, errNoGPIO
}

func (d *GPIODriver) Write(ch models.Channel, duty uint8) error { return errNoGPIO }
func (d *GPIODriver) Close() error                              { return nil }
