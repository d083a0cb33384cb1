package channels

import (
	"sync"

	"github.com/wheelibin/striplight/internal/models"
)

// FakeDriver records duty writes for tests and for running without hardware.
type FakeDriver struct {
	mu     sync.Mutex
	writes []DutyWrite
	err    error
}

type DutyWrite struct {
	Channel models.Channel
	Duty    uint8
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

func (d *FakeDriver) Write(ch models.Channel, duty uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.writes = append(d.writes, DutyWrite{Channel: ch, Duty: duty})
	return nil
}

func (d *FakeDriver) Close() error {
	return nil
}

// SetError makes subsequent writes fail with err (nil to recover).
func (d *FakeDriver) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *FakeDriver) Writes() []DutyWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DutyWrite, len(d.writes))
	copy(out, d.writes)
	return out
}
