package effects

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/striplight/internal/concurrency"
	"github.com/wheelibin/striplight/internal/models"
)

var ErrInvalidChannel = errors.New("invalid channel")
var ErrUnknownEffect = errors.New("unknown effect")

type levelSink interface {
	SetLevel(ch models.Channel, level uint8)
}

type attributeReader interface {
	Read(ep models.Endpoint, id models.AttributeID) (uint16, error)
}

type timerFactory interface {
	NewTimer(name string, fn func()) *concurrency.Timer
}

type playback struct {
	program *Program
	ic      int

	rampStarted bool
	rampTicks   uint16

	infinite  *Program
	iterative *Program
	remaining uint8

	timer *concurrency.Timer
}

// Interpreter plays effect programs, one independent playback per channel.
type Interpreter struct {
	logger    *log.Logger
	sink      levelSink
	attrs     attributeReader
	aux       models.Channel
	tick      time.Duration
	playbacks []*playback
	observers []func(models.EffectReport)
}

func NewInterpreter(logger *log.Logger, timers timerFactory, sink levelSink, attrs attributeReader, channels int, aux models.Channel, ticksPerSecond int) *Interpreter {
	i := &Interpreter{
		logger: logger,
		sink:   sink,
		attrs:  attrs,
		aux:    aux,
		tick:   time.Second / time.Duration(ticksPerSecond),
	}
	for c := 0; c < channels; c++ {
		ch := models.Channel(c)
		p := &playback{}
		p.timer = timers.NewTimer(fmt.Sprintf("effect-%d", c), func() { i.resume(ch) })
		i.playbacks = append(i.playbacks, p)
	}
	return i
}

func (i *Interpreter) OnChange(fn func(models.EffectReport)) {
	i.observers = append(i.observers, fn)
}

// RunByName resolves a catalog program and runs it.
func (i *Interpreter) RunByName(ch models.Channel, name string, repeat uint8) error {
	p, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("Error running effect %q: %w", name, ErrUnknownEffect)
	}
	return i.Run(ch, p, repeat)
}

// Run starts program on the channel. repeat 0 plays forever, otherwise that many times.
// Running None stops any playback and restores the channel's logical output.
func (i *Interpreter) Run(ch models.Channel, program *Program, repeat uint8) error {
	if int(ch) >= len(i.playbacks) {
		err := fmt.Errorf("Error running effect on channel %d: %w", ch, ErrInvalidChannel)
		i.logger.Error(err)
		return err
	}
	p := i.playbacks[ch]

	if p.infinite == nil && p.iterative == nil && p.program == nil {
		if program == nil || program == None {
			return nil
		}
	}

	p.timer.Cancel()

	if program == nil || program == None {
		i.logger.Debug("effect stopped", "channel", ch)
		*p = playback{timer: p.timer}
		i.restore(ch)
		i.notify(ch, NameNone, false)
		return nil
	}

	i.logger.Debug("effect started", "channel", ch, "effect", program.Name, "repeat", repeat)
	p.remaining = repeat
	if repeat == 0 {
		p.infinite = program
	} else {
		p.iterative = program
	}
	i.start(ch, program)
	return nil
}

// Active reports whether a program is assigned to the channel.
func (i *Interpreter) Active(ch models.Channel) bool {
	if int(ch) >= len(i.playbacks) {
		return false
	}
	return i.playbacks[ch].program != nil
}

// Current returns the name of the playing program, or None.
func (i *Interpreter) Current(ch models.Channel) string {
	if !i.Active(ch) {
		return NameNone
	}
	return i.playbacks[ch].program.Name
}

func (i *Interpreter) start(ch models.Channel, program *Program) {
	p := i.playbacks[ch]
	p.program = program
	p.ic = 0
	p.rampStarted = false
	p.rampTicks = 0
	i.notify(ch, program.Name, true)
	p.timer.Arm(0)
}

func (i *Interpreter) next(p *playback) {
	p.ic++
	p.rampStarted = false
	p.rampTicks = 0
}

func (i *Interpreter) resume(ch models.Channel) {
	p := i.playbacks[ch]
	var wait uint16

	for p.program != nil {
		if p.ic >= len(p.program.Instructions) {
			p.program = nil
			break
		}

		switch in := p.program.Instructions[p.ic].(type) {
		case End:
			p.program = nil
			p.ic = 0

		case Delay:
			wait = uint16(in.Ticks)
			i.next(p)

		case Level:
			i.sink.SetLevel(ch, PercentToLevel(in.Percent))
			i.next(p)

		case Ramp:
			wait = 1
			level := in.Start
			switch {
			case !p.rampStarted:
				p.rampStarted = true
			case in.Ticks == 0:
				level = in.Stop
				i.next(p)
				wait = 0
			default:
				level = lineApprox(in.Start, in.Stop, in.Ticks, p.rampTicks)
				p.rampTicks++
				if level == in.Stop {
					i.next(p)
					wait = 0
				}
			}
			i.sink.SetLevel(ch, PercentToLevel(level))

		default:
			i.logger.Error("unexpected effect instruction, playback aborted", "channel", ch, "instruction", fmt.Sprintf("%T", in))
			name := p.program.Name
			*p = playback{timer: p.timer}
			i.notify(ch, name, false)
			return
		}

		if wait != 0 {
			break
		}
	}

	if wait != 0 {
		p.timer.Arm(time.Duration(wait) * i.tick)
		return
	}

	// program finished
	if p.remaining > 0 {
		p.remaining--
	}
	if p.remaining > 0 && p.iterative != nil {
		i.start(ch, p.iterative)
		return
	}
	if p.infinite != nil {
		i.start(ch, p.infinite)
		return
	}

	i.logger.Debug("effect finished", "channel", ch)
	finished := p.iterative
	*p = playback{timer: p.timer}
	if finished != nil {
		i.notify(ch, finished.Name, false)
	}
}

func (i *Interpreter) restore(ch models.Channel) {
	if ch == i.aux {
		i.sink.SetLevel(ch, 0)
		return
	}

	ep := ch.Endpoint()
	on, err := i.attrs.Read(ep, models.AttrOnOff)
	if err != nil {
		i.logger.Error(fmt.Errorf("Error reading on/off for endpoint %d: %w", ep, err))
		on = 0
	}
	if on == 0 {
		i.sink.SetLevel(ch, 0)
		return
	}

	level, err := i.attrs.Read(ep, models.AttrCurrentLevel)
	if err != nil {
		i.logger.Error(fmt.Errorf("Error reading level for endpoint %d: %w", ep, err))
		i.sink.SetLevel(ch, 0)
		return
	}
	i.sink.SetLevel(ch, uint8(level))
}

func (i *Interpreter) notify(ch models.Channel, name string, active bool) {
	for _, fn := range i.observers {
		fn(models.EffectReport{Channel: ch, Effect: name, Active: active})
	}
}

// lineApprox is the level at tick t of a ramp lasting duration ticks, rounded to the nearest percent.
func lineApprox(start, stop uint8, duration, t uint16) uint8 {
	s := int32(start) * 100
	e := int32(stop) * 100
	d := int32(duration)
	return uint8((((e-s)*int32(t)+s*d)/d + 50) / 100)
}

// PercentToLevel scales 0..100 percent to the 0..254 level range, rounding to nearest.
func PercentToLevel(percent uint8) uint8 {
	if percent >= 100 {
		return 254
	}
	return uint8((uint16(percent)*254 + 50) / 100)
}
