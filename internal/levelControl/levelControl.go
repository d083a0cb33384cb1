package levelcontrol

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/wheelibin/striplight/internal/concurrency"
	"github.com/wheelibin/striplight/internal/config"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

var ErrInvalidEndpoint = errors.New("invalid endpoint")

type attributeStore interface {
	Read(ep models.Endpoint, id models.AttributeID) (uint16, error)
	Write(ep models.Endpoint, id models.AttributeID, value uint16) error
}

type levelSink interface {
	SetLevel(ch models.Channel, level uint8)
}

type levelPersister interface {
	LoadLevel(ep models.Endpoint) (uint8, error)
	SaveLevel(ep models.Endpoint, level uint8) error
}

type timerFactory interface {
	NewTimer(name string, fn func()) *concurrency.Timer
}

// OnOffCoupling is the view of the on/off state machine the engine needs.
type OnOffCoupling interface {
	State(ep models.Endpoint) models.OnOffState
	// SetOnOffFromLevel changes the on/off flag as a side effect of a level command.
	SetOnOffFromLevel(ep models.Endpoint, on bool)
	// TransitionFinished is called once a transition completes or is stopped.
	TransitionFinished(ep models.Endpoint)
}

type transition struct {
	currentLevel   uint8
	targetLevel    uint8
	savedLevel     uint8
	persistedLevel uint8
	stepPerTick    int

	withOnOffSideEffect   bool
	directionIsIncreasing bool
	triggeredByOnOff      bool
	suppressOutputEffect  bool
	firstTickOfTransition bool
	updateExternalLevel   bool

	timer *concurrency.Timer
}

type move struct {
	target           uint8
	duration         uint16
	updateAttribute  bool
	withOnOff        bool
	triggeredByOnOff bool
	suppressOutput   bool
}

// Engine ramps each endpoint's level toward a target, one tick at a time.
type Engine struct {
	logger      *log.Logger
	attrs       attributeStore
	sink        levelSink
	store       levelPersister
	onOff       OnOffCoupling
	min         uint8
	max         uint8
	def         uint8
	tps         int
	tick        time.Duration
	transitions []*transition
}

func NewEngine(logger *log.Logger, cfg config.Config, timers timerFactory, attrs attributeStore, sink levelSink, store levelPersister) *Engine {
	e := &Engine{
		logger: logger,
		attrs:  attrs,
		sink:   sink,
		store:  store,
		onOff:  detached{},
		min:    cfg.Level.Min,
		max:    cfg.Level.Max,
		def:    cfg.Level.Default,
		tps:    cfg.Transition.TicksPerSecond,
		tick:   time.Second / time.Duration(cfg.Transition.TicksPerSecond),
	}
	for i := 0; i < cfg.Endpoints; i++ {
		ep := models.Endpoint(i + 1)
		t := &transition{currentLevel: e.def, targetLevel: e.def, savedLevel: e.def}
		t.timer = timers.NewTimer(fmt.Sprintf("level-%d", ep), func() { e.onTick(ep) })
		e.transitions = append(e.transitions, t)
	}
	return e
}

// SetOnOffCoupling connects the on/off state machine, which is built after the engine.
func (e *Engine) SetOnOffCoupling(c OnOffCoupling) {
	e.onOff = c
}

// Initialise loads the persisted level of every endpoint, falling back to the default level
// when nothing valid was stored.
func (e *Engine) Initialise() {
	for i, t := range e.transitions {
		ep := models.Endpoint(i + 1)
		level, err := e.store.LoadLevel(ep)
		if err != nil {
			e.logger.Warn("no persisted level, using default", "endpoint", ep, "err", err)
			level = e.def
		} else if level < e.min || level > e.max {
			e.logger.Warn("persisted level out of range, using default", "endpoint", ep, "level", level)
			level = e.def
		}
		t.currentLevel, t.targetLevel, t.savedLevel, t.persistedLevel = level, level, level, level
		e.writeAttribute(ep, models.AttrCurrentLevel, uint16(level))
		e.writeAttribute(ep, models.AttrRemainingTime, 0)
	}
}

// StartTransition cancels any transition in flight and ramps toward targetLevel over
// duration deciseconds.
func (e *Engine) StartTransition(ep models.Endpoint, targetLevel uint8, duration uint16, updateExternalAttribute bool, withOnOff bool) error {
	return e.start(ep, move{
		target:          targetLevel,
		duration:        duration,
		updateAttribute: updateExternalAttribute,
		withOnOff:       withOnOff,
	})
}

// Stop cancels the transition in flight. With updateExternalAttribute the interrupted level
// becomes the stable level, otherwise the last stable level is restored.
func (e *Engine) Stop(ep models.Endpoint, updateExternalAttribute bool) error {
	t, err := e.transition(ep)
	if err != nil {
		return err
	}
	if !t.timer.Active() {
		return nil
	}
	t.timer.Cancel()
	e.logger.Debug("transition stopped", "endpoint", ep, "level", t.currentLevel, "update", updateExternalAttribute)

	if updateExternalAttribute {
		e.persist(ep, t)
	} else {
		e.rollback(ep, t)
	}
	e.writeAttribute(ep, models.AttrRemainingTime, 0)
	e.onOff.TransitionFinished(ep)
	return nil
}

// OnOffEffect fades the output in or out for an on/off command over OnOffTransitionTime,
// leaving the stable level untouched.
func (e *Engine) OnOffEffect(ep models.Endpoint, on bool) {
	t, err := e.transition(ep)
	if err != nil {
		return
	}
	duration, err := e.attrs.Read(ep, models.AttrOnOffTransitionTime)
	if err != nil {
		e.logger.Error(fmt.Errorf("Error reading on/off transition time for endpoint %d: %w", ep, err))
		duration = constants.DurationImmediate
	}

	target := e.min
	if on {
		target = t.savedLevel
		if !t.timer.Active() {
			t.currentLevel = e.min
		}
	}
	_ = e.start(ep, move{target: target, duration: duration, triggeredByOnOff: true})
}

// CurrentLevel returns the in-flight level of the endpoint.
func (e *Engine) CurrentLevel(ep models.Endpoint) uint8 {
	t, err := e.transition(ep)
	if err != nil {
		return 0
	}
	return t.currentLevel
}

// StableLevel returns the last stable (persisted) level of the endpoint.
func (e *Engine) StableLevel(ep models.Endpoint) uint8 {
	t, err := e.transition(ep)
	if err != nil {
		return 0
	}
	return t.savedLevel
}

func (e *Engine) Active(ep models.Endpoint) bool {
	t, err := e.transition(ep)
	if err != nil {
		return false
	}
	return t.timer.Active()
}

func (e *Engine) start(ep models.Endpoint, m move) error {
	t, err := e.transition(ep)
	if err != nil {
		return err
	}
	t.timer.Cancel()

	t.targetLevel = e.clamp(m.target)
	if m.withOnOff && !m.triggeredByOnOff && e.onOff.State(ep).IsOff() {
		// a dark endpoint turned on by a level command rises from the minimum
		if t.targetLevel > e.min {
			t.currentLevel = e.min
		} else {
			m.suppressOutput = true
		}
	}
	t.directionIsIncreasing = t.targetLevel > t.currentLevel
	t.stepPerTick = e.stepFor(int(t.targetLevel)-int(t.currentLevel), m.duration)
	t.updateExternalLevel = m.updateAttribute
	t.withOnOffSideEffect = m.withOnOff
	t.triggeredByOnOff = m.triggeredByOnOff
	t.suppressOutputEffect = m.suppressOutput
	t.firstTickOfTransition = true

	e.logger.Debug("transition started", "endpoint", ep, "from", t.currentLevel, "to", t.targetLevel, "step", t.stepPerTick, "duration", m.duration)
	t.timer.Arm(0)
	return nil
}

// stepFor returns the per-tick step moving delta over duration deciseconds.
func (e *Engine) stepFor(delta int, duration uint16) int {
	if duration == constants.DurationImmediate || duration == constants.DurationUndefined {
		return delta
	}
	ticks := int(duration) * 100 * e.tps / 1000
	if ticks == 0 {
		return delta
	}
	step := int(math.Round(float64(delta) / float64(ticks)))
	if step == 0 {
		return delta
	}
	return step
}

func (e *Engine) onTick(ep models.Endpoint) {
	t := e.transitions[ep-1]

	if t.firstTickOfTransition {
		t.firstTickOfTransition = false
		if t.withOnOffSideEffect && !t.triggeredByOnOff && t.directionIsIncreasing && e.onOff.State(ep).IsOff() {
			e.onOff.SetOnOffFromLevel(ep, true)
		}
	}

	next := int(t.currentLevel) + t.stepPerTick
	if (t.directionIsIncreasing && next > int(t.targetLevel)) || (!t.directionIsIncreasing && next < int(t.targetLevel)) {
		next = int(t.targetLevel)
	}
	t.currentLevel = uint8(next)
	done := t.currentLevel == t.targetLevel

	if !t.suppressOutputEffect {
		output := t.currentLevel
		if done && t.triggeredByOnOff && !t.directionIsIncreasing {
			output = 0
		}
		e.sink.SetLevel(ep.Channel(), output)
	}

	if t.updateExternalLevel {
		e.writeAttribute(ep, models.AttrCurrentLevel, uint16(t.currentLevel))
		e.writeAttribute(ep, models.AttrRemainingTime, e.remainingTime(t))
	}

	if !done {
		t.timer.Arm(e.tick)
		return
	}
	e.complete(ep, t)
}

func (e *Engine) complete(ep models.Endpoint, t *transition) {
	e.logger.Debug("transition finished", "endpoint", ep, "level", t.currentLevel)

	if t.withOnOffSideEffect && !t.triggeredByOnOff && !t.directionIsIncreasing && t.currentLevel == e.min {
		e.onOff.SetOnOffFromLevel(ep, false)
	}

	if t.updateExternalLevel {
		e.persist(ep, t)
	} else {
		e.rollback(ep, t)
	}
	e.onOff.TransitionFinished(ep)
}

func (e *Engine) persist(ep models.Endpoint, t *transition) {
	t.savedLevel = t.currentLevel
	t.targetLevel = t.currentLevel
	e.writeAttribute(ep, models.AttrCurrentLevel, uint16(t.currentLevel))
	e.writeAttribute(ep, models.AttrRemainingTime, 0)

	if t.savedLevel == t.persistedLevel {
		return
	}
	if err := e.store.SaveLevel(ep, t.savedLevel); err != nil {
		e.logger.Error(err)
		return
	}
	t.persistedLevel = t.savedLevel
}

func (e *Engine) rollback(ep models.Endpoint, t *transition) {
	t.currentLevel = t.savedLevel
	t.targetLevel = t.savedLevel
	e.writeAttribute(ep, models.AttrCurrentLevel, uint16(t.savedLevel))
}

// remainingTime estimates the deciseconds left in the transition.
func (e *Engine) remainingTime(t *transition) uint16 {
	if t.stepPerTick == 0 || t.currentLevel == t.targetLevel {
		return 0
	}
	delta := lo.Ternary(t.directionIsIncreasing, int(t.targetLevel)-int(t.currentLevel), int(t.currentLevel)-int(t.targetLevel))
	step := lo.Ternary(t.stepPerTick < 0, -t.stepPerTick, t.stepPerTick)
	ticks := (delta + step - 1) / step
	ms := ticks * 1000 / e.tps
	return uint16((ms + 99) / 100)
}

func (e *Engine) clamp(level uint8) uint8 {
	return lo.Clamp(level, e.min, e.max)
}

func (e *Engine) transition(ep models.Endpoint) (*transition, error) {
	if ep < 1 || int(ep) > len(e.transitions) {
		err := fmt.Errorf("Error accessing level transition for endpoint %d: %w", ep, ErrInvalidEndpoint)
		e.logger.Error(err)
		return nil, err
	}
	return e.transitions[ep-1], nil
}

func (e *Engine) writeAttribute(ep models.Endpoint, id models.AttributeID, value uint16) {
	if err := e.attrs.Write(ep, id, value); err != nil {
		e.logger.Error(fmt.Errorf("Error writing %v for endpoint %d: %w", id, ep, err))
	}
}

// detached stands in until the on/off state machine is connected.
type detached struct{}

func (detached) State(models.Endpoint) models.OnOffState { return models.StateOn }
func (detached) SetOnOffFromLevel(models.Endpoint, bool) {}
func (detached) TransitionFinished(models.Endpoint)      {}
