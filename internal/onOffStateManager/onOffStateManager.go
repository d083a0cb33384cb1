package onoffstatemanager

import (
	"errors"
	"fmt"
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

type levelEffector interface {
	OnOffEffect(ep models.Endpoint, on bool)
}

type levelSink interface {
	SetLevel(ch models.Channel, level uint8)
}

type onOffPersister interface {
	SaveOnOff(ep models.Endpoint, on bool) error
}

type timerFactory interface {
	NewTimer(name string, fn func()) *concurrency.Timer
}

type endpointState struct {
	state     models.OnOffState
	countdown *concurrency.Timer
}

// Manager runs the Off/On/TimedOn/DelayedOff state machine of every endpoint.
type Manager struct {
	logger      *log.Logger
	attrs       attributeStore
	levels      levelEffector
	sink        levelSink
	store       onOffPersister
	interval    time.Duration
	endpoints   []*endpointState
	emitting    bool
	initialised bool
	observers   []func(models.StateReport)
}

func NewManager(logger *log.Logger, cfg config.Config, timers timerFactory, attrs attributeStore, levels levelEffector, sink levelSink, store onOffPersister) *Manager {
	m := &Manager{
		logger:   logger,
		attrs:    attrs,
		levels:   levels,
		sink:     sink,
		store:    store,
		interval: cfg.OnOff.CountdownInterval,
	}
	for i := 0; i < cfg.Endpoints; i++ {
		ep := models.Endpoint(i + 1)
		m.endpoints = append(m.endpoints, &endpointState{
			state:     models.StateOff,
			countdown: timers.NewTimer(fmt.Sprintf("onoff-%d", ep), func() { m.timedStateUpdate(ep, true) }),
		})
	}
	return m
}

// OnStateChange registers an observer called on every state change.
func (m *Manager) OnStateChange(fn func(models.StateReport)) {
	m.observers = append(m.observers, fn)
}

// Initialise derives each endpoint's starting state from its OnOff attribute.
func (m *Manager) Initialise() {
	for i, e := range m.endpoints {
		ep := models.Endpoint(i + 1)
		v, err := m.attrs.Read(ep, models.AttrOnOff)
		if err != nil {
			m.logger.Error(fmt.Errorf("Error reading on/off for endpoint %d: %w", ep, err))
		}
		e.state = lo.Ternary(v != 0, models.StateOn, models.StateOff)
		m.logger.Debug("on/off initialised", "endpoint", ep, "state", e.state)
	}
	m.initialised = true
}

// State returns the endpoint's state; unknown endpoints read as Off.
func (m *Manager) State(ep models.Endpoint) models.OnOffState {
	e, err := m.endpoint(ep)
	if err != nil {
		return models.StateOff
	}
	return e.state
}

func (m *Manager) CountdownActive(ep models.Endpoint) bool {
	e, err := m.endpoint(ep)
	if err != nil {
		return false
	}
	return e.countdown.Active()
}

func (m *Manager) HandleOn(ep models.Endpoint) models.Status {
	e, err := m.endpoint(ep)
	if err != nil {
		return models.StatusUnsupported
	}
	m.logger.Info("ON", "endpoint", ep, "state", e.state)

	switch e.state {
	case models.StateOff:
		m.emit(ep, true)
		m.setState(ep, models.StateOn)
	case models.StateTimedOn, models.StateDelayedOff:
		wasDelayedOff := e.state == models.StateDelayedOff
		e.countdown.Cancel()
		m.writeAttribute(ep, models.AttrOnTime, 0)
		m.writeAttribute(ep, models.AttrOffWaitTime, 0)
		if wasDelayedOff {
			m.emit(ep, true)
		}
		m.setState(ep, models.StateOn)
	}
	return models.StatusHandled
}

func (m *Manager) HandleOff(ep models.Endpoint) models.Status {
	e, err := m.endpoint(ep)
	if err != nil {
		return models.StatusUnsupported
	}
	m.logger.Info("OFF", "endpoint", ep, "state", e.state)

	switch e.state {
	case models.StateOn:
		m.setState(ep, models.StateOff)
		m.emit(ep, false)
	case models.StateTimedOn:
		// cut the on-time short and let the countdown logic pick Off or DelayedOff
		m.writeAttribute(ep, models.AttrOnTime, 0)
		e.countdown.Cancel()
		m.timedStateUpdate(ep, false)
	}
	return models.StatusHandled
}

func (m *Manager) HandleToggle(ep models.Endpoint) models.Status {
	e, err := m.endpoint(ep)
	if err != nil {
		return models.StatusUnsupported
	}
	m.logger.Info("TOGGLE", "endpoint", ep, "state", e.state)

	if e.state.IsOff() {
		return m.HandleOn(ep)
	}
	return m.HandleOff(ep)
}

// HandleOnWithTimedOff stores the on-time and off-wait counters (deciseconds) and lets the
// countdown take over.
func (m *Manager) HandleOnWithTimedOff(ep models.Endpoint, onlyIfOn bool, onTime uint16, offWaitTime uint16) models.Status {
	e, err := m.endpoint(ep)
	if err != nil {
		return models.StatusUnsupported
	}
	m.logger.Info("ON_WITH_TIMED_OFF", "endpoint", ep, "onlyIfOn", onlyIfOn, "onTime", onTime, "offWaitTime", offWaitTime)

	if onlyIfOn && e.state != models.StateOn {
		return models.StatusHandled
	}

	if e.state != models.StateDelayedOff {
		if err := m.attrs.Write(ep, models.AttrOnTime, onTime); err != nil {
			m.logger.Error(fmt.Errorf("Error writing on time for endpoint %d: %w", ep, err))
			return models.StatusUnsupported
		}
	}
	if err := m.attrs.Write(ep, models.AttrOffWaitTime, offWaitTime); err != nil {
		m.logger.Error(fmt.Errorf("Error writing off wait time for endpoint %d: %w", ep, err))
		return models.StatusUnsupported
	}

	m.timedStateUpdate(ep, false)
	return models.StatusHandled
}

// AttributeWritten persists OnOff changes and folds writes the manager did not make itself
// into On or Off.
func (m *Manager) AttributeWritten(change models.AttributeChange) {
	if !m.initialised || change.Attribute != models.AttrOnOff {
		return
	}
	e, err := m.endpoint(change.Endpoint)
	if err != nil {
		return
	}

	on := change.Value != 0
	if err := m.store.SaveOnOff(change.Endpoint, on); err != nil {
		m.logger.Error(fmt.Errorf("Error persisting on/off for endpoint %d: %w", change.Endpoint, err))
	}
	if m.emitting {
		return
	}

	switch {
	case !on && !e.state.IsOff():
		e.countdown.Cancel()
		m.setState(change.Endpoint, models.StateOff)
	case on && e.state.IsOff():
		e.countdown.Cancel()
		m.setState(change.Endpoint, models.StateOn)
	}
}

// SetOnOffFromLevel flips the OnOff attribute as a side effect of a level command.
func (m *Manager) SetOnOffFromLevel(ep models.Endpoint, on bool) {
	m.logger.Debug("on/off from level", "endpoint", ep, "on", on)
	m.writeAttribute(ep, models.AttrOnOff, lo.Ternary[uint16](on, 1, 0))
}

// TransitionFinished settles the output once the level engine is done: dark while logically
// off, otherwise the current level.
func (m *Manager) TransitionFinished(ep models.Endpoint) {
	e, err := m.endpoint(ep)
	if err != nil {
		return
	}
	if e.state.IsOff() {
		m.sink.SetLevel(ep.Channel(), 0)
		return
	}
	level, err := m.attrs.Read(ep, models.AttrCurrentLevel)
	if err != nil {
		m.logger.Error(fmt.Errorf("Error reading current level for endpoint %d: %w", ep, err))
		return
	}
	m.sink.SetLevel(ep.Channel(), uint8(level))
}

func (m *Manager) timedStateUpdate(ep models.Endpoint, decrement bool) {
	e := m.endpoints[ep-1]

	onTime, err := m.attrs.Read(ep, models.AttrOnTime)
	if err != nil {
		m.logger.Error(fmt.Errorf("Error reading on time for endpoint %d: %w", ep, err))
		return
	}
	offWaitTime, err := m.attrs.Read(ep, models.AttrOffWaitTime)
	if err != nil {
		m.logger.Error(fmt.Errorf("Error reading off wait time for endpoint %d: %w", ep, err))
		return
	}

	switch e.state {
	case models.StateOn:
		if onTime != 0 {
			m.setState(ep, models.StateTimedOn)
		} else if offWaitTime != 0 {
			m.setState(ep, models.StateDelayedOff)
		}
	case models.StateOff:
		if onTime != 0 {
			m.emit(ep, true)
			m.setState(ep, models.StateTimedOn)
		} else if offWaitTime != 0 {
			m.setState(ep, models.StateDelayedOff)
		}
	case models.StateTimedOn:
		if decrement {
			onTime = countDown(onTime)
			m.writeAttribute(ep, models.AttrOnTime, onTime)
		}
		if onTime == 0 {
			m.emit(ep, false)
			m.setState(ep, lo.Ternary(offWaitTime != 0, models.StateDelayedOff, models.StateOff))
		}
	case models.StateDelayedOff:
		if decrement {
			offWaitTime = countDown(offWaitTime)
			m.writeAttribute(ep, models.AttrOffWaitTime, offWaitTime)
		}
		if offWaitTime == 0 {
			m.setState(ep, models.StateOff)
		}
	}

	var remaining uint16
	switch e.state {
	case models.StateTimedOn:
		remaining = onTime
	case models.StateDelayedOff:
		remaining = offWaitTime
	default:
		e.countdown.Cancel()
		return
	}

	next := m.interval
	if remaining < constants.CountdownStep {
		next = m.interval * time.Duration(remaining) / constants.CountdownStep
	}
	e.countdown.Arm(next)
}

// emit writes the OnOff attribute on the manager's own behalf and fades the output.
func (m *Manager) emit(ep models.Endpoint, on bool) {
	m.emitting = true
	m.writeAttribute(ep, models.AttrOnOff, lo.Ternary[uint16](on, 1, 0))
	m.emitting = false

	m.levels.OnOffEffect(ep, on)
}

func (m *Manager) setState(ep models.Endpoint, s models.OnOffState) {
	e := m.endpoints[ep-1]
	if e.state == s {
		return
	}
	m.logger.Info("state change", "endpoint", ep, "from", e.state, "to", s)
	e.state = s

	for _, fn := range m.observers {
		fn(models.StateReport{Endpoint: ep, State: s.String()})
	}
}

func (m *Manager) writeAttribute(ep models.Endpoint, id models.AttributeID, value uint16) {
	if err := m.attrs.Write(ep, id, value); err != nil {
		m.logger.Error(fmt.Errorf("Error writing %v for endpoint %d: %w", id, ep, err))
	}
}

func (m *Manager) endpoint(ep models.Endpoint) (*endpointState, error) {
	if ep < 1 || int(ep) > len(m.endpoints) {
		err := fmt.Errorf("Error accessing on/off state for endpoint %d: %w", ep, ErrInvalidEndpoint)
		m.logger.Error(err)
		return nil, err
	}
	return m.endpoints[ep-1], nil
}

func countDown(v uint16) uint16 {
	if v >= constants.CountdownStep {
		return v - constants.CountdownStep
	}
	return 0
}
