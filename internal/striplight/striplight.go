package striplight

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/wheelibin/striplight/internal/attributes"
	"github.com/wheelibin/striplight/internal/concurrency"
	"github.com/wheelibin/striplight/internal/config"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/effects"
	levelcontrol "github.com/wheelibin/striplight/internal/levelControl"
	"github.com/wheelibin/striplight/internal/models"
	onoffstatemanager "github.com/wheelibin/striplight/internal/onOffStateManager"
)

type OutputSink interface {
	SetLevel(ch models.Channel, level uint8)
	Last(ch models.Channel) uint8
	OnWrite(fn func(models.OutputReport))
}

type StateRepo interface {
	Load(ep models.Endpoint) (models.PersistedState, error)
	LoadLevel(ep models.Endpoint) (uint8, error)
	SaveLevel(ep models.Endpoint, level uint8) error
	SaveOnOff(ep models.Endpoint, on bool) error
}

type rebooter interface {
	Reboot() error
}

// Controller owns the lighting core and routes commands, network events and button events
// into it. Everything except the Execute* helpers must run on the event loop.
type Controller struct {
	logger   *log.Logger
	loop     *concurrency.EventLoop
	attrs    *attributes.Store
	output   OutputSink
	store    StateRepo
	levels   *levelcontrol.Engine
	onOff    *onoffstatemanager.Manager
	effects  *effects.Interpreter
	rebooter rebooter

	endpoints        int
	enabled          []models.Endpoint
	disabled         map[models.Endpoint]bool
	identifyTimers   []*concurrency.Timer
	identifyTime     time.Duration
	feedbackEndpoint models.Endpoint
	rebootPending    bool

	reporters []func(models.Report)
}

// effectGate drops level writes to channels that are playing an effect. The effect owns the
// channel until it stops, then restores the logical output.
type effectGate struct {
	output  OutputSink
	effects *effects.Interpreter
}

func (g *effectGate) SetLevel(ch models.Channel, level uint8) {
	if g.effects != nil && g.effects.Active(ch) {
		return
	}
	g.output.SetLevel(ch, level)
}

func NewController(logger *log.Logger, cfg config.Config, loop *concurrency.EventLoop, output OutputSink, store StateRepo, rebooter rebooter) *Controller {
	attrs := attributes.NewStore(logger, cfg.Endpoints)
	gate := &effectGate{output: output}
	levels := levelcontrol.NewEngine(logger, cfg, loop, attrs, gate, store)
	onOff := onoffstatemanager.NewManager(logger, cfg, loop, attrs, levels, gate, store)
	levels.SetOnOffCoupling(onOff)
	attrs.OnChange(onOff.AttributeWritten)
	interp := effects.NewInterpreter(logger, loop, output, attrs, constants.MaxChannels, constants.AuxChannel, cfg.Effects.TicksPerSecond)
	gate.effects = interp

	c := &Controller{
		logger:       logger,
		loop:         loop,
		attrs:        attrs,
		output:       output,
		store:        store,
		levels:       levels,
		onOff:        onOff,
		effects:      interp,
		rebooter:     rebooter,
		endpoints:    cfg.Endpoints,
		identifyTime: cfg.Identify.DefaultTime,
		disabled:     map[models.Endpoint]bool{},
	}

	for _, d := range cfg.DisabledEndpoints {
		c.disabled[models.Endpoint(d)] = true
	}
	for i := 0; i < cfg.Endpoints; i++ {
		ep := models.Endpoint(i + 1)
		if !c.disabled[ep] {
			c.enabled = append(c.enabled, ep)
		}
		c.identifyTimers = append(c.identifyTimers, loop.NewTimer(fmt.Sprintf("identify-%d", ep), func() { c.stopIdentify(ep) }))
	}

	attrs.OnChange(func(change models.AttributeChange) {
		c.report(models.Report{Kind: constants.ReportTopicAttribute, Attribute: &change})
	})
	output.OnWrite(func(r models.OutputReport) {
		c.report(models.Report{Kind: constants.ReportTopicOutput, Output: &r})
	})
	onOff.OnStateChange(func(r models.StateReport) {
		c.report(models.Report{Kind: constants.ReportTopicState, State: &r})
	})
	interp.OnChange(c.effectChanged)

	return c
}

// OnReport registers fn to receive every attribute, output, state and effect change.
func (c *Controller) OnReport(fn func(models.Report)) {
	c.reporters = append(c.reporters, fn)
}

// Initialise restores every endpoint from the repo, syncs the outputs and plays the
// reboot effect on AUX.
func (c *Controller) Initialise() {
	c.logger.Debug("Controller.Initialise")

	for i := 0; i < c.endpoints; i++ {
		ep := models.Endpoint(i + 1)
		state, err := c.store.Load(ep)
		if err != nil {
			c.logger.Debug("no persisted on/off state", "endpoint", ep, "err", err)
			continue
		}
		if state.On {
			c.writeAttribute(ep, models.AttrOnOff, 1)
		}
	}

	c.levels.Initialise()
	c.onOff.Initialise()

	for i := 0; i < c.endpoints; i++ {
		ep := models.Endpoint(i + 1)
		if c.disabled[ep] {
			c.output.SetLevel(ep.Channel(), 0)
			continue
		}
		c.onOff.TransitionFinished(ep)
	}

	if err := c.effects.Run(constants.AuxChannel, effects.Reboot, 1); err != nil {
		c.logger.Error(err)
	}
	c.logger.Info("controller initialised", "endpoints", c.enabled)
}

// Handle dispatches a decoded command. Commands addressed to disabled endpoints are unsupported.
func (c *Controller) Handle(cmd models.Command) models.Status {
	if c.disabled[cmd.Target()] {
		c.logger.Warn("command for disabled endpoint", "endpoint", cmd.Target(), "command", fmt.Sprintf("%T", cmd))
		return models.StatusUnsupported
	}

	switch cmd := cmd.(type) {
	case models.SetLevelCommand:
		return c.levels.HandleSetLevel(cmd)
	case models.MoveCommand:
		return c.levels.HandleMove(cmd)
	case models.StepCommand:
		return c.levels.HandleStep(cmd)
	case models.StopCommand:
		return c.levels.HandleStop(cmd)
	case models.OnCommand:
		return c.onOff.HandleOn(cmd.Endpoint)
	case models.OffCommand:
		return c.onOff.HandleOff(cmd.Endpoint)
	case models.ToggleCommand:
		return c.onOff.HandleToggle(cmd.Endpoint)
	case models.OnWithTimedOffCommand:
		return c.onOff.HandleOnWithTimedOff(cmd.Endpoint, cmd.OnlyIfOn, cmd.OnTime, cmd.OffWaitTime)
	case models.RunEffectCommand:
		if err := c.effects.RunByName(cmd.Channel, cmd.Effect, cmd.RepeatCount); err != nil {
			c.logger.Error(err)
			return models.StatusUnsupported
		}
		return models.StatusHandled
	case models.IdentifyCommand:
		return c.Identify(cmd.Endpoint, cmd.Seconds)
	}

	c.logger.Warn("unsupported command", "command", fmt.Sprintf("%T", cmd))
	return models.StatusUnsupported
}

// Snapshot returns the reportable state of one endpoint.
func (c *Controller) Snapshot(ep models.Endpoint) models.EndpointSnapshot {
	read := func(id models.AttributeID) uint16 {
		v, err := c.attrs.Read(ep, id)
		if err != nil {
			c.logger.Error(err)
		}
		return v
	}
	return models.EndpointSnapshot{
		Endpoint:      ep,
		On:            read(models.AttrOnOff) != 0,
		State:         c.onOff.State(ep).String(),
		Level:         uint8(read(models.AttrCurrentLevel)),
		RemainingTime: read(models.AttrRemainingTime),
		OnTime:        read(models.AttrOnTime),
		OffWaitTime:   read(models.AttrOffWaitTime),
	}
}

func (c *Controller) Snapshots() []models.EndpointSnapshot {
	return lo.Map(c.enabled, func(ep models.Endpoint, _ int) models.EndpointSnapshot {
		return c.Snapshot(ep)
	})
}

// Effect returns the name of the effect playing on the channel.
func (c *Controller) Effect(ch models.Channel) string {
	return c.effects.Current(ch)
}

func (c *Controller) EnabledEndpoints() []models.Endpoint {
	return c.enabled
}

// Run drives the event loop until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Debug("Controller.Run")
	return c.loop.Run(ctx)
}

// Execute runs cmd on the event loop and waits for its status.
func (c *Controller) Execute(ctx context.Context, cmd models.Command) (models.Status, error) {
	status := models.StatusUnsupported
	err := c.loop.Do(ctx, func() { status = c.Handle(cmd) })
	return status, err
}

func (c *Controller) ExecuteNetworkEvent(ctx context.Context, ev models.NetworkEvent) error {
	var handleErr error
	if err := c.loop.Do(ctx, func() { handleErr = c.HandleNetworkEvent(ev) }); err != nil {
		return err
	}
	return handleErr
}

func (c *Controller) ExecuteButtonEvent(ctx context.Context, ev models.ButtonEvent) error {
	var handleErr error
	if err := c.loop.Do(ctx, func() { handleErr = c.HandleButtonEvent(ev) }); err != nil {
		return err
	}
	return handleErr
}

// CollectSnapshots reads every enabled endpoint's snapshot on the event loop.
func (c *Controller) CollectSnapshots(ctx context.Context) ([]models.EndpointSnapshot, error) {
	var snapshots []models.EndpointSnapshot
	err := c.loop.Do(ctx, func() { snapshots = c.Snapshots() })
	return snapshots, err
}

func (c *Controller) report(r models.Report) {
	r.Time = time.Now()
	for _, fn := range c.reporters {
		fn(r)
	}
}

func (c *Controller) writeAttribute(ep models.Endpoint, id models.AttributeID, value uint16) {
	if err := c.attrs.Write(ep, id, value); err != nil {
		c.logger.Error(fmt.Errorf("Error writing %v for endpoint %d: %w", id, ep, err))
	}
}
