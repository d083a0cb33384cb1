package striplight

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/effects"
	"github.com/wheelibin/striplight/internal/models"
)

var ErrUnknownEvent = errors.New("unknown event")

// Identify blinks the endpoint for the given number of seconds; zero stops it.
func (c *Controller) Identify(ep models.Endpoint, seconds uint16) models.Status {
	if ep < 1 || int(ep) > c.endpoints || c.disabled[ep] {
		c.logger.Warn("identify: endpoint not available", "endpoint", ep)
		return models.StatusUnsupported
	}
	c.logger.Info("identify", "endpoint", ep, "seconds", seconds)

	if seconds == 0 {
		c.stopIdentify(ep)
		return models.StatusHandled
	}
	c.identify(ep, time.Duration(seconds)*time.Second)
	return models.StatusHandled
}

func (c *Controller) identify(ep models.Endpoint, d time.Duration) {
	if err := c.effects.Run(ep.Channel(), effects.Identify, 0); err != nil {
		c.logger.Error(err)
		return
	}
	c.identifyTimers[ep-1].Arm(d)
}

func (c *Controller) stopIdentify(ep models.Endpoint) {
	c.identifyTimers[ep-1].Cancel()
	if err := c.effects.Run(ep.Channel(), effects.None, 0); err != nil {
		c.logger.Error(err)
	}
}

// HandleNetworkEvent plays the feedback effect for a network stack event.
func (c *Controller) HandleNetworkEvent(ev models.NetworkEvent) error {
	c.logger.Info("network event", "event", ev)

	var err error
	switch ev {
	case models.NetworkOpened:
		err = c.effects.Run(constants.AuxChannel, effects.JoiningNetwork, 0)
	case models.NetworkClosed:
		err = c.effects.Run(constants.AuxChannel, effects.None, 0)
	case models.NetworkDeviceJoined:
		if c.feedbackEndpoint == 0 {
			c.logger.Debug("device joined outside pairing, ignored")
			return nil
		}
		err = c.effects.Run(c.feedbackEndpoint.Channel(), effects.DeviceJoined, constants.DeviceJoinedRepeat)
	case models.NetworkLeft:
		err = c.effects.Run(constants.AuxChannel, effects.LeftNetwork, constants.LeftNetworkRepeat)
	default:
		return fmt.Errorf("Error handling network event %q: %w", ev, ErrUnknownEvent)
	}
	return err
}

// HandleButtonEvent reacts to the physical button: a short press moves pairing on to the
// next endpoint, a long press requests a reboot.
func (c *Controller) HandleButtonEvent(ev models.ButtonEvent) error {
	c.logger.Info("button event", "event", ev)

	switch ev {
	case models.ButtonNextPairingTarget:
		c.nextPairingTarget()
		return nil
	case models.ButtonRequestReboot:
		c.rebootPending = true
		return c.effects.Run(constants.AuxChannel, effects.Reboot, 1)
	}
	return fmt.Errorf("Error handling button event %q: %w", ev, ErrUnknownEvent)
}

// FeedbackEndpoint returns the endpoint currently offered for pairing, or 0.
func (c *Controller) FeedbackEndpoint() models.Endpoint {
	return c.feedbackEndpoint
}

func (c *Controller) nextPairingTarget() {
	previous := c.feedbackEndpoint
	if previous != 0 {
		c.stopIdentify(previous)
	}

	next, ok := lo.Find(c.enabled, func(ep models.Endpoint) bool { return ep > previous })
	if !ok {
		c.logger.Info("pairing finished")
		c.feedbackEndpoint = 0
		if err := c.HandleNetworkEvent(models.NetworkClosed); err != nil {
			c.logger.Error(err)
		}
		return
	}

	c.logger.Info("pairing target", "endpoint", next)
	c.feedbackEndpoint = next
	c.identify(next, c.identifyTime)
	if previous == 0 {
		if err := c.HandleNetworkEvent(models.NetworkOpened); err != nil {
			c.logger.Error(err)
		}
	}
}

func (c *Controller) effectChanged(r models.EffectReport) {
	c.report(models.Report{Kind: constants.ReportTopicEffect, Effect: &r})

	// hand a finished endpoint channel back to the level logic
	if ep := r.Channel.Endpoint(); !r.Active && r.Channel != constants.AuxChannel && int(ep) <= c.endpoints && !c.disabled[ep] && !c.levels.Active(ep) {
		c.onOff.TransitionFinished(ep)
	}

	if r.Active || r.Channel != constants.AuxChannel || r.Effect != effects.NameReboot || !c.rebootPending {
		return
	}
	c.rebootPending = false
	c.logger.Warn("rebooting")
	if err := c.rebooter.Reboot(); err != nil {
		c.logger.Error(fmt.Errorf("Error rebooting: %w", err))
	}
}
