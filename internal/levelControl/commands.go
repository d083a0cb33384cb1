package levelcontrol

import (
	"fmt"

	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

func (e *Engine) HandleSetLevel(cmd models.SetLevelCommand) models.Status {
	execute, suppress, ok := e.canExecute(cmd.Endpoint, cmd.OptionsMask, cmd.WithOnOff)
	if !ok {
		return models.StatusUnsupported
	}
	if !execute {
		return models.StatusHandled
	}

	e.logger.Debug("set level", "endpoint", cmd.Endpoint, "level", cmd.Level, "transitionTime", cmd.TransitionTime, "withOnOff", cmd.WithOnOff)
	err := e.start(cmd.Endpoint, move{
		target:          cmd.Level,
		duration:        cmd.TransitionTime,
		updateAttribute: true,
		withOnOff:       cmd.WithOnOff,
		suppressOutput:  suppress,
	})
	if err != nil {
		return models.StatusUnsupported
	}
	return models.StatusHandled
}

func (e *Engine) HandleMove(cmd models.MoveCommand) models.Status {
	if cmd.Direction != models.DirectionUp && cmd.Direction != models.DirectionDown {
		e.logger.Warn("move: invalid direction", "endpoint", cmd.Endpoint, "direction", cmd.Direction)
		return models.StatusUnsupported
	}
	execute, suppress, ok := e.canExecute(cmd.Endpoint, cmd.OptionsMask, cmd.WithOnOff)
	if !ok {
		return models.StatusUnsupported
	}
	if !execute {
		return models.StatusHandled
	}

	if cmd.Rate == 0 {
		e.logger.Debug("move: zero rate ignored", "endpoint", cmd.Endpoint)
		return models.StatusHandled
	}

	rate := uint16(cmd.Rate)
	if cmd.Rate == constants.MoveRateUndefined {
		var err error
		rate, err = e.attrs.Read(cmd.Endpoint, models.AttrDefaultMoveRate)
		if err != nil {
			e.logger.Error(fmt.Errorf("Error reading default move rate for endpoint %d: %w", cmd.Endpoint, err))
			rate = constants.MoveRateUndefined
		}
		if rate == 0 {
			rate = constants.MoveRateUndefined
		}
	}

	target := e.max
	if cmd.Direction == models.DirectionDown {
		target = e.min
	}

	duration := uint16(constants.DurationImmediate)
	if rate != constants.MoveRateUndefined {
		current := int(e.CurrentLevel(cmd.Endpoint))
		delta := int(target) - current
		if delta < 0 {
			delta = -delta
		}
		duration = uint16(delta * 10 / int(rate))
	}

	e.logger.Debug("move", "endpoint", cmd.Endpoint, "target", target, "rate", rate, "transitionTime", duration)
	err := e.start(cmd.Endpoint, move{
		target:          target,
		duration:        duration,
		updateAttribute: true,
		withOnOff:       cmd.WithOnOff,
		suppressOutput:  suppress,
	})
	if err != nil {
		return models.StatusUnsupported
	}
	return models.StatusHandled
}

func (e *Engine) HandleStep(cmd models.StepCommand) models.Status {
	if cmd.Direction != models.DirectionUp && cmd.Direction != models.DirectionDown {
		e.logger.Warn("step: invalid direction", "endpoint", cmd.Endpoint, "direction", cmd.Direction)
		return models.StatusUnsupported
	}
	execute, suppress, ok := e.canExecute(cmd.Endpoint, cmd.OptionsMask, cmd.WithOnOff)
	if !ok {
		return models.StatusUnsupported
	}
	if !execute {
		return models.StatusHandled
	}

	current := int(e.CurrentLevel(cmd.Endpoint))
	target := current + int(cmd.StepSize)
	if cmd.Direction == models.DirectionDown {
		target = current - int(cmd.StepSize)
	}
	if target < int(e.min) {
		target = int(e.min)
	}
	if target > int(e.max) {
		target = int(e.max)
	}

	e.logger.Debug("step", "endpoint", cmd.Endpoint, "target", target, "transitionTime", cmd.TransitionTime)
	err := e.start(cmd.Endpoint, move{
		target:          uint8(target),
		duration:        cmd.TransitionTime,
		updateAttribute: true,
		withOnOff:       cmd.WithOnOff,
		suppressOutput:  suppress,
	})
	if err != nil {
		return models.StatusUnsupported
	}
	return models.StatusHandled
}

func (e *Engine) HandleStop(cmd models.StopCommand) models.Status {
	execute, _, ok := e.canExecute(cmd.Endpoint, cmd.OptionsMask, cmd.WithOnOff)
	if !ok {
		return models.StatusUnsupported
	}
	if !execute {
		return models.StatusHandled
	}
	if err := e.Stop(cmd.Endpoint, true); err != nil {
		return models.StatusUnsupported
	}
	return models.StatusHandled
}

// canExecute applies the "execute if off" guard. ok is false for an invalid endpoint.
func (e *Engine) canExecute(ep models.Endpoint, optionsMask uint8, withOnOff bool) (execute bool, suppress bool, ok bool) {
	if _, err := e.transition(ep); err != nil {
		return false, false, false
	}
	if withOnOff || !e.onOff.State(ep).IsOff() {
		return true, false, true
	}

	options, err := e.attrs.Read(ep, models.AttrOptions)
	if err != nil {
		e.logger.Error(fmt.Errorf("Error reading options for endpoint %d: %w", ep, err))
		options = 0
	}
	if (options|uint16(optionsMask))&constants.OptionExecuteIfOff != 0 {
		e.logger.Debug("endpoint off, executing without output", "endpoint", ep)
		return true, true, true
	}
	e.logger.Debug("endpoint off, command skipped", "endpoint", ep)
	return false, false, true
}
