package models

// Command is any decoded command accepted by the controller.
type Command interface {
	Target() Endpoint
}

type SetLevelCommand struct {
	Endpoint       Endpoint
	Level          uint8
	TransitionTime uint16
	OptionsMask    uint8
	WithOnOff      bool
}

type MoveCommand struct {
	Endpoint    Endpoint
	Direction   Direction
	Rate        uint8
	OptionsMask uint8
	WithOnOff   bool
}

type StepCommand struct {
	Endpoint       Endpoint
	Direction      Direction
	StepSize       uint8
	TransitionTime uint16
	OptionsMask    uint8
	WithOnOff      bool
}

type StopCommand struct {
	Endpoint    Endpoint
	OptionsMask uint8
	WithOnOff   bool
}

type OnCommand struct{ Endpoint Endpoint }
type OffCommand struct{ Endpoint Endpoint }
type ToggleCommand struct{ Endpoint Endpoint }

type OnWithTimedOffCommand struct {
	Endpoint    Endpoint
	OnlyIfOn    bool
	OnTime      uint16
	OffWaitTime uint16
}

// RunEffectCommand addresses a channel rather than an endpoint so that AUX can be targeted.
type RunEffectCommand struct {
	Channel     Channel
	Effect      string
	RepeatCount uint8
}

type IdentifyCommand struct {
	Endpoint Endpoint
	Seconds  uint16
}

func (c SetLevelCommand) Target() Endpoint       { return c.Endpoint }
func (c MoveCommand) Target() Endpoint           { return c.Endpoint }
func (c StepCommand) Target() Endpoint           { return c.Endpoint }
func (c StopCommand) Target() Endpoint           { return c.Endpoint }
func (c OnCommand) Target() Endpoint             { return c.Endpoint }
func (c OffCommand) Target() Endpoint            { return c.Endpoint }
func (c ToggleCommand) Target() Endpoint         { return c.Endpoint }
func (c OnWithTimedOffCommand) Target() Endpoint { return c.Endpoint }
func (c RunEffectCommand) Target() Endpoint      { return c.Channel.Endpoint() }
func (c IdentifyCommand) Target() Endpoint       { return c.Endpoint }

type NetworkEvent string

const (
	NetworkOpened       NetworkEvent = "opened"
	NetworkClosed       NetworkEvent = "closed"
	NetworkDeviceJoined NetworkEvent = "deviceJoined"
	NetworkLeft         NetworkEvent = "left"
)

type ButtonEvent string

const (
	ButtonNextPairingTarget ButtonEvent = "nextPairingTarget"
	ButtonRequestReboot     ButtonEvent = "requestReboot"
)
