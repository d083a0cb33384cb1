package models

import "fmt"

// Endpoint is the 1-based externally addressable identity of a channel.
type Endpoint uint8

// Channel is the 0-based index of a physical output.
type Channel uint8

func (e Endpoint) Channel() Channel {
	return Channel(e - 1)
}

func (c Channel) Endpoint() Endpoint {
	return Endpoint(c + 1)
}

type AttributeID uint8

const (
	AttrOnOff AttributeID = iota
	AttrOnTime
	AttrOffWaitTime
	AttrCurrentLevel
	AttrRemainingTime
	AttrOptions
	AttrOnOffTransitionTime
	AttrDefaultMoveRate

	AttributeCount
)

var attributeNames = map[AttributeID]string{
	AttrOnOff:               "on_off",
	AttrOnTime:              "on_time",
	AttrOffWaitTime:         "off_wait_time",
	AttrCurrentLevel:        "current_level",
	AttrRemainingTime:       "remaining_time",
	AttrOptions:             "options",
	AttrOnOffTransitionTime: "on_off_transition_time",
	AttrDefaultMoveRate:     "default_move_rate",
}

func (a AttributeID) String() string {
	if n, ok := attributeNames[a]; ok {
		return n
	}
	return fmt.Sprintf("attribute(%d)", uint8(a))
}

// AttributeChange is delivered to store listeners after a value changes.
type AttributeChange struct {
	Endpoint  Endpoint    `json:"endpoint"`
	Attribute AttributeID `json:"-"`
	Name      string      `json:"attribute"`
	Value     uint16      `json:"value"`
}

type OnOffState uint8

const (
	StateOff OnOffState = iota
	StateOn
	StateTimedOn
	StateDelayedOff
)

func (s OnOffState) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateOn:
		return "ON"
	case StateTimedOn:
		return "TIMED_ON"
	case StateDelayedOff:
		return "DELAYED_OFF"
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

// IsOff reports whether the state counts as logically off for level commands.
func (s OnOffState) IsOff() bool {
	return s == StateOff || s == StateDelayedOff
}

type Status uint8

const (
	StatusHandled Status = iota
	StatusUnsupported
)

func (s Status) String() string {
	if s == StatusHandled {
		return "handled"
	}
	return "unsupported"
}

type Direction uint8

const (
	DirectionUp   Direction = 0
	DirectionDown Direction = 1
)
