// Package mqtt decodes commands and events arriving over MQTT and publishes endpoint state.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

var (
	ErrUnknownTopic   = errors.New("unknown topic")
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingField   = errors.New("missing field")
	ErrInvalidPayload = errors.New("invalid payload")
)

// command names, the last topic level of <prefix>/<endpoint>/cmd/<command>
const (
	CommandSetLevel       = "setLevel"
	CommandMove           = "move"
	CommandStep           = "step"
	CommandStop           = "stop"
	CommandOn             = "on"
	CommandOff            = "off"
	CommandToggle         = "toggle"
	CommandOnWithTimedOff = "onWithTimedOff"
	CommandEffect         = "effect"
	CommandIdentify       = "identify"
)

type Route int

const (
	RouteCommand Route = iota
	RouteNetworkEvent
	RouteButtonEvent
)

// commandPayload carries every field any command can take. Pointers mark required fields.
type commandPayload struct {
	Level          *uint8  `json:"level"`
	TransitionTime *uint16 `json:"transitionTime"`
	Direction      *string `json:"direction"`
	Rate           *uint8  `json:"rate"`
	StepSize       *uint8  `json:"stepSize"`
	OptionsMask    uint8   `json:"optionsMask"`
	WithOnOff      bool    `json:"withOnOff"`
	OnlyIfOn       bool    `json:"onlyIfOn"`
	OnTime         *uint16 `json:"onTime"`
	OffWaitTime    *uint16 `json:"offWaitTime"`
	Effect         *string `json:"effect"`
	Repeat         uint8   `json:"repeat"`
	Seconds        *uint16 `json:"seconds"`
}

type eventPayload struct {
	Event string `json:"event"`
}

// StatusPayload is published to <command topic>/status after every command.
type StatusPayload struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Subscriptions returns the topic filters the bridge listens on.
func Subscriptions(prefix string) []string {
	return []string{
		fmt.Sprintf("%s/+/%s/+", prefix, constants.TopicCommand),
		fmt.Sprintf("%s/%s", prefix, constants.TopicNetworkEvent),
		fmt.Sprintf("%s/%s", prefix, constants.TopicButtonEvent),
	}
}

func StateTopic(prefix string, ep models.Endpoint) string {
	return fmt.Sprintf("%s/%d/%s", prefix, ep, constants.TopicState)
}

// Classify tells which kind of message arrived on topic.
func Classify(prefix, topic string) (Route, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return 0, fmt.Errorf("Error routing %q: %w", topic, ErrUnknownTopic)
	}
	switch rest {
	case constants.TopicNetworkEvent:
		return RouteNetworkEvent, nil
	case constants.TopicButtonEvent:
		return RouteButtonEvent, nil
	}
	parts := strings.Split(rest, "/")
	if len(parts) == 3 && parts[1] == constants.TopicCommand {
		return RouteCommand, nil
	}
	return 0, fmt.Errorf("Error routing %q: %w", topic, ErrUnknownTopic)
}

// DecodeCommand turns a command topic and its JSON payload into a command. Payloads missing a
// required field are rejected rather than partially applied.
func DecodeCommand(prefix, topic string, payload []byte) (models.Command, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	parts := strings.Split(rest, "/")
	if !ok || len(parts) != 3 || parts[1] != constants.TopicCommand {
		return nil, fmt.Errorf("Error decoding %q: %w", topic, ErrUnknownTopic)
	}
	target, name := parts[0], parts[2]

	p := commandPayload{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("Error decoding %s payload: %w: %s", name, ErrInvalidPayload, err)
		}
	}

	if target == constants.TopicAux {
		if name != CommandEffect {
			return nil, fmt.Errorf("Error decoding %s for aux: %w", name, ErrUnknownCommand)
		}
		return decodeEffect(models.Channel(constants.AuxChannel), p)
	}

	n, err := strconv.ParseUint(target, 10, 8)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("Error decoding endpoint %q: %w", target, ErrUnknownTopic)
	}
	ep := models.Endpoint(n)

	switch name {
	case CommandSetLevel:
		if p.Level == nil {
			return nil, missing(name, "level")
		}
		return models.SetLevelCommand{
			Endpoint:       ep,
			Level:          *p.Level,
			TransitionTime: transitionTime(p),
			OptionsMask:    p.OptionsMask,
			WithOnOff:      p.WithOnOff,
		}, nil

	case CommandMove:
		dir, err := direction(name, p)
		if err != nil {
			return nil, err
		}
		if p.Rate == nil {
			return nil, missing(name, "rate")
		}
		return models.MoveCommand{Endpoint: ep, Direction: dir, Rate: *p.Rate, OptionsMask: p.OptionsMask, WithOnOff: p.WithOnOff}, nil

	case CommandStep:
		dir, err := direction(name, p)
		if err != nil {
			return nil, err
		}
		if p.StepSize == nil {
			return nil, missing(name, "stepSize")
		}
		return models.StepCommand{
			Endpoint:       ep,
			Direction:      dir,
			StepSize:       *p.StepSize,
			TransitionTime: transitionTime(p),
			OptionsMask:    p.OptionsMask,
			WithOnOff:      p.WithOnOff,
		}, nil

	case CommandStop:
		return models.StopCommand{Endpoint: ep, OptionsMask: p.OptionsMask, WithOnOff: p.WithOnOff}, nil
	case CommandOn:
		return models.OnCommand{Endpoint: ep}, nil
	case CommandOff:
		return models.OffCommand{Endpoint: ep}, nil
	case CommandToggle:
		return models.ToggleCommand{Endpoint: ep}, nil

	case CommandOnWithTimedOff:
		if p.OnTime == nil {
			return nil, missing(name, "onTime")
		}
		if p.OffWaitTime == nil {
			return nil, missing(name, "offWaitTime")
		}
		return models.OnWithTimedOffCommand{Endpoint: ep, OnlyIfOn: p.OnlyIfOn, OnTime: *p.OnTime, OffWaitTime: *p.OffWaitTime}, nil

	case CommandEffect:
		return decodeEffect(ep.Channel(), p)

	case CommandIdentify:
		if p.Seconds == nil {
			return nil, missing(name, "seconds")
		}
		return models.IdentifyCommand{Endpoint: ep, Seconds: *p.Seconds}, nil
	}

	return nil, fmt.Errorf("Error decoding %q: %w", name, ErrUnknownCommand)
}

func DecodeNetworkEvent(payload []byte) (models.NetworkEvent, error) {
	ev, err := decodeEvent(payload)
	return models.NetworkEvent(ev), err
}

func DecodeButtonEvent(payload []byte) (models.ButtonEvent, error) {
	ev, err := decodeEvent(payload)
	return models.ButtonEvent(ev), err
}

func decodeEvent(payload []byte) (string, error) {
	p := eventPayload{}
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("Error decoding event: %w: %s", ErrInvalidPayload, err)
	}
	if p.Event == "" {
		return "", missing("event", "event")
	}
	return p.Event, nil
}

func decodeEffect(ch models.Channel, p commandPayload) (models.Command, error) {
	if p.Effect == nil {
		return nil, missing(CommandEffect, "effect")
	}
	return models.RunEffectCommand{Channel: ch, Effect: *p.Effect, RepeatCount: p.Repeat}, nil
}

// transitionTime defaults to "as fast as possible" when the field is absent
func transitionTime(p commandPayload) uint16 {
	if p.TransitionTime == nil {
		return constants.DurationUndefined
	}
	return *p.TransitionTime
}

func direction(name string, p commandPayload) (models.Direction, error) {
	if p.Direction == nil {
		return 0, missing(name, "direction")
	}
	switch *p.Direction {
	case "up":
		return models.DirectionUp, nil
	case "down":
		return models.DirectionDown, nil
	}
	return 0, fmt.Errorf("Error decoding %s direction %q: %w", name, *p.Direction, ErrInvalidPayload)
}

func missing(name, field string) error {
	return fmt.Errorf("Error decoding %s: %w: %s", name, ErrMissingField, field)
}
