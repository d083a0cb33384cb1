package models

import "time"

// Report is the envelope published on the report hub and streamed to monitors.
type Report struct {
	Time      time.Time        `json:"time"`
	Kind      string           `json:"kind"`
	Attribute *AttributeChange `json:"attribute,omitempty"`
	Output    *OutputReport    `json:"output,omitempty"`
	Effect    *EffectReport    `json:"effect,omitempty"`
	State     *StateReport     `json:"state,omitempty"`
}

type OutputReport struct {
	Channel Channel `json:"channel"`
	Level   uint8   `json:"level"`
}

type EffectReport struct {
	Channel Channel `json:"channel"`
	Effect  string  `json:"effect"`
	Active  bool    `json:"active"`
}

type StateReport struct {
	Endpoint Endpoint `json:"endpoint"`
	State    string   `json:"state"`
}

// EndpointSnapshot is the per-endpoint state published to mqtt.
type EndpointSnapshot struct {
	Endpoint      Endpoint `json:"endpoint"`
	On            bool     `json:"on"`
	State         string   `json:"state"`
	Level         uint8    `json:"level"`
	RemainingTime uint16   `json:"remainingTime"`
	OnTime        uint16   `json:"onTime"`
	OffWaitTime   uint16   `json:"offWaitTime"`
}

// PersistedState is what survives a restart for one endpoint.
type PersistedState struct {
	Level uint8
	On    bool
}
