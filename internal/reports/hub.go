package reports

import (
	"github.com/btittelbach/pubsub"
	"github.com/charmbracelet/log"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

// Kinds lists every report topic published on the hub.
var Kinds = []string{
	constants.ReportTopicAttribute,
	constants.ReportTopicOutput,
	constants.ReportTopicEffect,
	constants.ReportTopicState,
}

// Hub fans reports out to any number of subscribers, one pubsub topic per report kind.
// Subscribers must keep draining their channel: Publish blocks once a channel is full.
type Hub struct {
	logger *log.Logger
	ps     *pubsub.PubSub
}

func NewHub(logger *log.Logger, capacity int) *Hub {
	return &Hub{logger: logger, ps: pubsub.New(capacity)}
}

func (h *Hub) Publish(r models.Report) {
	h.ps.Pub(r, r.Kind)
}

// Subscribe returns a channel receiving models.Report values for the given kinds, or all
// kinds when none are given.
func (h *Hub) Subscribe(kinds ...string) chan interface{} {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	h.logger.Debug("hub subscribe", "kinds", kinds)
	return h.ps.Sub(kinds...)
}

func (h *Hub) Unsubscribe(ch chan interface{}, kinds ...string) {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	h.ps.Unsub(ch, kinds...)
}

func (h *Hub) Shutdown() {
	h.ps.Shutdown()
}
