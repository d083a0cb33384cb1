package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/wheelibin/striplight/internal/concurrency"
	"github.com/wheelibin/striplight/internal/config"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

type controller interface {
	Execute(ctx context.Context, cmd models.Command) (models.Status, error)
	ExecuteNetworkEvent(ctx context.Context, ev models.NetworkEvent) error
	ExecuteButtonEvent(ctx context.Context, ev models.ButtonEvent) error
	CollectSnapshots(ctx context.Context) ([]models.EndpointSnapshot, error)
}

type reportSubscriber interface {
	Subscribe(kinds ...string) chan interface{}
	Unsubscribe(ch chan interface{}, kinds ...string)
}

var snapshotKinds = []string{constants.ReportTopicAttribute, constants.ReportTopicState}

// Bridge feeds MQTT commands into the controller and publishes endpoint snapshots whenever
// an endpoint's state changes, throttled to one publish per report interval.
type Bridge struct {
	logger   *log.Logger
	client   Client
	ctrl     controller
	hub      reportSubscriber
	prefix   string
	interval time.Duration

	mu      sync.Mutex
	pending map[models.Endpoint]bool
	jobs    chan models.Endpoint
}

func NewBridge(logger *log.Logger, cfg config.MQTTConfig, client Client, ctrl controller, hub reportSubscriber) *Bridge {
	return &Bridge{
		logger:   logger,
		client:   client,
		ctrl:     ctrl,
		hub:      hub,
		prefix:   cfg.TopicPrefix,
		interval: cfg.ReportInterval,
		pending:  map[models.Endpoint]bool{},
		jobs:     make(chan models.Endpoint, constants.MaxEndpoints),
	}
}

// Start subscribes to the command topics, schedules a first snapshot of every endpoint and
// keeps publishing changes until ctx is done.
func (b *Bridge) Start(ctx context.Context) error {
	b.logger.Debug("Bridge.Start")

	for _, filter := range Subscriptions(b.prefix) {
		if err := b.client.Subscribe(filter, func(topic string, payload []byte) { b.handle(ctx, topic, payload) }); err != nil {
			return err
		}
	}

	reports := b.hub.Subscribe(snapshotKinds...)

	worker := concurrency.NewThrottledWorker(b.logger, b.interval, func(ep models.Endpoint) error {
		return b.publishSnapshot(ctx, ep)
	})
	go worker.Run(ctx, b.jobs)
	go b.watch(ctx, reports)

	snapshots, err := b.ctrl.CollectSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("Error collecting initial snapshots: %w", err)
	}
	for _, s := range snapshots {
		b.schedule(s.Endpoint)
	}
	return nil
}

func (b *Bridge) watch(ctx context.Context, reports chan interface{}) {
	defer b.hub.Unsubscribe(reports, snapshotKinds...)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bridge.watch: stop signal received")
			return
		case msg := <-reports:
			r, ok := msg.(models.Report)
			if !ok {
				continue
			}
			switch {
			case r.Attribute != nil:
				b.schedule(r.Attribute.Endpoint)
			case r.State != nil:
				b.schedule(r.State.Endpoint)
			}
		}
	}
}

// schedule queues one snapshot publish for ep unless one is already waiting.
func (b *Bridge) schedule(ep models.Endpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[ep] {
		return
	}
	select {
	case b.jobs <- ep:
		b.pending[ep] = true
	default:
		b.logger.Warn("snapshot queue full", "endpoint", ep)
	}
}

func (b *Bridge) publishSnapshot(ctx context.Context, ep models.Endpoint) error {
	b.mu.Lock()
	delete(b.pending, ep)
	b.mu.Unlock()

	snapshots, err := b.ctrl.CollectSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("Error collecting snapshot for endpoint %d: %w", ep, err)
	}
	snapshot, ok := lo.Find(snapshots, func(s models.EndpointSnapshot) bool { return s.Endpoint == ep })
	if !ok {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("Error encoding snapshot for endpoint %d: %w", ep, err)
	}
	return b.client.Publish(StateTopic(b.prefix, ep), data, true)
}

func (b *Bridge) handle(ctx context.Context, topic string, payload []byte) {
	route, err := Classify(b.prefix, topic)
	if err != nil {
		b.logger.Warn("ignoring message", "topic", topic, "err", err)
		return
	}

	switch route {
	case RouteNetworkEvent:
		ev, err := DecodeNetworkEvent(payload)
		if err == nil {
			err = b.ctrl.ExecuteNetworkEvent(ctx, ev)
		}
		if err != nil {
			b.logger.Error(err)
		}

	case RouteButtonEvent:
		ev, err := DecodeButtonEvent(payload)
		if err == nil {
			err = b.ctrl.ExecuteButtonEvent(ctx, ev)
		}
		if err != nil {
			b.logger.Error(err)
		}

	case RouteCommand:
		status := models.StatusUnsupported
		cmd, err := DecodeCommand(b.prefix, topic, payload)
		if err == nil {
			b.logger.Debug("command received", "topic", topic, "command", fmt.Sprintf("%+v", cmd))
			status, err = b.ctrl.Execute(ctx, cmd)
		}
		b.reply(topic, status, err)
	}
}

func (b *Bridge) reply(topic string, status models.Status, err error) {
	reply := StatusPayload{Status: status.String()}
	if err != nil {
		b.logger.Warn("command failed", "topic", topic, "err", err)
		reply.Error = err.Error()
	}
	data, err := json.Marshal(reply)
	if err != nil {
		b.logger.Error(err)
		return
	}
	if err := b.client.Publish(topic+"/status", data, false); err != nil {
		b.logger.Error(err)
	}
}
