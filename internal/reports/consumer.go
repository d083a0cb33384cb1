package reports

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	sse "github.com/r3labs/sse/v2"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

// Consumer follows a daemon's report stream and hands decoded reports to a callback.
type Consumer struct {
	Logger *log.Logger

	url string

	mu           sync.Mutex
	client       *sse.Client
	eventChannel chan *sse.Event
	done         chan struct{}
}

func NewConsumer(logger *log.Logger, url string) *Consumer {
	return &Consumer{Logger: logger, url: url}
}

// Subscribe connects to the stream and calls onReport for every report until Unsubscribe.
// onConnection is told about connects and disconnects.
func (c *Consumer) Subscribe(onReport func(models.Report), onConnection func(connected bool)) error {
	events := make(chan *sse.Event)
	done := make(chan struct{})
	client := sse.NewClient(c.url)

	c.mu.Lock()
	c.client, c.eventChannel, c.done = client, events, done
	c.mu.Unlock()

	client.OnConnect(func(_ *sse.Client) {
		c.Logger.Info("Connected to striplightd, listening for reports...", "url", c.url)
		onConnection(true)
	})
	client.OnDisconnect(func(_ *sse.Client) {
		c.Logger.Info("Disconnected from striplightd")
		onConnection(false)
	})

	if err := client.SubscribeChan(constants.ReportStream, events); err != nil {
		return fmt.Errorf("Error subscribing to reports at %s: %w", c.url, err)
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				r, err := Decode(event)
				if err != nil {
					c.Logger.Error(err)
					continue
				}
				onReport(r)
			}
		}
	}()
	return nil
}

func (c *Consumer) Unsubscribe() {
	c.Logger.Debug("Unsubscribe reports")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return
	}
	c.client.Unsubscribe(c.eventChannel)
	close(c.done)
	c.client = nil
}

// Decode turns one stream event back into a report.
func Decode(event *sse.Event) (models.Report, error) {
	r := models.Report{}
	if err := json.Unmarshal(event.Data, &r); err != nil {
		return r, fmt.Errorf("Error decoding %q report: %w", event.Event, err)
	}
	return r, nil
}
