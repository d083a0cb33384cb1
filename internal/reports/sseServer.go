package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	sse "github.com/r3labs/sse/v2"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

type subscriber interface {
	Subscribe(kinds ...string) chan interface{}
	Unsubscribe(ch chan interface{}, kinds ...string)
}

// SSEServer streams hub reports to monitors as JSON server-sent events.
type SSEServer struct {
	logger *log.Logger
	hub    subscriber
	server *sse.Server
}

func NewSSEServer(logger *log.Logger, hub subscriber) *SSEServer {
	server := sse.New()
	server.AutoReplay = false
	server.CreateStream(constants.ReportStream)
	return &SSEServer{logger: logger, hub: hub, server: server}
}

// Handler serves the report stream at /events?stream=reports.
func (s *SSEServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.server.ServeHTTP)
	return mux
}

// Run forwards hub reports to the stream until ctx is done.
func (s *SSEServer) Run(ctx context.Context) {
	s.logger.Debug("SSEServer.Run")

	reports := s.hub.Subscribe()
	defer s.hub.Unsubscribe(reports)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SSEServer.Run: stop signal received")
			return
		case msg := <-reports:
			r, ok := msg.(models.Report)
			if !ok {
				continue
			}
			if err := s.publish(r); err != nil {
				s.logger.Error(err)
			}
		}
	}
}

func (s *SSEServer) publish(r models.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("Error encoding %s report: %w", r.Kind, err)
	}
	s.server.Publish(constants.ReportStream, &sse.Event{Event: []byte(r.Kind), Data: data})
	return nil
}

func (s *SSEServer) Close() {
	s.server.Close()
}
