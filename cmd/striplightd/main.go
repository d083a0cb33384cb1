package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/lo"
	"github.com/wheelibin/striplight/internal/channels"
	"github.com/wheelibin/striplight/internal/concurrency"
	"github.com/wheelibin/striplight/internal/config"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/mqtt"
	"github.com/wheelibin/striplight/internal/reports"
	"github.com/wheelibin/striplight/internal/repos"
	"github.com/wheelibin/striplight/internal/striplight"
)

// restartExitCode asks the service manager to start the daemon again.
const restartExitCode = 75

// restarter ends the daemon after the reboot effect; the service manager brings it back.
type restarter struct {
	logger    *log.Logger
	cancel    context.CancelFunc
	requested bool
}

func (r *restarter) Reboot() error {
	r.logger.Warn("restart requested")
	r.requested = true
	r.cancel()
	return nil
}

var logLevels = map[string]log.Level{
	"debug": log.DebugLevel,
	"info":  log.InfoLevel,
	"warn":  log.WarnLevel,
	"error": log.ErrorLevel,
}

func main() {
	os.Exit(run())
}

func run() int {

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           log.InfoLevel,
		ReportTimestamp: true,
		ReportCaller:    true,
	})
	logger.Info("striplightd starting")

	// read the config file
	cfg, err := config.ReadConfig()
	if err != nil {
		logger.Error(err)
		return 1
	}
	if level, ok := logLevels[cfg.Log.Level]; ok {
		logger.SetLevel(level)
	} else {
		logger.Warn("unknown log level, using info", "level", cfg.Log.Level)
	}

	// persisted endpoint state
	db, err := sql.Open("sqlite3", cfg.Database.Path)
	if err != nil {
		logger.Error(err)
		return 1
	}
	defer db.Close()
	repo, err := repos.NewEndpointStateRepo(logger, db)
	if err != nil {
		logger.Error(err)
		return 1
	}

	// physical outputs
	driver, err := newDriver(logger, cfg)
	if err != nil {
		logger.Error(err)
		return 1
	}
	output := channels.NewOutput(logger, driver, constants.MaxChannels)
	defer output.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// create/wire up services
	loop := concurrency.NewEventLoop(logger)
	rebooter := &restarter{logger: logger, cancel: cancel}
	controller := striplight.NewController(logger, *cfg, loop, output, repo, rebooter)

	hub := reports.NewHub(logger, 64)
	defer hub.Shutdown()
	controller.OnReport(hub.Publish)

	sseServer := reports.NewSSEServer(logger, hub)
	defer sseServer.Close()
	go sseServer.Run(ctx)

	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: sseServer.Handler()}
	go func() {
		logger.Info("serving reports", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err)
			cancel()
		}
	}()

	// start the controller loop
	loop.Post(controller.Initialise)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(err)
		}
	}()

	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewRealClient(logger, cfg.MQTT)
		if err != nil {
			logger.Error(err)
			return 1
		}
		defer client.Close()

		bridge := mqtt.NewBridge(logger, cfg.MQTT, client, controller, hub)
		if err := bridge.Start(ctx); err != nil {
			logger.Error(err)
			return 1
		}
	} else {
		logger.Warn("no mqtt broker configured, commands are disabled")
	}

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quitChannel:
	case <-ctx.Done():
	}

	// cleanup before exit
	cancel()
	<-loopDone
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(err)
	}
	logger.Info("striplightd is closing")

	if rebooter.requested {
		return restartExitCode
	}
	return 0
}

func newDriver(logger *log.Logger, cfg *config.Config) (channels.Driver, error) {
	if !cfg.GPIO.Enabled {
		logger.Warn("gpio disabled, using the fake driver")
		return channels.NewFakeDriver(), nil
	}

	if cfg.GPIO.DetectChannels {
		enabled, err := channels.DetectEnabled(cfg.GPIO.Chip, cfg.GPIO.Lines)
		if err != nil {
			return nil, err
		}
		// only addressable channels can be disabled; AUX is always driven
		for i, on := range enabled {
			ep := i + 1
			if !on && ep <= cfg.Endpoints && !lo.Contains(cfg.DisabledEndpoints, ep) {
				logger.Info("channel not populated, disabling", "endpoint", ep)
				cfg.DisabledEndpoints = append(cfg.DisabledEndpoints, ep)
			}
		}
	}

	return channels.NewGPIODriver(logger, cfg.GPIO.Chip, cfg.GPIO.Lines, cfg.GPIO.ActiveLow)
}
