package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/striplight/internal/config"
	"github.com/wheelibin/striplight/internal/models"
	"github.com/wheelibin/striplight/internal/reports"
	"github.com/wheelibin/striplight/internal/tui"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {

	// read the config file
	cfg, err := config.ReadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.NewWithOptions(&lumberjack.Logger{
		Filename: cfg.Log.File,
		MaxAge:   3,
	}, log.Options{
		Level:      log.InfoLevel,
		TimeFormat: "2006/01/02 15:04:05",
	})
	logger.Info("striplight monitor starting", "url", cfg.Monitor.URL)

	// run the terminal UI
	monitor := tui.NewMonitor(cfg.Endpoints)
	consumer := reports.NewConsumer(logger, cfg.Monitor.URL)

	// the program must be running before reports can be sent to it
	go func() {
		err := consumer.Subscribe(
			func(r models.Report) { monitor.Report(r) },
			func(connected bool) { monitor.Connection(connected, cfg.Monitor.URL) },
		)
		if err != nil {
			logger.Error(err)
		}
	}()

	if err := monitor.Run(); err != nil {
		logger.Error(err)
	}

	// cleanup before exit
	consumer.Unsubscribe()
	logger.Info("striplight monitor is closing")
}
