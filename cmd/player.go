package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/b0bbywan/go-myra/config"
	"github.com/b0bbywan/go-myra/guard"
	"github.com/b0bbywan/go-myra/mpdplayer"
	"github.com/b0bbywan/go-myra/radio"
	"github.com/b0bbywan/go-myra/stations"
	"github.com/b0bbywan/go-myra/supervisor"
)

// Launcher wires the configured components into a radio controller.
type Launcher struct {
	Config     *config.LauncherConfig
	Controller *radio.Controller
}

func NewLauncher(cfg *config.LauncherConfig, stdout io.Writer, logger *log.Logger) (*Launcher, error) {
	g, err := guard.New(cfg.LockMethod, cfg.LockAddress)
	if err != nil {
		return nil, fmt.Errorf("Error creating single instance guard: %w", err)
	}

	runner := supervisor.New(cfg.Grace, cfg.RestoreTerminal, logger)
	controller := &radio.Controller{
		Stations: func() (*stations.Directory, error) {
			logger.Printf("info: Loading stations from %s", cfg.StationsFile)
			return stations.LoadFile(cfg.StationsFile)
		},
		Builder:   cfg.Builder,
		Guard:     g,
		Runner:    runner,
		Announcer: radio.NewAnnouncer(cfg.Announce, stdout, logger),
		Out:       stdout,
		Logger:    logger,
		Signals:   runner.Signals,
	}
	if pauser := mpdplayer.NewPauser(cfg.MPDConnection, logger); pauser != nil {
		controller.Pauser = pauser
	}

	return &Launcher{
		Config:     cfg,
		Controller: controller,
	}, nil
}
