// Package radio resolves what to play and drives one playback session:
// resolve, build the player command, take the guard, run the player,
// release the guard.
package radio

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/b0bbywan/go-myra/guard"
	"github.com/b0bbywan/go-myra/stations"
	"github.com/b0bbywan/go-myra/supervisor"
)

const (
	URLLabel        = "radio from URL"
	schemeSeparator = "://"
)

// Request is a resolved playback target.
type Request struct {
	ID          string
	URL         string
	Description string
}

func (r Request) Label() string {
	if r.Description != "" {
		return r.Description
	}
	return r.ID
}

type CommandBuilder interface {
	Build(url string) ([]string, error)
}

type Runner interface {
	Run(ctx context.Context, argv []string) (supervisor.Outcome, error)
}

type MPDPauser interface {
	PauseIfPlaying() (bool, error)
}

type Controller struct {
	// Stations loads the directory lazily so URL requests never read it.
	Stations  func() (*stations.Directory, error)
	Builder   CommandBuilder
	Guard     guard.Guard
	Runner    Runner
	Announcer *Announcer
	Pauser    MPDPauser
	Out       io.Writer
	Logger    *log.Logger
	// Signals interrupt the session before the player starts. Defaults
	// to SIGINT, SIGTERM and SIGHUP.
	Signals   []os.Signal
}

func IsURL(arg string) bool {
	return strings.Contains(arg, schemeSeparator)
}

// ResolveRequest treats arg as a raw stream URL when it carries a scheme
// separator, and as a station identifier otherwise.
func (c *Controller) ResolveRequest(arg string) (Request, error) {
	if IsURL(arg) {
		return Request{ID: URLLabel, URL: arg}, nil
	}
	dir, err := c.Stations()
	if err != nil {
		return Request{}, err
	}
	station, err := dir.Resolve(arg)
	if err != nil {
		return Request{}, err
	}
	return Request{ID: station.ID, URL: station.URL, Description: station.Description}, nil
}

// Play runs one playback session for arg and returns the player's exit
// status. The guard is released on every path once it is taken.
func (c *Controller) Play(ctx context.Context, arg string) (int, error) {
	// held until Play returns so there is no gap before the runner
	// subscribes, during which an interrupt would kill the controller
	pending := make(chan os.Signal, 1)
	signal.Notify(pending, c.signals()...)
	defer signal.Stop(pending)

	req, err := c.ResolveRequest(arg)
	if err != nil {
		return 0, err
	}

	argv, err := c.Builder.Build(req.URL)
	if err != nil {
		return 0, err
	}

	lock, err := c.Guard.Acquire()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			c.logger().Printf("[radio] failed to release %s: %v", lock, err)
		}
	}()
	c.logger().Printf("info: [radio] acquired %s", lock)

	if err := c.interrupted(ctx, pending); err != nil {
		return 0, err
	}

	if c.Pauser != nil {
		if paused, err := c.Pauser.PauseIfPlaying(); err != nil {
			c.logger().Printf("[radio] could not pause MPD: %v", err)
		} else if paused {
			c.logger().Println("info: [radio] MPD paused")
		}
	}

	message := fmt.Sprintf("Now playing %s!", req.Label())
	fmt.Fprintln(c.Out, message)
	c.Announcer.Announce(ctx, message)

	if err := c.interrupted(ctx, pending); err != nil {
		return 0, err
	}

	c.logger().Printf("info: [radio] running %s", strings.Join(argv, " "))
	outcome, err := c.Runner.Run(ctx, argv)
	if err != nil {
		return outcome.ExitCode, err
	}
	return outcome.ExitCode, nil
}

// List prints the usage banner and one `\tid\tdescription` row per station.
func (c *Controller) List(w io.Writer, program string) error {
	fmt.Fprintf(w, "usage: %s <station|url>\n", program)
	dir, err := c.Stations()
	if err != nil {
		return err
	}
	for _, station := range dir.List() {
		fmt.Fprintf(w, "\t%s\t%s\n", station.ID, station.Description)
	}
	return nil
}

// interrupted reports ErrInterrupted once ctx is done or one of the
// controller's signals has arrived.
func (c *Controller) interrupted(ctx context.Context, pending <-chan os.Signal) error {
	select {
	case sig := <-pending:
		c.logger().Printf("info: [radio] received %v before the player started", sig)
		return supervisor.ErrInterrupted
	case <-ctx.Done():
		c.logger().Printf("info: [radio] %v before the player started", ctx.Err())
		return fmt.Errorf("%w: %v", supervisor.ErrInterrupted, ctx.Err())
	default:
		return nil
	}
}

func (c *Controller) signals() []os.Signal {
	if len(c.Signals) == 0 {
		return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
	}
	return c.Signals
}

func (c *Controller) logger() *log.Logger {
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
	return c.Logger
}
