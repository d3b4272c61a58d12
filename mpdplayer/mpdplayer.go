package mpdplayer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

const statePlay = "play"

var ErrTimeout = errors.New("MPD did not answer in time")

// Pauser pauses a local MPD so the radio is the only thing playing. A nil
// *Pauser is valid and does nothing.
type Pauser struct {
	conn   *MPDConn
	logger *log.Logger
}

func NewPauser(conn *MPDConn, logger *log.Logger) *Pauser {
	if conn == nil {
		return nil
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pauser{conn: conn, logger: logger}
}

type pauseResult struct {
	paused bool
	err    error
}

// PauseIfPlaying reports whether MPD was playing and got paused. It gives
// up after the connection timeout: gompd dials without a deadline, so a
// stalled MPD is left to the background exchange.
func (p *Pauser) PauseIfPlaying() (bool, error) {
	if p == nil {
		return false, nil
	}
	result := make(chan pauseResult, 1)
	go func() {
		paused, err := p.pauseIfPlaying()
		result <- pauseResult{paused: paused, err: err}
	}()

	timer := time.NewTimer(p.timeout())
	defer timer.Stop()
	select {
	case r := <-result:
		return r.paused, r.err
	case <-timer.C:
		return false, fmt.Errorf("%w: %s %s after %s", ErrTimeout, p.conn.Type, p.conn.Address, p.timeout())
	}
}

func (p *Pauser) pauseIfPlaying() (bool, error) {
	paused := false
	err := p.execute(func(client *mpd.Client) error {
		status, err := client.Status()
		if err != nil {
			return fmt.Errorf("failed to read MPD status: %w", err)
		}
		if status["state"] != statePlay {
			return nil
		}
		if err := client.Pause(true); err != nil {
			return fmt.Errorf("failed to pause MPD: %w", err)
		}
		paused = true
		return nil
	})
	return paused, err
}

// execute runs fn on a fresh connection, redialing once if the
// connection drops under it.
func (p *Pauser) execute(fn func(*mpd.Client) error) error {
	client, err := p.dial()
	if err != nil {
		return fmt.Errorf("failed to connect to MPD: %w", err)
	}

	err = fn(client)
	if isConnError(err) {
		p.logger.Printf("Connection error detected: %v. Reconnecting...", err)
		client.Close()
		if client, err = p.dial(); err != nil {
			return fmt.Errorf("reconnection failed: %w", err)
		}
		err = fn(client)
	}

	if closeErr := client.Close(); closeErr != nil {
		p.logger.Printf("failed to close MPD connection: %v", closeErr)
	}
	return err
}

func (p *Pauser) timeout() time.Duration {
	if p.conn.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.conn.Timeout
}

func (p *Pauser) dial() (*mpd.Client, error) {
	if p.conn.Password != "" {
		return mpd.DialAuthenticated(p.conn.Type, p.conn.Address, p.conn.Password)
	}
	return mpd.Dial(p.conn.Type, p.conn.Address)
}
