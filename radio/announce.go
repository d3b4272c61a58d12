package radio

import (
	"context"
	"io"
	"log"
	"os"
	"os/exec"
)

// Announcer runs a banner command (e.g. `cowsay -W 13`) with the status
// message appended. Failures never block playback. A nil *Announcer
// announces nothing.
type Announcer struct {
	command []string
	out     io.Writer
	logger  *log.Logger
}

func NewAnnouncer(command []string, out io.Writer, logger *log.Logger) *Announcer {
	if len(command) == 0 {
		return nil
	}
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Announcer{command: command, out: out, logger: logger}
}

func (a *Announcer) Announce(ctx context.Context, message string) {
	if a == nil {
		return
	}
	args := append(append([]string{}, a.command[1:]...), message)
	cmd := exec.CommandContext(ctx, a.command[0], args...)
	cmd.Stdout = a.out
	cmd.Stderr = a.out
	if err := cmd.Run(); err != nil {
		a.logger.Printf("[announce] command '%s' failed: %v", a.command[0], err)
	}
}
