// Package supervisor runs the external player in its own process group
// and owns it until it is reaped.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const DefaultGrace = 2 * time.Second

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrSpawnFailed    = errors.New("failed to start player")
	ErrInterrupted    = errors.New("playback interrupted")
)

// Outcome describes how the player terminated.
type Outcome struct {
	Pid         int
	Pgid        int
	ExitCode    int
	Signal      syscall.Signal
	Interrupted bool
}

type Supervisor struct {
	// Grace is how long the group gets to exit after SIGINT before SIGKILL.
	Grace time.Duration
	// Signals received by the controller while the player runs.
	Signals         []os.Signal
	RestoreTerminal bool
	Logger          *log.Logger
}

func New(grace time.Duration, restoreTerminal bool, logger *log.Logger) *Supervisor {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Supervisor{
		Grace:           grace,
		Signals:         []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP},
		RestoreTerminal: restoreTerminal,
		Logger:          logger,
	}
}

// Run starts argv and blocks until it terminates. Cancelling ctx or
// receiving one of s.Signals stops the whole process group and returns
// ErrInterrupted once the player is reaped.
func (s *Supervisor) Run(ctx context.Context, argv []string) (Outcome, error) {
	if len(argv) == 0 {
		return Outcome{}, fmt.Errorf("%w: empty command", ErrSpawnFailed)
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %s: %v", ErrPlayerNotFound, argv[0], err)
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Args[0] = argv[0]
	// nil stdio is bound to the null device: the player keeps quiet and
	// never reads from the terminal while in a background group
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	// the kernel kills the player if the controller dies without
	// reaping it, as the guard is freed along with the controller
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pdeathsig: syscall.SIGKILL}

	// subscribe before starting so an early interrupt reaches the group
	// instead of terminating the controller
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, s.Signals...)
	defer signal.Stop(sigs)

	if s.RestoreTerminal {
		tty := saveTerminal(os.Stdin)
		defer func() {
			if err := tty.restore(); err != nil {
				s.Logger.Printf("[supervisor] failed to restore terminal: %v", err)
			}
		}()
	}

	// Pdeathsig fires when the forking thread exits, not the process:
	// keep this goroutine on that thread until the player is reaped
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return Outcome{}, fmt.Errorf("%w: %s: %v", ErrPlayerNotFound, argv[0], err)
		}
		return Outcome{}, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	pgid := cmd.Process.Pid
	s.Logger.Printf("info: [supervisor] started %s pid=%d pgid=%d", argv[0], cmd.Process.Pid, pgid)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		outcome := outcomeOf(cmd, pgid)
		s.Logger.Printf("info: [supervisor] %s exited: code=%d signal=%v wait=%v", argv[0], outcome.ExitCode, outcome.Signal, err)
		return outcome, nil
	case sig := <-sigs:
		s.Logger.Printf("info: [supervisor] received %v, stopping process group %d", sig, pgid)
	case <-ctx.Done():
		s.Logger.Printf("info: [supervisor] %v, stopping process group %d", ctx.Err(), pgid)
	}

	s.stopGroup(pgid, done, sigs)
	outcome := outcomeOf(cmd, pgid)
	outcome.Interrupted = true
	return outcome, ErrInterrupted
}

// stopGroup interrupts the group, escalates to SIGKILL after the grace
// period (or a second signal), and returns once the leader is reaped
// and no member of the group is left.
func (s *Supervisor) stopGroup(pgid int, done <-chan error, sigs <-chan os.Signal) {
	s.signalGroup(pgid, unix.SIGINT)

	timer := time.NewTimer(s.Grace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.Logger.Printf("info: [supervisor] process group %d still alive after %s, killing", pgid, s.Grace)
		s.signalGroup(pgid, unix.SIGKILL)
		<-done
	case sig := <-sigs:
		s.Logger.Printf("info: [supervisor] received %v again, killing process group %d", sig, pgid)
		s.signalGroup(pgid, unix.SIGKILL)
		<-done
	}

	// helpers spawned by the player may outlive it
	if err := unix.Kill(-pgid, 0); err == nil {
		s.Logger.Printf("info: [supervisor] killing leftover members of process group %d", pgid)
		s.signalGroup(pgid, unix.SIGKILL)
	}
}

func (s *Supervisor) signalGroup(pgid int, sig syscall.Signal) {
	if err := unix.Kill(-pgid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		s.Logger.Printf("[supervisor] failed to send %v to process group %d: %v", sig, pgid, err)
	}
}

func outcomeOf(cmd *exec.Cmd, pgid int) Outcome {
	outcome := Outcome{Pid: cmd.Process.Pid, Pgid: pgid}
	if cmd.ProcessState == nil {
		return outcome
	}
	if status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		outcome.Signal = status.Signal()
		outcome.ExitCode = 128 + int(status.Signal())
		return outcome
	}
	outcome.ExitCode = cmd.ProcessState.ExitCode()
	return outcome
}
