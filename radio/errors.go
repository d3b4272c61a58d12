package radio

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/b0bbywan/go-myra/guard"
	"github.com/b0bbywan/go-myra/playercmd"
	"github.com/b0bbywan/go-myra/stations"
	"github.com/b0bbywan/go-myra/supervisor"
)

// Exit statuses are errno values.
const (
	ExitListed            = int(unix.EAGAIN)
	ExitConfigUnreadable  = int(unix.EIO)
	ExitConfigMalformed   = int(unix.EBADMSG)
	ExitStationNotFound   = int(unix.EINVAL)
	ExitUnsupportedProto  = int(unix.ENOENT)
	ExitAlreadyRunning    = int(unix.EALREADY)
	ExitPlayerNotFound    = int(unix.ENOENT)
	ExitSpawnFailed       = int(unix.ECHILD)
	ExitInterrupted       = int(unix.EINTR)
	ExitUnexpectedFailure = 1
)

// ExitCode maps a Play or List failure to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, stations.ErrConfigUnreadable):
		return ExitConfigUnreadable
	case errors.Is(err, stations.ErrConfigMalformed):
		return ExitConfigMalformed
	case errors.Is(err, stations.ErrStationNotFound):
		return ExitStationNotFound
	case errors.Is(err, playercmd.ErrUnsupportedProtocol):
		return ExitUnsupportedProto
	case errors.Is(err, guard.ErrAlreadyRunning):
		return ExitAlreadyRunning
	case errors.Is(err, supervisor.ErrPlayerNotFound):
		return ExitPlayerNotFound
	case errors.Is(err, supervisor.ErrSpawnFailed):
		return ExitSpawnFailed
	case errors.Is(err, supervisor.ErrInterrupted):
		return ExitInterrupted
	default:
		return ExitUnexpectedFailure
	}
}

// Message is the line printed on the error stream for err, or "" when
// nothing should be printed.
func Message(err error, arg, player string) string {
	switch {
	case err == nil, errors.Is(err, supervisor.ErrInterrupted):
		return ""
	case errors.Is(err, stations.ErrConfigUnreadable):
		return fmt.Sprintf("\tcannot read stations: %v", err)
	case errors.Is(err, stations.ErrConfigMalformed):
		return fmt.Sprintf("\tmalformed stations file: %v", err)
	case errors.Is(err, stations.ErrStationNotFound):
		return fmt.Sprintf("\tCannot play %s", arg)
	case errors.Is(err, playercmd.ErrUnsupportedProtocol):
		return fmt.Sprintf("\tprotocol not supported: %s", arg)
	case errors.Is(err, guard.ErrAlreadyRunning):
		return "\tradio player is already on!"
	case errors.Is(err, supervisor.ErrPlayerNotFound):
		return fmt.Sprintf("\tcommand '%s' not found!", player)
	case errors.Is(err, supervisor.ErrSpawnFailed):
		return fmt.Sprintf("\tcannot start player: %v", err)
	default:
		return fmt.Sprintf("\t%v", err)
	}
}
