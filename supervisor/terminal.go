package supervisor

import (
	"os"

	"golang.org/x/term"
)

// terminalState remembers the tty modes so a player killed mid-session
// cannot leave the shell in raw mode.
type terminalState struct {
	fd    int
	state *term.State
}

func saveTerminal(f *os.File) *terminalState {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	state, err := term.GetState(fd)
	if err != nil {
		return nil
	}
	return &terminalState{fd: fd, state: state}
}

func (t *terminalState) restore() error {
	if t == nil {
		return nil
	}
	return term.Restore(t.fd, t.state)
}
