// Package guard makes sure a single radio plays on the host at a time.
//
// Every mechanism relies on a kernel object owned by the holding process
// (a locked file description or a bound socket), so a holder that dies,
// even from SIGKILL, frees the guard without any cleanup.
package guard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	MethodFlock    = "flock"
	MethodTCP      = "tcp"
	MethodAbstract = "abstract"

	DefaultTCPAddress      = "127.0.0.1:47823"
	DefaultAbstractAddress = "@myra"
	lockFileName           = ".myrarc.lock"
)

var ErrAlreadyRunning = errors.New("radio player is already on")

type Guard interface {
	// Acquire never waits: contention fails with ErrAlreadyRunning.
	Acquire() (*Lock, error)
}

// Lock is a held guard. Release is safe to call more than once.
type Lock struct {
	name    string
	release func() error
	once    sync.Once
	err     error
}

func newLock(name string, release func() error) *Lock {
	return &Lock{name: name, release: release}
}

func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		l.err = l.release()
	})
	return l.err
}

func (l *Lock) String() string {
	return l.name
}

// New returns the guard for method. An empty address selects the
// method's default location.
func New(method, address string) (Guard, error) {
	switch method {
	case MethodFlock, "":
		if address == "" {
			address = DefaultLockFile()
		}
		return NewFileGuard(address), nil
	case MethodTCP:
		if address == "" {
			address = DefaultTCPAddress
		}
		return NewSocketGuard("tcp", address), nil
	case MethodAbstract:
		if address == "" {
			address = DefaultAbstractAddress
		}
		return NewSocketGuard("unix", address), nil
	default:
		return nil, fmt.Errorf("invalid Lock.Method: %s, must be '%s', '%s' or '%s'", method, MethodFlock, MethodTCP, MethodAbstract)
	}
}

func DefaultLockFile() string {
	return filepath.Join(os.TempDir(), lockFileName)
}
