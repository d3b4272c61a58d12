package guard

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// SocketGuard binds a listening socket nobody ever accepts on. Only one
// process can bind a given loopback port or abstract unix name
// ("@name"), and the kernel unbinds it when the holder dies.
type SocketGuard struct {
	network string
	address string
}

func NewSocketGuard(network, address string) *SocketGuard {
	return &SocketGuard{network: network, address: address}
}

func (g *SocketGuard) Acquire() (*Lock, error) {
	ln, err := net.Listen(g.network, g.address)
	if err != nil {
		if errors.Is(err, unix.EADDRINUSE) {
			return nil, fmt.Errorf("%w: %s %s is bound", ErrAlreadyRunning, g.network, g.address)
		}
		return nil, fmt.Errorf("failed to bind %s %s: %w", g.network, g.address, err)
	}

	return newLock(g.network+":"+g.address, func() error {
		if err := ln.Close(); err != nil {
			return fmt.Errorf("failed to unbind %s %s: %w", g.network, g.address, err)
		}
		return nil
	}), nil
}
