package mpdplayer

import (
	"fmt"
	"time"
)

// DefaultTimeout bounds the whole exchange with MPD.
const DefaultTimeout = 2 * time.Second

type MPDConn struct {
	Type     string // "unix" or "tcp"
	Address  string // socket path or TCP address
	Password string
	Timeout  time.Duration
}

// NewMPDConnection returns nil, nil when no address is configured: MPD
// coordination is optional.
func NewMPDConnection(connectionType, address, password string) (*MPDConn, error) {
	if address == "" {
		return nil, nil
	}
	conn := &MPDConn{
		Type:     connectionType,
		Address:  address,
		Password: password,
		Timeout:  DefaultTimeout,
	}

	if err := validateMPDConnection(conn); err != nil {
		return nil, fmt.Errorf("Failed to create valid MPD Config: %w", err)
	}
	return conn, nil
}

// validateMPDConnection checks the validity of the MPD connection settings
func validateMPDConnection(conn *MPDConn) error {
	if conn.Type != "unix" && conn.Type != "tcp" {
		return fmt.Errorf("invalid MPD.Type: %s, must be 'unix' or 'tcp'", conn.Type)
	}
	return nil
}
