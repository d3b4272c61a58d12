package playercmd

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultBinary       = "mplayer"
	DefaultQuietFlag    = "-really-quiet"
	DefaultCacheFlag    = "-cache"
	DefaultCacheSize    = 256
	DefaultPlaylistFlag = "-playlist"
)

var ErrUnsupportedProtocol = errors.New("protocol not supported")

var (
	playlistSuffixes = []string{"m3u", "pls", "asx"}
	playlistPrefixes = []string{"mms"}
	// rtmp streams need a different player invocation, not implemented
	unsupportedPrefixes = []string{"rtmp"}
)

// Builder turns a stream URL into the player's argument vector.
type Builder struct {
	Binary       string
	QuietFlag    string
	CacheFlag    string
	CacheSize    int
	PlaylistFlag string
}

func NewBuilder(binary string, cacheSize int) *Builder {
	return &Builder{
		Binary:       binary,
		QuietFlag:    DefaultQuietFlag,
		CacheFlag:    DefaultCacheFlag,
		CacheSize:    cacheSize,
		PlaylistFlag: DefaultPlaylistFlag,
	}
}

func DefaultBuilder() *Builder {
	return NewBuilder(DefaultBinary, DefaultCacheSize)
}

// Build returns [binary, quiet, cache-flag, cache-size, (playlist-flag), url].
func (b *Builder) Build(url string) ([]string, error) {
	for _, prefix := range unsupportedPrefixes {
		if strings.HasPrefix(url, prefix) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, url)
		}
	}

	argv := []string{b.Binary}
	if b.QuietFlag != "" {
		argv = append(argv, b.QuietFlag)
	}
	if b.CacheFlag != "" {
		argv = append(argv, b.CacheFlag, fmt.Sprintf("%d", b.CacheSize))
	}
	if IsPlaylist(url) && b.PlaylistFlag != "" {
		argv = append(argv, b.PlaylistFlag)
	}
	return append(argv, url), nil
}

// IsPlaylist reports whether the player must treat url as a playlist.
func IsPlaylist(url string) bool {
	for _, suffix := range playlistSuffixes {
		if strings.HasSuffix(url, suffix) {
			return true
		}
	}
	for _, prefix := range playlistPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}
