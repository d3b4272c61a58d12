package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/b0bbywan/go-myra/guard"
	"github.com/b0bbywan/go-myra/mpdplayer"
	"github.com/b0bbywan/go-myra/playercmd"
	"github.com/b0bbywan/go-myra/supervisor"
)

const (
	AppName      = "myra"
	AppVersion   = "0.1"
	StationsFile = ".myrarc"
)

type LauncherConfig struct {
	StationsFile    string
	Builder         *playercmd.Builder
	Grace           time.Duration
	RestoreTerminal bool
	LockMethod      string
	LockAddress     string
	Announce        []string
	MPDConnection   *mpdplayer.MPDConn
	Verbose         bool
}

// flag name -> configuration key
var flagKeys = map[string]string{
	"stations":     "StationsFile",
	"player":       "Player.Binary",
	"cache":        "Player.CacheSize",
	"grace":        "Player.Grace",
	"lock":         "Lock.Method",
	"lock-address": "Lock.Address",
	"verbose":      "Verbose",
}

// NewLauncherConfig merges defaults, the optional config.yaml, MYRA_*
// environment variables and flags, in increasing precedence.
func NewLauncherConfig(flags *pflag.FlagSet) (*LauncherConfig, error) {
	v := viper.New()
	v.SetDefault("StationsFile", filepath.Join("~", StationsFile))
	v.SetDefault("Player.Binary", playercmd.DefaultBinary)
	v.SetDefault("Player.QuietFlag", playercmd.DefaultQuietFlag)
	v.SetDefault("Player.CacheFlag", playercmd.DefaultCacheFlag)
	v.SetDefault("Player.CacheSize", playercmd.DefaultCacheSize)
	v.SetDefault("Player.PlaylistFlag", playercmd.DefaultPlaylistFlag)
	v.SetDefault("Player.Grace", supervisor.DefaultGrace)
	v.SetDefault("Player.RestoreTerminal", true)
	v.SetDefault("Lock.Method", guard.MethodFlock)
	v.SetDefault("Lock.Address", "")
	v.SetDefault("Announce", []string{})
	v.SetDefault("MPD.Type", "tcp")
	v.SetDefault("MPD.Address", "")
	v.SetDefault("MPD.Password", "")
	v.SetDefault("MPD.Timeout", mpdplayer.DefaultTimeout)
	v.SetDefault("Verbose", false)

	configFile := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")                       // name of config file (without extension)
		v.SetConfigType("yaml")                         // config file format
		v.AddConfigPath(filepath.Join("/etc", AppName)) // Global configuration path
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName)) // User config path
		}
	}

	// MYRA_PLAYER_BINARY overrides Player.Binary
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// File not found is acceptable, only raise errors for other issues
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Error reading config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind --%s: %w", name, err)
				}
			}
		}
	}

	stationsFile, err := expandHome(v.GetString("StationsFile"))
	if err != nil {
		return nil, fmt.Errorf("invalid StationsFile: %w", err)
	}

	builder := &playercmd.Builder{
		Binary:       v.GetString("Player.Binary"),
		QuietFlag:    v.GetString("Player.QuietFlag"),
		CacheFlag:    v.GetString("Player.CacheFlag"),
		CacheSize:    v.GetInt("Player.CacheSize"),
		PlaylistFlag: v.GetString("Player.PlaylistFlag"),
	}
	if err := validateBuilder(builder); err != nil {
		return nil, err
	}

	grace := v.GetDuration("Player.Grace")
	if grace <= 0 {
		return nil, fmt.Errorf("Player.Grace must be positive, got %s", grace)
	}

	mpdConnection, err := mpdplayer.NewMPDConnection(
		v.GetString("MPD.Type"),
		v.GetString("MPD.Address"),
		v.GetString("MPD.Password"),
	)
	if err != nil {
		return nil, fmt.Errorf("Error validating MPD Connection: %w", err)
	}
	if mpdConnection != nil {
		mpdConnection.Timeout = v.GetDuration("MPD.Timeout")
	}

	return &LauncherConfig{
		StationsFile:    stationsFile,
		Builder:         builder,
		Grace:           grace,
		RestoreTerminal: v.GetBool("Player.RestoreTerminal"),
		LockMethod:      v.GetString("Lock.Method"),
		LockAddress:     v.GetString("Lock.Address"),
		Announce:        v.GetStringSlice("Announce"),
		MPDConnection:   mpdConnection,
		Verbose:         v.GetBool("Verbose"),
	}, nil
}

func validateBuilder(b *playercmd.Builder) error {
	if b.Binary == "" {
		return fmt.Errorf("Player.Binary cannot be empty")
	}
	if b.CacheSize <= 0 {
		return fmt.Errorf("Player.CacheSize must be positive, got %d", b.CacheSize)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
