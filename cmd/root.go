package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/b0bbywan/go-myra/config"
	"github.com/b0bbywan/go-myra/guard"
	"github.com/b0bbywan/go-myra/playercmd"
	"github.com/b0bbywan/go-myra/radio"
	"github.com/b0bbywan/go-myra/supervisor"
)

// ExitUsage is returned for bad flags or too many arguments.
const ExitUsage = int(unix.E2BIG)

// Execute runs the command line and returns the process exit status.
func Execute() int {
	return execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := 0
	root := newRootCommand(stdout, stderr, &code)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		return ExitUsage
	}
	return code
}

func newRootCommand(stdout, stderr io.Writer, code *int) *cobra.Command {
	root := &cobra.Command{
		Use:     config.AppName + " [station|url]",
		Short:   "Play an internet radio station with an external player",
		Version: config.AppVersion,
		Long: `Plays a station listed in ~/.myrarc, one "identifier url [description]"
per line, or a stream URL given directly. Only one radio plays at a time.
Without arguments, lists the configured stations.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		Run: func(cmd *cobra.Command, args []string) {
			*code = run(cmd, args, stdout, stderr)
		},
	}

	flags := root.Flags()
	flags.String("config", "", "config file (default /etc/myra/config.yaml or ~/.config/myra/config.yaml)")
	flags.String("stations", "", "stations file (default ~/"+config.StationsFile+")")
	flags.String("player", playercmd.DefaultBinary, "external player binary")
	flags.Int("cache", playercmd.DefaultCacheSize, "player cache size in kilobytes")
	flags.Duration("grace", supervisor.DefaultGrace, "time given to the player to exit after an interrupt")
	flags.String("lock", guard.MethodFlock, "single instance lock: flock, tcp or abstract")
	flags.String("lock-address", "", "lock file, tcp address or abstract socket name")
	flags.BoolP("verbose", "v", false, "log diagnostics to stderr")

	return root
}

func run(cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.NewLauncherConfig(cmd.Flags())
	if err != nil {
		fmt.Fprintf(stderr, "\t%v\n", err)
		return radio.ExitUnexpectedFailure
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.Verbose {
		logger = log.New(stderr, config.AppName+": ", log.LstdFlags)
	}

	launcher, err := NewLauncher(cfg, stdout, logger)
	if err != nil {
		fmt.Fprintf(stderr, "\t%v\n", err)
		return radio.ExitUnexpectedFailure
	}

	if len(args) == 0 {
		if err := launcher.Controller.List(stdout, config.AppName); err != nil {
			fmt.Fprintln(stderr, radio.Message(err, "", cfg.Builder.Binary))
			return radio.ExitCode(err)
		}
		return radio.ExitListed
	}

	status, err := launcher.Controller.Play(cmd.Context(), args[0])
	if err != nil {
		if msg := radio.Message(err, args[0], cfg.Builder.Binary); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		logger.Printf("[radio] %s: %v", args[0], err)
		return radio.ExitCode(err)
	}
	return status
}
