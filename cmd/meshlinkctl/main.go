package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/danmuck/meshlink/internal/config"
	"github.com/danmuck/meshlink/internal/logging"
	"github.com/danmuck/meshlink/internal/observability"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
)

var exampleUsage = strings.TrimSpace(`
  meshlinkctl run --host 127.0.0.1 --port 9000
  meshlinkctl run --config cmd/meshlinkctl/ex.config.toml --log-level debug
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "meshlinkctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "meshlinkctl",
		Short:         "Bridge a mesh packet router to length-framed TCP radios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(), newVersionCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var (
		cfgPath  string
		logLevel string
		flags    flagOverrides
	)
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the configured interfaces until interrupted",
		Example: exampleUsage,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := setupLogger(logLevel)
			if err != nil {
				return err
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			cfg := config.DefaultDaemonConfig()
			if cfgPath != "" {
				loaded, err := loadRunConfig(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if err := applyFlags(&cfg, flags, changed); err != nil {
				return err
			}
			logConfig(logger, cfg)

			d, err := newDaemon(cfg, logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return d.run(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "path to a meshlink TOML config")
	f.StringVar(&flags.Host, "host", config.DefaultHost, "bridge host (single-interface mode)")
	f.IntVar(&flags.Port, "port", config.DefaultPort, "bridge port (single-interface mode)")
	f.StringVar(&flags.StatusAddr, "status-addr", config.DefaultStatusAddr, "status HTTP listen address, empty disables")
	f.BoolVar(&flags.Loopback, "loopback", false, "echo inbound payloads back out the receiving interface")
	f.StringVar(&logLevel, "log-level", "", "log level override (trace|debug|info|warn|error|off)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "meshlinkctl %s %s/%s\n", getVersion(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

// setupLogger applies the runtime profile and the --log-level override before
// deriving the daemon logger, so every interface logger inherits the level.
func setupLogger(level string) (zerolog.Logger, error) {
	logging.ConfigureRuntime()
	if level != "" && !logging.SetLevel(level) {
		return zerolog.Logger{}, fmt.Errorf("unknown log level %q", level)
	}
	return observability.InitLogger("meshlinkctl"), nil
}

func logConfig(logger zerolog.Logger, cfg config.DaemonConfig) {
	for _, iface := range cfg.Interfaces {
		logger.Info().
			Str("iface", iface.Name).
			Str("host", iface.Host).
			Int("port", iface.Port).
			Bool("enabled", iface.IsEnabled()).
			Float64("reconnect_delay", iface.ReconnectDelay).
			Msg("interface configured")
	}
	logger.Info().
		Str("name", cfg.Name).
		Str("status_addr", cfg.StatusAddr).
		Bool("loopback", cfg.Loopback).
		Msg("configuration")
}
