package main

import (
	"errors"
	"os"

	"github.com/enrell/alpine-wifi-bridge/constant"
	"github.com/enrell/alpine-wifi-bridge/internal/app"
	"github.com/enrell/alpine-wifi-bridge/internal/config"
	"github.com/enrell/alpine-wifi-bridge/internal/logbuffer"
	wifibridgeAPI "github.com/enrell/alpine-wifi-bridge/pkg/wifibridge-api"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var errNotRoot = errors.New("this command must be run as root")

type globalFlags struct {
	logLevel      string
	monitorConfig string
	socketPath    string
}

func main() {
	logs := logbuffer.NewRingBuffer(500)
	setupLogger(logs, zerolog.InfoLevel)

	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "wifibridge",
		Short:         "Share a Wi-Fi uplink with a wired LAN",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.monitorConfig, "monitor-config", constant.MonitorConfigFile, "monitor configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.socketPath, "socket", "", "control socket path (default "+constant.SocketPath+")")

	rootCmd.AddCommand(
		setupCmd(flags, logs),
		restoreCmd(flags, logs),
		backupCmd(flags, logs),
		monitorCmd(flags, logs),
		statusCmd(flags),
		logsCmd(flags),
		hookCmd(flags),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// setupLogger sends every line to the console and to the ring buffer
// served by the control API.
func setupLogger(logs *logbuffer.RingBuffer, level zerolog.Level) {
	writer := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: os.Stderr},
		logbuffer.Writer{Buffer: logs},
	)
	log.Logger = zerolog.New(writer).With().Timestamp().Logger().Level(level)
}

func (f *globalFlags) client() wifibridgeAPI.Client {
	if f.socketPath != "" {
		return wifibridgeAPI.NewClient(f.socketPath)
	}
	return wifibridgeAPI.NewClient(constant.SocketPath)
}

func requireRoot() error {
	if unix.Geteuid() != 0 {
		return errNotRoot
	}
	return nil
}

// newApp loads the monitor configuration and builds the application for a
// privileged command.
func newApp(flags *globalFlags, logs *logbuffer.RingBuffer) (*app.App, error) {
	if err := requireRoot(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadMonitor(afero.NewOsFs(), flags.monitorConfig)
	if err != nil {
		return nil, err
	}
	if flags.socketPath != "" {
		cfg.SocketPath = flags.socketPath
	}

	levelName := cfg.LogLevel
	if flags.logLevel != "" {
		levelName = flags.logLevel
	}
	if level, err := zerolog.ParseLevel(levelName); err != nil {
		log.Warn().Str("level", levelName).Msg("unknown log level - using info")
	} else if level != zerolog.NoLevel {
		setupLogger(logs, level)
	}

	return app.New(app.Deps{}, cfg, logs), nil
}
