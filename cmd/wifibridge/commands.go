package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/enrell/alpine-wifi-bridge/constant"
	"github.com/enrell/alpine-wifi-bridge/internal/app"
	"github.com/enrell/alpine-wifi-bridge/internal/config"
	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/logbuffer"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func setupCmd(flags *globalFlags, logs *logbuffer.RingBuffer) *cobra.Command {
	var configPath string
	var creds app.WiFiCredentials
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Connect to Wi-Fi and share it on the Ethernet interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, logs)
			if err != nil {
				return err
			}
			s, err := config.Load(a.Fs(), configPath)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			s, err = a.Setup(ctx, s, creds)
			if err != nil {
				return err
			}
			log.Info().
				Str("wlan", s.WLANIface).
				Str("eth", s.ETHIface).
				Str("lan", s.ETHAddress()).
				Msg("bridge is up")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", constant.DefaultConfigFile, "settings file")
	cmd.Flags().StringVar(&creds.SSID, "ssid", "", "Wi-Fi network name, used when no wpa_supplicant config exists")
	cmd.Flags().StringVar(&creds.Passphrase, "psk", "", "Wi-Fi passphrase, used when no wpa_supplicant config exists")
	return cmd
}

func restoreCmd(flags *globalFlags, logs *logbuffer.RingBuffer) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Remove the bridge and restore the saved network state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, logs)
			if err != nil {
				return err
			}
			s, err := a.ResolveSettings(configPath)
			if err != nil && bridgeErrors.Is(err, config.ErrNoWirelessInterface) {
				log.Warn().Err(err).Msg("restoring without a Wi-Fi interface")
			} else if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			a.Restore(ctx, s)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", constant.RuntimeConfigFile, "settings file written by setup")
	return cmd
}

func backupCmd(flags *globalFlags, logs *logbuffer.RingBuffer) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Save the current network state once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, logs)
			if err != nil {
				return err
			}
			s, err := config.Load(a.Fs(), configPath)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			taken, err := a.Backup(ctx, s)
			if err != nil {
				return err
			}
			if taken {
				log.Info().Str("dir", s.BackupDir).Msg("backup saved")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", constant.DefaultConfigFile, "settings file")
	return cmd
}

func statusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show monitor state and rule drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := flags.client()
			status, err := client.MonitorStatus()
			if err != nil {
				return fmt.Errorf("monitor is not reachable: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "state:     %s (%d/%d failures, %d restarts)\n", status.State, status.ConsecutiveFailures, status.Threshold, status.Restarts)
			fmt.Fprintf(out, "backend:   %s\n", status.Backend)
			fmt.Fprintf(out, "wlan:      %s via %s\n", status.WLANIface, status.GatewayIP)
			fmt.Fprintf(out, "eth:       %s\n", status.ETHIface)
			if !status.LastProbeAt.IsZero() {
				fmt.Fprintf(out, "last probe: %s ok=%t at %s\n", status.LastTarget, status.LastProbeOK, status.LastProbeAt.Format("15:04:05"))
			}

			rules, err := client.Rules()
			if err != nil {
				fmt.Fprintf(out, "rules:     unavailable (%v)\n", err)
				return nil
			}
			fmt.Fprintf(out, "rules:     %d missing of %d\n", rules.Missing, len(rules.Rules))
			for _, r := range rules.Rules {
				if !r.Present {
					fmt.Fprintf(out, "  missing: %s\n", r.Rule)
				}
			}
			return nil
		},
	}
}

func logsCmd(flags *globalFlags) *cobra.Command {
	var level string
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent monitor log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := flags.client().Logs(level, limit)
			if err != nil {
				return err
			}
			for _, e := range res.Logs {
				line := fmt.Sprintf("%s %-5s %s", e.Time.Format("2006-01-02 15:04:05"), e.Level, e.Message)
				if e.Error != "" {
					line += " error=" + e.Error
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "minimum level")
	cmd.Flags().IntVar(&limit, "limit", 50, "number of lines")
	return cmd
}

func hookCmd(flags *globalFlags) *cobra.Command {
	hookCmd := &cobra.Command{
		Use:   "hook",
		Short: "Emit hook",
	}
	hookCmd.AddCommand(hookNetfilterDCmd(flags))
	return hookCmd
}

func hookNetfilterDCmd(flags *globalFlags) *cobra.Command {
	var ipttype string
	var table string
	cmd := &cobra.Command{
		Use:   "netfilter.d",
		Short: "netfilter.d hook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.client().NetfilterDHook(ipttype, table); err != nil {
				return fmt.Errorf("executing hook error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ipttype, "type", "", "iptables type")
	cmd.Flags().StringVar(&table, "table", "", "iptables table")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wifibridge %s (%s)\n", constant.Version, constant.Commit)
		},
	}
}
