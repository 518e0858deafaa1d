package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/enrell/alpine-wifi-bridge/constant"
	v1 "github.com/enrell/alpine-wifi-bridge/internal/api/v1"
	"github.com/enrell/alpine-wifi-bridge/internal/config"
	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/logbuffer"
	netfilterHelper "github.com/enrell/alpine-wifi-bridge/netfilter-helper"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func getPIDPath(pid int) (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
}

// checkPIDFile refuses to start while another monitor is alive and clears
// a stale file left by a crashed one.
func checkPIDFile(pidFile string) error {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return errors.New("invalid PID file content")
	}

	if pid != os.Getpid() && unix.Kill(pid, 0) == nil {
		currPID, _ := getPIDPath(os.Getpid())
		filePID, _ := getPIDPath(pid)
		if path.Base(currPID) == path.Base(filePID) {
			return fmt.Errorf("process %d is already running", pid)
		}
	}

	_ = os.Remove(pidFile)
	return nil
}

func createPIDFile(pidFile string) error {
	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func removePIDFile(pidFile string) {
	_ = os.Remove(pidFile)
}

func setupUnixSocket(socketPath string, apiRouter chi.Router, errChan chan error) (*http.Server, error) {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove existing UNIX socket: %w", err)
	}

	socket, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("error while serving UNIX socket: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/api", apiRouter)

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if e := srv.Serve(socket); e != nil && !errors.Is(e, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve UNIX socket: %w", e)
		}
		_ = socket.Close()
		_ = os.Remove(socketPath)
	}()

	return srv, nil
}

func monitorCmd(flags *globalFlags, logs *logbuffer.RingBuffer) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch connectivity and keep the bridge rules in place",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(flags, logs, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", constant.RuntimeConfigFile, "settings file written by setup")
	return cmd
}

func runMonitor(flags *globalFlags, logs *logbuffer.RingBuffer, configPath string) error {
	core, err := newApp(flags, logs)
	if err != nil {
		return err
	}
	log.Info().
		Str("version", constant.Version).
		Str("commit", constant.Commit).
		Msg("starting Wi-Fi bridge monitor")

	if err := checkPIDFile(constant.PIDFile); err != nil {
		return fmt.Errorf("failed to check PID file: %w", err)
	}
	if err := createPIDFile(constant.PIDFile); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer removePIDFile(constant.PIDFile)

	s, err := core.ResolveSettings(configPath)
	if err != nil {
		if !bridgeErrors.Is(err, config.ErrNoWirelessInterface) {
			return err
		}
		log.Warn().Err(err).Msg("no Wi-Fi interface - rules cannot be applied until one appears")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mon := core.NewMonitor(s, reg)

	var rules v1.RuleReporter
	if core.NetfilterHelper().Backend() == netfilterHelper.BackendIptables {
		if inspector, err := netfilterHelper.NewInspector(); err != nil {
			log.Warn().Err(err).Msg("rule drift report unavailable")
		} else {
			rules = inspector
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monResult := make(chan error, 1)
	go func() {
		monResult <- mon.Run(ctx)
	}()

	apiHandler := v1.NewHandler(mon, rules, core.LogBuffer(), s, string(core.NetfilterHelper().Backend()))
	apiRouter := v1.NewRouter(apiHandler, reg)

	socketPath := core.MonitorConfig().SocketPath
	errChan := make(chan error, 1)
	srvUnix, err := setupUnixSocket(socketPath, apiRouter, errChan)
	if err != nil {
		cancel()
		<-monResult
		return err
	}
	log.Info().Msgf("Starting UNIX socket on %s", socketPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	var once sync.Once
	shutdown := func() {
		log.Info().Msg("shutting down monitor")
		cancel()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := srvUnix.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn().Msg("UNIX socket server shutdown timed out; some connections may not have closed cleanly")
			} else {
				log.Error().Err(err).Msg("UNIX socket server shutdown error")
			}
		}
	}

	for {
		select {
		case err := <-monResult:
			if err != nil {
				log.Error().Err(err).Msg("monitor failed")
			}
			once.Do(shutdown)
			log.Info().Msg("monitor stopped")
			return err
		case err := <-errChan:
			if err != nil {
				log.Error().Err(err).Msg("server error")
			}
			once.Do(shutdown)
		case sig := <-sigChan:
			log.Info().Msgf("received signal: %v", sig)
			switch sig {
			case os.Interrupt, syscall.SIGTERM:
				once.Do(shutdown)
			case syscall.SIGHUP:
				mon.RequestReconcile()
			}
		}
	}
}
