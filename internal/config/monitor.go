package config

import (
	"fmt"
	"os"

	"github.com/enrell/alpine-wifi-bridge/constant"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadMonitor reads the optional YAML tuning file of the monitor. Fields
// left out keep their defaults.
func LoadMonitor(fs afero.Fs, path string) (models.MonitorConfig, error) {
	cfg := models.DefaultMonitorConfig()
	cfg.SocketPath = constant.SocketPath

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read monitor config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal monitor config: %w", err)
	}
	if err := validateMonitor(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateMonitor(cfg models.MonitorConfig) error {
	switch cfg.ProbeMethod {
	case models.ProbeICMP, models.ProbeCommand:
	default:
		return fmt.Errorf("unsupported probeMethod %q", cfg.ProbeMethod)
	}
	if len(cfg.Targets) == 0 {
		return fmt.Errorf("at least one probe target is required")
	}
	if cfg.FailureThreshold < 1 {
		return fmt.Errorf("failureThreshold must be positive")
	}
	if cfg.ProbeInterval <= 0 || cfg.ProbeTimeout <= 0 {
		return fmt.Errorf("probeInterval and probeTimeout must be positive")
	}
	if cfg.ProbeTimeout >= cfg.ProbeInterval {
		return fmt.Errorf("probeTimeout (%s) must be shorter than probeInterval (%s)", cfg.ProbeTimeout, cfg.ProbeInterval)
	}
	return nil
}
