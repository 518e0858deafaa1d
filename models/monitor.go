package models

import "time"

type ProbeMethod string

const (
	ProbeICMP    ProbeMethod = "icmp"
	ProbeCommand ProbeMethod = "command"
)

// MonitorConfig tunes the connectivity monitor. Zero values are replaced by
// DefaultMonitorConfig when loaded.
type MonitorConfig struct {
	Targets            []string      `yaml:"targets"`
	ProbeInterval      time.Duration `yaml:"probeInterval"`
	ProbeTimeout       time.Duration `yaml:"probeTimeout"`
	ProbeMethod        ProbeMethod   `yaml:"probeMethod"`
	PrivilegedICMP     bool          `yaml:"privilegedICMP"`
	FailureThreshold   int           `yaml:"failureThreshold"`
	RuleCheckInterval  time.Duration `yaml:"ruleCheckInterval"`
	StabilizationDelay time.Duration `yaml:"stabilizationDelay"`
	LinkSettleDelay    time.Duration `yaml:"linkSettleDelay"`
	CommandTimeout     time.Duration `yaml:"commandTimeout"`
	DHCPTimeout        time.Duration `yaml:"dhcpTimeout"`
	SocketPath         string        `yaml:"socketPath"`
	LogLevel           string        `yaml:"logLevel"`
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Targets:            []string{"8.8.8.8", "1.1.1.1", "8.8.4.4"},
		ProbeInterval:      5 * time.Second,
		ProbeTimeout:       1 * time.Second,
		ProbeMethod:        ProbeICMP,
		PrivilegedICMP:     true,
		FailureThreshold:   3,
		RuleCheckInterval:  300 * time.Second,
		StabilizationDelay: 2 * time.Second,
		LinkSettleDelay:    1 * time.Second,
		CommandTimeout:     30 * time.Second,
		DHCPTimeout:        30 * time.Second,
		LogLevel:           "info",
	}
}
