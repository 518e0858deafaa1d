package network

import (
	"fmt"
	"os"
	"strings"

	"github.com/enrell/alpine-wifi-bridge/constant"

	"github.com/spf13/afero"
)

const ipForwardLine = "net.ipv4.ip_forward=1"

// Sysctl manages the IPv4 forwarding flag, at runtime and in sysctl.conf.
type Sysctl struct {
	fs            afero.Fs
	IPForwardPath string
	ConfPath      string
}

func NewSysctl(fs afero.Fs) *Sysctl {
	return &Sysctl{
		fs:            fs,
		IPForwardPath: constant.IPForwardPath,
		ConfPath:      constant.SysctlConf,
	}
}

func (s *Sysctl) IPForward() (bool, error) {
	data, err := afero.ReadFile(s.fs, s.IPForwardPath)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", s.IPForwardPath, err)
	}
	return strings.TrimSpace(string(data)) == "1", nil
}

// SetIPForward writes the runtime flag unconditionally.
func (s *Sysctl) SetIPForward(enabled bool) error {
	value := "0\n"
	if enabled {
		value = "1\n"
	}
	if err := afero.WriteFile(s.fs, s.IPForwardPath, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.IPForwardPath, err)
	}
	return nil
}

// PersistIPForward appends the forwarding line to sysctl.conf unless it is
// already there. A missing sysctl.conf is left alone.
func (s *Sysctl) PersistIPForward() (bool, error) {
	data, err := afero.ReadFile(s.fs, s.ConfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", s.ConfPath, err)
	}
	if strings.Contains(string(data), ipForwardLine) {
		return false, nil
	}

	f, err := s.fs.OpenFile(s.ConfPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", s.ConfPath, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString("\n# Added by Alpine Wi-Fi Bridge\n" + ipForwardLine + "\n"); err != nil {
		return false, fmt.Errorf("failed to append to %s: %w", s.ConfPath, err)
	}
	return true, nil
}

// StripIPForward removes every line carrying the forwarding setting.
func (s *Sysctl) StripIPForward() error {
	data, err := afero.ReadFile(s.fs, s.ConfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", s.ConfPath, err)
	}

	lines := strings.SplitAfter(string(data), "\n")
	var b strings.Builder
	for _, line := range lines {
		if strings.Contains(line, ipForwardLine) {
			continue
		}
		b.WriteString(line)
	}
	if b.Len() == len(data) {
		return nil
	}
	if err := afero.WriteFile(s.fs, s.ConfPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.ConfPath, err)
	}
	return nil
}
