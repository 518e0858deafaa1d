package recovery

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	MarkerFile    = "network_config.bak"
	IPForwardFile = "ip_forward.bak"
	IPTablesFile  = "iptables.bak"
	AddrFile      = "ip_addr.bak"
	RouteFile     = "ip_route.bak"
)

// Backup captures the pre-bridge network state once. When the marker file
// exists nothing is touched, even if the capture is stale. It reports
// whether a new backup was taken.
func (r *Recovery) Backup(ctx context.Context, s models.Settings) (bool, error) {
	marker := filepath.Join(s.BackupDir, MarkerFile)
	if exists, err := afero.Exists(r.fs, marker); err != nil {
		return false, fmt.Errorf("failed to check backup marker: %w", err)
	} else if exists {
		log.Info().Msg("network configuration backup already exists - skipping backup")
		return false, nil
	}

	log.Info().Str("dir", s.BackupDir).Msg("backing up current network configuration")
	if err := r.fs.MkdirAll(s.BackupDir, 0700); err != nil {
		return false, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if forward, err := afero.ReadFile(r.fs, r.sysctl.IPForwardPath); err != nil {
		r.step("back up IP forwarding state", err)
	} else {
		r.step("back up IP forwarding state", r.write(s.BackupDir, IPForwardFile, forward))
	}

	for _, capture := range []struct {
		file string
		cmd  executor.Command
	}{
		{IPTablesFile, executor.New("iptables-save")},
		{AddrFile, executor.New("ip", "addr", "show")},
		{RouteFile, executor.New("ip", "route", "show")},
	} {
		res := r.run(ctx, capture.cmd)
		if !res.Success() {
			continue
		}
		r.step("write "+capture.file, r.write(s.BackupDir, capture.file, []byte(res.Stdout)))
	}

	id := uuid.New()
	content := fmt.Sprintf("Backup completed\nid: %s\ntime: %s\n", id, time.Now().Format(time.RFC3339))
	if err := r.write(s.BackupDir, MarkerFile, []byte(content)); err != nil {
		return false, fmt.Errorf("failed to write backup marker: %w", err)
	}
	log.Info().Str("id", id.String()).Msg("network configuration backup completed")
	return true, nil
}

func (r *Recovery) write(dir, name string, data []byte) error {
	return afero.WriteFile(r.fs, filepath.Join(dir, name), data, 0600)
}
