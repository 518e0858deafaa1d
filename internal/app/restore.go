package app

import (
	"context"

	"github.com/enrell/alpine-wifi-bridge/models"
)

// Restore tears the bridge down using the settings saved at setup time.
func (a *App) Restore(ctx context.Context, s models.Settings) {
	a.recovery.Restore(ctx, s)
}

// Backup takes the one-shot backup on its own.
func (a *App) Backup(ctx context.Context, s models.Settings) (bool, error) {
	return a.recovery.Backup(ctx, s)
}
