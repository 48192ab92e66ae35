package service

import (
	"context"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/settings"
)

// QueryStore defines the minimal data access contract required by services.
type QueryStore interface {
	Queries() repository.Querier
	RunInTx(ctx context.Context, fn func(q repository.Querier) error) error
}

// SettingsSource serves the current engine settings.
type SettingsSource interface {
	Get(ctx context.Context) (settings.Settings, error)
}
