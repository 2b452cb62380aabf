package app

import (
	"context"
	"errors"
	"fmt"

	"journalmate/internal/config"
	"journalmate/internal/repo"
)

// DefaultServiceName seeds a fresh database when no config exists anywhere.
const DefaultServiceName = "journalmate"

// ResolveConfig picks the effective service config. A journalmate.yml in
// the workspace wins and is written back to the database, so the CLI and a
// running server agree on one source; otherwise the stored config is used,
// seeded with defaults on first run.
func ResolveConfig(ctx context.Context, workspace string, r repo.Repo) (*config.Config, error) {
	fileCfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		if err := r.UpsertServiceConfig(ctx, fileCfg); err != nil {
			return nil, fmt.Errorf("store config: %w", err)
		}
		return fileCfg, nil
	}
	cfg, err := r.GetServiceConfig(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	cfg = config.Default(DefaultServiceName)
	if err := r.UpsertServiceConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("seed config: %w", err)
	}
	return cfg, nil
}
