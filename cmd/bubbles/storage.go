package main

import (
	"fmt"

	"github.com/cellfield/bubbles/internal/config"
	"github.com/cellfield/bubbles/internal/storage"
)

// openCatalog creates and initializes the configured run catalog.
func (a *app) openCatalog() (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := storage.NewBackend(storageCfg, a.zlog)
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "error", err)
		return nil, fmt.Errorf("initializing %s catalog: %w", storageCfg.Type, err)
	}
	a.closers = append(a.closers, backend.Close)

	a.logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return backend, nil
}
