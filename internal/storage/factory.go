package storage

import (
	"fmt"

	"github.com/cellfield/bubbles/internal/config"
	"github.com/cellfield/bubbles/internal/database"
	gormstorage "github.com/cellfield/bubbles/internal/storage/gorm"
	"github.com/cellfield/bubbles/internal/storage/memory"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "", "none":
		return Nop{}, nil
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite", "postgres":
		return gormstorage.New(gormstorage.Dependencies{
			Manager: database.NewManager(log),
			Config:  cfg,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
