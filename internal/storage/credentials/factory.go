package credentials

import (
	"fmt"

	"github.com/bobmcallan/papertrade/internal/common"
	"github.com/bobmcallan/papertrade/internal/interfaces"
)

// NewStore creates a credential store for the configured backend.
func NewStore(cfg common.CredentialStoreConfig, logger *common.Logger) (interfaces.CredentialStore, error) {
	switch cfg.Backend {
	case "", "file":
		logger.Debug().Str("path", cfg.Path).Msg("Using file credential store")
		return NewFileStore(cfg.Path), nil
	case "badger":
		logger.Debug().Str("path", cfg.Path).Msg("Using badger credential store")
		return NewBadgerStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown credential store backend: %s", cfg.Backend)
	}
}

// Interface checks
var (
	_ interfaces.CredentialStore = (*MemoryStore)(nil)
	_ interfaces.CredentialStore = (*FileStore)(nil)
	_ interfaces.CredentialStore = (*BadgerStore)(nil)
)
