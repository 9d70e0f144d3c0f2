package credentials

import (
	"context"
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"
)

// CredentialEntry is a key-value pair stored in BadgerDB.
type CredentialEntry struct {
	Key   string `badgerhold:"key"`
	Value string
}

// BadgerStore keeps credentials in an embedded BadgerHold database. Useful
// when the client already runs other Badger-backed state alongside.
type BadgerStore struct {
	db *badgerhold.Store
}

// NewBadgerStore opens (creating if needed) a BadgerHold store at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(_ context.Context, name string) (string, error) {
	var entry CredentialEntry
	err := s.db.Get(name, &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to get credential '%s': %w", name, err)
	}
	return entry.Value, nil
}

func (s *BadgerStore) Set(_ context.Context, name, value string) error {
	entry := CredentialEntry{Key: name, Value: value}
	if err := s.db.Upsert(name, entry); err != nil {
		return fmt.Errorf("failed to set credential '%s': %w", name, err)
	}
	return nil
}

func (s *BadgerStore) Clear(_ context.Context, name string) error {
	err := s.db.Delete(name, CredentialEntry{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to clear credential '%s': %w", name, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
