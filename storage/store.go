// Package storage provides durable client-local key-value storage.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory, directory and SQLite without API changes
// - Each storage implementation encapsulates its own data structures and protocols

package storage

import (
	"context"
	"errors"
)

// Fixed keys used by the tool widgets.
const (
	// KeyNotes holds the free-form notes text.
	KeyNotes = "notes"
	// KeyTemplates holds the serialized message template collection.
	KeyTemplates = "message_templates"
)

// ErrInvalidKey is returned for an empty key.
var ErrInvalidKey = errors.New("storage key must not be empty")

// KeyValueStore defines the interface for durable string storage.
// Implementations can use different backends (memory, directory, database).
type KeyValueStore interface {
	// Get returns the value stored under key.
	// ok is false (and err nil) when the key is missing.
	// Returns error only for storage failures (I/O errors, etc.), not missing keys.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
