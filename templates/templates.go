// Package templates manages the message template collection used by the
// bulk messaging tool. The whole collection lives under one storage key as
// an ordered JSON array.
//
// Information Hiding:
// - Serialization format of the collection
// - Tolerance of missing or malformed stored documents
// - ID generation

package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/richinex/toolsuite/storage"
	"go.uber.org/zap"
)

var (
	// ErrTemplateNotFound is returned for an unknown template ID.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrInvalidTemplate is returned when name or message is blank.
	ErrInvalidTemplate = errors.New("template name and message are required")
)

// Template is a named reusable message.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// DefaultTemplates seed an empty collection.
func DefaultTemplates() []Template {
	return []Template{
		{ID: "greeting", Name: "Greeting", Message: "Hello! Hope you're doing well."},
		{ID: "reminder", Name: "Reminder", Message: "Just a friendly reminder about our appointment tomorrow."},
		{ID: "thanks", Name: "Thank You", Message: "Thank you for your business! We appreciate you."},
	}
}

// Store persists templates in a KeyValueStore.
// Safe for concurrent use within one process; writers in other processes are not coordinated.
type Store struct {
	kv     storage.KeyValueStore
	key    string
	seed   bool
	logger *zap.Logger

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithSeed controls whether a missing collection reads as DefaultTemplates.
func WithSeed(seed bool) Option {
	return func(s *Store) { s.seed = seed }
}

// WithLogger sets the logger used for malformed documents.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a template store over kv.
func NewStore(kv storage.KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		key:    storage.KeyTemplates,
		seed:   true,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all templates in stored order.
func (s *Store) List(ctx context.Context) ([]Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Get returns one template by ID.
func (s *Store) Get(ctx context.Context, id string) (Template, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Template{}, err
	}
	for _, t := range list {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// Create appends a new template and returns it.
func (s *Store) Create(ctx context.Context, name, message string) (Template, error) {
	name, message, err := validate(name, message)
	if err != nil {
		return Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked(ctx)
	if err != nil {
		return Template{}, err
	}
	t := Template{ID: uuid.New().String(), Name: name, Message: message}
	if err := s.saveLocked(ctx, append(list, t)); err != nil {
		return Template{}, err
	}
	return t, nil
}

// Update replaces name and message of an existing template.
func (s *Store) Update(ctx context.Context, id, name, message string) (Template, error) {
	name, message, err := validate(name, message)
	if err != nil {
		return Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked(ctx)
	if err != nil {
		return Template{}, err
	}
	for i := range list {
		if list[i].ID == id {
			list[i].Name = name
			list[i].Message = message
			if err := s.saveLocked(ctx, list); err != nil {
				return Template{}, err
			}
			return list[i], nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// Delete removes a template.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	found := false
	for _, t := range list {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return s.saveLocked(ctx, kept)
}

func (s *Store) loadLocked(ctx context.Context) ([]Template, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	if !ok {
		if s.seed {
			return DefaultTemplates(), nil
		}
		return []Template{}, nil
	}

	list, err := Decode(raw)
	if err != nil {
		s.logger.Warn("ignoring malformed template collection", zap.String("key", s.key), zap.Error(err))
		return []Template{}, nil
	}
	return list, nil
}

func (s *Store) saveLocked(ctx context.Context, list []Template) error {
	raw, err := Encode(list)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("failed to save templates: %w", err)
	}
	return nil
}

// Encode serializes a collection.
func Encode(list []Template) (string, error) {
	if list == nil {
		list = []Template{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode templates: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored collection. Entries without an ID are dropped.
func Decode(raw string) ([]Template, error) {
	var list []Template
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	kept := make([]Template, 0, len(list))
	for _, t := range list {
		if t.ID != "" {
			kept = append(kept, t)
		}
	}
	return kept, nil
}

func validate(name, message string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(message) == "" {
		return "", "", ErrInvalidTemplate
	}
	return name, message, nil
}
