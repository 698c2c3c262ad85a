package storage

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"mailguard/internal/validation"
)

// MemoryStore is an in-memory Store used in tests and when no database is
// configured.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts map[string]Contact
	results  map[string]validation.Result
	logger   *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		contacts: make(map[string]Contact),
		results:  make(map[string]validation.Result),
		logger:   logger,
	}
}

func (s *MemoryStore) UpsertContact(ctx context.Context, c Contact) error {
	if c.ID == "" || c.Email == "" {
		s.logger.WarnContext(ctx, "skipping contact upsert with missing id or email",
			"contact_id", c.ID,
		)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = c
	return nil
}

func (s *MemoryStore) UpsertContacts(_ context.Context, cs []Contact) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := 0
	for _, c := range cs {
		if c.ID == "" || c.Email == "" {
			continue
		}
		s.contacts[c.ID] = c
		stored++
	}
	return stored, nil
}

func (s *MemoryStore) PersistResult(_ context.Context, contactID string, res validation.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[contactID] = res
	return nil
}

func (s *MemoryStore) Result(_ context.Context, contactID string) (*validation.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[contactID]
	if !ok {
		return nil, ErrNotFound
	}
	return &res, nil
}

func (s *MemoryStore) ContactsNeedingValidation(_ context.Context) ([]Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Contact
	for id, c := range s.contacts {
		res, ok := s.results[id]
		if !ok || res.Email != c.Email {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Contact returns a stored contact, for assertions in tests.
func (s *MemoryStore) Contact(id string) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	return c, ok
}

// Len returns the number of stored contacts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}
