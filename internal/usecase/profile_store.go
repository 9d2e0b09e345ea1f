package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/allergenscan/backend/internal/taxonomy"
)

// ProfileStore owns the user's allergen profile: an ordered set of taxonomy
// ids persisted through a ProfileBackend after every change.
type ProfileStore struct {
	mu      sync.RWMutex
	ids     []string
	backend domain.ProfileBackend
	logger  *slog.Logger
}

// NewProfileStore loads the persisted profile once. Missing, unreadable or
// corrupt state yields an empty profile rather than an error.
func NewProfileStore(ctx context.Context, backend domain.ProfileBackend, logger *slog.Logger) *ProfileStore {
	s := &ProfileStore{backend: backend, logger: logger, ids: []string{}}

	data, err := backend.Load(ctx)
	if err != nil {
		logger.Warn("Failed to load allergen profile, starting empty", "error", err)
		return s
	}
	if len(data) == 0 {
		return s
	}

	var stored []string
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Warn("Stored allergen profile is corrupt, starting empty", "error", err)
		return s
	}

	for _, id := range stored {
		id = strings.ToLower(strings.TrimSpace(id))
		if !taxonomy.IsKnownID(id) {
			logger.Warn("Dropping unknown allergen id from stored profile", "id", id)
			continue
		}
		if !containsString(s.ids, id) {
			s.ids = append(s.ids, id)
		}
	}

	logger.Debug("Allergen profile loaded", "allergens", s.ids)
	return s
}

// Add puts id into the profile. Adding an id that is already present is a no-op.
func (s *ProfileStore) Add(ctx context.Context, id string) error {
	id = strings.ToLower(strings.TrimSpace(id))
	if !taxonomy.IsKnownID(id) {
		return domain.NewValidationError("id", fmt.Sprintf("unknown allergen category %q", id))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if containsString(s.ids, id) {
		return nil
	}

	next := append(append([]string(nil), s.ids...), id)
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.ids = next
	return nil
}

// Remove takes id out of the profile. Removing an absent id is a no-op.
func (s *ProfileStore) Remove(ctx context.Context, id string) error {
	id = strings.ToLower(strings.TrimSpace(id))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !containsString(s.ids, id) {
		return nil
	}

	next := make([]string, 0, len(s.ids))
	for _, existing := range s.ids {
		if existing != id {
			next = append(next, existing)
		}
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.ids = next
	return nil
}

// Contains reports whether id is in the profile
func (s *ProfileStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return containsString(s.ids, strings.ToLower(strings.TrimSpace(id)))
}

// List returns the profile ids in insertion order
func (s *ProfileStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.ids...)
}

// Serialize returns the comma-separated id list
func (s *ProfileStore) Serialize() string {
	return strings.Join(s.List(), ",")
}

// DisplayNames returns the display names of the profile categories
func (s *ProfileStore) DisplayNames() []string {
	ids := s.List()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if c, ok := taxonomy.ByID(id); ok {
			names = append(names, c.DisplayName)
		}
	}
	return names
}

// ParseProfileText resolves a comma-separated profile, as sent by clients,
// into taxonomy ids. Entries may be ids or free text such as display names.
// Unresolvable entries are dropped and the result is de-duplicated in order.
func ParseProfileText(text string) []string {
	ids := []string{}
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cat, ok := taxonomy.ByID(part)
		if !ok {
			cat = taxonomy.LookupCategoryByFreeText(part)
		}
		if cat.IsUnknown() || containsString(ids, cat.ID) {
			continue
		}
		ids = append(ids, cat.ID)
	}
	return ids
}

func (s *ProfileStore) persist(ctx context.Context, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		s.logger.Error("Failed to persist allergen profile", "error", err)
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
