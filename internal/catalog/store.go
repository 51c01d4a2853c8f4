package catalog

import (
	"log/slog"
	"sync"
	"time"

	"github.com/furnicon/furnicon/internal/models"
)

// Store is the append-only product catalog shared by every session.
// Ids start at 1 and follow append order with no gaps.
type Store struct {
	entries []models.CatalogEntry
	mu      sync.RWMutex
}

func New() *Store {
	return &Store{}
}

// Append publishes fields as a new entry and returns it
func (s *Store) Append(fields models.EntryFields) models.CatalogEntry {
	fields = fields.Clone()

	s.mu.Lock()
	entry := models.CatalogEntry{
		ID:          len(s.entries) + 1,
		EntryFields: fields,
		PublishedAt: time.Now().UTC(),
	}
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	slog.Info("Published catalog entry", "id", entry.ID, "title", entry.Title, "images", len(entry.Variations)+1)
	return entry.Clone()
}

// List returns every entry in append order
func (s *Store) List() []models.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.CatalogEntry, len(s.entries))
	for i, e := range s.entries {
		result[i] = e.Clone()
	}
	return result
}

func (s *Store) Get(id int) (models.CatalogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 1 || id > len(s.entries) {
		return models.CatalogEntry{}, false
	}
	return s.entries[id-1].Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
