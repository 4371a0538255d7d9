package event

import (
	"sort"
	"sync"
	"time"

	"github.com/endou0310-byte/rindo/internal/classify"
	"github.com/endou0310-byte/rindo/internal/normalize"
)

// Store accumulates canonical events. Identity space is append-only: an id is
// inserted once and only ever updated in place, never deleted here.
//
// Store is safe for concurrent mergers; the monitor runs one BFS per target in
// parallel and all of them merge into the same store.
type Store struct {
	mu      sync.RWMutex
	updated string
	events  map[string]Canonical
	// bestByName holds, per norm_name, the id of the highest-severity record
	// (ties broken by latest updated_at). Consumers fall back to this index
	// when they have a name but no agency-qualified match.
	bestByName map[string]string
	dirty      bool
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		events:     make(map[string]Canonical),
		bestByName: make(map[string]string),
	}
}

// Restore seeds the store from previously persisted events.
func Restore(updated string, events []Canonical) *Store {
	s := NewStore()
	s.updated = updated
	for _, ev := range events {
		s.events[ev.ID] = ev
		s.reindex(ev)
	}
	return s
}

// Merge folds raw extractor output for one agency into the store.
// pageURL is the URL the events were extracted from; a raw event may carry its
// own (detail page) source URL which takes precedence.
func (s *Store) Merge(raws []Raw, pref, prefCode, pageURL string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := Timestamp(now)
	merged := 0
	for _, raw := range raws {
		name := raw.Name
		if name == "" {
			name = raw.NormName
		}
		norm := raw.NormName
		if norm == "" {
			norm = normalize.Name(name)
		}
		if norm == "" {
			// Identity error: nothing matchable survived normalization.
			continue
		}
		status := raw.Status
		if !status.Valid() {
			status, _ = classify.Classify(raw.StatusText)
		}

		src := raw.SourceURL
		if src == "" {
			src = pageURL
		}
		src = CanonicalURL(src)

		id := ID(pref, norm, src)
		existing, ok := s.events[id]
		if !ok {
			s.events[id] = Canonical{
				ID:        id,
				Pref:      pref,
				PrefCode:  prefCode,
				Name:      name,
				NormName:  norm,
				Status:    status,
				Reason:    raw.Reason,
				From:      raw.From,
				To:        raw.To,
				Snippet:   raw.Snippet,
				SourceURL: src,
				UpdatedAt: ts,
			}
			s.reindex(s.events[id])
			merged++
			continue
		}

		// Update in place. Populated fields are never blanked by a sparser
		// page, and status never drops to a lower severity.
		if name != "" {
			existing.Name = name
		}
		existing.Status = classify.Worse(existing.Status, status)
		if raw.Reason != "" {
			existing.Reason = raw.Reason
		}
		if raw.From != "" {
			existing.From = raw.From
		}
		if raw.To != "" {
			existing.To = raw.To
		}
		if raw.Snippet != "" {
			existing.Snippet = raw.Snippet
		}
		existing.UpdatedAt = ts
		s.events[id] = existing
		s.reindex(existing)
		merged++
	}
	if merged > 0 {
		s.updated = ts
		s.dirty = true
	}
	return merged
}

// reindex maintains the best-for-name index for one record. Caller holds mu.
func (s *Store) reindex(ev Canonical) {
	curID, ok := s.bestByName[ev.NormName]
	if !ok || curID == ev.ID {
		s.bestByName[ev.NormName] = ev.ID
		return
	}
	cur := s.events[curID]
	switch {
	case ev.Status.Severity() > cur.Status.Severity():
		s.bestByName[ev.NormName] = ev.ID
	case ev.Status.Severity() == cur.Status.Severity() && ev.UpdatedAt >= cur.UpdatedAt:
		s.bestByName[ev.NormName] = ev.ID
	}
}

// Get returns the event with the given id.
func (s *Store) Get(id string) (Canonical, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	return ev, ok
}

// BestForName returns the highest-severity event recorded under the
// normalized name, regardless of agency. This is the name-only fallback; it
// can mis-attribute when two agencies share a road name.
func (s *Store) BestForName(normName string) (Canonical, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bestByName[normName]
	if !ok {
		return Canonical{}, false
	}
	ev, ok := s.events[id]
	return ev, ok
}

// Events returns all records ordered by id for stable output.
func (s *Store) Events() []Canonical {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Canonical, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Updated returns the store-level update timestamp.
func (s *Store) Updated() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// Len returns the number of distinct events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Dirty reports whether any merge changed the store since restore.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}
