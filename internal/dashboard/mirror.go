package dashboard

import (
	"slices"
	"sync"

	"github.com/rickgao/candidate-tracker/internal/model"
)

// Mirror is the in-memory candidate list, newest first. Remote events and
// local optimistic writes both land here; whichever arrives last wins.
type Mirror struct {
	mu   sync.RWMutex
	rows []model.Candidate
}

// Reset replaces the whole list.
func (m *Mirror) Reset(rows []model.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = slices.Clone(rows)
}

// Prepend inserts c at the front unless a row with its id is present. It
// reports whether c was added.
func (m *Mirror) Prepend(c model.Candidate) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexLocked(c.ID) >= 0 {
		return false
	}
	m.rows = append([]model.Candidate{c}, m.rows...)
	return true
}

// Replace overwrites the row with c's id. It reports whether one existed.
func (m *Mirror) Replace(c model.Candidate) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(c.ID)
	if i < 0 {
		return false
	}
	m.rows[i] = c
	return true
}

// Update applies fn to the row with id in place.
func (m *Mirror) Update(id string, fn func(*model.Candidate)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return false
	}
	fn(&m.rows[i])
	return true
}

// Confirm swaps the optimistic row tempID for the stored row c. If a
// realtime insert already delivered c, the optimistic row is dropped.
func (m *Mirror) Confirm(tempID string, c model.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ti := m.indexLocked(tempID)
	if m.indexLocked(c.ID) >= 0 {
		if ti >= 0 && tempID != c.ID {
			m.rows = slices.Delete(m.rows, ti, ti+1)
		}
		return
	}
	if ti >= 0 {
		m.rows[ti] = c
		return
	}
	m.rows = append([]model.Candidate{c}, m.rows...)
}

// Remove deletes the row with id and returns it with its former position.
func (m *Mirror) Remove(id string) (model.Candidate, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return model.Candidate{}, -1, false
	}
	c := m.rows[i]
	m.rows = slices.Delete(m.rows, i, i+1)
	return c, i, true
}

// Restore puts c back at position i, clamped to the list, unless its id
// has reappeared meanwhile.
func (m *Mirror) Restore(i int, c model.Candidate) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexLocked(c.ID) >= 0 {
		return false
	}
	i = max(0, min(i, len(m.rows)))
	m.rows = slices.Insert(m.rows, i, c)
	return true
}

// Get returns the row with id.
func (m *Mirror) Get(id string) (model.Candidate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexLocked(id)
	if i < 0 {
		return model.Candidate{}, false
	}
	return m.rows[i], true
}

// Snapshot returns a copy of the list.
func (m *Mirror) Snapshot() []model.Candidate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rows)
}

func (m *Mirror) indexLocked(id string) int {
	return slices.IndexFunc(m.rows, func(c model.Candidate) bool { return c.ID == id })
}
