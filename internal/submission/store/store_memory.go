// Package store holds the record store adapters for submissions.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"rekam/internal/submission/models"
	"rekam/pkg/platform/sentinel"
)

// ErrUnscopedWrite is returned by Update, ToggleReady and Delete when the
// filter carries no submission id. Writes always target a single row.
var ErrUnscopedWrite = errors.New("submission write requires an id")

type memoryRow struct {
	seq uint64
	sub models.Submission
}

// InMemoryStore keeps submissions per category in insertion order.
// Used for tests and local runs without DATABASE_URL.
type InMemoryStore struct {
	mu   sync.RWMutex
	seq  uint64
	rows map[string][]*memoryRow
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string][]*memoryRow)}
}

func (s *InMemoryStore) Insert(_ context.Context, category string, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows[category] {
		if r.sub.ID == sub.ID {
			return sentinel.ErrConflict
		}
	}
	s.seq++
	s.rows[category] = append(s.rows[category], &memoryRow{seq: s.seq, sub: clone(sub)})
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, category string, q models.Query) ([]*models.Submission, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*memoryRow
	for _, r := range s.rows[category] {
		if matches(r, q.Filter) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.sub.SubmittedAt.Equal(b.sub.SubmittedAt) {
			return a.sub.SubmittedAt.After(b.sub.SubmittedAt)
		}
		return a.seq > b.seq
	})

	total := len(matched)
	start := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}

	out := make([]*models.Submission, 0, end-start)
	for _, r := range matched[start:end] {
		c := clone(&r.sub)
		out = append(out, &c)
	}
	return out, total, nil
}

func (s *InMemoryStore) Update(_ context.Context, category string, f models.Filter, p models.Patch) (int64, error) {
	if f.ID.IsNil() {
		return 0, ErrUnscopedWrite
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for _, r := range s.rows[category] {
		if !matches(r, f) {
			continue
		}
		if p.Payload != nil {
			r.sub.Payload = p.Payload.Clone()
		}
		if p.Ready != nil {
			r.sub.ReadyForRecording = *p.Ready
		}
		if p.ScheduledDate != nil {
			d := *p.ScheduledDate
			r.sub.ScheduledDate = &d
		}
		affected++
	}
	return affected, nil
}

// ToggleReady negates the ready flag of the row matching f and returns the
// value written. affected is 0 when no row matches.
func (s *InMemoryStore) ToggleReady(_ context.Context, category string, f models.Filter) (bool, int64, error) {
	if f.ID.IsNil() {
		return false, 0, ErrUnscopedWrite
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rows[category] {
		if matches(r, f) {
			r.sub.ReadyForRecording = !r.sub.ReadyForRecording
			return r.sub.ReadyForRecording, 1, nil
		}
	}
	return false, 0, nil
}

func (s *InMemoryStore) Delete(_ context.Context, category string, f models.Filter) (int64, error) {
	if f.ID.IsNil() {
		return 0, ErrUnscopedWrite
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[category]
	kept := rows[:0]
	var affected int64
	for _, r := range rows {
		if matches(r, f) {
			affected++
			continue
		}
		kept = append(kept, r)
	}
	s.rows[category] = kept
	return affected, nil
}

func matches(r *memoryRow, f models.Filter) bool {
	if !f.ID.IsNil() && r.sub.ID != f.ID {
		return false
	}
	if !f.OwnerID.IsNil() && r.sub.OwnerID != f.OwnerID {
		return false
	}
	if f.Search == "" || len(f.SearchFields) == 0 {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, key := range f.SearchFields {
		if strings.Contains(strings.ToLower(r.sub.Payload[key]), needle) {
			return true
		}
	}
	return false
}

func clone(sub *models.Submission) models.Submission {
	c := *sub
	c.Payload = sub.Payload.Clone()
	if sub.ScheduledDate != nil {
		d := *sub.ScheduledDate
		c.ScheduledDate = &d
	}
	return c
}
