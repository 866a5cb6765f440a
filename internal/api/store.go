package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/soaringjerry/VisitPulse/internal/catalog"
	"github.com/soaringjerry/VisitPulse/internal/models"
	"github.com/soaringjerry/VisitPulse/internal/services"
	"github.com/soaringjerry/VisitPulse/internal/utils"
)

// memoryStore keeps survey rows in process memory. It backs the server when
// no database path is configured and is used by the handler tests.
type memoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]*models.SurveyResponse
	nextID int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[int64]*models.SurveyResponse{}}
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store { return newMemoryStore() }

func (s *memoryStore) InsertResponse(_ context.Context, r *models.SurveyResponse) (*models.SurveyResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if r.VisitorToken != "" && existing.VisitorToken == r.VisitorToken {
			return nil, fmt.Errorf("visitor token %q already used", r.VisitorToken)
		}
	}
	s.nextID++
	cp := r.Clone()
	cp.ID = s.nextID
	s.rows[cp.ID] = cp
	return cp.Clone(), nil
}

func (s *memoryStore) UpdateResponse(_ context.Context, r *models.SurveyResponse) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[r.ID]; !ok {
		return false, nil
	}
	s.rows[r.ID] = r.Clone()
	return true, nil
}

func (s *memoryStore) GetResponse(_ context.Context, id int64) (*models.SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows[id].Clone(), nil
}

func (s *memoryStore) ListResponses(_ context.Context) ([]*models.SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.SurveyResponse, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) ListResponsesByNameKey(_ context.Context, nameKey string) ([]*models.SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.SurveyResponse{}
	for _, r := range s.rows {
		if r.NameKey == nameKey {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memoryStore) DeleteAllResponses(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.rows)
	s.rows = map[int64]*models.SurveyResponse{}
	return n, nil
}

func (s *memoryStore) Close() error { return nil }

// LoadSnapshot reads a JSON array of survey rows as served by
// GET /api/survey-responses. Rows pass through the same derivation as the
// write path (zeros cleared, topic, result and phase recomputed against cat);
// missing visitor tokens are generated.
func LoadSnapshot(path string, cat *catalog.Catalog) ([]*models.SurveyResponse, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []*models.SurveyResponse
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	out := rows[:0]
	for _, r := range rows {
		if r == nil {
			continue
		}
		r.Name = utils.CleanName(r.Name)
		r.NameKey = utils.NameKey(r.Name)
		if r.NameKey == "" {
			continue
		}
		if r.VisitorToken == "" {
			r.VisitorToken = uuid.NewString()
		}
		services.Derive(r, cat)
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = r.CreatedAt
		}
		out = append(out, r)
	}
	return out, nil
}

// CopySnapshot inserts rows into dst in id order and reports how many were
// copied. Ids are reassigned by dst.
func CopySnapshot(ctx context.Context, rows []*models.SurveyResponse, dst services.ResponseStore) (int, error) {
	sorted := append([]*models.SurveyResponse(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	n := 0
	for _, r := range sorted {
		if _, err := dst.InsertResponse(ctx, r); err != nil {
			return n, fmt.Errorf("copy row %d: %w", r.ID, err)
		}
		n++
	}
	return n, nil
}
