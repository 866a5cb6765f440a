package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/soaringjerry/VisitPulse/internal/models"
)

type stubResponseStore struct {
	mu      sync.Mutex
	rows    map[int64]*models.SurveyResponse
	nextID  int64
	failErr error
}

func newStubStore() *stubResponseStore {
	return &stubResponseStore{rows: map[int64]*models.SurveyResponse{}}
}

func (s *stubResponseStore) InsertResponse(_ context.Context, r *models.SurveyResponse) (*models.SurveyResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	s.nextID++
	cp := r.Clone()
	cp.ID = s.nextID
	s.rows[cp.ID] = cp
	return cp.Clone(), nil
}

func (s *stubResponseStore) UpdateResponse(_ context.Context, r *models.SurveyResponse) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return false, s.failErr
	}
	if _, ok := s.rows[r.ID]; !ok {
		return false, nil
	}
	s.rows[r.ID] = r.Clone()
	return true, nil
}

func (s *stubResponseStore) GetResponse(_ context.Context, id int64) (*models.SurveyResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	return s.rows[id].Clone(), nil
}

func (s *stubResponseStore) ListResponses(_ context.Context) ([]*models.SurveyResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	out := make([]*models.SurveyResponse, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubResponseStore) ListResponsesByNameKey(ctx context.Context, key string) ([]*models.SurveyResponse, error) {
	all, err := s.ListResponses(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.NameKey == key {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubResponseStore) DeleteAllResponses(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return 0, s.failErr
	}
	n := len(s.rows)
	s.rows = map[int64]*models.SurveyResponse{}
	return n, nil
}

var errStoreDown = errors.New("store down")
