// Package store holds the approval requests and their audit trail in memory,
// writing through to an ApprovalRepository. It is the only owner of request
// state: callers receive copies and change status through Resolve.
package store

import (
	"context"
	"fmt"
	"operations/lib/data"
	"operations/lib/models"
	"sync"

	"github.com/sirupsen/logrus"
)

// Decision computes the terminal transition of a pending request. It receives
// a copy of the current request and returns the updated request plus the
// action recording it. Returning an error aborts the transition.
type Decision func(current models.ApprovalRequest) (models.ApprovalRequest, models.ApprovalAction, error)

// Filter selects requests in List. Zero fields match everything.
type Filter struct {
	Status models.ApprovalStatus
	Type   models.RequestType
	Match  func(models.ApprovalRequest) bool
}

func (f Filter) matches(request *models.ApprovalRequest) bool {
	if f.Status != "" && request.Status != f.Status {
		return false
	}
	if f.Type != "" && request.Type != f.Type {
		return false
	}
	if f.Match != nil && !f.Match(*request) {
		return false
	}
	return true
}

// ApprovalStore guarantees that every request transitions out of pending at
// most once. The mutex is held across the pending check, the repository
// write and the cache update.
type ApprovalStore struct {
	repo   data.ApprovalRepository
	logger *logrus.Logger

	mu       sync.Mutex
	requests map[string]*models.ApprovalRequest
	order    []string // creation order
	actions  map[string][]models.ApprovalAction
}

// NewApprovalStore builds a store and loads its initial contents from repo
func NewApprovalStore(ctx context.Context, repo data.ApprovalRepository, logger *logrus.Logger) (*ApprovalStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &ApprovalStore{
		repo:     repo,
		logger:   logger,
		requests: make(map[string]*models.ApprovalRequest),
		actions:  make(map[string][]models.ApprovalAction),
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh replaces the cached contents with what the repository holds now.
// The mutex is held across the load so no Insert or Resolve can commit
// between the snapshot and the swap.
func (s *ApprovalStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load approval requests: %w", err)
	}
	actions, err := s.repo.LoadActions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load approval actions: %w", err)
	}

	byID := make(map[string]*models.ApprovalRequest, len(requests))
	order := make([]string, 0, len(requests))
	for i := range requests {
		request := requests[i]
		if _, dup := byID[request.ID]; dup {
			continue
		}
		byID[request.ID] = &request
		order = append(order, request.ID)
	}
	trail := make(map[string][]models.ApprovalAction)
	for _, action := range actions {
		trail[action.RequestID] = append(trail[action.RequestID], action)
	}

	s.requests = byID
	s.order = order
	s.actions = trail

	s.logger.WithFields(logrus.Fields{
		"requests": len(order),
		"actions":  len(actions),
	}).Debug("Approval store refreshed")
	return nil
}

// Insert persists a newly created request and caches it
func (s *ApprovalStore) Insert(ctx context.Context, request models.ApprovalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[request.ID]; exists {
		return fmt.Errorf("approval request %s already exists", request.ID)
	}
	if err := s.repo.Save(ctx, &request); err != nil {
		return err
	}

	stored := request.Clone()
	s.requests[stored.ID] = &stored
	s.order = append(s.order, stored.ID)
	return nil
}

// Get returns a copy of the request with the given id
func (s *ApprovalStore) Get(id string) (models.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[id]
	if !ok {
		return models.ApprovalRequest{}, fmt.Errorf("%w: approval request %s", models.ErrNotFound, id)
	}
	return request.Clone(), nil
}

// List returns copies of the matching requests in creation order
func (s *ApprovalStore) List(filter Filter) []models.ApprovalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ApprovalRequest, 0)
	for _, id := range s.order {
		request := s.requests[id]
		if filter.matches(request) {
			out = append(out, request.Clone())
		}
	}
	return out
}

// Actions returns the audit trail of one request in append order
func (s *ApprovalStore) Actions(id string) ([]models.ApprovalAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return nil, fmt.Errorf("%w: approval request %s", models.ErrNotFound, id)
	}
	return append([]models.ApprovalAction{}, s.actions[id]...), nil
}

// Resolve runs decide against the pending request and commits its result.
// Not found, not pending, an error from decide or a failed repository write
// all leave the store unchanged.
func (s *ApprovalStore) Resolve(ctx context.Context, id string, decide Decision) (models.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[id]
	if !ok {
		return models.ApprovalRequest{}, fmt.Errorf("%w: approval request %s", models.ErrNotFound, id)
	}
	if current.Status != models.StatusPending {
		return models.ApprovalRequest{}, fmt.Errorf("%w: %s is %s", models.ErrInvalidState, id, current.Status)
	}

	updated, action, err := decide(current.Clone())
	if err != nil {
		return models.ApprovalRequest{}, err
	}
	if updated.ID != id || action.RequestID != id || !updated.Status.IsTerminal() {
		return models.ApprovalRequest{}, fmt.Errorf("invalid transition for approval request %s", id)
	}

	if err := s.repo.Resolve(ctx, &updated, &action); err != nil {
		return models.ApprovalRequest{}, err
	}

	stored := updated.Clone()
	s.requests[id] = &stored
	s.actions[id] = append(s.actions[id], action)

	s.logger.WithFields(logrus.Fields{
		"request_id": id,
		"status":     stored.Status,
		"actor":      action.PerformedBy,
	}).Debug("Approval request transition committed")

	return stored.Clone(), nil
}
