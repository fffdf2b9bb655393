package data

import (
	"context"
	"fmt"
	"operations/lib/models"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemoryApprovalDao implements ApprovalRepository in process memory. It backs
// local runs (IS_LOCAL without a database) and tests.
type MemoryApprovalDao struct {
	Logger *logrus.Logger

	mu       sync.Mutex
	requests []models.ApprovalRequest
	actions  []models.ApprovalAction
}

// LoadAll returns copies of every saved request in insertion order
func (dao *MemoryApprovalDao) LoadAll(ctx context.Context) ([]models.ApprovalRequest, error) {
	dao.mu.Lock()
	defer dao.mu.Unlock()

	out := make([]models.ApprovalRequest, len(dao.requests))
	for i, request := range dao.requests {
		out[i] = request.Clone()
	}
	return out, nil
}

// LoadActions returns the audit trail in append order
func (dao *MemoryApprovalDao) LoadActions(ctx context.Context) ([]models.ApprovalAction, error) {
	dao.mu.Lock()
	defer dao.mu.Unlock()

	return append([]models.ApprovalAction(nil), dao.actions...), nil
}

// Save inserts a newly created request
func (dao *MemoryApprovalDao) Save(ctx context.Context, request *models.ApprovalRequest) error {
	dao.mu.Lock()
	defer dao.mu.Unlock()

	for _, existing := range dao.requests {
		if existing.ID == request.ID {
			return fmt.Errorf("failed to insert approval request: duplicate id %s", request.ID)
		}
	}
	dao.requests = append(dao.requests, request.Clone())

	if dao.Logger != nil {
		dao.Logger.WithFields(logrus.Fields{
			"request_id": request.ID,
			"type":       request.Type,
		}).Debug("Stored approval request in memory")
	}
	return nil
}

// Resolve applies the terminal transition if the stored copy is still pending
func (dao *MemoryApprovalDao) Resolve(ctx context.Context, request *models.ApprovalRequest, action *models.ApprovalAction) error {
	dao.mu.Lock()
	defer dao.mu.Unlock()

	for i := range dao.requests {
		if dao.requests[i].ID != request.ID {
			continue
		}
		if dao.requests[i].Status != models.StatusPending {
			return fmt.Errorf("%w: %s", models.ErrInvalidState, request.ID)
		}
		dao.requests[i] = request.Clone()
		dao.actions = append(dao.actions, *action)
		return nil
	}
	return fmt.Errorf("%w: %s", models.ErrNotFound, request.ID)
}
