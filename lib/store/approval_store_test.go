package store

import (
	"context"
	"errors"
	"io"
	"operations/lib/data"
	"operations/lib/models"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// failingRepository wraps the memory repository and fails chosen calls
type failingRepository struct {
	*data.MemoryApprovalDao
	saveErr    error
	resolveErr error
	loadErr    error
}

func (r *failingRepository) LoadAll(ctx context.Context) ([]models.ApprovalRequest, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.MemoryApprovalDao.LoadAll(ctx)
}

func (r *failingRepository) Save(ctx context.Context, request *models.ApprovalRequest) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.MemoryApprovalDao.Save(ctx, request)
}

func (r *failingRepository) Resolve(ctx context.Context, request *models.ApprovalRequest, action *models.ApprovalAction) error {
	if r.resolveErr != nil {
		return r.resolveErr
	}
	return r.MemoryApprovalDao.Resolve(ctx, request, action)
}

func pendingRequest(id string, requestType models.RequestType) models.ApprovalRequest {
	return models.ApprovalRequest{
		ID:          id,
		Type:        requestType,
		Title:       "Request " + id,
		RequestedBy: "u1",
		RequestedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:      models.StatusPending,
		Priority:    models.PriorityMedium,
	}
}

func approveAs(actorID string) Decision {
	return func(current models.ApprovalRequest) (models.ApprovalRequest, models.ApprovalAction, error) {
		now := time.Now().UTC()
		current.Status = models.StatusApproved
		current.Approver = actorID
		current.ApprovedAt = &now
		return current, models.ApprovalAction{
			ID:          "act-" + actorID,
			RequestID:   current.ID,
			Action:      models.ActionApproved,
			PerformedBy: actorID,
			Timestamp:   now,
		}, nil
	}
}

func newTestStore(t *testing.T, repo data.ApprovalRepository) *ApprovalStore {
	t.Helper()
	s, err := NewApprovalStore(context.Background(), repo, quietLogger())
	require.NoError(t, err)
	return s
}

func Test_Store_InsertGetList(t *testing.T) {
	//Arrange
	s := newTestStore(t, &data.MemoryApprovalDao{})
	ctx := context.Background()

	//Act
	require.NoError(t, s.Insert(ctx, pendingRequest("a", models.RequestPricingChange)))
	require.NoError(t, s.Insert(ctx, pendingRequest("b", models.RequestReimbursement)))
	require.NoError(t, s.Insert(ctx, pendingRequest("c", models.RequestPricingChange)))
	duplicate := s.Insert(ctx, pendingRequest("a", models.RequestPricingChange))

	//Assert
	assert.Error(t, duplicate)
	got, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, models.RequestReimbursement, got.Type)

	pricing := s.List(Filter{Type: models.RequestPricingChange})
	require.Len(t, pricing, 2)
	assert.Equal(t, "a", pricing[0].ID)
	assert.Equal(t, "c", pricing[1].ID)
	assert.Len(t, s.List(Filter{}), 3)
	assert.Empty(t, s.List(Filter{Status: models.StatusApproved}))

	_, err = s.Get("missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func Test_Store_ReturnsCopies(t *testing.T) {
	s := newTestStore(t, &data.MemoryApprovalDao{})
	request := pendingRequest("a", models.RequestPricingChange)
	request.Metadata = map[string]interface{}{"new_price": 10}
	require.NoError(t, s.Insert(context.Background(), request))

	got, _ := s.Get("a")
	got.Status = models.StatusApproved
	got.Metadata["new_price"] = 99

	again, _ := s.Get("a")
	assert.Equal(t, models.StatusPending, again.Status)
	assert.Equal(t, 10, again.Metadata["new_price"])
}

func Test_Store_Resolve(t *testing.T) {
	//Arrange
	s := newTestStore(t, &data.MemoryApprovalDao{})
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, pendingRequest("a", models.RequestPricingChange)))

	//Act
	resolved, err := s.Resolve(ctx, "a", approveAs("u2"))
	_, again := s.Resolve(ctx, "a", approveAs("u3"))
	_, missing := s.Resolve(ctx, "nope", approveAs("u3"))

	//Assert
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, resolved.Status)
	assert.Equal(t, "u2", resolved.Approver)
	assert.True(t, errors.Is(again, models.ErrInvalidState))
	assert.True(t, errors.Is(missing, models.ErrNotFound))

	actions, err := s.Actions("a")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "u2", actions[0].PerformedBy)
}

func Test_Store_FailedResolveLeavesStateUnchanged(t *testing.T) {
	denied := errors.New("denied by decision")
	cases := []struct {
		name    string
		repo    *failingRepository
		decide  Decision
		wantErr error
	}{
		{
			name: "decision error",
			repo: &failingRepository{MemoryApprovalDao: &data.MemoryApprovalDao{}},
			decide: func(current models.ApprovalRequest) (models.ApprovalRequest, models.ApprovalAction, error) {
				return current, models.ApprovalAction{}, denied
			},
			wantErr: denied,
		},
		{
			name:    "repository error",
			repo:    &failingRepository{MemoryApprovalDao: &data.MemoryApprovalDao{}, resolveErr: errors.New("connection reset")},
			decide:  approveAs("u2"),
			wantErr: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			//Arrange
			s := newTestStore(t, tc.repo)
			ctx := context.Background()
			require.NoError(t, s.Insert(ctx, pendingRequest("a", models.RequestPricingChange)))

			//Act
			_, err := s.Resolve(ctx, "a", tc.decide)

			//Assert
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr))
			}
			got, _ := s.Get("a")
			assert.Equal(t, models.StatusPending, got.Status)
			assert.Empty(t, got.Approver)
			actions, _ := s.Actions("a")
			assert.Empty(t, actions)
		})
	}
}

func Test_Store_RejectsNonTerminalDecision(t *testing.T) {
	s := newTestStore(t, &data.MemoryApprovalDao{})
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, pendingRequest("a", models.RequestPricingChange)))

	_, err := s.Resolve(ctx, "a", func(current models.ApprovalRequest) (models.ApprovalRequest, models.ApprovalAction, error) {
		return current, models.ApprovalAction{RequestID: current.ID}, nil
	})

	assert.Error(t, err)
	got, _ := s.Get("a")
	assert.Equal(t, models.StatusPending, got.Status)
}

func Test_Store_InsertFailureNotCached(t *testing.T) {
	repo := &failingRepository{MemoryApprovalDao: &data.MemoryApprovalDao{}, saveErr: errors.New("disk full")}
	s := newTestStore(t, repo)

	err := s.Insert(context.Background(), pendingRequest("a", models.RequestPricingChange))

	assert.Error(t, err)
	_, err = s.Get("a")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func Test_Store_ConcurrentResolveHasOneWinner(t *testing.T) {
	//Arrange
	s := newTestStore(t, &data.MemoryApprovalDao{})
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, pendingRequest("a", models.RequestPricingChange)))

	const reviewers = 16
	errs := make([]error, reviewers)
	var wg sync.WaitGroup
	start := make(chan struct{})

	//Act
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = s.Resolve(ctx, "a", approveAs(string(rune('a'+i))))
		}(i)
	}
	close(start)
	wg.Wait()

	//Assert
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, errors.Is(err, models.ErrInvalidState))
	}
	assert.Equal(t, 1, winners)
	actions, _ := s.Actions("a")
	assert.Len(t, actions, 1)
}

func Test_Store_RefreshPicksUpExternalWrites(t *testing.T) {
	//Arrange
	repo := &data.MemoryApprovalDao{}
	ctx := context.Background()
	first := newTestStore(t, repo)
	second := newTestStore(t, repo)
	require.NoError(t, first.Insert(ctx, pendingRequest("a", models.RequestPricingChange)))
	require.NoError(t, second.Refresh(ctx))

	//Act
	_, err := first.Resolve(ctx, "a", approveAs("u2"))
	require.NoError(t, err)
	_, stale := second.Resolve(ctx, "a", approveAs("u3"))

	//Assert
	assert.True(t, errors.Is(stale, models.ErrInvalidState), "repository rejects the stale cache")
	require.NoError(t, second.Refresh(ctx))
	got, _ := second.Get("a")
	assert.Equal(t, models.StatusApproved, got.Status)
}

func Test_NewApprovalStore_LoadFailure(t *testing.T) {
	repo := &failingRepository{MemoryApprovalDao: &data.MemoryApprovalDao{}, loadErr: errors.New("timeout")}

	_, err := NewApprovalStore(context.Background(), repo, quietLogger())

	assert.ErrorContains(t, err, "failed to load approval requests")
}

// pausingRepository holds LoadAll open after taking its snapshot until release
// is closed, and reports every write it receives on wrote
type pausingRepository struct {
	*data.MemoryApprovalDao
	loaded  chan struct{}
	release chan struct{}
	wrote   chan string
	armed   bool
}

func (r *pausingRepository) LoadAll(ctx context.Context) ([]models.ApprovalRequest, error) {
	requests, err := r.MemoryApprovalDao.LoadAll(ctx)
	if r.armed {
		r.armed = false
		close(r.loaded)
		<-r.release
	}
	return requests, err
}

func (r *pausingRepository) Save(ctx context.Context, request *models.ApprovalRequest) error {
	r.wrote <- "save " + request.ID
	return r.MemoryApprovalDao.Save(ctx, request)
}

func (r *pausingRepository) Resolve(ctx context.Context, request *models.ApprovalRequest, action *models.ApprovalAction) error {
	r.wrote <- "resolve " + request.ID
	return r.MemoryApprovalDao.Resolve(ctx, request, action)
}

func Test_Store_RefreshDoesNotLoseConcurrentWrites(t *testing.T) {
	cases := []struct {
		name  string
		write func(ctx context.Context, s *ApprovalStore) error
		check func(t *testing.T, s *ApprovalStore)
	}{
		{
			name: "insert",
			write: func(ctx context.Context, s *ApprovalStore) error {
				return s.Insert(ctx, pendingRequest("new", models.RequestRouteAssignment))
			},
			check: func(t *testing.T, s *ApprovalStore) {
				got, err := s.Get("new")
				require.NoError(t, err)
				assert.Equal(t, models.StatusPending, got.Status)
			},
		},
		{
			name: "resolve",
			write: func(ctx context.Context, s *ApprovalStore) error {
				_, err := s.Resolve(ctx, "a", approveAs("u2"))
				return err
			},
			check: func(t *testing.T, s *ApprovalStore) {
				got, err := s.Get("a")
				require.NoError(t, err)
				assert.Equal(t, models.StatusApproved, got.Status)
				actions, err := s.Actions("a")
				require.NoError(t, err)
				assert.Len(t, actions, 1)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			//Arrange
			ctx := context.Background()
			repo := &pausingRepository{
				MemoryApprovalDao: &data.MemoryApprovalDao{},
				loaded:            make(chan struct{}),
				release:           make(chan struct{}),
				wrote:             make(chan string, 4),
			}
			s := newTestStore(t, repo)
			require.NoError(t, s.Insert(ctx, pendingRequest("a", models.RequestPricingChange)))
			<-repo.wrote
			repo.armed = true

			//Act
			refreshed := make(chan error, 1)
			go func() { refreshed <- s.Refresh(ctx) }()
			<-repo.loaded

			written := make(chan error, 1)
			go func() { written <- tc.write(ctx, s) }()

			select {
			case op := <-repo.wrote:
				t.Fatalf("%s committed while refresh held its snapshot", op)
			case <-time.After(50 * time.Millisecond):
			}
			close(repo.release)

			//Assert
			require.NoError(t, <-refreshed)
			require.NoError(t, <-written)
			tc.check(t, s)
		})
	}
}
