package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type bulletinStoreStub struct {
	mu         sync.Mutex
	items      map[string]*models.Bulletin
	lastFilter models.BulletinFilter
	seq        int
}

func newBulletinStoreStub(items ...models.Bulletin) *bulletinStoreStub {
	s := &bulletinStoreStub{items: map[string]*models.Bulletin{}}
	for i := range items {
		b := items[i]
		s.items[b.ID] = &b
	}
	return s
}

func (s *bulletinStoreStub) Create(_ context.Context, b *models.Bulletin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	b.ID = "b-new"
	b.CreatedAt = time.Now().UTC()
	copy := *b
	s.items[b.ID] = &copy
	return nil
}

func (s *bulletinStoreStub) GetByID(_ context.Context, id string) (*models.Bulletin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *b
	return &copy, nil
}

func (s *bulletinStoreStub) List(_ context.Context, filter models.BulletinFilter) ([]models.Bulletin, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	var out []models.Bulletin
	for _, b := range s.items {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.HighlightOnly && !b.IsHighlight {
			continue
		}
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (s *bulletinStoreStub) TransitionStatus(_ context.Context, id string, next models.BulletinStatus, moderatorID string, at time.Time) (*models.Bulletin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.items[id]
	if !ok || b.Status != models.BulletinStatusPending {
		return nil, sql.ErrNoRows
	}
	b.Status = next
	b.ModeratedBy = &moderatorID
	b.ModeratedAt = &at
	copy := *b
	return &copy, nil
}

func newBulletinFixture(items ...models.Bulletin) (*BulletinService, *bulletinStoreStub, *recordingNotifier, *recordingAudit) {
	store := newBulletinStoreStub(items...)
	notes := &recordingNotifier{}
	audit := &recordingAudit{}
	return NewBulletinService(store, authz.NewGate(), notes, audit, nil, nil), store, notes, audit
}

func TestBulletinServiceApproveThenReject(t *testing.T) {
	svc, store, notes, audit := newBulletinFixture(models.Bulletin{ID: "b1", Title: "Seminar", AuthorID: "stud-1", Status: models.BulletinStatusPending})
	ctx := context.Background()
	supervisor := claimsFor("sup-1", models.RoleSupervisor)

	approved, err := svc.Approve(ctx, "b1", supervisor)
	require.NoError(t, err)
	assert.Equal(t, models.BulletinStatusApproved, approved.Status)
	require.NotNil(t, approved.ModeratedBy)
	assert.Equal(t, "sup-1", *approved.ModeratedBy)

	_, err = svc.Reject(ctx, "b1", supervisor)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)

	stored, _ := store.GetByID(ctx, "b1")
	assert.Equal(t, models.BulletinStatusApproved, stored.Status)

	decided := notes.ofType(models.EventBulletinDecided)
	require.Len(t, decided, 1)
	assert.Equal(t, []string{"stud-1"}, decided[0].TargetUserIDs)
	assert.Equal(t, 1, audit.count())
}

func TestBulletinServiceDecideNotFound(t *testing.T) {
	svc, _, _, _ := newBulletinFixture()
	_, err := svc.Approve(context.Background(), "missing", claimsFor("sup-1", models.RoleSupervisor))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestBulletinServiceStudentCannotModerate(t *testing.T) {
	svc, store, _, _ := newBulletinFixture(models.Bulletin{ID: "b1", AuthorID: "stud-1", Status: models.BulletinStatusPending})
	_, err := svc.Approve(context.Background(), "b1", claimsFor("stud-2", models.RoleStudent))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Equal(t, string(authz.ReasonRoleNotPermitted), appErr.Reason)

	stored, _ := store.GetByID(context.Background(), "b1")
	assert.Equal(t, models.BulletinStatusPending, stored.Status)
}

func TestBulletinServiceConcurrentDecisionsOnlyOneWins(t *testing.T) {
	svc, store, notes, _ := newBulletinFixture(models.Bulletin{ID: "b1", AuthorID: "stud-1", Status: models.BulletinStatusPending})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, approve := range []bool{true, false} {
		wg.Add(1)
		go func(i int, approve bool) {
			defer wg.Done()
			_, results[i] = svc.Decide(ctx, "b1", approve, claimsFor("mgr-1", models.RoleLabManager))
		}(i, approve)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	}
	assert.Equal(t, 1, succeeded)

	stored, _ := store.GetByID(ctx, "b1")
	assert.True(t, stored.Status.Terminal())
	assert.Len(t, notes.ofType(models.EventBulletinDecided), 1)
}

func TestBulletinServiceListHidesUnapprovedFromStudents(t *testing.T) {
	svc, store, _, _ := newBulletinFixture(
		models.Bulletin{ID: "b1", Status: models.BulletinStatusApproved},
		models.Bulletin{ID: "b2", Status: models.BulletinStatusPending},
		models.Bulletin{ID: "b3", Status: models.BulletinStatusRejected},
	)
	ctx := context.Background()

	items, pagination, err := svc.List(ctx, dto.BulletinQuery{Status: "pending"}, claimsFor("stud-1", models.RoleStudent))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b1", items[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	items, _, err = svc.List(ctx, dto.BulletinQuery{Status: "pending"}, claimsFor("sup-1", models.RoleSupervisor))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b2", items[0].ID)

	items, _, err = svc.List(ctx, dto.BulletinQuery{}, claimsFor("sup-1", models.RoleSupervisor))
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, models.BulletinStatus(""), store.lastFilter.Status)

	_, _, err = svc.List(ctx, dto.BulletinQuery{AuthorID: "stud-9"}, claimsFor("stud-1", models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, "stud-9", store.lastFilter.AuthorID)
	assert.Equal(t, models.BulletinStatusApproved, store.lastFilter.Status)
}

func TestBulletinServiceHighlightsOnlyApproved(t *testing.T) {
	svc, _, _, _ := newBulletinFixture(
		models.Bulletin{ID: "b1", Status: models.BulletinStatusApproved, IsHighlight: true},
		models.Bulletin{ID: "b2", Status: models.BulletinStatusPending, IsHighlight: true},
		models.Bulletin{ID: "b3", Status: models.BulletinStatusApproved},
	)
	items, _, err := svc.Highlights(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b1", items[0].ID)
}

func TestBulletinServiceCreateDefaultsPending(t *testing.T) {
	svc, _, _, _ := newBulletinFixture()
	b, err := svc.Create(context.Background(), dto.CreateBulletinRequest{Title: " Lab cleanup ", Content: "Friday", IsHighlight: true}, claimsFor("stud-1", models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, models.BulletinStatusPending, b.Status)
	assert.Equal(t, "Lab cleanup", b.Title)
	assert.Equal(t, "stud-1", b.AuthorID)

	_, err = svc.Create(context.Background(), dto.CreateBulletinRequest{}, claimsFor("stud-1", models.RoleStudent))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
