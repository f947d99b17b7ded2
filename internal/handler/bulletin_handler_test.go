package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type fakeBulletinSrv struct {
	decided   *models.Bulletin
	decideErr error
	calls     int
	lastID    string
	lastVote  bool
	lastQuery dto.BulletinQuery
}

func (f *fakeBulletinSrv) Create(_ context.Context, req dto.CreateBulletinRequest, claims *models.JWTClaims) (*models.Bulletin, error) {
	return &models.Bulletin{ID: "b-new", Title: req.Title, AuthorID: claims.UserID, Status: models.BulletinStatusPending}, nil
}

func (f *fakeBulletinSrv) List(_ context.Context, query dto.BulletinQuery, _ *models.JWTClaims) ([]models.Bulletin, *models.Pagination, error) {
	f.lastQuery = query
	return []models.Bulletin{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeBulletinSrv) Highlights(context.Context, int, int) ([]models.Bulletin, *models.Pagination, error) {
	return nil, nil, nil
}

func (f *fakeBulletinSrv) Decide(_ context.Context, id string, approved bool, _ *models.JWTClaims) (*models.Bulletin, error) {
	f.calls++
	f.lastID = id
	f.lastVote = approved
	return f.decided, f.decideErr
}

func TestBulletinHandlerModerateRequiresVerdict(t *testing.T) {
	srv := &fakeBulletinSrv{}
	handler := NewBulletinHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/bulletins/b1/approve", map[string]interface{}{}, supervisorClaims())
	c.Params = append(c.Params, ginParam("id", "b1"))
	handler.Moderate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.calls)
}

func TestBulletinHandlerModerateReject(t *testing.T) {
	srv := &fakeBulletinSrv{decided: &models.Bulletin{ID: "b1", Status: models.BulletinStatusRejected}}
	handler := NewBulletinHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/bulletins/b1/approve", map[string]bool{"approved": false}, supervisorClaims())
	c.Params = append(c.Params, ginParam("id", "b1"))
	handler.Moderate(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b1", srv.lastID)
	assert.False(t, srv.lastVote)
	assert.Contains(t, string(decodeEnvelope(rec).Data), `"status":"rejected"`)
}

func TestBulletinHandlerModerateAlreadyDecided(t *testing.T) {
	srv := &fakeBulletinSrv{decideErr: appErrors.Clone(appErrors.ErrInvalidTransition, "bulletin already decided")}
	handler := NewBulletinHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/bulletins/b1/approve", map[string]bool{"approved": true}, supervisorClaims())
	c.Params = append(c.Params, ginParam("id", "b1"))
	handler.Moderate(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, envelope.Error.Code)
}

func TestBulletinHandlerListBindsQuery(t *testing.T) {
	srv := &fakeBulletinSrv{}
	handler := NewBulletinHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/bulletins?status=pending&page=2", nil, supervisorClaims())
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", srv.lastQuery.Status)
	assert.Equal(t, 2, srv.lastQuery.Page)
}

func TestBulletinHandlerNilService(t *testing.T) {
	handler := NewBulletinHandler(nil)
	c, rec := newTestContext(http.MethodPost, "/bulletins", nil, studentClaims())
	handler.Create(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
