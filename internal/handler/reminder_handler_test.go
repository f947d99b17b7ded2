package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type fakeReminderSrv struct {
	includeCompleted bool
	completeErr      error
}

func (f *fakeReminderSrv) Create(_ context.Context, req dto.CreateReminderRequest, claims *models.JWTClaims) (*models.Reminder, error) {
	return &models.Reminder{ID: "r1", UserID: claims.UserID, Title: req.Title}, nil
}

func (f *fakeReminderSrv) List(_ context.Context, includeCompleted bool, _ *models.JWTClaims) ([]models.Reminder, error) {
	f.includeCompleted = includeCompleted
	return []models.Reminder{}, nil
}

func (f *fakeReminderSrv) Complete(_ context.Context, id string, claims *models.JWTClaims) (*models.Reminder, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &models.Reminder{ID: id, UserID: claims.UserID, IsCompleted: true}, nil
}

func TestReminderHandlerListIncludeCompleted(t *testing.T) {
	srv := &fakeReminderSrv{}
	handler := NewReminderHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/reminders?include_completed=true", nil, studentClaims())
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.includeCompleted)

	c, _ = newTestContext(http.MethodGet, "/reminders", nil, studentClaims())
	handler.List(c)
	assert.False(t, srv.includeCompleted)
}

func TestReminderHandlerCompleteForeignReminder(t *testing.T) {
	handler := NewReminderHandler(&fakeReminderSrv{completeErr: appErrors.Denied(string(authz.ReasonNotOwner), "only the owner may perform this action")})

	c, rec := newTestContext(http.MethodPut, "/reminders/r9/complete", nil, studentClaims())
	c.Params = append(c.Params, ginParam("id", "r9"))
	handler.Complete(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_owner", decodeEnvelope(rec).Error.Reason)
}

func TestReminderHandlerCompleteOwnReminder(t *testing.T) {
	handler := NewReminderHandler(&fakeReminderSrv{})

	c, rec := newTestContext(http.MethodPut, "/reminders/r1/complete", nil, studentClaims())
	c.Params = append(c.Params, ginParam("id", "r1"))
	handler.Complete(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(rec).Data), `"is_completed":true`)
}
