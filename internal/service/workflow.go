package service

import (
	"context"
	"time"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/models"
)

// authorizer is satisfied by *authz.Gate.
type authorizer interface {
	Authorize(actor authz.Actor, action authz.Action, target authz.Target) authz.Decision
}

// notifier hands events to the notification pipeline. It never fails the caller.
type notifier interface {
	Notify(ctx context.Context, event models.Event)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, models.Event) {}

func authorize(gate authorizer, claims *models.JWTClaims, action authz.Action, target authz.Target) (authz.Actor, error) {
	actor := authz.ActorFromClaims(claims)
	if err := gate.Authorize(actor, action, target).Err(); err != nil {
		return actor, err
	}
	return actor, nil
}

func paginationOf(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}

func utcNow() time.Time {
	return time.Now().UTC()
}
