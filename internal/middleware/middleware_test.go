package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
	"github.com/noah-isme/lab-ops-api/pkg/logger"
)

type stubValidator struct {
	claims *models.JWTClaims
	token  string
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != s.token {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/resource/:id", handlers...)
	return r
}

func TestJWTMiddleware(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}
	var actor string
	r := newRouter(JWT(stubValidator{claims: claims, token: "good"}), func(c *gin.Context) {
		actor = c.GetString(logger.ActorKey)
		c.Status(http.StatusOK)
	})

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token good", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/resource/1", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		r.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.header)
	}
	assert.Equal(t, "u1", actor)
}

func TestRequireAction(t *testing.T) {
	gate := authz.NewGate()
	for _, tc := range []struct {
		role   models.UserRole
		action authz.Action
		status int
	}{
		{models.RoleStudent, authz.ActionBulletinModerate, http.StatusForbidden},
		{models.RoleSupervisor, authz.ActionBulletinModerate, http.StatusOK},
		{models.RoleAdmin, authz.ActionUserChangeRole, http.StatusForbidden},
		{models.RoleStudent, authz.ActionGrantRegister, http.StatusOK},
	} {
		claims := &models.JWTClaims{UserID: "u1", Role: tc.role}
		r := newRouter(func(c *gin.Context) { c.Set(ContextUserKey, claims) }, RequireAction(gate, tc.action), func(c *gin.Context) { c.Status(http.StatusOK) })
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resource/1", nil))
		assert.Equal(t, tc.status, rec.Code, "%s %s", tc.role, tc.action)
		if tc.status == http.StatusForbidden {
			assert.Contains(t, rec.Body.String(), string(authz.ReasonRoleNotPermitted))
		}
	}

	r := newRouter(RequireAction(gate, authz.ActionRosterView), func(c *gin.Context) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resource/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTimeoutBoundsContext(t *testing.T) {
	var deadline time.Time
	var ok bool
	r := newRouter(Timeout(50*time.Millisecond), func(c *gin.Context) {
		deadline, ok = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/resource/1", nil))
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	rec := &auditRecorder{}
	status := http.StatusCreated
	claims := &models.JWTClaims{UserID: "sup-1", Role: models.RoleSupervisor}
	r := newRouter(func(c *gin.Context) { c.Set(ContextUserKey, claims) }, Audit(rec, models.AuditActionNoteCreate, "note"), func(c *gin.Context) { c.Status(status) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/resource/n1", nil))
	require.Len(t, rec.logs, 1)
	assert.Equal(t, "sup-1", *rec.logs[0].UserID)
	assert.Equal(t, "n1", *rec.logs[0].ResourceID)

	status = http.StatusBadRequest
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/resource/n2", nil))
	assert.Len(t, rec.logs, 1)
}

type observedRequest struct {
	method, path string
	status       int
}

type requestRecorder struct{ requests []observedRequest }

func (r *requestRecorder) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.requests = append(r.requests, observedRequest{method, path, status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &requestRecorder{}
	r := newRouter(Metrics(observer), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/resource/42", nil))
	require.Len(t, observer.requests, 1)
	assert.Equal(t, observedRequest{http.MethodGet, "/resource/:id", http.StatusNoContent}, observer.requests[0])
}

func TestMetricsLabelsUnmatchedAndSkipsUpgrades(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &requestRecorder{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/ws/:user_id", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin.php", nil))
	require.Len(t, observer.requests, 1)
	assert.Equal(t, "unmatched", observer.requests[0].path)

	req := httptest.NewRequest(http.MethodGet, "/ws/u1", nil)
	req.Header.Set("Upgrade", "websocket")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, observer.requests, 1)
}
