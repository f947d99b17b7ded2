package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/dto"
	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/internal/repository"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

type researchLogStoreStub struct {
	logs       map[string]*models.ResearchLog
	lastFilter models.ResearchLogFilter
}

func (s *researchLogStoreStub) Create(_ context.Context, log *models.ResearchLog) error {
	log.ID = "rl-new"
	copy := *log
	s.logs[log.ID] = &copy
	return nil
}

func (s *researchLogStoreStub) GetByID(_ context.Context, id string) (*models.ResearchLog, error) {
	log, ok := s.logs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *log
	return &copy, nil
}

func (s *researchLogStoreStub) List(_ context.Context, filter models.ResearchLogFilter) ([]models.ResearchLog, int, error) {
	s.lastFilter = filter
	var out []models.ResearchLog
	for _, log := range s.logs {
		if filter.StudentID != "" && log.StudentID != filter.StudentID {
			continue
		}
		out = append(out, *log)
	}
	return out, len(out), nil
}

func (s *researchLogStoreStub) Endorse(_ context.Context, p repository.EndorsementParams) (*models.ResearchLog, error) {
	log, ok := s.logs[p.ID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	endorsed := p.Endorsed
	now := time.Now().UTC()
	log.SupervisorEndorsement = &endorsed
	log.SupervisorRating = p.Rating
	log.SupervisorComment = p.Comment
	log.EndorsedBy = &p.EndorsedBy
	log.EndorsedAt = &now
	copy := *log
	return &copy, nil
}

func boolPtr(v bool) *bool { return &v }

func newResearchLogFixture() (*ResearchLogService, *researchLogStoreStub, *recordingNotifier, *recordingAudit) {
	store := &researchLogStoreStub{logs: map[string]*models.ResearchLog{
		"rl1": {ID: "rl1", StudentID: "stud-1", Title: "PCR run"},
		"rl2": {ID: "rl2", StudentID: "stud-2", Title: "Lit review"},
	}}
	notes := &recordingNotifier{}
	audit := &recordingAudit{}
	return NewResearchLogService(store, authz.NewGate(), notes, audit, nil, nil), store, notes, audit
}

func TestResearchLogServiceEndorsementIsRevisable(t *testing.T) {
	svc, _, notes, audit := newResearchLogFixture()
	ctx := context.Background()
	supervisor := claimsFor("sup-1", models.RoleSupervisor)

	log, err := svc.Endorse(ctx, "rl1", dto.EndorseResearchLogRequest{SupervisorEndorsement: boolPtr(true), SupervisorRating: intPtr(4)}, supervisor)
	require.NoError(t, err)
	require.NotNil(t, log.SupervisorEndorsement)
	assert.True(t, *log.SupervisorEndorsement)

	log, err = svc.Endorse(ctx, "rl1", dto.EndorseResearchLogRequest{SupervisorEndorsement: boolPtr(false)}, supervisor)
	require.NoError(t, err)
	assert.False(t, *log.SupervisorEndorsement)
	assert.Nil(t, log.SupervisorRating)

	reviewed := notes.ofType(models.EventResearchLogReviewed)
	require.Len(t, reviewed, 2)
	assert.Equal(t, []string{"stud-1"}, reviewed[1].TargetUserIDs)
	assert.Equal(t, 2, audit.count())
}

func TestResearchLogServiceEndorseGuards(t *testing.T) {
	svc, _, _, _ := newResearchLogFixture()
	ctx := context.Background()

	_, err := svc.Endorse(ctx, "rl1", dto.EndorseResearchLogRequest{SupervisorEndorsement: boolPtr(true)}, claimsFor("mgr-1", models.RoleLabManager))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Endorse(ctx, "rl1", dto.EndorseResearchLogRequest{SupervisorEndorsement: boolPtr(true), SupervisorRating: intPtr(9)}, claimsFor("sup-1", models.RoleSupervisor))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Endorse(ctx, "missing", dto.EndorseResearchLogRequest{SupervisorEndorsement: boolPtr(true)}, claimsFor("sup-1", models.RoleSupervisor))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestResearchLogServiceCreateAndList(t *testing.T) {
	svc, store, _, _ := newResearchLogFixture()
	ctx := context.Background()

	log, err := svc.Create(ctx, dto.CreateResearchLogRequest{Title: "Gel imaging"}, claimsFor("stud-1", models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, "stud-1", log.StudentID)
	assert.Nil(t, log.SupervisorEndorsement)

	_, err = svc.Create(ctx, dto.CreateResearchLogRequest{Title: "x"}, claimsFor("sup-1", models.RoleSupervisor))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	logs, _, err := svc.List(ctx, dto.ResearchLogQuery{StudentID: "stud-2"}, claimsFor("stud-1", models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, "stud-1", store.lastFilter.StudentID)
	for _, l := range logs {
		assert.Equal(t, "stud-1", l.StudentID)
	}

	_, _, err = svc.List(ctx, dto.ResearchLogQuery{Endorsement: "maybe"}, claimsFor("sup-1", models.RoleSupervisor))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
