package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arka-edu/school-suite-api/internal/dto"
	"github.com/arka-edu/school-suite-api/internal/models"
	appErrors "github.com/arka-edu/school-suite-api/pkg/errors"
)

type teacherRepoStub struct {
	teachers    map[string]*models.Teacher
	emailExists bool
	created     []*models.Teacher
	updated     []*models.Teacher
	deactivated []string
}

func (s *teacherRepoStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	items := make([]models.Teacher, 0, len(s.teachers))
	for _, t := range s.teachers {
		items = append(items, *t)
	}
	return items, len(items), nil
}

func (s *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := s.teachers[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *teacherRepoStub) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return s.emailExists, nil
}

func (s *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	teacher.ID = "t-new"
	s.created = append(s.created, teacher)
	return nil
}

func (s *teacherRepoStub) Update(ctx context.Context, teacher *models.Teacher) error {
	s.updated = append(s.updated, teacher)
	return nil
}

func (s *teacherRepoStub) Deactivate(ctx context.Context, id string) error {
	s.deactivated = append(s.deactivated, id)
	return nil
}

func TestTeacherServiceCreate(t *testing.T) {
	repo := &teacherRepoStub{}
	svc := NewTeacherService(repo, nil, nil)

	teacher, err := svc.Create(context.Background(), dto.CreateTeacherRequest{
		FullName: "Asha Verma",
		Email:    "asha@school.test",
		BranchID: "branch-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "t-new", teacher.ID)
	assert.True(t, teacher.Active)
	require.Len(t, repo.created, 1)
}

func TestTeacherServiceCreateDuplicateEmail(t *testing.T) {
	repo := &teacherRepoStub{emailExists: true}
	svc := NewTeacherService(repo, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateTeacherRequest{
		FullName: "Asha Verma",
		Email:    "asha@school.test",
		BranchID: "branch-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestTeacherServiceCreateInvalidPayload(t *testing.T) {
	svc := NewTeacherService(&teacherRepoStub{}, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateTeacherRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceUpdate(t *testing.T) {
	repo := &teacherRepoStub{teachers: map[string]*models.Teacher{
		"t-1": {ID: "t-1", FullName: "Old Name", Active: true},
	}}
	svc := NewTeacherService(repo, nil, nil)

	name := "New Name"
	active := false
	teacher, err := svc.Update(context.Background(), "t-1", dto.UpdateTeacherRequest{FullName: &name, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, "New Name", teacher.FullName)
	assert.False(t, teacher.Active)
	require.Len(t, repo.updated, 1)
}

func TestTeacherServiceGetNotFound(t *testing.T) {
	svc := NewTeacherService(&teacherRepoStub{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceDeactivate(t *testing.T) {
	repo := &teacherRepoStub{teachers: map[string]*models.Teacher{
		"t-1": {ID: "t-1", Active: true},
	}}
	svc := NewTeacherService(repo, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "t-1"))
	assert.Equal(t, []string{"t-1"}, repo.deactivated)
}
