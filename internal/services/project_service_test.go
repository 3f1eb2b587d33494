package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/ujenzipro/internal/models"
	"example.com/ujenzipro/internal/session"
)

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) ListByBuilder(ctx context.Context, builderID uuid.UUID) ([]models.Project, error) {
	args := m.Called(ctx, builderID)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *MockProjectRepository) Update(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestCreateProjectGeneratesAccessCode(t *testing.T) {
	mockRepo := new(MockProjectRepository)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Project")).Return(nil)

	service := NewProjectService(mockRepo)
	builder := session.Actor{UserID: uuid.New(), Role: session.RoleBuilder}

	project, err := service.CreateProject(context.Background(), builder, CreateProjectInput{
		Name:     "Riverside Apartments",
		Location: "Kisumu",
	})

	require.NoError(t, err)
	require.Equal(t, builder.UserID, project.BuilderID)
	require.Len(t, project.AccessCode, 6)

	mockRepo.AssertExpectations(t)
}

func TestCreateProjectRequiresBuilder(t *testing.T) {
	service := NewProjectService(new(MockProjectRepository))

	supplier := session.Actor{UserID: uuid.New(), Role: session.RoleSupplier}
	_, err := service.CreateProject(context.Background(), supplier, CreateProjectInput{Name: "X"})

	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestGetProjectAccessCode(t *testing.T) {
	projectID := uuid.New()
	project := &models.Project{ID: projectID, BuilderID: uuid.New(), Name: "Site A", AccessCode: "AB12CD"}

	mockRepo := new(MockProjectRepository)
	mockRepo.On("GetByID", mock.Anything, projectID).Return(project, nil)

	service := NewProjectService(mockRepo)
	stranger := session.Actor{UserID: uuid.New(), Role: session.RoleSupplier}

	// Wrong code is denied
	_, err := service.GetProject(context.Background(), stranger, projectID, "WRONG1")
	require.ErrorIs(t, err, ErrAccessDenied)

	// Right code opens the project
	got, err := service.GetProject(context.Background(), stranger, projectID, "AB12CD")
	require.NoError(t, err)
	require.Equal(t, projectID, got.ID)

	// The owner never needs a code
	owner := session.Actor{UserID: project.BuilderID, Role: session.RoleBuilder}
	got, err = service.GetProject(context.Background(), owner, projectID, "")
	require.NoError(t, err)
	require.Equal(t, projectID, got.ID)
}

func TestVerifyAccessCode(t *testing.T) {
	projectID := uuid.New()
	project := &models.Project{ID: projectID, BuilderID: uuid.New(), AccessCode: "ZZ99XX"}

	mockRepo := new(MockProjectRepository)
	mockRepo.On("GetByID", mock.Anything, projectID).Return(project, nil)

	service := NewProjectService(mockRepo)

	valid, err := service.VerifyAccessCode(context.Background(), projectID, "ZZ99XX")
	require.NoError(t, err)
	require.True(t, valid)

	// Codes are case-insensitive for the humans typing them
	valid, err = service.VerifyAccessCode(context.Background(), projectID, "zz99xx")
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = service.VerifyAccessCode(context.Background(), projectID, "AAAAAA")
	require.NoError(t, err)
	require.False(t, valid)
}
