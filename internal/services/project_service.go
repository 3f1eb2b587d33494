package services

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/ujenzipro/internal/models"
	"example.com/ujenzipro/internal/repository"
	"example.com/ujenzipro/internal/session"
)

// ProjectService manages builder projects and their access codes
type ProjectService struct {
	projectRepo repository.ProjectRepository
}

// NewProjectService creates a new project service
func NewProjectService(projectRepo repository.ProjectRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo}
}

// CreateProjectInput carries the fields for a new project
type CreateProjectInput struct {
	Name        string
	Description string
	Location    string
}

// newAccessCode generates the short code shared with project viewers
func newAccessCode() string {
	return strings.ToUpper(uuid.New().String()[:6])
}

// CreateProject creates a project owned by the calling builder with a
// freshly generated access code
func (s *ProjectService) CreateProject(ctx context.Context, actor session.Actor, input CreateProjectInput) (*models.Project, error) {
	if actor.Role != session.RoleBuilder && !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if input.Name == "" {
		return nil, errors.Wrap(ErrValidation, "name is required")
	}

	project := &models.Project{
		ID:          uuid.New(),
		BuilderID:   actor.UserID,
		Name:        input.Name,
		Description: input.Description,
		Location:    input.Location,
		AccessCode:  newAccessCode(),
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	log.Info().
		Str("project_id", project.ID.String()).
		Str("builder_id", actor.UserID.String()).
		Msg("Project created")

	return project, nil
}

// GetProject returns a project. Owners and admins get it directly;
// anyone else must present the project's access code.
func (s *ProjectService) GetProject(ctx context.Context, actor session.Actor, id uuid.UUID, accessCode string) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() || actor.UserID == project.BuilderID {
		return project, nil
	}
	if !codeMatches(project.AccessCode, accessCode) {
		return nil, ErrAccessDenied
	}

	return project, nil
}

// ListProjects returns the calling builder's projects
func (s *ProjectService) ListProjects(ctx context.Context, actor session.Actor) ([]models.Project, error) {
	if actor.Role != session.RoleBuilder && !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	return s.projectRepo.ListByBuilder(ctx, actor.UserID)
}

// VerifyAccessCode reports whether the code opens the project
func (s *ProjectService) VerifyAccessCode(ctx context.Context, id uuid.UUID, accessCode string) (bool, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return codeMatches(project.AccessCode, accessCode), nil
}

// UpdateProject saves changes to a project owned by the caller
func (s *ProjectService) UpdateProject(ctx context.Context, actor session.Actor, id uuid.UUID, input CreateProjectInput) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != project.BuilderID {
		return nil, ErrAccessDenied
	}

	if input.Name != "" {
		project.Name = input.Name
	}
	project.Description = input.Description
	project.Location = input.Location

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// DeleteProject removes a project owned by the caller
func (s *ProjectService) DeleteProject(ctx context.Context, actor session.Actor, id uuid.UUID) error {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && actor.UserID != project.BuilderID {
		return ErrAccessDenied
	}

	return s.projectRepo.Delete(ctx, id)
}

func codeMatches(expected, given string) bool {
	if given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.ToUpper(given)), []byte(expected)) == 1
}
