package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/marchpool/bracket-pool/models"
	"github.com/marchpool/bracket-pool/repositories"
	"github.com/marchpool/bracket-pool/storage"
)

var (
	ErrLogoUploaderNotConfigured = errors.New("logo storage is not configured")
	ErrLogoInvalidContentType    = errors.New("logo must be a png, jpeg, or svg image")
)

type TeamService interface {
	Create(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	GetByID(ctx context.Context, id string) (*models.Team, error)
	List(ctx context.Context) ([]*models.Team, error)
	UploadLogo(ctx context.Context, teamID string, contentType string, reader io.Reader) (*models.Team, error)
	RemoveLogo(ctx context.Context, teamID string) (*models.Team, error)
}

type CreateTeamInput struct {
	Name string `json:"name"`
}

type teamService struct {
	teamRepo repositories.TeamRepository
	uploader storage.FileUploader
}

// NewTeamService accepts a nil uploader; logo operations then fail with
// ErrLogoUploaderNotConfigured while the rest of the service keeps working.
func NewTeamService(teamRepo repositories.TeamRepository, uploader storage.FileUploader) TeamService {
	return &teamService{
		teamRepo: teamRepo,
		uploader: uploader,
	}
}

func (s *teamService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	team := &models.Team{
		Name: input.Name,
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %s: %w", id, err)
	}
	s.populateLogoURL(team)
	return team, nil
}

func (s *teamService) List(ctx context.Context) ([]*models.Team, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	for _, t := range teams {
		s.populateLogoURL(t)
	}
	return teams, nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID string, contentType string, reader io.Reader) (*models.Team, error) {
	if s.uploader == nil {
		return nil, ErrLogoUploaderNotConfigured
	}

	ext, ok := logoExtension(contentType)
	if !ok {
		return nil, ErrLogoInvalidContentType
	}

	team, err := s.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("teams/%s/logo%s", team.ID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}

	oldKey := team.LogoKey
	if err := s.teamRepo.UpdateLogoKey(ctx, team.ID, &key); err != nil {
		return nil, fmt.Errorf("failed to store team logo key: %w", err)
	}
	if oldKey != nil && *oldKey != key {
		// Best effort; an orphaned object is harmless.
		_ = s.uploader.Delete(ctx, *oldKey)
	}

	team.LogoKey = &key
	s.populateLogoURL(team)
	return team, nil
}

func (s *teamService) RemoveLogo(ctx context.Context, teamID string) (*models.Team, error) {
	if s.uploader == nil {
		return nil, ErrLogoUploaderNotConfigured
	}

	team, err := s.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.LogoKey == nil {
		return team, nil
	}

	if err := s.uploader.Delete(ctx, *team.LogoKey); err != nil {
		return nil, fmt.Errorf("failed to delete team logo: %w", err)
	}
	if err := s.teamRepo.UpdateLogoKey(ctx, team.ID, nil); err != nil {
		return nil, fmt.Errorf("failed to clear team logo key: %w", err)
	}

	team.LogoKey = nil
	team.LogoURL = nil
	return team, nil
}

func (s *teamService) populateLogoURL(team *models.Team) {
	if s.uploader == nil || team.LogoKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*team.LogoKey)
	if url != "" {
		team.LogoURL = &url
	}
}

func logoExtension(contentType string) (string, bool) {
	switch contentType {
	case "image/png":
		return ".png", true
	case "image/jpeg":
		return ".jpg", true
	case "image/svg+xml":
		return ".svg", true
	}
	return "", false
}
