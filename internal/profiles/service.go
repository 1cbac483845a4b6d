package profiles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/models"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

// Service exposes the signed-in user's own profile.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateProfileDTO) (*ProfileDTO, error)
}

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, dto UpdateProfileDTO) (*models.Profile, error)
}

type service struct {
	repo profileRepository
}

// NewService builds the profile service.
func NewService(repo profileRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}
	return FromModel(profile), nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileDTO) (*ProfileDTO, error) {
	if input.FullName != nil && strings.TrimSpace(*input.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name cannot be blank")
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil || *input.Timezone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown timezone")
		}
	}
	profile, err := s.repo.UpdateProfile(ctx, userID, input)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return FromModel(profile), nil
}
