package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/mailer"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

const maxSlugAttempts = 50

// Service handles community-creation requests.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*RequestDTO, error)
	Review(ctx context.Context, actorID, requestID uuid.UUID, input ReviewInput) (*RequestDTO, error)
	List(ctx context.Context, status *enums.WaitlistStatus, params pagination.Params) (*RequestPage, error)
}

type waitlistRepository interface {
	Create(ctx context.Context, req *models.WaitlistRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WaitlistRequest, error)
	List(ctx context.Context, status *enums.WaitlistStatus, params pagination.Params) ([]models.WaitlistRequest, string, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Approve(ctx context.Context, requestID uuid.UUID, community *models.Community, ownerID *uuid.UUID, at time.Time) error
	Reject(ctx context.Context, requestID uuid.UUID, at time.Time) error
}

type profileFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
}

type ServiceParams struct {
	Repo     waitlistRepository
	Profiles profileFinder
	Mailer   mailer.Sender
	Logger   *logger.Logger
	BaseURL  string
}

type service struct {
	repo     waitlistRepository
	profiles profileFinder
	mail     mailer.Sender
	logg     *logger.Logger
	baseURL  string
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("waitlist repository is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile finder is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	return &service{
		repo:     params.Repo,
		profiles: params.Profiles,
		mail:     params.Mailer,
		logg:     params.Logger,
		baseURL:  strings.TrimRight(params.BaseURL, "/"),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*RequestDTO, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	communityName := strings.TrimSpace(input.CommunityName)
	if name == "" || email == "" || communityName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email and community name are required")
	}

	req := &models.WaitlistRequest{
		Name:          name,
		Email:         email,
		CommunityName: communityName,
		Description:   input.Description,
		Status:        enums.WaitlistStatusPending,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create waitlist request")
	}

	s.notify(ctx, req, "")
	dto := toDTO(req)
	return &dto, nil
}

func (s *service) Review(ctx context.Context, actorID, requestID uuid.UUID, input ReviewInput) (*RequestDTO, error) {
	if input.Status != enums.WaitlistStatusApproved && input.Status != enums.WaitlistStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved or rejected")
	}
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "waitlist request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load waitlist request")
	}
	if req.Status != enums.WaitlistStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "waitlist request already reviewed")
	}

	now := s.now()
	communitySlug := ""
	switch input.Status {
	case enums.WaitlistStatusApproved:
		community, ownerID, err := s.buildCommunity(ctx, actorID, req)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Approve(ctx, req.ID, community, ownerID, now); err != nil {
			return nil, s.mapCloseErr(err, "approve waitlist request")
		}
		communitySlug = community.Slug
		req.CommunityID = &community.ID
	case enums.WaitlistStatusRejected:
		if err := s.repo.Reject(ctx, req.ID, now); err != nil {
			return nil, s.mapCloseErr(err, "reject waitlist request")
		}
	}
	req.Status = input.Status
	req.ReviewedAt = &now

	s.notify(ctx, req, communitySlug)
	dto := toDTO(req)
	dto.CommunitySlug = communitySlug
	return &dto, nil
}

func (s *service) List(ctx context.Context, status *enums.WaitlistStatus, params pagination.Params) (*RequestPage, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	rows, next, err := s.repo.List(ctx, status, params)
	if err != nil {
		if pagination.IsInvalidCursor(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list waitlist requests")
	}
	out := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return &RequestPage{Requests: out, NextCursor: next}, nil
}

// buildCommunity seats the requester as owner when a profile with the request
// email exists; otherwise the reviewing admin is recorded as creator.
func (s *service) buildCommunity(ctx context.Context, actorID uuid.UUID, req *models.WaitlistRequest) (*models.Community, *uuid.UUID, error) {
	communitySlug, err := s.uniqueSlug(ctx, req.CommunityName)
	if err != nil {
		return nil, nil, err
	}

	var ownerID *uuid.UUID
	profile, err := s.profiles.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		ownerID = &profile.ID
	case !db.IsNotFound(err):
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up requester profile")
	}

	community := &models.Community{
		Slug:        communitySlug,
		Name:        req.CommunityName,
		Description: req.Description,
		IsPublic:    true,
		CreatedBy:   actorID,
	}
	if ownerID != nil {
		community.CreatedBy = *ownerID
	}
	return community, ownerID, nil
}

// uniqueSlug derives a URL key from name, appending -2, -3 ... on collision.
func (s *service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "community"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check slug")
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}

func (s *service) mapCloseErr(err error, msg string) error {
	switch {
	case errors.Is(err, ErrAlreadyReviewed):
		return pkgerrors.New(pkgerrors.CodeStateConflict, "waitlist request already reviewed")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "community slug already taken")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
	}
}

func (s *service) notify(ctx context.Context, req *models.WaitlistRequest, communitySlug string) {
	email := mailer.WaitlistEmail{
		To:            req.Email,
		Name:          req.Name,
		CommunityName: req.CommunityName,
		Status:        string(req.Status),
	}
	if communitySlug != "" {
		email.CommunityURL = fmt.Sprintf("%s/c/%s", s.baseURL, communitySlug)
	}
	if err := s.mail.Send(ctx, email); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "waitlist_request_id", req.ID.String()), "send waitlist email failed", err)
	}
}
