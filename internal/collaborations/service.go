// Package collaborations lets a host community invite other communities to
// co-host an event. Accepted co-hosts share organizer access to registrations.
package collaborations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/internal/audience"
	"github.com/luhive/luhive-backend/internal/events"
	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/mailer"
)

type Service interface {
	Invite(ctx context.Context, actorID, eventID uuid.UUID, input InviteRequest) (*CollaborationDTO, error)
	Respond(ctx context.Context, actorID, collaborationID uuid.UUID, accept bool) (*CollaborationDTO, error)
	List(ctx context.Context, viewerID *uuid.UUID, eventID uuid.UUID) ([]CollaborationDTO, error)
}

type collaborationRepository interface {
	Create(ctx context.Context, collab *models.EventCollaboration) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.EventCollaboration, error)
	Respond(ctx context.Context, id uuid.UUID, status enums.CollaborationStatus, at time.Time) (bool, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, acceptedOnly bool) ([]CollaborationDTO, error)
}

type eventReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type communityReader interface {
	FindBySlug(ctx context.Context, slug string) (*models.Community, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
	GetMember(ctx context.Context, communityID, userID uuid.UUID) (*models.CommunityMember, error)
}

type managerReader interface {
	CommunityManagers(ctx context.Context, communityIDs ...uuid.UUID) ([]audience.Recipient, error)
}

type ServiceParams struct {
	Repo        collaborationRepository
	Events      eventReader
	Communities communityReader
	Managers    managerReader
	Mailer      mailer.Sender
	Logger      *logger.Logger
	BaseURL     string
}

type service struct {
	repo        collaborationRepository
	events      eventReader
	communities communityReader
	managers    managerReader
	mail        mailer.Sender
	logg        *logger.Logger
	baseURL     string
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("collaboration repository is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event reader is required")
	}
	if params.Communities == nil {
		return nil, fmt.Errorf("community reader is required")
	}
	if params.Managers == nil {
		return nil, fmt.Errorf("manager reader is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	return &service{
		repo:        params.Repo,
		events:      params.Events,
		communities: params.Communities,
		managers:    params.Managers,
		mail:        params.Mailer,
		logg:        params.Logger,
		baseURL:     strings.TrimRight(params.BaseURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Invite(ctx context.Context, actorID, eventID uuid.UUID, input InviteRequest) (*CollaborationDTO, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !s.manages(ctx, event.CommunityID, actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only host organizers can invite co-hosts")
	}

	target, err := s.resolveTarget(ctx, input)
	if err != nil {
		return nil, err
	}
	if target.ID == event.CommunityID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "the host community cannot co-host its own event")
	}

	collab := &models.EventCollaboration{
		EventID:     event.ID,
		CommunityID: target.ID,
		Role:        enums.CollaborationRoleCoHost,
		Status:      enums.CollaborationStatusPending,
		InvitedBy:   actorID,
	}
	if err := s.repo.Create(ctx, collab); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "community already invited to this event")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create collaboration")
	}

	host, err := s.communities.FindByID(ctx, event.CommunityID)
	if err != nil {
		s.logError(ctx, "load host community failed", err)
		host = &models.Community{ID: event.CommunityID}
	}
	details := events.Details(event, events.PublicURL(s.baseURL, host.Slug, event.ID.String()))
	s.notifyManagers(ctx, target.ID, func(r audience.Recipient) mailer.Email {
		return mailer.CollaborationInviteEmail{
			To:                r.Email,
			Name:              r.Name,
			HostCommunityName: host.Name,
			CommunityName:     target.Name,
			Event:             details,
		}
	})

	dto := toDTO(collab)
	dto.CommunitySlug = target.Slug
	dto.CommunityName = target.Name
	return &dto, nil
}

func (s *service) Respond(ctx context.Context, actorID, collaborationID uuid.UUID, accept bool) (*CollaborationDTO, error) {
	collab, err := s.repo.FindByID(ctx, collaborationID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collaboration not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load collaboration")
	}
	if !s.manages(ctx, collab.CommunityID, actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the invited community's organizers can respond")
	}

	status := enums.CollaborationStatusRejected
	if accept {
		status = enums.CollaborationStatusAccepted
	}
	at := s.now()
	ok, err := s.repo.Respond(ctx, collab.ID, status, at)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update collaboration")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invitation already answered").
			WithDetails(map[string]any{"status": collab.Status})
	}
	collab.Status = status
	collab.RespondedAt = &at

	if accept {
		s.notifyAccepted(ctx, collab)
	}
	dto := toDTO(collab)
	return &dto, nil
}

// List returns every collaboration to the event's organizers and only the
// accepted ones to everybody else.
func (s *service) List(ctx context.Context, viewerID *uuid.UUID, eventID uuid.UUID) ([]CollaborationDTO, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	organizer := viewerID != nil && s.manages(ctx, event.CommunityID, *viewerID)
	if event.Status != enums.EventStatusPublished && !organizer {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	out, err := s.repo.ListByEvent(ctx, event.ID, !organizer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list collaborations")
	}
	return out, nil
}

func (s *service) notifyAccepted(ctx context.Context, collab *models.EventCollaboration) {
	event, err := s.events.FindByID(ctx, collab.EventID)
	if err != nil {
		s.logError(ctx, "load event for collaboration email failed", err)
		return
	}
	cohost, err := s.communities.FindByID(ctx, collab.CommunityID)
	if err != nil {
		s.logError(ctx, "load co-host community failed", err)
		return
	}
	host, err := s.communities.FindByID(ctx, event.CommunityID)
	if err != nil {
		s.logError(ctx, "load host community failed", err)
		return
	}
	details := events.Details(event, events.PublicURL(s.baseURL, host.Slug, event.ID.String()))
	s.notifyManagers(ctx, event.CommunityID, func(r audience.Recipient) mailer.Email {
		return mailer.CollaborationAcceptedEmail{
			To:            r.Email,
			Name:          r.Name,
			CommunityName: cohost.Name,
			Event:         details,
		}
	})
}

func (s *service) notifyManagers(ctx context.Context, communityID uuid.UUID, build func(audience.Recipient) mailer.Email) {
	recipients, err := s.managers.CommunityManagers(ctx, communityID)
	if err != nil {
		s.logError(ctx, "load community managers failed", err)
		return
	}
	for _, r := range recipients {
		if err := s.mail.Send(ctx, build(r)); err != nil {
			s.logError(ctx, "send collaboration email failed", err)
		}
	}
}

func (s *service) resolveTarget(ctx context.Context, input InviteRequest) (*models.Community, error) {
	var (
		community *models.Community
		err       error
	)
	switch {
	case input.CommunityID != nil:
		community, err = s.communities.FindByID(ctx, *input.CommunityID)
	case strings.TrimSpace(input.CommunitySlug) != "":
		community, err = s.communities.FindBySlug(ctx, strings.TrimSpace(input.CommunitySlug))
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community_id or community_slug is required")
	}
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load community")
	}
	return community, nil
}

func (s *service) loadEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	return event, nil
}

func (s *service) manages(ctx context.Context, communityID, userID uuid.UUID) bool {
	member, err := s.communities.GetMember(ctx, communityID, userID)
	if err != nil {
		if !db.IsNotFound(err) {
			s.logError(ctx, "load membership failed", err)
		}
		return false
	}
	return member.Role.CanManage()
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
