package events

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/luhive/luhive-backend/internal/audience"
	"github.com/luhive/luhive-backend/internal/notifications"
	"github.com/luhive/luhive-backend/internal/platforms"
	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/mailer"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

// Service manages event lifecycle for community organizers.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, communitySlug string, input CreateEventInput) (*EventDTO, error)
	Update(ctx context.Context, actorID, eventID uuid.UUID, input UpdateEventInput) (*EventDTO, error)
	Publish(ctx context.Context, actorID, eventID uuid.UUID) (*EventDTO, error)
	Unpublish(ctx context.Context, actorID, eventID uuid.UUID) (*EventDTO, error)
	Get(ctx context.Context, viewerID *uuid.UUID, eventID uuid.UUID) (*EventDTO, error)
	ListByCommunity(ctx context.Context, viewerID *uuid.UUID, communitySlug string, params pagination.Params) (*EventPage, error)
}

type eventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Save(ctx context.Context, event *models.Event) error
	SaveRescheduled(ctx context.Context, event *models.Event) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.EventStatus) (bool, error)
	ListByCommunity(ctx context.Context, communityID uuid.UUID, publishedOnly bool, params pagination.Params) ([]models.Event, string, error)
	CountRegistrations(ctx context.Context, eventID uuid.UUID) (int64, error)
}

type communityReader interface {
	FindBySlug(ctx context.Context, slug string) (*models.Community, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
	GetMember(ctx context.Context, communityID, userID uuid.UUID) (*models.CommunityMember, error)
}

type audienceReader interface {
	EventAttendees(ctx context.Context, eventID uuid.UUID, filter audience.AttendeeFilter) ([]audience.Recipient, error)
	CommunityMembers(ctx context.Context, communityID uuid.UUID, exclude *uuid.UUID) ([]audience.Recipient, error)
}

type broadcaster interface {
	Go(ctx context.Context, emails []mailer.Email, done func(notifications.Result))
}

type ServiceParams struct {
	Repo        eventRepository
	Communities communityReader
	Audience    audienceReader
	Broadcaster broadcaster
	Logger      *logger.Logger
	BaseURL     string
}

type service struct {
	repo        eventRepository
	communities communityReader
	audience    audienceReader
	broadcast   broadcaster
	logg        *logger.Logger
	baseURL     string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if params.Communities == nil {
		return nil, fmt.Errorf("community reader is required")
	}
	if params.Audience == nil {
		return nil, fmt.Errorf("audience reader is required")
	}
	if params.Broadcaster == nil {
		return nil, fmt.Errorf("broadcaster is required")
	}
	return &service{
		repo:        params.Repo,
		communities: params.Communities,
		audience:    params.Audience,
		broadcast:   params.Broadcaster,
		logg:        params.Logger,
		baseURL:     strings.TrimRight(params.BaseURL, "/"),
	}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, communitySlug string, input CreateEventInput) (*EventDTO, error) {
	community, err := s.communities.FindBySlug(ctx, strings.TrimSpace(communitySlug))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load community")
	}
	if err := s.requireOrganizer(ctx, community.ID, actorID); err != nil {
		return nil, err
	}

	regType := input.RegistrationType
	if regType == "" {
		regType = enums.RegistrationTypeNative
	}
	offsets := input.NotificationOffsets
	if offsets == nil {
		offsets = DefaultNotificationOffsets
	}

	event := &models.Event{
		CommunityID:          community.ID,
		Title:                strings.TrimSpace(input.Title),
		Description:          input.Description,
		StartTime:            input.StartTime.UTC(),
		EndTime:              utcPtr(input.EndTime),
		Timezone:             strings.TrimSpace(input.Timezone),
		LocationName:         input.LocationName,
		LocationAddress:      input.LocationAddress,
		OnlineMeetingURL:     input.OnlineMeetingURL,
		DiscussionURL:        input.DiscussionURL,
		Status:               enums.EventStatusDraft,
		RegistrationType:     regType,
		ExternalURL:          input.ExternalURL,
		Capacity:             input.Capacity,
		RegistrationDeadline: utcPtr(input.RegistrationDeadline),
		IsApproveRequired:    input.IsApproveRequired,
		CoverURL:             input.CoverURL,
		CreatedBy:            actorID,
	}
	if err := prepareEvent(event, input.CustomQuestions, offsets); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create event")
	}
	dto := ToDTO(event)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actorID, eventID uuid.UUID, input UpdateEventInput) (*EventDTO, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrganizer(ctx, event.CommunityID, actorID); err != nil {
		return nil, err
	}

	before := scheduleOf(event)
	beforeOffsets := slices.Clone([]string(event.NotificationOffsets))
	questions, parseErr := ParseQuestions(event.CustomQuestions)
	offsets := []string(event.NotificationOffsets)
	applyUpdate(event, input)
	if input.CustomQuestions != nil {
		questions = *input.CustomQuestions
	} else if parseErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, parseErr, "load stored custom questions")
	}
	if input.NotificationOffsets != nil {
		offsets = *input.NotificationOffsets
	}
	if err := prepareEvent(event, questions, offsets); err != nil {
		return nil, err
	}

	save := s.repo.Save
	if !event.StartTime.Equal(before.start) || !slices.Equal(beforeOffsets, []string(event.NotificationOffsets)) {
		save = s.repo.SaveRescheduled
	}
	if err := save(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update event")
	}

	if event.Status == enums.EventStatusPublished && scheduleOf(event) != before {
		s.announceScheduleChange(ctx, event)
	}
	dto := ToDTO(event)
	return &dto, nil
}

func (s *service) Publish(ctx context.Context, actorID, eventID uuid.UUID) (*EventDTO, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrganizer(ctx, event.CommunityID, actorID); err != nil {
		return nil, err
	}
	moved, err := s.repo.TransitionStatus(ctx, event.ID, enums.EventStatusDraft, enums.EventStatusPublished)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "publish event")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "event is already published")
	}
	event.Status = enums.EventStatusPublished

	s.announceNewEvent(ctx, event, actorID)
	dto := ToDTO(event)
	return &dto, nil
}

func (s *service) Unpublish(ctx context.Context, actorID, eventID uuid.UUID) (*EventDTO, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrganizer(ctx, event.CommunityID, actorID); err != nil {
		return nil, err
	}
	moved, err := s.repo.TransitionStatus(ctx, event.ID, enums.EventStatusPublished, enums.EventStatusDraft)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unpublish event")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "event is not published")
	}
	event.Status = enums.EventStatusDraft
	dto := ToDTO(event)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, viewerID *uuid.UUID, eventID uuid.UUID) (*EventDTO, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != enums.EventStatusPublished && !s.isOrganizer(ctx, event.CommunityID, viewerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	count, err := s.repo.CountRegistrations(ctx, event.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count registrations")
	}
	dto := ToDTO(event)
	dto.RegistrationCount = &count
	return &dto, nil
}

func (s *service) ListByCommunity(ctx context.Context, viewerID *uuid.UUID, communitySlug string, params pagination.Params) (*EventPage, error) {
	community, err := s.communities.FindBySlug(ctx, strings.TrimSpace(communitySlug))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load community")
	}
	organizer := s.isOrganizer(ctx, community.ID, viewerID)
	if !community.IsPublic && !organizer && !s.isMember(ctx, community.ID, viewerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
	}

	rows, next, err := s.repo.ListByCommunity(ctx, community.ID, !organizer, params)
	if err != nil {
		if pagination.IsInvalidCursor(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events")
	}
	out := make([]EventDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ToDTO(&rows[i]))
	}
	return &EventPage{Events: out, NextCursor: next}, nil
}

func (s *service) loadEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	return event, nil
}

func (s *service) requireOrganizer(ctx context.Context, communityID, actorID uuid.UUID) error {
	member, err := s.communities.GetMember(ctx, communityID, actorID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you do not manage this community")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load membership")
	}
	if !member.Role.CanManage() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you do not manage this community")
	}
	return nil
}

func (s *service) isOrganizer(ctx context.Context, communityID uuid.UUID, viewerID *uuid.UUID) bool {
	if viewerID == nil {
		return false
	}
	return s.requireOrganizer(ctx, communityID, *viewerID) == nil
}

func (s *service) isMember(ctx context.Context, communityID uuid.UUID, viewerID *uuid.UUID) bool {
	if viewerID == nil {
		return false
	}
	_, err := s.communities.GetMember(ctx, communityID, *viewerID)
	return err == nil
}

func (s *service) announceScheduleChange(ctx context.Context, event *models.Event) {
	ctx = s.withEvent(ctx, event.ID)
	recipients, err := s.audience.EventAttendees(ctx, event.ID, audience.AttendeeFilter{})
	if err != nil {
		s.logError(ctx, "load attendees for schedule update failed", err)
		return
	}
	details := Details(event, s.eventURL(ctx, event))
	emails := make([]mailer.Email, 0, len(recipients))
	for _, r := range recipients {
		emails = append(emails, mailer.ScheduleUpdateEmail{To: r.Email, Name: r.Name, Event: details})
	}
	s.broadcast.Go(ctx, emails, nil)
}

func (s *service) announceNewEvent(ctx context.Context, event *models.Event, actorID uuid.UUID) {
	ctx = s.withEvent(ctx, event.ID)
	community, err := s.communities.FindByID(ctx, event.CommunityID)
	if err != nil {
		s.logError(ctx, "load community for new event broadcast failed", err)
		return
	}
	recipients, err := s.audience.CommunityMembers(ctx, event.CommunityID, &actorID)
	if err != nil {
		s.logError(ctx, "load members for new event broadcast failed", err)
		return
	}
	details := Details(event, PublicURL(s.baseURL, community.Slug, event.ID.String()))
	emails := make([]mailer.Email, 0, len(recipients))
	for _, r := range recipients {
		emails = append(emails, mailer.NewEventEmail{
			To:            r.Email,
			Name:          r.Name,
			CommunityName: community.Name,
			Event:         details,
		})
	}
	s.broadcast.Go(ctx, emails, nil)
}

func (s *service) eventURL(ctx context.Context, event *models.Event) string {
	community, err := s.communities.FindByID(ctx, event.CommunityID)
	if err != nil {
		return s.baseURL
	}
	return PublicURL(s.baseURL, community.Slug, event.ID.String())
}

func (s *service) withEvent(ctx context.Context, id uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithEventID(ctx, id.String())
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

type schedule struct {
	start    time.Time
	end      time.Time
	timezone string
	location string
	online   string
}

func scheduleOf(e *models.Event) schedule {
	sc := schedule{start: e.StartTime.UTC(), timezone: e.Timezone, location: e.LocationLabel()}
	if e.EndTime != nil {
		sc.end = e.EndTime.UTC()
	}
	if e.OnlineMeetingURL != nil {
		sc.online = *e.OnlineMeetingURL
	}
	return sc
}

func applyUpdate(e *models.Event, in UpdateEventInput) {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = in.Description
	}
	if in.StartTime != nil {
		e.StartTime = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		e.EndTime = utcPtr(in.EndTime)
	}
	if in.Timezone != nil {
		e.Timezone = strings.TrimSpace(*in.Timezone)
	}
	if in.LocationName != nil {
		e.LocationName = in.LocationName
	}
	if in.LocationAddress != nil {
		e.LocationAddress = in.LocationAddress
	}
	if in.OnlineMeetingURL != nil {
		e.OnlineMeetingURL = in.OnlineMeetingURL
	}
	if in.DiscussionURL != nil {
		e.DiscussionURL = in.DiscussionURL
	}
	if in.RegistrationType != nil {
		e.RegistrationType = *in.RegistrationType
	}
	if in.ExternalURL != nil {
		e.ExternalURL = in.ExternalURL
	}
	if in.Capacity != nil {
		e.Capacity = in.Capacity
	}
	if in.RegistrationDeadline != nil {
		e.RegistrationDeadline = utcPtr(in.RegistrationDeadline)
	}
	if in.IsApproveRequired != nil {
		e.IsApproveRequired = *in.IsApproveRequired
	}
	if in.CoverURL != nil {
		e.CoverURL = in.CoverURL
	}
}

// prepareEvent validates the event and fills derived columns.
func prepareEvent(e *models.Event, questions []Question, offsets []string) error {
	fail := func(msg string) error { return pkgerrors.New(pkgerrors.CodeValidation, msg) }

	if e.Title == "" {
		return fail("title is required")
	}
	if e.StartTime.IsZero() {
		return fail("start time is required")
	}
	if e.EndTime != nil && !e.EndTime.After(e.StartTime) {
		return fail("end time must be after start time")
	}
	if e.Timezone == "" {
		e.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(e.Timezone); err != nil {
		return fail(fmt.Sprintf("unknown timezone %q", e.Timezone))
	}
	if e.Capacity != nil && *e.Capacity < 1 {
		return fail("capacity must be at least 1")
	}
	if e.RegistrationDeadline != nil {
		latest := e.StartTime
		if e.EndTime != nil {
			latest = *e.EndTime
		}
		if e.RegistrationDeadline.After(latest) {
			return fail("registration deadline must not be after the event ends")
		}
	}

	switch e.RegistrationType {
	case enums.RegistrationTypeExternal:
		if e.ExternalURL == nil || !isHTTPURL(*e.ExternalURL) {
			return fail("external events need a valid registration URL")
		}
		platform := string(platforms.DetectRegistrationPlatform(*e.ExternalURL))
		e.ExternalPlatform = &platform
	case enums.RegistrationTypeNative:
		e.ExternalURL = nil
		e.ExternalPlatform = nil
	default:
		return fail("registration type must be native or external")
	}

	if err := ValidateQuestions(questions); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	raw, err := encodeQuestions(questions)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode questions")
	}
	e.CustomQuestions = raw

	normalized, err := NormalizeOffsets(offsets)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	e.NotificationOffsets = pq.StringArray(normalized)
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
