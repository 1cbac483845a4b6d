package registrations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/luhive/luhive-backend/internal/events"
	"github.com/luhive/luhive-backend/internal/platforms"
	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/mailer"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

const (
	defaultTokenTTL   = 24 * time.Hour
	verifyTokenBytes  = 32
	alreadyRegistered = "you are already registered for this event"
)

// Service implements registration intake, verification and organizer review.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	Verify(ctx context.Context, input VerifyInput) (*VerifyResult, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*RegistrationDTO, error)
	Cancel(ctx context.Context, actorID, eventID, registrationID uuid.UUID) error
	List(ctx context.Context, actorID, eventID uuid.UUID, filter ListFilter, params pagination.Params) (*RegistrationPage, error)
	MarkAttendance(ctx context.Context, actorID, eventID, registrationID uuid.UUID, attended bool) (*RegistrationDTO, error)
}

type registrationRepository interface {
	FindEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	FindCommunity(ctx context.Context, id uuid.UUID) (*models.Community, error)
	FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ExistsForUser(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	CountTowardsCapacity(ctx context.Context, eventID uuid.UUID, approvedOnly bool) (int64, error)
	Create(ctx context.Context, reg *models.EventRegistration) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.EventRegistration, error)
	FindByToken(ctx context.Context, token string) (*models.EventRegistration, error)
	ConsumeToken(ctx context.Context, id uuid.UUID, token string) (bool, error)
	UpdateApproval(ctx context.Context, id uuid.UUID, status enums.ApprovalStatus) error
	SetAttended(ctx context.Context, id uuid.UUID, at *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	IsOrganizer(ctx context.Context, userID uuid.UUID, event *models.Event) (bool, error)
	List(ctx context.Context, eventID uuid.UUID, filter ListFilter, params pagination.Params) ([]registrationRow, string, error)
}

// consumedTokens remembers verification tokens after they are cleared so a
// repeated visit can still be answered with "already".
type consumedTokens interface {
	MarkVerificationConsumed(ctx context.Context, token, registrationID string, ttl time.Duration) error
	ConsumedVerification(ctx context.Context, token string) (string, bool, error)
}

type tokenGenerator func(n int) (string, error)

type ServiceParams struct {
	Repo     registrationRepository
	Mailer   mailer.Sender
	Consumed consumedTokens
	Logger   *logger.Logger
	BaseURL  string
	TokenTTL time.Duration
	NewToken tokenGenerator
}

type service struct {
	repo     registrationRepository
	mail     mailer.Sender
	consumed consumedTokens
	logg     *logger.Logger
	baseURL  string
	tokenTTL time.Duration
	newToken tokenGenerator
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("registration repository is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.NewToken == nil {
		return nil, fmt.Errorf("token generator is required")
	}
	ttl := params.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &service{
		repo:     params.Repo,
		mail:     params.Mailer,
		consumed: params.Consumed,
		logg:     params.Logger,
		baseURL:  strings.TrimRight(params.BaseURL, "/"),
		tokenTTL: ttl,
		newToken: params.NewToken,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	event, err := s.repo.FindEvent(ctx, input.EventID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	if event.Status != enums.EventStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	ctx = s.withEvent(ctx, event.ID)

	now := s.now()
	if event.RegistrationDeadline != nil && now.After(*event.RegistrationDeadline) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "registration closed")
	}
	if event.Capacity != nil {
		count, err := s.repo.CountTowardsCapacity(ctx, event.ID, event.IsApproveRequired)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count registrations")
		}
		if count >= int64(*event.Capacity) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event is full")
		}
	}

	questions, err := events.ParseQuestions(event.CustomQuestions)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event questions")
	}
	answers, err := validateAnswers(questions, input.Answers)
	if err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(input.Phone)
	if phone != "" && !isE164(phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone must be in international format, e.g. +994501234567")
	}

	reg := &models.EventRegistration{
		EventID:    event.ID,
		RSVPStatus: enums.RSVPStatusGoing,
	}
	approval := enums.ApprovalStatusApproved
	if event.IsApproveRequired {
		approval = enums.ApprovalStatusPending
	}
	reg.ApprovalStatus = &approval

	var profile *models.Profile
	if input.UserID != nil {
		exists, err := s.repo.ExistsForUser(ctx, event.ID, *input.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing registration")
		}
		if exists {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, alreadyRegistered)
		}
		profile, err = s.repo.FindProfile(ctx, *input.UserID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "profile not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
		}
		reg.UserID = input.UserID
		reg.IsVerified = true
		if phone != "" {
			answers["phone"] = phone
		}
	} else {
		name := strings.TrimSpace(input.Name)
		email := strings.ToLower(strings.TrimSpace(input.Email))
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		if !isEmail(email) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
		}
		token, err := s.newToken(verifyTokenBytes)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
		}
		expires := now.Add(s.tokenTTL)
		reg.AnonymousName = &name
		reg.AnonymousEmail = &email
		if phone != "" {
			reg.AnonymousPhone = &phone
		}
		reg.VerificationToken = &token
		reg.TokenExpiresAt = &expires
	}

	if len(answers) > 0 {
		raw, err := json.Marshal(answers)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode answers")
		}
		reg.CustomAnswers = datatypes.JSON(raw)
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, alreadyRegistered)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create registration")
	}

	community, err := s.repo.FindCommunity(ctx, event.CommunityID)
	if err != nil {
		s.logError(ctx, "load community for registration email failed", err)
		community = &models.Community{ID: event.CommunityID}
	}

	result := &RegisterResult{
		RequiresVerification: !reg.IsVerified,
		PendingApproval:      reg.IsPendingApproval(),
	}
	switch {
	case !reg.IsVerified:
		s.sendVerification(ctx, event, community, reg)
	case !reg.IsPendingApproval():
		s.sendConfirmation(ctx, event, community, reg.ID, profile.Email, profile.FullName)
	}

	profileEmail, profileName := "", ""
	if profile != nil {
		profileEmail, profileName = profile.Email, profile.FullName
	}
	result.Registration = toDTO(reg, profileEmail, profileName)
	return result, nil
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verification token is required")
	}

	reg, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load registration")
		}
		return s.verifyConsumed(ctx, token, input.EventID)
	}
	ctx = s.withEvent(ctx, reg.EventID)

	if reg.EventID != input.EventID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "verification link does not match this event")
	}
	if reg.TokenExpiresAt != nil && reg.TokenExpiresAt.Before(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verification link expired")
	}
	if reg.IsVerified {
		return &VerifyResult{Outcome: OutcomeAlready, RegistrationID: reg.ID}, nil
	}

	consumed, err := s.repo.ConsumeToken(ctx, reg.ID, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify registration")
	}
	if !consumed {
		return &VerifyResult{Outcome: OutcomeAlready, RegistrationID: reg.ID}, nil
	}
	s.rememberConsumed(ctx, token, reg)

	if reg.IsPendingApproval() {
		return &VerifyResult{Outcome: OutcomePendingApproval, RegistrationID: reg.ID}, nil
	}

	event, err := s.repo.FindEvent(ctx, reg.EventID)
	if err != nil {
		s.logError(ctx, "load event for confirmation failed", err)
		return &VerifyResult{Outcome: OutcomeSuccess, RegistrationID: reg.ID}, nil
	}
	community, err := s.repo.FindCommunity(ctx, event.CommunityID)
	if err != nil {
		s.logError(ctx, "load community for confirmation failed", err)
		community = &models.Community{ID: event.CommunityID}
	}
	s.sendConfirmation(ctx, event, community, reg.ID, reg.ContactEmail(), reg.ContactName())
	return &VerifyResult{Outcome: OutcomeSuccess, RegistrationID: reg.ID}, nil
}

func (s *service) verifyConsumed(ctx context.Context, token string, eventID uuid.UUID) (*VerifyResult, error) {
	if s.consumed != nil {
		regID, ok, err := s.consumed.ConsumedVerification(ctx, token)
		if err != nil {
			s.logError(ctx, "read consumed verification marker failed", err)
		}
		if ok {
			id, parseErr := uuid.Parse(regID)
			if parseErr == nil {
				reg, err := s.repo.FindByID(ctx, id)
				switch {
				case err == nil && reg.EventID != eventID:
					return nil, pkgerrors.New(pkgerrors.CodeForbidden, "verification link does not match this event")
				case err == nil:
					return &VerifyResult{Outcome: OutcomeAlready, RegistrationID: reg.ID}, nil
				}
			}
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid or unknown verification link")
}

func (s *service) rememberConsumed(ctx context.Context, token string, reg *models.EventRegistration) {
	if s.consumed == nil {
		return
	}
	// The marker lives only as long as the link would have, so an expired
	// link is rejected even after it was redeemed.
	ttl := s.tokenTTL
	if reg.TokenExpiresAt != nil {
		ttl = reg.TokenExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return
	}
	if err := s.consumed.MarkVerificationConsumed(ctx, token, reg.ID.String(), ttl); err != nil {
		s.logError(ctx, "store consumed verification marker failed", err)
	}
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*RegistrationDTO, error) {
	if input.Status != enums.ApprovalStatusApproved && input.Status != enums.ApprovalStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved or rejected")
	}
	event, err := s.organizerEvent(ctx, input.ActorID, input.EventID)
	if err != nil {
		return nil, err
	}
	ctx = s.withEvent(ctx, event.ID)

	reg, err := s.eventRegistration(ctx, event.ID, input.RegistrationID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateApproval(ctx, reg.ID, input.Status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update approval status")
	}
	status := input.Status
	reg.ApprovalStatus = &status

	email, name := s.contactFor(ctx, reg)
	if email == "" {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithRegistrationID(ctx, reg.ID.String()), "no email for registrant; skipping status update email")
		}
	} else {
		url := s.eventURL(ctx, event)
		err := s.mail.Send(ctx, mailer.StatusUpdateEmail{
			To:       email,
			Name:     name,
			Event:    events.Details(event, url),
			Approved: status == enums.ApprovalStatusApproved,
		})
		if err != nil {
			s.logError(ctx, "send status update email failed", err)
		}
	}

	dto := toDTO(reg, email, name)
	return &dto, nil
}

func (s *service) Cancel(ctx context.Context, actorID, eventID, registrationID uuid.UUID) error {
	event, err := s.repo.FindEvent(ctx, eventID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	reg, err := s.eventRegistration(ctx, event.ID, registrationID)
	if err != nil {
		return err
	}

	owner := reg.UserID != nil && *reg.UserID == actorID
	if !owner {
		organizer, err := s.repo.IsOrganizer(ctx, actorID, event)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organizer access")
		}
		if !organizer {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you cannot cancel this registration")
		}
	}
	if err := s.repo.Delete(ctx, reg.ID); err != nil && !db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete registration")
	}
	return nil
}

func (s *service) List(ctx context.Context, actorID, eventID uuid.UUID, filter ListFilter, params pagination.Params) (*RegistrationPage, error) {
	if filter.ApprovalStatus != nil && !filter.ApprovalStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval status filter")
	}
	event, err := s.organizerEvent(ctx, actorID, eventID)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.List(ctx, event.ID, filter, params)
	if err != nil {
		if pagination.IsInvalidCursor(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list registrations")
	}
	out := make([]RegistrationDTO, 0, len(rows))
	for i := range rows {
		row := rows[i]
		out = append(out, toDTO(&row.EventRegistration, deref(row.ProfileEmail), deref(row.ProfileName)))
	}
	return &RegistrationPage{Registrations: out, NextCursor: next}, nil
}

func (s *service) MarkAttendance(ctx context.Context, actorID, eventID, registrationID uuid.UUID, attended bool) (*RegistrationDTO, error) {
	event, err := s.organizerEvent(ctx, actorID, eventID)
	if err != nil {
		return nil, err
	}
	reg, err := s.eventRegistration(ctx, event.ID, registrationID)
	if err != nil {
		return nil, err
	}
	var at *time.Time
	if attended {
		now := s.now()
		at = &now
	}
	if err := s.repo.SetAttended(ctx, reg.ID, at); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update attendance")
	}
	reg.AttendedAt = at
	email, name := s.contactFor(ctx, reg)
	dto := toDTO(reg, email, name)
	return &dto, nil
}

// organizerEvent loads the event and checks the actor may manage its registrations.
func (s *service) organizerEvent(ctx context.Context, actorID, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.repo.FindEvent(ctx, eventID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	ok, err := s.repo.IsOrganizer(ctx, actorID, event)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organizer access")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you do not organize this event")
	}
	return event, nil
}

func (s *service) eventRegistration(ctx context.Context, eventID, registrationID uuid.UUID) (*models.EventRegistration, error) {
	reg, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "registration not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load registration")
	}
	if reg.EventID != eventID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "registration not found")
	}
	return reg, nil
}

// contactFor resolves the registrant's email and name: anonymous contact
// first, then the linked profile.
func (s *service) contactFor(ctx context.Context, reg *models.EventRegistration) (string, string) {
	email, name := reg.ContactEmail(), reg.ContactName()
	if reg.UserID != nil && (email == "" || name == "") {
		profile, err := s.repo.FindProfile(ctx, *reg.UserID)
		if err != nil {
			if !db.IsNotFound(err) {
				s.logError(ctx, "load registrant profile failed", err)
			}
			return email, name
		}
		if email == "" {
			email = profile.Email
		}
		if name == "" {
			name = profile.FullName
		}
	}
	return email, name
}

func (s *service) sendVerification(ctx context.Context, event *models.Event, community *models.Community, reg *models.EventRegistration) {
	verifyURL := fmt.Sprintf("%s/c/%s/events/%s/verify?token=%s", s.baseURL, community.Slug, event.ID, *reg.VerificationToken)
	err := s.mail.Send(ctx, mailer.VerificationEmail{
		To:        reg.ContactEmail(),
		Name:      reg.ContactName(),
		Event:     events.Details(event, events.PublicURL(s.baseURL, community.Slug, event.ID.String())),
		VerifyURL: verifyURL,
		ExpiresIn: humanizeTTL(s.tokenTTL),
	})
	if err != nil {
		s.logError(ctx, "send verification email failed", err)
	}
}

// sendConfirmation sends the native confirmation or, for external events,
// the subscription email pointing at the external platform.
func (s *service) sendConfirmation(ctx context.Context, event *models.Event, community *models.Community, regID uuid.UUID, email, name string) {
	if email == "" {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithRegistrationID(ctx, regID.String()), "no email for registrant; skipping confirmation")
		}
		return
	}
	details := events.Details(event, events.PublicURL(s.baseURL, community.Slug, event.ID.String()))

	var msg mailer.Email
	if event.IsExternal() && event.ExternalURL != nil {
		platform := platforms.DetectRegistrationPlatform(*event.ExternalURL)
		msg = mailer.SubscriptionConfirmationEmail{
			To:            email,
			Name:          name,
			Event:         details,
			PlatformLabel: platform.Label(),
			ExternalURL:   *event.ExternalURL,
		}
	} else {
		msg = mailer.RegistrationConfirmationEmail{
			To:            email,
			Name:          name,
			CommunityName: community.Name,
			Event:         details,
		}
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logError(ctx, "send confirmation email failed", err)
	}
}

func (s *service) eventURL(ctx context.Context, event *models.Event) string {
	community, err := s.repo.FindCommunity(ctx, event.CommunityID)
	if err != nil {
		return s.baseURL
	}
	return events.PublicURL(s.baseURL, community.Slug, event.ID.String())
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

func humanizeTTL(d time.Duration) string {
	hours := int(d.Round(time.Hour) / time.Hour)
	switch {
	case hours <= 1:
		return "1 hour"
	case hours%24 == 0 && hours > 24:
		return fmt.Sprintf("%d days", hours/24)
	default:
		return fmt.Sprintf("%d hours", hours)
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
