package communities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/mailer"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

const (
	defaultInviteTTL = 7 * 24 * time.Hour
	inviteTokenBytes = 32
	visitDedupeTTL   = 24 * time.Hour
)

// Service defines community membership and profile operations.
type Service interface {
	GetBySlug(ctx context.Context, slug string, viewerID *uuid.UUID, visitorKey string) (*CommunityDetail, error)
	Update(ctx context.Context, actorID uuid.UUID, slug string, input UpdateCommunityInput) (*CommunityDTO, error)
	Join(ctx context.Context, actorID uuid.UUID, slug string) (*MemberDTO, error)
	Leave(ctx context.Context, actorID uuid.UUID, slug string) error
	ListMembers(ctx context.Context, viewerID *uuid.UUID, slug string, params pagination.Params) (*MemberPage, error)
	UpdateMemberRole(ctx context.Context, actorID uuid.UUID, slug string, userID uuid.UUID, role enums.CommunityRole) error
	RemoveMember(ctx context.Context, actorID uuid.UUID, slug string, userID uuid.UUID) error
	Invite(ctx context.Context, actorID uuid.UUID, slug string, input InviteInput) (*InviteDTO, error)
	AcceptInvite(ctx context.Context, actorID uuid.UUID, token string) (*MemberDTO, error)
	RecordVisit(ctx context.Context, communityID uuid.UUID, visitorKey string) error
}

type communityRepository interface {
	FindBySlug(ctx context.Context, slug string) (*models.Community, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AddMember(ctx context.Context, communityID, userID uuid.UUID, role enums.CommunityRole) (*models.CommunityMember, error)
	GetMember(ctx context.Context, communityID, userID uuid.UUID) (*models.CommunityMember, error)
	UpdateMemberRole(ctx context.Context, communityID, userID uuid.UUID, role enums.CommunityRole) error
	RemoveMember(ctx context.Context, communityID, userID uuid.UUID) error
	CountMembers(ctx context.Context, communityID uuid.UUID) (int64, error)
	ListMembers(ctx context.Context, communityID uuid.UUID, params pagination.Params) ([]MemberDTO, string, error)
	ListManagers(ctx context.Context, communityIDs ...uuid.UUID) ([]Manager, error)
	CreateInvite(ctx context.Context, invite *models.CommunityInvite) error
	FindInviteByToken(ctx context.Context, token string) (*models.CommunityInvite, error)
	MarkInviteAccepted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	InsertVisit(ctx context.Context, communityID uuid.UUID, visitorKey string, day time.Time) error
}

type profileLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type visitDeduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CounterKey(name string) string
}

type tokenGenerator func(n int) (string, error)

// ServiceParams bundles the dependencies required to build the service.
type ServiceParams struct {
	Repo      communityRepository
	Profiles  profileLookup
	Mailer    mailer.Sender
	Visits    visitDeduper
	Logger    *logger.Logger
	BaseURL   string
	InviteTTL time.Duration
	NewToken  tokenGenerator
}

type service struct {
	repo      communityRepository
	profiles  profileLookup
	mail      mailer.Sender
	visits    visitDeduper
	logg      *logger.Logger
	baseURL   string
	inviteTTL time.Duration
	newToken  tokenGenerator
	now       func() time.Time
}

// NewService constructs the community service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("community repository is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile lookup is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.NewToken == nil {
		return nil, fmt.Errorf("token generator is required")
	}
	ttl := params.InviteTTL
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}
	return &service{
		repo:      params.Repo,
		profiles:  params.Profiles,
		mail:      params.Mailer,
		visits:    params.Visits,
		logg:      params.Logger,
		baseURL:   strings.TrimRight(params.BaseURL, "/"),
		inviteTTL: ttl,
		newToken:  params.NewToken,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string, viewerID *uuid.UUID, visitorKey string) (*CommunityDetail, error) {
	community, err := s.loadBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	var viewerRole *enums.CommunityRole
	if viewerID != nil {
		member, err := s.repo.GetMember(ctx, community.ID, *viewerID)
		switch {
		case err == nil:
			role := member.Role
			viewerRole = &role
		case !db.IsNotFound(err):
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load viewer membership")
		}
	}
	if !community.IsPublic && viewerRole == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
	}

	count, err := s.repo.CountMembers(ctx, community.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count members")
	}

	if key := visitorKeyFor(viewerID, visitorKey); key != "" {
		if err := s.RecordVisit(ctx, community.ID, key); err != nil && s.logg != nil {
			s.logg.WarnErr(s.logg.WithCommunityID(ctx, community.ID.String()), "record community visit failed", err)
		}
	}

	return &CommunityDetail{
		CommunityDTO: *ToDTO(community),
		MemberCount:  count,
		ViewerRole:   viewerRole,
	}, nil
}

func (s *service) Update(ctx context.Context, actorID uuid.UUID, slug string, input UpdateCommunityInput) (*CommunityDTO, error) {
	community, err := s.loadBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireManager(ctx, community.ID, actorID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Tagline != nil {
		updates["tagline"] = strings.TrimSpace(*input.Tagline)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.LogoURL != nil {
		updates["logo_url"] = *input.LogoURL
	}
	if input.CoverURL != nil {
		updates["cover_url"] = *input.CoverURL
	}
	if input.SocialLinks != nil {
		updates["social_links"] = datatypes.JSONMap(input.SocialLinks)
	}
	if input.IsPublic != nil {
		updates["is_public"] = *input.IsPublic
	}

	if err := s.repo.Update(ctx, community.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update community")
	}
	updated, err := s.repo.FindByID(ctx, community.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload community")
	}
	return ToDTO(updated), nil
}

func (s *service) Join(ctx context.Context, actorID uuid.UUID, slug string) (*MemberDTO, error) {
	community, err := s.loadBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !community.IsPublic {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "community is invite-only")
	}

	if _, err := s.repo.GetMember(ctx, community.ID, actorID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "you are already a member of this community")
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check membership")
	}

	member, err := s.repo.AddMember(ctx, community.ID, actorID, enums.CommunityRoleMember)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "you are already a member of this community")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add member")
	}

	s.notifyJoin(ctx, community, actorID)
	return memberToDTO(member), nil
}

func (s *service) Leave(ctx context.Context, actorID uuid.UUID, slug string) error {
	community, err := s.loadBySlug(ctx, slug)
	if err != nil {
		return err
	}
	member, err := s.repo.GetMember(ctx, community.ID, actorID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "you are not a member of this community")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load membership")
	}
	if member.Role == enums.CommunityRoleOwner {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "owners cannot leave their community")
	}
	if err := s.repo.RemoveMember(ctx, community.ID, actorID); err != nil && !db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove member")
	}
	return nil
}

func (s *service) ListMembers(ctx context.Context, viewerID *uuid.UUID, slug string, params pagination.Params) (*MemberPage, error) {
	community, err := s.loadBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !community.IsPublic {
		if viewerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		if _, err := s.repo.GetMember(ctx, community.ID, *viewerID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load viewer membership")
		}
	}

	members, next, err := s.repo.ListMembers(ctx, community.ID, params)
	if err != nil {
		if pagination.IsInvalidCursor(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list members")
	}
	return &MemberPage{Members: members, NextCursor: next}, nil
}

func (s *service) UpdateMemberRole(ctx context.Context, actorID uuid.UUID, slug string, userID uuid.UUID, role enums.CommunityRole) error {
	if role != enums.CommunityRoleMember && role != enums.CommunityRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeValidation, "role must be member or admin")
	}
	community, err := s.loadBySlug(ctx, slug)
	if err != nil {
		return err
	}
	actor, err := s.requireManager(ctx, community.ID, actorID)
	if err != nil {
		return err
	}
	if actor.Role != enums.CommunityRoleOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can change roles")
	}
	if userID == actorID {
		return pkgerrors.New(pkgerrors.CodeValidation, "you cannot change your own role")
	}
	if _, err := s.repo.GetMember(ctx, community.ID, userID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load member")
	}
	if err := s.repo.UpdateMemberRole(ctx, community.ID, userID, role); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update member role")
	}
	return nil
}

func (s *service) RemoveMember(ctx context.Context, actorID uuid.UUID, slug string, userID uuid.UUID) error {
	community, err := s.loadBySlug(ctx, slug)
	if err != nil {
		return err
	}
	actor, err := s.requireManager(ctx, community.ID, actorID)
	if err != nil {
		return err
	}
	if userID == actorID {
		return pkgerrors.New(pkgerrors.CodeValidation, "use leave to remove yourself")
	}
	target, err := s.repo.GetMember(ctx, community.ID, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load member")
	}
	if target.Role == enums.CommunityRoleOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "the owner cannot be removed")
	}
	if target.Role == enums.CommunityRoleAdmin && actor.Role != enums.CommunityRoleOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can remove admins")
	}
	if err := s.repo.RemoveMember(ctx, community.ID, userID); err != nil && !db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove member")
	}
	return nil
}

// RecordVisit stores at most one visit per visitor per UTC day.
func (s *service) RecordVisit(ctx context.Context, communityID uuid.UUID, visitorKey string) error {
	visitorKey = strings.TrimSpace(visitorKey)
	if visitorKey == "" {
		return nil
	}
	day := s.now().Truncate(24 * time.Hour)
	if s.visits != nil {
		key := s.visits.CounterKey(fmt.Sprintf("visit:%s:%s:%s", communityID, visitorKey, day.Format("20060102")))
		fresh, err := s.visits.SetNX(ctx, key, 1, visitDedupeTTL)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
	}
	return s.repo.InsertVisit(ctx, communityID, visitorKey, day)
}

func (s *service) loadBySlug(ctx context.Context, slug string) (*models.Community, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community slug is required")
	}
	community, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load community")
	}
	return community, nil
}

func (s *service) requireManager(ctx context.Context, communityID, actorID uuid.UUID) (*models.CommunityMember, error) {
	member, err := s.repo.GetMember(ctx, communityID, actorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you do not manage this community")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load membership")
	}
	if !member.Role.CanManage() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you do not manage this community")
	}
	return member, nil
}

func (s *service) notifyJoin(ctx context.Context, community *models.Community, memberID uuid.UUID) {
	ctx = s.withCommunity(ctx, community.ID)
	memberName := ""
	if profile, err := s.profiles.FindByID(ctx, memberID); err == nil {
		memberName = profile.FullName
	}
	managers, err := s.repo.ListManagers(ctx, community.ID)
	if err != nil {
		s.logError(ctx, "list community managers failed", err)
		return
	}
	for _, m := range managers {
		if m.Role != enums.CommunityRoleOwner || m.UserID == memberID {
			continue
		}
		err := s.mail.Send(ctx, mailer.JoinNotificationEmail{
			To:            m.Email,
			Name:          m.FullName,
			MemberName:    memberName,
			CommunityName: community.Name,
			CommunityURL:  s.communityURL(community.Slug) + "/members",
		})
		if err != nil {
			s.logError(ctx, "send join notification failed", err)
		}
	}
}

func (s *service) communityURL(slug string) string {
	return fmt.Sprintf("%s/c/%s", s.baseURL, slug)
}

func (s *service) withCommunity(ctx context.Context, id uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithCommunityID(ctx, id.String())
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

func visitorKeyFor(viewerID *uuid.UUID, anonymousKey string) string {
	if viewerID != nil {
		return "user:" + viewerID.String()
	}
	if k := strings.TrimSpace(anonymousKey); k != "" {
		return "anon:" + k
	}
	return ""
}
