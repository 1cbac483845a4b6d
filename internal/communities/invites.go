package communities

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/mailer"
)

func (s *service) Invite(ctx context.Context, actorID uuid.UUID, slug string, input InviteInput) (*InviteDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if input.Role != enums.CommunityRoleMember && input.Role != enums.CommunityRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be member or admin")
	}

	community, err := s.loadBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	actor, err := s.requireManager(ctx, community.ID, actorID)
	if err != nil {
		return nil, err
	}
	if input.Role == enums.CommunityRoleAdmin && actor.Role != enums.CommunityRoleOwner {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can invite admins")
	}

	token, err := s.newToken(inviteTokenBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invite token")
	}
	invite := &models.CommunityInvite{
		CommunityID: community.ID,
		Email:       email,
		Role:        input.Role,
		Token:       token,
		InvitedBy:   actorID,
		ExpiresAt:   s.now().Add(s.inviteTTL),
	}
	if err := s.repo.CreateInvite(ctx, invite); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create invite")
	}

	inviterName := ""
	if profile, err := s.profiles.FindByID(ctx, actorID); err == nil {
		inviterName = profile.FullName
	}
	err = s.mail.Send(ctx, mailer.CommunityInviteEmail{
		To:            email,
		InviterName:   inviterName,
		CommunityName: community.Name,
		Role:          string(input.Role),
		AcceptURL:     s.baseURL + "/invites/" + token,
		ExpiresOn:     invite.ExpiresAt.Format("January 2, 2006"),
	})
	if err != nil {
		s.logError(s.withCommunity(ctx, community.ID), "send community invite failed", err)
	}

	return &InviteDTO{
		ID:          invite.ID,
		CommunityID: invite.CommunityID,
		Email:       invite.Email,
		Role:        invite.Role,
		ExpiresAt:   invite.ExpiresAt,
	}, nil
}

func (s *service) AcceptInvite(ctx context.Context, actorID uuid.UUID, token string) (*MemberDTO, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invite token is required")
	}
	invite, err := s.repo.FindInviteByToken(ctx, token)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invite not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invite")
	}

	profile, err := s.profiles.FindByID(ctx, actorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}
	if !strings.EqualFold(profile.Email, invite.Email) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "this invite was sent to a different email")
	}

	existing, err := s.repo.GetMember(ctx, invite.CommunityID, actorID)
	switch {
	case err == nil:
		if _, err := s.repo.MarkInviteAccepted(ctx, invite.ID, s.now()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark invite accepted")
		}
		return memberToDTO(existing), nil
	case !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check membership")
	}

	if invite.AcceptedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invite already used")
	}
	if s.now().After(invite.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invite has expired")
	}

	member, err := s.repo.AddMember(ctx, invite.CommunityID, actorID, invite.Role)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, getErr := s.repo.GetMember(ctx, invite.CommunityID, actorID)
			if getErr == nil {
				return memberToDTO(existing), nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add member")
	}
	if _, err := s.repo.MarkInviteAccepted(ctx, invite.ID, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark invite accepted")
	}
	return memberToDTO(member), nil
}
