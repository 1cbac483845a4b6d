package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/api/responses"
	"github.com/luhive/luhive-backend/api/validators"
	"github.com/luhive/luhive-backend/internal/communities"
	"github.com/luhive/luhive-backend/internal/dashboard"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
)

const (
	visitorHeader    = "X-Visitor-Key"
	visitorCookie    = "luhive_vid"
	visitorCookieTTL = 365 * 24 * time.Hour
	maxVisitorKeyLen = 64
)

// CommunityGet returns the public community page and counts the visit.
func CommunityGet(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("community service"))
			return
		}
		slug, err := validators.SlugParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		viewer := viewerID(r)
		key := ""
		if viewer == nil {
			key = visitorKey(w, r)
		}
		detail, err := svc.GetBySlug(r.Context(), slug, viewer, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// visitorKey reads the anonymous visitor id from the header or cookie and
// issues a fresh cookie when neither is present.
func visitorKey(w http.ResponseWriter, r *http.Request) string {
	if key := validators.CleanToken(r.Header.Get(visitorHeader), maxVisitorKeyLen); key != "" {
		return key
	}
	if cookie, err := r.Cookie(visitorCookie); err == nil {
		if key := validators.CleanToken(cookie.Value, maxVisitorKeyLen); key != "" {
			return key
		}
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    key,
		Path:     "/",
		MaxAge:   int(visitorCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func CommunityUpdate(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("community service"))
			return
		}
		userID, slug, err := actorAndSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body communities.UpdateCommunityInput
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		community, err := svc.Update(r.Context(), userID, slug, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, community)
	}
}

func CommunityJoin(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("community service"))
			return
		}
		userID, slug, err := actorAndSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		member, err := svc.Join(r.Context(), userID, slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, member)
	}
}

func CommunityLeave(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("community service"))
			return
		}
		userID, slug, err := actorAndSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Leave(r.Context(), userID, slug); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "left"})
	}
}

func CommunityMembers(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("community service"))
			return
		}
		slug, err := validators.SlugParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMembers(r.Context(), viewerID(r), slug, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func CommunityMemberUpdate(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("community service"))
			return
		}
		userID, slug, err := actorAndSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		memberID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body communities.MemberRoleRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateMemberRole(r.Context(), userID, slug, memberID, body.Role); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user_id": memberID, "role": body.Role})
	}
}

func CommunityMemberRemove(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("community service"))
			return
		}
		userID, slug, err := actorAndSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		memberID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveMember(r.Context(), userID, slug, memberID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func CommunityInvite(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("community service"))
			return
		}
		userID, slug, err := actorAndSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body communities.InviteInput
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invite, err := svc.Invite(r.Context(), userID, slug, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invite)
	}
}

func InviteAccept(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("community service"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "token is required"))
			return
		}
		member, err := svc.AcceptInvite(r.Context(), userID, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, member)
	}
}

// CommunityDashboard reports organizer analytics for the last ?days= days.
func CommunityDashboard(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("dashboard service"))
			return
		}
		userID, slug, err := actorAndSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		days, err := validators.ParseQueryInt(r, "days", dashboard.DefaultDays, 1, dashboard.MaxDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.CommunityStats(r.Context(), userID, slug, days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func actorAndSlug(r *http.Request) (uuid.UUID, string, error) {
	userID, err := actorID(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	slug, err := validators.SlugParam(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	return userID, slug, nil
}
