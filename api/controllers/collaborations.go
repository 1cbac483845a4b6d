package controllers

import (
	"net/http"

	"github.com/luhive/luhive-backend/api/responses"
	"github.com/luhive/luhive-backend/api/validators"
	"github.com/luhive/luhive-backend/internal/collaborations"
	"github.com/luhive/luhive-backend/pkg/logger"
)

func CollaborationList(svc collaborations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("collaboration service"))
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), viewerID(r), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"collaborations": list})
	}
}

// CollaborationInvite asks another community to co-host the event.
func CollaborationInvite(svc collaborations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("collaboration service"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body collaborations.InviteRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		collab, err := svc.Invite(r.Context(), userID, eventID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, collab)
	}
}

func CollaborationRespond(svc collaborations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("collaboration service"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		collabID, err := validators.ParseUUIDParam(r, "collaborationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body collaborations.RespondRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		collab, err := svc.Respond(r.Context(), userID, collabID, body.Accept)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, collab)
	}
}
