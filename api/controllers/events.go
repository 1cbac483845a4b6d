package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/api/responses"
	"github.com/luhive/luhive-backend/api/validators"
	"github.com/luhive/luhive-backend/internal/events"
	"github.com/luhive/luhive-backend/pkg/logger"
)

// EventList pages through a community's events. Drafts are only listed for organizers.
func EventList(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("event service"))
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
		page, err := svc.ListByCommunity(r.Context(), viewerID(r), slug, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func EventCreate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("event service"))
			return
		}
		userID, slug, err := actorAndSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body events.CreateEventInput
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, err := svc.Create(r.Context(), userID, slug, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}

func EventGet(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("event service"))
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, err := svc.Get(r.Context(), viewerID(r), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

func EventUpdate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("event service"))
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
		var body events.UpdateEventInput
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, err := svc.Update(r.Context(), userID, eventID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

// EventPublish flips an event to published and triggers the new-event broadcast.
func EventPublish(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return eventTransition(logg, svc, func(r *http.Request, userID, eventID uuid.UUID) (*events.EventDTO, error) {
		return svc.Publish(r.Context(), userID, eventID)
	})
}

func EventUnpublish(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return eventTransition(logg, svc, func(r *http.Request, userID, eventID uuid.UUID) (*events.EventDTO, error) {
		return svc.Unpublish(r.Context(), userID, eventID)
	})
}

type eventAction func(r *http.Request, userID, eventID uuid.UUID) (*events.EventDTO, error)

func eventTransition(logg *logger.Logger, svc events.Service, action eventAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("event service"))
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
		event, err := action(r, userID, eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}
