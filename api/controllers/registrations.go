package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/luhive/luhive-backend/api/responses"
	"github.com/luhive/luhive-backend/api/validators"
	"github.com/luhive/luhive-backend/internal/registrations"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
)

// RegistrationCreate registers the caller, or an anonymous guest, for an event.
func RegistrationCreate(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body registrations.RegisterRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Register(r.Context(), registrations.RegisterInput{
			EventID: eventID,
			UserID:  viewerID(r),
			Name:    deref(body.Name),
			Email:   deref(body.Email),
			Phone:   deref(body.Phone),
			Answers: body.Answers,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RegistrationList pages organizer views of an event's registrations.
// Supports ?approval_status= and ?verified=true.
func RegistrationList(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
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
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := registrationFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), userID, eventID, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func registrationFilter(r *http.Request) (registrations.ListFilter, error) {
	var filter registrations.ListFilter
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("approval_status")); raw != "" {
		status, err := enums.ParseApprovalStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid approval_status")
		}
		filter.ApprovalStatus = &status
	}
	if raw := strings.TrimSpace(query.Get("verified")); raw != "" {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "verified must be a boolean")
		}
		filter.VerifiedOnly = verified
	}
	return filter, nil
}

// RegistrationStatus records an organizer's approval decision.
func RegistrationStatus(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
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
		var body registrations.UpdateStatusRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		registration, err := svc.UpdateStatus(r.Context(), registrations.UpdateStatusInput{
			ActorID:        userID,
			EventID:        eventID,
			RegistrationID: body.RegistrationID,
			Status:         body.Status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, registration)
	}
}

func RegistrationAttendance(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
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
		registrationID, err := validators.ParseUUIDParam(r, "registrationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body registrations.AttendanceRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		registration, err := svc.MarkAttendance(r.Context(), userID, eventID, registrationID, body.Attended)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, registration)
	}
}

func RegistrationDelete(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
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
		registrationID, err := validators.ParseUUIDParam(r, "registrationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Cancel(r.Context(), userID, eventID, registrationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// VerifyRegistration consumes an emailed verification link and sends the
// browser back to the event page with the outcome.
func VerifyRegistration(svc registrations.Service, baseURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
			return
		}
		slug, err := validators.SlugParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Verify(r.Context(), registrations.VerifyInput{
			Token:   r.URL.Query().Get("token"),
			EventID: eventID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := strings.TrimRight(baseURL, "/") + "/c/" + url.PathEscape(slug) + "/events/" + eventID.String() +
			"?verified=" + url.QueryEscape(string(result.Outcome))
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
