package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/internal/registrations"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

type stubRegistrationService struct {
	registrations.Service
	registerInput *registrations.RegisterInput
	statusInput   *registrations.UpdateStatusInput
	listFilter    *registrations.ListFilter
	listParams    pagination.Params
	verifyInput   *registrations.VerifyInput
	verifyResult  *registrations.VerifyResult
	err           error
}

func (s *stubRegistrationService) Register(_ context.Context, input registrations.RegisterInput) (*registrations.RegisterResult, error) {
	s.registerInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return &registrations.RegisterResult{RequiresVerification: input.UserID == nil}, nil
}

func (s *stubRegistrationService) UpdateStatus(_ context.Context, input registrations.UpdateStatusInput) (*registrations.RegistrationDTO, error) {
	s.statusInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return &registrations.RegistrationDTO{ID: input.RegistrationID, ApprovalStatus: &input.Status}, nil
}

func (s *stubRegistrationService) List(_ context.Context, _, _ uuid.UUID, filter registrations.ListFilter, params pagination.Params) (*registrations.RegistrationPage, error) {
	s.listFilter = &filter
	s.listParams = params
	return &registrations.RegistrationPage{}, s.err
}

func (s *stubRegistrationService) Verify(_ context.Context, input registrations.VerifyInput) (*registrations.VerifyResult, error) {
	s.verifyInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.verifyResult, nil
}

func (s *stubRegistrationService) Cancel(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error {
	return s.err
}

func TestRegistrationCreateMapsBody(t *testing.T) {
	svc := &stubRegistrationService{}
	eventID := uuid.New()
	resp := serve(RegistrationCreate(svc, nil), testRequest{
		method: http.MethodPost,
		path:   "/api/v1/events/" + eventID.String() + "/registrations",
		body:   `{"name":"Guest","email":"guest@example.com","phone":"+994501234567","answers":{"q1":"yes"}}`,
		params: map[string]string{"eventID": eventID.String()},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	in := svc.registerInput
	if in.EventID != eventID || in.UserID != nil || in.Name != "Guest" || in.Email != "guest@example.com" || in.Phone != "+994501234567" {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.Answers["q1"] != "yes" {
		t.Fatalf("expected answers to pass through, got %v", in.Answers)
	}
}

func TestRegistrationCreateRejectsBadInput(t *testing.T) {
	svc := &stubRegistrationService{}
	resp := serve(RegistrationCreate(svc, nil), testRequest{
		method: http.MethodPost,
		body:   `{"name":"Guest"}`,
		params: map[string]string{"eventID": "not-a-uuid"},
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = serve(RegistrationCreate(svc, nil), testRequest{
		method: http.MethodPost,
		body:   `{"email":"not-an-email"}`,
		params: map[string]string{"eventID": uuid.NewString()},
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.registerInput != nil {
		t.Fatal("service must not run on invalid input")
	}
}

func TestRegistrationCreateSurfacesConflict(t *testing.T) {
	svc := &stubRegistrationService{err: pkgerrors.New(pkgerrors.CodeConflict, "you are already registered for this event")}
	userID := uuid.New()
	resp := serve(RegistrationCreate(svc, nil), testRequest{
		method: http.MethodPost,
		body:   `{}`,
		params: map[string]string{"eventID": uuid.NewString()},
		userID: &userID,
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if svc.registerInput.UserID == nil || *svc.registerInput.UserID != userID {
		t.Fatal("expected the authenticated user on the input")
	}
}

func TestRegistrationStatus(t *testing.T) {
	svc := &stubRegistrationService{}
	actor := uuid.New()
	eventID := uuid.New()
	regID := uuid.New()

	resp := serve(RegistrationStatus(svc, nil), testRequest{
		method: http.MethodPost,
		body:   `{"registrationId":"` + regID.String() + `","status":"approved"}`,
		params: map[string]string{"eventID": eventID.String()},
		userID: &actor,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	want := registrations.UpdateStatusInput{ActorID: actor, EventID: eventID, RegistrationID: regID, Status: enums.ApprovalStatusApproved}
	if *svc.statusInput != want {
		t.Fatalf("expected %+v got %+v", want, *svc.statusInput)
	}

	resp = serve(RegistrationStatus(svc, nil), testRequest{
		method: http.MethodPost,
		body:   `{"registrationId":"` + regID.String() + `","status":"approved"}`,
		params: map[string]string{"eventID": eventID.String()},
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a user got %d", resp.Code)
	}
}

func TestRegistrationListFilters(t *testing.T) {
	svc := &stubRegistrationService{}
	actor := uuid.New()
	resp := serve(RegistrationList(svc, nil), testRequest{
		method: http.MethodGet,
		path:   "/?approval_status=pending&verified=true&limit=10&cursor=abc",
		params: map[string]string{"eventID": uuid.NewString()},
		userID: &actor,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.listFilter.ApprovalStatus == nil || *svc.listFilter.ApprovalStatus != enums.ApprovalStatusPending || !svc.listFilter.VerifiedOnly {
		t.Fatalf("unexpected filter %+v", svc.listFilter)
	}
	if svc.listParams.Limit != 10 || svc.listParams.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.listParams)
	}

	resp = serve(RegistrationList(svc, nil), testRequest{
		method: http.MethodGet,
		path:   "/?approval_status=maybe",
		params: map[string]string{"eventID": uuid.NewString()},
		userID: &actor,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRegistrationDelete(t *testing.T) {
	actor := uuid.New()
	req := testRequest{
		method: http.MethodDelete,
		params: map[string]string{"eventID": uuid.NewString(), "registrationID": uuid.NewString()},
		userID: &actor,
	}
	if resp := serve(RegistrationDelete(&stubRegistrationService{}, nil), req); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	forbidden := &stubRegistrationService{err: pkgerrors.New(pkgerrors.CodeForbidden, "not allowed")}
	if resp := serve(RegistrationDelete(forbidden, nil), req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestVerifyRegistration(t *testing.T) {
	eventID := uuid.New()
	params := map[string]string{"slug": "gophers", "eventID": eventID.String()}

	svc := &stubRegistrationService{verifyResult: &registrations.VerifyResult{Outcome: registrations.OutcomeSuccess}}
	resp := serve(VerifyRegistration(svc, "https://luhive.test/", nil), testRequest{
		method: http.MethodGet,
		path:   "/c/gophers/events/" + eventID.String() + "/verify?token=tok-1",
		params: params,
	})
	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", resp.Code)
	}
	want := "https://luhive.test/c/gophers/events/" + eventID.String() + "?verified=success"
	if got := resp.Header().Get("Location"); got != want {
		t.Fatalf("expected %s got %s", want, got)
	}
	if svc.verifyInput.Token != "tok-1" || svc.verifyInput.EventID != eventID {
		t.Fatalf("unexpected verify input %+v", svc.verifyInput)
	}

	expired := &stubRegistrationService{err: pkgerrors.New(pkgerrors.CodeValidation, "verification link expired")}
	resp = serve(VerifyRegistration(expired, "https://luhive.test", nil), testRequest{
		method: http.MethodGet,
		path:   "/c/gophers/events/" + eventID.String() + "/verify?token=old",
		params: params,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code got %s", code)
	}
}
