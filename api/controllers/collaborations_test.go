package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/internal/collaborations"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

type stubCollaborationService struct {
	invite *collaborations.InviteRequest
	accept *bool
	viewer *uuid.UUID
	err    error
}

func (s *stubCollaborationService) Invite(_ context.Context, _ uuid.UUID, eventID uuid.UUID, input collaborations.InviteRequest) (*collaborations.CollaborationDTO, error) {
	s.invite = &input
	if s.err != nil {
		return nil, s.err
	}
	return &collaborations.CollaborationDTO{EventID: eventID}, nil
}

func (s *stubCollaborationService) Respond(_ context.Context, _ uuid.UUID, id uuid.UUID, accept bool) (*collaborations.CollaborationDTO, error) {
	s.accept = &accept
	if s.err != nil {
		return nil, s.err
	}
	return &collaborations.CollaborationDTO{ID: id}, nil
}

func (s *stubCollaborationService) List(_ context.Context, viewerID *uuid.UUID, _ uuid.UUID) ([]collaborations.CollaborationDTO, error) {
	s.viewer = viewerID
	return nil, s.err
}

func TestCollaborationInvite(t *testing.T) {
	svc := &stubCollaborationService{}
	actor := uuid.New()
	resp := serve(CollaborationInvite(svc, nil), testRequest{
		method: http.MethodPost,
		body:   `{"community_slug":"rustaceans"}`,
		params: map[string]string{"eventID": uuid.NewString()},
		userID: &actor,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.invite.CommunitySlug != "rustaceans" {
		t.Fatalf("unexpected invite %+v", svc.invite)
	}

	svc.err = pkgerrors.New(pkgerrors.CodeConflict, "already invited")
	resp = serve(CollaborationInvite(svc, nil), testRequest{
		method: http.MethodPost,
		body:   `{"community_slug":"rustaceans"}`,
		params: map[string]string{"eventID": uuid.NewString()},
		userID: &actor,
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestCollaborationRespondAndList(t *testing.T) {
	svc := &stubCollaborationService{}
	actor := uuid.New()
	resp := serve(CollaborationRespond(svc, nil), testRequest{
		method: http.MethodPost,
		body:   `{"accept":true}`,
		params: map[string]string{"collaborationID": uuid.NewString()},
		userID: &actor,
	})
	if resp.Code != http.StatusOK || svc.accept == nil || !*svc.accept {
		t.Fatalf("expected accepted response, got %d", resp.Code)
	}

	resp = serve(CollaborationList(svc, nil), testRequest{method: http.MethodGet, params: map[string]string{"eventID": uuid.NewString()}})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.viewer != nil {
		t.Fatal("anonymous list must not carry a viewer")
	}
}
