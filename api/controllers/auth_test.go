package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/luhive/luhive-backend/internal/auth"
	"github.com/luhive/luhive-backend/internal/profiles"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

type stubAuthService struct {
	refresh     *auth.RefreshRequest
	logoutToken string
	err         error
}

func (s *stubAuthService) Register(_ context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.LoginResponse{
		TokenPair: auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
		User:      &profiles.ProfileDTO{Email: req.Email, FullName: req.FullName},
	}, nil
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.LoginResponse{
		TokenPair: auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
		User:      &profiles.ProfileDTO{Email: req.Email},
	}, nil
}

func (s *stubAuthService) Refresh(_ context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
	s.refresh = &req
	if s.err != nil {
		return nil, s.err
	}
	return &auth.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (s *stubAuthService) Logout(_ context.Context, accessToken string) error {
	s.logoutToken = accessToken
	return s.err
}

func TestAuthRegisterSetsTokenHeader(t *testing.T) {
	resp := serve(AuthRegister(&stubAuthService{}, nil), testRequest{
		method: http.MethodPost,
		body:   `{"full_name":"Ada Lovelace","email":"ada@example.com","password":"correct-horse"}`,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get(accessTokenHeader); got != "access" {
		t.Fatalf("expected token header, got %q", got)
	}

	resp = serve(AuthRegister(&stubAuthService{}, nil), testRequest{
		method: http.MethodPost,
		body:   `{"full_name":"Ada","email":"ada@example.com","password":"short"}`,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a short password got %d", resp.Code)
	}
}

func TestAuthLoginFailure(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	resp := serve(AuthLogin(svc, nil), testRequest{
		method: http.MethodPost,
		body:   `{"email":"ada@example.com","password":"wrong"}`,
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if resp.Header().Get(accessTokenHeader) != "" {
		t.Fatal("no token header on failure")
	}
}

func TestAuthRefreshUsesBearerToken(t *testing.T) {
	svc := &stubAuthService{}
	req := testRequest{method: http.MethodPost, body: `{"refresh_token":"refresh"}`}.build()
	req.Header.Set("Authorization", "Bearer expired-access")
	resp := serveRequest(AuthRefresh(svc, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.refresh.AccessToken != "expired-access" || svc.refresh.RefreshToken != "refresh" {
		t.Fatalf("unexpected refresh input %+v", svc.refresh)
	}

	resp = serve(AuthRefresh(svc, nil), testRequest{method: http.MethodPost, body: `{"refresh_token":"refresh"}`})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer got %d", resp.Code)
	}
}

func TestAuthLogout(t *testing.T) {
	svc := &stubAuthService{}
	req := testRequest{method: http.MethodPost}.build()
	req.Header.Set("Authorization", "bearer tok")
	resp := serveRequest(AuthLogout(svc, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.logoutToken != "tok" {
		t.Fatalf("expected token tok got %q", svc.logoutToken)
	}
}
