package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/internal/profiles"
	pkgAuth "github.com/luhive/luhive-backend/pkg/auth"
	"github.com/luhive/luhive-backend/pkg/auth/session"
	"github.com/luhive/luhive-backend/pkg/config"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "luhive",
	ExpirationMinutes: 30,
}

var testPassword = config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1}

func TestServiceLoginIssuesTokens(t *testing.T) {
	password := "organizer-secret"
	profile := &models.Profile{
		ID:           uuid.New(),
		Email:        "org@example.com",
		PasswordHash: mustHashPassword(t, password),
		FullName:     "Org",
		SystemRole:   strPtr("Admin"),
	}

	svc, sessions := buildTestService(t, &stubProfileRepo{profile: profile})

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ORG@example.com", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.SystemRole != enums.SystemRoleAdmin {
		t.Fatalf("expected admin role claim, got %s", claims.SystemRole)
	}
	if claims.UserID != profile.ID {
		t.Fatalf("unexpected user id %s", claims.UserID)
	}
	if resp.RefreshToken != "refresh-token" {
		t.Fatalf("expected refresh token to be set")
	}
	if sessions.generated != claims.ID {
		t.Fatalf("session keyed by %q, jti %q", sessions.generated, claims.ID)
	}
	if sessions.openedFor != profile.ID {
		t.Fatalf("session opened for %s, want %s", sessions.openedFor, profile.ID)
	}
	if profile.LastLoginAt == nil {
		t.Fatal("expected last login to be recorded")
	}
}

func TestServiceLoginRejectsBadPassword(t *testing.T) {
	profile := &models.Profile{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: mustHashPassword(t, "right"),
	}
	svc, _ := buildTestService(t, &stubProfileRepo{profile: profile})

	_, err := svc.Login(context.Background(), LoginRequest{Email: profile.Email, Password: "wrong"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "missing@example.com", Password: "wrong"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestServiceLoginUpgradesOutdatedHash(t *testing.T) {
	weaker := testPassword
	weaker.ArgonMemoryKB = 512
	old, err := security.NewHasher(weaker).Hash("pw-upgrade")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubProfileRepo{profile: &models.Profile{ID: uuid.New(), Email: "old@example.com", PasswordHash: old}}
	svc, _ := buildTestService(t, repo)

	if _, err := svc.Login(context.Background(), LoginRequest{Email: "old@example.com", Password: "pw-upgrade"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if repo.rehashed == "" || repo.rehashed == old {
		t.Fatalf("expected a fresh hash to be stored, got %q", repo.rehashed)
	}
	match, rehash, err := security.NewHasher(testPassword).Verify("pw-upgrade", repo.rehashed)
	if err != nil || !match || rehash {
		t.Fatalf("upgraded hash: match=%v rehash=%v err=%v", match, rehash, err)
	}
}

func TestServiceRegisterCreatesProfile(t *testing.T) {
	repo := &stubProfileRepo{}
	svc, _ := buildTestService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		FullName: "Grace Hopper",
		Email:    " Grace@Example.com",
		Password: "long-enough",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if repo.created == nil || repo.created.Email != "grace@example.com" {
		t.Fatalf("expected lowercased email persisted, got %+v", repo.created)
	}
	ok, _, err := security.NewHasher(testPassword).Verify("long-enough", repo.created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash should verify: ok=%v err=%v", ok, err)
	}
	if resp.User == nil || resp.User.Email != "grace@example.com" {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}

	_, err = svc.Register(context.Background(), RegisterRequest{
		FullName: "Grace Again",
		Email:    "grace@example.com",
		Password: "long-enough",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestServiceRegisterRejectsUnknownTimezone(t *testing.T) {
	svc, _ := buildTestService(t, &stubProfileRepo{})
	_, err := svc.Register(context.Background(), RegisterRequest{
		FullName: "Tz",
		Email:    "tz@example.com",
		Password: "long-enough",
		Timezone: "Nowhere/Special",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	svc, sessions := buildTestService(t, &stubProfileRepo{})
	userID := uuid.New()
	expired, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID:     userID,
		SystemRole: enums.SystemRoleUser,
		JTI:        "old-access",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: expired, RefreshToken: "refresh-token"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if sessions.rotatedFrom != "old-access" {
		t.Fatalf("expected rotation from old-access, got %q", sessions.rotatedFrom)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	if err != nil {
		t.Fatalf("new token should be valid: %v", err)
	}
	if claims.UserID != userID || claims.ID != "new-access" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{AccessToken: expired, RefreshToken: "stolen"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad refresh token, got %v", err)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	svc, sessions := buildTestService(t, &stubProfileRepo{})
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:     uuid.New(),
		SystemRole: enums.SystemRoleUser,
		JTI:        "access-1",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sessions.revoked != "access-1" {
		t.Fatalf("expected access-1 revoked, got %q", sessions.revoked)
	}
	if err := svc.Logout(context.Background(), "garbage"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for garbage token, got %v", err)
	}
}

func buildTestService(t *testing.T, repo *stubProfileRepo) (Service, *stubSessionManager) {
	t.Helper()
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		ProfileRepo:    repo,
		SessionManager: sessionMgr,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessionMgr
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.NewHasher(testPassword).Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func strPtr(value string) *string {
	return &value
}

type stubProfileRepo struct {
	profile  *models.Profile
	created  *models.Profile
	rehashed string
}

func (s *stubProfileRepo) Create(_ context.Context, dto profiles.CreateProfileDTO) (*models.Profile, error) {
	p := dto.ToModel()
	p.ID = uuid.New()
	s.created = p
	s.profile = p
	return p, nil
}

func (s *stubProfileRepo) FindByEmail(_ context.Context, email string) (*models.Profile, error) {
	if s.profile == nil || s.profile.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.profile, nil
}

func (s *stubProfileRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if s.profile != nil && s.profile.ID == id {
		s.profile.LastLoginAt = &at
	}
	return nil
}

func (s *stubProfileRepo) UpdatePasswordHash(_ context.Context, _ uuid.UUID, hash string) error {
	s.rehashed = hash
	return nil
}

type stubSessionManager struct {
	refreshToken string
	generated    string
	openedFor    uuid.UUID
	rotatedFrom  string
	revoked      string
}

func (s *stubSessionManager) Open(_ context.Context, userID uuid.UUID, accessID string) (string, error) {
	s.generated = accessID
	s.openedFor = userID
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	if provided != s.refreshToken || userID == uuid.Nil {
		return "", "", session.ErrInvalidRefreshToken
	}
	s.rotatedFrom = oldAccessID
	return "new-access", "refresh-2", nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = accessID
	return nil
}
