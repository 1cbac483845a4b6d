package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/enums"
)

// AccessTokenPayload is what a caller knows when minting a token. JTI doubles
// as the session id; a fresh one is generated when blank.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Email      string
	SystemRole enums.SystemRole
	JTI        string
}

// AccessTokenClaims is the body of a Luhive access token. The subject always
// repeats the user id.
type AccessTokenClaims struct {
	UserID     uuid.UUID        `json:"uid"`
	Email      string           `json:"email,omitempty"`
	SystemRole enums.SystemRole `json:"role"`
	jwt.RegisteredClaims
}

var errMalformedClaims = errors.New("malformed access token claims")

// Validate runs after the registered-claim checks in strict parsing.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil || c.Subject != c.UserID.String() {
		return fmt.Errorf("%w: subject mismatch", errMalformedClaims)
	}
	if !c.SystemRole.IsValid() {
		return fmt.Errorf("%w: role %q", errMalformedClaims, c.SystemRole)
	}
	return nil
}
