package utils // helper functions for token creation and password hashing

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/lecturer-claims/internal/model"
)

// AccessToken is a signed HS256 JWT along with its expiry. The token
// carries the subject (user id), the account's role and email; the
// role drives route authorization and the email lets claim handlers
// scope queries to the calling lecturer without a user lookup.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user. Claims:
// sub (user id as UUID string), role, email, exp and iat.
func NewAccessToken(secret string, userID uuid.UUID, role model.Role, email string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"role":  string(role),
		"email": email,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
