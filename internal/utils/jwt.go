package utils // package utils provides helpers for codes, passwords and operator tokens

import (
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp.  Operator tokens are short-lived and sent in the
// Authorization header when calling the admin endpoints.
type AccessToken struct {
	Token string    `json:"access_token"` // the serialized JWT string
	Exp   time.Time `json:"expires_at"`   // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for an operator.  It takes
// the signing secret, the subject, the role, and a TTL in minutes.  The
// JWT includes the standard claims sub, role, exp and iat.
func NewAccessToken(secret, subject, role string, ttlMin int) (AccessToken, error) {
	// Calculate the expiration time by adding the TTL to the current UTC time.
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	// Create the token with HS256 and sign it with the shared secret.
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
