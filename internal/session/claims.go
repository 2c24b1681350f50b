package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of bearer token claims the client relies on.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// userIDClaims lists claim names the backend has used for the user id.
var userIDClaims = []string{"userId", "id", "_id"}

// ParseClaims reads claims from a JWT without verifying its signature; the
// client cannot verify it and only uses the values to avoid sending a token
// that has already expired. Opaque (non-JWT) tokens yield ok == false.
func ParseClaims(token string) (Claims, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, false
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, false
	}

	var c Claims
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if sub, err := mc.GetSubject(); err == nil && sub != "" {
		c.Subject = sub
	}
	if c.Subject == "" {
		for _, name := range userIDClaims {
			if v, ok := mc[name].(string); ok && v != "" {
				c.Subject = v
				break
			}
		}
	}
	return c, true
}
