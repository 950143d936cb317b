package server

import (
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errNoVerifier           = errors.New("no jwt secret or jwks url configured")
)

const bearerPrefix = "Bearer "

// Authenticator resolves the subject of a request's Authorization header.
type Authenticator interface {
	SubjectFromAuthHeader(h string) (string, error)
}

// Auth validates bearer JWTs, either HS256 against a shared secret or RS256
// against a JWKS endpoint.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Secret   []byte
	Audience string

	parser *jwt.Parser
}

// NewAuth creates an Auth. A non-empty secret takes precedence over jwks.
func NewAuth(secret []byte, jwks *keyfunc.JWKS, audience string) (*Auth, error) {
	a := &Auth{JWKS: jwks, Secret: secret, Audience: audience}
	switch {
	case len(secret) > 0:
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	case jwks != nil:
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	default:
		return nil, errNoVerifier
	}
	return a, nil
}

// SubjectFromAuthHeader validates the bearer token in h and returns its
// "sub" claim.
func (a *Auth) SubjectFromAuthHeader(h string) (string, error) {
	token, err := bearerToken(h)
	if err != nil {
		return "", err
	}
	return a.SubjectFromToken(token)
}

// SubjectFromToken validates a raw JWT and returns its "sub" claim.
func (a *Auth) SubjectFromToken(raw string) (string, error) {
	parsed, err := a.parser.Parse(raw, a.keyFor)
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, true) {
		return "", errors.New("invalid audience")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

func (a *Auth) keyFor(t *jwt.Token) (any, error) {
	if len(a.Secret) > 0 {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.Secret, nil
	}
	return a.JWKS.Keyfunc(t)
}

// IssueToken signs an HS256 token for subject, valid for ttl.
func IssueToken(secret []byte, subject, audience string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errNoVerifier
	}
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if audience != "" {
		claims["aud"] = audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(h string) (string, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(h, bearerPrefix)
	if !ok || strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
