package tour

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// VisitorCookieName stores the signed anonymous visitor id.
	VisitorCookieName = "bp_tour_visitor"
	visitorIssuer     = "bitcoinpitch-tour"
	visitorTTL        = 365 * 24 * time.Hour
)

var errVisitorInvalid = errors.New("visitor token is invalid")

// visitors issues and verifies anonymous visitor tokens.
type visitors struct {
	secret []byte
	secure bool
	now    func() time.Time
}

func newVisitors(secret string, secure bool, now func() time.Time) (visitors, error) {
	if len(strings.TrimSpace(secret)) < 16 {
		return visitors{}, fmt.Errorf("visitor secret must be at least 16 characters")
	}
	if now == nil {
		now = time.Now
	}
	return visitors{secret: []byte(secret), secure: secure, now: now}, nil
}

// identify returns the visitor id carried by r, issuing a fresh one (and its
// cookie) when the cookie is missing or does not verify.
func (v visitors) identify(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(VisitorCookieName); err == nil {
		if id, err := v.verify(cookie.Value); err == nil {
			return id, nil
		}
	}

	id := uuid.NewString()
	token, err := v.sign(id)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(visitorTTL.Seconds()),
		HttpOnly: true,
		Secure:   v.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

func (v visitors) sign(id string) (string, error) {
	now := v.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    visitorIssuer,
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(visitorTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign visitor token: %w", err)
	}
	return token, nil
}

func (v visitors) verify(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errVisitorInvalid
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(visitorIssuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errVisitorInvalid, err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: subject: %v", errVisitorInvalid, err)
	}
	return claims.Subject, nil
}
