package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	kindSession  = "session"
	kindRemember = "remember"
)

var errInvalidToken = errors.New("invalid token")

// claims carry either a session id (ID) or, for remember-me tokens, a user id (Subject).
type claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// signer signs and verifies cookie values with HS256.
type signer struct {
	secret []byte
	now    func() time.Time
}

func (s signer) sign(c claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

func (s signer) parse(raw, kind string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if c.Kind != kind {
		return nil, fmt.Errorf("%w: unexpected kind %q", errInvalidToken, c.Kind)
	}
	return &c, nil
}

func (s signer) sessionToken(sess *Session) (string, error) {
	return s.sign(claims{
		Kind: kindSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
}

func (s signer) sessionID(raw string) (string, error) {
	c, err := s.parse(raw, kindSession)
	if err != nil {
		return "", err
	}
	if c.ID == "" {
		return "", fmt.Errorf("%w: missing session id", errInvalidToken)
	}
	return c.ID, nil
}

func (s signer) rememberToken(userID int64, expires time.Time) (string, error) {
	return s.sign(claims{
		Kind: kindRemember,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
}

func (s signer) rememberedUser(raw string) (int64, error) {
	c, err := s.parse(raw, kindRemember)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", errInvalidToken, c.Subject)
	}
	return id, nil
}
