// Package auth resolves who is driving a booking session.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid bearer token")

// UserFromBearer extracts the user_id claim of an HS256 "Bearer <jwt>" header.
// ok is false when the header carries no bearer token at all.
func UserFromBearer(header string, secret []byte) (userID string, ok bool, err error) {
	raw, found := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !found || strings.TrimSpace(raw) == "" {
		return "", false, nil
	}
	if len(secret) == 0 {
		return "", true, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch v := claims["user_id"].(type) {
	case string:
		if v != "" {
			return v, true, nil
		}
	case float64:
		return strconv.FormatInt(int64(v), 10), true, nil
	}
	return "", true, fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
}

// IssueToken signs a user token, used by tooling and tests.
func IssueToken(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

func UserNamespace(userID string) domain.Namespace {
	return domain.Namespace{Kind: domain.ActorUser, ID: userID}
}

// AnonymousNamespace accepts only well-formed session ids.
func AnonymousNamespace(sessionID string) (domain.Namespace, bool) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return domain.Namespace{}, false
	}
	return domain.Namespace{Kind: domain.ActorAnonymous, ID: id.String()}, true
}

func NewSessionID() string {
	return uuid.NewString()
}
