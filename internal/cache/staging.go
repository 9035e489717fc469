package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StagingStore keeps in-progress booking sessions under staging:<kind>:<actor>:<token>.
// Expiry is left to Redis.
type StagingStore struct {
	client *redis.Client
}

func NewStagingStore(client *redis.Client) *StagingStore {
	return &StagingStore{client: client}
}

// Save stores session under a freshly minted token.
func (s *StagingStore) Save(ctx context.Context, ns domain.Namespace, session *domain.StagingSession, ttl time.Duration) (string, error) {
	if !ns.Valid() {
		return "", domain.Validationf("invalid staging namespace")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("encode staging session: %w", err)
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, stagingKey(ns, token), payload, ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Put overwrites an existing session and resets its TTL. A session that has
// already expired is not recreated.
func (s *StagingStore) Put(ctx context.Context, ns domain.Namespace, token string, session *domain.StagingSession, ttl time.Duration) error {
	if !ns.Valid() || !validToken(token) {
		return domain.ErrSessionNotFound
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode staging session: %w", err)
	}
	ok, err := s.client.SetXX(ctx, stagingKey(ns, token), payload, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Get returns nil, nil when the session is unknown or expired.
func (s *StagingStore) Get(ctx context.Context, ns domain.Namespace, token string) (*domain.StagingSession, error) {
	if !ns.Valid() || !validToken(token) {
		return nil, nil
	}
	data, err := s.client.Get(ctx, stagingKey(ns, token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var session domain.StagingSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode staging session: %w", err)
	}
	return &session, nil
}

func (s *StagingStore) Delete(ctx context.Context, ns domain.Namespace, token string) error {
	if !ns.Valid() || !validToken(token) {
		return nil
	}
	return s.client.Del(ctx, stagingKey(ns, token)).Err()
}

// validToken accepts only canonical uuids, the form Save mints. Tokens never
// contain the key separator.
func validToken(token string) bool {
	id, err := uuid.Parse(token)
	return err == nil && id.String() == token
}

func stagingKey(ns domain.Namespace, token string) string {
	return fmt.Sprintf("staging:%s:%s:%s", ns.Kind, ns.ID, token)
}
