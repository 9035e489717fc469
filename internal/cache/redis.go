package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/itinerary-booking/config"
	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

// RedisCache holds the flight list cache and the advisory seat locks.
type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(client *redis.Client, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

var acquireScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
	return 1
end
if cur == ARGV[1] then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return 1
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// AcquireSeatLock takes the lock for owner, or refreshes it when owner already holds it.
func (c *RedisCache) AcquireSeatLock(ctx context.Context, flightID, seatID int64, owner string, ttl time.Duration) (bool, error) {
	res, err := acquireScript.Run(ctx, c.client, []string{seatLockKey(flightID, seatID)}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// ReleaseSeatLock drops the lock only if owner holds it.
func (c *RedisCache) ReleaseSeatLock(ctx context.Context, flightID, seatID int64, owner string) error {
	return releaseScript.Run(ctx, c.client, []string{seatLockKey(flightID, seatID)}, owner).Err()
}

// SeatLocks lists the live locks on a flight with their owners.
func (c *RedisCache) SeatLocks(ctx context.Context, flightID int64) ([]domain.SeatLock, error) {
	prefix := fmt.Sprintf("lock:flight:%d:seat:", flightID)
	var (
		cursor  uint64
		entries []domain.SeatLock
	)
	now := time.Now()
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			seatID, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
			if err != nil {
				continue
			}
			owner, err := c.client.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, err
			}
			ttl, err := c.client.PTTL(ctx, key).Result()
			if err != nil {
				return nil, err
			}
			entries = append(entries, domain.SeatLock{FlightID: flightID, SeatID: seatID, Owner: owner, HeldUntil: now.Add(ttl)})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return entries, nil
}

func flightsKey() string {
	return "cache:flights"
}

func seatLockKey(flightID, seatID int64) string {
	return fmt.Sprintf("lock:flight:%d:seat:%d", flightID, seatID)
}
