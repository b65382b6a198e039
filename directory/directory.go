// Package directory is a read-through cache over the external employee
// directory. This core only consumes it to enrich notifications with actor
// names; writes and account management stay with the directory service.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// User is the slice of a directory record this service needs.
type User struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Source fetches directory records from the upstream service.
type Source interface {
	FetchUsers(ctx context.Context, ids []int) ([]User, error)
}

// KV is the cache the read-through path goes over. RedisKV is the production
// implementation.
type KV interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// RedisKV adapts go-redis to the KV interface. Cache failures are treated as
// misses; the directory stays reachable without Redis.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("directory cache read failed", "key", key, "err", err)
		}
		return "", false
	}
	return val, true
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Warn("directory cache write failed", "key", key, "err", err)
	}
}

// HTTPSource calls the directory service's batch lookup endpoint:
// GET {base}/users?ids=1,2,3 -> [{"id":1,"name":"..."}].
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *HTTPSource) FetchUsers(ctx context.Context, ids []int) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	endpoint := s.baseURL + "/users?ids=" + url.QueryEscape(strings.Join(parts, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("directory lookup returned %d: %s", resp.StatusCode, body)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, err
	}
	return users, nil
}

const cacheTTL = 10 * time.Minute

// Service is the read-through cache. Lookups hit the cache per user id,
// batch the misses to the source and cache what comes back. A source failure
// degrades to whatever the cache had; it never fails the caller.
type Service struct {
	source Source
	cache  KV
}

func NewService(source Source, cache KV) *Service {
	return &Service{source: source, cache: cache}
}

func cacheKey(id int) string { return "directory:user:" + strconv.Itoa(id) }

// Users returns directory records for the given ids, keyed by id. Missing or
// unresolvable users are simply absent from the map.
func (s *Service) Users(ctx context.Context, ids []int) map[int]User {
	found := make(map[int]User, len(ids))
	var misses []int
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		if s.cache != nil {
			if raw, ok := s.cache.Get(ctx, cacheKey(id)); ok {
				var u User
				if err := json.Unmarshal([]byte(raw), &u); err == nil {
					found[id] = u
					continue
				}
			}
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 || s.source == nil {
		return found
	}

	users, err := s.source.FetchUsers(ctx, misses)
	if err != nil {
		slog.Warn("directory lookup failed, serving cached names only", "err", err)
		return found
	}
	for _, u := range users {
		found[u.ID] = u
		if s.cache != nil {
			if raw, err := json.Marshal(u); err == nil {
				s.cache.Set(ctx, cacheKey(u.ID), string(raw), cacheTTL)
			}
		}
	}
	return found
}
