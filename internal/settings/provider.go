package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// Key is the settings row holding the engine document.
	Key      = "engine"
	redisKey = "settings:" + Key
)

// Source is the slice of the store the provider reads and writes.
type Source interface {
	GetSetting(ctx context.Context, key string) ([]byte, error)
	UpsertSetting(ctx context.Context, arg repository.UpsertSettingParams) error
}

// Provider serves Settings from an in-process cache refreshed from Redis or
// Postgres once the TTL lapses. Update persists and invalidates both caches.
type Provider struct {
	source   Source
	redis    redis.Cmdable
	defaults Settings
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	current  *Settings
	loadedAt time.Time
}

func NewProvider(source Source, rdb redis.Cmdable, defaults Settings, ttl time.Duration) *Provider {
	return &Provider{
		source:   source,
		redis:    rdb,
		defaults: defaults,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached settings, refreshing them when stale.
func (p *Provider) Get(ctx context.Context) (Settings, error) {
	p.mu.RLock()
	if p.current != nil && (p.ttl <= 0 || p.now().Sub(p.loadedAt) < p.ttl) {
		s := p.current.clone()
		p.mu.RUnlock()
		return s, nil
	}
	p.mu.RUnlock()
	return p.Refresh(ctx)
}

// Refresh reloads settings, skipping the local cache.
func (p *Provider) Refresh(ctx context.Context) (Settings, error) {
	s, err := p.load(ctx)
	if err != nil {
		return Settings{}, err
	}
	cached := s.clone()
	p.mu.Lock()
	p.current = &cached
	p.loadedAt = p.now()
	p.mu.Unlock()
	return s, nil
}

// Update validates and persists s, then drops every cached copy.
func (p *Provider) Update(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := p.source.UpsertSetting(ctx, repository.UpsertSettingParams{Key: Key, Value: payload}); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	if p.redis != nil {
		if err := p.redis.Del(ctx, redisKey).Err(); err != nil {
			zap.L().Warn("redis settings invalidation failed", zap.Error(err))
		}
	}
	p.Invalidate()
	return nil
}

// Invalidate forces the next Get to reload.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}

func (p *Provider) load(ctx context.Context) (Settings, error) {
	if p.redis != nil {
		val, err := p.redis.Get(ctx, redisKey).Bytes()
		if err == nil {
			if s, derr := p.decode(val); derr == nil {
				return s, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis settings lookup failed", zap.Error(err))
		}
	}

	raw, err := p.source.GetSetting(ctx, Key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p.defaults.clone(), nil
		}
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	s, err := p.decode(raw)
	if err != nil {
		return Settings{}, err
	}
	if p.redis != nil && p.ttl > 0 {
		if err := p.redis.Set(ctx, redisKey, raw, p.ttl).Err(); err != nil {
			zap.L().Warn("redis settings cache set failed", zap.Error(err))
		}
	}
	return s, nil
}

// decode overlays the stored document on the defaults so new fields keep a value.
func (p *Provider) decode(raw []byte) (Settings, error) {
	s := p.defaults
	s.ROITiers = nil
	s.LevelCommission = nil
	s.TeamRewardTiers = nil
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if s.ROITiers == nil {
		s.ROITiers = p.defaults.ROITiers
	}
	if s.LevelCommission == nil {
		s.LevelCommission = p.defaults.LevelCommission
	}
	if s.TeamRewardTiers == nil {
		s.TeamRewardTiers = p.defaults.TeamRewardTiers
	}
	return s, nil
}

// clone copies s without sharing its tier tables.
func (s Settings) clone() Settings {
	s.ROITiers = slices.Clone(s.ROITiers)
	s.LevelCommission = slices.Clone(s.LevelCommission)
	s.TeamRewardTiers = slices.Clone(s.TeamRewardTiers)
	return s
}
