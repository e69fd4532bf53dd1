package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"casino/config"
	"casino/models"

	"github.com/coder/quartz"
)

type settingsService struct {
	uowFactory UnitOfWorkFactory
	clock      quartz.Clock
	ttl        time.Duration

	mu        sync.Mutex
	cache     map[string]string
	fetchedAt time.Time
}

// NewSettingsService creates a read-through cache over the settings table.
// Lookups within the TTL never touch the database.
func NewSettingsService(uowFactory UnitOfWorkFactory, clock quartz.Clock) SettingsService {
	return &settingsService{
		uowFactory: uowFactory,
		clock:      clock,
		ttl:        config.Get().SettingsCacheTTL,
	}
}

// Get returns a setting value and whether the key exists
func (s *settingsService) Get(ctx context.Context, key string) (string, bool, error) {
	cache, err := s.snapshot(ctx)
	if err != nil {
		return "", false, err
	}
	value, ok := cache[key]
	return value, ok, nil
}

// GameEnabled reports whether a game is switched on. Games with no setting
// row default to enabled.
func (s *settingsService) GameEnabled(ctx context.Context, game models.GameKind) (bool, error) {
	value, ok, err := s.Get(ctx, fmt.Sprintf("game.%s.enabled", game))
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return value != "false" && value != "0", nil
}

func (s *settingsService) snapshot(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && s.clock.Now().Sub(s.fetchedAt) < s.ttl {
		return s.cache, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.SettingsRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	cache := make(map[string]string, len(settings))
	for _, setting := range settings {
		cache[setting.Key] = setting.Value
	}
	s.cache = cache
	s.fetchedAt = s.clock.Now()
	return cache, nil
}
