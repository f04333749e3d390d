package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"contrato-firma/internal/config"
	"contrato-firma/internal/domain/entity"
	domainrepo "contrato-firma/internal/domain/repository"
	"contrato-firma/internal/infrastructure/redis"
)

const outcomeKeyPrefix = "contrato:outcome:"

// keyValueStore is the subset of the redis client used for outcome snapshots
type keyValueStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type outcomeRepository struct {
	store  keyValueStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewOutcomeRepository creates a redis backed outcome repository
func NewOutcomeRepository(cfg *config.Config, redisClient *redis.RedisClient, logger *zap.Logger) domainrepo.OutcomeRepository {
	return newOutcomeRepository(redisClient, cfg.Session.OutcomeTTL, logger)
}

func newOutcomeRepository(store keyValueStore, ttl time.Duration, logger *zap.Logger) *outcomeRepository {
	return &outcomeRepository{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *outcomeRepository) Save(ctx context.Context, sessionID string, outcome entity.UploadOutcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	if err := r.store.Set(ctx, outcomeKeyPrefix+sessionID, data, r.ttl); err != nil {
		return fmt.Errorf("failed to store outcome: %w", err)
	}

	r.logger.Debug("Outcome stored",
		zap.String("session_id", sessionID),
		zap.String("state", string(outcome.State)),
		zap.Int("progress", outcome.Progress),
	)
	return nil
}

func (r *outcomeRepository) Find(ctx context.Context, sessionID string) (*entity.UploadOutcome, error) {
	raw, err := r.store.Get(ctx, outcomeKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil, domainrepo.ErrOutcomeNotFound
		}
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}

	var outcome entity.UploadOutcome
	if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcome: %w", err)
	}
	return &outcome, nil
}

func (r *outcomeRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.store.Del(ctx, outcomeKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("failed to delete outcome: %w", err)
	}
	return nil
}
