package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/repository"
	"gorm.io/datatypes"
)

// IdempotencyGuard replays stored payment-creation responses per
// (key, merchant) for IdempotencyTTL.
type IdempotencyGuard struct {
	repo repository.IdempotencyRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewIdempotencyGuard(repo repository.IdempotencyRepository) *IdempotencyGuard {
	return &IdempotencyGuard{repo: repo, ttl: models.IdempotencyTTL, now: time.Now}
}

// Lookup returns the stored response for an unexpired key. An expired
// entry for the same key is deleted. An empty key never matches.
func (g *IdempotencyGuard) Lookup(ctx context.Context, merchantID, key string) (json.RawMessage, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	now := g.now()
	record, err := g.repo.FindActive(ctx, key, merchantID, now)
	if err == nil {
		return json.RawMessage(record.Response), true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	if err := g.repo.DeleteExpired(ctx, key, merchantID, now); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// Store saves the exact response bytes under key, replacing any entry.
func (g *IdempotencyGuard) Store(ctx context.Context, merchantID, key string, response json.RawMessage) error {
	if key == "" {
		return nil
	}
	return g.repo.Upsert(ctx, &models.IdempotencyKey{
		Key:        key,
		MerchantID: merchantID,
		Response:   datatypes.JSON(response),
		ExpiresAt:  g.now().Add(g.ttl),
	})
}
