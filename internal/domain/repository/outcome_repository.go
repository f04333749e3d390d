package repository

import (
	"context"
	"errors"

	"contrato-firma/internal/domain/entity"
)

// ErrOutcomeNotFound is returned when no snapshot exists for the session
var ErrOutcomeNotFound = errors.New("outcome not found")

// OutcomeRepository keeps the latest upload outcome of each signing session
// so other instances and pollers can read it.
type OutcomeRepository interface {
	Save(ctx context.Context, sessionID string, outcome entity.UploadOutcome) error
	Find(ctx context.Context, sessionID string) (*entity.UploadOutcome, error)
	Delete(ctx context.Context, sessionID string) error
}
