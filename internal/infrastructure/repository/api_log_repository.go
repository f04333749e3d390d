package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/infrastructure/database"
)

// APILogRepository interface for API log operations
type APILogRepository interface {
	Save(ctx context.Context, log *entity.APILog) error
	FindAll(ctx context.Context, limit int) ([]entity.APILog, error)
	FindBySession(ctx context.Context, sessionID string) ([]entity.APILog, error)
	FindByEndpoint(ctx context.Context, endpoint string, limit int) ([]entity.APILog, error)
}

type apiLogRepository struct {
	db     *database.Database
	logger *zap.Logger
}

// NewAPILogRepository creates a new API log repository
func NewAPILogRepository(db *database.Database, logger *zap.Logger) APILogRepository {
	return &apiLogRepository{
		db:     db,
		logger: logger,
	}
}

const selectAPILogColumns = `SELECT id, endpoint, method, request_body, response_body, status_code, duration_ms, session_id, created_at FROM api_logs`

// Save saves an API log entry to the database
func (r *apiLogRepository) Save(ctx context.Context, log *entity.APILog) error {
	query := `
		INSERT INTO api_logs (endpoint, method, request_body, response_body, status_code, duration_ms, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		log.Endpoint,
		log.Method,
		log.RequestBody,
		log.ResponseBody,
		log.StatusCode,
		log.Duration,
		log.SessionID,
		log.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to save API log",
			zap.String("endpoint", log.Endpoint),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save API log: %w", err)
	}

	return nil
}

// FindAll returns the most recent logs
func (r *apiLogRepository) FindAll(ctx context.Context, limit int) ([]entity.APILog, error) {
	query := selectAPILogColumns + ` ORDER BY created_at DESC LIMIT $1`
	return r.query(ctx, query, limit)
}

// FindBySession returns every log recorded for a signing session
func (r *apiLogRepository) FindBySession(ctx context.Context, sessionID string) ([]entity.APILog, error) {
	query := selectAPILogColumns + ` WHERE session_id = $1 ORDER BY created_at DESC`
	return r.query(ctx, query, sessionID)
}

// FindByEndpoint returns logs whose endpoint contains the given text
func (r *apiLogRepository) FindByEndpoint(ctx context.Context, endpoint string, limit int) ([]entity.APILog, error) {
	query := selectAPILogColumns + ` WHERE endpoint ILIKE $1 ORDER BY created_at DESC LIMIT $2`
	return r.query(ctx, query, "%"+endpoint+"%", limit)
}

func (r *apiLogRepository) query(ctx context.Context, query string, args ...interface{}) ([]entity.APILog, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query API logs: %w", err)
	}
	defer rows.Close()

	logs := make([]entity.APILog, 0)
	for rows.Next() {
		var log entity.APILog
		if err := rows.Scan(
			&log.ID,
			&log.Endpoint,
			&log.Method,
			&log.RequestBody,
			&log.ResponseBody,
			&log.StatusCode,
			&log.Duration,
			&log.SessionID,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan API log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate API logs: %w", err)
	}

	return logs, nil
}
