package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/infrastructure/database"
)

var logColumns = []string{"id", "endpoint", "method", "request_body", "response_body", "status_code", "duration_ms", "session_id", "created_at"}

func newRepo(t *testing.T) (APILogRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAPILogRepository(database.New(db, zap.NewNop()), zap.NewNop()), mock
}

func TestAPILogRepository_Save(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO api_logs")).
		WithArgs("http://backend/contratos/upload", "POST", "{files: []}", `{"message":"ok"}`, 200, int64(15), "s-1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Save(context.Background(), &entity.APILog{
		Endpoint:     "http://backend/contratos/upload",
		Method:       "POST",
		RequestBody:  "{files: []}",
		ResponseBody: `{"message":"ok"}`,
		StatusCode:   200,
		Duration:     15,
		SessionID:    "s-1",
		CreatedAt:    now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPILogRepository_SaveError(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO api_logs")).
		WillReturnError(errors.New("connection reset"))

	err := repo.Save(context.Background(), &entity.APILog{Endpoint: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save API log")
}

func TestAPILogRepository_FindAll(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows(logColumns).
		AddRow(2, "http://backend/contratos/upload", "POST", "", "", 500, 20, "s-2", now).
		AddRow(1, "http://backend/contratos/upload", "POST", "", "", 200, 10, "s-1", now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM api_logs ORDER BY created_at DESC LIMIT $1")).
		WithArgs(50).
		WillReturnRows(rows)

	logs, err := repo.FindAll(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(2), logs[0].ID)
	assert.Equal(t, 500, logs[0].StatusCode)
	assert.Equal(t, "s-1", logs[1].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPILogRepository_FindBySession(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE session_id = $1")).
		WithArgs("s-9").
		WillReturnRows(sqlmock.NewRows(logColumns))

	logs, err := repo.FindBySession(context.Background(), "s-9")
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.NotNil(t, logs)
}

func TestAPILogRepository_FindByEndpoint(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE endpoint ILIKE $1")).
		WithArgs("%extract%", 10).
		WillReturnError(errors.New("timeout"))

	_, err := repo.FindByEndpoint(context.Background(), "extract", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query API logs")
}
