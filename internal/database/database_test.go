package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/labmanager-service/internal/config"
)

func TestHealthCheckTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, HealthCheckTimeout)
}

func TestHealthStatus_JSON(t *testing.T) {
	t.Run("all fields populated", func(t *testing.T) {
		hs := HealthStatus{
			Status:        StatusUnhealthy,
			Error:         "connection refused",
			TotalConns:    4,
			AcquiredConns: 1,
			IdleConns:     3,
			MaxConns:      20,
		}

		data, err := json.Marshal(hs)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "unhealthy", decoded["status"])
		assert.Equal(t, "connection refused", decoded["error"])
		assert.Equal(t, float64(20), decoded["max_conns"])
	})

	t.Run("empty error field is omitted", func(t *testing.T) {
		data, err := json.Marshal(HealthStatus{Status: StatusHealthy})
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"error"`)
	})
}

func TestAcquireAdvisoryLockTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, AcquireAdvisoryLockTx(context.Background(), mock, 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE persons").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		tx, err := mock.Begin(ctx)
		require.NoError(t, err)

		err = runInTx(ctx, tx, zerolog.Nop(), func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "UPDATE persons SET email = ''")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		tx, err := mock.Begin(ctx)
		require.NoError(t, err)

		expectedErr := errors.New("intentional failure")
		err = runInTx(ctx, tx, zerolog.Nop(), func(pgx.Tx) error {
			return expectedErr
		})
		assert.Equal(t, expectedErr, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		tx, err := mock.Begin(ctx)
		require.NoError(t, err)

		assert.Panics(t, func() {
			_ = runInTx(ctx, tx, zerolog.Nop(), func(pgx.Tx) error {
				panic("intentional panic")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports commit failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		tx, err := mock.Begin(ctx)
		require.NoError(t, err)

		err = runInTx(ctx, tx, zerolog.Nop(), func(pgx.Tx) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
	})
}

func TestQueryTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := &queryTracer{logger: zerolog.New(&buf).Level(zerolog.TraceLevel)}

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "SELECT 1", logEntry["sql"])
	assert.Equal(t, "query executed", logEntry["message"])
	assert.Equal(t, "trace", logEntry["level"])
}

func TestQueryTracer_ErrorsLoggedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	tracer := &queryTracer{logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT broken"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("syntax error")})

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "debug", logEntry["level"])
	assert.Equal(t, "syntax error", logEntry["error"])
}

func TestNew_InvalidConfig(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Run("unreachable host returns error", func(t *testing.T) {
		// 192.0.2.1 is TEST-NET-1 (RFC 5737), guaranteed unroutable.
		cfg := &config.DatabaseConfig{
			Host:              "192.0.2.1",
			Port:              5432,
			Name:              "testdb",
			User:              "user",
			Password:          "pass",
			SSLMode:           config.SSLModeDisable,
			MaxConns:          5,
			MinConns:          0,
			MaxConnLifetime:   time.Hour,
			MaxConnIdleTime:   30 * time.Minute,
			HealthCheckPeriod: 30 * time.Second,
			ConnectTimeout:    2 * time.Second,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		db, err := New(ctx, cfg, zerolog.Nop())
		require.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDB_Close_NilPool(t *testing.T) {
	nilDB := &DB{}
	assert.NotPanics(t, func() {
		nilDB.Close()
	})
}
