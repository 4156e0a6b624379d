package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/go-sql-driver/mysql"

	"github.com/chronosproxy/proxy/internal/config"
)

// NativeExecutor runs queries over database/sql using the go-sql-driver/mysql
// driver, against the pool database/sql itself maintains.
type NativeExecutor struct {
	db *sql.DB
}

// NewNativeExecutor dials the native backend and waits for it to answer a
// ping, retrying with backoff in case the backend is still starting.
func NewNativeExecutor(ctx context.Context, cfg config.NativeConfig, pool config.BackendConfig) (*NativeExecutor, error) {
	dsn := nativeDSN(cfg)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening native backend: %w", err)
	}

	db.SetMaxOpenConns(pool.PoolSize)
	db.SetMaxIdleConns(pool.PoolSize)
	if pool.PoolRecycleSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.PoolRecycleSeconds) * time.Second)
	}

	if pool.PoolPrePing {
		_, err = backoff.Retry(ctx, func() (struct{}, error) {
			return struct{}{}, db.PingContext(ctx)
		}, backoff.WithMaxTries(5), backoff.WithBackOff(backoff.NewExponentialBackOff()))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("pinging native backend: %w", err)
		}
	}

	return &NativeExecutor{db: db}, nil
}

func nativeDSN(cfg config.NativeConfig) string {
	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	timeout := cfg.ConnectTimeoutS
	if timeout <= 0 {
		timeout = 10
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&timeout=%ds&parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, charset, timeout)
}

// Execute runs sql against the backend with ctx's deadline, converting
// database/sql errors into a populated ExecutionResult rather than an error
// return — the pipeline always wants a result shape to wrap as BACKEND_ERROR.
func (e *NativeExecutor) Execute(ctx context.Context, query string) *ExecutionResult {
	return timeIt(func() *ExecutionResult {
		rows, err := e.db.QueryContext(ctx, query)
		if err != nil {
			return &ExecutionResult{Err: err, BackendDetail: err.Error()}
		}
		defer rows.Close()

		columns, err := columnsOf(rows)
		if err != nil {
			return &ExecutionResult{Err: err, BackendDetail: err.Error()}
		}

		var result [][]any
		for rows.Next() {
			scanTargets := make([]any, len(columns))
			values := make([]any, len(columns))
			for i := range values {
				scanTargets[i] = &values[i]
			}
			if err := rows.Scan(scanTargets...); err != nil {
				return &ExecutionResult{Err: err, BackendDetail: err.Error()}
			}
			result = append(result, values)
		}
		if err := rows.Err(); err != nil {
			return &ExecutionResult{Err: err, BackendDetail: err.Error()}
		}

		return &ExecutionResult{Columns: columns, Rows: result}
	})
}

func columnsOf(rows *sql.Rows) ([]Column, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]Column, len(types))
	for i, t := range types {
		cols[i] = Column{Name: t.Name(), TypeName: t.DatabaseTypeName()}
	}
	return cols, nil
}

// Close releases the pool's connections.
func (e *NativeExecutor) Close() error { return e.db.Close() }
