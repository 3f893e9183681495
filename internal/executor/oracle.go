package executor

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	go_ora "github.com/sijms/go-ora/v2"

	"dataagentjp.io/querycore/core/config"
)

// oracleBackend keeps one lazily opened handle. The pool is capped at a
// single connection so concurrent queries serialize instead of piling
// sessions onto the ERP database; go-ora cursors honor context
// cancellation, so the watchdog can abort without wedging the handle.
type oracleBackend struct {
	cfg config.OracleConfig

	mu sync.Mutex
	db *sql.DB
}

func newOracleBackend(cfg config.OracleConfig) *oracleBackend {
	return &oracleBackend{cfg: cfg}
}

func (b *oracleBackend) name() string { return "oracle" }

func (b *oracleBackend) query(ctx context.Context, sqlText string) (*sql.Rows, func(), error) {
	db, err := b.handle()
	if err != nil {
		return nil, nil, err
	}
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, nil, err
	}
	return rows, func() {}, nil
}

func (b *oracleBackend) handle() (*sql.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return b.db, nil
	}

	dsn := go_ora.BuildUrl(b.cfg.Host, b.cfg.Port, b.cfg.ServiceName,
		b.cfg.Username, b.cfg.Password, nil)
	db, err := sql.Open("oracle", dsn)
	if err != nil {
		return nil, fmt.Errorf("open oracle: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	b.db = db
	return db, nil
}

func (b *oracleBackend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
