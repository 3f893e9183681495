package executor

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"

	"dataagentjp.io/querycore/core/config"
)

// duckdbBackend opens a fresh in-memory database per call. A DuckDB
// handle that hit the watchdog cannot be reused safely, so per-call
// handles keep timeout recovery trivial; the S3 session settings are
// replayed on every open.
type duckdbBackend struct {
	cfg config.DuckDBConfig
}

func newDuckDBBackend(cfg config.DuckDBConfig) *duckdbBackend {
	return &duckdbBackend{cfg: cfg}
}

func (b *duckdbBackend) name() string { return "duckdb" }

func (b *duckdbBackend) query(ctx context.Context, sqlText string) (*sql.Rows, func(), error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, nil, fmt.Errorf("open duckdb: %w", err)
	}

	for _, stmt := range b.sessionSetup() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("configure duckdb session: %w", err)
		}
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return rows, func() { db.Close() }, nil
}

func (b *duckdbBackend) sessionSetup() []string {
	stmts := make([]string, 0, 12)
	if b.cfg.MemoryLimit != "" {
		stmts = append(stmts, fmt.Sprintf("SET memory_limit='%s'", b.cfg.MemoryLimit))
	}
	if b.cfg.Threads > 0 {
		stmts = append(stmts, fmt.Sprintf("SET threads=%d", b.cfg.Threads))
	}
	if b.cfg.TempDir != "" {
		stmts = append(stmts, fmt.Sprintf("SET temp_directory='%s'", b.cfg.TempDir))
	}

	if b.cfg.S3Endpoint != "" {
		urlStyle := b.cfg.URLStyle
		if urlStyle == "" {
			urlStyle = "path"
		}
		stmts = append(stmts,
			"INSTALL httpfs",
			"LOAD httpfs",
			fmt.Sprintf("SET s3_endpoint='%s'", b.cfg.S3Endpoint),
			fmt.Sprintf("SET s3_access_key_id='%s'", b.cfg.S3AccessKey),
			fmt.Sprintf("SET s3_secret_access_key='%s'", b.cfg.S3SecretKey),
			fmt.Sprintf("SET s3_region='%s'", b.cfg.S3Region),
			fmt.Sprintf("SET s3_use_ssl=%t", b.cfg.S3UseSSL),
			fmt.Sprintf("SET s3_url_style='%s'", urlStyle),
		)
	}
	return stmts
}

// close is a no-op: nothing outlives a call.
func (b *duckdbBackend) close() error { return nil }
