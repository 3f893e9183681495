package masterdata

import (
	"context"
	"fmt"

	"dataagentjp.io/querycore/core/db"
)

// PostgresSource reads reference data from the upstream master tables.
// It is consulted before local files when a database URL is configured.
type PostgresSource struct {
	db *db.DB
}

func NewPostgresSource(database *db.DB) *PostgresSource {
	return &PostgresSource{db: database}
}

func (s *PostgresSource) Name() string {
	return "postgres"
}

var kindQueries = map[Kind]string{
	KindItem:        `SELECT item_no, COALESCE(item_name, '') FROM master_items`,
	KindWarehouse:   `SELECT warehouse_no, COALESCE(warehouse_name, '') FROM master_warehouses`,
	KindWorkstation: `SELECT workstation_no, COALESCE(workstation_name, '') FROM master_workstations`,
}

func (s *PostgresSource) Load(ctx context.Context) (map[Kind][]Entry, error) {
	result := make(map[Kind][]Entry, len(Kinds))

	for _, kind := range Kinds {
		entries, err := s.loadKind(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("load %s master data: %w", kind, err)
		}
		result[kind] = entries
	}

	return result, nil
}

func (s *PostgresSource) loadKind(ctx context.Context, kind Kind) ([]Entry, error) {
	rows, err := s.db.Pool().Query(ctx, kindQueries[kind])
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Code, &entry.Name); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}
