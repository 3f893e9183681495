package executor

import (
	"database/sql"
	"fmt"
	"time"

	"dataagentjp.io/querycore/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05"

// scanRows drains a result set into the wire shape. Drivers hand back
// []byte for text columns and time.Time for dates; both are normalized
// so the JSON payload is stable across backends.
func scanRows(rows *sql.Rows) (*domain.QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	data := make([]map[string]any, 0)
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.QueryResult{
		Data:     data,
		RowCount: len(data),
		Columns:  columns,
	}, nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(timestampLayout)
	default:
		return v
	}
}
