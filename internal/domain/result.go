package domain

import "fmt"

// Dialect selects the SQL target.
type Dialect string

const (
	DialectOracle Dialect = "ORACLE"
	DialectDuckDB Dialect = "DUCKDB"
	DialectMySQL  Dialect = "MYSQL"
)

// ParseDialect validates a configured datasource name.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectOracle, DialectDuckDB, DialectMySQL:
		return Dialect(s), nil
	case "":
		return DialectDuckDB, nil
	default:
		return "", fmt.Errorf("unknown datasource %q", s)
	}
}

// QueryResult is the executor's output shape. Data rows map column name to a
// JSON-safe value; datetimes are formatted "YYYY-MM-DD HH:MM:SS" in UTC.
type QueryResult struct {
	Data            []map[string]any `json:"data"`
	RowCount        int              `json:"row_count"`
	ExecutionTimeMS int64            `json:"execution_time_ms"`
	Columns         []string         `json:"columns"`
}

// TokenUsage accounts for LLM spend on a request. CacheHit marks responses
// served from the parser cache without touching the model.
type TokenUsage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TotalTokens      int  `json:"total_tokens"`
	CacheHit         bool `json:"cache_hit"`
}

// Pagination describes the returned window. TotalRows equals the returned
// row count unless the caller opted into a second COUNT query.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalRows  int `json:"total_rows"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives page numbers from limit/offset and a row total.
func NewPagination(limit, offset, totalRows int) Pagination {
	if limit <= 0 {
		limit = 1
	}
	p := Pagination{
		Page:      offset/limit + 1,
		PageSize:  limit,
		TotalRows: totalRows,
	}
	p.TotalPages = (totalRows + limit - 1) / limit
	if p.TotalPages == 0 {
		p.TotalPages = 1
	}
	return p
}
