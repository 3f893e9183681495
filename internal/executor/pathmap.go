package executor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
)

const fallbackBucket = "erp-lake"

// sqlKeywords are tokens that may follow a table reference and must not
// be mistaken for an alias.
var sqlKeywords = map[string]struct{}{
	"WHERE": {}, "GROUP": {}, "ORDER": {}, "LIMIT": {}, "OFFSET": {},
	"JOIN": {}, "ON": {}, "INNER": {}, "LEFT": {}, "RIGHT": {}, "FULL": {},
	"CROSS": {}, "OUTER": {}, "UNION": {}, "HAVING": {}, "USING": {},
	"AND": {}, "OR": {}, "AS": {},
}

// pathMapper rewrites logical table references in DuckDB SQL into
// read_parquet expressions. The table set comes from the catalog, so
// the rewrite only ever touches names the service owns. Aliased
// references stay correct because the alias is folded into the
// canonical lowercase table name and every alias-qualified column is
// rewritten with it.
type pathMapper struct {
	paths map[string]string
	names []string
}

func newPathMapper(store *catalog.Store, bucket string) *pathMapper {
	if bucket == "" {
		bucket = fallbackBucket
	}

	paths := make(map[string]string)
	for _, t := range store.Tables() {
		name := strings.ToLower(t.Name)
		glob := t.S3Path
		if glob == "" {
			glob = conventionalGlob(bucket, name)
		}
		paths[name] = glob
	}
	for _, b := range store.Bindings() {
		if b.Dialect != domain.DialectDuckDB || b.Table == "" {
			continue
		}
		name := strings.ToLower(b.Table)
		if b.S3Path != "" {
			paths[name] = b.S3Path
		} else if _, ok := paths[name]; !ok {
			paths[name] = conventionalGlob(bucket, name)
		}
	}

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	return &pathMapper{paths: paths, names: names}
}

func conventionalGlob(bucket, table string) string {
	return fmt.Sprintf("s3://%s/raw/v1/%s/year=*/month=*/data.parquet", bucket, table)
}

// Rewrite resolves bare and aliased table references after FROM, JOIN
// or a comma to read_parquet expressions. SQL that already reads
// parquet passes through untouched.
func (m *pathMapper) Rewrite(sqlText string) string {
	if len(m.names) == 0 || strings.Contains(strings.ToLower(sqlText), "read_parquet(") {
		return sqlText
	}

	aliases := make(map[string]string)
	for _, name := range m.names {
		sqlText = m.rewriteTable(sqlText, name, aliases)
	}

	for alias, canon := range aliases {
		aliasRe := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\.`)
		sqlText = aliasRe.ReplaceAllString(sqlText, canon+".")
	}
	return sqlText
}

func (m *pathMapper) rewriteTable(sqlText, name string, aliases map[string]string) string {
	expr := fmt.Sprintf("read_parquet('%s', hive_partitioning=true)", m.paths[name])
	pattern := regexp.MustCompile(
		`(?i)(\bFROM\s+|\bJOIN\s+|,\s*)` + regexp.QuoteMeta(name) +
			`\b(?:\s+(?:AS\s+)?([A-Za-z_][A-Za-z0-9_]*))?`)

	return pattern.ReplaceAllStringFunc(sqlText, func(match string) string {
		sub := pattern.FindStringSubmatch(match)
		prefix, alias := sub[1], sub[2]

		if alias != "" {
			if _, reserved := sqlKeywords[strings.ToUpper(alias)]; reserved {
				// Not an alias; keep the keyword after the expression.
				return prefix + expr + " AS " + name + " " + alias
			}
			if !strings.EqualFold(alias, name) {
				aliases[strings.ToLower(alias)] = name
			}
		}
		return prefix + expr + " AS " + name
	})
}
