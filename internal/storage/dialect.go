package storage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type dialect struct {
	name       string
	sqlDriver  string
	serialType string
	nowDefault string
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		return dialect{name: DriverSQLite, sqlDriver: "sqlite", serialType: "INTEGER PRIMARY KEY AUTOINCREMENT", nowDefault: "CURRENT_TIMESTAMP"}, nil
	case DriverPostgres, "pgx":
		return dialect{name: DriverPostgres, sqlDriver: "pgx", serialType: "BIGSERIAL PRIMARY KEY", nowDefault: "(now()::text)"}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// rebind rewrites ? placeholders to $1, $2, ... for postgres.
func (d dialect) rebind(query string) string {
	if d.name != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// checkIdentifier accepts plain or schema-qualified table names only, since
// table names are spliced into SQL text.
func checkIdentifier(name string) error {
	if !reIdentifier.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func indexName(table string) string {
	return "ux_" + table[strings.LastIndex(table, ".")+1:] + "_root_id"
}

// splitTable separates an optional schema prefix from a table name.
func splitTable(table string) (schema, name string) {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "", table
}
