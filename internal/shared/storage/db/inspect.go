package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *Session.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Column describes one table column.
type Column struct {
	Name string
	Type string
}

// Table is a table in the current schema with its columns in ordinal order.
type Table struct {
	Name    string
	Columns []Column
}

const inspectQuery = `
SELECT c.table_name, c.column_name, c.data_type, c.udt_name, c.character_maximum_length
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = current_schema()
  AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`

// InspectSchema lists tables in the current schema. It only reads.
func InspectSchema(ctx context.Context, q Querier) ([]Table, error) {
	rows, err := q.QueryContext(ctx, inspectQuery)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var (
			tableName, colName, dataType, udtName string
			maxLen                                sql.NullInt64
		)
		if err := rows.Scan(&tableName, &colName, &dataType, &udtName, &maxLen); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if len(tables) == 0 || tables[len(tables)-1].Name != tableName {
			tables = append(tables, Table{Name: tableName})
		}
		last := &tables[len(tables)-1]
		last.Columns = append(last.Columns, Column{Name: colName, Type: columnType(dataType, udtName, maxLen)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return tables, nil
}

// shortTypes maps information_schema spellings to the names used in DDL.
var shortTypes = map[string]string{
	"character varying":           "VARCHAR",
	"character":                   "CHAR",
	"timestamp without time zone": "TIMESTAMP",
	"timestamp with time zone":    "TIMESTAMP WITH TIME ZONE",
	"time without time zone":      "TIME",
	"time with time zone":         "TIME WITH TIME ZONE",
}

func columnType(dataType, udtName string, maxLen sql.NullInt64) string {
	switch dataType {
	case "USER-DEFINED":
		return strings.ToUpper(udtName)
	case "ARRAY":
		return strings.ToUpper(strings.TrimPrefix(udtName, "_")) + "[]"
	}
	name, ok := shortTypes[dataType]
	if !ok {
		name = strings.ToUpper(dataType)
	}
	if maxLen.Valid && (name == "VARCHAR" || name == "CHAR") {
		name = fmt.Sprintf("%s(%d)", name, maxLen.Int64)
	}
	return name
}

// WriteSchema prints tables in a human-readable listing.
func WriteSchema(w io.Writer, tables []Table) {
	if len(tables) == 0 {
		fmt.Fprintln(w, "No tables found in the database.")
		return
	}
	fmt.Fprintf(w, "Found %d tables:\n", len(tables))
	for _, t := range tables {
		fmt.Fprintf(w, "\nTable: %s\n", t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(w, "  - %s (%s)\n", c.Name, c.Type)
		}
	}
}
