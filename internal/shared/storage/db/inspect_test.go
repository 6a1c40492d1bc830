package db

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectSchemaGroupsColumnsByTable(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	rows := sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "udt_name", "character_maximum_length"}).
		AddRow("goose_db_version", "id", "integer", "int4", nil).
		AddRow("goose_db_version", "version_id", "bigint", "int8", nil).
		AddRow("goose_db_version", "is_applied", "boolean", "bool", nil).
		AddRow("users", "id", "text", "text", nil)
	mock.ExpectQuery("FROM information_schema.columns").WillReturnRows(rows)

	tables, err := InspectSchema(context.Background(), sqlDB)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "goose_db_version", tables[0].Name)
	assert.Equal(t, []Column{
		{Name: "id", Type: "INTEGER"},
		{Name: "version_id", Type: "BIGINT"},
		{Name: "is_applied", Type: "BOOLEAN"},
	}, tables[0].Columns)
	assert.Equal(t, "users", tables[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInspectSchemaShortensTypeNames(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	rows := sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "udt_name", "character_maximum_length"}).
		AddRow("resumes", "id", "uuid", "uuid", nil).
		AddRow("resumes", "title", "character varying", "varchar", int64(255)).
		AddRow("resumes", "notes", "character varying", "varchar", nil).
		AddRow("resumes", "grade", "character", "bpchar", int64(1)).
		AddRow("resumes", "created_at", "timestamp without time zone", "timestamp", nil).
		AddRow("resumes", "updated_at", "timestamp with time zone", "timestamptz", nil).
		AddRow("resumes", "status", "USER-DEFINED", "resume_status", nil).
		AddRow("resumes", "tags", "ARRAY", "_text", nil).
		AddRow("resumes", "score", "double precision", "float8", nil)
	mock.ExpectQuery("FROM information_schema.columns").WillReturnRows(rows)

	tables, err := InspectSchema(context.Background(), sqlDB)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	var types []string
	for _, c := range tables[0].Columns {
		types = append(types, c.Type)
	}
	assert.Equal(t, []string{
		"UUID",
		"VARCHAR(255)",
		"VARCHAR",
		"CHAR(1)",
		"TIMESTAMP",
		"TIMESTAMP WITH TIME ZONE",
		"RESUME_STATUS",
		"TEXT[]",
		"DOUBLE PRECISION",
	}, types)
}

func TestInspectSchemaPropagatesQueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("FROM information_schema.columns").WillReturnError(errors.New("permission denied"))

	_, err = InspectSchema(context.Background(), sqlDB)
	require.ErrorContains(t, err, "permission denied")
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	WriteSchema(&buf, []Table{
		{Name: "users", Columns: []Column{{Name: "id", Type: "TEXT"}, {Name: "email", Type: "TEXT"}}},
	})
	assert.Equal(t, "Found 1 tables:\n\nTable: users\n  - id (TEXT)\n  - email (TEXT)\n", buf.String())

	buf.Reset()
	WriteSchema(&buf, nil)
	assert.Equal(t, "No tables found in the database.\n", buf.String())
}
