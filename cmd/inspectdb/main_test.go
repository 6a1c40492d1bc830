package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURLPrefersFlag(t *testing.T) {
	url, err := resolveURL(" postgresql+asyncpg://app:secret@db:5432/jobmate ")
	require.NoError(t, err)
	assert.Equal(t, "postgresql://app:secret@db:5432/jobmate", url)
}

func TestResolveURLNeedsOnlyDatabaseURL(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUTH0_DOMAIN", "")
	t.Setenv("AUTH0_AUDIENCE", "")
	t.Setenv("DATABASE_URL", "postgresql+psycopg://app@db/jobmate")

	url, err := resolveURL("")
	require.NoError(t, err)
	assert.Equal(t, "postgresql://app@db/jobmate", url)
}

func TestRootCmdRejectsPositionalArgs(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"extra"})
	cmd.SetErr(&out)

	require.Error(t, cmd.Execute())
}

func TestRootCmdFailsWhenDatabaseUnreachable(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"--database-url", "postgres://127.0.0.1:1/none", "--timeout", "200ms"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Empty(t, out.String())
}
