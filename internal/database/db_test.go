// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Migrations ran: the schema is in place.
	for _, table := range []string{"owners", "auth_tokens", "magic_link_attempts"} {
		var name string
		err := db.Get(&name,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestAddDefaultParams(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want []string
	}{
		{
			name: "bare path gets all defaults",
			dsn:  "./data/test.db",
			want: []string{"_txlock=immediate", "_busy_timeout=5000", "_foreign_keys=on"},
		},
		{
			name: "existing params preserved",
			dsn:  "./data/test.db?_txlock=deferred",
			want: []string{"_txlock=deferred", "_busy_timeout=5000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := addDefaultParams(tt.dsn)
			for _, param := range tt.want {
				assert.Contains(t, got, param)
			}
			assert.NotContains(t, got, "_txlock=immediate&_txlock=deferred")
		})
	}
}
