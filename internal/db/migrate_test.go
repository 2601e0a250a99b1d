package db

import (
	"testing"
	"testing/fstest"

	"alltech-erp/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_dashboard_index.sql": {Data: []byte("CREATE INDEX x ON t (a);")},
		"001_init.sql":            {Data: []byte("CREATE TABLE t (a int);")},
		"README.md":               {Data: []byte("ignored")},
		"archive/000_old.sql":     {Data: []byte("ignored")},
	}

	got, err := discoverMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "001", got[0].version)
	assert.Equal(t, "001_init.sql", got[0].filename)
	assert.Equal(t, "002", got[1].version)
	assert.Len(t, got[0].checksum, 64)
	assert.NotEqual(t, got[0].checksum, got[1].checksum)
}

func TestDiscoverMigrations_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"duplicate version", fstest.MapFS{
			"001_init.sql":  {Data: []byte("a")},
			"001_other.sql": {Data: []byte("b")},
		}},
		{"no underscore", fstest.MapFS{"init.sql": {Data: []byte("a")}}},
		{"no description", fstest.MapFS{"001_.sql": {Data: []byte("a")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := discoverMigrations(tt.fsys)
			assert.Error(t, err)
		})
	}
}

func TestEmbeddedMigrationsAreDiscoverable(t *testing.T) {
	got, err := discoverMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "001_init.sql", got[0].filename)
	assert.Contains(t, got[0].sql, "purchase_orders")
}
