package database

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles_SortedSQLOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"002_indexes.sql": {Data: []byte("SELECT 1;")},
		"001_init.sql":    {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("docs")},
	}

	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_indexes.sql"}, files)
}

func TestEmbeddedMigrations_DeclareConstraints(t *testing.T) {
	files, err := migrationFiles(Migrations())
	require.NoError(t, err)
	require.NotEmpty(t, files)

	content, err := fs.ReadFile(Migrations(), files[0])
	require.NoError(t, err)
	schema := string(content)

	for _, name := range []string{
		"invoices_tenant_number_key",
		"invoices_active_order_key",
		"payments_invoice_idempotency_key",
		"kitchen_tickets_order_key",
	} {
		assert.True(t, strings.Contains(schema, name), "missing %s", name)
	}
}
