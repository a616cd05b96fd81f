package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	lite := &DB{Dialect: DialectSQLite}

	q := "SELECT * FROM queue_items WHERE id = ? AND note = 'why?' AND run_id IN (?,?)"

	assert.Equal(t, "SELECT * FROM queue_items WHERE id = $1 AND note = 'why?' AND run_id IN ($2,$3)", pg.Rebind(q))
	assert.Equal(t, q, lite.Rebind(q))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	d, err = ParseDialect("")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestOpenSQLiteAppliesSchemaIdempotently(t *testing.T) {
	ctx := context.Background()

	d, err := Open(ctx, "sqlite", "file:"+t.TempDir()+"/outreach.db")
	require.NoError(t, err)
	require.NoError(t, d.applySchema(ctx), "schema must be re-appliable")

	var n int
	err = d.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('runs', 'run_events', 'queue_items', 'campaigns', 'contacts', 'segments', 'senders')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.NoError(t, d.Close())
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "sqlite", " ")
	assert.Error(t, err)
}
