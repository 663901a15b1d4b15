package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `
-- a comment line
create table if not exists example (
	id integer primary key,
	name text not null
);

create index if not exists example_name on example(name);
`

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(testSchema)
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "create table")
	require.Contains(t, stmts[1], "create index")
}

func TestOpenAndMigrateTwice(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	db, err := OpenAndMigrateDB(ctx, testSchema, path)
	require.NoError(t, err)
	_, err = db.Exec("insert into example(name) values ('a')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenAndMigrateDB(ctx, testSchema, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("select count(*) from example").Scan(&count))
	require.Equal(t, 1, count)
}
