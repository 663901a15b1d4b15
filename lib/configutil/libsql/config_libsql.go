package configlibsql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	devenv "lotcopy-backend/dev/env"
	"lotcopy-backend/pkg/migrations"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Struct selects a database: a remote libsql server when Url is set,
// otherwise a local sqlite file (":memory:" and <dev_state> paths allowed).
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Struct) remoteDSN() (string, error) {
	parsed, err := url.Parse(config.Url)
	if err != nil {
		return "", fmt.Errorf("invalid libsql url: %w", err)
	}
	if config.AuthToken != "" {
		query := parsed.Query()
		query.Set("authToken", config.AuthToken)
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		dsn, err := config.remoteDSN()
		if err != nil {
			return nil, err
		}
		return sql.Open("libsql", dsn)
	}

	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	dbpath, err := devenv.ResolvePath(config.File)
	if err != nil {
		return nil, err
	}
	return migrations.OpenDB(dbpath)
}

// OpenAndMigrate opens the database and applies `schema` to it.
func (config Struct) OpenAndMigrate(ctx context.Context, schema string) (*sql.DB, error) {
	db, err := config.OpenDB()
	if err != nil {
		return nil, err
	}
	err = migrations.Migrate(ctx, db, schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
