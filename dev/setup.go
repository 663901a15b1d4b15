package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	devenv "lotcopy-backend/dev/env"
	"lotcopy-backend/internal/db"
	"lotcopy-backend/pkg/migrations"
)

func CreateJournalDB() error {
	path, err := devenv.ResolvePath("<dev_state>/journal.db")
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("journal already created at", path)
	} else {
		fmt.Println("creating journal at", path)
	}

	// the schema is idempotent, existing journals are brought up to date
	journal, err := migrations.OpenAndMigrateDB(context.Background(), db.Schema, path)
	if err != nil {
		return err
	}
	return journal.Close()
}

const gatewayTemplate = `{
  base_url: "http://localhost:8080",
  golden_key: "",
  user_agent: "",
  // a seller with at least one listing
  user_id: 0,
  subcategory_id: 0,
}
`

func writeIfMissing(path, contents string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	fmt.Println("writing", path)
	return os.WriteFile(path, []byte(contents), 0600)
}

func CreateConfigTemplates() error {
	path, err := devenv.GetStateFilePath("gateway.json5")
	if err != nil {
		return err
	}
	err = writeIfMissing(path, gatewayTemplate)
	if err != nil {
		return err
	}

	example, err := os.ReadFile("config.example.json5")
	if err != nil {
		return err
	}
	return writeIfMissing("config.json5", string(example))
}

func PrintConfigLocations() {
	slog.Info("fill in dev/.state/gateway.json5 to run the live gateway tests, they are skipped otherwise. config.json5 is read by cmd/lotcopy and cmd/lotcopy-server.")
}
