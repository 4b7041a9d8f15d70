package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/careerlens/careerlens/internal/api"
	"github.com/careerlens/careerlens/internal/survey"
)

// seedSurveyDefinitions loads every *.json definition in dir into the
// store. Re-seeding on each start is safe: definitions are keyed by id
// and overwritten in place, so edits to the files ship on restart.
func seedSurveyDefinitions(store api.Store, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read survey dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		def, err := survey.ParseDefinition(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if def.ID == "" {
			return fmt.Errorf("%s: definition has no id", entry.Name())
		}
		if err := store.UpsertSurveyDefinition(def); err != nil {
			return fmt.Errorf("store %s: %w", def.ID, err)
		}
	}
	return nil
}
