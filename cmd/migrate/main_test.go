package main

import (
	"io"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/dvloznov/vehicle-tracker/internal/logger"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_vehicles.sql", true, 1, "create_vehicles"},
		{"0012_add_index.sql", true, 12, "add_index"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.valid || version != tt.version || name != tt.name {
				t.Errorf("Expected (%d, %q, %v), got (%d, %q, %v)", tt.version, tt.name, tt.valid, version, name, ok)
			}
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_create_transactions.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.transactions` (id STRING);")},
		"0001_create_vehicles.sql":     {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.vehicles` (id STRING);")},
		"README.md":                    {Data: []byte("notes")},
	}

	migrations, err := readMigrations(fsys, "proj", "vt", logger.NewWithWriter(io.Discard))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("Expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("Expected version order, got %d, %d", migrations[0].Version, migrations[1].Version)
	}
	if !strings.Contains(migrations[0].SQL, "`proj.vt.vehicles`") {
		t.Errorf("Expected placeholders substituted, got %s", migrations[0].SQL)
	}

	again, _ := readMigrations(fstest.MapFS{
		"0001_create_vehicles.sql": fsys["0001_create_vehicles.sql"],
	}, "other", "ds", logger.NewWithWriter(io.Discard))
	if again[0].Checksum != migrations[0].Checksum {
		t.Error("Checksum should not depend on project or dataset")
	}
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1")},
		"0001_b.sql": {Data: []byte("SELECT 2")},
	}
	if _, err := readMigrations(fsys, "p", "d", logger.NewWithWriter(io.Discard)); err == nil {
		t.Error("Expected error for duplicate version")
	}
}

func TestPlanMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2-new"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "c1"},
		{Version: 2, Checksum: "c2"},
	}

	pending, changed := planMigrations(all, applied)
	if len(pending) != 1 || pending[0].Version != 3 {
		t.Errorf("Expected only version 3 pending, got %+v", pending)
	}
	if len(changed) != 1 || changed[0].Version != 2 {
		t.Errorf("Expected version 2 reported as changed, got %+v", changed)
	}
}
