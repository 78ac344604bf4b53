package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMigrationsSortsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "010_later.sql", "SELECT 10;")
	writeMigration(t, dir, "002_second.sql", "SELECT 2;")
	writeMigration(t, dir, "001_first.sql", "SELECT 1;")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("count = %d, want 3", len(migrations))
	}
	want := []int{1, 2, 10}
	for i, mig := range migrations {
		if mig.Version != want[i] {
			t.Errorf("migration %d version = %d, want %d", i, mig.Version, want[i])
		}
	}
	if migrations[0].SQL != "SELECT 1;" {
		t.Errorf("migration SQL = %q", migrations[0].SQL)
	}
}

func TestLoadMigrationsSkipsNonMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_first.sql", "SELECT 1;")
	writeMigration(t, dir, "README.md", "docs")
	writeMigration(t, dir, "notaversion_x.sql", "SELECT 0;")
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("count = %d, want 1", len(migrations))
	}
	if migrations[0].Name != "001_first.sql" {
		t.Errorf("name = %q", migrations[0].Name)
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, filepath.Join(t.TempDir(), "missing"))
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}
