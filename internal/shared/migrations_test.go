package shared

import (
	"context"
	"testing"
)

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		file      string
		version   int
		name      string
		direction string
		ok        bool
	}{
		{"0000_create_snapshots_up.sql", 0, "create_snapshots", "up", true},
		{"0001_add_entry_counts_down.sql", 1, "add_entry_counts", "down", true},
		{"README.md", 0, "", "", false},
		{"abc_create_up.sql", 0, "", "", false},
		{"0002_sideways.sql", 0, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, direction, ok := parseMigrationName(tt.file)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if version != tt.version || name != tt.name || direction != tt.direction {
				t.Errorf("got (%d, %q, %q), want (%d, %q, %q)", version, name, direction, tt.version, tt.name, tt.direction)
			}
		})
	}
}

func TestMigrationRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) < 2 {
			t.Fatalf("expected at least two migrations, got %d", len(migrations))
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(ctx, db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if _, err := db.Exec("SELECT id, username, entry_count FROM snapshots LIMIT 1"); err != nil {
			t.Errorf("snapshots table should exist after migrations: %v", err)
		}

		version, err := MigrationVersion(ctx, db)
		if err != nil {
			t.Fatalf("failed to read version: %v", err)
		}
		if version != 1 {
			t.Errorf("expected version 1, got %d", version)
		}

		if err := RollbackMigration(ctx, db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		version, _ = MigrationVersion(ctx, db)
		if version != 0 {
			t.Errorf("expected version 0 after rollback, got %d", version)
		}
		if _, err := db.Exec("SELECT entry_count FROM snapshots LIMIT 1"); err == nil {
			t.Error("entry_count should be gone after rollback")
		}

		if err := RollbackMigration(ctx, db); err != nil {
			t.Fatalf("failed to rollback first migration: %v", err)
		}
		if err := RollbackMigration(ctx, db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		for i := 0; i < 2; i++ {
			if err := RunMigrations(ctx, db); err != nil {
				t.Fatalf("run %d failed: %v", i+1, err)
			}
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})
}
