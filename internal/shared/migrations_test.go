package shared

import (
	"database/sql"
	"strings"
	"testing"
)

func migratedDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n); err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}
		if migrations[0].Version != 1 {
			t.Errorf("expected first version 1 from 0001_create_tables, got %d", migrations[0].Version)
		}

		for i, m := range migrations {
			if i > 0 && m.Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", m.Version, migrations[i-1].Version)
			}
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration version %d is missing up or down SQL", m.Version)
			}
		}
	})

	t.Run("Creates Local Tables", func(t *testing.T) {
		db := migratedDB(t)
		for _, table := range []string{"frame_history", "drafts", "schema_migrations"} {
			if !tableExists(t, db, table) {
				t.Errorf("expected table %s after migrations", table)
			}
		}
	})

	t.Run("Drafts Are Unique Per Frame", func(t *testing.T) {
		db := migratedDB(t)
		insert := "INSERT INTO drafts (id, project_id, frame_index, payload) VALUES (?, ?, ?, '[]')"
		if _, err := db.Exec(insert, "d-1", "demo", 3); err != nil {
			t.Fatalf("first insert failed: %v", err)
		}
		if _, err := db.Exec(insert, "d-2", "demo", 3); err == nil {
			t.Error("expected a second draft for the same frame to violate the unique key")
		}
		if _, err := db.Exec(insert, "d-3", "demo", 4); err != nil {
			t.Errorf("expected a draft for another frame to be accepted: %v", err)
		}
	})

	t.Run("Rollback Drops Tables", func(t *testing.T) {
		db := migratedDB(t)

		before, err := getCurrentVersion(db)
		if err != nil {
			t.Fatalf("failed to read version: %v", err)
		}
		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}
		after, err := getCurrentVersion(db)
		if err != nil {
			t.Fatalf("failed to read version after rollback: %v", err)
		}
		if after >= before {
			t.Errorf("expected version to drop below %d, got %d", before, after)
		}
		if after == 0 && (tableExists(t, db, "drafts") || tableExists(t, db, "frame_history")) {
			t.Error("expected local tables to be dropped once every migration is rolled back")
		}
	})

	t.Run("Rollback Without Migrations", func(t *testing.T) {
		db := migratedDB(t)
		for {
			v, _ := getCurrentVersion(db)
			if v == 0 {
				break
			}
			if err := RollbackMigration(db); err != nil {
				t.Fatalf("rollback failed at version %d: %v", v, err)
			}
		}

		err := RollbackMigration(db)
		if err == nil || !strings.Contains(err.Error(), "no migrations to rollback") {
			t.Errorf("expected 'no migrations to rollback', got %v", err)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db := migratedDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
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

func TestExecStatements(t *testing.T) {
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()

	script := `
-- two statements and a blank one
CREATE TABLE labels (name TEXT);
;
INSERT INTO labels (name) VALUES ('car'); -- trailing
`
	if err := inTx(db, func(tx *sql.Tx) error { return execStatements(tx, script) }); err != nil {
		t.Fatalf("execStatements failed: %v", err)
	}

	var name string
	if err := db.QueryRow("SELECT name FROM labels").Scan(&name); err != nil || name != "car" {
		t.Errorf("expected inserted label 'car', got %q (%v)", name, err)
	}

	t.Run("Failure Rolls Back", func(t *testing.T) {
		err := inTx(db, func(tx *sql.Tx) error {
			return execStatements(tx, "INSERT INTO labels (name) VALUES ('bus'); INSERT INTO missing VALUES (1)")
		})
		if err == nil || !strings.Contains(err.Error(), "Statement: INSERT INTO missing") {
			t.Fatalf("expected failing statement in error, got %v", err)
		}

		var n int
		db.QueryRow("SELECT COUNT(*) FROM labels").Scan(&n)
		if n != 1 {
			t.Errorf("expected the partial insert to be rolled back, got %d rows", n)
		}
	})
}

func TestRemoveComments(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"-- heading\nCREATE TABLE t (id INTEGER) -- trailing\n\n", "CREATE TABLE t (id INTEGER)"},
		{"DROP TABLE drafts", "DROP TABLE drafts"},
		{"-- only a comment", ""},
	}
	for _, tt := range tests {
		if got := removeComments(tt.in); got != tt.want {
			t.Errorf("removeComments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
