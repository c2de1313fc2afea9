package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Record And Last", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))

		if err := repo.Record(ctx, "proj", 3, 10); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		if err := repo.Record(ctx, "proj", 7, 10); err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		e, err := repo.Last(ctx, "proj")
		if err != nil {
			t.Fatalf("failed to get last: %v", err)
		}
		if e.Frame != 7 || e.TotalFrames != 10 {
			t.Errorf("unexpected entry %+v", e)
		}
		if e.VisitedAt.IsZero() {
			t.Error("expected visited_at to be set")
		}
	})

	t.Run("Last Missing", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		if _, err := repo.Last(ctx, "nope"); !errors.Is(err, shared.ErrProjectNotFound) {
			t.Errorf("expected ErrProjectNotFound, got %v", err)
		}
	})

	t.Run("Record Requires Project", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		if err := repo.Record(ctx, "", 0, 1); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("List And Forget", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewHistoryRepository(db)
		for _, p := range []string{"a", "b", "c"} {
			if err := repo.Record(ctx, p, 1, 5); err != nil {
				t.Fatalf("failed to record %s: %v", p, err)
			}
		}

		all, err := repo.List(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 entries, got %d", len(all))
		}

		limited, _ := repo.List(ctx, 2)
		if len(limited) != 2 {
			t.Errorf("expected 2 entries, got %d", len(limited))
		}

		if err := repo.Forget(ctx, "b"); err != nil {
			t.Fatalf("failed to forget: %v", err)
		}
		if n, _ := Count(db, "frame_history"); n != 2 {
			t.Errorf("expected 2 rows after forget, got %d", n)
		}
	})
}

func TestDraftRepository(t *testing.T) {
	ctx := context.Background()
	boxes := []models.Annotation{{ID: "a", X: 1, Y: 2, Width: 3, Height: 4, Class: "ball"}}

	t.Run("Put And Get", func(t *testing.T) {
		repo := NewDraftRepository(setupTestDB(t))
		if err := repo.Put(ctx, "proj", 4, boxes, errors.New("connection refused")); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		d, err := repo.Get(ctx, "proj", 4)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if d.ID == "" || d.Attempts != 1 || d.LastError != "connection refused" {
			t.Errorf("unexpected draft %+v", d)
		}
		if len(d.Annotations) != 1 || d.Annotations[0] != boxes[0] {
			t.Errorf("unexpected annotations %+v", d.Annotations)
		}
	})

	t.Run("Repeated Put Bumps Attempts", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDraftRepository(db)
		_ = repo.Put(ctx, "proj", 4, boxes, errors.New("first"))
		if err := repo.Put(ctx, "proj", 4, nil, errors.New("second")); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		d, _ := repo.Get(ctx, "proj", 4)
		if d.Attempts != 2 || d.LastError != "second" || len(d.Annotations) != 0 {
			t.Errorf("unexpected draft %+v", d)
		}
		if n, _ := Count(db, "drafts"); n != 1 {
			t.Errorf("expected a single row, got %d", n)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewDraftRepository(setupTestDB(t))
		_ = repo.Put(ctx, "b", 2, boxes, nil)
		_ = repo.Put(ctx, "a", 9, boxes, nil)
		_ = repo.Put(ctx, "a", 1, boxes, nil)

		all, err := repo.List(ctx, "")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 || all[0].ProjectID != "a" || all[0].Frame != 1 || all[2].ProjectID != "b" {
			t.Errorf("unexpected order %+v", all)
		}

		onlyA, _ := repo.List(ctx, "a")
		if len(onlyA) != 2 {
			t.Errorf("expected 2 drafts for a, got %d", len(onlyA))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewDraftRepository(setupTestDB(t))
		_ = repo.Put(ctx, "proj", 0, boxes, nil)

		if err := repo.Delete(ctx, "proj", 0); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete(ctx, "proj", 0); !errors.Is(err, shared.ErrDraftNotFound) {
			t.Errorf("expected ErrDraftNotFound, got %v", err)
		}
		if _, err := repo.Get(ctx, "proj", 0); !errors.Is(err, shared.ErrDraftNotFound) {
			t.Errorf("expected ErrDraftNotFound, got %v", err)
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDraftRepository(db)
		db.Close()

		if err := repo.Put(ctx, "proj", 0, boxes, nil); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.List(ctx, ""); err == nil {
			t.Error("expected error on closed database")
		}
	})
}
