package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/repositories"
	"github.com/desertthunder/framelabel/internal/shared"
)

type mockSaver struct {
	mu     sync.Mutex
	saved  map[string][]models.Annotation
	failOn map[int]bool
}

func (m *mockSaver) SaveAnnotations(ctx context.Context, projectID string, frame int, annotations []models.Annotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[frame] {
		return errors.New("server unavailable")
	}
	if m.saved == nil {
		m.saved = make(map[string][]models.Annotation)
	}
	m.saved[fmt.Sprintf("%s/%d", projectID, frame)] = annotations
	return nil
}

func setupDrafts(t *testing.T) *repositories.DraftRepository {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return repositories.NewDraftRepository(db)
}

func TestPushDrafts(t *testing.T) {
	ctx := context.Background()
	ann := []models.Annotation{{ID: "a", X: 1, Y: 2, Width: 3, Height: 4, Class: "car"}}

	tests := []struct {
		name       string
		frames     map[string][]int
		failOn     map[int]bool
		project    string
		wantPushed int
		wantFailed int
		wantLeft   int
	}{
		{name: "nothing to push", frames: map[string][]int{}},
		{name: "all succeed", frames: map[string][]int{"p1": {0, 1, 2}, "p2": {5}}, wantPushed: 4},
		{
			name:       "failures stay journaled",
			frames:     map[string][]int{"p1": {0, 1, 2, 3}},
			failOn:     map[int]bool{1: true, 3: true},
			wantPushed: 2,
			wantFailed: 2,
			wantLeft:   2,
		},
		{
			name:       "single project",
			frames:     map[string][]int{"p1": {0, 1}, "p2": {0}},
			project:    "p2",
			wantPushed: 1,
			wantLeft:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := setupDrafts(t)
			for project, frames := range tt.frames {
				for _, f := range frames {
					if err := repo.Put(ctx, project, f, ann, errors.New("offline")); err != nil {
						t.Fatalf("failed to seed draft: %v", err)
					}
				}
			}

			saver := &mockSaver{failOn: tt.failOn}
			progress := make(chan ProgressUpdate, 100)
			result, err := PushDrafts(ctx, progress, repo, saver, PushOpts{
				ProjectID:  tt.project,
				NumWorkers: 2,
				RateLimit:  1000,
			})
			close(progress)
			if err != nil {
				t.Fatalf("PushDrafts() error = %v", err)
			}

			if result.Pushed != tt.wantPushed || result.Failed != tt.wantFailed {
				t.Errorf("Pushed = %d, Failed = %d, want %d and %d", result.Pushed, result.Failed, tt.wantPushed, tt.wantFailed)
			}
			if result.Total != tt.wantPushed+tt.wantFailed || len(result.Results) != result.Total {
				t.Errorf("Total = %d with %d results", result.Total, len(result.Results))
			}
			for _, res := range result.Results {
				if !res.Success() && !errors.Is(res.Error, shared.ErrSave) {
					t.Errorf("expected ErrSave, got %v", res.Error)
				}
			}

			left, err := repo.List(ctx, "")
			if err != nil {
				t.Fatalf("failed to list drafts: %v", err)
			}
			if len(left) != tt.wantLeft {
				t.Errorf("expected %d drafts left, got %d", tt.wantLeft, len(left))
			}

			n := 0
			for u := range progress {
				if u.Phase != PushDraft || u.Total != result.Total {
					t.Errorf("unexpected update %+v", u)
				}
				n++
			}
			if n != result.Total {
				t.Errorf("expected %d progress updates, got %d", result.Total, n)
			}
		})
	}

	t.Run("Saved Payload", func(t *testing.T) {
		repo := setupDrafts(t)
		_ = repo.Put(ctx, "p1", 7, ann, nil)
		saver := &mockSaver{}
		if _, err := PushDrafts(ctx, nil, repo, saver, PushOpts{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := saver.saved["p1/7"]
		if len(got) != 1 || got[0].Class != "car" {
			t.Errorf("unexpected payload %+v", got)
		}
	})

	t.Run("Requires Store And Saver", func(t *testing.T) {
		if _, err := PushDrafts(ctx, nil, nil, &mockSaver{}, PushOpts{}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		repo := setupDrafts(t)
		_ = repo.Put(ctx, "p1", 0, ann, nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		result, err := PushDrafts(cctx, nil, repo, &mockSaver{}, PushOpts{})
		if err == nil {
			t.Fatal("expected cancellation error")
		}
		if result != nil && result.Pushed != 0 {
			t.Errorf("expected nothing pushed, got %d", result.Pushed)
		}
	})
}
