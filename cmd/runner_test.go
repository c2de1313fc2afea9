package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/repositories"
	"github.com/desertthunder/framelabel/internal/server"
	"github.com/desertthunder/framelabel/internal/services"
	"github.com/desertthunder/framelabel/internal/shared"
	tu "github.com/desertthunder/framelabel/internal/testing"
	"github.com/urfave/cli/v3"
)

// fixture is a runner wired to an in-memory dev server and database.
type fixture struct {
	srv     *server.DevServer
	ts      *httptest.Server
	db      *sql.DB
	output  *bytes.Buffer
	config  *shared.Config
	project string
}

func newFixture(t *testing.T, opts server.DevServerOpts) *fixture {
	t.Helper()

	srv := server.NewDevServer(opts)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.Server.BaseURL = ts.URL
	config.Export.PollIntervalMS = 5

	return &fixture{
		srv:     srv,
		ts:      ts,
		db:      db,
		output:  &bytes.Buffer{},
		config:  config,
		project: srv.Seed("demo", 5),
	}
}

func (f *fixture) runner(client *http.Client) *Runner {
	if client == nil {
		client = f.ts.Client()
	}
	return NewRunner(RunnerOpts{
		Config:     f.config,
		API:        services.NewAPIService(f.ts.URL, client),
		HTTPClient: client,
		Logger:     shared.NewLogger(&bytes.Buffer{}),
		Output:     f.output,
		DB:         f.db,
	})
}

// run executes args against a freshly registered command tree, so flag state never leaks between runs.
func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()
	f.output.Reset()
	r := f.runner(nil)
	app := &cli.Command{Name: "framelabel", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"framelabel"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			api := services.NewAPIService("http://example.test", httpClient)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				API:        api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Fatal("expected default config to be set")
			}
			if runner.config.Server.BaseURL == "" {
				t.Error("expected default server URL")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil api builds one from config", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Server.BaseURL = "http://annotations.test/"
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.api == nil {
				t.Fatal("expected api to be set")
			}
			if got := runner.api.BaseURL(); got != "http://annotations.test" {
				t.Errorf("expected base URL without trailing slash, got %s", got)
			}
		})

		t.Run("with DB skips opening the configured database", func(t *testing.T) {
			db, err := shared.NewDatabase(":memory:")
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			defer db.Close()

			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "missing", "dir", "never.db")
			runner := NewRunner(RunnerOpts{Config: config, DB: db})

			if err := runner.store(); err != nil {
				t.Fatalf("expected provided database to be used, got %v", err)
			}
			if runner.drafts == nil || runner.history == nil {
				t.Error("expected repositories to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writePlainln surrounds the line with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "\ndone\n" {
				t.Errorf("expected %q, got %q", "\ndone\n", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		seen := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if seen[cmd.Name] {
				t.Errorf("command %s registered twice", cmd.Name)
			}
			seen[cmd.Name] = true
		}

		for _, name := range []string{
			"annotate", "annotations", "export", "upload", "stats", "history", "drafts", "api", "setup", "dev-server", "auth",
		} {
			if !seen[name] {
				t.Errorf("expected %s command to be registered", name)
			}
		}
	})
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name        string
		project     string
		link        string
		frame       int
		wantProject string
		wantFrame   int
		wantErr     error
	}{
		{name: "project only", project: "p-1", frame: -1, wantProject: "p-1", wantFrame: -1},
		{name: "project and frame", project: "p-1", frame: 3, wantProject: "p-1", wantFrame: 3},
		{name: "link with frame", link: "http://localhost:5000/annotate/p-2?frame=7", frame: -1, wantProject: "p-2", wantFrame: 7},
		{name: "link without frame", link: "http://localhost:5000/annotate/p-2", frame: -1, wantProject: "p-2", wantFrame: -1},
		{name: "flag overrides link frame", link: "http://localhost:5000/annotate/p-2?frame=7", frame: 1, wantProject: "p-2", wantFrame: 1},
		{name: "matching project and link", project: "p-2", link: "/annotate/p-2?frame=2", frame: -1, wantProject: "p-2", wantFrame: 2},
		{name: "conflicting project and link", project: "p-1", link: "/annotate/p-2", frame: -1, wantErr: shared.ErrInvalidArgument},
		{name: "bad link", link: "http://localhost:5000/projects/p-2", frame: -1, wantErr: shared.ErrInvalidFlag},
		{name: "nothing", frame: -1, wantErr: shared.ErrMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, frame, err := resolveTarget(tt.project, tt.link, tt.frame)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if project != tt.wantProject || frame != tt.wantFrame {
				t.Errorf("expected %s@%d, got %s@%d", tt.wantProject, tt.wantFrame, project, frame)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("stats", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})

		if err := f.run(t, "stats", "--json", f.project); err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if !strings.Contains(f.output.String(), `"total_frames": 5`) {
			t.Errorf("expected total frames in output, got %s", f.output.String())
		}

		if err := f.run(t, "stats", f.project); err != nil {
			t.Fatalf("stats table failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "Total frames") {
			t.Errorf("expected table output, got %s", f.output.String())
		}
	})

	t.Run("stats of unknown project", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})

		err := f.run(t, "stats", "nope")
		if !errors.Is(err, shared.ErrProjectNotFound) {
			t.Errorf("expected ErrProjectNotFound, got %v", err)
		}
	})

	t.Run("stats without project", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})

		if err := f.run(t, "stats"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("projects", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})

		if err := f.run(t, "projects", "--json"); err != nil {
			t.Fatalf("projects failed: %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, f.project) || !strings.Contains(out, `"project_name": "demo"`) {
			t.Errorf("expected seeded project, got %s", out)
		}
	})

	t.Run("projects sorted", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		zeta := f.srv.Seed("zeta", 2)
		if err := f.srv.Store().SaveAnnotations(zeta, 0, []models.Annotation{{ID: "a", Class: "car"}}); err != nil {
			t.Fatalf("failed to seed annotations: %v", err)
		}

		tests := []struct {
			sort string
			want []string
		}{
			{"name", []string{f.project, zeta}},
			{"progress", []string{zeta, f.project}},
		}
		for _, tt := range tests {
			if err := f.run(t, "projects", "--json", "--sort", tt.sort); err != nil {
				t.Fatalf("projects --sort %s failed: %v", tt.sort, err)
			}
			var got []models.Project
			if err := json.Unmarshal(f.output.Bytes(), &got); err != nil {
				t.Fatalf("invalid JSON output: %v", err)
			}
			if len(got) != 2 || got[0].ID != tt.want[0] || got[1].ID != tt.want[1] {
				t.Errorf("--sort %s: expected %v, got %+v", tt.sort, tt.want, got)
			}
		}

		if err := f.run(t, "projects", "--sort", "frames"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("projects delete", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		history := repositories.NewHistoryRepository(f.db)
		if err := history.Record(ctx, f.project, 2, 5); err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		if err := f.run(t, "projects", "delete", f.project); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "Deleted project "+f.project) {
			t.Errorf("expected confirmation, got %s", f.output.String())
		}
		if len(f.srv.Store().Projects()) != 0 {
			t.Error("expected the project to be gone from the server")
		}
		if _, err := history.Last(ctx, f.project); !errors.Is(err, shared.ErrProjectNotFound) {
			t.Errorf("expected history of the deleted project to be forgotten, got %v", err)
		}

		if err := f.run(t, "projects", "delete", f.project); !errors.Is(err, shared.ErrProjectNotFound) {
			t.Errorf("expected ErrProjectNotFound, got %v", err)
		}
		if err := f.run(t, "projects", "delete"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("annotations delete", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		list := []models.Annotation{{ID: "a", Class: "car"}, {ID: "b", Class: "bus"}}
		if err := f.srv.Store().SaveAnnotations(f.project, 2, list); err != nil {
			t.Fatalf("failed to seed annotations: %v", err)
		}

		if err := f.run(t, "annotations", "delete", "--frame", "2", f.project, "a"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		api := services.NewAPIService(f.ts.URL, f.ts.Client())
		if got, _ := api.LoadAnnotations(ctx, f.project, 2); len(got) != 1 || got[0].ID != "b" {
			t.Errorf("expected only b to remain, got %+v", got)
		}

		if err := f.run(t, "annotations", "delete", "--frame", "2", f.project, "a"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for an unknown id, got %v", err)
		}
		if err := f.run(t, "annotations", "delete", "--frame", "2", f.project); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("annotations dump", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		api := services.NewAPIService(f.ts.URL, f.ts.Client())
		list := []models.Annotation{{ID: "a", X: 10, Y: 20, Width: 30, Height: 40, Class: "car"}}
		if err := api.SaveAnnotations(ctx, f.project, 1, list); err != nil {
			t.Fatalf("failed to seed annotations: %v", err)
		}

		path := filepath.Join(t.TempDir(), "out", "dump.csv")
		if err := f.run(t, "annotations", "dump", "-f", "csv", "-o", path, "--from", "1", f.project); err != nil {
			t.Fatalf("dump failed: %v", err)
		}

		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "1,a,car,10,20,30,40") {
			t.Errorf("expected annotation row, got %s", content)
		}
		if !strings.Contains(f.output.String(), "1 annotation(s) from 4 frame(s)") {
			t.Errorf("expected summary line, got %s", f.output.String())
		}
	})

	t.Run("annotations dump rejects an empty range", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})

		err := f.run(t, "annotations", "dump", "--from", "4", "--to", "2", f.project)
		if !errors.Is(err, shared.ErrFrameOutOfRange) {
			t.Errorf("expected ErrFrameOutOfRange, got %v", err)
		}
	})

	t.Run("export estimate", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})

		if err := f.run(t, "export", "estimate", "--json", "-f", "yolo", "-q", "80", f.project); err != nil {
			t.Fatalf("estimate failed: %v", err)
		}
		// 5 × (0.8 × 200 + 5)
		if !strings.Contains(f.output.String(), `"EstimatedKB": 825`) {
			t.Errorf("expected 825 KB estimate, got %s", f.output.String())
		}
	})

	t.Run("export estimate rejects bad flags", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})

		for _, args := range [][]string{
			{"export", "estimate", "-f", "tiff", f.project},
			{"export", "estimate", "--frames", "some", f.project},
			{"export", "estimate", "-q", "0", f.project},
		} {
			if err := f.run(t, args...); !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("%v: expected ErrInvalidFlag, got %v", args, err)
			}
		}
	})

	t.Run("export run downloads the archive", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{ExportStep: 50})
		path := filepath.Join(t.TempDir(), "dataset.zip")

		if err := f.run(t, "export", "run", "-f", "coco", "-o", path, f.project); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(f.output.String(), "Export saved to "+path) {
			t.Errorf("expected saved line, got %s", f.output.String())
		}
	})

	t.Run("export run reports a failed job", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{ExportStep: 50, FailExports: "disk full"})

		err := f.run(t, "export", "run", "-o", filepath.Join(t.TempDir(), "x.zip"), f.project)
		if !errors.Is(err, shared.ErrExportFailed) {
			t.Fatalf("expected ErrExportFailed, got %v", err)
		}
	})

	t.Run("upload run", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		video := filepath.Join(t.TempDir(), "clip.mp4")
		tu.MustWriteSized(t, video, 1<<20)

		if err := f.run(t, "upload", "run", "-n", "street", "-i", "0.5", video); err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "Project created!") || !strings.Contains(out, f.ts.URL+"/annotate/") {
			t.Errorf("expected created project and link, got %s", out)
		}

		found := false
		for _, p := range f.srv.Store().Projects() {
			if p.Name == "street" {
				found = true
			}
		}
		if !found {
			t.Error("expected project to be created on the server")
		}
	})

	t.Run("upload run rejects unsupported files", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		notes := filepath.Join(t.TempDir(), "notes.txt")
		tu.MustWriteSized(t, notes, 10)

		if err := f.run(t, "upload", "run", notes); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("drafts list push and discard", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		drafts := repositories.NewDraftRepository(f.db)
		list := []models.Annotation{{ID: "d", X: 1, Y: 2, Width: 3, Height: 4, Class: "dog"}}
		if err := drafts.Put(ctx, f.project, 2, list, errors.New("connection refused")); err != nil {
			t.Fatalf("failed to seed draft: %v", err)
		}

		if err := f.run(t, "drafts", "list", "--json"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "connection refused") {
			t.Errorf("expected draft in listing, got %s", f.output.String())
		}

		if err := f.run(t, "drafts", "push", "--rate", "100"); err != nil {
			t.Fatalf("push failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "Pushed 1 of 1") {
			t.Errorf("expected push summary, got %s", f.output.String())
		}

		saved, err := f.srv.Store().Annotations(f.project, 2)
		if err != nil || len(saved) != 1 || saved[0].Class != "dog" {
			t.Errorf("expected draft on the server, got %v (%v)", saved, err)
		}

		if err := f.run(t, "drafts", "list"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "No drafts") {
			t.Errorf("expected empty listing, got %s", f.output.String())
		}

		err = f.run(t, "drafts", "discard", "--frame", "2", f.project)
		if !errors.Is(err, shared.ErrDraftNotFound) {
			t.Errorf("expected ErrDraftNotFound, got %v", err)
		}
	})

	t.Run("drafts push keeps failures", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		drafts := repositories.NewDraftRepository(f.db)
		if err := drafts.Put(ctx, "gone", 0, nil, errors.New("timeout")); err != nil {
			t.Fatalf("failed to seed draft: %v", err)
		}

		err := f.run(t, "drafts", "push", "--rate", "100")
		if !errors.Is(err, shared.ErrSave) {
			t.Fatalf("expected ErrSave, got %v", err)
		}

		left, err := drafts.List(ctx, "gone")
		if err != nil || len(left) != 1 {
			t.Errorf("expected the draft to be kept, got %v (%v)", left, err)
		}
	})

	t.Run("history", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		history := repositories.NewHistoryRepository(f.db)
		if err := history.Record(ctx, f.project, 3, 5); err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		if err := f.run(t, "history"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if link := models.DeepLink(f.ts.URL, f.project, 3); !strings.Contains(f.output.String(), link) {
			t.Errorf("expected %s in output, got %s", link, f.output.String())
		}

		if err := f.run(t, "history", "--forget", f.project); err != nil {
			t.Fatalf("forget failed: %v", err)
		}
		if err := f.run(t, "history"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "No projects visited yet") {
			t.Errorf("expected empty history, got %s", f.output.String())
		}
	})

	t.Run("api get and post", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})

		if err := f.run(t, "api", "get", "/api/project/"+f.project+"/stats"); err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !strings.Contains(f.output.String(), `"total_frames":5`) {
			t.Errorf("expected compact JSON, got %s", f.output.String())
		}

		body := `{"annotations":[{"id":"x","x":1,"y":1,"width":2,"height":2,"class":"cat"}]}`
		if err := f.run(t, "api", "post", "-d", body, "/api/annotations/"+f.project+"/0"); err != nil {
			t.Fatalf("post failed: %v", err)
		}
		saved, _ := f.srv.Store().Annotations(f.project, 0)
		if len(saved) != 1 {
			t.Errorf("expected posted annotation to be stored, got %v", saved)
		}

		if err := f.run(t, "api", "post", "-d", "{nope", "/api/annotations/"+f.project+"/0"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := f.run(t, "api", "get", "/api/project/nope/stats"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}

		for _, path := range []string{"api/projects", f.ts.URL + "/api/projects"} {
			if err := f.run(t, "api", "get", path); err != nil {
				t.Fatalf("get %s failed: %v", path, err)
			}
			if !strings.Contains(f.output.String(), f.project) {
				t.Errorf("expected %s to resolve to /api/projects, got %s", path, f.output.String())
			}
		}
		if err := f.run(t, "api", "get"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("auth status", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{Token: "secret"})

		r := f.runner(nil)
		app := &cli.Command{Name: "framelabel", Commands: r.register()}
		err := app.Run(ctx, []string{"framelabel", "auth", "status"})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated without token, got %v", err)
		}

		f.config.Server.Token = "secret"
		f.output.Reset()
		r = f.runner(services.NewHTTPClient(ctx, "secret", 0))
		app = &cli.Command{Name: "framelabel", Commands: r.register()}
		if err := app.Run(ctx, []string{"framelabel", "auth", "status"}); err != nil {
			t.Fatalf("expected healthy status with token, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Token: configured") || !strings.Contains(f.output.String(), "Service is healthy") {
			t.Errorf("unexpected output %s", f.output.String())
		}
	})

	t.Run("setup config and database", func(t *testing.T) {
		f := newFixture(t, server.DevServerOpts{})
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")

		if err := f.run(t, "setup", "config", "-c", configPath); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, configPath)

		if err := f.run(t, "setup", "config", "-c", configPath); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected error for existing config, got %v", err)
		}

		dbPath := filepath.Join(dir, "local.db")
		content := strings.Replace(tu.MustReadFile(t, configPath), `path = "./framelabel.db"`, `path = "`+filepath.ToSlash(dbPath)+`"`, 1)
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to rewrite config: %v", err)
		}

		if err := f.run(t, "setup", "database", "-c", configPath); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, dbPath)

		db, err := shared.NewDatabase(dbPath)
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer db.Close()
		if _, err := repositories.Count(db, "drafts"); err != nil {
			t.Errorf("expected drafts table after migrations: %v", err)
		}
	})
}
