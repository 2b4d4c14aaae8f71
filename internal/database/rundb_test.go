package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/oabscraper/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newResult(label string, persisted bool, kind model.FailureKind) model.RecordResult {
	res := model.RecordResult{
		Page:      1,
		Ref:       model.RecordRef{Label: label, URL: "https://example.com/" + label},
		Challenge: model.ChallengeSatisfied,
		Persisted: persisted,
		Kind:      kind,
		Duration:  1500 * time.Millisecond,
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if !persisted {
		res.Step = "extract"
		res.Message = "extract fields: no rows"
		res.Challenge = model.ChallengeAudioPending
	}
	return res
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative error, got %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		_ = db2.Close()
	})
}

// TestRunLifecycle tests starting, filling and finishing a run.
func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	report := model.NewRunReport("https://example.com/lista", "lawyers.xlsx")
	id, err := db.StartRun(ctx, report)
	if err != nil {
		t.Fatalf("StartRun() error: %v", err)
	}
	if id == 0 || report.RunID != id {
		t.Fatalf("expected run id to be set, got %d / %d", id, report.RunID)
	}

	sink := db.Sink(id)
	results := []model.RecordResult{
		newResult("ANA", true, model.KindNone),
		newResult("BRUNO", false, model.KindExtraction),
		newResult("CARLA", true, model.KindNone),
	}
	for _, res := range results {
		report.AddResult(res)
		if err := sink.RecordResult(ctx, res); err != nil {
			t.Fatalf("RecordResult() error: %v", err)
		}
	}
	report.LastPage = 3
	report.PagesVisited = 2
	report.AddPageFailure(2)
	report.Finish()

	if err := db.FinishRun(ctx, report); err != nil {
		t.Fatalf("FinishRun() error: %v", err)
	}

	t.Run("GetRun restores counters and failures", func(t *testing.T) {
		got, err := db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("GetRun() error: %v", err)
		}
		if got.Processed != 3 || got.Persisted != 2 || got.FailedCount() != 1 {
			t.Errorf("unexpected counters: %+v", got)
		}
		if diff := cmp.Diff([]int{2}, got.PagesFailed); diff != "" {
			t.Errorf("failed pages mismatch (-want +got):\n%s", diff)
		}
		if got.BaseURL != report.BaseURL || got.OutputFile != report.OutputFile {
			t.Errorf("unexpected run identity: %+v", got)
		}
		if !got.StartedAt.Equal(report.StartedAt) || !got.FinishedAt.Equal(report.FinishedAt) {
			t.Errorf("timestamps not restored: %v / %v", got.StartedAt, got.FinishedAt)
		}
		if diff := cmp.Diff([]model.RecordResult{results[1]}, got.Failures); diff != "" {
			t.Errorf("failures mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("GetRecordResults keeps insertion order", func(t *testing.T) {
		got, err := db.GetRecordResults(ctx, id, false)
		if err != nil {
			t.Fatalf("GetRecordResults() error: %v", err)
		}
		if diff := cmp.Diff(results, got); diff != "" {
			t.Errorf("results mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("GetRecordResults can filter failures", func(t *testing.T) {
		got, err := db.GetRecordResults(ctx, id, true)
		if err != nil {
			t.Fatalf("GetRecordResults() error: %v", err)
		}
		if len(got) != 1 || got[0].Ref.Label != "BRUNO" {
			t.Errorf("expected only BRUNO, got %+v", got)
		}
	})
}

// TestListRuns tests run listing.
func TestListRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	for i := 0; i < 3; i++ {
		report := model.NewRunReport("https://example.com/lista", "lawyers.xlsx")
		if _, err := db.StartRun(ctx, report); err != nil {
			t.Fatalf("StartRun() error: %v", err)
		}
		report.AddResult(newResult("ANA", true, model.KindNone))
		if i == 2 {
			report.Abort(errors.New("interrupted"))
		}
		report.Finish()
		if err := db.FinishRun(ctx, report); err != nil {
			t.Fatalf("FinishRun() error: %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns() error: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID <= runs[1].ID || runs[1].ID <= runs[2].ID {
			t.Errorf("expected descending ids, got %d %d %d", runs[0].ID, runs[1].ID, runs[2].ID)
		}
		if !runs[0].Aborted || runs[1].Aborted {
			t.Error("expected only the newest run to be aborted")
		}
		if runs[0].Processed != 1 || runs[0].Persisted != 1 {
			t.Errorf("unexpected counters: %+v", runs[0])
		}
	})

	t.Run("limit", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("ListRuns() error: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs, got %d", len(runs))
		}
	})
}

// TestGetRunNotFound tests the missing-run error.
func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	_, err := db.GetRun(context.Background(), 42)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	report := model.NewRunReport("https://example.com", "out.xlsx")
	report.RunID = 42
	if err := db.FinishRun(context.Background(), report); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound from FinishRun, got %v", err)
	}
}

// TestParseTimestamp tests timestamp parsing with multiple formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"RFC3339Nano", "2024-01-15T10:30:45.123456789Z", time.Date(2024, 1, 15, 10, 30, 45, 123456789, time.UTC)},
		{"SQLite default", "2024-01-15 10:30:45", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)},
		{"empty", "", time.Time{}},
		{"invalid", "not a date", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		if got := parseTimestamp(formatTimestamp(now)); !got.Equal(now) {
			t.Errorf("expected %v, got %v", now, got)
		}
	})
}
