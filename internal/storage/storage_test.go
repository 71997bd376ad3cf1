package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"edumonitor/internal/models"
)

func TestReportStorage_SaveAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "latest_report.json")
	store, err := NewReportStorage(path)
	if err != nil {
		t.Fatalf("NewReportStorage: %v", err)
	}
	if _, ok := store.Latest(); ok {
		t.Fatal("fresh storage has a report")
	}

	checkedAt := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	report := models.Report{
		Checked:   2,
		CheckedAt: checkedAt,
		Failures: []models.ProbeOutcome{{
			Name: "B", URL: "http://fail.test", Category: models.CategoryTimeout,
			RawError: "context deadline exceeded", Attempts: 2,
		}},
	}
	if err := store.Save(report); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := NewReportStorage(path)
	if err != nil {
		t.Fatalf("NewReportStorage: %v", err)
	}
	got, ok := reopened.Latest()
	if !ok {
		t.Fatal("report not persisted")
	}
	if !got.CheckedAt.Equal(checkedAt) || len(got.Failures) != 1 || got.Failures[0].Category != models.CategoryTimeout {
		t.Fatalf("got=%+v", got)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestReportStorage_KeepsOnlyLatest(t *testing.T) {
	t.Parallel()

	store, err := NewReportStorage(filepath.Join(t.TempDir(), "latest.json"))
	if err != nil {
		t.Fatalf("NewReportStorage: %v", err)
	}
	_ = store.Save(models.Report{Checked: 1})
	_ = store.Save(models.Report{NetworkError: true})

	got, _ := store.Latest()
	if !got.NetworkError || got.Checked != 0 {
		t.Fatalf("got=%+v", got)
	}
}

func TestReportStorage_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "latest.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewReportStorage(path); err == nil {
		t.Fatal("expected parse error")
	}
}
