package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readFile(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return out
}

func TestOpen_MissingFilePersistsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := store.Get()
	if got.IntervalMinutes != 10 || !got.ShowPopup {
		t.Fatalf("settings=%+v", got)
	}
	if got.Interval() != 10*time.Minute {
		t.Fatalf("interval=%s", got.Interval())
	}

	onDisk := readFile(t, path)
	if onDisk["interval_minutes"] != float64(10) || onDisk["show_popup"] != true {
		t.Fatalf("on disk=%v", onDisk)
	}
}

func TestOpen_FillsOnlyAbsentKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"show_popup": false}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := store.Get()
	if got.ShowPopup || got.IntervalMinutes != 10 {
		t.Fatalf("settings=%+v", got)
	}
	if onDisk := readFile(t, path); onDisk["interval_minutes"] != float64(10) {
		t.Fatalf("on disk=%v", onDisk)
	}
}

func TestOpen_CorruptFileFallsBack(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := store.Get(); got.IntervalMinutes != 10 || !got.ShowPopup {
		t.Fatalf("settings=%+v", got)
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Update(Settings{IntervalMinutes: 0}); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("err=%v", err)
	}
	if err := store.Update(Settings{IntervalMinutes: 3, ShowPopup: false}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := reopened.Get(); got.IntervalMinutes != 3 || got.ShowPopup {
		t.Fatalf("settings=%+v", got)
	}
}

func TestOpen_PreservesUnknownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	src := `{"show_popup": false, "theme": "dark", "window": {"x": 10, "y": 20}}`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Update(Settings{IntervalMinutes: 7}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	onDisk := readFile(t, path)
	if onDisk["theme"] != "dark" {
		t.Fatalf("theme lost: %v", onDisk)
	}
	window, ok := onDisk["window"].(map[string]any)
	if !ok || window["x"] != float64(10) || window["y"] != float64(20) {
		t.Fatalf("window=%v", onDisk["window"])
	}
	if onDisk["interval_minutes"] != float64(7) || onDisk["show_popup"] != false {
		t.Fatalf("on disk=%v", onDisk)
	}
}

func TestOpen_InvalidValueTypeFallsBackPerKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"interval_minutes": "soon", "show_popup": false}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := store.Get(); got.IntervalMinutes != 10 || got.ShowPopup {
		t.Fatalf("settings=%+v", got)
	}
}
