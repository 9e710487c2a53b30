package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// WatchState is the persisted connector-slug -> last-scan-start-time
// map watch mode advances after each successful incremental ingest.
type WatchState struct {
	mu       sync.Mutex
	path     string
	LastScan map[string]time.Time `json:"last_scan"`
}

// LoadWatchState reads path's watch_state.json, returning a fresh empty
// state if the file does not yet exist.
func LoadWatchState(path string) (*WatchState, error) {
	ws := &WatchState{path: path, LastScan: make(map[string]time.Time)}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ws, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read watch state %s: %w", path, err)
	}
	if err := json.Unmarshal(b, ws); err != nil {
		return nil, fmt.Errorf("decode watch state %s: %w", path, err)
	}
	if ws.LastScan == nil {
		ws.LastScan = make(map[string]time.Time)
	}
	return ws, nil
}

// LastScanFor returns the recorded last-scan-start time for slug, or the
// zero time if never scanned.
func (ws *WatchState) LastScanFor(slug string) time.Time {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.LastScan[slug]
}

// Advance records t as slug's new last-scan-start time and persists the
// whole state file by writing a temp file and renaming it into place.
func (ws *WatchState) Advance(slug string, t time.Time) error {
	ws.mu.Lock()
	ws.LastScan[slug] = t
	b, err := json.MarshalIndent(ws, "", "  ")
	ws.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal watch state: %w", err)
	}

	dir := filepath.Dir(ws.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create watch state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".watch_state-*.json")
	if err != nil {
		return fmt.Errorf("create watch state temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write watch state temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close watch state temp file: %w", err)
	}
	if err := os.Rename(tmpPath, ws.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename watch state into place: %w", err)
	}
	return nil
}

// MarshalJSON encodes only LastScan. It does not lock ws.mu: Advance
// calls it (through json.MarshalIndent) while already holding the lock.
func (ws *WatchState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LastScan map[string]time.Time `json:"last_scan"`
	}{LastScan: ws.LastScan})
}
