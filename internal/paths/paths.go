// Package paths resolves platform-specific root directories: the $DATA_DIR
// the core's own stores live under, and the per-connector source roots each
// adapter scans. Generalized from the teacher's internal/detect.go, which
// only knew about one agent (Cursor).
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir resolves $DATA_DIR: the env var if set, otherwise the OS default
// data directory for this tool.
func DataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if v := os.Getenv("CONVOINDEX_DATA_DIR"); v != "" {
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library/Application Support/convoindex"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "convoindex"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "convoindex"), nil
	default: // linux and friends
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "convoindex"), nil
		}
		return filepath.Join(home, ".local", "share", "convoindex"), nil
	}
}

// StorePath is the relational store file under a data directory.
func StorePath(dataDir string) string { return filepath.Join(dataDir, "store.db") }

// IndexDir is the full-text index directory under a data directory.
func IndexDir(dataDir string) string { return filepath.Join(dataDir, "ftsindex") }

// SchemaHashMarkerPath is the ftsindex schema-hash marker file.
func SchemaHashMarkerPath(dataDir string) string {
	return filepath.Join(IndexDir(dataDir), ".schema-hash")
}

// WatchStatePath is the persisted connector-slug -> last-scan-time map.
func WatchStatePath(dataDir string) string { return filepath.Join(dataDir, "watch_state.json") }

// TUIStatePath is the consumer-owned TUI state file; the core never reads
// it, but owns the stable path so the out-of-scope TUI and this core agree
// on where it lives.
func TUIStatePath(dataDir string) string { return filepath.Join(dataDir, "tui_state.json") }

// LogFilePath is the rotating log file path.
func LogFilePath(dataDir string) string { return filepath.Join(dataDir, "convoindex.log") }

// ConfigFilePath is the optional config.toml.
func ConfigFilePath(dataDir string) string { return filepath.Join(dataDir, "config.toml") }

// Home returns the user's home directory, used by every connector root
// below.
func Home() (string, error) { return os.UserHomeDir() }

// Roots holds the well-known source roots for every connector, per
// spec.md §6's source-layout table. Not all roots exist on every host;
// Detect() on each connector is responsible for checking existence.
type Roots struct {
	CodexSessions        string
	ClineGlobalStorage   string
	GeminiTmp            string
	ClaudeProjects       string
	ClaudeConfigJSON     string
	OpenCodeLocal        string // relative to cwd/project, resolved per-scan
	AmpVSCodeStorage     string
	AmpLocalShare        string
	CursorWorkspace      string
	CursorGlobalStorage  string
	CursorAgentStorage   string
	ChatGPTAppSupport    string
	AiderGlobalHistory   string
}

// DetectRoots builds the Roots table for the current OS. Connectors still
// verify existence individually; this only computes the conventional
// paths.
func DetectRoots() (Roots, error) {
	home, err := Home()
	if err != nil {
		return Roots{}, err
	}

	var r Roots
	r.CodexSessions = filepath.Join(home, ".codex", "sessions")
	r.GeminiTmp = filepath.Join(home, ".gemini", "tmp")
	r.ClaudeProjects = filepath.Join(home, ".claude", "projects")
	r.ClaudeConfigJSON = filepath.Join(home, ".claude.json")
	r.AmpLocalShare = filepath.Join(home, ".local", "share", "amp")
	r.AiderGlobalHistory = filepath.Join(home, ".aider.chat.history.md")

	switch runtime.GOOS {
	case "darwin":
		appSupport := filepath.Join(home, "Library", "Application Support")
		r.CursorWorkspace = filepath.Join(appSupport, "Cursor", "User", "workspaceStorage")
		r.CursorGlobalStorage = filepath.Join(appSupport, "Cursor", "User", "globalStorage")
		r.ChatGPTAppSupport = filepath.Join(appSupport, "com.openai.chat")
		r.ClineGlobalStorage = filepath.Join(appSupport, "Code", "User", "globalStorage", "saoudrizwan.claude-dev")
		r.AmpVSCodeStorage = filepath.Join(appSupport, "Code", "User", "globalStorage", "sourcegraph.amp")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		r.CursorWorkspace = filepath.Join(appData, "Cursor", "User", "workspaceStorage")
		r.CursorGlobalStorage = filepath.Join(appData, "Cursor", "User", "globalStorage")
		r.ClineGlobalStorage = filepath.Join(appData, "Code", "User", "globalStorage", "saoudrizwan.claude-dev")
		r.AmpVSCodeStorage = filepath.Join(appData, "Code", "User", "globalStorage", "sourcegraph.amp")
	default: // linux
		r.CursorWorkspace = filepath.Join(home, ".config", "Cursor", "User", "workspaceStorage")
		r.CursorGlobalStorage = filepath.Join(home, ".config", "Cursor", "User", "globalStorage")
		r.ClineGlobalStorage = filepath.Join(home, ".config", "Code", "User", "globalStorage", "saoudrizwan.claude-dev")
		r.AmpVSCodeStorage = filepath.Join(home, ".config", "Code", "User", "globalStorage", "sourcegraph.amp")

		configCursorChats := filepath.Join(home, ".config", "cursor", "chats")
		dotCursorChats := filepath.Join(home, ".cursor", "chats")
		if info, err := os.Stat(configCursorChats); err == nil && info.IsDir() {
			r.CursorAgentStorage = configCursorChats
		} else {
			r.CursorAgentStorage = dotCursorChats
		}
	}

	return r, nil
}

// Exists is a small existence-check helper shared by every connector's
// Detect().
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
