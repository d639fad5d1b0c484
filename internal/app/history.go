package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agis/aical/internal/contract"
)

type historyEntry struct {
	At      time.Time       `json:"at"`
	Type    string          `json:"type"`
	EventID string          `json:"event_id,omitempty"`
	Prev    *contract.Event `json:"prev,omitempty"`
	Next    *contract.Event `json:"next,omitempty"`
	Created *contract.Event `json:"created,omitempty"`
	Deleted *contract.Event `json:"deleted,omitempty"`
}

func historyFilePath() string {
	base := defaultUserConfigPath()
	if strings.TrimSpace(base) == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(base), "history.jsonl")
}

func redoFilePath() string {
	base := defaultUserConfigPath()
	if strings.TrimSpace(base) == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(base), "redo.jsonl")
}

func appendHistory(entry historyEntry) error {
	path := historyFilePath()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	// A fresh write invalidates anything previously undone.
	return clearRedoHistory()
}

func readHistory() ([]historyEntry, error) {
	return readJournal(historyFilePath())
}

func readRedoHistory() ([]historyEntry, error) {
	return readJournal(redoFilePath())
}

func readJournal(path string) ([]historyEntry, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	out := make([]historyEntry, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		var e historyEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// readHistoryPage reads the newest entries without loading the whole journal,
// scanning the file backwards in fixed-size chunks.
func readHistoryPage(limit, offset int) ([]historyEntry, bool, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		return nil, false, fmt.Errorf("offset must be >= 0")
	}
	path := historyFilePath()
	if path == "" {
		return nil, false, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	if info.Size() == 0 {
		return nil, false, nil
	}

	need := limit + offset + 1
	desc := make([]historyEntry, 0, need)
	pos := info.Size()
	remainder := ""
	buf := make([]byte, 8192)
	for pos > 0 && len(desc) < need {
		n := int64(len(buf))
		if n > pos {
			n = pos
		}
		pos -= n
		if _, err := f.ReadAt(buf[:n], pos); err != nil && err != io.EOF {
			return nil, false, err
		}
		chunk := string(buf[:n]) + remainder
		parts := strings.Split(chunk, "\n")
		remainder = parts[0]
		for i := len(parts) - 1; i >= 1 && len(desc) < need; i-- {
			s := strings.TrimSpace(parts[i])
			if s == "" {
				continue
			}
			var e historyEntry
			if err := json.Unmarshal([]byte(s), &e); err != nil {
				continue
			}
			desc = append(desc, e)
		}
	}
	if pos == 0 {
		s := strings.TrimSpace(remainder)
		if s != "" && len(desc) < need {
			var e historyEntry
			if err := json.Unmarshal([]byte(s), &e); err == nil {
				desc = append(desc, e)
			}
		}
	}

	if len(desc) <= offset {
		return nil, false, nil
	}
	end := offset + limit
	if end > len(desc) {
		end = len(desc)
	}
	slice := desc[offset:end]
	out := make([]historyEntry, 0, len(slice))
	for i := len(slice) - 1; i >= 0; i-- {
		out = append(out, slice[i])
	}
	hasMore := len(desc) > end
	return out, hasMore, nil
}

func writeHistory(entries []historyEntry) error {
	return writeJournal(historyFilePath(), entries)
}

func writeRedoHistory(entries []historyEntry) error {
	return writeJournal(redoFilePath(), entries)
}

func clearRedoHistory() error {
	return writeRedoHistory(nil)
}

func writeJournal(path string, entries []historyEntry) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return err
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func undoLastHistory(state *appState, dryRun bool) (historyEntry, map[string]any, error) {
	entries, err := readHistory()
	if err != nil {
		return historyEntry{}, nil, err
	}
	if len(entries) == 0 {
		return historyEntry{}, nil, fmt.Errorf("history is empty")
	}
	last := entries[len(entries)-1]
	meta := map[string]any{"type": last.Type, "event_id": last.EventID}
	if dryRun {
		meta["dry_run"] = true
		return last, meta, nil
	}
	redoEntry := last
	switch last.Type {
	case "add":
		if strings.TrimSpace(last.EventID) == "" {
			return historyEntry{}, nil, fmt.Errorf("invalid add history entry")
		}
		if !state.Store.Remove(last.EventID) {
			return historyEntry{}, nil, fmt.Errorf("event %s no longer exists", last.EventID)
		}
	case "delete":
		if last.Deleted == nil {
			return historyEntry{}, nil, fmt.Errorf("invalid delete history entry")
		}
		// The snapshot carries its original id so later undo/redo entries
		// that reference it keep working.
		restored, err := state.Store.Add(*last.Deleted)
		if err != nil {
			return historyEntry{}, nil, err
		}
		redoEntry.EventID = restored.ID
		redoEntry.Deleted = &restored
	case "update":
		if last.Prev == nil {
			return historyEntry{}, nil, fmt.Errorf("invalid update history entry")
		}
		if _, ok := state.Store.Update(*last.Prev); !ok {
			return historyEntry{}, nil, fmt.Errorf("event %s no longer exists", last.EventID)
		}
	default:
		return historyEntry{}, nil, fmt.Errorf("unsupported history type: %s", last.Type)
	}
	if err := state.Save(); err != nil {
		return historyEntry{}, nil, err
	}
	if err := writeHistory(entries[:len(entries)-1]); err != nil {
		return historyEntry{}, nil, err
	}
	redoEntries, err := readRedoHistory()
	if err != nil {
		return historyEntry{}, nil, err
	}
	redoEntry.At = time.Now().UTC()
	redoEntries = append(redoEntries, redoEntry)
	if err := writeRedoHistory(redoEntries); err != nil {
		return historyEntry{}, nil, err
	}
	meta["undone"] = true
	return last, meta, nil
}

func redoLastHistory(state *appState, dryRun bool) (historyEntry, map[string]any, error) {
	redoEntries, err := readRedoHistory()
	if err != nil {
		return historyEntry{}, nil, err
	}
	if len(redoEntries) == 0 {
		return historyEntry{}, nil, fmt.Errorf("redo history is empty")
	}
	last := redoEntries[len(redoEntries)-1]
	meta := map[string]any{"type": last.Type, "event_id": last.EventID}
	if dryRun {
		meta["dry_run"] = true
		return last, meta, nil
	}
	applied := last
	switch last.Type {
	case "add":
		if last.Created == nil {
			return historyEntry{}, nil, fmt.Errorf("add redo requires created snapshot")
		}
		created, err := state.Store.Add(*last.Created)
		if err != nil {
			return historyEntry{}, nil, err
		}
		applied.EventID = created.ID
		applied.Created = &created
	case "delete":
		if strings.TrimSpace(last.EventID) == "" {
			return historyEntry{}, nil, fmt.Errorf("delete redo missing event id")
		}
		if !state.Store.Remove(last.EventID) {
			return historyEntry{}, nil, fmt.Errorf("event %s no longer exists", last.EventID)
		}
	case "update":
		if last.Next == nil {
			return historyEntry{}, nil, fmt.Errorf("update redo requires next snapshot")
		}
		if _, ok := state.Store.Update(*last.Next); !ok {
			return historyEntry{}, nil, fmt.Errorf("event %s no longer exists", last.EventID)
		}
	default:
		return historyEntry{}, nil, fmt.Errorf("unsupported redo type: %s", last.Type)
	}
	if err := state.Save(); err != nil {
		return historyEntry{}, nil, err
	}
	historyEntries, err := readHistory()
	if err != nil {
		return historyEntry{}, nil, err
	}
	applied.At = time.Now().UTC()
	historyEntries = append(historyEntries, applied)
	if err := writeHistory(historyEntries); err != nil {
		return historyEntry{}, nil, err
	}
	if err := writeRedoHistory(redoEntries[:len(redoEntries)-1]); err != nil {
		return historyEntry{}, nil, err
	}
	meta["redone"] = true
	return applied, meta, nil
}
