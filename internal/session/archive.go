package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileArchiver writes removed sessions as JSONL transcripts:
//
//	Line 1:  {"_type":"metadata","key":"…","created_at":"…","archived_at":"…","reason":"…"}
//	Line 2+: one JSON message per line
//
// A conversation archived twice keeps both transcripts; the second gets a
// timestamp suffix.
type FileArchiver struct {
	dir string
	now func() time.Time
}

var _ Archiver = (*FileArchiver)(nil)

// NewFileArchiver creates dir if necessary.
func NewFileArchiver(dir string) (*FileArchiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FileArchiver{dir: dir, now: time.Now}, nil
}

// Archive implements Archiver. Empty sessions are skipped.
func (a *FileArchiver) Archive(s *Session, reason Reason) error {
	if s.Messages.Len() == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	now := a.now().UTC()
	meta := map[string]any{
		"_type":       "metadata",
		"key":         s.ID,
		"created_at":  s.CreatedAt.UTC().Format(time.RFC3339),
		"archived_at": now.Format(time.RFC3339),
		"reason":      reason,
	}
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	for _, msg := range s.Messages.Messages {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
	}

	path := a.pathFor(s.ID)
	if _, err := os.Stat(path); err == nil {
		path = strings.TrimSuffix(path, ".jsonl") + "_" + now.Format("20060102T150405") + ".jsonl"
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write archive %s: %w", path, err)
	}
	return nil
}

// ArchiveInfo describes one transcript on disk.
type ArchiveInfo struct {
	Key        string
	Reason     string
	ArchivedAt string
	Path       string
}

// List returns the archived transcripts, newest first.
func (a *FileArchiver) List() []ArchiveInfo {
	entries, _ := filepath.Glob(filepath.Join(a.dir, "*.jsonl"))
	var out []ArchiveInfo

	for _, path := range entries {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		if scanner.Scan() {
			var data map[string]any
			if json.Unmarshal(scanner.Bytes(), &data) == nil && data["_type"] == "metadata" {
				key, _ := data["key"].(string)
				reason, _ := data["reason"].(string)
				at, _ := data["archived_at"].(string)
				out = append(out, ArchiveInfo{Key: key, Reason: reason, ArchivedAt: at, Path: path})
			}
		}
		f.Close()
	}

	// RFC 3339 timestamps sort lexicographically.
	sort.SliceStable(out, func(i, j int) bool { return out[i].ArchivedAt > out[j].ArchivedAt })
	return out
}

func (a *FileArchiver) pathFor(id string) string {
	name := safeFilename(strings.ReplaceAll(id, ":", "_"))
	if name == "" {
		name = "_"
	}
	return filepath.Join(a.dir, name+".jsonl")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) || r < 0x20 {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
