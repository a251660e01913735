package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iksnae/fale-com-deus/internal"
	"gopkg.in/yaml.v3"
)

// IndexFile is the name of the index written next to exported sessions
const IndexFile = "sessions.yaml"

const indexVersion = "1"

// IndexMetadata stores metadata about an export directory
type IndexMetadata struct {
	Format       string    `yaml:"format"`
	IndexVersion string    `yaml:"index_version"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// IndexEntry represents one exported session
type IndexEntry struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	Persona      string `yaml:"persona"`
	Date         string `yaml:"date"`
	MessageCount int    `yaml:"message_count"`
	File         string `yaml:"file"`
}

// Index is the YAML index of an export directory
type Index struct {
	Sessions []IndexEntry `yaml:"sessions"`
	Metadata IndexMetadata `yaml:"metadata"`
}

// Result counts what WriteAll did
type Result struct {
	Written int
	Skipped int
	Failed  int
}

// DirWriter exports sessions into a directory, one file each, and keeps the
// index up to date. Sessions whose exported file is current are skipped.
type DirWriter struct {
	dir      string
	exporter Exporter
	now      func() time.Time
}

// NewDirWriter creates a writer for dir using exporter
func NewDirWriter(dir string, exporter Exporter) *DirWriter {
	return &DirWriter{dir: dir, exporter: exporter, now: time.Now}
}

// Dir returns the export directory
func (d *DirWriter) Dir() string {
	return d.dir
}

// IndexPath returns the path to the index file
func (d *DirWriter) IndexPath() string {
	return filepath.Join(d.dir, IndexFile)
}

// SessionPath returns the path of a session's exported file
func (d *DirWriter) SessionPath(id string) string {
	return filepath.Join(d.dir, sessionFileName(id, d.exporter.Extension()))
}

func sessionFileName(id, ext string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, id)
	return fmt.Sprintf("session_%s.%s", safe, ext)
}

// LoadIndex loads the index. A missing index is returned as os.ErrNotExist.
func (d *DirWriter) LoadIndex() (*Index, error) {
	data, err := os.ReadFile(d.IndexPath())
	if err != nil {
		return nil, err
	}

	var index Index
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &internal.ParseError{Source: "export index", Key: d.IndexPath(), Err: err}
	}
	return &index, nil
}

// SaveIndex writes the index
func (d *DirWriter) SaveIndex(index *Index) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return os.WriteFile(d.IndexPath(), data, 0644)
}

// WriteSession exports a single session and returns the file written
func (d *DirWriter) WriteSession(session internal.ArchivedSession) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", err
	}

	path := d.SessionPath(session.ID)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := d.exporter.Export(session, f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to export session %s: %w", session.ID, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// IsCurrent reports whether index already holds an up to date export of session
func (d *DirWriter) IsCurrent(index *Index, session internal.ArchivedSession) bool {
	if index == nil || index.Metadata.Format != d.exporter.Extension() {
		return false
	}
	want := newIndexEntry(session, d.exporter.Extension())
	for _, entry := range index.Sessions {
		if entry.ID != session.ID {
			continue
		}
		if entry.Date != want.Date || entry.MessageCount != want.MessageCount {
			return false
		}
		_, err := os.Stat(filepath.Join(d.dir, entry.File))
		return err == nil
	}
	return false
}

// WriteAll exports sessions and rewrites the index to list exactly them, in
// order. Unless force is set, sessions already exported unchanged are skipped.
// Individual failures are counted and logged; the rest still export.
func (d *DirWriter) WriteAll(sessions []internal.ArchivedSession, force bool) (Result, error) {
	var result Result

	existing, err := d.LoadIndex()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		internal.LogWarn("Ignoring unreadable export index: %v", err)
		existing = nil
	}

	now := d.now()
	index := &Index{
		Sessions: make([]IndexEntry, 0, len(sessions)),
		Metadata: IndexMetadata{
			Format:       d.exporter.Extension(),
			IndexVersion: indexVersion,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
	if existing != nil && !existing.Metadata.CreatedAt.IsZero() {
		index.Metadata.CreatedAt = existing.Metadata.CreatedAt
	}

	for _, session := range sessions {
		if !force && d.IsCurrent(existing, session) {
			result.Skipped++
			index.Sessions = append(index.Sessions, newIndexEntry(session, d.exporter.Extension()))
			continue
		}
		if _, err := d.WriteSession(session); err != nil {
			internal.LogWarn("Failed to export session %s: %v", session.ID, err)
			result.Failed++
			continue
		}
		result.Written++
		index.Sessions = append(index.Sessions, newIndexEntry(session, d.exporter.Extension()))
	}

	if err := d.SaveIndex(index); err != nil {
		return result, fmt.Errorf("failed to save index: %w", err)
	}
	return result, nil
}

// Clear removes every file listed in the index and the index itself
func (d *DirWriter) Clear() error {
	index, err := d.LoadIndex()
	if err == nil {
		for _, entry := range index.Sessions {
			_ = os.Remove(filepath.Join(d.dir, entry.File))
		}
	}

	if err := os.Remove(d.IndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func newIndexEntry(s internal.ArchivedSession, ext string) IndexEntry {
	return IndexEntry{
		ID:           s.ID,
		Title:        s.Title,
		Persona:      string(s.Persona),
		Date:         internal.FormatTimestamp(s.Date),
		MessageCount: len(s.Turns),
		File:         sessionFileName(s.ID, ext),
	}
}
