package report

import (
	"cmp"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/jadesonbruno/dataquality/rules"
)

//go:embed templates/*.html
var templateFiles embed.FS

var docsTemplates = template.Must(template.New("docs").Funcs(template.FuncMap{
	"inc":      func(i int) int { return i + 1 },
	"observed": formatObserved,
}).ParseFS(templateFiles, "templates/*.html"))

// DocsSink maintains a static "data docs" site on the local filesystem:
//
//	<dir>/index.html                 every run, newest first
//	<dir>/runs/<run>/<suite>.json    the run record
//	<dir>/runs/<run>/<suite>.html    the run page
type DocsSink struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewDocsSink creates a sink writing below dir.
func NewDocsSink(dir string, logger *slog.Logger) *DocsSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DocsSink{dir: dir, logger: logger}
}

func (s *DocsSink) Name() string { return "docs" }

// Dir returns the site root.
func (s *DocsSink) Dir() string { return s.dir }

// IndexPath returns the path of the site index page.
func (s *DocsSink) IndexPath() string {
	return filepath.Join(s.dir, "index.html")
}

func (s *DocsSink) Publish(_ context.Context, r *rules.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runDir := filepath.Join(s.dir, "runs", pathSegment(r.RunName))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	base := filepath.Join(runDir, pathSegment(r.Suite))
	data, err := MarshalRecord(r)
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}
	if err := writeFileAtomic(base+".json", data); err != nil {
		return err
	}

	if err := s.render(base+".html", "run.html", NewRecord(r)); err != nil {
		return err
	}
	if err := s.rebuildIndex(); err != nil {
		return err
	}

	s.logger.Debug("data docs updated", "run", r.RunName, "suite", r.Suite, "dir", s.dir)
	return nil
}

// indexEntry is the part of a run record the index page lists.
type indexEntry struct {
	RunName    string           `json:"run_name"`
	Suite      string           `json:"suite"`
	Source     string           `json:"source"`
	StartedAt  time.Time        `json:"started_at"`
	Success    bool             `json:"success"`
	Statistics rules.Statistics `json:"statistics"`
	Href       string           `json:"-"`
}

// rebuildIndex lists every record under runs/, so results written by
// earlier processes show up too.
func (s *DocsSink) rebuildIndex() error {
	records, err := filepath.Glob(filepath.Join(s.dir, "runs", "*", "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list run records: %w", err)
	}

	entries := make([]indexEntry, 0, len(records))
	for _, path := range records {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read run record: %w", err)
		}
		var e indexEntry
		if err := json.Unmarshal(data, &e); err != nil {
			s.logger.Warn("skipping unreadable run record", "path", path, "error", err)
			continue
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		e.Href = filepath.ToSlash(rel[:len(rel)-len(".json")] + ".html")
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b indexEntry) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Suite, b.Suite)
	})

	return s.render(s.IndexPath(), "index.html", entries)
}

func (s *DocsSink) render(path, name string, data any) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.html")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if err := docsTemplates.ExecuteTemplate(f, name, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// writeFileAtomic writes through a temporary file so readers never see a
// partial record.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

var _ rules.Sink = (*DocsSink)(nil)
