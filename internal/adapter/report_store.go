package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	m "github.com/mouse-blink/phpguard/internal/model"
)

const indexFileName = "_index.yaml"

// ReportStore persists and retrieves check reports.
type ReportStore interface {
	SaveReports(path m.Path, reports []m.Report) error
	LoadReports(path m.Path) ([]m.Report, error)
	// RegenerateIndex rewrites the summary file from the stored reports.
	RegenerateIndex(path m.Path) error
	// CheckUpdates returns the sources whose stored report is missing or
	// outdated, followed by the sources of stored reports that are not
	// among sources. The latter may still exist outside the given roots.
	CheckUpdates(path m.Path, sources []m.Source) ([]m.Source, error)
	// CleanReports deletes the stored reports of the given sources.
	CleanReports(path m.Path, sources []m.Source) error
}

// LocalReportStore keeps one YAML file per checked PHP file in a directory.
type LocalReportStore struct{}

// NewReportStore constructs a ReportStore implementation.
func NewReportStore() ReportStore {
	return &LocalReportStore{}
}

type sourceYAML struct {
	Path string `yaml:"path"`
	Rel  string `yaml:"rel,omitempty"`
	Kind string `yaml:"kind"`
	Hash string `yaml:"hash"`
}

type findingYAML struct {
	Severity string `yaml:"severity"`
	Message  string `yaml:"message"`
	Line     int    `yaml:"line,omitempty"`
	Check    string `yaml:"check"`
	Code     string `yaml:"code"`
}

type reportYAML struct {
	RunID      string        `yaml:"run_id"`
	Source     sourceYAML    `yaml:"source"`
	GuardFound bool          `yaml:"guard_found"`
	Exempt     bool          `yaml:"exempt"`
	Findings   []findingYAML `yaml:"findings,omitempty"`
}

type indexEntry struct {
	RunID       string       `yaml:"run_id"`
	GeneratedAt time.Time    `yaml:"generated_at"`
	Files       int          `yaml:"files"`
	Guarded     int          `yaml:"guarded"`
	Exempt      int          `yaml:"exempt"`
	Notices     int          `yaml:"notices"`
	Warnings    int          `yaml:"warnings"`
	Fatals      int          `yaml:"fatals"`
	Result      []resultLine `yaml:"result"`
}

type resultLine struct {
	Path   string `yaml:"path"`
	Report string `yaml:"report"`
	Worst  string `yaml:"worst,omitempty"`
}

// SaveReports writes every report to <path>/<hash>.yaml, where hash is
// derived from the checked file's path so a later run overwrites it.
func (rs *LocalReportStore) SaveReports(path m.Path, reports []m.Report) error {
	if path == "" {
		return errors.New("reports directory path is required")
	}

	if err := os.MkdirAll(string(path), 0o750); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}

	for _, r := range reports {
		if r.Source.Origin == nil {
			continue
		}

		data, err := yaml.Marshal(toReportYAML(r))
		if err != nil {
			return fmt.Errorf("marshal report for %s: %w", r.Source.Origin.Path, err)
		}

		file := filepath.Join(string(path), rs.computeReportHash(r.Source.Origin.Path)+".yaml")
		if err := os.WriteFile(file, data, 0o600); err != nil {
			return fmt.Errorf("write report %s: %w", file, err)
		}
	}

	return nil
}

// LoadReports reads every stored report, sorted by file path. A missing
// directory yields no reports.
func (rs *LocalReportStore) LoadReports(path m.Path) ([]m.Report, error) {
	stored, err := rs.readAll(path)
	if err != nil {
		return nil, err
	}

	reports := make([]m.Report, 0, len(stored))

	for _, s := range stored {
		r, err := fromReportYAML(s.data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.file, err)
		}

		reports = append(reports, r)
	}

	return reports, nil
}

// RegenerateIndex summarises the stored reports into _index.yaml. The index
// is removed when no report is left.
func (rs *LocalReportStore) RegenerateIndex(path m.Path) error {
	stored, err := rs.readAll(path)
	if err != nil {
		return err
	}

	indexPath := filepath.Join(string(path), indexFileName)

	if len(stored) == 0 {
		if err := os.Remove(indexPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove index: %w", err)
		}

		return nil
	}

	idx := indexEntry{GeneratedAt: time.Now().UTC()}

	for _, s := range stored {
		r, err := fromReportYAML(s.data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", s.file, err)
		}

		// Run IDs are UUIDv7, so the greatest is the latest run.
		if r.RunID > idx.RunID {
			idx.RunID = r.RunID
		}

		idx.Files++
		idx.Notices += r.Count(m.SeverityNotice)
		idx.Warnings += r.Count(m.SeverityWarning)
		idx.Fatals += r.Count(m.SeverityFatal)

		if r.GuardFound {
			idx.Guarded++
		}

		if r.Exempt {
			idx.Exempt++
		}

		line := resultLine{Path: string(r.Source.Origin.Path), Report: s.file}
		if w := r.Worst(); w != 0 {
			line.Worst = w.String()
		}

		idx.Result = append(idx.Result, line)
	}

	data, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	return os.WriteFile(indexPath, data, 0o600)
}

// CheckUpdates compares the stored reports with sources by content hash.
func (rs *LocalReportStore) CheckUpdates(path m.Path, sources []m.Source) ([]m.Source, error) {
	if path == "" {
		return nil, errors.New("reports directory path is required")
	}

	info, err := os.Stat(string(path))
	if errors.Is(err, os.ErrNotExist) {
		return sources, nil
	}

	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path)
	}

	stored, err := rs.LoadReports(path)
	if err != nil {
		return nil, err
	}

	known := make(map[m.Path]string, len(stored))
	for _, r := range stored {
		known[r.Source.Origin.Path] = r.Source.Origin.Hash
	}

	var changed []m.Source

	current := make(map[m.Path]struct{}, len(sources))

	for _, s := range sources {
		if s.Origin == nil {
			continue
		}

		current[s.Origin.Path] = struct{}{}

		if hash, ok := known[s.Origin.Path]; !ok || hash != s.Origin.Hash {
			changed = append(changed, s)
		}
	}

	for _, r := range stored {
		if _, ok := current[r.Source.Origin.Path]; !ok {
			changed = append(changed, r.Source)
		}
	}

	return changed, nil
}

// CleanReports removes the stored reports of sources and refreshes the index.
func (rs *LocalReportStore) CleanReports(path m.Path, sources []m.Source) error {
	if path == "" {
		return errors.New("reports directory path is required")
	}

	if _, err := os.Stat(string(path)); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	for _, s := range sources {
		if s.Origin == nil {
			continue
		}

		file := filepath.Join(string(path), rs.computeReportHash(s.Origin.Path)+".yaml")
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove report %s: %w", file, err)
		}
	}

	return rs.RegenerateIndex(path)
}

func (rs *LocalReportStore) computeReportHash(origin m.Path) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(string(origin)))
}

type storedReport struct {
	file string
	data reportYAML
}

// readAll decodes every report file in path, sorted by source path.
func (rs *LocalReportStore) readAll(path m.Path) ([]storedReport, error) {
	if path == "" {
		return nil, errors.New("reports directory path is required")
	}

	entries, err := os.ReadDir(string(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read reports directory: %w", err)
	}

	var out []storedReport

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == indexFileName || !strings.HasSuffix(name, ".yaml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(string(path), name))
		if err != nil {
			return nil, fmt.Errorf("read report %s: %w", name, err)
		}

		var r reportYAML
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal report %s: %w", name, err)
		}

		out = append(out, storedReport{file: name, data: r})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].data.Source.Path < out[j].data.Source.Path
	})

	return out, nil
}

func toReportYAML(r m.Report) reportYAML {
	out := reportYAML{
		RunID: r.RunID,
		Source: sourceYAML{
			Path: string(r.Source.Origin.Path),
			Rel:  string(r.Source.Rel),
			Kind: string(r.Source.Kind),
			Hash: r.Source.Origin.Hash,
		},
		GuardFound: r.GuardFound,
		Exempt:     r.Exempt,
	}

	for _, f := range r.Findings {
		out.Findings = append(out.Findings, findingYAML{
			Severity: f.Severity.String(),
			Message:  f.Message,
			Line:     f.Line,
			Check:    f.Check,
			Code:     f.Code,
		})
	}

	return out
}

func fromReportYAML(y reportYAML) (m.Report, error) {
	origin := &m.File{Path: m.Path(y.Source.Path), Hash: y.Source.Hash}

	r := m.Report{
		RunID: y.RunID,
		Source: m.Source{
			Origin: origin,
			Rel:    m.Path(y.Source.Rel),
			Kind:   m.FileKind(y.Source.Kind),
		},
		GuardFound: y.GuardFound,
		Exempt:     y.Exempt,
	}

	for _, f := range y.Findings {
		sev, err := m.ParseSeverity(f.Severity)
		if err != nil {
			return m.Report{}, err
		}

		r.Findings = append(r.Findings, m.Finding{
			Severity: sev,
			Message:  f.Message,
			File:     origin.Path,
			Line:     f.Line,
			Check:    f.Check,
			Code:     f.Code,
		})
	}

	return r, nil
}
