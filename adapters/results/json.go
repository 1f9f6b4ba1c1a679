// Package results writes run reports to files: the JSON result list, a run
// manifest, spreadsheets and human readable reports.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/domain/weat"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/ports"
)

// File suffixes written next to each other in the results directory
const (
	ResultsExt  = ".json"
	ManifestExt = ".manifest.json"
)

// JSONWriter writes "<experiment id>.json", a list with one entry per test,
// and "<experiment id>.manifest.json".
type JSONWriter struct {
	dir    string
	logger *internal.Logger
}

var _ ports.ResultSink = (*JSONWriter)(nil)

// NewJSONWriter creates a writer for dir
func NewJSONWriter(dir string, logger *internal.Logger) *JSONWriter {
	return &JSONWriter{dir: dir, logger: logger.OrDefault().With("results/json")}
}

func (w *JSONWriter) Name() string { return "json" }

// ResultsPath returns where the results of an experiment are written
func (w *JSONWriter) ResultsPath(id core.ExperimentID) string {
	return filepath.Join(w.dir, id.String()+ResultsExt)
}

func (w *JSONWriter) Write(ctx context.Context, report *run.Report) error {
	if report == nil || report.Manifest == nil {
		return fmt.Errorf("report has no manifest")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", w.dir, err)
	}

	entries := report.Entries
	if entries == nil {
		entries = []weat.Entry{}
	}
	path := w.ResultsPath(report.Manifest.ExperimentID)
	if err := writeJSON(path, entries); err != nil {
		return err
	}
	manifest := filepath.Join(w.dir, report.Manifest.ExperimentID.String()+ManifestExt)
	if err := writeJSON(manifest, report.Manifest); err != nil {
		return err
	}
	w.logger.Info("wrote %d entries to %s", len(entries), path)
	return nil
}

// ReadEntries reads a results file written by JSONWriter
func ReadEntries(path string) ([]weat.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []weat.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

// writeJSON writes v with four space indentation through a temp file so a
// crash never leaves a truncated result behind
func writeJSON(path string, v interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
