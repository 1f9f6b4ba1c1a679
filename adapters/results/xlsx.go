package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/ports"
)

const (
	resultsSheet  = "Results"
	manifestSheet = "Manifest"
)

var resultsHeader = []interface{}{"test", "embedding_model", "seed", "effect_size", "p_value", "error_kind", "error"}

// XLSXWriter writes "<experiment id>.xlsx" with a results sheet and a
// manifest sheet
type XLSXWriter struct {
	dir    string
	logger *internal.Logger
}

var _ ports.ResultSink = (*XLSXWriter)(nil)

// NewXLSXWriter creates a writer for dir
func NewXLSXWriter(dir string, logger *internal.Logger) *XLSXWriter {
	return &XLSXWriter{dir: dir, logger: logger.OrDefault().With("results/xlsx")}
}

func (w *XLSXWriter) Name() string { return "xlsx" }

// Path returns where the workbook of an experiment is written
func (w *XLSXWriter) Path(report *run.Report) string {
	return filepath.Join(w.dir, report.Manifest.ExperimentID.String()+".xlsx")
}

func (w *XLSXWriter) Write(ctx context.Context, report *run.Report) error {
	if report == nil || report.Manifest == nil {
		return fmt.Errorf("report has no manifest")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", w.dir, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with Sheet1
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return err
	}
	for i, e := range report.Entries {
		var row []interface{}
		switch {
		case e.Result != nil:
			row = []interface{}{e.Result.TestID, e.Result.EmbeddingModel, e.Result.Seed, e.Result.EffectSize, e.Result.PValue}
		case e.Failure != nil:
			row = []interface{}{e.Failure.TestID, e.Failure.EmbeddingModel, e.Failure.Seed, nil, nil, e.Failure.Kind, e.Failure.Message}
		default:
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(manifestSheet); err != nil {
		return err
	}
	m := report.Manifest
	pairs := [][]interface{}{
		{"run_id", m.RunID.String()},
		{"experiment_id", m.ExperimentID.String()},
		{"embedding_model", m.EmbeddingModel},
		{"seed", m.Seed},
		{"n_samples", m.NSamples},
		{"parametric", m.Parametric},
		{"fingerprint", string(m.Fingerprint.Fingerprint)},
		{"created_at", m.CreatedAt.String()},
	}
	for i, pair := range pairs {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(manifestSheet, cell, &pair); err != nil {
			return err
		}
	}

	path := w.Path(report)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	w.logger.Info("wrote %s", path)
	return nil
}
