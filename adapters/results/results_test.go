package results

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/domain/weat"
	apperrors "github.com/iamshnoo/soc-bias/internal/errors"
)

func sampleReport() *run.Report {
	seed := int64(0)
	expID := run.ExperimentID("seat_all_lang_spec_glove", "", &seed)
	manifest := run.NewManifest(core.NewRunID(), expID, "glove", 0, 1000, false, []string{"weat1", "weat2"})
	return &run.Report{
		Manifest: manifest,
		Entries: []weat.Entry{
			{Result: &weat.TestResult{ExperimentID: expID.String(), EmbeddingModel: "glove", TestID: "weat1", PValue: 0.012, EffectSize: 1.31}},
			{Failure: &weat.TestFailure{ExperimentID: expID.String(), EmbeddingModel: "glove", TestID: "weat2", Kind: core.FailureEncoding, Message: `encoding failure: targ1 "x": unknown token`}},
		},
	}
}

func TestJSONWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	report := sampleReport()
	w := NewJSONWriter(dir, nil)

	require.NoError(t, w.Write(context.Background(), report))

	path := w.ResultsPath(report.Manifest.ExperimentID)
	assert.Equal(t, filepath.Join(dir, "seat_all_lang_spec_glove_s-0.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "[\n    {\n        \"experiment_id\""), "list with four-space indentation")

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "weat1", records[0]["test"])
	assert.Equal(t, 1.31, records[0]["effect_size"])
	assert.Equal(t, core.FailureEncoding, records[1]["error_kind"])

	entries, err := ReadEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Failed())
	assert.True(t, entries[1].Failed())

	var manifest run.Manifest
	raw, err = os.ReadFile(filepath.Join(dir, "seat_all_lang_spec_glove_s-0"+ManifestExt))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Equal(t, report.Manifest.Fingerprint.Fingerprint, manifest.Fingerprint.Fingerprint)
}

func TestJSONWriter_EmptyRun(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport()
	report.Entries = nil

	w := NewJSONWriter(dir, nil)
	require.NoError(t, w.Write(context.Background(), report))

	raw, err := os.ReadFile(w.ResultsPath(report.Manifest.ExperimentID))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestXLSXWriter(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport()
	w := NewXLSXWriter(dir, nil)
	require.NoError(t, w.Write(context.Background(), report))

	f, err := excelize.OpenFile(w.Path(report))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "test", rows[0][0])
	assert.Equal(t, "weat1", rows[1][0])
	assert.Equal(t, core.FailureEncoding, rows[2][5])

	model, err := f.GetCellValue(manifestSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "glove", model)
}

func TestReportWriters(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport()

	require.NoError(t, NewMarkdownWriter(dir, nil).Write(context.Background(), report))
	require.NoError(t, NewHTMLWriter(dir, nil).Write(context.Background(), report))

	md, err := os.ReadFile(filepath.Join(dir, "seat_all_lang_spec_glove_s-0.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "| weat1 | 1.3100 | 0.0120 | ok |")
	assert.Contains(t, string(md), "2 tests, 1 failed.")

	page, err := os.ReadFile(filepath.Join(dir, "seat_all_lang_spec_glove_s-0.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<table>")
	assert.Contains(t, string(page), "<title>seat_all_lang_spec_glove_s-0</title>")
}

func TestNewSinks(t *testing.T) {
	sinks, err := NewSinks([]string{"json", "xlsx", "JSON", "html"}, t.TempDir(), nil)
	require.NoError(t, err)
	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"json", "xlsx", "html"}, names)

	_, err = NewSinks([]string{"pdf"}, t.TempDir(), nil)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}

func TestWriteAll_MissingManifest(t *testing.T) {
	sinks, err := NewSinks([]string{"json"}, t.TempDir(), nil)
	require.NoError(t, err)

	err = WriteAll(context.Background(), sinks, &run.Report{})
	assert.Equal(t, apperrors.CodeOutputError, apperrors.GetCode(err))
}
