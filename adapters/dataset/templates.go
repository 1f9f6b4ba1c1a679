package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iamshnoo/soc-bias/domain/weat"
	"github.com/iamshnoo/soc-bias/internal"
)

// Placeholder is replaced by each example when a template is expanded
const Placeholder = "_"

// SentencePrefix marks generated sentence-level test files
const SentencePrefix = "sent-"

// Templates maps a concept set type to its sentence templates
type Templates map[string][]string

// LoadTemplates reads a templates file
func LoadTemplates(path string) (Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var t Templates
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	return t, nil
}

// Expand fills the set's sentences from the templates of its type, template
// by template, example by example. A set whose type has no templates is
// returned unchanged.
func (t Templates) Expand(set weat.ConceptSet) weat.ConceptSet {
	templates, ok := t[set.Type]
	if !ok {
		return set
	}
	set.Templates = append([]string(nil), templates...)
	set.Sentences = make([]string, 0, len(templates)*len(set.Examples))
	for _, tmpl := range templates {
		for _, ex := range set.Examples {
			set.Sentences = append(set.Sentences, strings.ReplaceAll(tmpl, Placeholder, ex))
		}
	}
	return set
}

// GenerateReport summarizes a generation pass
type GenerateReport struct {
	Written []string
}

// Generate expands every word-level test in srcDir into a sentence-level test
// written to dstDir as "sent-<test>.jsonl".
func Generate(ctx context.Context, srcDir, dstDir string, templates Templates, logger *internal.Logger) (*GenerateReport, error) {
	logger = logger.OrDefault().With("generate")

	ids, err := discover(srcDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dstDir, err)
	}

	report := &GenerateReport{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		file, err := readTestFile(filepath.Join(srcDir, id+TestExt))
		if err != nil {
			return report, err
		}
		for _, set := range file.sets() {
			if set != nil {
				*set = templates.Expand(*set)
			}
		}

		out := filepath.Join(dstDir, SentencePrefix+id+TestExt)
		if err := writeTestFile(out, file); err != nil {
			return report, err
		}
		logger.Info("wrote %s", out)
		report.Written = append(report.Written, out)
	}
	return report, nil
}

func writeTestFile(path string, file *testFile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(file); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
