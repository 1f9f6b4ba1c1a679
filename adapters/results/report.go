package results

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/ports"
)

// ReportWriter renders a run as a Markdown summary, optionally converted to
// a standalone HTML page
type ReportWriter struct {
	dir    string
	html   bool
	logger *internal.Logger
}

var _ ports.ResultSink = (*ReportWriter)(nil)

// NewMarkdownWriter writes "<experiment id>.md"
func NewMarkdownWriter(dir string, logger *internal.Logger) *ReportWriter {
	return &ReportWriter{dir: dir, logger: logger.OrDefault().With("results/markdown")}
}

// NewHTMLWriter writes "<experiment id>.html"
func NewHTMLWriter(dir string, logger *internal.Logger) *ReportWriter {
	return &ReportWriter{dir: dir, html: true, logger: logger.OrDefault().With("results/html")}
}

func (w *ReportWriter) Name() string {
	if w.html {
		return "html"
	}
	return "markdown"
}

func (w *ReportWriter) Write(ctx context.Context, report *run.Report) error {
	if report == nil || report.Manifest == nil {
		return fmt.Errorf("report has no manifest")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", w.dir, err)
	}

	doc := RenderMarkdown(report)
	ext := ".md"
	if w.html {
		doc = RenderHTML(doc, report.Manifest.ExperimentID.String())
		ext = ".html"
	}
	path := filepath.Join(w.dir, report.Manifest.ExperimentID.String()+ext)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.logger.Info("wrote %s", path)
	return nil
}

// RenderMarkdown formats the manifest and a result table
func RenderMarkdown(report *run.Report) []byte {
	m := report.Manifest
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", m.ExperimentID)
	fmt.Fprintf(&b, "- Embedding model: `%s`\n", m.EmbeddingModel)
	fmt.Fprintf(&b, "- Seed: %d\n", m.Seed)
	if m.Parametric {
		b.WriteString("- Significance: parametric\n")
	} else {
		fmt.Fprintf(&b, "- Significance: permutation, %d samples\n", m.NSamples)
	}
	fmt.Fprintf(&b, "- Run: `%s` at %s\n", m.RunID, m.CreatedAt)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n\n", m.Fingerprint.Fingerprint)

	b.WriteString("| Test | Effect size | p-value | Status |\n")
	b.WriteString("|---|---:|---:|---|\n")
	for _, e := range report.Entries {
		switch {
		case e.Result != nil:
			fmt.Fprintf(&b, "| %s | %.4f | %.4f | ok |\n", escapeCell(e.Result.TestID), e.Result.EffectSize, e.Result.PValue)
		case e.Failure != nil:
			fmt.Fprintf(&b, "| %s | | | %s: %s |\n", escapeCell(e.Failure.TestID), e.Failure.Kind, escapeCell(e.Failure.Message))
		}
	}

	failures := len(report.Failures())
	fmt.Fprintf(&b, "\n%d tests, %d failed.\n", len(report.Entries), failures)
	return b.Bytes()
}

// RenderHTML converts a Markdown document into a complete HTML page
func RenderHTML(md []byte, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: title,
	})
	return markdown.ToHTML(md, p, renderer)
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
