package results

import (
	"context"
	"fmt"
	"strings"

	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/internal"
	apperrors "github.com/iamshnoo/soc-bias/internal/errors"
	"github.com/iamshnoo/soc-bias/ports"
)

// NewSinks builds one file sink per format, all writing into dir
func NewSinks(formats []string, dir string, logger *internal.Logger) ([]ports.ResultSink, error) {
	sinks := make([]ports.ResultSink, 0, len(formats))
	seen := make(map[string]bool, len(formats))
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if seen[format] {
			continue
		}
		seen[format] = true

		switch format {
		case "json":
			sinks = append(sinks, NewJSONWriter(dir, logger))
		case "xlsx":
			sinks = append(sinks, NewXLSXWriter(dir, logger))
		case "markdown", "md":
			sinks = append(sinks, NewMarkdownWriter(dir, logger))
		case "html":
			sinks = append(sinks, NewHTMLWriter(dir, logger))
		default:
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("unknown output format %q", format))
		}
	}
	return sinks, nil
}

// WriteAll writes the report to every sink, stopping at the first failure
func WriteAll(ctx context.Context, sinks []ports.ResultSink, report *run.Report) error {
	for _, sink := range sinks {
		if err := sink.Write(ctx, report); err != nil {
			return apperrors.WithCode(apperrors.CodeOutputError, fmt.Errorf("%s sink: %w", sink.Name(), err))
		}
	}
	return nil
}
