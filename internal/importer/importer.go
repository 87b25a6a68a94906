// Package importer loads synonym tables from spreadsheets and delimited files.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// SynonymWriter stores synonym edges.
type SynonymWriter interface {
	ReplaceSynonyms(ctx context.Context, edges []*models.SynonymEdge) (int, error)
	UpsertSynonyms(ctx context.Context, edges []*models.SynonymEdge) (int, error)
}

// Report summarizes one import.
type Report struct {
	Path    string     `json:"path"`
	Read    int        `json:"read"`
	Written int        `json:"written"`
	Skipped []RowError `json:"skipped,omitempty"`
	Replace bool       `json:"replace"`
}

// Importer writes parsed synonym files to the store.
type Importer struct {
	store  SynonymWriter
	logger *zap.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithLogger sets a logger for skipped rows and summaries.
func WithLogger(l *zap.Logger) ImporterOption {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// NewImporter creates an importer writing to store.
func NewImporter(store SynonymWriter, opts ...ImporterOption) *Importer {
	im := &Importer{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFile parses the file at path and stores its edges. With replace the
// existing table is dropped first; otherwise edges are upserted.
// Callers must invalidate any synonym cache afterwards.
func (im *Importer) ImportFile(ctx context.Context, path string, replace bool) (*Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	parsed, err := ParseSynonyms(content, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, err
	}
	for _, re := range parsed.Skipped {
		im.logger.Warn("Skipping synonym row", zap.String("path", path), zap.String("row", re.String()))
	}

	write := im.store.UpsertSynonyms
	if replace {
		write = im.store.ReplaceSynonyms
	}
	n, err := write(ctx, parsed.Edges)
	if err != nil {
		return nil, fmt.Errorf("store synonyms: %w", err)
	}
	report := &Report{
		Path:    path,
		Read:    len(parsed.Edges),
		Written: n,
		Skipped: parsed.Skipped,
		Replace: replace,
	}
	im.logger.Info("Synonyms imported",
		zap.String("path", path),
		zap.Int("read", report.Read),
		zap.Int("written", report.Written),
		zap.Int("skipped", len(report.Skipped)),
		zap.Bool("replace", replace),
	)
	return report, nil
}
