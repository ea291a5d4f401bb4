package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"paperetl/internal/domain/entity"
)

// encoder serializes one document to an open output file.
type encoder func(file *os.File, document Document) error

// FileSystem writes one file per article into a directory. The format is
// fixed by the encoder, see NewJSON and NewYAML.
type FileSystem struct {
	outdir    string
	extension string
	encode    encoder
	rows      int
}

// NewJSON creates a backend writing one JSON file per article under outdir.
func NewJSON(outdir string) (*FileSystem, error) {
	return newFileSystem(outdir, "json", func(file *os.File, document Document) error {
		return json.NewEncoder(file).Encode(document)
	})
}

// NewYAML creates a backend writing one YAML file per article under outdir.
func NewYAML(outdir string) (*FileSystem, error) {
	return newFileSystem(outdir, "yaml", func(file *os.File, document Document) error {
		return yaml.NewEncoder(file).Encode(document)
	})
}

func newFileSystem(outdir, extension string, encode encoder) (*FileSystem, error) {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return nil, fmt.Errorf("NewFileSystem: create output directory: %w", err)
	}

	return &FileSystem{outdir: outdir, extension: extension, encode: encode}, nil
}

// Save implements Database. The filename derives from the source label when
// present, falling back to the uid, so repeated runs overwrite in place.
func (f *FileSystem) Save(_ context.Context, article *entity.Article) error {
	name := article.UID + "." + f.extension
	if article.Source != "" {
		stem := strings.TrimSuffix(article.Source, filepath.Ext(article.Source))
		name = stem + "-" + name
	}

	file, err := os.Create(filepath.Join(f.outdir, name))
	if err != nil {
		return fmt.Errorf("Save: create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := f.encode(file, BuildDocument(article)); err != nil {
		return fmt.Errorf("Save: write article: %w", err)
	}

	f.rows++
	return nil
}

// Merge implements Database. Flat files carry no version metadata, so every
// id is handed back for reprocessing.
func (f *FileSystem) Merge(_ context.Context, _ string, ids map[string]time.Time) ([]string, error) {
	reprocess := make([]string, 0, len(ids))
	for uid := range ids {
		reprocess = append(reprocess, uid)
	}
	return reprocess, nil
}

// Complete implements Database.
func (f *FileSystem) Complete(_ context.Context) error {
	slog.Info("total articles written", slog.Int("count", f.rows))
	return nil
}

// Close implements Database.
func (f *FileSystem) Close() error {
	return nil
}
