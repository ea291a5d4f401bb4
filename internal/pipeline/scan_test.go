package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		extension  string
		compressed bool
	}{
		{"articles.csv", "csv", false},
		{"Paper.PDF", "pdf", false},
		{"pubmed24n0001.xml", "xml", false},
		{"pubmed24n0001.xml.gz", "xml", true},
		{"noextension", "", false},
		{"archive.gz", "gz", false},
	}

	for _, tt := range tests {
		extension, compressed := classify(tt.name)
		assert.Equal(t, tt.extension, extension, tt.name)
		assert.Equal(t, tt.compressed, compressed, tt.name)
	}
}

func TestScan(t *testing.T) {
	indir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(indir, "sub"), 0o755))

	for _, name := range []string{"a.xml", "b.csv", "d.txt", "e.xml.gz", "sub/c.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(indir, name), []byte("data"), 0o644))
	}

	jobs, err := Scan(indir)
	require.NoError(t, err)

	var names []string
	for _, job := range jobs {
		names = append(names, job.Name)
	}

	// Lexical walk order, unsupported formats skipped
	assert.Equal(t, []string{"a.xml", "b.csv", "e.xml.gz", "c.pdf"}, names)

	last := jobs[len(jobs)-2]
	assert.Equal(t, "xml", last.Extension)
	assert.True(t, last.Compressed)
}

func TestJobOpenGzip(t *testing.T) {
	indir := t.TempDir()
	path := filepath.Join(indir, "data.xml.gz")

	file, err := os.Create(path)
	require.NoError(t, err)
	writer := gzip.NewWriter(file)
	_, err = writer.Write([]byte("<xml>compressed content</xml>"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, file.Close())

	jobs, err := Scan(indir)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	stream, err := jobs[0].Open()
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "<xml>compressed content</xml>", string(data))
}

func TestJobOpenMissing(t *testing.T) {
	job := Job{Path: filepath.Join(t.TempDir(), "missing.xml"), Extension: "xml"}
	_, err := job.Open()
	require.Error(t, err)
}
