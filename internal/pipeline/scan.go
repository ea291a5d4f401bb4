package pipeline

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Job describes one input file to parse.
type Job struct {
	// Path is the full path to the file
	Path string

	// Name is the base file name, used as the article source label
	Name string

	// Extension is the data format, lower case without the gz suffix
	Extension string

	// Compressed marks gzip-compressed input
	Compressed bool
}

// accepted data formats
var extensions = map[string]bool{
	"csv": true,
	"pdf": true,
	"xml": true,
}

// Scan walks indir recursively and returns a job per accepted file in
// lexical order. Files may carry an extra .gz suffix for compressed input.
func Scan(indir string) ([]Job, error) {
	var jobs []Job

	err := filepath.WalkDir(indir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		extension, compressed := classify(name)
		if !extensions[extension] {
			return nil
		}

		jobs = append(jobs, Job{
			Path:       path,
			Name:       name,
			Extension:  extension,
			Compressed: compressed,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Scan: %w", err)
	}

	return jobs, nil
}

// classify splits a file name into its data format and compression flag.
func classify(name string) (string, bool) {
	parts := strings.Split(strings.ToLower(name), ".")
	if len(parts) < 2 {
		return "", false
	}

	extension := parts[len(parts)-1]
	if extension == "gz" && len(parts) > 2 {
		return parts[len(parts)-2], true
	}
	return extension, false
}

// Open opens the job's file, transparently decompressing gzip input.
func (j Job) Open() (io.ReadCloser, error) {
	file, err := os.Open(j.Path)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	if !j.Compressed {
		return file, nil
	}

	reader, err := gzip.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("Open: gzip: %w", err)
	}

	return &gzipJob{reader: reader, file: file}, nil
}

// gzipJob closes both the gzip stream and the underlying file.
type gzipJob struct {
	reader *gzip.Reader
	file   *os.File
}

func (g *gzipJob) Read(p []byte) (int, error) {
	return g.reader.Read(p)
}

func (g *gzipJob) Close() error {
	err := g.reader.Close()
	if ferr := g.file.Close(); err == nil {
		err = ferr
	}
	return err
}
