package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperetl/internal/domain/entity"
	"paperetl/internal/parser"
	"paperetl/internal/storage"
	"paperetl/internal/study"
	"paperetl/tests/fixtures"
)

func writeInput(t *testing.T, indir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(indir, name), []byte(content), 0o644))
}

// memoryDB is an in-memory Database recording every call.
type memoryDB struct {
	mu        sync.Mutex
	saved     map[string]*entity.Article
	reprocess []string
	mergeURL  string
	completed bool
	closed    bool
}

func newMemoryDB() *memoryDB {
	return &memoryDB{saved: make(map[string]*entity.Article)}
}

func (m *memoryDB) Save(_ context.Context, article *entity.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[article.UID] = article
	return nil
}

func (m *memoryDB) Merge(_ context.Context, url string, _ map[string]time.Time) ([]string, error) {
	m.mergeURL = url
	return m.reprocess, nil
}

func (m *memoryDB) Complete(_ context.Context) error {
	m.completed = true
	return nil
}

func (m *memoryDB) Close() error {
	m.closed = true
	return nil
}

func TestRunDrainsAllArticles(t *testing.T) {
	indir := t.TempDir()

	const files = 25
	for i := 0; i < files; i++ {
		name := fmt.Sprintf("doc%02d.xml", i)
		title := fmt.Sprintf("Document %02d", i)
		writeInput(t, indir, name, fixtures.TEI(title, "This study evaluates model performance."))
	}

	// A tiny queue forces the workers to block on the consumer
	cfg := &Config{Indir: indir, Workers: 4, QueueSize: 2, FullLoad: true}
	db := newMemoryDB()

	require.NoError(t, New(cfg, study.Noop{}, nil).Run(context.Background(), db))

	assert.Len(t, db.saved, files)
	assert.True(t, db.completed)
	assert.True(t, db.closed)
}

func TestRunEmptyDirectory(t *testing.T) {
	cfg := &Config{Indir: t.TempDir(), Workers: 0, QueueSize: 10, FullLoad: true}
	db := newMemoryDB()

	require.NoError(t, New(cfg, study.Noop{}, nil).Run(context.Background(), db))

	assert.Empty(t, db.saved)
	assert.True(t, db.completed)
}

func TestRunEntryDateOverride(t *testing.T) {
	indir := t.TempDir()
	writeInput(t, indir, "a.xml", fixtures.TEI("Article A", "Abstract sentence one."))

	uid := parser.ContentHash("Article A")
	entryfile := filepath.Join(t.TempDir(), "dates.csv")
	writeEntryFile(t, entryfile, fixtures.EntryDatesCSV(uid, "2021-01-10"))

	cfg := &Config{Indir: indir, EntryFile: entryfile, Workers: 1, QueueSize: 10, FullLoad: true}
	db := newMemoryDB()

	require.NoError(t, New(cfg, study.Noop{}, nil).Run(context.Background(), db))

	require.Contains(t, db.saved, uid)
	assert.Equal(t, time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC), db.saved[uid].Entry)
}

func TestRunMergeFilter(t *testing.T) {
	indir := t.TempDir()
	writeInput(t, indir, "a.xml", fixtures.TEI("Article A", "Abstract sentence one."))
	writeInput(t, indir, "b.xml", fixtures.TEI("Article B", "Abstract sentence one."))

	uidA := parser.ContentHash("Article A")
	uidB := parser.ContentHash("Article B")

	entryfile := filepath.Join(t.TempDir(), "dates.csv")
	writeEntryFile(t, entryfile, fixtures.EntryDatesCSV(uidA, "2021-01-10", uidB, "2021-02-01"))

	// Merge hands back only B, so A was already copied and must be skipped
	cfg := &Config{Indir: indir, EntryFile: entryfile, MergeURL: "previous", Workers: 1, QueueSize: 10, FullLoad: true}
	db := newMemoryDB()
	db.reprocess = []string{uidB}

	require.NoError(t, New(cfg, study.Noop{}, nil).Run(context.Background(), db))

	assert.Equal(t, "previous", db.mergeURL)
	assert.NotContains(t, db.saved, uidA)
	assert.Contains(t, db.saved, uidB)
}

// TestRunIncremental exercises a full load followed by an incremental re-run
// where one article gained a section and a newer observation date.
func TestRunIncremental(t *testing.T) {
	indir := t.TempDir()
	outdir := t.TempDir()

	uidA := parser.ContentHash("Article A")
	uidB := parser.ContentHash("Article B")
	uidC := parser.ContentHash("Article C")

	writeInput(t, indir, "a.xml", fixtures.TEI("Article A", "Findings for study A."))
	writeInput(t, indir, "b.xml", fixtures.TEI("Article B", "Findings for study B."))
	writeInput(t, indir, "c.xml", fixtures.TEI("Article C", "Findings for study C."))

	entryfile := filepath.Join(t.TempDir(), "dates.csv")
	writeEntryFile(t, entryfile, fixtures.EntryDatesCSV(
		uidA, "2021-01-10", uidB, "2021-01-10", uidC, "2021-01-10"))

	cfg := &Config{Indir: indir, EntryFile: entryfile, Workers: 2, QueueSize: 10, FullLoad: true}

	run := func() {
		db, err := storage.Open(outdir, false)
		require.NoError(t, err)
		require.NoError(t, New(cfg, study.Noop{}, nil).Run(context.Background(), db))
	}

	run()

	db, err := sql.Open("sqlite3", filepath.Join(outdir, "articles.sqlite"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, 3, queryCount(t, db, `SELECT COUNT(*) FROM articles`))
	assert.Equal(t, 6, queryCount(t, db, `SELECT COUNT(*) FROM sections`))

	// B gains an abstract sentence and a newer observation date, A and C are
	// unchanged and must be discarded as duplicates on the second pass
	writeInput(t, indir, "b.xml", fixtures.TEI("Article B", "Findings for study B.", "A second result was added."))
	writeEntryFile(t, entryfile, fixtures.EntryDatesCSV(
		uidA, "2021-01-10", uidB, "2021-03-01", uidC, "2021-01-10"))

	run()

	assert.Equal(t, 3, queryCount(t, db, `SELECT COUNT(*) FROM articles`))
	assert.Equal(t, 7, queryCount(t, db, `SELECT COUNT(*) FROM sections`))
	assert.Equal(t, 3, queryCount(t, db, `SELECT COUNT(*) FROM sections WHERE article = ?`, uidB))
	assert.Equal(t, 7, queryCount(t, db, `SELECT COUNT(DISTINCT id) FROM sections`))

	var entry string
	require.NoError(t, db.QueryRow(`SELECT CAST(entry AS TEXT) FROM articles WHERE id = ?`, uidB).Scan(&entry))
	assert.Equal(t, "2021-03-01 00:00:00", entry)

	require.NoError(t, db.QueryRow(`SELECT CAST(entry AS TEXT) FROM articles WHERE id = ?`, uidA).Scan(&entry))
	assert.Equal(t, "2021-01-10 00:00:00", entry)
}

func queryCount(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}
