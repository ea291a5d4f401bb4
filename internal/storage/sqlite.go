package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mattn/go-sqlite3"

	"paperetl/internal/domain/entity"
	"paperetl/internal/observability/metrics"
)

const (
	// batchSize is the number of saved articles per transaction. Bounds the
	// data lost on a crash to the in-flight batch while keeping write
	// throughput high.
	batchSize = 1000

	// graceWindow is the trailing span before a prior run's maximum entry
	// date inside which records are treated as volatile and reprocessed
	// instead of merged. Absorbs clock skew and late-arriving records.
	graceWindow = 5 * 24 * time.Hour
)

const (
	createArticles = `CREATE TABLE IF NOT EXISTS articles (
    id           TEXT PRIMARY KEY,
    source       TEXT,
    published    DATETIME,
    publication  TEXT,
    authors      TEXT,
    affiliations TEXT,
    affiliation  TEXT,
    title        TEXT,
    tags         TEXT,
    reference    TEXT,
    entry        DATETIME
)`

	createSections = `CREATE TABLE IF NOT EXISTS sections (
    id      INTEGER PRIMARY KEY,
    article TEXT,
    name    TEXT,
    text    TEXT
)`

	createSectionIndex = `CREATE INDEX IF NOT EXISTS section_article ON sections(article)`

	insertArticle = `INSERT INTO articles (id, source, published, publication, authors,
    affiliations, affiliation, title, tags, reference, entry)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertSection = `INSERT INTO sections (id, article, name, text) VALUES (?, ?, ?, ?)`

	maxSectionID = `SELECT COALESCE(MAX(id), -1) FROM sections`

	lookupEntry = `SELECT entry FROM articles WHERE id = ?`

	deleteArticle  = `DELETE FROM articles WHERE id = ?`
	deleteSections = `DELETE FROM sections WHERE article = ?`
)

// SQLite stores articles in a single-file relational database. Duplicate
// uids are resolved by entry date and an incremental merge copies unchanged
// history from a previous run's database file.
type SQLite struct {
	db *sql.DB
	tx *sql.Tx

	// aindex counts saved articles, sindex is the next global section id
	aindex int
	sindex int64
}

// NewSQLite opens (or creates) articles.sqlite under outdir. When replace is
// set an existing database file is removed first.
func NewSQLite(outdir string, replace bool) (*SQLite, error) {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return nil, fmt.Errorf("NewSQLite: create output directory: %w", err)
	}

	dbfile := filepath.Join(outdir, "articles.sqlite")

	_, err := os.Stat(dbfile)
	exists := err == nil

	if replace && exists {
		if err := os.Remove(dbfile); err != nil {
			return nil, fmt.Errorf("NewSQLite: remove existing database: %w", err)
		}
		exists = false
	}

	db, err := sql.Open("sqlite3", dbfile)
	if err != nil {
		return nil, fmt.Errorf("NewSQLite: open database: %w", err)
	}

	// A single connection keeps the transaction and ATTACH on the same
	// underlying handle
	db.SetMaxOpenConns(1)

	store, err := newSQLite(db, !exists)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// newSQLite initializes the schema and opens the first transaction on an
// already-open connection.
func newSQLite(db *sql.DB, create bool) (*SQLite, error) {
	store := &SQLite{db: db}

	if create {
		for _, statement := range []string{createArticles, createSections} {
			if _, err := db.Exec(statement); err != nil {
				return nil, fmt.Errorf("NewSQLite: create schema: %w", err)
			}
		}
	} else {
		// Resume the global section id sequence
		var maxID int64
		if err := db.QueryRow(maxSectionID).Scan(&maxID); err != nil {
			return nil, fmt.Errorf("NewSQLite: restore section index: %w", err)
		}
		store.sindex = maxID + 1
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("NewSQLite: begin transaction: %w", err)
	}
	store.tx = tx

	return store, nil
}

// Save implements Database. On a duplicate uid the article with the latest
// entry date wins; replacement is always a full delete and reinsert of the
// article and its sections.
func (s *SQLite) Save(ctx context.Context, article *entity.Article) error {
	saved, err := s.saveArticle(ctx, article)
	if err != nil {
		metrics.InsertErrorsTotal.Inc()
		return err
	}
	if !saved {
		return nil
	}

	s.aindex++
	if s.aindex%batchSize == 0 {
		slog.Info("inserted articles", slog.Int("count", s.aindex))
		if err := s.transaction(); err != nil {
			return err
		}
	}

	for _, section := range article.Sections {
		_, err := s.tx.ExecContext(ctx, insertSection,
			s.sindex, article.UID, nullable(section.Name), nullable(section.Text))
		if err != nil {
			metrics.InsertErrorsTotal.Inc()
			return fmt.Errorf("Save: insert section: %w", err)
		}
		s.sindex++
	}

	metrics.ArticlesSavedTotal.Inc()
	return nil
}

// saveArticle inserts the article row, resolving primary key conflicts by
// entry date. Returns false when the existing version wins.
func (s *SQLite) saveArticle(ctx context.Context, article *entity.Article) (bool, error) {
	_, err := s.tx.ExecContext(ctx, insertArticle, s.values(article)...)
	if err == nil {
		return true, nil
	}

	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return false, fmt.Errorf("Save: insert article: %w", err)
	}

	// Duplicate detected, compare entry dates to determine the action
	var stored string
	if err := s.tx.QueryRowContext(ctx, lookupEntry, article.UID).Scan(&stored); err != nil {
		return false, fmt.Errorf("Save: lookup entry date: %w", err)
	}

	entry, err := dateparse.ParseAny(stored)
	if err != nil {
		return false, fmt.Errorf("Save: parse stored entry date: %w", err)
	}

	// Existing data wins ties
	if !article.Entry.After(entry) {
		metrics.RecordDuplicate(false)
		return false, nil
	}

	for _, statement := range []string{deleteArticle, deleteSections} {
		if _, err := s.tx.ExecContext(ctx, statement, article.UID); err != nil {
			return false, fmt.Errorf("Save: delete superseded article: %w", err)
		}
	}

	if _, err := s.tx.ExecContext(ctx, insertArticle, s.values(article)...); err != nil {
		return false, fmt.Errorf("Save: reinsert article: %w", err)
	}

	metrics.RecordDuplicate(true)
	return true, nil
}

// Merge implements Database. It attaches the previous run's database file
// read-only, copies every article whose entry date falls at or before the
// grace cutoff, and returns the uids that must be reprocessed from source.
func (s *SQLite) Merge(ctx context.Context, url string, ids map[string]time.Time) ([]string, error) {
	// Deterministic scan order
	uids := make([]string, 0, len(ids))
	for uid := range ids {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	path, err := resolveDatabase(url)
	if err != nil {
		slog.Warn("no previous database to merge", slog.String("url", url))
		return uids, nil
	}

	// ATTACH cannot run inside the open transaction
	if err := s.transactionEnd(); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `ATTACH DATABASE ? AS previous`,
		"file:"+path+"?mode=ro"); err != nil {
		return nil, fmt.Errorf("Merge: attach previous database: %w", err)
	}

	reprocess, err := s.merge(ctx, uids, ids)

	if _, derr := s.db.ExecContext(ctx, `DETACH DATABASE previous`); derr != nil && err == nil {
		err = fmt.Errorf("Merge: detach previous database: %w", derr)
	}

	if berr := s.transactionBegin(); berr != nil && err == nil {
		err = berr
	}
	if err != nil {
		return nil, err
	}

	return reprocess, nil
}

func (s *SQLite) merge(ctx context.Context, uids []string, ids map[string]time.Time) ([]string, error) {
	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(entry) FROM previous.articles`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("Merge: read max entry date: %w", err)
	}

	// Empty previous store, everything is reprocessed
	if !latest.Valid {
		return uids, nil
	}

	maxEntry, err := dateparse.ParseAny(latest.String)
	if err != nil {
		return nil, fmt.Errorf("Merge: parse max entry date: %w", err)
	}
	cutoff := maxEntry.Add(-graceWindow)

	var reprocess []string
	merged := 0

	for _, uid := range uids {
		date := ids[uid]

		// Exact-match lookup: a stale or renamed id simply finds no row and
		// falls into the reprocess set
		var stored string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM previous.articles WHERE id = ?`, uid).Scan(&stored)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			reprocess = append(reprocess, uid)
			continue
		case err != nil:
			return nil, fmt.Errorf("Merge: lookup article: %w", err)
		}

		// Records inside the volatile recent window are always reprocessed
		if date.After(cutoff) {
			reprocess = append(reprocess, uid)
			continue
		}

		if err := s.copyArticle(ctx, uid, date); err != nil {
			return nil, err
		}
		merged++
	}

	// Advance the section id sequence past the copied rows so fresh inserts
	// never collide
	var maxID int64
	if err := s.db.QueryRowContext(ctx, maxSectionID).Scan(&maxID); err != nil {
		return nil, fmt.Errorf("Merge: restore section index: %w", err)
	}
	if maxID+1 > s.sindex {
		s.sindex = maxID + 1
	}

	metrics.MergedArticlesTotal.Add(float64(merged))
	slog.Info("merged articles from previous database",
		slog.Int("merged", merged),
		slog.Int("reprocess", len(reprocess)))

	return reprocess, nil
}

// copyArticle copies one article and its sections verbatim, syncing the
// entry date to the caller's authoritative value.
func (s *SQLite) copyArticle(ctx context.Context, uid string, date time.Time) error {
	statements := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO articles SELECT * FROM previous.articles WHERE id = ?`, []any{uid}},
		{`UPDATE articles SET entry = ? WHERE id = ?`, []any{date.Format(dateLayout), uid}},
		{`INSERT INTO sections (id, article, name, text)
            SELECT id, article, name, text FROM previous.sections WHERE article = ?`, []any{uid}},
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement.sql, statement.args...); err != nil {
			return fmt.Errorf("Merge: copy article %s: %w", uid, err)
		}
	}

	return nil
}

// Complete implements Database. Builds the section lookup index and reports
// the final count.
func (s *SQLite) Complete(ctx context.Context) error {
	if _, err := s.tx.ExecContext(ctx, createSectionIndex); err != nil {
		return fmt.Errorf("Complete: create section index: %w", err)
	}

	slog.Info("total articles inserted", slog.Int("count", s.aindex))
	return nil
}

// Close implements Database.
func (s *SQLite) Close() error {
	if s.tx != nil {
		if err := s.tx.Commit(); err != nil {
			return fmt.Errorf("Close: commit: %w", err)
		}
		s.tx = nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	return nil
}

// transaction commits the current transaction and opens a new one.
func (s *SQLite) transaction() error {
	if err := s.transactionEnd(); err != nil {
		return err
	}
	return s.transactionBegin()
}

func (s *SQLite) transactionEnd() error {
	if s.tx == nil {
		return nil
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.tx = nil
	return nil
}

func (s *SQLite) transactionBegin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// values flattens an article into the articles column order, mapping empty
// strings and missing dates to NULL.
func (s *SQLite) values(article *entity.Article) []any {
	var published any
	if article.Published != nil {
		published = article.Published.Format(dateLayout)
	}

	return []any{
		article.UID,
		nullable(article.Source),
		published,
		nullable(article.Publication),
		nullable(article.Authors),
		nullable(article.Affiliations),
		nullable(article.Affiliation),
		nullable(article.Title),
		nullable(article.Tags),
		nullable(article.Reference),
		article.Entry.Format(dateLayout),
	}
}

// nullable maps blank text to NULL.
func nullable(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

// resolveDatabase accepts either a database file or a directory containing
// articles.sqlite.
func resolveDatabase(url string) (string, error) {
	path := strings.TrimPrefix(url, "sqlite://")

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		path = filepath.Join(path, "articles.sqlite")
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
	}

	return path, nil
}
