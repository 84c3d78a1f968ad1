// Package store keeps metadata about saved CSV files and the analyses run
// against them in PostgreSQL. The file bytes themselves live in a
// source.Store; this package only records where they are.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// ErrFileNotFound is returned when a saved file id has no row.
var ErrFileNotFound = errors.New("saved file not found")

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// RunKind names the analysis an AnalysisRun recorded.
type RunKind string

const (
	RunColumns  RunKind = "columns"
	RunCrosstab RunKind = "crosstab"
	RunDetect   RunKind = "detect"
	RunFilter   RunKind = "filter"
)

// SavedFile is a CSV registered for repeated analysis.
type SavedFile struct {
	ID         uuid.UUID `json:"id"`
	FileName   string    `json:"fileName"`
	ObjectKey  string    `json:"objectKey"`
	SizeBytes  int64     `json:"sizeBytes"`
	Tags       []string  `json:"tags"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// AnalysisRun is one completed analysis. FileID is nil for ad-hoc uploads.
type AnalysisRun struct {
	ID          uuid.UUID  `json:"id"`
	FileID      *uuid.UUID `json:"fileId,omitempty"`
	Kind        RunKind    `json:"kind"`
	RowsScanned int        `json:"rowsScanned"`
	Matched     int        `json:"matched"`
	DurationMS  int64      `json:"durationMs"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Store reads and writes metadata rows.
type Store struct {
	db  DBTX
	now func() time.Time
}

// New wraps a pool or transaction.
func New(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

// WithTx returns a Store that runs its statements inside tx.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx, now: s.now}
}

// txBeginner is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
}

// InTx runs fn against a Store bound to a new transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(*Store) error) error {
	b, ok := s.db.(txBeginner)
	if !ok {
		return errors.New("store: database handle cannot begin transactions")
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := fn(s.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// ----------------------------------------------------------------------------
// Schema
// ----------------------------------------------------------------------------

const schemaDDL = `
CREATE TABLE IF NOT EXISTS saved_files (
	id          UUID PRIMARY KEY,
	file_name   TEXT NOT NULL,
	object_key  TEXT NOT NULL UNIQUE,
	size_bytes  BIGINT NOT NULL DEFAULT 0,
	tags        TEXT[] NOT NULL DEFAULT '{}',
	uploaded_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_runs (
	id           UUID PRIMARY KEY,
	file_id      UUID REFERENCES saved_files(id) ON DELETE CASCADE,
	kind         TEXT NOT NULL,
	rows_scanned INTEGER NOT NULL DEFAULT 0,
	matched      INTEGER NOT NULL DEFAULT 0,
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS analysis_runs_file_id_idx ON analysis_runs (file_id, created_at DESC);
`

// Migrate creates the tables if they do not exist. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Saved Files
// ----------------------------------------------------------------------------

// CreateFileParams describes a file to register.
type CreateFileParams struct {
	FileName  string
	ObjectKey string
	SizeBytes int64
	Tags      []string
}

// CreateFile inserts a saved file row.
func (s *Store) CreateFile(ctx context.Context, p CreateFileParams) (*SavedFile, error) {
	if p.FileName == "" || p.ObjectKey == "" {
		return nil, errors.New("create file: file name and object key are required")
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	f := &SavedFile{
		ID:         uuid.New(),
		FileName:   p.FileName,
		ObjectKey:  p.ObjectKey,
		SizeBytes:  p.SizeBytes,
		Tags:       tags,
		UploadedAt: s.now().UTC(),
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO saved_files (id, file_name, object_key, size_bytes, tags, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		toPgUUID(f.ID), f.FileName, f.ObjectKey, f.SizeBytes, f.Tags, f.UploadedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create file %q: %w", p.FileName, err)
	}
	return f, nil
}

// GetFile loads one saved file.
func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (*SavedFile, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, file_name, object_key, size_bytes, tags, uploaded_at
		FROM saved_files WHERE id = $1`, toPgUUID(id))

	f, err := scanFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return f, nil
}

// FileByKey loads the saved file registered under an object key, locking
// the row when called inside a transaction.
func (s *Store) FileByKey(ctx context.Context, key string) (*SavedFile, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, file_name, object_key, size_bytes, tags, uploaded_at
		FROM saved_files WHERE object_key = $1 FOR UPDATE`, key)

	f, err := scanFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: key %s", ErrFileNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get file by key %s: %w", key, err)
	}
	return f, nil
}

// RegisterFile records an object that already exists in the file store.
// Registering a key twice returns the existing row with created false.
func (s *Store) RegisterFile(ctx context.Context, p CreateFileParams) (f *SavedFile, created bool, err error) {
	err = s.InTx(ctx, func(tx *Store) error {
		existing, err := tx.FileByKey(ctx, p.ObjectKey)
		if err == nil {
			f = existing
			return nil
		}
		if !errors.Is(err, ErrFileNotFound) {
			return err
		}
		f, err = tx.CreateFile(ctx, p)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return f, created, nil
}

// ListOptions filters and pages ListFiles.
type ListOptions struct {
	Tag    string
	Name   string // case-insensitive substring
	Latest bool   // keep only the newest upload of each file name
	Limit  int
	Offset int
}

// ListFiles returns saved files, newest first.
func (s *Store) ListFiles(ctx context.Context, opts ListOptions) ([]SavedFile, error) {
	wb := newWhereBuilder()
	if opts.Tag != "" {
		wb.add("$%d = ANY(tags)", opts.Tag)
	}
	if opts.Name != "" {
		wb.add(`file_name ILIKE $%d ESCAPE '\'`, "%"+escapeLike(opts.Name)+"%")
	}
	where, args := wb.build()

	from := "saved_files" + where
	if opts.Latest {
		from = `(SELECT DISTINCT ON (file_name) id, file_name, object_key, size_bytes, tags, uploaded_at
		FROM saved_files` + where + ` ORDER BY file_name, uploaded_at DESC) latest`
	}

	limit, offset := clampPage(opts.Limit, opts.Offset)
	query := `SELECT id, file_name, object_key, size_bytes, tags, uploaded_at
		FROM ` + from + fmt.Sprintf(" ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d",
		wb.nextArg(), wb.nextArg()+1)
	args = append(args, limit, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := []SavedFile{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// ----------------------------------------------------------------------------
// Analysis Runs
// ----------------------------------------------------------------------------

// RecordRunParams describes a finished analysis.
type RecordRunParams struct {
	FileID      *uuid.UUID
	Kind        RunKind
	RowsScanned int
	Matched     int
	Duration    time.Duration
}

// RecordRun inserts an analysis run row.
func (s *Store) RecordRun(ctx context.Context, p RecordRunParams) (*AnalysisRun, error) {
	run := &AnalysisRun{
		ID:          uuid.New(),
		FileID:      p.FileID,
		Kind:        p.Kind,
		RowsScanned: p.RowsScanned,
		Matched:     p.Matched,
		DurationMS:  p.Duration.Milliseconds(),
		CreatedAt:   s.now().UTC(),
	}

	fileID := pgtype.UUID{}
	if p.FileID != nil {
		fileID = toPgUUID(*p.FileID)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO analysis_runs (id, file_id, kind, rows_scanned, matched, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		toPgUUID(run.ID), fileID, string(run.Kind), run.RowsScanned, run.Matched, run.DurationMS, run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record %s run: %w", p.Kind, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs for a file, newest first.
func (s *Store) ListRuns(ctx context.Context, fileID uuid.UUID, limit int) ([]AnalysisRun, error) {
	limit, _ = clampPage(limit, 0)
	rows, err := s.db.Query(ctx,
		`SELECT id, file_id, kind, rows_scanned, matched, duration_ms, created_at
		FROM analysis_runs WHERE file_id = $1 ORDER BY created_at DESC LIMIT $2`,
		toPgUUID(fileID), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []AnalysisRun{}
	for rows.Next() {
		var (
			id, file   pgtype.UUID
			kind       string
			scanned    int32
			matched    int32
			durationMS int64
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &file, &kind, &scanned, &matched, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		run := AnalysisRun{
			ID:          uuid.UUID(id.Bytes),
			Kind:        RunKind(kind),
			RowsScanned: int(scanned),
			Matched:     int(matched),
			DurationMS:  durationMS,
			CreatedAt:   createdAt.Time,
		}
		if file.Valid {
			fid := uuid.UUID(file.Bytes)
			run.FileID = &fid
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ----------------------------------------------------------------------------
// Internal helper functions
// ----------------------------------------------------------------------------

func scanFile(row pgx.Row) (*SavedFile, error) {
	var (
		id         pgtype.UUID
		fileName   string
		objectKey  string
		sizeBytes  int64
		tags       []string
		uploadedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &fileName, &objectKey, &sizeBytes, &tags, &uploadedAt); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return &SavedFile{
		ID:         uuid.UUID(id.Bytes),
		FileName:   fileName,
		ObjectKey:  objectKey,
		SizeBytes:  sizeBytes,
		Tags:       tags,
		UploadedAt: uploadedAt.Time,
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// whereBuilder assembles a WHERE clause with numbered placeholders.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{}
}

// add appends a condition; format must contain exactly one %d for the
// placeholder number.
func (w *whereBuilder) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(format, len(w.args)))
}

func (w *whereBuilder) nextArg() int {
	return len(w.args) + 1
}

func (w *whereBuilder) build() (string, []interface{}) {
	if len(w.conds) == 0 {
		return "", nil
	}
	clause := " WHERE " + w.conds[0]
	for _, c := range w.conds[1:] {
		clause += " AND " + c
	}
	return clause, w.args
}
