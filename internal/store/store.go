package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store wraps SQLite access for extraction results, normalized records and
// inbox source files.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers; one connection keeps workers from tripping
	// over SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS extractions (
			id TEXT PRIMARY KEY,
			source TEXT,
			mode TEXT,
			model TEXT,
			recovery TEXT,
			latency_ms INTEGER,
			transcript TEXT,
			keywords_json TEXT,
			created_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_extractions_source ON extractions(source);`,
		`CREATE TABLE IF NOT EXISTS normalized_records (
			id TEXT PRIMARY KEY,
			source TEXT,
			fire_data_pk INTEGER,
			data_json TEXT,
			file_path TEXT,
			created_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS sources (
			filename TEXT PRIMARY KEY,
			kind TEXT,
			size_bytes INTEGER,
			mod_time TIMESTAMP,
			status TEXT,
			last_error TEXT,
			updated_at TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Extraction is one persisted extraction result.
type Extraction struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Mode       string          `json:"mode"`
	Model      string          `json:"model"`
	Recovery   string          `json:"recovery"`
	LatencyMS  int64           `json:"latency_ms"`
	Transcript string          `json:"transcript"`
	Keywords   json.RawMessage `json:"keywords"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NormalizedRecord is one persisted nested record.
type NormalizedRecord struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	FireDataPK *int            `json:"fire_data_pk,omitempty"`
	Data       json.RawMessage `json:"data"`
	FilePath   string          `json:"file_path,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Source tracks an inbox file through processing.
type Source struct {
	Filename  string    `json:"filename"`
	Kind      string    `json:"kind"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
	Status    string    `json:"status"`
	LastError *string   `json:"last_error"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Store) SaveExtraction(ctx context.Context, e Extraction) error {
	if len(e.Keywords) == 0 {
		e.Keywords = json.RawMessage("{}")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO extractions(id, source, mode, model, recovery, latency_ms, transcript, keywords_json, created_at)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Source, e.Mode, e.Model, e.Recovery, e.LatencyMS, e.Transcript, string(e.Keywords), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("save extraction %s: %w", e.ID, err)
	}
	return nil
}

const extractionCols = `id, source, mode, model, recovery, latency_ms, transcript, keywords_json, created_at`

func scanExtraction(sc interface{ Scan(...any) error }) (Extraction, error) {
	var e Extraction
	var kw string
	if err := sc.Scan(&e.ID, &e.Source, &e.Mode, &e.Model, &e.Recovery, &e.LatencyMS, &e.Transcript, &kw, &e.CreatedAt); err != nil {
		return Extraction{}, err
	}
	e.Keywords = json.RawMessage(kw)
	return e, nil
}

func (s *Store) GetExtraction(ctx context.Context, id string) (Extraction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+extractionCols+` FROM extractions WHERE id=?`, id)
	e, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Extraction{}, ErrNotFound
	}
	return e, err
}

// ListExtractions returns the newest extractions first. A non-empty source
// restricts the result to one inbox file.
func (s *Store) ListExtractions(ctx context.Context, source string, limit int) ([]Extraction, error) {
	query := `SELECT ` + extractionCols + ` FROM extractions`
	args := []any{}
	if source != "" {
		query += ` WHERE source=?`
		args = append(args, source)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Extraction
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SaveNormalized(ctx context.Context, n NormalizedRecord) error {
	var pk sql.NullInt64
	if n.FireDataPK != nil {
		pk = sql.NullInt64{Int64: int64(*n.FireDataPK), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO normalized_records(id, source, fire_data_pk, data_json, file_path, created_at)
		VALUES(?,?,?,?,?,?)`, n.ID, n.Source, pk, string(n.Data), n.FilePath, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("save normalized %s: %w", n.ID, err)
	}
	return nil
}

func (s *Store) GetNormalized(ctx context.Context, id string) (NormalizedRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source, fire_data_pk, data_json, file_path, created_at FROM normalized_records WHERE id=?`, id)
	var n NormalizedRecord
	var pk sql.NullInt64
	var data string
	var path sql.NullString
	switch err := row.Scan(&n.ID, &n.Source, &pk, &data, &path, &n.CreatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return NormalizedRecord{}, ErrNotFound
	case err != nil:
		return NormalizedRecord{}, err
	}
	if pk.Valid {
		v := int(pk.Int64)
		n.FireDataPK = &v
	}
	n.Data = json.RawMessage(data)
	n.FilePath = path.String
	return n, nil
}

// UpsertSource records the latest status of an inbox file.
func (s *Store) UpsertSource(ctx context.Context, src Source) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sources(filename, kind, size_bytes, mod_time, status, last_error, updated_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(filename) DO UPDATE SET kind=excluded.kind, size_bytes=excluded.size_bytes, mod_time=excluded.mod_time,
			status=excluded.status, last_error=excluded.last_error, updated_at=excluded.updated_at`,
		src.Filename, src.Kind, src.SizeBytes, src.ModTime, src.Status, src.LastError, src.UpdatedAt)
	return err
}

// SetSourceStatus updates only the status columns of a known file.
func (s *Store) SetSourceStatus(ctx context.Context, filename, status string, errMsg *string, ts time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sources SET status=?, last_error=?, updated_at=? WHERE filename=?`, status, errMsg, ts, filename)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Sources returns every tracked inbox file keyed by filename.
func (s *Store) Sources(ctx context.Context) (map[string]Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename, kind, size_bytes, mod_time, status, last_error, updated_at FROM sources`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]Source{}
	for rows.Next() {
		var src Source
		var errMsg sql.NullString
		if err := rows.Scan(&src.Filename, &src.Kind, &src.SizeBytes, &src.ModTime, &src.Status, &errMsg, &src.UpdatedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			src.LastError = &errMsg.String
		}
		out[src.Filename] = src
	}
	return out, rows.Err()
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
