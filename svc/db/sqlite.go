package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"bindrop/pkg/domain"
	"bindrop/pkg/ident"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
)

// SQLite backend: autoincrement 64-bit counter identifiers, expired rows
// filtered on read and swept by the cleanup worker.
type SQLite struct {
	db      *sql.DB
	maxSize int64
}

func NewSQLite(path string, maxSize int64, maxOpenConns, maxIdleConns int) (*SQLite, error) {
	if maxOpenConns <= 0 {
		maxOpenConns = defaultMaxOpenConns
	}
	if maxIdleConns <= 0 {
		maxIdleConns = defaultMaxIdleConns
	}
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)
	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping sqlite")
	}
	s := &SQLite{db: sqlDB, maxSize: maxSize}
	if err := s.migrate(); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS pastes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data BLOB NOT NULL,
			file_name TEXT,
			mime_type TEXT NOT NULL,
			best_before INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_pastes_best_before ON pastes(best_before);
	`)
	return err
}

func (s *SQLite) Put(ctx context.Context, entry *domain.PasteEntry) (string, error) {
	var fileName sql.NullString
	if entry.FileName != "" {
		fileName = sql.NullString{String: entry.FileName, Valid: true}
	}
	var bestBefore sql.NullInt64
	if entry.BestBefore != nil {
		bestBefore = sql.NullInt64{Int64: entry.BestBefore.Unix(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pastes (data, file_name, mime_type, best_before) VALUES (?, ?, ?, ?)`,
		entry.Data, fileName, entry.MimeType, bestBefore)
	if err != nil {
		return "", domain.WrapStorage(errors.Wrap(err, "insert paste"))
	}
	n, err := res.LastInsertId()
	if err != nil {
		return "", domain.WrapStorage(errors.Wrap(err, "last insert id"))
	}
	return ident.EncodeUint64(uint64(n)), nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*domain.PasteEntry, error) {
	n, err := ident.DecodeUint64(id)
	if err != nil {
		return nil, err
	}
	var (
		entry      domain.PasteEntry
		fileName   sql.NullString
		bestBefore sql.NullInt64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT data, file_name, mime_type, best_before FROM pastes
		 WHERE id = ? AND (best_before IS NULL OR best_before > ?)`,
		int64(n), time.Now().Unix())
	if err := row.Scan(&entry.Data, &fileName, &entry.MimeType, &bestBefore); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIDNotFound
		}
		return nil, domain.WrapStorage(errors.Wrap(err, "select paste"))
	}
	if fileName.Valid {
		entry.FileName = fileName.String
	}
	if bestBefore.Valid {
		t := time.Unix(bestBefore.Int64, 0).UTC()
		entry.BestBefore = &t
	}
	return &entry, nil
}

func (s *SQLite) FileName(ctx context.Context, id string) (string, error) {
	n, err := ident.DecodeUint64(id)
	if err != nil {
		return "", err
	}
	var fileName sql.NullString
	row := s.db.QueryRowContext(ctx,
		`SELECT file_name FROM pastes
		 WHERE id = ? AND (best_before IS NULL OR best_before > ?)`,
		int64(n), time.Now().Unix())
	if err := row.Scan(&fileName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrIDNotFound
		}
		return "", domain.WrapStorage(errors.Wrap(err, "select file name"))
	}
	return fileName.String, nil
}

func (s *SQLite) Remove(ctx context.Context, id string) error {
	n, err := ident.DecodeUint64(id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pastes WHERE id = ?`, int64(n)); err != nil {
		return domain.WrapStorage(errors.Wrap(err, "delete paste"))
	}
	return nil
}

func (s *SQLite) MaxDataSize() int64 { return s.maxSize }

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pastes WHERE best_before IS NOT NULL AND best_before <= ?`, now.Unix())
	if err != nil {
		return 0, domain.WrapStorage(errors.Wrap(err, "prune expired"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
