// Package storage persists submissions in an embedded SQLite database.
//
// The database is a single file (DB_PATH). Two tables live in it:
//   - submissions: one row per citizen submission
//   - telegram_messages: submission id → Telegram message id, so status
//     changes can edit the original notification
//
// Thread-safety:
//   - database/sql pools connections; SQLite serialises writers
//   - busy_timeout makes concurrent writers wait instead of failing
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "peopleconnect/internal/errors"
	"peopleconnect/internal/submission"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS submissions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	type        TEXT NOT NULL,
	department  TEXT NOT NULL,
	name        TEXT NOT NULL,
	mobile      TEXT NOT NULL,
	address     TEXT NOT NULL,
	message     TEXT NOT NULL,
	lat         REAL,
	lon         REAL,
	attachments TEXT,
	status      TEXT NOT NULL DEFAULT 'New',
	created_at  TEXT NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS telegram_messages (
	submission_id INTEGER PRIMARY KEY,
	message_id    TEXT NOT NULL
)`}

const selectColumns = `id, type, department, name, mobile, address, message,
	lat, lon, COALESCE(attachments, '') AS attachments, status, created_at`

// Storage is the SQLite-backed submission store.
type Storage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database file at path and makes sure
// the schema exists.
//
// Parameters:
//   - ctx: context for schema creation
//   - path: database file path
//   - logger: structured logger
//
// Returns:
//   - *Storage: ready-to-use store
//   - error: if the file cannot be opened or the schema cannot be created
func Open(ctx context.Context, path string, logger *zap.Logger) (*Storage, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.NewStorageError("open database", err)
	}

	s := New(db, logger)
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("📂 Database ready", zap.String("path", path))
	return s, nil
}

// New wraps an existing connection. The caller is responsible for the schema.
func New(db *sqlx.DB, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{db: db, logger: logger}
}

// Init creates missing tables. Existing data is left untouched.
func (s *Storage) Init(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewStorageError("create schema", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert stores a new submission and returns the id SQLite assigned.
func (s *Storage) Insert(ctx context.Context, sub *submission.Submission) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions
			(type, department, name, mobile, address, message, lat, lon, attachments, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(sub.Type), sub.Department, sub.Name, sub.Mobile, sub.Address, sub.Message,
		sub.Lat, sub.Lon, sub.Attachments, string(sub.Status), sub.CreatedAt,
	)
	if err != nil {
		return 0, apperrors.NewStorageError("insert submission", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.NewStorageError("insert submission", err)
	}
	return id, nil
}

// List returns every submission, newest first.
func (s *Storage) List(ctx context.Context) ([]submission.Submission, error) {
	var rows []submission.Submission
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM submissions ORDER BY id DESC`); err != nil {
		return nil, apperrors.NewStorageError("list submissions", err)
	}
	return rows, nil
}

// Get loads one submission. The boolean is false when no row has that id.
func (s *Storage) Get(ctx context.Context, id int64) (submission.Submission, bool, error) {
	var row submission.Submission
	err := s.db.GetContext(ctx, &row, `SELECT `+selectColumns+` FROM submissions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, false, nil
	}
	if err != nil {
		return submission.Submission{}, false, apperrors.NewStorageError("get submission", err)
	}
	return row, true, nil
}

// UpdateStatus sets the status of one submission. The boolean reports
// whether a row was changed; an unknown id is not an error.
func (s *Storage) UpdateStatus(ctx context.Context, id int64, status submission.Status) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("invalid status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE submissions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return false, apperrors.NewStorageError("update status", err)
	}
	return affected(res)
}

// Delete removes one submission and its Telegram message mapping. The
// boolean reports whether the submission existed.
func (s *Storage) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return false, apperrors.NewStorageError("delete submission", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM telegram_messages WHERE submission_id = ?`, id); err != nil {
		s.logger.Warn("⚠️  Failed to drop Telegram message mapping", zap.Int64("id", id), zap.Error(err))
	}
	return affected(res)
}

// SaveMessageID remembers which Telegram message announced a submission.
func (s *Storage) SaveMessageID(ctx context.Context, id int64, messageID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO telegram_messages (submission_id, message_id) VALUES (?, ?)
		ON CONFLICT(submission_id) DO UPDATE SET message_id = excluded.message_id`,
		id, messageID)
	if err != nil {
		return apperrors.NewStorageError("save message id", err)
	}
	return nil
}

// MessageID returns the Telegram message id for a submission, if one was saved.
func (s *Storage) MessageID(ctx context.Context, id int64) (string, bool, error) {
	var messageID string
	err := s.db.GetContext(ctx, &messageID, `SELECT message_id FROM telegram_messages WHERE submission_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageError("get message id", err)
	}
	return messageID, true, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewStorageError("rows affected", err)
	}
	return n > 0, nil
}
