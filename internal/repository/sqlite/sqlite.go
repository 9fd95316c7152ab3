// Package sqlite implements repository.Store on an embedded SQLite database.
//
// WHY SQLITE?
// SQLite lives inside the binary as a single file, so a single-node
// deployment needs no database server at all. ":memory:" gives tests a fresh
// database per call.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so no C compiler is needed and
// cross-compilation just works.
//
// REFERENCE LISTS AS JOIN TABLES:
// The document model keeps lists such as User.Friends inside the user. Here
// every reference list is a two-column join table whose primary key is the
// (owner, element) pair:
//
//	user_friends(username, friend)   PRIMARY KEY (username, friend)
//
// Adding an element is a single INSERT OR IGNORE and removing one is a single
// DELETE, which gives the same one-element atomic updates as $addToSet and
// $pull in MongoDB. List order is insertion order (rowid).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// connPragmas run on every pooled connection the driver opens.
//
// WHY IN THE DSN?
// PRAGMAs are per connection. Executing them once after sql.Open only
// reaches whichever connection ran the statement, and database/sql opens
// more as soon as two queries overlap. The driver applies _pragma values to
// each new connection itself.
//
//   - busy_timeout: a writer waits up to 5s for the lock instead of failing
//     with SQLITE_BUSY when another connection is writing
//   - foreign_keys: enforce REFERENCES on every connection
//   - journal_mode=WAL: readers proceed while a write is in progress
//
// _txlock=immediate makes BEGIN take the write lock up front, so the busy
// timeout covers transactions too (a deferred one can fail mid-way when it
// upgrades from reader to writer).
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"

// dsn appends connPragmas to dbPath, keeping any query it already has.
func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + connPragmas
	}
	return dbPath + "?" + connPragmas
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/heapoverflow.db" → file-based database (persistent)
//   - ":memory:"             → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database, so the
	// pool must never grow past one connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates every table. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				username   TEXT NOT NULL UNIQUE,
				first_name TEXT NOT NULL DEFAULT '',
				last_name  TEXT NOT NULL DEFAULT '',
				picture    TEXT NOT NULL DEFAULT '',
				biography  TEXT NOT NULL DEFAULT '',
				github_id  INTEGER UNIQUE,
				privacy    TEXT NOT NULL DEFAULT '{}',
				settings   TEXT NOT NULL DEFAULT '{}',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE TABLE IF NOT EXISTS user_friends (
				username TEXT NOT NULL REFERENCES users(username),
				friend   TEXT NOT NULL,
				PRIMARY KEY (username, friend)
			);
			CREATE TABLE IF NOT EXISTS user_requests (
				username  TEXT NOT NULL REFERENCES users(username),
				requester TEXT NOT NULL,
				PRIMARY KEY (username, requester)
			);
			CREATE TABLE IF NOT EXISTS user_notifications (
				username        TEXT NOT NULL REFERENCES users(username),
				notification_id TEXT NOT NULL,
				PRIMARY KEY (username, notification_id)
			);
			CREATE TABLE IF NOT EXISTS user_chats (
				username TEXT NOT NULL REFERENCES users(username),
				chat_id  TEXT NOT NULL,
				PRIMARY KEY (username, chat_id)
			);
		`},
		{"questions", `
			CREATE TABLE IF NOT EXISTS questions (
				id            TEXT PRIMARY KEY,
				title         TEXT NOT NULL,
				text          TEXT NOT NULL,
				asked_by      TEXT NOT NULL,
				ask_date_time DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_questions_asked_by ON questions(asked_by);
			CREATE TABLE IF NOT EXISTS question_tags (
				question_id TEXT NOT NULL REFERENCES questions(id),
				tag         TEXT NOT NULL,
				PRIMARY KEY (question_id, tag)
			);
			CREATE TABLE IF NOT EXISTS question_answers (
				question_id TEXT NOT NULL REFERENCES questions(id),
				answer_id   TEXT NOT NULL UNIQUE,
				PRIMARY KEY (question_id, answer_id)
			);
			CREATE TABLE IF NOT EXISTS question_comments (
				question_id TEXT NOT NULL REFERENCES questions(id),
				comment_id  TEXT NOT NULL,
				PRIMARY KEY (question_id, comment_id)
			);
			CREATE TABLE IF NOT EXISTS question_views (
				question_id TEXT NOT NULL REFERENCES questions(id),
				username    TEXT NOT NULL,
				PRIMARY KEY (question_id, username)
			);
			-- One row per (question, user) keeps up and down votes disjoint.
			CREATE TABLE IF NOT EXISTS question_votes (
				question_id TEXT NOT NULL REFERENCES questions(id),
				username    TEXT NOT NULL,
				direction   TEXT NOT NULL CHECK (direction IN ('up', 'down')),
				PRIMARY KEY (question_id, username)
			);
		`},
		{"answers and comments", `
			CREATE TABLE IF NOT EXISTS answers (
				id            TEXT PRIMARY KEY,
				text          TEXT NOT NULL,
				ans_by        TEXT NOT NULL,
				ans_date_time DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_answers_ans_by ON answers(ans_by);
			CREATE TABLE IF NOT EXISTS comments (
				id                TEXT PRIMARY KEY,
				text              TEXT NOT NULL,
				comment_by        TEXT NOT NULL,
				comment_date_time DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_comments_comment_by ON comments(comment_by);
			CREATE TABLE IF NOT EXISTS answer_comments (
				answer_id  TEXT NOT NULL REFERENCES answers(id),
				comment_id TEXT NOT NULL,
				PRIMARY KEY (answer_id, comment_id)
			);
		`},
		{"notifications", `
			CREATE TABLE IF NOT EXISTS notifications (
				id          TEXT PRIMARY KEY,
				sender      TEXT NOT NULL,
				recipient   TEXT NOT NULL,
				content     TEXT NOT NULL,
				type        TEXT NOT NULL,
				question_id TEXT NOT NULL DEFAULT '',
				is_read     INTEGER NOT NULL DEFAULT 0,
				created_at  DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient, created_at);
		`},
		{"chats and messages", `
			CREATE TABLE IF NOT EXISTS chats (
				id               TEXT PRIMARY KEY,
				participants_key TEXT NOT NULL,
				created_at       DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_chats_participants_key ON chats(participants_key);
			CREATE TABLE IF NOT EXISTS chat_participants (
				chat_id  TEXT NOT NULL REFERENCES chats(id),
				position INTEGER NOT NULL,
				username TEXT NOT NULL,
				PRIMARY KEY (chat_id, position)
			);
			CREATE INDEX IF NOT EXISTS idx_chat_participants_username ON chat_participants(username);
			CREATE TABLE IF NOT EXISTS chat_messages (
				chat_id    TEXT NOT NULL REFERENCES chats(id),
				message_id TEXT NOT NULL,
				PRIMARY KEY (chat_id, message_id)
			);
			CREATE TABLE IF NOT EXISTS messages (
				id         TEXT PRIMARY KEY,
				sender     TEXT NOT NULL,
				chat_id    TEXT NOT NULL,
				message    TEXT NOT NULL,
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id, created_at);
		`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s tables: %w", step.name, err)
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// stringList runs a single-column query and collects the results. It always
// returns a non-nil slice.
func stringList(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// exists reports whether query returns at least one row.
func (db *DB) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// toArgs converts ids for use as variadic query arguments.
func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// notFoundOr translates sql.ErrNoRows into a NotFound error for entity and
// wraps anything else with the operation name.
func notFoundOr(err error, entity, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(entity + " not found")
	}
	return fmt.Errorf("sqlite: %s: %w", op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
