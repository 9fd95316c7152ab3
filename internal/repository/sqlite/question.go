package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
)

// CreateQuestion inserts the question and its tags in one transaction.
func (db *DB) CreateQuestion(ctx context.Context, q *model.Question) error {
	q.ID = xid.New().String()
	if q.AskDateTime.IsZero() {
		q.AskDateTime = time.Now().UTC()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning question insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO questions (id, title, text, asked_by, ask_date_time) VALUES (?, ?, ?, ?, ?)`,
		q.ID, q.Title, q.Text, q.AskedBy, q.AskDateTime,
	); err != nil {
		return fmt.Errorf("sqlite: inserting question: %w", err)
	}

	for _, tag := range q.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO question_tags (question_id, tag) VALUES (?, ?)`, q.ID, tag,
		); err != nil {
			return fmt.Errorf("sqlite: tagging question %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing question %s: %w", q.ID, err)
	}

	q.Normalize()
	return nil
}

// GetQuestionByID returns a question with all reference lists loaded.
func (db *DB) GetQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, text, asked_by, ask_date_time FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.Title, &q.Text, &q.AskedBy, &q.AskDateTime)
	if err != nil {
		return nil, notFoundOr(err, "question", "getting question "+id)
	}

	if err := db.loadQuestionLists(ctx, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuestions returns questions newest first, optionally filtered by author.
func (db *DB) ListQuestions(ctx context.Context, askedBy string) ([]model.Question, error) {
	query := `SELECT id FROM questions`
	var args []any
	if askedBy != "" {
		query += ` WHERE asked_by = ?`
		args = append(args, askedBy)
	}
	query += ` ORDER BY ask_date_time DESC, id DESC`

	ids, err := stringList(ctx, db.conn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}

	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		q, err := db.GetQuestionByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, nil
}

// FindQuestionByAnswer returns the question that owns answerID.
func (db *DB) FindQuestionByAnswer(ctx context.Context, answerID string) (*model.Question, error) {
	var qid string
	err := db.conn.QueryRowContext(ctx,
		`SELECT question_id FROM question_answers WHERE answer_id = ?`, answerID,
	).Scan(&qid)
	if err != nil {
		return nil, notFoundOr(err, "question", "finding question for answer "+answerID)
	}
	return db.GetQuestionByID(ctx, qid)
}

func (db *DB) AddAnswerToQuestion(ctx context.Context, questionID, answerID string) error {
	return db.linkToQuestion(ctx, "question_answers", "answer_id", questionID, answerID)
}

func (db *DB) AddCommentToQuestion(ctx context.Context, questionID, commentID string) error {
	return db.linkToQuestion(ctx, "question_comments", "comment_id", questionID, commentID)
}

func (db *DB) AddView(ctx context.Context, questionID, username string) error {
	return db.linkToQuestion(ctx, "question_views", "username", questionID, username)
}

func (db *DB) linkToQuestion(ctx context.Context, table, column, questionID, value string) error {
	ok, err := db.exists(ctx, `SELECT 1 FROM questions WHERE id = ?`, questionID)
	if err != nil {
		return fmt.Errorf("sqlite: checking question %s: %w", questionID, err)
	}
	if !ok {
		return apperror.NotFound("question not found")
	}

	if _, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (question_id, %s) VALUES (?, ?)`, table, column),
		questionID, value,
	); err != nil {
		return fmt.Errorf("sqlite: linking %s into %s for question %s: %w", value, table, questionID, err)
	}
	return nil
}

// Vote toggles a vote. The (question, user) primary key on question_votes
// makes it impossible for a user to hold both an up and a down vote.
func (db *DB) Vote(ctx context.Context, questionID, username string, dir model.VoteDirection) (*model.Question, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning vote: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id = ?`, questionID).Scan(&one)
	if err != nil {
		return nil, notFoundOr(err, "question", "checking question "+questionID)
	}

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT direction FROM question_votes WHERE question_id = ? AND username = ?`,
		questionID, username,
	).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: reading vote: %w", err)
	}

	if current == string(dir) {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM question_votes WHERE question_id = ? AND username = ?`, questionID, username)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO question_votes (question_id, username, direction) VALUES (?, ?, ?)
			 ON CONFLICT (question_id, username) DO UPDATE SET direction = excluded.direction`,
			questionID, username, string(dir))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: writing vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing vote: %w", err)
	}
	return db.GetQuestionByID(ctx, questionID)
}

func (db *DB) loadQuestionLists(ctx context.Context, q *model.Question) error {
	lists := []struct {
		dst   *[]string
		query string
	}{
		{&q.Tags, `SELECT tag FROM question_tags WHERE question_id = ? ORDER BY rowid`},
		{&q.Answers, `SELECT answer_id FROM question_answers WHERE question_id = ? ORDER BY rowid`},
		{&q.Comments, `SELECT comment_id FROM question_comments WHERE question_id = ? ORDER BY rowid`},
		{&q.Views, `SELECT username FROM question_views WHERE question_id = ? ORDER BY rowid`},
		{&q.UpVotes, `SELECT username FROM question_votes WHERE question_id = ? AND direction = 'up' ORDER BY rowid`},
		{&q.DownVotes, `SELECT username FROM question_votes WHERE question_id = ? AND direction = 'down' ORDER BY rowid`},
	}
	for _, l := range lists {
		vals, err := stringList(ctx, db.conn, l.query, q.ID)
		if err != nil {
			return fmt.Errorf("sqlite: loading lists for question %s: %w", q.ID, err)
		}
		*l.dst = vals
	}
	return nil
}
