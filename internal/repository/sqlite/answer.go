package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
)

// CreateAnswer stores a standalone answer. Linking it to its question is a
// separate step (AddAnswerToQuestion).
func (db *DB) CreateAnswer(ctx context.Context, a *model.Answer) error {
	a.ID = xid.New().String()
	if a.AnsDateTime.IsZero() {
		a.AnsDateTime = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO answers (id, text, ans_by, ans_date_time) VALUES (?, ?, ?, ?)`,
		a.ID, a.Text, a.AnsBy, a.AnsDateTime,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting answer: %w", err)
	}

	a.Comments = []string{}
	return nil
}

func (db *DB) GetAnswerByID(ctx context.Context, id string) (*model.Answer, error) {
	var a model.Answer
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, text, ans_by, ans_date_time FROM answers WHERE id = ?`, id,
	).Scan(&a.ID, &a.Text, &a.AnsBy, &a.AnsDateTime)
	if err != nil {
		return nil, notFoundOr(err, "answer", "getting answer "+id)
	}

	a.Comments, err = stringList(ctx, db.conn,
		`SELECT comment_id FROM answer_comments WHERE answer_id = ? ORDER BY rowid`, a.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading comments for answer %s: %w", a.ID, err)
	}
	return &a, nil
}

// GetAnswersByIDs looks answers up one by one so the result follows the
// order of ids. Missing IDs are skipped.
func (db *DB) GetAnswersByIDs(ctx context.Context, ids []string) ([]model.Answer, error) {
	out := make([]model.Answer, 0, len(ids))
	for _, id := range ids {
		a, err := db.GetAnswerByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func (db *DB) ListAnswersByAuthor(ctx context.Context, ansBy string) ([]model.Answer, error) {
	ids, err := stringList(ctx, db.conn,
		`SELECT id FROM answers WHERE ans_by = ? ORDER BY ans_date_time DESC, id DESC`, ansBy)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers by %s: %w", ansBy, err)
	}
	return db.GetAnswersByIDs(ctx, ids)
}

func (db *DB) AddCommentToAnswer(ctx context.Context, answerID, commentID string) error {
	ok, err := db.exists(ctx, `SELECT 1 FROM answers WHERE id = ?`, answerID)
	if err != nil {
		return fmt.Errorf("sqlite: checking answer %s: %w", answerID, err)
	}
	if !ok {
		return apperror.NotFound("answer not found")
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO answer_comments (answer_id, comment_id) VALUES (?, ?)`,
		answerID, commentID,
	); err != nil {
		return fmt.Errorf("sqlite: linking comment %s to answer %s: %w", commentID, answerID, err)
	}
	return nil
}
