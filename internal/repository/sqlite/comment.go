package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/heapoverflow/internal/model"
)

func (db *DB) CreateComment(ctx context.Context, c *model.Comment) error {
	c.ID = xid.New().String()
	if c.CommentDateTime.IsZero() {
		c.CommentDateTime = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, text, comment_by, comment_date_time) VALUES (?, ?, ?, ?)`,
		c.ID, c.Text, c.CommentBy, c.CommentDateTime,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment: %w", err)
	}
	return nil
}

// GetCommentsByIDs returns the comments found, ordered like ids.
func (db *DB) GetCommentsByIDs(ctx context.Context, ids []string) ([]model.Comment, error) {
	if len(ids) == 0 {
		return []model.Comment{}, nil
	}

	byID, err := db.queryComments(ctx,
		`SELECT id, text, comment_by, comment_date_time FROM comments WHERE id IN (`+placeholders(len(ids))+`)`,
		toArgs(ids)...)
	if err != nil {
		return nil, err
	}

	index := make(map[string]model.Comment, len(byID))
	for _, c := range byID {
		index[c.ID] = c
	}
	out := make([]model.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := index[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (db *DB) ListCommentsByAuthor(ctx context.Context, commentBy string) ([]model.Comment, error) {
	return db.queryComments(ctx,
		`SELECT id, text, comment_by, comment_date_time FROM comments
		 WHERE comment_by = ? ORDER BY comment_date_time DESC, id DESC`, commentBy)
}

func (db *DB) queryComments(ctx context.Context, query string, args ...any) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying comments: %w", err)
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.CommentBy, &c.CommentDateTime); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return out, nil
}
