package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
)

// InsertNotifications writes the whole batch in one transaction and assigns
// each element its ID.
func (db *DB) InsertNotifications(ctx context.Context, batch []model.Notification) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning notification batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO notifications (id, sender, recipient, content, type, question_id, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: preparing notification insert: %w", err)
	}
	defer stmt.Close()

	for i := range batch {
		n := &batch[i]
		n.ID = xid.New().String()
		if _, err := stmt.ExecContext(ctx,
			n.ID, n.Sender, n.Recipient, n.Content, string(n.Type), n.QuestionID, n.IsRead, n.CreatedAt,
		); err != nil {
			return fmt.Errorf("sqlite: inserting notification for %s: %w", n.Recipient, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing notification batch: %w", err)
	}
	return nil
}

// ListNotificationsByRecipient returns newest first.
func (db *DB) ListNotificationsByRecipient(ctx context.Context, recipient string) ([]model.Notification, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, sender, recipient, content, type, question_id, is_read, created_at
		 FROM notifications
		 WHERE recipient = ?
		 ORDER BY created_at DESC, id DESC`, recipient)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications for %s: %w", recipient, err)
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var (
			n   model.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.Sender, &n.Recipient, &n.Content, &typ, &n.QuestionID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification: %w", err)
		}
		n.Type = model.NotificationType(typ)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notifications: %w", err)
	}
	return out, nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: marking notification %s read: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("notification not found")
	}
	return nil
}
