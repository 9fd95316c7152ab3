package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
)

// participantsKey is the order-independent identity of a participant set.
// Usernames cannot contain the unit separator, so the join is unambiguous.
func participantsKey(participants []string) string {
	sorted := append([]string(nil), participants...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}

func (db *DB) CreateChat(ctx context.Context, c *model.Chat) error {
	c.ID = xid.New().String()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning chat insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chats (id, participants_key, created_at) VALUES (?, ?, ?)`,
		c.ID, participantsKey(c.Participants), c.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: inserting chat: %w", err)
	}
	for i, p := range c.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, position, username) VALUES (?, ?, ?)`,
			c.ID, i, p,
		); err != nil {
			return fmt.Errorf("sqlite: adding participant %s to chat %s: %w", p, c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing chat %s: %w", c.ID, err)
	}
	c.Messages = []string{}
	return nil
}

func (db *DB) GetChatByID(ctx context.Context, id string) (*model.Chat, error) {
	var c model.Chat
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM chats WHERE id = ?`, id,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "chat", "getting chat "+id)
	}

	if c.Participants, err = stringList(ctx, db.conn,
		`SELECT username FROM chat_participants WHERE chat_id = ? ORDER BY position`, c.ID); err != nil {
		return nil, fmt.Errorf("sqlite: loading participants for chat %s: %w", c.ID, err)
	}
	if c.Messages, err = stringList(ctx, db.conn,
		`SELECT message_id FROM chat_messages WHERE chat_id = ? ORDER BY rowid`, c.ID); err != nil {
		return nil, fmt.Errorf("sqlite: loading messages for chat %s: %w", c.ID, err)
	}
	return &c, nil
}

func (db *DB) FindChatByParticipants(ctx context.Context, participants []string) (*model.Chat, error) {
	var id string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM chats WHERE participants_key = ? ORDER BY created_at LIMIT 1`,
		participantsKey(participants),
	).Scan(&id)
	if err != nil {
		return nil, notFoundOr(err, "chat", "finding chat by participants")
	}
	return db.GetChatByID(ctx, id)
}

func (db *DB) ListChatsByParticipant(ctx context.Context, username string) ([]model.Chat, error) {
	ids, err := stringList(ctx, db.conn,
		`SELECT DISTINCT c.id FROM chats c
		 JOIN chat_participants p ON p.chat_id = c.id
		 WHERE p.username = ?
		 ORDER BY c.created_at, c.id`, username)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing chats for %s: %w", username, err)
	}

	out := make([]model.Chat, 0, len(ids))
	for _, id := range ids {
		c, err := db.GetChatByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func (db *DB) AddMessageToChat(ctx context.Context, chatID, messageID string) error {
	ok, err := db.exists(ctx, `SELECT 1 FROM chats WHERE id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("sqlite: checking chat %s: %w", chatID, err)
	}
	if !ok {
		return apperror.NotFound("chat not found")
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_messages (chat_id, message_id) VALUES (?, ?)`, chatID, messageID,
	); err != nil {
		return fmt.Errorf("sqlite: linking message %s to chat %s: %w", messageID, chatID, err)
	}
	return nil
}

func (db *DB) CreateMessage(ctx context.Context, m *model.Message) error {
	m.ID = xid.New().String()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO messages (id, sender, chat_id, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Sender, m.ChatID, m.Message, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting message: %w", err)
	}
	return nil
}

// ListMessagesByChat returns oldest first.
func (db *DB) ListMessagesByChat(ctx context.Context, chatID string) ([]model.Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, sender, chat_id, message, created_at FROM messages
		 WHERE chat_id = ? ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages for chat %s: %w", chatID, err)
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.ChatID, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating messages: %w", err)
	}
	return out, nil
}
