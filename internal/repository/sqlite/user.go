package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
)

const userColumns = `id, username, first_name, last_name, picture, biography,
	COALESCE(github_id, 0), privacy, settings, created_at`

// CreateUser inserts a new user and fills in ID and CreatedAt.
//
// Privacy and display settings are small fixed-shape structs, so they are
// stored as JSON text columns rather than one column per flag.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	privacy, settings, err := encodePreferences(user)
	if err != nil {
		return fmt.Errorf("sqlite: encoding preferences for %s: %w", user.Username, err)
	}

	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, first_name, last_name, picture, biography,
		                    github_id, privacy, settings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Picture,
		user.Biography,
		nullableGitHubID(user.GitHubID),
		privacy,
		settings,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists.")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}

	user.Normalize()
	return nil
}

// GetUserByID returns a user with every reference list loaded.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id = ?", id)
}

// GetUserByUsername returns a user with every reference list loaded.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username = ?", username)
}

// GetUserByGitHubID finds the account linked to a GitHub login.
func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUser(ctx, "github_id = ?", githubID)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg)

	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundOr(err, "user", fmt.Sprintf("getting user (%v)", arg))
	}

	if err := db.loadUserLists(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns every user, oldest account first.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		users = append(users, *u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	// Lists are loaded after the cursor is closed; with a single-connection
	// pool a nested query would otherwise wait forever.
	for i := range users {
		if err := db.loadUserLists(ctx, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdateUserProfile overwrites display fields and preferences. Reference
// lists are not touched.
func (db *DB) UpdateUserProfile(ctx context.Context, user *model.User) error {
	privacy, settings, err := encodePreferences(user)
	if err != nil {
		return fmt.Errorf("sqlite: encoding preferences for %s: %w", user.Username, err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET first_name = ?, last_name = ?, picture = ?, biography = ?,
		     github_id = ?, privacy = ?, settings = ?
		 WHERE username = ?`,
		user.FirstName,
		user.LastName,
		user.Picture,
		user.Biography,
		nullableGitHubID(user.GitHubID),
		privacy,
		settings,
		user.Username,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.Username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

func (db *DB) AddFriend(ctx context.Context, username, friend string) error {
	return db.addToList(ctx, "user_friends", "friend", username, friend)
}

func (db *DB) RemoveFriend(ctx context.Context, username, friend string) error {
	return db.removeFromList(ctx, "user_friends", "friend", username, friend)
}

func (db *DB) AddRequest(ctx context.Context, username, requester string) error {
	return db.addToList(ctx, "user_requests", "requester", username, requester)
}

func (db *DB) RemoveRequest(ctx context.Context, username, requester string) error {
	return db.removeFromList(ctx, "user_requests", "requester", username, requester)
}

func (db *DB) AddNotification(ctx context.Context, username, notificationID string) error {
	return db.addToList(ctx, "user_notifications", "notification_id", username, notificationID)
}

func (db *DB) AddChat(ctx context.Context, username, chatID string) error {
	return db.addToList(ctx, "user_chats", "chat_id", username, chatID)
}

// addToList inserts one element into a user's join table. Table and column
// names come from the constants above, never from user input.
func (db *DB) addToList(ctx context.Context, table, column, username, value string) error {
	if err := db.requireUser(ctx, username); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (username, %s) VALUES (?, ?)`, table, column),
		username, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding %s to %s.%s: %w", value, username, table, err)
	}
	return nil
}

func (db *DB) removeFromList(ctx context.Context, table, column, username, value string) error {
	if err := db.requireUser(ctx, username); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE username = ? AND %s = ?`, table, column),
		username, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing %s from %s.%s: %w", value, username, table, err)
	}
	return nil
}

func (db *DB) requireUser(ctx context.Context, username string) error {
	ok, err := db.exists(ctx, `SELECT 1 FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("sqlite: checking user %s: %w", username, err)
	}
	if !ok {
		return apperror.NotFound("user not found")
	}
	return nil
}

func (db *DB) loadUserLists(ctx context.Context, u *model.User) error {
	lists := []struct {
		dst   *[]string
		query string
	}{
		{&u.Friends, `SELECT friend FROM user_friends WHERE username = ? ORDER BY rowid`},
		{&u.Requests, `SELECT requester FROM user_requests WHERE username = ? ORDER BY rowid`},
		{&u.Notifications, `SELECT notification_id FROM user_notifications WHERE username = ? ORDER BY rowid`},
		{&u.Chats, `SELECT chat_id FROM user_chats WHERE username = ? ORDER BY rowid`},
	}
	for _, l := range lists {
		vals, err := stringList(ctx, db.conn, l.query, u.Username)
		if err != nil {
			return fmt.Errorf("sqlite: loading lists for %s: %w", u.Username, err)
		}
		*l.dst = vals
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                 model.User
		privacy, settings string
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Picture,
		&u.Biography,
		&u.GitHubID,
		&privacy,
		&settings,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(privacy), &u.PrivacySettings); err != nil {
		return nil, fmt.Errorf("decoding privacy settings: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &u.Settings); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	u.Normalize()
	return &u, nil
}

func encodePreferences(u *model.User) (string, string, error) {
	privacy, err := json.Marshal(u.PrivacySettings)
	if err != nil {
		return "", "", err
	}
	settings, err := json.Marshal(u.Settings)
	if err != nil {
		return "", "", err
	}
	return string(privacy), string(settings), nil
}

// nullableGitHubID stores 0 as NULL so the UNIQUE index only covers linked accounts.
func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
