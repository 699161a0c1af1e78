package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage is the durable file-backed Store. Every operation goes
// through the shared connection pool; writers that must be atomic
// (insert + trim) run inside a transaction.
type SQLiteStorage struct {
	db  *sql.DB
	cap int
	now func() time.Time
}

// NewSQLiteStorage opens (or creates) the database at path, creating the
// parent directory when missing, and initializes the schema. historyTurns
// is the number of retained user+assistant turn pairs; the stored cap is
// twice that.
func NewSQLiteStorage(path string, historyTurns int) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening db at %s: %w", path, err)
	}

	s := &SQLiteStorage{db: db, cap: historyTurns * 2, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			username TEXT,
			messages_today INTEGER DEFAULT 0,
			last_reset TEXT
		);

		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('user','assistant','system')),
			content TEXT NOT NULL,
			ts DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_turns_user_id ON turns(user_id, id);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) today() string {
	return s.now().UTC().Format(dateLayout)
}

func (s *SQLiteStorage) GetOrCreateUser(userID int64, username string) (User, error) {
	today := s.today()

	u := User{ID: userID}
	err := s.db.QueryRow(
		`SELECT user_id, username, messages_today, last_reset FROM users WHERE user_id = ?`,
		userID,
	).Scan(&u.ID, &u.Username, &u.MessagesToday, &u.LastReset)

	if err == sql.ErrNoRows {
		_, err = s.db.Exec(
			`INSERT INTO users (user_id, username, messages_today, last_reset) VALUES (?, ?, 0, ?)`,
			userID, username, today,
		)
		if err != nil {
			return User{}, fmt.Errorf("inserting user %d: %w", userID, err)
		}
		return User{ID: userID, Username: username, MessagesToday: 0, LastReset: today}, nil
	}
	if err != nil {
		return User{}, fmt.Errorf("selecting user %d: %w", userID, err)
	}

	return s.rolloverIfStale(u, today)
}

// rolloverIfStale resets the daily counter when the stored date is not
// today, writing the reset back before the value is used.
func (s *SQLiteStorage) rolloverIfStale(u User, today string) (User, error) {
	if u.LastReset == today {
		return u, nil
	}
	_, err := s.db.Exec(
		`UPDATE users SET messages_today = 0, last_reset = ? WHERE user_id = ?`,
		today, u.ID,
	)
	if err != nil {
		return User{}, fmt.Errorf("resetting counter for user %d: %w", u.ID, err)
	}
	u.MessagesToday = 0
	u.LastReset = today
	return u, nil
}

func (s *SQLiteStorage) IncrementCounter(userID int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET messages_today = COALESCE(messages_today, 0) + 1 WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("incrementing counter for user %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStorage) AppendTurn(userID int64, role, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning append: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec(
		`INSERT INTO turns (user_id, role, content) VALUES (?, ?, ?)`,
		userID, role, content,
	); err != nil {
		return fmt.Errorf("inserting turn for user %d: %w", userID, err)
	}

	// keep only the newest cap rows for this user
	if _, err = tx.Exec(
		`DELETE FROM turns WHERE id IN (
			SELECT id FROM turns WHERE user_id = ? ORDER BY id DESC LIMIT -1 OFFSET ?
		)`,
		userID, s.cap,
	); err != nil {
		return fmt.Errorf("trimming turns for user %d: %w", userID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing append: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetHistory(userID int64) ([]Turn, error) {
	rows, err := s.db.Query(
		`SELECT role, content FROM turns WHERE user_id = ? ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting turns for user %d: %w", userID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading turns for user %d: %w", userID, err)
	}
	return turns, nil
}

func (s *SQLiteStorage) ClearHistory(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM turns WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clearing turns for user %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
