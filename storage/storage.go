package storage

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// User holds the per-user quota row. LastReset is a YYYY-MM-DD date
// rendered in UTC; the counter is only meaningful for that date.
type User struct {
	ID            int64  `bson:"user_id"`
	Username      string `bson:"username"`
	MessagesToday int    `bson:"messages_today"`
	LastReset     string `bson:"last_reset"`
}

// Turn is a single message in a user's conversation, owned by that user.
type Turn struct {
	Role    string `bson:"role"`
	Content string `bson:"content"`
}

// Store is the persistence contract shared by the SQLite, Mongo and
// in-memory backends. GetHistory returns turns oldest first. AppendTurn
// trims the history to the most recent cap entries as part of the same
// logical operation, so no read ever observes more than the cap.
// IncrementCounter is a silent no-op for an unknown user.
type Store interface {
	GetOrCreateUser(userID int64, username string) (User, error)
	IncrementCounter(userID int64) error
	AppendTurn(userID int64, role, content string) error
	GetHistory(userID int64) ([]Turn, error)
	ClearHistory(userID int64) error
	Close() error
}

const dateLayout = "2006-01-02"
