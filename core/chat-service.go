package core

import "context"

// ChatService is what a transport needs from the conversation core:
// one call per inbound message, one for a history reset, one for the
// quota status query.
type ChatService interface {
	HandleMessage(ctx context.Context, userID int64, username, text string) (string, error)
	ResetHistory(userID int64) (string, error)
	QuotaStatus(userID int64, username string) (used, limit int, err error)
}
