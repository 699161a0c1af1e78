package ai

import "context"

type Message struct {
	Role    string
	Content string
}

// Completer produces one reply for an ordered message list. A single
// call per reply, fully synchronous; any transport, auth or rate-limit
// problem comes back as an error.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
