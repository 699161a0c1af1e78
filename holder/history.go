package holder

import "lana/storage"

// History names the conversation-side of the storage contract. The
// window bound is enforced by the store on append; this layer adds no
// policy of its own, only the vocabulary the conversation code speaks.
type History struct {
	storage storage.Store
}

func NewHistory(store storage.Store) *History {
	return &History{storage: store}
}

// Record appends one turn for the user.
func (h *History) Record(userID int64, role, content string) error {
	return h.storage.AppendTurn(userID, role, content)
}

// Context returns the user's retained turns, oldest first, ready for
// prompt assembly.
func (h *History) Context(userID int64) ([]storage.Turn, error) {
	return h.storage.GetHistory(userID)
}

// Reset forgets the user's conversation. The daily counter is not
// touched.
func (h *History) Reset(userID int64) error {
	return h.storage.ClearHistory(userID)
}
