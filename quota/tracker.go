package quota

import "lana/storage"

// Tracker decides whether a user may send another free message today.
// The daily reset itself happens in the storage layer: GetOrCreateUser
// zeroes the counter on the first call of a new UTC day, so by the time
// Allow sees the user the counter is already current.
type Tracker struct {
	Limit int
}

func NewTracker(limit int) *Tracker {
	return &Tracker{Limit: limit}
}

func (t *Tracker) Allow(u storage.User) bool {
	return u.MessagesToday < t.Limit
}

// Left returns the remaining free messages for today, never negative.
func (t *Tracker) Left(u storage.User) int {
	left := t.Limit - u.MessagesToday
	if left < 0 {
		return 0
	}
	return left
}
