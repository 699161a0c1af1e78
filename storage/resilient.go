package storage

import (
	"log/slog"
	"sync"

	"lana/lib/sl"
)

// ResilientStorage wraps a durable Store with a one-shot fallback to an
// ephemeral one. The first failing operation switches the process to the
// fallback store and is retried exactly once; the switch is one-way and
// happens at most once per process. Errors after the switch propagate.
//
// The Store contract has no logical error values (an absent user is a
// no-op, an absent history is empty), so any error coming out of the
// durable store is treated as an I/O fault.
type ResilientStorage struct {
	log      *slog.Logger
	fallback func() Store

	mutex     sync.Mutex
	store     Store
	ephemeral bool
}

// NewResilientStorage wraps durable. fallback is invoked lazily, only if
// durable ever fails.
func NewResilientStorage(durable Store, fallback func() Store, log *slog.Logger) *ResilientStorage {
	return &ResilientStorage{
		log:      log.With(sl.Module("storage")),
		fallback: fallback,
		store:    durable,
	}
}

// Ephemeral reports whether the fallback has been taken.
func (r *ResilientStorage) Ephemeral() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.ephemeral
}

// do runs op against the current store. When op fails while the durable
// store is still active, do switches to the fallback and retries once.
func (r *ResilientStorage) do(op func(Store) error) error {
	r.mutex.Lock()
	store, ephemeral := r.store, r.ephemeral
	r.mutex.Unlock()

	err := op(store)
	if err == nil || ephemeral {
		return err
	}

	r.mutex.Lock()
	if !r.ephemeral {
		r.log.Warn("storage failed, switching to in-memory store until restart", sl.Err(err))
		if closeErr := r.store.Close(); closeErr != nil {
			r.log.Warn("closing failed store", sl.Err(closeErr))
		}
		r.store = r.fallback()
		r.ephemeral = true
	}
	store = r.store
	r.mutex.Unlock()

	return op(store)
}

func (r *ResilientStorage) GetOrCreateUser(userID int64, username string) (User, error) {
	var u User
	err := r.do(func(s Store) error {
		var err error
		u, err = s.GetOrCreateUser(userID, username)
		return err
	})
	return u, err
}

func (r *ResilientStorage) IncrementCounter(userID int64) error {
	return r.do(func(s Store) error {
		return s.IncrementCounter(userID)
	})
}

func (r *ResilientStorage) AppendTurn(userID int64, role, content string) error {
	return r.do(func(s Store) error {
		return s.AppendTurn(userID, role, content)
	})
}

func (r *ResilientStorage) GetHistory(userID int64) ([]Turn, error) {
	var turns []Turn
	err := r.do(func(s Store) error {
		var err error
		turns, err = s.GetHistory(userID)
		return err
	})
	return turns, err
}

func (r *ResilientStorage) ClearHistory(userID int64) error {
	return r.do(func(s Store) error {
		return s.ClearHistory(userID)
	})
}

func (r *ResilientStorage) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.store.Close()
}
