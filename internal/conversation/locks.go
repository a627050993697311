package conversation

import "sync"

// handleLocks serializes turns per contact handle. Two texts arriving at the
// same time from the same number must be processed one after the other; the
// lock is held across the whole turn including the model call.
type handleLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newHandleLocks() *handleLocks {
	return &handleLocks{locks: make(map[string]*sync.Mutex)}
}

func (h *handleLocks) get(handle string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	lock, ok := h.locks[handle]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[handle] = lock
	}
	return lock
}
