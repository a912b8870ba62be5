package kitchen

import "sync"

// inFlight tracks which record ids have an action pending.
type inFlight struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newInFlight() *inFlight {
	return &inFlight{ids: make(map[string]bool)}
}

// acquire marks id busy, or reports false if it already was.
func (f *inFlight) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids[id] {
		return false
	}
	f.ids[id] = true
	return true
}

func (f *inFlight) release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}

func (f *inFlight) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids[id]
}
