package media

import (
	"sort"
	"sync"
)

// Target is where a stream is rendered. The UI decides what rendering means.
type Target struct {
	ID string

	mu     sync.Mutex
	stream Stream
}

// Stream returns the bound stream, or nil.
func (t *Target) Stream() Stream {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stream
}

func (t *Target) swap(s Stream) Stream {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.stream
	t.stream = s
	return old
}

// Targets holds one render target per remote participant.
type Targets struct {
	mu      sync.Mutex
	targets map[string]*Target
}

func NewTargets() *Targets {
	return &Targets{targets: make(map[string]*Target)}
}

// Attach returns the target for id, creating it if needed.
func (ts *Targets) Attach(id string) *Target {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.targets[id]; ok {
		return t
	}
	t := &Target{ID: id}
	ts.targets[id] = t
	return t
}

// Detach removes the target for id and unbinds its stream. It reports
// whether a target existed.
func (ts *Targets) Detach(id string) bool {
	ts.mu.Lock()
	t, ok := ts.targets[id]
	delete(ts.targets, id)
	ts.mu.Unlock()
	if ok {
		t.swap(nil)
	}
	return ok
}

// DetachTarget unbinds t and removes it if it is still the target for
// t.ID. A newer target for the same id is left alone.
func (ts *Targets) DetachTarget(t *Target) {
	ts.mu.Lock()
	if ts.targets[t.ID] == t {
		delete(ts.targets, t.ID)
	}
	ts.mu.Unlock()
	t.swap(nil)
}

func (ts *Targets) Get(id string) (*Target, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.targets[id]
	return t, ok
}

func (ts *Targets) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.targets)
}

// IDs returns the attached ids in sorted order.
func (ts *Targets) IDs() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ids := make([]string, 0, len(ts.targets))
	for id := range ts.targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear detaches every target.
func (ts *Targets) Clear() {
	for _, id := range ts.IDs() {
		ts.Detach(id)
	}
}
