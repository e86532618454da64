package session

import "sync"

// Feed holds the current raw session and re-resolves it on every update
// pushed by the identity provider. Subscribers are notified only on
// genuine transitions: an update that resolves to an identical snapshot
// is dropped, so consumers never re-fire on unrelated refreshes.
type Feed struct {
	mu     sync.Mutex
	cur    Session
	subs   map[int]func(Session)
	nextID int
}

// NewFeed creates a Feed in the loading state.
func NewFeed() *Feed {
	return &Feed{
		cur:  Session{Status: StatusLoading},
		subs: make(map[int]func(Session)),
	}
}

// Current returns the latest consistent snapshot.
func (f *Feed) Current() Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur
}

// Set resolves raw and, if the snapshot changed, notifies subscribers.
func (f *Feed) Set(raw RawSession) {
	next := Resolve(raw)

	f.mu.Lock()
	if next.Equal(f.cur) {
		f.mu.Unlock()
		return
	}
	f.cur = next
	fns := make([]func(Session), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// Subscribe registers fn to run on every transition and returns a
// cancel func. fn is also invoked immediately with the current snapshot
// so late subscribers do not miss the state they joined in.
func (f *Feed) Subscribe(fn func(Session)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	cur := f.cur
	f.mu.Unlock()

	fn(cur)

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}
