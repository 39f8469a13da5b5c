package store

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Store holds the live state document and keeps the durable copy in step.
// Mutations go through Apply: compute the next document, persist it, then
// notify subscribers. Persistence failure never blocks adoption; the in-memory
// document is always authoritative for the running session.
type Store struct {
	mu      sync.RWMutex
	docs    Docs
	logger  *zap.Logger
	state   AppState
	subs    map[int]func(AppState)
	nextSub int
}

// NewStore creates a state store over the given document storage. A nil
// logger defaults to a no-op logger.
func NewStore(docs Docs, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		docs:   docs,
		logger: logger,
		subs:   make(map[int]func(AppState)),
	}
}

// Load reads the persisted state document and adopts it. An absent document
// yields the seeded default state; an unparseable document is logged and
// likewise replaced by the default rather than crashing the session.
func (st *Store) Load() AppState {
	st.mu.Lock()
	defer st.mu.Unlock()

	raw, ok, err := st.docs.Get(StateKey)
	if err != nil {
		st.logger.Error("read persisted state", zap.Error(err))
		st.state = DefaultState()
		return st.state.Clone()
	}
	if !ok {
		st.state = DefaultState()
		return st.state.Clone()
	}
	s, err := DecodeState([]byte(raw))
	if err != nil {
		st.logger.Error("parse persisted state, falling back to default", zap.Error(err))
		st.state = DefaultState()
		return st.state.Clone()
	}
	st.state = s
	return st.state.Clone()
}

// State returns a deep copy of the current document.
func (st *Store) State() AppState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.Clone()
}

// Apply runs op against the current document, adopts the result, persists it,
// and notifies subscribers. The durable write happens before the lock is
// released so persisted documents always follow adoption order; a later
// mutation can never be overwritten by an earlier one's write.
func (st *Store) Apply(op func(AppState) AppState) AppState {
	st.mu.Lock()
	st.state = op(st.state.Clone())
	next := st.state.Clone()
	subs := st.snapshotSubs()
	st.persist(next)
	st.mu.Unlock()

	for _, fn := range subs {
		fn(next.Clone())
	}
	return next
}

// Replace adopts a wholesale new document, as after a session import.
func (st *Store) Replace(next AppState) AppState {
	return st.Apply(func(AppState) AppState { return next.Clone() })
}

// Subscribe registers a callback invoked after every adopted document.
// The returned id cancels the subscription via Unsubscribe.
func (st *Store) Subscribe(fn func(AppState)) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	id := st.nextSub
	st.nextSub++
	st.subs[id] = fn
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (st *Store) Unsubscribe(id int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.subs, id)
}

func (st *Store) snapshotSubs() []func(AppState) {
	out := make([]func(AppState), 0, len(st.subs))
	for _, fn := range st.subs {
		out = append(out, fn)
	}
	return out
}

// persist writes the document to durable storage. A document with no active
// game is never persisted: the empty selection is a transient UI state and
// writing it would clobber a good saved session.
func (st *Store) persist(s AppState) {
	if s.ActiveGameID == "" {
		st.logger.Debug("skip persist: no active game")
		return
	}
	data, err := EncodeState(s)
	if err != nil {
		st.logger.Error("encode state", zap.Error(err))
		return
	}
	if err := st.docs.Put(StateKey, string(data)); err != nil {
		st.logger.Error("persist state", zap.Error(err))
	}
}

// Persist forces a durable write of the current document. The write is held
// under the same lock as Apply's so it cannot reorder against one.
func (st *Store) Persist() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state.ActiveGameID == "" {
		return nil
	}
	data, err := EncodeState(st.state)
	if err != nil {
		return err
	}
	if err := st.docs.Put(StateKey, string(data)); err != nil {
		return fmt.Errorf("store: persist state: %w", err)
	}
	return nil
}
