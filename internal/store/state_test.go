package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAbsentSeedsDefault(t *testing.T) {
	st := NewStore(newTestDocs(t), nil)
	s := st.Load()

	require.Len(t, s.Games, 1)
	assert.Equal(t, "Aerthos", s.Games[0].Name)
	assert.Equal(t, "game-1", s.ActiveGameID)
}

func TestLoadCorruptFallsBackToDefault(t *testing.T) {
	docs := newTestDocs(t)
	require.NoError(t, docs.Put(StateKey, "{this is not json"))

	st := NewStore(docs, nil)
	s := st.Load()

	assert.Equal(t, DefaultState(), s)
}

func TestApplyPersistsAndNotifies(t *testing.T) {
	docs := newTestDocs(t)
	st := NewStore(docs, nil)
	st.Load()

	var seen []AppState
	id := st.Subscribe(func(s AppState) { seen = append(seen, s) })
	defer st.Unsubscribe(id)

	next := st.Apply(func(s AppState) AppState { return AddPlayer(s, "Mira") })

	require.Len(t, seen, 1)
	assert.Equal(t, next, seen[0])

	raw, ok, err := docs.Get(StateKey)
	require.NoError(t, err)
	require.True(t, ok)
	persisted, err := DecodeState([]byte(raw))
	require.NoError(t, err)
	g, _ := ActiveGame(persisted)
	require.Len(t, g.Players, 2)
	assert.Equal(t, "Mira", g.Players[1].Name)
}

func TestNoActiveGameIsNotPersisted(t *testing.T) {
	docs := newTestDocs(t)
	st := NewStore(docs, nil)
	st.Load()

	st.Replace(AppState{Games: []Game{}, ActiveGameID: ""})

	_, ok, err := docs.Get(StateKey)
	require.NoError(t, err)
	assert.False(t, ok, "empty-selection document must not clobber storage")

	// A previously saved document survives a later empty-selection state.
	st.Apply(func(s AppState) AppState { return DefaultState() })
	saved, _, _ := docs.Get(StateKey)
	st.Replace(AppState{Games: []Game{}, ActiveGameID: ""})
	after, ok, err := docs.Get(StateKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved, after)
}

// stalledDocs blocks the first Put until released, holding one writer mid-persist
// while others pile up behind it.
type stalledDocs struct {
	Docs
	entered chan struct{}
	release chan struct{}
	first   sync.Once
}

func (d *stalledDocs) Put(key, value string) error {
	d.first.Do(func() {
		close(d.entered)
		<-d.release
	})
	return d.Docs.Put(key, value)
}

func TestConcurrentAppliesPersistInAdoptionOrder(t *testing.T) {
	docs := newTestDocs(t)
	stalled := &stalledDocs{
		Docs:    docs,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	st := NewStore(stalled, nil)
	st.Load()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		st.Apply(func(s AppState) AppState { return AddPlayer(s, "First") })
	}()
	<-stalled.entered
	go func() {
		defer wg.Done()
		st.Apply(func(s AppState) AppState { return AddPlayer(s, "Second") })
	}()
	time.Sleep(50 * time.Millisecond)
	close(stalled.release)
	wg.Wait()

	raw, ok, err := docs.Get(StateKey)
	require.NoError(t, err)
	require.True(t, ok)
	persisted, err := DecodeState([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, st.State(), persisted, "durable document must match the adopted document")

	g, ok := ActiveGame(persisted)
	require.True(t, ok)
	assert.Len(t, g.Players, 3)
}

func TestReplaceAdoptsWholesale(t *testing.T) {
	docs := newTestDocs(t)
	st := NewStore(docs, nil)
	st.Load()

	imported, g := CreateGame(AppState{}, "Imported Realm", World{Lore: "From a file."})
	got := st.Replace(imported)

	assert.Equal(t, g.ID, got.ActiveGameID)
	assert.Equal(t, imported, st.State())
}

func TestStateReturnsCopy(t *testing.T) {
	st := NewStore(newTestDocs(t), nil)
	st.Load()

	a := st.State()
	a.Games[0].Name = "Mutated"

	assert.Equal(t, "Aerthos", st.State().Games[0].Name)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	st := NewStore(newTestDocs(t), nil)
	st.Load()

	calls := 0
	id := st.Subscribe(func(AppState) { calls++ })
	st.Apply(func(s AppState) AppState { return AddPlayer(s, "One") })
	st.Unsubscribe(id)
	st.Apply(func(s AppState) AppState { return AddPlayer(s, "Two") })

	assert.Equal(t, 1, calls)
}
