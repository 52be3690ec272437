package rooms

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateIsUniqueUnderConcurrency(t *testing.T) {
	g := NewRegistry()
	const callers = 64
	got := make([]*Room, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = g.GetOrCreate("s1", "seed", "javascript")
		}(i)
	}
	wg.Wait()
	for _, r := range got {
		assert.Same(t, got[0], r)
	}
	assert.Equal(t, 1, g.Len())
}

func TestGetOrCreateKeepsExistingState(t *testing.T) {
	g := NewRegistry()
	_, created := g.GetOrCreate("s1", "seed", "javascript")
	require.True(t, created)
	require.NoError(t, g.SetCode("s1", "x=1"))

	r, created := g.GetOrCreate("s1", "other seed", "python")
	assert.False(t, created)
	require.NoError(t, g.Do("s1", func(r *Room) error {
		assert.Equal(t, "x=1", r.Code())
		assert.Equal(t, "javascript", r.Language())
		return nil
	}))
	assert.Equal(t, "s1", r.ID)
}

func TestMembership(t *testing.T) {
	g := NewRegistry()
	assert.ErrorIs(t, g.AddClient("missing", "c1", "Alice"), ErrNoRoom)

	remaining, removed := g.RemoveClient("missing", "c1")
	assert.False(t, removed)
	assert.Zero(t, remaining)

	g.GetOrCreate("s1", "", "javascript")
	require.NoError(t, g.AddClient("s1", "c1", "Alice"))
	require.NoError(t, g.AddClient("s1", "c2", "Bob"))

	require.NoError(t, g.Do("s1", func(r *Room) error {
		assert.Equal(t, []string{"c1", "c2"}, r.Members())
		name, ok := r.Name("c2")
		assert.True(t, ok)
		assert.Equal(t, "Bob", name)
		return nil
	}))

	remaining, removed = g.RemoveClient("s1", "c1")
	assert.True(t, removed)
	assert.Equal(t, 1, remaining)

	_, removed = g.RemoveClient("s1", "c1")
	assert.False(t, removed)
}

func TestSetLanguageBumpsRev(t *testing.T) {
	g := NewRegistry()
	g.GetOrCreate("s1", "", "javascript")
	require.NoError(t, g.SetLanguage("s1", "python"))
	require.NoError(t, g.SetCode("s1", "print(1)"))
	require.NoError(t, g.Do("s1", func(r *Room) error {
		snap := r.Snapshot()
		assert.Equal(t, Snapshot{SessionID: "s1", Code: "print(1)", Language: "python", Epoch: 1, Rev: 2}, snap)
		assert.True(t, snap.Newer(Snapshot{Epoch: 1, Rev: 1}))
		assert.False(t, snap.Newer(Snapshot{Epoch: 2}))
		return nil
	}))
	assert.ErrorIs(t, g.SetCode("missing", "x"), ErrNoRoom)
}

func TestSweepEvictsOnlyIdleEmptyRooms(t *testing.T) {
	now := time.Now()
	g := NewRegistry()
	g.now = func() time.Time { return now }

	g.GetOrCreate("empty", "", "javascript")
	g.GetOrCreate("busy", "", "javascript")
	require.NoError(t, g.AddClient("busy", "c1", "Alice"))

	assert.Empty(t, g.Sweep(time.Minute))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, []string{"empty"}, g.Sweep(time.Minute))
	assert.Equal(t, 1, g.Len())
	assert.ErrorIs(t, g.Do("empty", func(*Room) error { return nil }), ErrNoRoom)
}

func TestSweepExceptKeepsRoomsTheCallerHolds(t *testing.T) {
	g := NewRegistry()
	g.GetOrCreate("saved", "", "javascript")
	g.GetOrCreate("unsaved", "x=1", "javascript")

	evicted := g.SweepExcept(0, func(id string) bool { return id == "unsaved" })
	assert.Equal(t, []string{"saved"}, evicted)
	require.NoError(t, g.Do("unsaved", func(r *Room) error {
		assert.Equal(t, "x=1", r.Code())
		return nil
	}))

	assert.Equal(t, []string{"unsaved"}, g.SweepExcept(0, func(string) bool { return false }))
	assert.Equal(t, 0, g.Len())
}

func TestJoinNeverLandsInEvictedRoom(t *testing.T) {
	g := NewRegistry()
	old, _ := g.GetOrCreate("s1", "old", "javascript")
	g.Sweep(0)

	var joined *Room
	require.NoError(t, g.Join("s1", "fresh", "go", func(r *Room) error {
		r.Add("c1", "Alice")
		joined = r
		return nil
	}))
	assert.NotSame(t, old, joined)
	require.NoError(t, g.Do("s1", func(r *Room) error {
		assert.Same(t, joined, r)
		assert.Equal(t, "fresh", r.Code())
		assert.True(t, r.Has("c1"))
		return nil
	}))
}

func TestDoSerializesMutations(t *testing.T) {
	g := NewRegistry()
	g.GetOrCreate("s1", "", "javascript")
	const writers = 100
	var wg sync.WaitGroup
	for iter := 0; iter < writers; iter++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Do("s1", func(r *Room) error {
				r.SetCode(r.Code() + "x")
				return nil
			})
		}()
	}
	wg.Wait()
	require.NoError(t, g.Do("s1", func(r *Room) error {
		assert.Len(t, r.Code(), writers)
		assert.Equal(t, uint64(writers), r.Rev())
		return nil
	}))
}
