package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-assistant/internal/ranking"
)

func filledState() *State {
	st := New("c1", "u1", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	st.Phase = PhaseResultsFound
	st.RoleRaw = "waiter"
	st.RoleCanon = "waiter"
	st.RoleDisplay = "Waiter"
	st.ResolvedRole = "waiter"
	st.RoleQuery = "waiter waitress waiting staff server front of house"
	st.Location = "Edinburgh"
	st.IncomeType = IncomePartTime
	st.JobsShown = true
	st.AskedIncomeType = true
	st.Readiness = true
	st.CachedJobs = []ranking.JobCard{{ID: "a", Title: "Waiter", Reasons: []string{"r"}, Missing: []string{}}}
	st.CurrentDeck = &Deck{ID: "d1", JobIDs: []string{"a"}, Liked: []string{}, Passed: []string{}}
	st.AddTurn("user", "waiter in Edinburgh", 20)
	return st
}

func setupMiniredis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestPhaseJSON(t *testing.T) {
	var p Phase
	require.NoError(t, json.Unmarshal([]byte(`"post_swipe"`), &p))
	assert.Equal(t, PhasePostSwipe, p)

	require.NoError(t, json.Unmarshal([]byte(`""`), &p))
	assert.Equal(t, PhaseDiscovery, p)

	assert.Error(t, json.Unmarshal([]byte(`"dancing"`), &p))
	_, err := ParsePhase("dancing")
	assert.Error(t, err)
}

func TestClearSearchKeepsLocation(t *testing.T) {
	st := filledState()
	st.ClearSearch(true)

	assert.Equal(t, "Edinburgh", st.Location)
	assert.Empty(t, st.RoleCanon)
	assert.Empty(t, st.RoleQuery)
	assert.Empty(t, st.IncomeType)
	assert.False(t, st.JobsShown)
	assert.False(t, st.AskedIncomeType)
	assert.Nil(t, st.CachedJobs)
	assert.Nil(t, st.CurrentDeck)
	assert.False(t, st.UpdateReadiness())

	st.ClearSearch(false)
	assert.Empty(t, st.Location)
}

func TestResetReplacesState(t *testing.T) {
	st := filledState()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	st.Reset(now)

	assert.Equal(t, PhaseDiscovery, st.Phase)
	assert.Equal(t, "c1", st.ConversationID)
	assert.Equal(t, "u1", st.UserID)
	assert.Empty(t, st.RoleCanon)
	assert.Empty(t, st.Location)
	assert.Empty(t, st.IncomeType)
	assert.Nil(t, st.CachedJobs)
	assert.Nil(t, st.CurrentDeck)
	assert.Equal(t, now, st.CreatedAt)
	assert.Len(t, st.History, 1)
}

func TestCloneIsDeep(t *testing.T) {
	st := filledState()
	cp := st.Clone()

	cp.CachedJobs[0].Reasons[0] = "changed"
	cp.CurrentDeck.Liked = append(cp.CurrentDeck.Liked, "a")
	cp.History[0].Content = "changed"
	cp.Location = "Leeds"

	assert.Equal(t, "r", st.CachedJobs[0].Reasons[0])
	assert.Empty(t, st.CurrentDeck.Liked)
	assert.Equal(t, "waiter in Edinburgh", st.History[0].Content)
	assert.Equal(t, "Edinburgh", st.Location)
}

func TestAddTurnTrims(t *testing.T) {
	st := New("c", "u", time.Now())
	for i := 0; i < 25; i++ {
		st.AddTurn("user", string(rune('a'+i)), 20)
	}
	require.Len(t, st.History, 20)
	assert.Equal(t, "f", st.History[0].Content)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	st := filledState()
	require.NoError(t, store.Save(ctx, "k", st))

	st.Location = "mutated after save"
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Edinburgh", got.Location)

	got.Location = "mutated after get"
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Edinburgh", again.Location)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyIsUnambiguous(t *testing.T) {
	assert.Equal(t, "u1:c1", Key("u1", "c1"))
	assert.NotEqual(t, Key("a:b", "c"), Key("a", "b:c"))
	assert.NotEqual(t, Key("a%3Ab", "c"), Key("a:b", "c"))
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := setupMiniredis(t)
	ctx := context.Background()
	key := Key("u1", "c1")

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	st := filledState()
	require.NoError(t, store.Save(ctx, key, st))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, st, got)

	assert.True(t, mr.Exists(defaultKeyPrefix+key))
	assert.Equal(t, time.Hour, mr.TTL(defaultKeyPrefix+key))

	require.NoError(t, store.Delete(ctx, key))
	assert.False(t, mr.Exists(defaultKeyPrefix+key))
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", filledState()))
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptBlob(t *testing.T) {
	store, mr := setupMiniredis(t)
	require.NoError(t, mr.Set(defaultKeyPrefix+"k", `{"phase":"dancing"}`))

	_, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestLockerSerializesKey(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "same")
			require.NoError(t, err)
			defer unlock()

			mu.Lock()
			inside++
			maxInside = max(maxInside, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Empty(t, l.locks)
}

func TestLockerHonoursContext(t *testing.T) {
	l := NewLocker()

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(context.Background(), "other")
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	assert.Empty(t, l.locks)
}
