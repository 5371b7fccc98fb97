package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-assistant/internal/ai"
	"github.com/spigell/job-assistant/internal/conversation"
	"github.com/spigell/job-assistant/internal/dialog"
	"github.com/spigell/job-assistant/internal/ranking"
	"github.com/spigell/job-assistant/internal/search"
)

var cards = []ranking.JobCard{
	{ID: "a1", Title: "Waiter", Company: "Bistro", Location: "Edinburgh", RedirectURL: "https://jobs.example/1", Score: 92},
	{ID: "a2", Title: "Head Waiter", Company: "Hotel", Location: "Edinburgh", RedirectURL: "https://jobs.example/2", Score: 75},
	{ID: "a3", Title: "Kitchen Porter", Company: "Cafe", Location: "Leith", RedirectURL: "https://jobs.example/3", Score: 40},
}

type stubSearcher struct {
	mu       sync.Mutex
	cards    []ranking.JobCard
	block    bool
	panics   bool
	requests []search.Request
}

func (s *stubSearcher) Run(ctx context.Context, req search.Request) (search.Result, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.panics {
		panic("ranker exploded")
	}
	if s.block {
		<-ctx.Done()
		return search.Result{Cards: []ranking.JobCard{}}, ctx.Err()
	}
	return search.Result{Cards: append([]ranking.JobCard(nil), s.cards...), Found: len(s.cards)}, nil
}

func newAssistant(t *testing.T, searcher dialog.Searcher, store conversation.Store, opts Options) (*Assistant, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	machine := dialog.New(dialog.Options{Searcher: searcher, Logger: log})
	opts.Logger = log
	return New(machine, store, opts), logs
}

func stored(t *testing.T, store conversation.Store) *conversation.State {
	t.Helper()

	st, err := store.Get(context.Background(), conversation.Key("user", "conv"))
	require.NoError(t, err)
	return st
}

func assertWellFormed(t *testing.T, resp Response) {
	t.Helper()

	assert.NotEmpty(t, resp.AssistantText)
	assert.NotEmpty(t, resp.Mode)
	assert.NotNil(t, resp.Actions)
	assert.NotNil(t, resp.Jobs)
	assert.NotNil(t, resp.Links)
	assert.NotNil(t, resp.Debug)
}

func TestProcess(t *testing.T) {
	store := conversation.NewMemoryStore()
	a, logs := newAssistant(t, &stubSearcher{cards: cards}, store, Options{})

	resp := a.Process(context.Background(), "conv", "user", "  waiter in Edinburgh  ")

	assertWellFormed(t, resp)
	assert.Equal(t, dialog.ModeChat, resp.Mode)
	assert.Equal(t, "awaiting_income_type", resp.Debug["phase"])

	st := stored(t, store)
	assert.Equal(t, "waiter", st.RoleCanon)
	assert.Equal(t, "Edinburgh", st.Location)
	require.Len(t, st.History, 2)
	assert.Equal(t, conversation.Turn{Role: ai.RoleUser, Content: "waiter in Edinburgh"}, st.History[0])
	assert.Equal(t, ai.RoleAssistant, st.History[1].Role)
	assert.Equal(t, resp.AssistantText, st.History[1].Content)

	entries := logs.FilterMessage("turn processed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "awaiting_income_type", entries[0].ContextMap()["phase"])
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		name           string
		conversationID string
		userID         string
		message        string
		text           string
	}{
		{name: "empty", conversationID: "conv", userID: "user", message: "   ", text: emptyText},
		{name: "too long", conversationID: "conv", userID: "user", message: strings.Repeat("a", 21), text: tooLongText},
		{name: "missing conversation", userID: "user", message: "hi", text: missingIDText},
		{name: "missing user", conversationID: "conv", message: "hi", text: missingIDText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := conversation.NewMemoryStore()
			a, _ := newAssistant(t, &stubSearcher{}, store, Options{MaxMessageLength: 20})

			resp := a.Process(context.Background(), tt.conversationID, tt.userID, tt.message)

			assertWellFormed(t, resp)
			assert.Equal(t, ModeInvalidInput, resp.Mode)
			assert.Equal(t, tt.text, resp.AssistantText)

			_, err := store.Get(context.Background(), conversation.Key(tt.userID, tt.conversationID))
			assert.ErrorIs(t, err, conversation.ErrNotFound)
		})
	}
}

func TestPanicIsContained(t *testing.T) {
	store := conversation.NewMemoryStore()
	searcher := &stubSearcher{cards: cards}
	a, logs := newAssistant(t, searcher, store, Options{})

	a.Process(context.Background(), "conv", "user", "waiter in Edinburgh")
	before := stored(t, store)

	searcher.panics = true
	resp := a.Process(context.Background(), "conv", "user", "part time")

	assertWellFormed(t, resp)
	assert.Equal(t, ModeError, resp.Mode)
	assert.Equal(t, errorText, resp.AssistantText)
	assert.NotContains(t, resp.AssistantText, "exploded")
	assert.Equal(t, before, stored(t, store))
	assert.Equal(t, 1, logs.FilterMessage("turn failed").Len())

	// The lock was released.
	searcher.panics = false
	resp = a.Process(context.Background(), "conv", "user", "part time")
	assert.Equal(t, dialog.ModeResultsFound, resp.Mode)
}

func TestTimedOutTurnIsDiscarded(t *testing.T) {
	store := conversation.NewMemoryStore()
	a, _ := newAssistant(t, &stubSearcher{cards: cards}, store, Options{})
	a.Process(context.Background(), "conv", "user", "waiter in Edinburgh")
	before := stored(t, store)

	slow, _ := newAssistant(t, &stubSearcher{block: true}, store, Options{TurnTimeout: 50 * time.Millisecond})
	resp := slow.Process(context.Background(), "conv", "user", "part time")

	assert.Equal(t, ModeError, resp.Mode)
	after := stored(t, store)
	assert.Equal(t, before, after)
	assert.Empty(t, after.IncomeType)
	assert.Len(t, after.History, 2)
}

func TestCancelledTurnIsDiscarded(t *testing.T) {
	store := conversation.NewMemoryStore()
	a, _ := newAssistant(t, &stubSearcher{cards: cards}, store, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := a.Process(ctx, "conv", "user", "waiter in Edinburgh")

	assert.Equal(t, ModeError, resp.Mode)
	_, err := store.Get(context.Background(), conversation.Key("user", "conv"))
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestTurnsAreSerialized(t *testing.T) {
	const workers = 16

	store := conversation.NewMemoryStore()
	a, _ := newAssistant(t, &stubSearcher{}, store, Options{HistorySize: 100})

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := a.Process(context.Background(), "conv", "user", "hmm")
			assert.NotEqual(t, ModeError, resp.Mode)
		}()
	}
	wg.Wait()

	st := stored(t, store)
	require.Len(t, st.History, 2*workers)
	for i := 0; i < len(st.History); i += 2 {
		assert.Equal(t, ai.RoleUser, st.History[i].Role)
		assert.Equal(t, ai.RoleAssistant, st.History[i+1].Role)
	}
}

func TestConversationsAreIsolated(t *testing.T) {
	store := conversation.NewMemoryStore()
	a, _ := newAssistant(t, &stubSearcher{}, store, Options{})

	a.Process(context.Background(), "conv", "user", "waiter in Edinburgh")
	a.Process(context.Background(), "conv", "other", "chef in Leeds")

	assert.Equal(t, "waiter", stored(t, store).RoleCanon)

	other, err := store.Get(context.Background(), conversation.Key("other", "conv"))
	require.NoError(t, err)
	assert.Equal(t, "chef", other.RoleCanon)
}

func TestDeckAndSwipes(t *testing.T) {
	store := conversation.NewMemoryStore()
	a, _ := newAssistant(t, &stubSearcher{cards: cards}, store, Options{})
	ctx := context.Background()

	a.Process(ctx, "conv", "user", "waiter in Edinburgh")
	resp := a.Process(ctx, "conv", "user", "part time")

	require.Equal(t, dialog.ModeResultsFound, resp.Mode)
	require.Len(t, resp.Actions, 1)
	deckID := resp.Actions[0].DeckID
	require.NotEmpty(t, deckID)
	assert.Len(t, resp.Jobs, 3)

	resp = a.Deck(ctx, "conv", "user", deckID)
	assertWellFormed(t, resp)
	assert.Equal(t, dialog.ModeSwipeDeck, resp.Mode)
	require.Len(t, resp.Jobs, 3)
	assert.Equal(t, "a1", resp.Jobs[0].ID)

	resp = a.Deck(ctx, "conv", "user", "stale")
	assert.Equal(t, ModeInvalidInput, resp.Mode)
	assert.Equal(t, unknownDeckText, resp.AssistantText)

	resp = a.SubmitSwipes(ctx, "conv", "user", "stale", []string{"a1"}, nil)
	assert.Equal(t, ModeInvalidInput, resp.Mode)

	resp = a.SubmitSwipes(ctx, "conv", "user", deckID, []string{"a1", "a1"}, []string{"a2"})
	assertWellFormed(t, resp)
	assert.Equal(t, dialog.ModePostSwipe, resp.Mode)
	assert.Equal(t, "post_swipe", resp.Debug["phase"])

	st := stored(t, store)
	require.NotNil(t, st.CurrentDeck)
	assert.True(t, st.CurrentDeck.Complete)
	assert.Equal(t, []string{"a1"}, st.CurrentDeck.Liked)
	last := st.History[len(st.History)-1]
	assert.Equal(t, conversation.Turn{Role: ai.RoleSystem, Content: "Deck complete. liked=1 passed=1"}, last)

	resp = a.Process(ctx, "conv", "user", "no")
	require.Len(t, resp.Links, 1)
	assert.Equal(t, "https://jobs.example/1", resp.Links[0].URL)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := conversation.NewRedisStore(client, time.Hour)
	a, _ := newAssistant(t, &stubSearcher{cards: cards}, store, Options{})

	a.Process(context.Background(), "conv", "user", "waiter in Edinburgh")
	assert.True(t, mr.Exists("job-assistant:conv:user:conv"))

	// A fresh process sees the same conversation.
	b, _ := newAssistant(t, &stubSearcher{cards: cards}, store, Options{})
	resp := b.Process(context.Background(), "conv", "user", "part time")

	assert.Equal(t, dialog.ModeResultsFound, resp.Mode)
	st := stored(t, store)
	assert.Equal(t, "waiter", st.RoleCanon)
	assert.Len(t, st.History, 4)
}

func TestStoreFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a, _ := newAssistant(t, &stubSearcher{}, conversation.NewRedisStore(client, 0), Options{})
	mr.Close()

	resp := a.Process(context.Background(), "conv", "user", "waiter in Edinburgh")

	assertWellFormed(t, resp)
	assert.Equal(t, ModeError, resp.Mode)
}

func TestResponseJSON(t *testing.T) {
	data, err := json.Marshal(newResponse("hello", dialog.ModeChat))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"assistantText": "hello",
		"mode": "chat",
		"actions": [],
		"jobs": [],
		"links": [],
		"debug": {}
	}`, string(data))
}
