// Package assistant is the entry point for chat turns and deck operations. It validates input,
// serializes work per conversation and turns every failure into a well-formed Response.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/ai"
	"github.com/spigell/job-assistant/internal/conversation"
	"github.com/spigell/job-assistant/internal/dialog"
	"github.com/spigell/job-assistant/internal/logger"
	"github.com/spigell/job-assistant/internal/metrics"
	"github.com/spigell/job-assistant/internal/ranking"
)

const (
	ModeInvalidInput dialog.Mode = "invalid_input"
	ModeError        dialog.Mode = "error"
)

const (
	DefaultTurnTimeout      = 30 * time.Second
	DefaultHistorySize      = 20
	DefaultMaxMessageLength = 2000
)

const (
	errorText       = "Something went wrong on my side. Please try again."
	emptyText       = "Tell me the role and location you're looking for."
	tooLongText     = "That message is a bit long. Could you say it in fewer words?"
	missingIDText   = "I couldn't tell which conversation this is. Please start a new chat."
	unknownDeckText = "That deck is no longer available. Ask me to search again."
)

// ErrInvalidInput marks caller mistakes. They become mode invalid_input, never mode error.
var ErrInvalidInput = errors.New("invalid input")

// Response is what the outer layer renders. Slices are never nil and AssistantText is never empty.
type Response struct {
	AssistantText string              `json:"assistantText"`
	Mode          dialog.Mode         `json:"mode"`
	Actions       []dialog.ActionItem `json:"actions"`
	Jobs          []ranking.JobCard   `json:"jobs"`
	Links         []dialog.LinkItem   `json:"links"`
	Debug         map[string]any      `json:"debug"`
}

type Assistant struct {
	machine *dialog.Machine
	store   conversation.Store
	locker  *conversation.Locker

	turnTimeout      time.Duration
	historySize      int
	maxMessageLength int

	logger *zap.Logger
	now    func() time.Time
}

type Options struct {
	TurnTimeout      time.Duration
	HistorySize      int
	MaxMessageLength int
	Logger           *zap.Logger
}

func New(machine *dialog.Machine, store conversation.Store, opts Options) *Assistant {
	a := &Assistant{
		machine:          machine,
		store:            store,
		locker:           conversation.NewLocker(),
		turnTimeout:      opts.TurnTimeout,
		historySize:      opts.HistorySize,
		maxMessageLength: opts.MaxMessageLength,
		logger:           opts.Logger,
		now:              time.Now,
	}
	if a.turnTimeout <= 0 {
		a.turnTimeout = DefaultTurnTimeout
	}
	if a.historySize <= 0 {
		a.historySize = DefaultHistorySize
	}
	if a.maxMessageLength <= 0 {
		a.maxMessageLength = DefaultMaxMessageLength
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.store == nil {
		a.store = conversation.NewMemoryStore()
	}
	return a
}

// Process handles one chat message.
func (a *Assistant) Process(ctx context.Context, conversationID, userID, message string) Response {
	msg := strings.TrimSpace(message)
	if text, err := a.validateMessage(msg); err != nil {
		resp := a.invalid(conversationID, userID, text, err)
		metrics.TurnsTotal.WithLabelValues(string(resp.Mode)).Inc()
		return resp
	}

	return a.turn(ctx, conversationID, userID, "message", func(ctx context.Context, st *conversation.State) (dialog.Reply, error) {
		reply, err := a.machine.Advance(ctx, st, msg)
		if err != nil {
			return reply, err
		}
		st.AddTurn(ai.RoleUser, msg, a.historySize)
		st.AddTurn(ai.RoleAssistant, reply.Text, a.historySize)
		return reply, nil
	})
}

// Deck returns the cards of deckID.
func (a *Assistant) Deck(ctx context.Context, conversationID, userID, deckID string) Response {
	return a.turn(ctx, conversationID, userID, "deck", func(_ context.Context, st *conversation.State) (dialog.Reply, error) {
		return a.machine.Deck(st, deckID)
	})
}

// SubmitSwipes stores the liked and passed job ids of deckID.
func (a *Assistant) SubmitSwipes(ctx context.Context, conversationID, userID, deckID string, liked, passed []string) Response {
	return a.turn(ctx, conversationID, userID, "swipe", func(_ context.Context, st *conversation.State) (dialog.Reply, error) {
		reply, err := a.machine.SubmitSwipes(st, deckID, liked, passed)
		if err != nil {
			return reply, err
		}
		st.AddTurn(ai.RoleSystem, fmt.Sprintf("Deck complete. liked=%d passed=%d", len(st.CurrentDeck.Liked), len(st.CurrentDeck.Passed)), a.historySize)
		return reply, nil
	})
}

type turnFunc func(ctx context.Context, st *conversation.State) (dialog.Reply, error)

// turn runs fn on a copy of the stored state under the conversation lock and commits
// the copy only when fn succeeded before the context expired.
func (a *Assistant) turn(ctx context.Context, conversationID, userID, op string, fn turnFunc) (resp Response) {
	start := a.now()
	log := logger.WithConversation(a.logger, conversationID, userID).With(zap.String("op", op))

	defer func() {
		metrics.TurnsTotal.WithLabelValues(string(resp.Mode)).Inc()
		metrics.TurnDuration.Observe(a.now().Sub(start).Seconds())
	}()

	if strings.TrimSpace(conversationID) == "" || strings.TrimSpace(userID) == "" {
		return a.invalid(conversationID, userID, missingIDText, fmt.Errorf("%w: missing conversation or user id", ErrInvalidInput))
	}

	ctx, cancel := context.WithTimeout(ctx, a.turnTimeout)
	defer cancel()

	key := conversation.Key(userID, conversationID)
	unlock, err := a.locker.Lock(ctx, key)
	if err != nil {
		return a.failure(log, fmt.Errorf("waiting for conversation lock: %w", err))
	}
	defer unlock()

	stored, err := a.store.Get(ctx, key)
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		stored = conversation.New(conversationID, userID, a.now())
	case err != nil:
		return a.failure(log, fmt.Errorf("loading conversation state: %w", err))
	}

	st := stored.Clone()
	reply, err := safeRun(ctx, st, fn)
	switch {
	case errors.Is(err, dialog.ErrUnknownDeck):
		return a.invalid(conversationID, userID, unknownDeckText, fmt.Errorf("%w: %w", ErrInvalidInput, err))
	case err != nil:
		return a.failure(log, err)
	case ctx.Err() != nil:
		return a.failure(log, fmt.Errorf("turn finished after deadline: %w", ctx.Err()))
	}

	st.LastActivity = a.now()
	if err := a.store.Save(ctx, key, st); err != nil {
		return a.failure(log, fmt.Errorf("saving conversation state: %w", err))
	}

	resp = toResponse(reply)
	resp.Debug["phase"] = string(st.Phase)

	log.Info("turn processed",
		zap.String("mode", string(resp.Mode)),
		zap.String(logger.FieldPhase, string(st.Phase)),
		zap.Duration("took", a.now().Sub(start)),
	)

	return resp
}

// safeRun turns a panic inside fn into an error.
func safeRun(ctx context.Context, st *conversation.State, fn turnFunc) (reply dialog.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in turn: %v", r)
		}
	}()
	return fn(ctx, st)
}

func (a *Assistant) failure(log *zap.Logger, err error) Response {
	log.Error("turn failed", zap.Error(err))
	return newResponse(errorText, ModeError)
}

func (a *Assistant) invalid(conversationID, userID, text string, err error) Response {
	logger.WithConversation(a.logger, conversationID, userID).Info("invalid input", zap.Error(err))
	return newResponse(text, ModeInvalidInput)
}

// validateMessage returns the text to show when msg cannot be processed.
func (a *Assistant) validateMessage(msg string) (string, error) {
	switch {
	case msg == "":
		return emptyText, fmt.Errorf("%w: empty message", ErrInvalidInput)
	case utf8.RuneCountInString(msg) > a.maxMessageLength:
		return tooLongText, fmt.Errorf("%w: message longer than %d", ErrInvalidInput, a.maxMessageLength)
	}
	return "", nil
}

func newResponse(text string, mode dialog.Mode) Response {
	return Response{
		AssistantText: text,
		Mode:          mode,
		Actions:       []dialog.ActionItem{},
		Jobs:          []ranking.JobCard{},
		Links:         []dialog.LinkItem{},
		Debug:         map[string]any{},
	}
}

func toResponse(reply dialog.Reply) Response {
	text := strings.TrimSpace(reply.Text)
	if text == "" {
		text = errorText
	}
	mode := reply.Mode
	if mode == "" {
		mode = dialog.ModeChat
	}

	resp := newResponse(text, mode)
	resp.Actions = append(resp.Actions, reply.Actions...)
	resp.Jobs = append(resp.Jobs, reply.Jobs...)
	resp.Links = append(resp.Links, reply.Links...)
	for k, v := range reply.Debug {
		resp.Debug[k] = v
	}
	return resp
}
