package dialog

import (
	"fmt"

	"github.com/spigell/job-assistant/internal/conversation"
	"github.com/spigell/job-assistant/internal/ranking"
)

func currentDeck(st *conversation.State, deckID string) (*conversation.Deck, error) {
	if st.CurrentDeck == nil || deckID == "" || st.CurrentDeck.ID != deckID {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeck, deckID)
	}
	return st.CurrentDeck, nil
}

// Deck returns the cards of the current deck in deck order.
func (m *Machine) Deck(st *conversation.State, deckID string) (Reply, error) {
	deck, err := currentDeck(st, deckID)
	if err != nil {
		return Reply{}, err
	}

	reply := newReply(deckText, ModeSwipeDeck)
	reply.Jobs = deckCards(st, deck)
	reply.Debug["deck_id"] = deck.ID
	reply.Debug["deck_size"] = len(reply.Jobs)
	return reply, nil
}

// SubmitSwipes records the swipe results, completes the deck and asks whether to talk about the likes.
func (m *Machine) SubmitSwipes(st *conversation.State, deckID string, liked, passed []string) (Reply, error) {
	deck, err := currentDeck(st, deckID)
	if err != nil {
		return Reply{}, err
	}
	if err := m.move(st, conversation.PhasePostSwipe); err != nil {
		return Reply{}, err
	}

	deck.Liked = unique(liked)
	deck.Passed = unique(passed)
	deck.Complete = true

	reply := newReply(swipeSubmitText, ModePostSwipe)
	reply.Actions = append(reply.Actions, talkAction())
	reply.Debug["liked"] = len(deck.Liked)
	reply.Debug["passed"] = len(deck.Passed)
	return reply, nil
}

func deckCards(st *conversation.State, deck *conversation.Deck) []ranking.JobCard {
	cards := make([]ranking.JobCard, 0, len(deck.JobIDs))
	for _, id := range deck.JobIDs {
		if card, ok := st.Card(id); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

// unique drops blanks and repeats, keeping first occurrences in order.
func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
