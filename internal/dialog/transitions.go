package dialog

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/conversation"
)

// ErrIllegalTransition is returned when a handler tries a move the table does not allow.
var ErrIllegalTransition = errors.New("illegal phase transition")

// transitions lists the legal moves out of every phase. Staying put is always legal.
var transitions = map[conversation.Phase][]conversation.Phase{
	conversation.PhaseDiscovery: {
		conversation.PhaseAwaitingIncomeType,
		conversation.PhaseReady,
		conversation.PhaseClarityOffer,
	},
	conversation.PhaseAwaitingIncomeType: {
		conversation.PhaseReady,
		conversation.PhaseDiscovery,
		conversation.PhaseClarityOffer,
	},
	conversation.PhaseReady: {
		conversation.PhaseResultsFound,
		conversation.PhaseNoResults,
		conversation.PhasePostSwipe,
		conversation.PhaseDiscovery,
		conversation.PhaseClarityOffer,
	},
	conversation.PhaseResultsFound: {
		conversation.PhasePostSwipe,
		conversation.PhaseDiscovery,
		conversation.PhaseClarityOffer,
	},
	conversation.PhaseNoResults: {
		conversation.PhaseReady,
		conversation.PhaseDiscovery,
		conversation.PhaseClarityOffer,
	},
	conversation.PhasePostSwipe: {
		conversation.PhaseDiscussLikes,
		conversation.PhaseReady,
		conversation.PhaseDiscovery,
		conversation.PhaseClarityOffer,
	},
	conversation.PhaseDiscussLikes: {
		conversation.PhaseReady,
		conversation.PhasePostSwipe,
		conversation.PhaseDiscovery,
		conversation.PhaseClarityOffer,
	},
	conversation.PhaseClarityOffer: {
		conversation.PhaseClarityLevel,
		conversation.PhaseDiscovery,
	},
	conversation.PhaseClarityLevel: {
		conversation.PhaseDiscovery,
		conversation.PhaseClarityOffer,
	},
}

// CanMove reports whether the table allows from -> to.
func CanMove(from, to conversation.Phase) bool {
	if from == to {
		return to.Valid()
	}
	return slices.Contains(transitions[from], to)
}

func (m *Machine) move(st *conversation.State, to conversation.Phase) error {
	from := st.Phase
	if !CanMove(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	if from != to {
		m.logger.Debug("phase transition", zap.String("from", string(from)), zap.String("to", string(to)))
	}
	st.Phase = to
	return nil
}
