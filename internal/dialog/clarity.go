package dialog

import (
	"strings"

	"github.com/spigell/job-assistant/internal/conversation"
)

// clarityLabels names the experience levels, indexed by level.
var clarityLabels = []string{"", "student", "entry", "1-3 yrs", "3-7 yrs", "7+ yrs"}

func clarityAction(yesLabel, noLabel string) ActionItem {
	return ActionItem{
		Type:     ActionYesNo,
		YesLabel: yesLabel,
		YesValue: "clarity_yes",
		NoLabel:  noLabel,
		NoValue:  "clarity_no",
	}
}

// offerClarity answers an unsure or reflective message with a short clarity pass.
func (m *Machine) offerClarity(st *conversation.State) (Reply, error) {
	if err := m.move(st, conversation.PhaseClarityOffer); err != nil {
		return Reply{}, err
	}

	if st.HasRole() && st.HasLocation() {
		reply := chatReply("Got you. Want a quick clarity pass first, or should I continue the search you started?", "reflective_with_context")
		reply.Actions = append(reply.Actions, clarityAction("Clarity pass", "Continue search"))
		return reply, nil
	}

	reply := chatReply("Got you. Want a quick clarity pass (2 minutes) so I can suggest roles to search for?\n"+
		"Or if you already have something in mind, tell me a role + city.", "clarity_offer")
	reply.Actions = append(reply.Actions, clarityAction("Yes", "No"))
	return reply, nil
}

func (m *Machine) clarityOffer(st *conversation.State, msg string) (Reply, error) {
	yes, no := answer(msg, "clarity_yes", "clarity_no")
	switch {
	case yes:
		if err := m.move(st, conversation.PhaseClarityLevel); err != nil {
			return Reply{}, err
		}
		return chatReply(clarityLevelText, "clarity_level"), nil
	case no:
		if err := m.move(st, conversation.PhaseDiscovery); err != nil {
			return Reply{}, err
		}
		return chatReply(clarityNoText, "clarity_declined"), nil
	default:
		reply := chatReply(clarityRepeatText, "clarity_offer_repeat")
		reply.Actions = append(reply.Actions, clarityAction("Yes", "No"))
		return reply, nil
	}
}

func (m *Machine) clarityLevel(st *conversation.State, msg string) (Reply, error) {
	level := parseClarityLevel(msg)
	if level == 0 {
		return chatReply(clarityPickText, "clarity_level_reprompt"), nil
	}

	st.ClarityLevel = level
	if err := m.move(st, conversation.PhaseDiscovery); err != nil {
		return Reply{}, err
	}

	reply := chatReply(clarityDoneText, "clarity_to_search")
	reply.Debug["clarity_level"] = clarityLabels[level]
	return reply, nil
}

// parseClarityLevel accepts a menu number 1-5 or the level label. Zero means not understood.
func parseClarityLevel(msg string) int {
	low := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(msg)), "–", "-")
	switch {
	case low == "1" || strings.Contains(low, "student"):
		return 1
	case low == "2" || strings.Contains(low, "entry"):
		return 2
	case low == "3" || strings.Contains(low, "1-3"):
		return 3
	case low == "4" || strings.Contains(low, "3-7"):
		return 4
	case low == "5" || strings.Contains(low, "7"):
		return 5
	default:
		return 0
	}
}
