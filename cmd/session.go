package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/spigell/job-assistant/internal/assistant"
	"github.com/spigell/job-assistant/internal/dialog"
	"github.com/spigell/job-assistant/internal/ranking"
)

// session is one interactive conversation in the terminal.
type session struct {
	assistant      *assistant.Assistant
	conversationID string
	userID         string
	out            io.Writer
}

func (s *session) run(ctx context.Context) error {
	if s.out == nil {
		s.out = os.Stdout
	}

	fmt.Fprintln(s.out, "Tell me the job and the place you have in mind. Type 'exit' to quit.")

	input := promptui.Prompt{Label: "You"}
	for {
		message, err := input.Run()
		if isInterrupt(err) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(message)) {
		case "exit", "quit":
			return nil
		}

		if err := s.send(ctx, message); err != nil {
			if isInterrupt(err) {
				return nil
			}
			return err
		}
	}
}

func (s *session) send(ctx context.Context, message string) error {
	resp := s.assistant.Process(ctx, s.conversationID, s.userID, message)
	for {
		s.print(resp)

		next, err := s.follow(ctx, resp)
		if err != nil || next == nil {
			return err
		}
		resp = *next
	}
}

// follow offers the actions of resp. A nil response means the user wants to type instead.
func (s *session) follow(ctx context.Context, resp assistant.Response) (*assistant.Response, error) {
	for _, action := range resp.Actions {
		switch action.Type {
		case dialog.ActionYesNo:
			sel := promptui.Select{
				Label: "Choose",
				Items: []string{action.YesLabel, action.NoLabel, PromptTypeInstead},
			}
			idx, _, err := sel.Run()
			if err != nil {
				return nil, err
			}

			var value string
			switch idx {
			case 0:
				value = action.YesValue
			case 1:
				value = action.NoValue
			default:
				return nil, nil
			}

			next := s.assistant.Process(ctx, s.conversationID, s.userID, value)
			return &next, nil
		case dialog.ActionOpenSwipe:
			sel := promptui.Select{
				Label: "Open the deck?",
				Items: []string{action.Label, PromptNotNow},
			}
			idx, _, err := sel.Run()
			if err != nil {
				return nil, err
			}
			if idx != 0 {
				return nil, nil
			}

			next, err := s.swipe(ctx, action.DeckID)
			if err != nil {
				return nil, err
			}
			return &next, nil
		}
	}

	return nil, nil
}

func (s *session) swipe(ctx context.Context, deckID string) (assistant.Response, error) {
	deck := s.assistant.Deck(ctx, s.conversationID, s.userID, deckID)
	if deck.Mode != dialog.ModeSwipeDeck {
		return deck, nil
	}

	fmt.Fprintln(s.out, deck.AssistantText)

	liked := make([]string, 0, len(deck.Jobs))
	passed := make([]string, 0, len(deck.Jobs))

cards:
	for i, card := range deck.Jobs {
		sel := promptui.Select{
			Label: fmt.Sprintf("%d/%d %s", i+1, len(deck.Jobs), cardLabel(card)),
			Items: []string{PromptLike, PromptPass, PromptStop},
		}
		_, choice, err := sel.Run()
		if err != nil {
			return assistant.Response{}, err
		}

		switch choice {
		case PromptLike:
			liked = append(liked, card.ID)
		case PromptPass:
			passed = append(passed, card.ID)
		default:
			break cards
		}
	}

	return s.assistant.SubmitSwipes(ctx, s.conversationID, s.userID, deckID, liked, passed), nil
}

func (s *session) print(resp assistant.Response) {
	fmt.Fprintln(s.out, resp.AssistantText)
	for _, link := range resp.Links {
		fmt.Fprintf(s.out, "  - %s: %s\n", link.Label, link.URL)
	}
}

func cardLabel(card ranking.JobCard) string {
	label := card.Title
	if card.Company != "" {
		label += " at " + card.Company
	}
	if card.Location != "" {
		label += ", " + card.Location
	}
	label += fmt.Sprintf(" (%d)", card.Score)
	if len(card.Reasons) > 0 {
		label += " " + strings.Join(card.Reasons, "; ")
	}
	return label
}

func isInterrupt(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}
