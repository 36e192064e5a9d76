package logic

import (
	"context"
	"errors"

	"github.com/Pulau-Komodo/chatbot/pkg"
)

// ErrUnknownCommand means no one-off command with that name is configured.
var ErrUnknownCommand = errors.New("unknown one-off command")

// OneOffResult is a fulfilled single-shot command.
type OneOffResult struct {
	Output        string `json:"output"`
	Emoji         string `json:"emoji,omitempty"`
	Model         string `json:"model"`
	FriendlyModel string `json:"friendly_model,omitempty"`
	Cost          int64  `json:"cost"`
	Balance       int64  `json:"balance"`
}

// HandleOneOff runs a configured single-shot command: the command's system
// message plus one user input, billed through the normal two-phase path but
// never stored as a conversation node.
func (a *Admission) HandleOneOff(ctx context.Context, user uint64, name, input string) (*OneOffResult, error) {
	command := a.cfg.OneOffByName(name)
	if command == nil {
		return nil, ErrUnknownCommand
	}

	model, err := a.selectModel(user)
	if err != nil {
		return nil, err
	}

	messages := []pkg.RequestMessage{
		pkg.SystemMessage(command.SystemMessage),
		pkg.UserMessage(input),
	}
	response, cost, balance, err := a.completeAndBill(ctx, user, messages, model)
	if err != nil {
		return nil, err
	}

	result := &OneOffResult{
		Output:  response.Content(),
		Emoji:   command.Emoji,
		Model:   model.Name,
		Cost:    cost,
		Balance: balance,
	}
	if model.Name != a.cfg.DefaultModel().Name {
		result.FriendlyModel = model.FriendlyName
	}
	return result, nil
}
