package logic

import (
	"errors"
	"fmt"

	"github.com/Pulau-Komodo/chatbot/config"
	"github.com/Pulau-Komodo/chatbot/dao"
)

// ErrNotPermitted means the user lacks a role required for the operation.
var ErrNotPermitted = errors.New("not permitted")

// SettingsLogic handles per-user override commands.
type SettingsLogic struct {
	settingsDAO *dao.UserSettingsDAO
	cfg         *config.Config
}

func NewSettingsLogic(settingsDAO *dao.UserSettingsDAO, cfg *config.Config) *SettingsLogic {
	return &SettingsLogic{settingsDAO: settingsDAO, cfg: cfg}
}

// SetModel sets (or with nil clears) the model override for the user's next
// request. Returns a confirmation string naming the model.
func (l *SettingsLogic) SetModel(user uint64, name *string) (string, error) {
	if name == nil {
		if err := l.settingsDAO.SetModel(user, nil); err != nil {
			return "", err
		}
		return "Model reset to default.", nil
	}
	model := l.cfg.ModelByName(*name)
	if model == nil {
		return "", fmt.Errorf("no such model: %s", *name)
	}
	if err := l.settingsDAO.SetModel(user, &model.Name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Model for the next message set to %s (%s).",
		model.FriendlyName, model.CostDescription()), nil
}

// SetPersonality sets (or with empty name clears) the personality used for
// new conversation roots started by the user. A custom free-text system
// message requires one of the configured prototyping roles.
func (l *SettingsLogic) SetPersonality(user uint64, roles []uint64, name string, custom string) (string, error) {
	if custom != "" {
		if !l.hasPrototypingRole(roles) {
			return "", ErrNotPermitted
		}
		stored := StoreCustomPersonality(custom)
		if err := l.settingsDAO.SetSystemMessage(user, &stored); err != nil {
			return "", err
		}
		return "Personality for future new conversations set to a custom system message.", nil
	}
	if name == "" {
		if err := l.settingsDAO.SetSystemMessage(user, nil); err != nil {
			return "", err
		}
		return "Personality for future new conversations reset to default.", nil
	}
	personality := l.cfg.PersonalityByName(name)
	if personality == nil {
		return "", fmt.Errorf("no such personality: %s", name)
	}
	if err := l.settingsDAO.SetSystemMessage(user, &personality.Name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Personality for future new conversations set to %s.", personality.Name), nil
}

// SetSampling sets the user's temperature and max token overrides.
func (l *SettingsLogic) SetSampling(user uint64, temperature *float32, maxTokens *uint32) error {
	if temperature != nil && (*temperature < 0 || *temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if maxTokens != nil && *maxTokens == 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	return l.settingsDAO.SetSampling(user, temperature, maxTokens)
}

func (l *SettingsLogic) hasPrototypingRole(roles []uint64) bool {
	for _, role := range roles {
		if l.cfg.IsPrototypingRole(role) {
			return true
		}
	}
	return false
}
