package logic

import (
	"strings"

	"github.com/Pulau-Komodo/chatbot/config"
)

// Nodes and user settings store either a preset personality's name or a
// free-text system message behind this prefix.
const customPersonalityPrefix = "custom:"

// StoreCustomPersonality wraps a free-text system message in its stored form.
func StoreCustomPersonality(systemMessage string) string {
	return customPersonalityPrefix + systemMessage
}

// personalitySystemMessage resolves a stored personality value to the
// system message text to send upstream. Unknown preset names fall back to
// the default personality; removing a preset from config must not break
// old conversations beyond that.
func personalitySystemMessage(cfg *config.Config, stored string) string {
	if message, ok := strings.CutPrefix(stored, customPersonalityPrefix); ok {
		return message
	}
	if personality := cfg.PersonalityByName(stored); personality != nil {
		return personality.SystemMessage
	}
	return cfg.DefaultPersonality().SystemMessage
}

// personalityEmoji resolves a stored personality value to the emoji used
// when rendering replies. Custom personalities have none.
func personalityEmoji(cfg *config.Config, stored string) string {
	if strings.HasPrefix(stored, customPersonalityPrefix) {
		return ""
	}
	if personality := cfg.PersonalityByName(stored); personality != nil {
		return personality.Emoji
	}
	return cfg.DefaultPersonality().Emoji
}
