package logic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Pulau-Komodo/chatbot/config"
	"github.com/Pulau-Komodo/chatbot/dao"
	"github.com/Pulau-Komodo/chatbot/models"
	"github.com/Pulau-Komodo/chatbot/pkg"
)

// ErrNotAddressed means the trigger turned out not to be aimed at the bot
// after all (no mention where one was required, or no usable content).
// Such triggers are dropped without a user-visible response.
var ErrNotAddressed = errors.New("message is not addressed to the bot")

// ReferencedMessage describes the message a trigger replied to, as supplied
// by the transport.
type ReferencedMessage struct {
	ID      uint64 `json:"id"`
	FromBot bool   `json:"from_bot"`
	Body    string `json:"body"`
}

// Trigger is one inbound event that may start or continue a conversation.
type Trigger struct {
	User       uint64             `json:"user"`
	Message    uint64             `json:"message"`
	Body       string             `json:"body"`
	Referenced *ReferencedMessage `json:"referenced,omitempty"`
}

// ResolvedContext is the outcome of classifying a trigger and walking the
// exchange graph: the parent for the node to be written, the synthesized
// input, the ordered prompt ending in that input, and the personality the
// new node will carry (in stored form).
type ResolvedContext struct {
	Parent      *uint64
	Input       string
	Personality string
	Messages    []pkg.RequestMessage
}

// Emoji returns the emoji of the resolved personality, for reply rendering.
func (c *ResolvedContext) Emoji(cfg *config.Config) string {
	return personalityEmoji(cfg, c.Personality)
}

// Resolver reconstructs conversation context from the exchange graph.
type Resolver struct {
	convoDAO    *dao.ConversationDAO
	settingsDAO *dao.UserSettingsDAO
	cfg         *config.Config
	mentions    []string
	maxTurns    int
}

func NewResolver(
	convoDAO *dao.ConversationDAO,
	settingsDAO *dao.UserSettingsDAO,
	cfg *config.Config,
	mentions []string,
	maxTurns int,
) *Resolver {
	return &Resolver{
		convoDAO:    convoDAO,
		settingsDAO: settingsDAO,
		cfg:         cfg,
		mentions:    mentions,
		maxTurns:    maxTurns,
	}
}

// stripMention removes one mention token from either end of the text and
// trims. The second return reports whether a mention was found at all.
func stripMention(text string, mentions []string) (string, bool) {
	for _, mention := range mentions {
		if stripped, ok := strings.CutPrefix(text, mention); ok {
			return strings.TrimSpace(stripped), true
		}
		if stripped, ok := strings.CutSuffix(text, mention); ok {
			return strings.TrimSpace(stripped), true
		}
	}
	return text, false
}

// Resolve classifies the trigger, determines the new node's parent and
// input text, and builds the ordered prompt from ancestor exchanges.
func (r *Resolver) Resolve(trigger Trigger) (*ResolvedContext, error) {
	if trigger.Referenced != nil && trigger.Referenced.FromBot {
		return r.resolveContinuation(trigger)
	}
	if trigger.Referenced != nil {
		return r.resolveQuoted(trigger)
	}
	return r.resolveFresh(trigger)
}

// resolveContinuation handles a reply to one of the bot's own messages: the
// replied-to message anchors the history walk and becomes the parent. The
// input is the reply body verbatim. If the anchor node is unknown (platform
// history can be incomplete, or the anchor was an error message rather than
// an exchange), a fresh root is started instead.
func (r *Resolver) resolveContinuation(trigger Trigger) (*ResolvedContext, error) {
	anchor := trigger.Referenced.ID
	ancestors, err := r.convoDAO.Ancestors(anchor, r.maxTurns)
	if err != nil {
		return nil, err
	}
	if len(ancestors) == 0 {
		return r.buildRoot(trigger.User, trigger.Body)
	}

	personality := r.inheritedPersonality(ancestors)
	messages := make([]pkg.RequestMessage, 0, len(ancestors)*2+2)
	messages = append(messages, pkg.SystemMessage(personalitySystemMessage(r.cfg, personality)))
	// Ancestors come newest-first; the prompt wants chronological order.
	for i := len(ancestors) - 1; i >= 0; i-- {
		messages = append(messages, pkg.UserMessage(ancestors[i].Input))
		messages = append(messages, pkg.AssistantMessage(ancestors[i].Output))
	}
	messages = append(messages, pkg.UserMessage(trigger.Body))

	return &ResolvedContext{
		Parent:      &anchor,
		Input:       trigger.Body,
		Personality: personality,
		Messages:    messages,
	}, nil
}

// resolveQuoted handles a mention that replies to somebody else's message.
// The replied-to message is not an exchange node, so no graph link is made;
// this starts a new root whose input quotes the referenced body.
func (r *Resolver) resolveQuoted(trigger Trigger) (*ResolvedContext, error) {
	residual, mentioned := stripMention(trigger.Body, r.mentions)
	if !mentioned {
		return nil, ErrNotAddressed
	}
	if residual == "" {
		// Nothing but a mention: repeat the referenced message as the
		// query, possibly under different settings.
		referenced := trigger.Referenced.Body
		if stripped, ok := stripMention(referenced, r.mentions); ok {
			referenced = stripped
		}
		if referenced == "" {
			return nil, ErrNotAddressed
		}
		return r.buildRoot(trigger.User, referenced)
	}
	// With residual text the referenced body is appended raw as a quoted
	// trailer, mentions and all.
	input := fmt.Sprintf("%s \"%s\"", residual, trigger.Referenced.Body)
	return r.buildRoot(trigger.User, input)
}

// resolveFresh handles a plain mention with no reply anchor.
func (r *Resolver) resolveFresh(trigger Trigger) (*ResolvedContext, error) {
	input, mentioned := stripMention(trigger.Body, r.mentions)
	if !mentioned || input == "" {
		return nil, ErrNotAddressed
	}
	return r.buildRoot(trigger.User, input)
}

// buildRoot assembles a parentless context: the user's personality setting
// (or the default), the system message, and the single new input turn.
func (r *Resolver) buildRoot(user uint64, input string) (*ResolvedContext, error) {
	personality, err := r.userPersonality(user)
	if err != nil {
		return nil, err
	}
	return &ResolvedContext{
		Parent:      nil,
		Input:       input,
		Personality: personality,
		Messages: []pkg.RequestMessage{
			pkg.SystemMessage(personalitySystemMessage(r.cfg, personality)),
			pkg.UserMessage(input),
		},
	}, nil
}

// inheritedPersonality finds the nearest ancestor that carries a system
// message, walking from the immediate parent toward the root. Branching
// with a different personality never rewrites ancestors; new children just
// inherit the nearest setting.
func (r *Resolver) inheritedPersonality(ancestors []models.Conversation) string {
	for _, node := range ancestors {
		if node.SystemMessage != nil {
			return *node.SystemMessage
		}
	}
	return r.cfg.DefaultPersonality().Name
}

func (r *Resolver) userPersonality(user uint64) (string, error) {
	settings, err := r.settingsDAO.Get(user)
	if err != nil {
		return "", err
	}
	if settings != nil && settings.SystemMessage != nil {
		return *settings.SystemMessage, nil
	}
	return r.cfg.DefaultPersonality().Name, nil
}
