package logic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pulau-Komodo/chatbot/config"
	"github.com/Pulau-Komodo/chatbot/dao"
	"github.com/Pulau-Komodo/chatbot/models"
	"github.com/Pulau-Komodo/chatbot/pkg"
)

// ErrUnknownExchange means a commit referenced a correlation id with no
// pending exchange, either bogus or already expired.
var ErrUnknownExchange = errors.New("no pending exchange for that id")

// Defaults for the completion call when the user has no overrides.
const (
	defaultTemperature    = 0.5
	defaultMaxTokens      = 400
	pendingExchangeExpiry = 10 * time.Minute
)

// Admission orchestrates one request end to end: resolve context, estimate
// the pre-flight cost, reserve it against the ledger, run the completion,
// then reconcile the reservation to the true cost (or refund it in full on
// upstream failure) and record the spending fact.
//
// The exchange node itself is written in a second step, once the transport
// has sent the reply and knows the message id that will key the node.
type Admission struct {
	ledger      *Ledger
	resolver    *Resolver
	convoDAO    *dao.ConversationDAO
	spendingDAO *dao.SpendingDAO
	settingsDAO *dao.UserSettingsDAO
	chatClient  *pkg.ChatClient
	tokenizer   pkg.Tokenizer
	cfg         *config.Config
	customKeys  map[uint64]string
	logger      *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingExchange
}

type pendingExchange struct {
	user          uint64
	parent        *uint64
	input         string
	output        string
	systemMessage string
	created       time.Time
}

func NewAdmission(
	ledger *Ledger,
	resolver *Resolver,
	convoDAO *dao.ConversationDAO,
	spendingDAO *dao.SpendingDAO,
	settingsDAO *dao.UserSettingsDAO,
	chatClient *pkg.ChatClient,
	tokenizer pkg.Tokenizer,
	cfg *config.Config,
	customKeys map[uint64]string,
	logger *slog.Logger,
) *Admission {
	if logger == nil {
		logger = slog.Default()
	}
	return &Admission{
		ledger:      ledger,
		resolver:    resolver,
		convoDAO:    convoDAO,
		spendingDAO: spendingDAO,
		settingsDAO: settingsDAO,
		chatClient:  chatClient,
		tokenizer:   tokenizer,
		cfg:         cfg,
		customKeys:  customKeys,
		logger:      logger,
		pending:     make(map[uuid.UUID]*pendingExchange),
	}
}

// ExchangeResult is a fulfilled request, ready for the transport to render.
type ExchangeResult struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	Output        string    `json:"output"`
	Emoji         string    `json:"emoji,omitempty"`
	Model         string    `json:"model"`
	FriendlyModel string    `json:"friendly_model,omitempty"`
	Cost          int64     `json:"cost"`
	Balance       int64     `json:"balance"`
	InputTokens   uint32    `json:"input_tokens"`
	OutputTokens  uint32    `json:"output_tokens"`
}

// HandleTrigger runs the full admission pipeline for a conversation
// trigger. On success the exchange is parked under a correlation id until
// CommitExchange supplies the outbound message id.
func (a *Admission) HandleTrigger(ctx context.Context, trigger Trigger) (*ExchangeResult, error) {
	resolved, err := a.resolver.Resolve(trigger)
	if err != nil {
		return nil, err
	}

	model, err := a.selectModel(trigger.User)
	if err != nil {
		return nil, err
	}

	response, cost, balance, err := a.completeAndBill(ctx, trigger.User, resolved.Messages, model)
	if err != nil {
		return nil, err
	}

	correlationID := uuid.New()
	a.park(correlationID, &pendingExchange{
		user:          trigger.User,
		parent:        resolved.Parent,
		input:         resolved.Input,
		output:        response.Content(),
		systemMessage: resolved.Personality,
		created:       time.Now(),
	})

	result := &ExchangeResult{
		CorrelationID: correlationID,
		Output:        response.Content(),
		Emoji:         resolved.Emoji(a.cfg),
		Model:         model.Name,
		Cost:          cost,
		Balance:       balance,
		InputTokens:   response.Usage.PromptTokens,
		OutputTokens:  response.Usage.CompletionTokens,
	}
	if model.Name != a.cfg.DefaultModel().Name {
		result.FriendlyModel = model.FriendlyName
	}
	return result, nil
}

// CommitExchange persists the parked exchange as a conversation node keyed
// by the outbound message that carried it.
func (a *Admission) CommitExchange(correlationID uuid.UUID, message uint64) (*models.Conversation, error) {
	a.mu.Lock()
	exchange, ok := a.pending[correlationID]
	if ok {
		delete(a.pending, correlationID)
	}
	a.mu.Unlock()
	if !ok {
		return nil, ErrUnknownExchange
	}
	systemMessage := exchange.systemMessage
	return a.convoDAO.Create(message, exchange.parent, exchange.input, exchange.output, &systemMessage)
}

// completeAndBill is the shared billed-completion path: pre-flight reserve
// on the input estimate, call upstream, then apply the corrective debit for
// the actual cost, refunding everything if the call failed. The per-user
// ledger lock is never held across the upstream call.
func (a *Admission) completeAndBill(
	ctx context.Context,
	user uint64,
	messages []pkg.RequestMessage,
	model *config.Model,
) (*pkg.CompletionResponse, int64, int64, error) {
	estimatedTokens := a.tokenizer.EstimateTokens(messages)
	preflight := int64(estimatedTokens) * model.InputCost

	balance, err := a.ledger.CheckAndReserve(user, preflight, time.Now())
	if err != nil {
		return nil, 0, balance, err
	}

	temperature, maxTokens, err := a.samplingSettings(user)
	if err != nil {
		// Settings are already read after reserving; give the money back.
		a.refund(user, preflight)
		return nil, 0, 0, err
	}

	request := pkg.CompletionRequest{
		Model:       model.Name,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	response, err := a.chatClient.Send(ctx, request, a.customKeys[user])
	if err != nil {
		a.refund(user, preflight)
		return nil, 0, 0, fmt.Errorf("completion call: %w", err)
	}

	actual := int64(response.Usage.PromptTokens)*model.InputCost +
		int64(response.Usage.CompletionTokens)*model.OutputCost
	balance, err = a.ledger.Debit(user, actual-preflight, time.Now())
	if err != nil {
		a.logger.Error("corrective debit failed",
			"user", user, "preflight", preflight, "actual", actual, "error", err)
		balance = 0
	}

	if err := a.spendingDAO.Record(user, actual,
		response.Usage.PromptTokens, response.Usage.CompletionTokens, model.Name); err != nil {
		a.logger.Error("failed to record spending", "user", user, "error", err)
	}

	return response, actual, balance, nil
}

func (a *Admission) refund(user uint64, amount int64) {
	if _, err := a.ledger.Debit(user, -amount, time.Now()); err != nil {
		a.logger.Error("refund failed", "user", user, "amount", amount, "error", err)
	}
}

// selectModel consumes the user's one-shot model override, if any, falling
// back to the default model. An override naming a model that has since left
// the config also falls back.
func (a *Admission) selectModel(user uint64) (*config.Model, error) {
	name, err := a.settingsDAO.ConsumeModel(user)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if model := a.cfg.ModelByName(*name); model != nil {
			return model, nil
		}
		a.logger.Warn("stored model override no longer configured", "user", user, "model", *name)
	}
	return a.cfg.DefaultModel(), nil
}

func (a *Admission) samplingSettings(user uint64) (float32, uint32, error) {
	settings, err := a.settingsDAO.Get(user)
	if err != nil {
		return 0, 0, err
	}
	temperature := float32(defaultTemperature)
	maxTokens := uint32(defaultMaxTokens)
	if settings != nil {
		if settings.Temperature != nil {
			temperature = *settings.Temperature
		}
		if settings.MaxTokens != nil {
			maxTokens = *settings.MaxTokens
		}
	}
	return temperature, maxTokens, nil
}

// park stores a fulfilled exchange until the transport commits it, and
// drops any stale entries whose commit never came (e.g. the reply message
// failed to send).
func (a *Admission) park(id uuid.UUID, exchange *pendingExchange) {
	cutoff := time.Now().Add(-pendingExchangeExpiry)
	a.mu.Lock()
	for staleID, stale := range a.pending {
		if stale.created.Before(cutoff) {
			delete(a.pending, staleID)
		}
	}
	a.pending[id] = exchange
	a.mu.Unlock()
}
