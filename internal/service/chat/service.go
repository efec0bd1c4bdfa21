// Package chat answers agent questions about a CRM contact. A question
// is classified into an intent; deterministic intents are answered
// straight from storage (fact resolvers), everything else goes to the
// completion API with an assembled, budget-bounded context window.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/crmchat/internal/config"
	"github.com/sandevgo/crmchat/internal/core"
	"github.com/sandevgo/crmchat/internal/intent"
	"github.com/sandevgo/crmchat/pkg/log"
)

// ErrInvalidInput is returned before any storage or API call when the
// request is missing its question or contact id.
var ErrInvalidInput = errors.New("missing question or contact id")

// ModelError wraps a completion-API failure so callers can distinguish
// "no answer available" from a normal answer.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string { return fmt.Sprintf("model call failed: %v", e.Err) }
func (e *ModelError) Unwrap() error { return e.Err }

// ProviderPicker resolves a model tier to a provider.
type ProviderPicker interface {
	ForTier(tier string) core.AIProvider
}

type Service struct {
	contacts      core.ContactsRepository
	orders        core.OrdersRepository
	conversations core.ConversationsRepository
	sessions      core.SessionsRepository
	summaries     core.SummariesRepository
	usage         core.UsageRepository
	picker        ProviderPicker
	budget        *config.BudgetConfig
	turnWindow    int
	now           func() time.Time
}

func NewService(
	contacts core.ContactsRepository,
	orders core.OrdersRepository,
	conversations core.ConversationsRepository,
	sessions core.SessionsRepository,
	summaries core.SummariesRepository,
	usage core.UsageRepository,
	picker ProviderPicker,
	budget *config.BudgetConfig,
	appCfg *config.AppConfig,
) *Service {
	return &Service{
		contacts:      contacts,
		orders:        orders,
		conversations: conversations,
		sessions:      sessions,
		summaries:     summaries,
		usage:         usage,
		picker:        picker,
		budget:        budget,
		turnWindow:    appCfg.SessionTurnWindow,
		now:           time.Now,
	}
}

type AskRequest struct {
	ContactID string `json:"contact_id"`
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
	Tier      string `json:"tier,omitempty"`
}

// Answer carries the text plus its provenance: core.OriginDB for fact
// resolvers, a model identifier for generated answers.
type Answer struct {
	Text  string `json:"answer"`
	Model string `json:"model"`
}

// Ask runs one request through the classify → resolve-or-dispatch
// pipeline. Each call is a single independent pass; no state is kept
// beyond what is loaded from storage.
func (s *Service) Ask(ctx context.Context, req AskRequest) (Answer, error) {
	if req.Question == "" || req.ContactID == "" {
		return Answer{}, ErrInvalidInput
	}

	contact, err := s.contacts.GetContact(ctx, req.ContactID)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to load contact: %w", err)
	}

	it := intent.Classify(req.Question)
	log.FromCtx(ctx).Debug().
		Str("intent", string(it.Kind)).
		Int("n", it.N).
		Msg("classified question")

	var answer Answer
	switch it.Kind {
	case intent.KindShippingAddress:
		answer, err = s.resolveShippingAddress(ctx, req.ContactID)
	case intent.KindLastOrderTotal:
		answer, err = s.resolveLastOrderTotal(ctx, req.ContactID)
	case intent.KindTracking:
		answer, err = s.resolveTracking(ctx, req.ContactID)
	case intent.KindLastNOrders:
		answer, err = s.resolveLastNOrders(ctx, req.ContactID, it.N)
	case intent.KindLastMessage:
		answer, err = s.resolveLastMessage(ctx, req.ContactID)
	case intent.KindLastContactDate:
		answer, err = s.resolveLastContactDate(ctx, req.ContactID)
	case intent.KindListRecent:
		answer, err = s.resolveListRecent(ctx, req.ContactID, it.N)
	case intent.KindSummarizeRecent:
		answer, err = s.answerSummarizeRecent(ctx, req, it)
	case intent.KindQALastMessage:
		answer, err = s.answerQALastMessage(ctx, req)
	default:
		answer, err = s.answerGeneral(ctx, req, contact)
	}
	if err != nil {
		return Answer{}, err
	}

	s.persistTurns(ctx, req, answer)
	return answer, nil
}

// persistTurns appends the question and answer to the session log when
// a session id was supplied. Failures are logged, not surfaced: the
// answer is already computed and losing the log entry is recoverable.
func (s *Service) persistTurns(ctx context.Context, req AskRequest, answer Answer) {
	if req.SessionID == "" {
		return
	}
	logger := log.FromCtx(ctx)
	if err := s.sessions.AppendTurn(ctx, core.ChatTurn{
		SessionID: req.SessionID,
		Role:      core.RoleUser,
		Content:   req.Question,
	}); err != nil {
		logger.Error().Err(err).Msg("failed to persist user turn")
		return
	}
	if err := s.sessions.AppendTurn(ctx, core.ChatTurn{
		SessionID: req.SessionID,
		Role:      core.RoleAssistant,
		Content:   answer.Text,
		Model:     answer.Model,
	}); err != nil {
		logger.Error().Err(err).Msg("failed to persist assistant turn")
	}
}

// recordUsage is best-effort accounting; a failed insert never fails
// the request.
func (s *Service) recordUsage(ctx context.Context, rec core.UsageRecord) {
	if s.usage == nil {
		return
	}
	if err := s.usage.RecordUsage(ctx, rec); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to record usage")
	}
}
