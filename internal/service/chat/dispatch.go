package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/crmchat/internal/core"
	"github.com/sandevgo/crmchat/internal/intent"
)

// System prompts enforce grounding discipline: answer strictly from the
// provided context, and emit the "can't tell" sentinel instead of
// fabricating when the context is insufficient.
const (
	systemStrictMessages = "You are an internal assistant. Base your answer STRICTLY on the provided messages. " +
		"If the user asks for a judgment (e.g., is the order approved), answer only if stated; " +
		"otherwise say you cannot tell from the messages. Be concise."

	systemLastMessageOnly = "You are an internal assistant. Ground your answer ONLY on the single most recent " +
		"message; use the earlier messages solely to resolve pronouns and references. " +
		"If the last message does not say, respond: \"I can't tell from the messages.\" Be concise."

	systemGeneral = "You are a helpful assistant for an internal sales team. Answer from the provided " +
		"customer context; if the context does not say, state that you cannot determine it " +
		"from the provided data. Be concise."

	cannotTellSentinel = "I can't tell from the messages."
)

// dispatch runs one completion call and records usage. A transport or
// API failure comes back wrapped in *ModelError; a parseable response
// with empty content maps to a safe default instead of an error.
func (s *Service) dispatch(ctx context.Context, req AskRequest, messages []core.Message, maxTokens int) (Answer, error) {
	provider := s.picker.ForTier(req.Tier)

	started := s.now()
	result, err := provider.Chat(ctx, core.ChatRequest{
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   maxTokens,
	})
	elapsed := time.Since(started)

	rec := core.UsageRecord{
		Endpoint:       "ask",
		ContactID:      req.ContactID,
		SessionID:      req.SessionID,
		Model:          provider.Model(),
		Tier:           req.Tier,
		ResponseTimeMS: elapsed.Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
		s.recordUsage(ctx, rec)
		return Answer{}, &ModelError{Err: err}
	}

	rec.InputTokens = result.PromptTokens
	rec.OutputTokens = result.CompletionTokens
	if rec.InputTokens == 0 {
		rec.InputTokens = estimateMessages(messages)
	}
	s.recordUsage(ctx, rec)

	text := result.Content
	if strings.TrimSpace(text) == "" {
		text = "(no answer)"
	}
	return Answer{Text: text, Model: result.Model}, nil
}

func estimateMessages(messages []core.Message) int {
	total := 0
	for _, m := range messages {
		total += countTokens(m.Content)
	}
	return total
}

func (s *Service) answerSummarizeRecent(ctx context.Context, req AskRequest, it intent.Intent) (Answer, error) {
	msgs, err := s.conversations.RecentMessages(ctx, req.ContactID, it.N)
	if err != nil {
		return Answer{}, err
	}
	if len(msgs) == 0 {
		return dbAnswer(noConversationsSentinel), nil
	}

	convo := s.formatMessagesLog(msgs)

	var userPrompt string
	if it.Mode == intent.ModeSummary {
		userPrompt = fmt.Sprintf(
			"Summarize these %d recent messages into up to 3 short bullets with dates and any explicit next steps:\n\n%s",
			len(msgs), convo)
	} else {
		userPrompt = fmt.Sprintf(
			"Based ONLY on these %d recent messages, answer the user question:\n%q\n\n"+
				"If the messages do not say, respond: %q\n\nMessages:\n%s",
			len(msgs), req.Question, cannotTellSentinel, convo)
	}

	return s.dispatch(ctx, req, []core.Message{
		{Role: core.RoleSystem, Content: systemStrictMessages},
		{Role: core.RoleUser, Content: userPrompt},
	}, s.budget.MaxTokensSummary)
}

// answerQALastMessage grounds strictly on the single most recent
// message; the surrounding window is supplied only so the model can
// resolve pronouns.
func (s *Service) answerQALastMessage(ctx context.Context, req AskRequest) (Answer, error) {
	msgs, err := s.conversations.RecentMessages(ctx, req.ContactID, intent.ParseCount(req.Question))
	if err != nil {
		return Answer{}, err
	}
	if len(msgs) == 0 {
		return dbAnswer(noConversationsSentinel), nil
	}

	last := s.formatMessageLine(msgs[0])
	earlier := noRecentMessages
	if len(msgs) > 1 {
		earlier = s.formatMessagesLog(msgs[1:])
	}

	userPrompt := fmt.Sprintf(
		"LAST MESSAGE:\n%s\n\nEARLIER MESSAGES (reference only):\n%s\n\nQuestion: %s",
		last, earlier, req.Question)

	return s.dispatch(ctx, req, []core.Message{
		{Role: core.RoleSystem, Content: systemLastMessageOnly},
		{Role: core.RoleUser, Content: userPrompt},
	}, s.budget.MaxTokensSummary)
}

// answerGeneral is the fallback path: full context window, prior
// session turns interleaved, question appended last.
func (s *Service) answerGeneral(ctx context.Context, req AskRequest, contact core.Contact) (Answer, error) {
	win, err := s.buildContext(ctx, contact)
	if err != nil {
		return Answer{}, err
	}
	win = s.trimToBudget(win, req.Tier)

	userPrompt := fmt.Sprintf(
		"Customer:\n%s\n\nRecent orders:\n%s\n\nRecent messages (%d):\n%s\n\nQuestion: %s",
		win.ProfileText, win.OrdersText, win.MessageCount, win.MessagesLog, req.Question)

	messages := []core.Message{{Role: core.RoleSystem, Content: systemGeneral}}
	messages = append(messages, s.priorTurns(ctx, req.SessionID)...)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: userPrompt})

	return s.dispatch(ctx, req, messages, s.budget.MaxTokensGeneral)
}

// priorTurns replays the last turns of the session as role-tagged
// messages. A read failure degrades to an empty history.
func (s *Service) priorTurns(ctx context.Context, sessionID string) []core.Message {
	if sessionID == "" {
		return nil
	}
	turns, err := s.sessions.RecentTurns(ctx, sessionID, s.turnWindow)
	if err != nil {
		return nil
	}
	messages := make([]core.Message, 0, len(turns))
	for _, t := range turns {
		if t.Role != core.RoleUser && t.Role != core.RoleAssistant {
			continue
		}
		messages = append(messages, core.Message{Role: t.Role, Content: t.Content})
	}
	return messages
}
