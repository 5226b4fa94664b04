// Package chat implements the conversational legal assistant. Each turn
// retrieves statute context from the law library, replays the user's
// recent conversation history, generates an answer with Gemini, and
// persists the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/postgresql"
	"github.com/google/uuid"

	"github.com/kartiksharma1227/LawyerUp/internal/conversation"
	"github.com/kartiksharma1227/LawyerUp/internal/library"
)

const (
	// contextTopK is how many statute documents ground each answer.
	contextTopK = 3

	// retrieveTimeout limits the library lookup per request.
	retrieveTimeout = 15 * time.Second

	// generateTimeout limits answer generation per request, across all
	// retry attempts.
	generateTimeout = 30 * time.Second

	// fallbackResponse is returned when the model produces no text.
	fallbackResponse = "Sorry, I couldn't generate a response."
)

// ErrEmptyMessage is returned when the chat message is blank.
var ErrEmptyMessage = errors.New("no input received")

const systemPrompt = `You are LawyerUp, a friendly legal assistant helping people understand Indian law in simple, modern English. Speak clearly, be helpful, and sound like you are chatting with a friend rather than a courtroom judge. Use examples when needed and avoid legal jargon unless asked. Keep answers to at most 13 lines of relevant legal guidance.

Follow these formatting rules strictly:
1. Start each numbered point on its own line, never in the middle of a line.
2. Check the conversation history before answering and remember personal details the user has shared.
3. Be precise and use legal terminology where appropriate.`

const answerPrompt = `Use the following statute excerpts when they are relevant to the question. If they do not cover the question, answer from general knowledge of Indian law and say so.

**Context**:
%s

**Question**: %s

**Answer**:`

// ConversationStore is the persistence interface the assistant needs.
// *conversation.Store satisfies it.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, userID string) (*conversation.Conversation, error)
	AddExchange(ctx context.Context, conversationID uuid.UUID, userContent, modelContent string) error
	UpdateTitle(ctx context.Context, conversationID uuid.UUID, title string) error
	Recent(ctx context.Context, conversationID uuid.UUID, limit int) ([]conversation.Message, error)
	History(ctx context.Context, userID string, limit int) ([]conversation.Message, error)
}

// HistoryEntry is one message in the history payload returned to clients.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service answers legal questions grounded in the statute library.
type Service struct {
	conversations ConversationStore
	retriever     ai.Retriever
	g             *genkit.Genkit
	modelName     string
	retry         retryConfig
	logger        *slog.Logger
}

// NewService creates the chat service.
func NewService(conversations ConversationStore, retriever ai.Retriever, g *genkit.Genkit, modelName string, logger *slog.Logger) (*Service, error) {
	if conversations == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		conversations: conversations,
		retriever:     retriever,
		g:             g,
		modelName:     modelName,
		retry:         defaultRetryConfig(),
		logger:        logger,
	}, nil
}

// Chat answers one user message and returns the response as an HTML
// fragment. The raw exchange is appended to the user's active
// conversation; the first message also names the conversation.
func (s *Service) Chat(ctx context.Context, userID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	conv, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading conversation: %w", err)
	}

	history, err := s.conversations.Recent(ctx, conv.ID, conversation.DefaultHistoryLimit)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}

	statutes := s.retrieveContext(ctx, message)

	answer, err := s.generate(ctx, history, statutes, message)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		s.logger.Warn("model returned empty response", "user_id", userID)
		answer = fallbackResponse
	}

	// The answer is already on its way back to the user, so persistence
	// problems are logged rather than surfaced.
	if err := s.conversations.AddExchange(ctx, conv.ID, message, answer); err != nil {
		s.logger.Warn("saving exchange", "user_id", userID, "error", err)
	}

	if conv.Title == "" {
		s.setTitle(ctx, conv.ID, message)
	}

	s.logger.Info("chat answered",
		"user_id", userID,
		"history_messages", len(history),
		"context_chars", len(statutes))

	return FormatResponse(answer), nil
}

// History returns the user's active conversation as role/content pairs in
// chronological order.
func (s *Service) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	msgs, err := s.conversations.History(ctx, userID, conversation.MaxHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	entries := make([]HistoryEntry, len(msgs))
	for i, m := range msgs {
		entries[i] = HistoryEntry{Role: m.Role, Content: m.Content}
	}

	return entries, nil
}

// retrieveContext fetches the statute excerpts most similar to the
// message. Retrieval failures degrade to an empty context so the
// assistant can still answer.
func (s *Service) retrieveContext(ctx context.Context, message string) string {
	ctx, cancel := context.WithTimeout(ctx, retrieveTimeout)
	defer cancel()

	req := &ai.RetrieverRequest{
		Query: ai.DocumentFromText(message, nil),
		Options: &postgresql.RetrieverOptions{
			Filter: library.StatuteFilter,
			K:      contextTopK,
		},
	}

	resp, err := s.retriever.Retrieve(ctx, req)
	if err != nil {
		s.logger.Warn("statute retrieval failed", "error", err)
		return ""
	}

	excerpts := make([]string, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		if text := docText(doc); text != "" {
			excerpts = append(excerpts, text)
		}
	}

	return strings.Join(excerpts, "\n\n")
}

func (s *Service) generate(ctx context.Context, history []conversation.Message, statutes, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	messages := historyMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(fmt.Sprintf(answerPrompt, statutes, question))))

	resp, err := s.generateWithRetry(ctx,
		ai.WithModelName(s.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
	)
	if err != nil {
		return "", err
	}

	return resp.Text(), nil
}

// historyMessages converts stored messages into model messages, oldest
// first.
func historyMessages(msgs []conversation.Message) []*ai.Message {
	out := make([]*ai.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == conversation.RoleModel {
			out = append(out, ai.NewModelMessage(ai.NewTextPart(m.Content)))
			continue
		}
		out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))
	}

	return out
}

func docText(doc *ai.Document) string {
	var sb strings.Builder
	for _, part := range doc.Content {
		if part.IsText() {
			sb.WriteString(part.Text)
		}
	}

	return strings.TrimSpace(sb.String())
}
