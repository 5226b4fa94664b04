package chat

// title.go names a conversation after its first message. Generation is
// best-effort: on any failure the title falls back to a truncated copy of
// the message itself.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/kartiksharma1227/LawyerUp/internal/conversation"
)

const (
	titleTimeout       = 5 * time.Second
	titleInputMaxRunes = 500
)

var titlePrompt = fmt.Sprintf(`Generate a concise title (max %d characters) for a legal chat session based on this first message.`, conversation.TitleMaxLength) + `
The title should capture the main topic or intent.
Return ONLY the title text, no quotes, no explanations, no punctuation at the end.

Message: %s

Title:`

func (s *Service) setTitle(ctx context.Context, conversationID uuid.UUID, firstMessage string) {
	title := s.generateTitle(ctx, firstMessage)
	if title == "" {
		title = truncateTitle(firstMessage)
	}
	if err := s.conversations.UpdateTitle(ctx, conversationID, title); err != nil {
		s.logger.Warn("saving conversation title", "error", err)
	}
}

func (s *Service) generateTitle(ctx context.Context, message string) string {
	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	runes := []rune(message)
	if len(runes) > titleInputMaxRunes {
		message = string(runes[:titleInputMaxRunes]) + "..."
	}

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithPrompt(titlePrompt, message),
	)
	if err != nil {
		s.logger.Debug("title generation failed", "error", err)
		return ""
	}

	title := strings.TrimSpace(resp.Text())
	if title == "" {
		return ""
	}

	if runes := []rune(title); len(runes) > conversation.TitleMaxLength {
		title = string(runes[:conversation.TitleMaxLength-3]) + "..."
	}

	return title
}

// truncateTitle cuts the message at the last word boundary that fits the
// title column.
func truncateTitle(message string) string {
	message = strings.TrimSpace(message)
	runes := []rune(message)
	if len(runes) <= conversation.TitleMaxLength {
		return message
	}

	cut := string(runes[:conversation.TitleMaxLength-3])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}

	return cut + "..."
}
