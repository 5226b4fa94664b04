// Package analyser explains uploaded legal documents and answers
// questions about them. Each upload replaces the user's previous one: the
// text is chunked into a per-user vector namespace for question answering
// and stored whole on disk for explanations.
package analyser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kartiksharma1227/LawyerUp/internal/casefile"
	"github.com/kartiksharma1227/LawyerUp/internal/knowledge"
)

// Chunking parameters for analyser uploads. Much coarser than case
// chunking so whole clauses stay together for question answering.
const (
	ChunkSize    = 10000
	ChunkOverlap = 1000
)

const (
	// DefaultLanguage is used when no explanation language is requested.
	DefaultLanguage = "English"

	// askTopK is how many chunks ground each answer.
	askTopK = 4

	// explainInputMaxRunes caps how much document text one explanation
	// prompt carries.
	explainInputMaxRunes = 50000

	// llmTimeout bounds each model call. Explanations read whole
	// documents, so this is looser than the chat timeouts.
	llmTimeout = 60 * time.Second
)

var (
	// ErrNoPDF is returned when an upload carries no files.
	ErrNoPDF = errors.New("no pdf file uploaded")

	// ErrNoText is returned when no text could be extracted from the
	// uploaded files.
	ErrNoText = errors.New("no text found in the uploaded pdfs")

	// ErrNoQuestion is returned when Ask receives a blank question.
	ErrNoQuestion = errors.New("no question provided")
)

const explainPrompt = `You are a legal expert and document interpreter. Your task is to:
1. Analyze the provided legal document.
2. Explain it in simple %s using everyday language.
3. Break down complex legal terms into plain language.
4. Clearly mention key obligations, rights, and deadlines.
5. Provide a summary checklist for the user.
6. Each point must appear on its own line and be prefixed by a dash (-), like this:
- Point 1
- Point 2
- Point 3
7. Use \n for every new line to enforce line breaks where needed.
8. Do NOT use markdown formatting like ** or * at all.
9. Ensure proper spacing and readability throughout.

Document Content:
%s

Explanation:`

const askPrompt = `You are a multilingual legal assistant. Follow these rules carefully:
1. Always respond in the same language as the question.
2. If the question is in Marathi, respond in Marathi.
3. If the question is in Hindi, respond in Hindi.
4. If the question is in English, respond in English.
5. If the answer is not available in the context, still respond helpfully as a legal assistant.
6. Always provide accurate, legally sound, and easy-to-understand responses.

When providing your response:
- Use clean line breaks between paragraphs.
- Use bullet points (•) for listing steps or points.
- Do not use bold formatting like ** or __.
- Keep the language natural, respectful, and professional.
- Structure your response for readability with proper spacing.

Context:
%s

Question: %s

Answer:`

// ChunkStore is the slice of the vector store the analyser uses.
// *knowledge.Store bound to the analyser table satisfies it.
type ChunkStore interface {
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	IndexChunks(ctx context.Context, userID, source string, chunks []string) (int, error)
	Search(ctx context.Context, query, userID string, topK int, minScore float64) ([]knowledge.Result, error)
}

// Document is one uploaded file.
type Document struct {
	Name string
	Data []byte
}

// UploadResult reports what a successful upload produced.
type UploadResult struct {
	Files         int `json:"files"`
	TextChars     int `json:"text_chars"`
	ChunksIndexed int `json:"chunks_indexed"`
}

// Service runs the document analyser.
type Service struct {
	chunks    ChunkStore
	texts     *TextStore
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger

	// extractText parses PDF bytes. Defaults to casefile.ExtractText.
	extractText func(data []byte) (string, error)
}

// NewService creates the analyser service. modelName must be
// provider-qualified (e.g. "googleai/gemini-2.5-flash").
func NewService(chunks ChunkStore, texts *TextStore, g *genkit.Genkit, modelName string, logger *slog.Logger) (*Service, error) {
	if chunks == nil {
		return nil, fmt.Errorf("chunk store is required")
	}
	if texts == nil {
		return nil, fmt.Errorf("text store is required")
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
		chunks:      chunks,
		texts:       texts,
		g:           g,
		modelName:   modelName,
		logger:      logger,
		extractText: casefile.ExtractText,
	}, nil
}

// Upload extracts text from the uploaded PDFs, replaces the user's
// analyser chunks with the new document and stores the full text for
// explanations. Files that fail to parse are skipped; the upload fails
// only when nothing readable remains.
func (s *Service) Upload(ctx context.Context, userID string, docs []Document) (*UploadResult, error) {
	if len(docs) == 0 {
		return nil, ErrNoPDF
	}

	var sb strings.Builder
	for _, doc := range docs {
		text, err := s.extractText(doc.Data)
		if err != nil {
			s.logger.Warn("pdf extraction failed",
				"user_id", userID,
				"file", doc.Name,
				"error", err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, ErrNoText
	}

	chunks := knowledge.NewSplitter(ChunkSize, ChunkOverlap).Split(text)

	if _, err := s.chunks.DeleteByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("clearing previous document: %w", err)
	}

	written, err := s.chunks.IndexChunks(ctx, userID, uploadSource(docs), chunks)
	if err != nil {
		return nil, fmt.Errorf("indexing document: %w", err)
	}

	if err := s.texts.Save(ctx, userID, text); err != nil {
		return nil, fmt.Errorf("storing document text: %w", err)
	}

	s.logger.Info("analyser upload processed",
		"user_id", userID,
		"files", len(docs),
		"text_chars", len(text),
		"chunks", written)

	return &UploadResult{Files: len(docs), TextChars: len(text), ChunksIndexed: written}, nil
}

// Explain produces a plain-language walkthrough of the user's stored
// document in the requested language.
func (s *Service) Explain(ctx context.Context, userID, language string) (string, error) {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}

	text, err := s.texts.Load(userID)
	if err != nil {
		return "", err
	}
	if runes := []rune(text); len(runes) > explainInputMaxRunes {
		text = string(runes[:explainInputMaxRunes])
	}

	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithPrompt(explainPrompt, language, text),
	)
	if err != nil {
		return "", fmt.Errorf("generating explanation: %w", err)
	}

	explanation := strings.TrimSpace(resp.Text())
	if explanation == "" {
		return "", fmt.Errorf("model returned an empty explanation")
	}

	s.logger.Info("document explained", "user_id", userID, "language", language)
	return explanation, nil
}

// Ask answers a question about the user's stored document, in the
// question's language.
func (s *Service) Ask(ctx context.Context, userID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrNoQuestion
	}

	if !s.texts.Exists(userID) {
		return "", ErrNoDocument
	}

	results, err := s.chunks.Search(ctx, question, userID, askTopK, 0)
	if err != nil {
		return "", fmt.Errorf("searching document chunks: %w", err)
	}

	excerpts := make([]string, 0, len(results))
	for _, r := range results {
		excerpts = append(excerpts, r.Content)
	}

	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithPrompt(askPrompt, strings.Join(excerpts, "\n\n"), question),
	)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}

	s.logger.Info("document question answered",
		"user_id", userID,
		"context_chunks", len(results))
	return answer, nil
}

// uploadSource names the chunk source column for an upload.
func uploadSource(docs []Document) string {
	name := docs[0].Name
	if name == "" {
		name = "upload"
	}
	if len(docs) > 1 {
		return fmt.Sprintf("%s (+%d more)", name, len(docs)-1)
	}

	return name
}
