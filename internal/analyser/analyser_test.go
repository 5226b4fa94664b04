package analyser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/kartiksharma1227/LawyerUp/internal/knowledge"
	"github.com/kartiksharma1227/LawyerUp/internal/testutil"
)

type fakeChunks struct {
	deleted   int
	deleteErr error

	gotSource string
	gotChunks []string
	indexErr  error

	gotQuery  string
	gotTopK   int
	results   []knowledge.Result
	searchErr error
}

func (f *fakeChunks) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleted++

	return 0, nil
}

func (f *fakeChunks) IndexChunks(ctx context.Context, userID, source string, chunks []string) (int, error) {
	if f.indexErr != nil {
		return 0, f.indexErr
	}
	f.gotSource = source
	f.gotChunks = chunks

	return len(chunks), nil
}

func (f *fakeChunks) Search(ctx context.Context, query, userID string, topK int, minScore float64) ([]knowledge.Result, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.gotQuery = query
	f.gotTopK = topK

	return f.results, nil
}

func newTestAnalyser(t *testing.T, chunks ChunkStore, llm *testutil.MockLLM) *Service {
	t.Helper()

	g := genkit.Init(context.Background())
	llm.RegisterModel(g)

	texts, err := NewTextStore(t.TempDir(), testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewTextStore() error: %v", err)
	}

	svc, err := NewService(chunks, texts, g, "mock/test-model", testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	// Tests feed plain text through the PDF seam.
	svc.extractText = func(data []byte) (string, error) {
		return string(data), nil
	}

	return svc
}

func TestUploadSuccess(t *testing.T) {
	chunks := &fakeChunks{}
	svc := newTestAnalyser(t, chunks, testutil.NewMockLLM(""))

	docs := []Document{
		{Name: "rent_agreement.pdf", Data: []byte("The tenant shall pay rent monthly.")},
		{Name: "annexure.pdf", Data: []byte("The deposit equals two months of rent.")},
	}

	result, err := svc.Upload(context.Background(), "user-1", docs)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if result.Files != 2 {
		t.Errorf("Files = %d, want 2", result.Files)
	}
	if result.ChunksIndexed != 1 {
		t.Errorf("ChunksIndexed = %d, want 1 for a short document", result.ChunksIndexed)
	}
	if chunks.deleted != 1 {
		t.Errorf("previous chunks deleted %d times, want 1", chunks.deleted)
	}
	if chunks.gotSource != "rent_agreement.pdf (+1 more)" {
		t.Errorf("source = %q", chunks.gotSource)
	}

	joined := strings.Join(chunks.gotChunks, " ")
	if !strings.Contains(joined, "tenant shall pay rent") || !strings.Contains(joined, "deposit equals two months") {
		t.Errorf("indexed chunks should carry both documents, got %q", joined)
	}

	stored, err := svc.texts.Load("user-1")
	if err != nil {
		t.Fatalf("Load() stored text error: %v", err)
	}
	if !strings.Contains(stored, "tenant shall pay rent") || !strings.Contains(stored, "deposit equals two months") {
		t.Errorf("stored text should carry both documents, got %q", stored)
	}
	if result.TextChars != len(stored) {
		t.Errorf("TextChars = %d, stored %d", result.TextChars, len(stored))
	}
}

func TestUploadNoFiles(t *testing.T) {
	chunks := &fakeChunks{}
	svc := newTestAnalyser(t, chunks, testutil.NewMockLLM(""))

	_, err := svc.Upload(context.Background(), "user-1", nil)
	if !errors.Is(err, ErrNoPDF) {
		t.Fatalf("Upload() error = %v, want ErrNoPDF", err)
	}
}

func TestUploadNoText(t *testing.T) {
	chunks := &fakeChunks{}
	svc := newTestAnalyser(t, chunks, testutil.NewMockLLM(""))

	docs := []Document{{Name: "blank.pdf", Data: []byte("   ")}}
	_, err := svc.Upload(context.Background(), "user-1", docs)
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("Upload() error = %v, want ErrNoText", err)
	}
	if chunks.deleted != 0 {
		t.Error("failed upload must not touch existing chunks")
	}
	if svc.texts.Exists("user-1") {
		t.Error("failed upload must not store text")
	}
}

func TestUploadSkipsCorruptFile(t *testing.T) {
	chunks := &fakeChunks{}
	svc := newTestAnalyser(t, chunks, testutil.NewMockLLM(""))
	svc.extractText = func(data []byte) (string, error) {
		if string(data) == "corrupt" {
			return "", errors.New("bad xref table")
		}
		return string(data), nil
	}

	docs := []Document{
		{Name: "broken.pdf", Data: []byte("corrupt")},
		{Name: "fine.pdf", Data: []byte("A valid clause survives.")},
	}

	result, err := svc.Upload(context.Background(), "user-1", docs)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if result.Files != 2 {
		t.Errorf("Files = %d, want 2", result.Files)
	}

	stored, err := svc.texts.Load("user-1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if stored != "A valid clause survives." {
		t.Errorf("stored text = %q", stored)
	}
}

func TestUploadIndexFailure(t *testing.T) {
	chunks := &fakeChunks{indexErr: errors.New("connection reset")}
	svc := newTestAnalyser(t, chunks, testutil.NewMockLLM(""))

	docs := []Document{{Name: "doc.pdf", Data: []byte("Some clause text.")}}
	_, err := svc.Upload(context.Background(), "user-1", docs)
	if err == nil || !strings.Contains(err.Error(), "indexing document") {
		t.Fatalf("Upload() error = %v, want indexing failure", err)
	}
	if svc.texts.Exists("user-1") {
		t.Error("text must not be stored when indexing failed")
	}
}

func TestExplain(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("explanation:", "- The agreement sets a 30 day notice period.\n- The deposit is refundable.")
	chunks := &fakeChunks{}
	svc := newTestAnalyser(t, chunks, llm)

	ctx := context.Background()
	if err := svc.texts.Save(ctx, "user-1", "Notice period clause: 30 days. Deposit clause: refundable."); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := svc.Explain(ctx, "user-1", "Marathi")
	if err != nil {
		t.Fatalf("Explain() error: %v", err)
	}
	if !strings.Contains(got, "notice period") {
		t.Errorf("Explain() = %q", got)
	}

	calls := llm.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(calls))
	}
	if !strings.Contains(calls[0].UserMessage, "simple Marathi") {
		t.Error("prompt should carry the requested language")
	}
	if !strings.Contains(calls[0].UserMessage, "Notice period clause") {
		t.Error("prompt should carry the stored document text")
	}
}

func TestExplainDefaultLanguage(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("explanation:", "- Point one.")
	svc := newTestAnalyser(t, &fakeChunks{}, llm)

	ctx := context.Background()
	if err := svc.texts.Save(ctx, "user-1", "Clause text."); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if _, err := svc.Explain(ctx, "user-1", "  "); err != nil {
		t.Fatalf("Explain() error: %v", err)
	}
	if !strings.Contains(llm.Calls()[0].UserMessage, "simple English") {
		t.Error("blank language should default to English")
	}
}

func TestExplainNoDocument(t *testing.T) {
	llm := testutil.NewMockLLM("")
	svc := newTestAnalyser(t, &fakeChunks{}, llm)

	_, err := svc.Explain(context.Background(), "user-1", "English")
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("Explain() error = %v, want ErrNoDocument", err)
	}
	if len(llm.Calls()) != 0 {
		t.Error("model must not be called without a document")
	}
}

func TestAsk(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("answer:", "• You must give 30 days of written notice.")
	chunks := &fakeChunks{
		results: []knowledge.Result{
			{Chunk: knowledge.Chunk{Content: "Either party may terminate with 30 days notice."}, Similarity: 0.91},
			{Chunk: knowledge.Chunk{Content: "Notices must be written."}, Similarity: 0.84},
		},
	}
	svc := newTestAnalyser(t, chunks, llm)

	ctx := context.Background()
	if err := svc.texts.Save(ctx, "user-1", "full text"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := svc.Ask(ctx, "user-1", "How do I terminate the lease?")
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	if !strings.Contains(got, "30 days") {
		t.Errorf("Ask() = %q", got)
	}

	if chunks.gotQuery != "How do I terminate the lease?" {
		t.Errorf("search query = %q", chunks.gotQuery)
	}
	if chunks.gotTopK != askTopK {
		t.Errorf("search topK = %d, want %d", chunks.gotTopK, askTopK)
	}

	msg := llm.Calls()[0].UserMessage
	if !strings.Contains(msg, "terminate with 30 days notice") {
		t.Error("prompt should carry retrieved chunk content")
	}
	if !strings.Contains(msg, "How do I terminate the lease?") {
		t.Error("prompt should carry the question")
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	svc := newTestAnalyser(t, &fakeChunks{}, testutil.NewMockLLM(""))

	_, err := svc.Ask(context.Background(), "user-1", "   ")
	if !errors.Is(err, ErrNoQuestion) {
		t.Fatalf("Ask() error = %v, want ErrNoQuestion", err)
	}
}

func TestAskNoDocument(t *testing.T) {
	chunks := &fakeChunks{}
	svc := newTestAnalyser(t, chunks, testutil.NewMockLLM(""))

	_, err := svc.Ask(context.Background(), "user-1", "What is the notice period?")
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("Ask() error = %v, want ErrNoDocument", err)
	}
	if chunks.gotQuery != "" {
		t.Error("search must not run without a document")
	}
}

func TestAskSearchFailure(t *testing.T) {
	chunks := &fakeChunks{searchErr: errors.New("db down")}
	svc := newTestAnalyser(t, chunks, testutil.NewMockLLM(""))

	ctx := context.Background()
	if err := svc.texts.Save(ctx, "user-1", "full text"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	_, err := svc.Ask(ctx, "user-1", "What changed?")
	if err == nil || !strings.Contains(err.Error(), "searching document chunks") {
		t.Fatalf("Ask() error = %v, want search failure", err)
	}
}

func TestNewServiceValidation(t *testing.T) {
	llm := testutil.NewMockLLM("")
	g := genkit.Init(context.Background())
	llm.RegisterModel(g)

	texts, err := NewTextStore(t.TempDir(), testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewTextStore() error: %v", err)
	}
	chunks := &fakeChunks{}

	if _, err := NewService(nil, texts, g, "m", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for nil chunk store")
	}
	if _, err := NewService(chunks, nil, g, "m", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for nil text store")
	}
	if _, err := NewService(chunks, texts, nil, "m", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for nil genkit instance")
	}
	if _, err := NewService(chunks, texts, g, "", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for empty model name")
	}
}
