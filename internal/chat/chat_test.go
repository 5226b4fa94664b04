package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/kartiksharma1227/LawyerUp/internal/conversation"
	"github.com/kartiksharma1227/LawyerUp/internal/testutil"
)

type fakeConversations struct {
	conv        *conversation.Conversation
	getErr      error
	recent      []conversation.Message
	recentErr   error
	history     []conversation.Message
	historyErr  error
	exchanges   [][2]string
	exchangeErr error
	title       string
	titleCalls  int
}

func (f *fakeConversations) GetOrCreate(_ context.Context, userID string) (*conversation.Conversation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.conv == nil {
		f.conv = &conversation.Conversation{ID: uuid.New(), UserID: userID}
	}
	return f.conv, nil
}

func (f *fakeConversations) AddExchange(_ context.Context, _ uuid.UUID, userContent, modelContent string) error {
	if f.exchangeErr != nil {
		return f.exchangeErr
	}
	f.exchanges = append(f.exchanges, [2]string{userContent, modelContent})
	return nil
}

func (f *fakeConversations) UpdateTitle(_ context.Context, _ uuid.UUID, title string) error {
	f.titleCalls++
	f.title = title
	return nil
}

func (f *fakeConversations) Recent(_ context.Context, _ uuid.UUID, _ int) ([]conversation.Message, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recent, nil
}

func (f *fakeConversations) History(_ context.Context, _ string, _ int) ([]conversation.Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func newChatEnv(t *testing.T, llm *testutil.MockLLM) *genkit.Genkit {
	t.Helper()
	g := genkit.Init(context.Background())
	llm.RegisterModel(g)
	return g
}

func staticRetriever(g *genkit.Genkit, texts ...string) ai.Retriever {
	return genkit.DefineRetriever(g, "test/statutes", nil,
		func(_ context.Context, _ *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			docs := make([]*ai.Document, len(texts))
			for i, text := range texts {
				docs[i] = ai.DocumentFromText(text, nil)
			}
			return &ai.RetrieverResponse{Documents: docs}, nil
		})
}

func failingRetriever(g *genkit.Genkit) ai.Retriever {
	return genkit.DefineRetriever(g, "test/failing", nil,
		func(_ context.Context, _ *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			return nil, errors.New("retrieval backend down")
		})
}

func newChatService(t *testing.T, convs ConversationStore, retriever ai.Retriever, g *genkit.Genkit) *Service {
	t.Helper()
	svc, err := NewService(convs, retriever, g, "mock/test-model", testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestChatSuccess(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("**answer**:",
		"You can **appeal** under Section 37.\n\n1. Grounds: limited to those in the Act\n2. Forum: the court defined in Section 2(1)(e)")
	llm.AddResponse("title:", "Arbitral Award Appeal")

	g := newChatEnv(t, llm)
	convs := &fakeConversations{}
	retriever := staticRetriever(g,
		"Section 37 of the Arbitration and Conciliation Act, 1996 lists appealable orders.",
		"Section 34 allows setting aside an arbitral award.")
	svc := newChatService(t, convs, retriever, g)

	got, err := svc.Chat(context.Background(), "user-1", "Can I challenge an arbitral award?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if !strings.Contains(got, "<strong>appeal</strong>") {
		t.Errorf("response should be formatted HTML, got %q", got)
	}
	if !strings.Contains(got, "<ol>") {
		t.Errorf("numbered points should render as a list, got %q", got)
	}

	if len(convs.exchanges) != 1 {
		t.Fatalf("expected 1 saved exchange, got %d", len(convs.exchanges))
	}
	if convs.exchanges[0][0] != "Can I challenge an arbitral award?" {
		t.Errorf("saved user message = %q", convs.exchanges[0][0])
	}
	if !strings.Contains(convs.exchanges[0][1], "**appeal**") {
		t.Errorf("exchange should store the raw model text, got %q", convs.exchanges[0][1])
	}

	if convs.title != "Arbitral Award Appeal" {
		t.Errorf("title = %q, want Arbitral Award Appeal", convs.title)
	}

	calls := llm.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected answer and title calls, got %d", len(calls))
	}
	if !strings.Contains(calls[0].UserMessage, "Section 37 of the Arbitration") {
		t.Error("answer prompt should include retrieved statute context")
	}
	if !strings.Contains(calls[0].UserMessage, "Can I challenge an arbitral award?") {
		t.Error("answer prompt should include the question")
	}
}

func TestChatEmptyMessage(t *testing.T) {
	llm := testutil.NewMockLLM("")
	g := newChatEnv(t, llm)
	convs := &fakeConversations{}
	svc := newChatService(t, convs, staticRetriever(g), g)

	_, err := svc.Chat(context.Background(), "user-1", "   ")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(llm.Calls()) != 0 {
		t.Error("model should not be called for an empty message")
	}
	if len(convs.exchanges) != 0 {
		t.Error("no exchange should be saved")
	}
}

func TestChatRetrievalFailureStillAnswers(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("**answer**:", "Consult the limitation period first.")
	llm.AddResponse("title:", "Limitation Question")

	g := newChatEnv(t, llm)
	convs := &fakeConversations{}
	svc := newChatService(t, convs, failingRetriever(g), g)

	got, err := svc.Chat(context.Background(), "user-1", "How long do I have to sue?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "Consult the limitation period first." {
		t.Errorf("response = %q", got)
	}
	if len(convs.exchanges) != 1 {
		t.Errorf("expected 1 saved exchange, got %d", len(convs.exchanges))
	}
}

func TestChatEmptyModelResponse(t *testing.T) {
	llm := testutil.NewMockLLM("")
	g := newChatEnv(t, llm)
	convs := &fakeConversations{}
	svc := newChatService(t, convs, staticRetriever(g), g)

	got, err := svc.Chat(context.Background(), "user-1", "What is anticipatory bail?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got != "Sorry, I couldn&#39;t generate a response." {
		t.Errorf("response = %q, want the escaped fallback", got)
	}
	if len(convs.exchanges) != 1 || convs.exchanges[0][1] != fallbackResponse {
		t.Errorf("exchange should store the raw fallback, got %v", convs.exchanges)
	}
	if convs.title != "What is anticipatory bail?" {
		t.Errorf("title should fall back to the message, got %q", convs.title)
	}
}

func TestChatKeepsExistingTitle(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("**answer**:", "Yes, within three years.")

	g := newChatEnv(t, llm)
	convs := &fakeConversations{
		conv: &conversation.Conversation{ID: uuid.New(), UserID: "user-1", Title: "Deposit Recovery"},
	}
	svc := newChatService(t, convs, staticRetriever(g), g)

	if _, err := svc.Chat(context.Background(), "user-1", "Can I still recover it?"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if convs.titleCalls != 0 {
		t.Error("title should not be regenerated for a titled conversation")
	}
	if len(llm.Calls()) != 1 {
		t.Errorf("expected only the answer call, got %d", len(llm.Calls()))
	}
}

func TestChatConversationFailure(t *testing.T) {
	llm := testutil.NewMockLLM("")
	g := newChatEnv(t, llm)
	convs := &fakeConversations{getErr: errors.New("db down")}
	svc := newChatService(t, convs, staticRetriever(g), g)

	_, err := svc.Chat(context.Background(), "user-1", "Is my contract valid?")
	if err == nil || !strings.Contains(err.Error(), "loading conversation") {
		t.Fatalf("expected conversation load error, got %v", err)
	}
}

func TestChatSaveFailureStillResponds(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("**answer**:", "File a written complaint.")
	llm.AddResponse("title:", "Complaint Filing")

	g := newChatEnv(t, llm)
	convs := &fakeConversations{exchangeErr: errors.New("db down")}
	svc := newChatService(t, convs, staticRetriever(g), g)

	got, err := svc.Chat(context.Background(), "user-1", "Where do I complain?")
	if err != nil {
		t.Fatalf("persistence failure should not fail the request: %v", err)
	}
	if got != "File a written complaint." {
		t.Errorf("response = %q", got)
	}
}

func TestHistory(t *testing.T) {
	llm := testutil.NewMockLLM("")
	g := newChatEnv(t, llm)
	convs := &fakeConversations{
		history: []conversation.Message{
			{Role: conversation.RoleUser, Content: "My landlord kept my deposit."},
			{Role: conversation.RoleModel, Content: "You can send a legal notice."},
		},
	}
	svc := newChatService(t, convs, staticRetriever(g), g)

	entries, err := svc.History(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Role != conversation.RoleUser || entries[0].Content != "My landlord kept my deposit." {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Role != conversation.RoleModel {
		t.Errorf("entries[1].Role = %q, want model", entries[1].Role)
	}
}

func TestHistoryFailure(t *testing.T) {
	llm := testutil.NewMockLLM("")
	g := newChatEnv(t, llm)
	convs := &fakeConversations{historyErr: errors.New("db down")}
	svc := newChatService(t, convs, staticRetriever(g), g)

	if _, err := svc.History(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestHistoryMessages(t *testing.T) {
	msgs := []conversation.Message{
		{Role: conversation.RoleUser, Content: "hello"},
		{Role: conversation.RoleModel, Content: "hi there"},
	}

	out := historyMessages(msgs)
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	if out[0].Role != ai.RoleUser || out[0].Content[0].Text != "hello" {
		t.Errorf("out[0] = role %q text %q", out[0].Role, out[0].Content[0].Text)
	}
	if out[1].Role != ai.RoleModel || out[1].Content[0].Text != "hi there" {
		t.Errorf("out[1] = role %q text %q", out[1].Role, out[1].Content[0].Text)
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"short message": {
			in:   "What is anticipatory bail?",
			want: "What is anticipatory bail?",
		},
		"cuts at word boundary": {
			in:   "My employer has not paid my salary for three months and I want to know my options",
			want: "My employer has not paid my salary for three...",
		},
		"no spaces falls back to hard cut": {
			in:   strings.Repeat("a", 60),
			want: strings.Repeat("a", 47) + "...",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := truncateTitle(tc.in)
			if got != tc.want {
				t.Errorf("truncateTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if n := len([]rune(got)); n > conversation.TitleMaxLength {
				t.Errorf("title length %d exceeds %d", n, conversation.TitleMaxLength)
			}
		})
	}
}

func TestNewChatServiceValidation(t *testing.T) {
	llm := testutil.NewMockLLM("")
	g := newChatEnv(t, llm)
	convs := &fakeConversations{}
	retriever := staticRetriever(g)

	if _, err := NewService(nil, retriever, g, "m", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for nil conversation store")
	}
	if _, err := NewService(convs, nil, g, "m", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for nil retriever")
	}
	if _, err := NewService(convs, retriever, nil, "m", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for nil genkit instance")
	}
	if _, err := NewService(convs, retriever, g, "", testutil.DiscardLogger()); err == nil {
		t.Error("expected error for empty model name")
	}
}
