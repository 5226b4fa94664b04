package casefile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/kartiksharma1227/LawyerUp/internal/profile"
	"github.com/kartiksharma1227/LawyerUp/internal/testutil"
)

const uploadText = "This Share Purchase Agreement is made between Apex Industries and Meridian Holdings. " +
	"The parties submit to arbitration under the Arbitration and Conciliation Act, 1996 and Section 11(6) thereof. " +
	"Disputes escalate to the Delhi High Court."

type fakeProfiles struct {
	prof        *profile.Profile
	getErr      error
	savedDoc    string
	savedTerms  []string
	saveErr     error
	incremented int
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.prof == nil {
		return nil, profile.ErrNotFound
	}

	return f.prof, nil
}

func (f *fakeProfiles) GetOrCreate(ctx context.Context, userID string) (*profile.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.prof == nil {
		f.prof = &profile.Profile{UserID: userID, DocUploadLimit: profile.DefaultUploadLimit}
	}

	return f.prof, nil
}

func (f *fakeProfiles) SaveTerms(ctx context.Context, userID, docName string, terms []string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedDoc = docName
	f.savedTerms = terms

	return nil
}

func (f *fakeProfiles) IncrementUploadCount(ctx context.Context, userID string) error {
	f.incremented++
	return nil
}

type fakeIndexer struct {
	chunks     int
	err        error
	gotSource  string
	gotContent string
}

func (f *fakeIndexer) Index(ctx context.Context, userID, source, text string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.gotSource = source
	f.gotContent = text

	return f.chunks, nil
}

func newTestService(t *testing.T, profiles ProfileStore, indexer Indexer, llm *testutil.MockLLM) *Service {
	t.Helper()

	g := genkit.Init(context.Background())
	llm.RegisterModel(g)

	svc, err := NewService(profiles, indexer, g, "mock/test-model", testutil.DiscardLogger())
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
	profiles := &fakeProfiles{}
	indexer := &fakeIndexer{chunks: 4}
	llm := testutil.NewMockLLM("Corporate Governance, Data Privacy")
	svc := newTestService(t, profiles, indexer, llm)

	result, err := svc.Upload(context.Background(), "user-1", "agreement.pdf", []byte(uploadText))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if result.DocName != "agreement.pdf" {
		t.Errorf("DocName = %q, want %q", result.DocName, "agreement.pdf")
	}
	if result.ChunksIndexed != 4 {
		t.Errorf("ChunksIndexed = %d, want 4", result.ChunksIndexed)
	}
	if !containsTerm(result.ExtractedTerms, "Delhi High Court") {
		t.Errorf("expected scanned entity in terms, got %v", result.ExtractedTerms)
	}
	if !containsTerm(result.ExtractedTerms, "Corporate Governance") {
		t.Errorf("expected model concept in terms, got %v", result.ExtractedTerms)
	}

	if profiles.savedDoc != "agreement.pdf" {
		t.Errorf("saved doc = %q, want %q", profiles.savedDoc, "agreement.pdf")
	}
	if len(profiles.savedTerms) != len(result.ExtractedTerms) {
		t.Errorf("saved %d terms, result has %d", len(profiles.savedTerms), len(result.ExtractedTerms))
	}
	if profiles.incremented != 1 {
		t.Errorf("upload count incremented %d times, want 1", profiles.incremented)
	}
	if indexer.gotSource != "agreement.pdf" || indexer.gotContent != uploadText {
		t.Errorf("indexer got source %q with %d bytes", indexer.gotSource, len(indexer.gotContent))
	}
}

func TestUploadLimitReached(t *testing.T) {
	profiles := &fakeProfiles{
		prof: &profile.Profile{UserID: "user-1", DocUploadCount: 1, DocUploadLimit: 1},
	}
	svc := newTestService(t, profiles, &fakeIndexer{}, testutil.NewMockLLM(""))

	_, err := svc.Upload(context.Background(), "user-1", "second.pdf", []byte(uploadText))
	if !errors.Is(err, ErrUploadLimit) {
		t.Fatalf("Upload() error = %v, want ErrUploadLimit", err)
	}
	if !strings.Contains(err.Error(), "(1/1)") {
		t.Errorf("error %q should carry the quota", err)
	}
	if profiles.savedDoc != "" || profiles.incremented != 0 {
		t.Error("rejected upload must leave the profile untouched")
	}
}

func TestUploadShortText(t *testing.T) {
	profiles := &fakeProfiles{}
	svc := newTestService(t, profiles, &fakeIndexer{}, testutil.NewMockLLM(""))

	_, err := svc.Upload(context.Background(), "user-1", "stub.pdf", []byte("barely anything here"))
	if !errors.Is(err, ErrTextTooShort) {
		t.Fatalf("Upload() error = %v, want ErrTextTooShort", err)
	}
	if profiles.savedDoc != "" || profiles.incremented != 0 {
		t.Error("failed upload must leave the profile untouched")
	}
}

func TestUploadExtractionFailure(t *testing.T) {
	profiles := &fakeProfiles{}
	svc := newTestService(t, profiles, &fakeIndexer{}, testutil.NewMockLLM(""))
	svc.extractText = func(data []byte) (string, error) {
		return "", errors.New("corrupt xref table")
	}

	_, err := svc.Upload(context.Background(), "user-1", "broken.pdf", []byte("%PDF"))
	if !errors.Is(err, ErrTextTooShort) {
		t.Fatalf("Upload() error = %v, want ErrTextTooShort", err)
	}
}

func TestUploadTooFewTerms(t *testing.T) {
	profiles := &fakeProfiles{}
	svc := newTestService(t, profiles, &fakeIndexer{}, testutil.NewMockLLM(""))

	text := strings.Repeat("plain lowercase filler with nothing worth monitoring in it ", 4)
	_, err := svc.Upload(context.Background(), "user-1", "bland.pdf", []byte(text))
	if !errors.Is(err, ErrTooFewTerms) {
		t.Fatalf("Upload() error = %v, want ErrTooFewTerms", err)
	}
	if profiles.savedDoc != "" || profiles.incremented != 0 {
		t.Error("failed upload must leave the profile untouched")
	}
}

func TestUploadIndexFailureKeepsTerms(t *testing.T) {
	profiles := &fakeProfiles{}
	indexer := &fakeIndexer{err: errors.New("connection reset")}
	svc := newTestService(t, profiles, indexer, testutil.NewMockLLM(""))

	_, err := svc.Upload(context.Background(), "user-1", "agreement.pdf", []byte(uploadText))
	if err == nil {
		t.Fatal("expected indexing error")
	}
	if profiles.savedDoc != "agreement.pdf" {
		t.Error("terms should be saved before indexing")
	}
	if profiles.incremented != 0 {
		t.Error("upload count must not be spent when indexing fails")
	}
}

func TestStatus(t *testing.T) {
	t.Run("no profile", func(t *testing.T) {
		svc := newTestService(t, &fakeProfiles{}, &fakeIndexer{}, testutil.NewMockLLM(""))

		status, err := svc.Status(context.Background(), "new-user")
		if err != nil {
			t.Fatalf("Status() error: %v", err)
		}
		if status.HasUploadedCase {
			t.Error("new user should have no uploaded case")
		}
		if status.UploadLimit != profile.DefaultUploadLimit {
			t.Errorf("UploadLimit = %d, want %d", status.UploadLimit, profile.DefaultUploadLimit)
		}
	})

	t.Run("with monitored case", func(t *testing.T) {
		profiles := &fakeProfiles{
			prof: &profile.Profile{
				UserID:               "user-1",
				MonitoredDocName:     "agreement.pdf",
				ExtractedSearchTerms: []string{"Delhi High Court", "Section 11(6)", "Arbitration"},
				DocUploadCount:       1,
				DocUploadLimit:       2,
			},
		}
		svc := newTestService(t, profiles, &fakeIndexer{}, testutil.NewMockLLM(""))

		status, err := svc.Status(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("Status() error: %v", err)
		}
		if !status.HasUploadedCase {
			t.Error("expected HasUploadedCase")
		}
		if status.ExtractedTermsCount != 3 {
			t.Errorf("ExtractedTermsCount = %d, want 3", status.ExtractedTermsCount)
		}
		if status.MonitoredDocName != "agreement.pdf" {
			t.Errorf("MonitoredDocName = %q", status.MonitoredDocName)
		}
		if status.UploadCount != 1 || status.UploadLimit != 2 {
			t.Errorf("quota = %d/%d, want 1/2", status.UploadCount, status.UploadLimit)
		}
	})
}

func TestNewServiceValidation(t *testing.T) {
	g := genkit.Init(context.Background())

	tests := []struct {
		name     string
		profiles ProfileStore
		indexer  Indexer
		g        *genkit.Genkit
		model    string
	}{
		{"nil profiles", nil, &fakeIndexer{}, g, "googleai/gemini-2.5-flash"},
		{"nil indexer", &fakeProfiles{}, nil, g, "googleai/gemini-2.5-flash"},
		{"nil genkit", &fakeProfiles{}, &fakeIndexer{}, nil, "googleai/gemini-2.5-flash"},
		{"empty model", &fakeProfiles{}, &fakeIndexer{}, g, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(tt.profiles, tt.indexer, tt.g, tt.model, nil); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
