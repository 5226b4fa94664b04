package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// resetEnv clears every environment variable that Load consults and points
// HOME at an empty temp directory so tests see pure defaults.
func resetEnv(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"DATABASE_URL", "GOOGLE_CSE_API_KEY", "GOOGLE_CSE_ENGINE_ID",
		"IDENTITY_URL", "LAWYERUP_CORS_ORIGINS", "LAWYERUP_TRUST_PROXY",
		"LAWYERUP_MODEL_NAME", "LAWYERUP_ENV", "LAWYERUP_TELEMETRY_ENDPOINT",
		"LAWYERUP_DATA_DIR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("GEMINI_API_KEY", "test-api-key")
}

func TestLoadDefaults(t *testing.T) {
	resetEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ModelName != DefaultModelName {
		t.Errorf("expected default ModelName %q, got %q", DefaultModelName, cfg.ModelName)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("expected default Temperature 0.7, got %f", cfg.Temperature)
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("expected default MaxTokens 2048, got %d", cfg.MaxTokens)
	}
	if cfg.EmbedderModel != DefaultGeminiEmbedderModel {
		t.Errorf("expected default EmbedderModel %q, got %q", DefaultGeminiEmbedderModel, cfg.EmbedderModel)
	}
	if cfg.RAGTopK != 3 {
		t.Errorf("expected default RAGTopK 3, got %d", cfg.RAGTopK)
	}
	if cfg.PostgresHost != "localhost" {
		t.Errorf("expected default PostgresHost 'localhost', got %q", cfg.PostgresHost)
	}
	if cfg.PostgresPort != 5432 {
		t.Errorf("expected default PostgresPort 5432, got %d", cfg.PostgresPort)
	}
	if cfg.Search.DaysBack != DefaultSearchDaysBack {
		t.Errorf("expected default DaysBack %d, got %d", DefaultSearchDaysBack, cfg.Search.DaysBack)
	}
	if cfg.Search.MaxResults != DefaultSearchMaxResults {
		t.Errorf("expected default MaxResults %d, got %d", DefaultSearchMaxResults, cfg.Search.MaxResults)
	}
	if cfg.Environment != EnvDev {
		t.Errorf("expected default Environment %q, got %q", EnvDev, cfg.Environment)
	}
	if cfg.DataDir == "" {
		t.Error("expected DataDir to default under the config directory")
	}
	if cfg.Fetcher.Parallelism != 2 {
		t.Errorf("expected default fetcher parallelism 2, got %d", cfg.Fetcher.Parallelism)
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	resetEnv(t)
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")

	_, err := Load()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	resetEnv(t)

	home := os.Getenv("HOME")
	configDir := filepath.Join(home, ".lawyerup")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		t.Fatalf("creating config dir: %v", err)
	}

	content := `model_name: gemini-2.0-pro
temperature: 0.2
postgres_host: db.internal
postgres_password: file_password_123
identity_url: https://id.example.com
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ModelName != "gemini-2.0-pro" {
		t.Errorf("expected ModelName from file, got %q", cfg.ModelName)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("expected Temperature 0.2, got %f", cfg.Temperature)
	}
	if cfg.PostgresHost != "db.internal" {
		t.Errorf("expected PostgresHost from file, got %q", cfg.PostgresHost)
	}
	if cfg.IdentityURL != "https://id.example.com" {
		t.Errorf("expected IdentityURL from file, got %q", cfg.IdentityURL)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	resetEnv(t)

	home := os.Getenv("HOME")
	configDir := filepath.Join(home, ".lawyerup")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		t.Fatalf("creating config dir: %v", err)
	}
	content := "model_name: from-file\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("LAWYERUP_MODEL_NAME", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ModelName != "from-env" {
		t.Errorf("expected env to override file, got %q", cfg.ModelName)
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"bare model gets googleai prefix", "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"qualified model unchanged", "googleai/gemini-2.5-pro", "googleai/gemini-2.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"empty", "", ""},
		{"short fully masked", "pass", maskedValue},
		{"exactly 8 fully masked", "12345678", maskedValue},
		{"long shows edges", "my_long_secret_key_123", "my<" + maskedValue + ">23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.secret); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestMarshalJSONMasksSecrets(t *testing.T) {
	cfg := Config{
		ModelName:        "gemini-2.5-flash",
		PostgresPassword: "super_secret_password",
		Search: SearchConfig{
			APIKey:   "cse_api_key_value_456",
			EngineID: "engine-123",
		},
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out := string(data)

	if strings.Contains(out, "super_secret_password") {
		t.Error("postgres password leaked in JSON output")
	}
	if strings.Contains(out, "cse_api_key_value_456") {
		t.Error("search API key leaked in JSON output")
	}
	if !strings.Contains(out, "engine-123") {
		t.Error("non-sensitive engine ID should survive marshaling")
	}
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := Config{PostgresPassword: "another_secret_value"}
	if strings.Contains(cfg.String(), "another_secret_value") {
		t.Error("String() leaked the postgres password")
	}
}
