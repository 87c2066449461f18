package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_BackendTimeoutExceedsBudget(t *testing.T) {
	cfg := validConfig()
	cfg.Search.TotalBudgetMs = 100
	cfg.Search.VectorTimeoutMs = 150

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for vector timeout above total budget")
	}
}

func TestValidate_EmbeddingProviderRequiresModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.Model = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for embedding provider without model")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()

	if cfg.Search.TotalBudgetMs != 200 {
		t.Errorf("expected default total budget 200ms, got %d", cfg.Search.TotalBudgetMs)
	}
	if cfg.Search.VectorTimeoutMs != 150 || cfg.Search.KeywordTimeoutMs != 100 {
		t.Errorf("unexpected backend timeout defaults: %d/%d",
			cfg.Search.VectorTimeoutMs, cfg.Search.KeywordTimeoutMs)
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.Breaker.WindowSec != 30 || cfg.Breaker.CooldownSec != 15 {
		t.Errorf("unexpected breaker defaults: %+v", cfg.Breaker)
	}
	if cfg.Cache.TTLSec != 60 || cfg.Cache.StaleFactor != 10 {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if !cfg.CacheEnabled() {
		t.Error("cache should default to enabled")
	}
	if cfg.Search.VectorWeight != 0.5 || cfg.Search.KeywordWeight != 0.5 {
		t.Errorf("unexpected weight defaults: %g/%g", cfg.Search.VectorWeight, cfg.Search.KeywordWeight)
	}
	if cfg.Storage.KeyPrefix != "retriever:" {
		t.Errorf("unexpected key prefix: %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("RETRIEVER_TEST_PASSWORD", "s3cret")
	defer os.Unsetenv("RETRIEVER_TEST_PASSWORD")

	in := []byte("password: ${RETRIEVER_TEST_PASSWORD}\nport: ${RETRIEVER_TEST_MISSING:-6379}")
	out := string(expandEnvVars(in))

	want := "password: s3cret\nport: 6379"
	if out != want {
		t.Errorf("expandEnvVars = %q, want %q", out, want)
	}
}
