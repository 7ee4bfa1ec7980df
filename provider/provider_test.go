package provider

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// mockClient implements Client for testing.
type mockClient struct {
	name string
}

func (m *mockClient) Translate(ctx context.Context, req Request) (*Response, error) {
	return &Response{Content: `{"items":[]}`}, nil
}

func (m *mockClient) Provider() string { return m.name }

func (m *mockClient) Close() error { return nil }

func TestRegister(t *testing.T) {
	defer Unregister("test")

	Register("test", func(cfg Config) (Client, error) {
		return &mockClient{name: "test"}, nil
	})

	if !IsRegistered("test") {
		t.Error("expected 'test' to be registered")
	}
}

func TestRegister_Panic(t *testing.T) {
	defer Unregister("duplicate")

	Register("duplicate", func(cfg Config) (Client, error) {
		return &mockClient{name: "duplicate"}, nil
	})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("duplicate", func(cfg Config) (Client, error) {
		return &mockClient{name: "duplicate2"}, nil
	})
}

func TestNew(t *testing.T) {
	defer Unregister("test")

	Register("test", func(cfg Config) (Client, error) {
		return &mockClient{name: "test"}, nil
	})

	client, err := New("test", Config{Provider: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.Provider() != "test" {
		t.Errorf("expected provider 'test', got %q", client.Provider())
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("nonexistent", Config{})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestAvailable_Sorted(t *testing.T) {
	defer Unregister("zeta")
	defer Unregister("alpha")

	Register("zeta", func(cfg Config) (Client, error) { return &mockClient{}, nil })
	Register("alpha", func(cfg Config) (Client, error) { return &mockClient{}, nil })

	names := Available()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("Available() not sorted: %v", names)
		}
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{
			name: "valid",
			req: Request{Items: []Item{
				{ID: 1, Text: "hola"},
				{ID: 2, Text: "adios"},
			}},
			wantErr: false,
		},
		{
			name: "sparse follow-up ids",
			req: Request{Items: []Item{
				{ID: 3, Text: "hola"},
				{ID: 7, Text: "adios"},
			}},
			wantErr: false,
		},
		{
			name:    "empty items",
			req:     Request{},
			wantErr: true,
		},
		{
			name: "ids not increasing",
			req: Request{Items: []Item{
				{ID: 2, Text: "hola"},
				{ID: 1, Text: "adios"},
			}},
			wantErr: true,
		},
		{
			name: "duplicate ids",
			req: Request{Items: []Item{
				{ID: 1, Text: "hola"},
				{ID: 1, Text: "adios"},
			}},
			wantErr: true,
		},
		{
			name: "zero id",
			req: Request{Items: []Item{
				{ID: 0, Text: "hola"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{Provider: "test"},
			wantErr: false,
		},
		{
			name:    "missing provider",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			cfg:     Config{Provider: "test", Timeout: -1 * time.Second},
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			cfg:     Config{Provider: "test", Temperature: 3},
			wantErr: true,
		},
		{
			name:    "negative max_tokens",
			cfg:     Config{Provider: "test", MaxTokens: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	os.Setenv("DUBKIT_MODEL", "gpt-4.1")
	os.Setenv("DUBKIT_TIMEOUT", "90s")
	defer os.Unsetenv("DUBKIT_MODEL")
	defer os.Unsetenv("DUBKIT_TIMEOUT")

	cfg := Config{}
	cfg.LoadFromEnv()

	if cfg.Model != "gpt-4.1" {
		t.Errorf("expected model gpt-4.1, got %q", cfg.Model)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", cfg.Timeout)
	}
}

func TestConfig_System(t *testing.T) {
	cfg := Config{TargetLang: "spanish"}
	if got := cfg.System(); !strings.Contains(got, "spanish") {
		t.Errorf("default instruction should mention target language, got %q", got)
	}

	cfg.SystemPrompt = "custom"
	if got := cfg.System(); got != "custom" {
		t.Errorf("override should win, got %q", got)
	}
}

func TestConfig_ResolveAPIKey(t *testing.T) {
	os.Setenv("TEST_PROVIDER_KEY", "from-env")
	defer os.Unsetenv("TEST_PROVIDER_KEY")

	cfg := Config{APIKey: "literal"}
	if got := cfg.ResolveAPIKey("TEST_PROVIDER_KEY"); got != "literal" {
		t.Errorf("literal key should win, got %q", got)
	}

	cfg = Config{}
	if got := cfg.ResolveAPIKey("TEST_PROVIDER_KEY"); got != "from-env" {
		t.Errorf("expected env key, got %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited sentinel", ErrRateLimited, true},
		{"unavailable sentinel", ErrUnavailable, true},
		{"timeout sentinel", ErrTimeout, true},
		{"malformed sentinel", ErrMalformedResponse, true},
		{"invalid request sentinel", ErrInvalidRequest, false},
		{"plain error", errors.New("boom"), false},
		{"structured retryable", NewError("openai", "translate", ErrRateLimited, true), true},
		{
			name: "structured non-retryable overrides sentinel",
			err:  NewError("openai", "translate", ErrRateLimited, false),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := NewError("openai", "translate", ErrRateLimited, true)
	if !errors.Is(err, ErrRateLimited) {
		t.Error("expected errors.Is to see through the wrapper")
	}
	if !strings.Contains(err.Error(), "openai") {
		t.Errorf("message should name the provider, got %q", err.Error())
	}
}

func TestResponseSchema(t *testing.T) {
	schema := ResponseSchema()
	if schema.Type != "object" {
		t.Fatalf("schema root must be an object, got %q", schema.Type)
	}
	if schema.Properties == nil {
		t.Fatal("schema has no properties")
	}
	if _, ok := schema.Properties.Get("items"); !ok {
		t.Error("schema missing 'items' property")
	}
}
