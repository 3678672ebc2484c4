package client

import (
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestIsValidModel(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		want    bool
	}{
		{"known gemini model", "gemini-2.5-flash", true},
		{"known glm model", "glm-4.7", true},
		{"known ollama model", "ollama", true},
		{"unknown model", "gpt-5-turbo", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidModel(tt.modelID); got != tt.want {
				t.Fatalf("IsValidModel(%q) = %v, want %v", tt.modelID, got, tt.want)
			}
		})
	}
}

func TestGetModelInfo(t *testing.T) {
	info, ok := GetModelInfo("deepseek-reasoner")
	if !ok {
		t.Fatal("expected deepseek-reasoner to be found")
	}
	if info.Provider != "deepseek" {
		t.Fatalf("provider = %q, want deepseek", info.Provider)
	}
	if info.BaseURL == "" {
		t.Fatal("expected a BaseURL for the anthropic-compatible deepseek model")
	}

	if _, ok := GetModelInfo("does-not-exist"); ok {
		t.Fatal("expected lookup of unknown model to fail")
	}
}

func TestGetModelsForProvider(t *testing.T) {
	gemini := GetModelsForProvider("gemini")
	if len(gemini) != 4 {
		t.Fatalf("gemini models = %d, want 4", len(gemini))
	}
	for _, m := range gemini {
		if m.Provider != "gemini" {
			t.Fatalf("unexpected provider %q in gemini result set", m.Provider)
		}
	}

	if got := GetModelsForProvider("nonexistent-provider"); got != nil {
		t.Fatalf("expected nil slice for unknown provider, got %v", got)
	}
}

func TestStreamingResponseCollect(t *testing.T) {
	chunks := make(chan ResponseChunk, 4)
	done := make(chan struct{})
	chunks <- ResponseChunk{Text: "Hello"}
	chunks <- ResponseChunk{Text: ", world", InputTokens: 10, OutputTokens: 2}
	chunks <- ResponseChunk{
		Done:         true,
		FinishReason: genai.FinishReasonStop,
		OutputTokens: 3,
	}
	close(chunks)

	sr := &StreamingResponse{Chunks: chunks, Done: done}
	resp, err := sr.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if resp.Text != "Hello, world" {
		t.Fatalf("text = %q, want %q", resp.Text, "Hello, world")
	}
	if resp.FinishReason != genai.FinishReasonStop {
		t.Fatalf("finish reason = %v, want STOP", resp.FinishReason)
	}
	if resp.InputTokens != 10 {
		t.Fatalf("input tokens = %d, want 10 (last non-zero wins)", resp.InputTokens)
	}
	if resp.OutputTokens != 5 {
		t.Fatalf("output tokens = %d, want 5 (accumulated)", resp.OutputTokens)
	}
}

func TestStreamingResponseCollectPropagatesError(t *testing.T) {
	wantErr := errors.New("stream failed")
	chunks := make(chan ResponseChunk, 1)
	chunks <- ResponseChunk{Error: wantErr}
	close(chunks)

	sr := &StreamingResponse{Chunks: chunks}
	if _, err := sr.Collect(); !errors.Is(err, wantErr) {
		t.Fatalf("Collect error = %v, want %v", err, wantErr)
	}
}
