package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLLMService_Gemini(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Gravity "},{"text":"is a force. "}]}}]}`))
	}))
	defer srv.Close()

	svc := NewLLMService(&LLMConfig{Provider: "gemini", Model: "gemini-2.0-flash", APIKey: "k", BaseURL: srv.URL})
	got, err := svc.Generate(context.Background(), "explain gravity")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Gravity is a force." {
		t.Errorf("answer = %q", got)
	}
	if gotPath != "/models/gemini-2.0-flash:generateContent" || gotKey != "k" || gotPrompt != "explain gravity" {
		t.Errorf("request: path=%q key=%q prompt=%q", gotPath, gotKey, gotPrompt)
	}
}

func TestLLMService_OpenAICompatible(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	svc := NewLLMService(&LLMConfig{Provider: "openai-compatible", Model: "gpt-4o-mini", APIKey: "k", BaseURL: srv.URL})
	got, err := svc.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "hello" || gotAuth != "Bearer k" {
		t.Errorf("answer=%q auth=%q", got, gotAuth)
	}
}

func TestLLMService_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota"}}`))
	}))
	defer srv.Close()

	svc := NewLLMService(&LLMConfig{Provider: "gemini", Model: "m", BaseURL: srv.URL})
	_, err := svc.Generate(context.Background(), "hi")

	var perr *ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 ProviderError, got %v", err)
	}
}
