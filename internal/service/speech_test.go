package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSpeechService_RawAudio(t *testing.T) {
	var got speechRequest
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	audio, err := NewSpeechService(&SpeechConfig{BaseURL: srv.URL, APIKey: "k"}).Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(audio, []byte("RIFFdata")) {
		t.Errorf("audio = %q", audio)
	}
	want := speechRequest{Text: "hello", VoiceID: "en-US-natalie", Format: "WAV", ChannelType: "MONO", SampleRate: 48000}
	if got != want || gotKey != "k" {
		t.Errorf("request = %+v key=%q", got, gotKey)
	}
}

func TestSpeechService_JSONEnvelope(t *testing.T) {
	var fileHits int
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/speech/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"audioFile":"` + srv.URL + `/files/a.wav"}`))
	})
	mux.HandleFunc("/files/a.wav", func(w http.ResponseWriter, r *http.Request) {
		fileHits++
		if r.Header.Get("api-key") != "" {
			t.Errorf("api key leaked to the file host")
		}
		w.Write([]byte("WAVBYTES"))
	})

	audio, err := NewSpeechService(&SpeechConfig{BaseURL: srv.URL, APIKey: "k"}).Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "WAVBYTES" || fileHits != 1 {
		t.Errorf("audio=%q hits=%d", audio, fileHits)
	}
}

func TestSpeechService_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	_, err := NewSpeechService(&SpeechConfig{BaseURL: srv.URL}).Synthesize(context.Background(), "hello")
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 ProviderError, got %v", err)
	}
}
