package ollama_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/pkg/ollama"
)

func tagsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/tags" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Health_ModelInstalled(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"mistral:7b","model":"mistral:7b"},{"name":"llama3:latest","model":"llama3:latest"}]}`)

	client, err := ollama.NewClient(config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	ctx := context.Background()
	for _, model := range []string{"llama3", "llama3:latest", "mistral:7b"} {
		if err := client.Health(ctx, model); err != nil {
			t.Fatalf("Health(%q) failed: %v", model, err)
		}
	}
}

func TestClient_Health_ModelMissing(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"mistral:7b","model":"mistral:7b"}]}`)

	client, err := ollama.NewClient(config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	err = client.Health(context.Background(), "llama3")
	if !errors.Is(err, ollama.ErrModelMissing) {
		t.Fatalf("expected ErrModelMissing, got %v", err)
	}
}

func TestClient_Health_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := ollama.NewClient(config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	err = client.Health(context.Background(), "llama3")
	if err == nil || errors.Is(err, ollama.ErrModelMissing) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestClient_Generate_Streaming_Success(t *testing.T) {
	// chunks are concatenated in order
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			// send first chunk
			if _, err := w.Write([]byte("{" + "\"response\":\"one\",\"done\":false}" + "\n")); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			time.Sleep(10 * time.Millisecond)
			// send final chunk
			_, _ = w.Write([]byte("{" + "\"response\":\"final\",\"done\":true}" + "\n"))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, Retries: 0}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	ctx := context.Background()
	res, err := client.Generate(ctx, "test-model", "prompt")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Text != "onefinal" {
		t.Fatalf("unexpected Generate.Text: %q", res.Text)
	}
}

func TestClient_Generate_Non200_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, Retries: 0}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	ctx := context.Background()
	if _, err := client.Generate(ctx, "test-model", "prompt"); err == nil {
		t.Fatalf("expected Generate to fail on non-200")
	}
}

func TestClient_Generate_MalformedJSON_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			// send invalid JSON
			_, _ = w.Write([]byte(`{ this is : not json `))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, Retries: 0}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	ctx := context.Background()
	if _, err := client.Generate(ctx, "test-model", "prompt"); err == nil {
		t.Fatalf("expected Generate to fail on malformed JSON")
	}
}
