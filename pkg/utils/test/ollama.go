package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// OllamaChatServer is an httptest server speaking Ollama's non-streaming
// /api/chat. Reply computes the answer from the user prompt.
type OllamaChatServer struct {
	*httptest.Server

	Reply func(prompt string) string

	mu      sync.Mutex
	prompts []string
}

// NewOllamaChatServer starts a fake Ollama chat server answering with reply.
func NewOllamaChatServer(reply func(prompt string) string) *OllamaChatServer {
	s := &OllamaChatServer{Reply: reply}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Prompts returns every prompt received so far.
func (s *OllamaChatServer) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

func (s *OllamaChatServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/chat" {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad request"})
		return
	}

	prompt := req.Messages[len(req.Messages)-1].Content
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":   req.Model,
		"message": map[string]string{"role": "assistant", "content": s.Reply(prompt)},
		"done":    true,
	})
}
