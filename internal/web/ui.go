package web

import (
	"net/http"
	"strings"

	"calibtrack/internal/assistant"
	"calibtrack/internal/localcache"
)

type chatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type chatResponse struct {
	Question    assistant.Message `json:"question"`
	Answer      assistant.Message `json:"answer"`
	Suggestions []string          `json:"suggestions"`
}

type chatHistoryResponse struct {
	Messages    []assistant.Message `json:"messages"`
	Suggestions []string            `json:"suggestions"`
}

func (s *Server) handleGetLayout(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.deps.Layout.Load())
}

func (s *Server) handlePutLayout(w http.ResponseWriter, r *http.Request) {
	var layout localcache.Layout
	if err := s.decode(r, &layout); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	if err := s.deps.Layout.Save(layout); err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusOK, layout)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, chatHistoryResponse{
		Messages:    s.deps.Chat.Messages(),
		Suggestions: assistant.InitialSuggestions(),
	})
}

// handleChat answers a question about the inventory and records both
// messages.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decode(r, &req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "validation failed", Fields: map[string]string{"message": "is required"}})
		return
	}

	now := s.now()
	question := assistant.NewMessage(assistant.SenderUser, req.Message, now)
	reply := s.assistant.Answer(req.Message, s.deps.Catalog.Tools(), now)
	if _, err := s.deps.Chat.Append(question, reply.Message); err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusOK, chatResponse{Question: question, Answer: reply.Message, Suggestions: reply.Suggestions})
}

func (s *Server) handleChatClear(w http.ResponseWriter, _ *http.Request) {
	if err := s.deps.Chat.Clear(); err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusOK, chatHistoryResponse{
		Messages:    s.deps.Chat.Messages(),
		Suggestions: assistant.InitialSuggestions(),
	})
}

// handleLogout expires the session cookie.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeData(w, http.StatusOK, map[string]bool{"loggedOut": true})
}
