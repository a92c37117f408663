package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/applyo/prospector/internal/auth"
	"github.com/applyo/prospector/internal/llm"
	"github.com/applyo/prospector/internal/persistence"
	"github.com/applyo/prospector/pkg/log"
)

const chatsPerPage = 20

// Replier produces the assistant's answer to content given the prior messages.
type Replier interface {
	Reply(ctx context.Context, history []persistence.Message, content string) (string, error)
}

// ConversationReplier answers through an llm.Conversation seeded from stored history.
type ConversationReplier struct {
	client       llm.Completer
	systemPrompt string
	maxHistory   int
}

func NewConversationReplier(client llm.Completer, systemPrompt string, maxHistory int) *ConversationReplier {
	return &ConversationReplier{client: client, systemPrompt: systemPrompt, maxHistory: maxHistory}
}

func (c *ConversationReplier) Reply(ctx context.Context, history []persistence.Message, content string) (string, error) {
	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	conv := llm.NewConversation(c.client,
		llm.WithSystemPrompt(c.systemPrompt),
		llm.WithMaxHistory(c.maxHistory),
		llm.WithHistory(msgs),
	)
	return conv.Reply(ctx, content)
}

type startChatRequest struct {
	Title string `json:"title"`
}

type startChatResponse struct {
	ChatID    string    `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type addMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type addMessageResponse struct {
	UserMessage      *persistence.Message `json:"user_message"`
	AssistantMessage *persistence.Message `json:"assistant_message"`
}

type chatResponse struct {
	Chat     *persistence.Chat     `json:"chat"`
	Messages []persistence.Message `json:"messages"`
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type chatListResponse struct {
	Chats      []persistence.Chat `json:"chats"`
	Pagination pagination         `json:"pagination"`
}

func (s *Server) handleStartChat(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req startChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New Chat"
	}

	chat := &persistence.Chat{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.chats.CreateChat(r.Context(), chat); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, startChatResponse{
		ChatID:    chat.ID,
		UserID:    chat.UserID,
		Title:     chat.Title,
		CreatedAt: chat.CreatedAt,
	})
}

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	chatID := chi.URLParam(r, "chatID")

	var req addMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "content and role are required")
		return
	}
	if req.Role != llm.RoleUser && req.Role != llm.RoleAssistant {
		writeError(w, http.StatusBadRequest, "role must be user or assistant")
		return
	}

	if _, ok := s.ownedChat(w, r, user.ID, chatID); !ok {
		return
	}
	history, err := s.chats.ListMessages(r.Context(), chatID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	userMsg := &persistence.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      req.Role,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.chats.AddMessage(r.Context(), userMsg); err != nil {
		writeAppError(w, r, err)
		return
	}

	resp := addMessageResponse{UserMessage: userMsg}
	if req.Role == llm.RoleUser && s.replier != nil {
		answer, err := s.replier.Reply(r.Context(), history, req.Content)
		if err != nil {
			log.Error("Chat %s: reply failed: %v", chatID, err)
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":             "failed to generate a reply",
				"user_message":      userMsg,
				"assistant_message": nil,
			})
			return
		}
		assistantMsg := &persistence.Message{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			Role:      llm.RoleAssistant,
			Content:   answer,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.chats.AddMessage(r.Context(), assistantMsg); err != nil {
			writeAppError(w, r, err)
			return
		}
		resp.AssistantMessage = assistantMsg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	chat, ok := s.ownedChat(w, r, user.ID, chi.URLParam(r, "chatID"))
	if !ok {
		return
	}
	messages, err := s.chats.ListMessages(r.Context(), chat.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Chat: chat, Messages: messages})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	chats, total, err := s.chats.ListChats(r.Context(), user.ID, chatsPerPage, (page-1)*chatsPerPage)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatListResponse{
		Chats: chats,
		Pagination: pagination{
			Page:       page,
			Limit:      chatsPerPage,
			Total:      total,
			TotalPages: (total + chatsPerPage - 1) / chatsPerPage,
		},
	})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	err := s.chats.DeleteChat(r.Context(), user.ID, chi.URLParam(r, "chatID"))
	if errors.Is(err, persistence.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Chat not found or access denied")
		return
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Chat and all messages deleted successfully",
	})
}

func (s *Server) ownedChat(w http.ResponseWriter, r *http.Request, userID, chatID string) (*persistence.Chat, bool) {
	chat, err := s.chats.GetChat(r.Context(), userID, chatID)
	if errors.Is(err, persistence.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Chat not found or access denied")
		return nil, false
	}
	if err != nil {
		writeAppError(w, r, err)
		return nil, false
	}
	return chat, true
}
