package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/parleyhq/parley/internal/chat"
)

// maxUploadBytes bounds multipart request memory and upload size.
const maxUploadBytes = 32 << 20

// ChatService is what the handlers need from the orchestrator.
// Implemented by chat.Service.
type ChatService interface {
	HandleChat(ctx context.Context, msg, systemPrompt, sessionID string) (string, error)
	HandleChatWithImage(ctx context.Context, msg, systemPrompt, sessionID string, upload chat.Upload) (string, error)
	HandleChatWithFile(ctx context.Context, msg, systemPrompt, sessionID string, upload chat.Upload) (string, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// ChatHandler handles the chat endpoints.
type ChatHandler struct {
	service ChatService
	logger  *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(service ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /llm_chat/chat", h.handleChat)
	mux.HandleFunc("POST /llm_chat/chat_with_image", h.handleChatWithImage)
	mux.HandleFunc("POST /llm_chat/chat_with_file", h.handleChatWithFile)
	mux.HandleFunc("POST /llm_chat/clear", h.handleClear)
}

// ChatRequest is the JSON body of a plain chat turn.
type ChatRequest struct {
	Message      string `json:"message"`
	SystemPrompt string `json:"system_prompt"`
	SessionID    string `json:"session_id"`
}

// ChatResponse is the JSON body of a completed turn.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing message or session_id in request body")
		return
	}

	answer, err := h.service.HandleChat(r.Context(), req.Message, req.SystemPrompt, req.SessionID)
	if err != nil {
		h.writeServiceError(w, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: answer, SessionID: req.SessionID})
}

func (h *ChatHandler) handleChatWithImage(w http.ResponseWriter, r *http.Request) {
	msg, sessionID, systemPrompt, upload, closeFn, ok := h.parseUpload(w, r, "image")
	if !ok {
		return
	}
	defer closeFn()

	answer, err := h.service.HandleChatWithImage(r.Context(), msg, systemPrompt, sessionID, upload)
	if err != nil {
		h.writeServiceError(w, "chat_with_image", err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: answer, SessionID: sessionID})
}

func (h *ChatHandler) handleChatWithFile(w http.ResponseWriter, r *http.Request) {
	msg, sessionID, systemPrompt, upload, closeFn, ok := h.parseUpload(w, r, "file")
	if !ok {
		return
	}
	defer closeFn()

	answer, err := h.service.HandleChatWithFile(r.Context(), msg, systemPrompt, sessionID, upload)
	if err != nil {
		h.writeServiceError(w, "chat_with_file", err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: answer, SessionID: sessionID})
}

// ClearRequest is the JSON body of a clear call.
type ClearRequest struct {
	SessionID string `json:"session_id"`
}

func (h *ChatHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session_id in request body")
		return
	}

	if err := h.service.ClearSession(r.Context(), req.SessionID); err != nil {
		h.writeServiceError(w, "clear", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Chat history and associated vector data for session %s cleared successfully.", req.SessionID),
	})
}

// parseUpload extracts the common multipart fields. On failure it writes the
// error response and returns ok=false. closeFn releases the upload stream.
func (h *ChatHandler) parseUpload(w http.ResponseWriter, r *http.Request, field string) (msg, sessionID, systemPrompt string, upload chat.Upload, closeFn func(), ok bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %s file or message text", field))
		return
	}

	msg = r.FormValue("message")
	sessionID = r.FormValue("session_id")
	systemPrompt = r.FormValue("system_prompt")
	if msg == "" || sessionID == "" {
		file.Close()
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %s file or message text", field))
		return
	}

	closeFn = func() { file.Close() }
	return msg, sessionID, systemPrompt, chat.Upload{FileName: header.Filename, Content: file}, closeFn, true
}

// writeServiceError maps service errors to HTTP statuses. Internal failures
// get a generic message; details stay in the log.
func (h *ChatHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrUnsupportedFileType):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to process %s request", op))
	}
}
