package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/conversation"
	"github.com/consilium-ai/consilium/internal/workflows"
)

// ConversationCreateRequest optionally seeds the thread with a first message.
type ConversationCreateRequest struct {
	Title          string `json:"title"`
	Mode           string `json:"mode"`
	InitialMessage string `json:"initial_message"`
}

func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "conversation store not available")
		return false
	}
	return true
}

func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req ConversationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = workflows.ModeCouncil
	}

	conv, err := h.store.Create(r.Context(), req.Title, mode)
	if err != nil {
		h.logger.Error("Failed to create conversation", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.InitialMessage != "" {
		conv, err = h.store.AppendMessage(r.Context(), conv.ID, conversation.Message{
			Role:    "user",
			Content: req.InitialMessage,
		})
		if err != nil {
			h.logger.Error("Failed to seed conversation", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	h.writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	summaries, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list conversations", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": summaries})
}

func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	conv, err := h.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, conversation.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get conversation", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	err := h.store.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, conversation.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete conversation", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted successfully"})
}

// handleConversationMessage appends the user question, runs the requested
// engine, and appends the structured result as the assistant turn.
func (h *Handler) handleConversationMessage(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateQuestion(req.Question); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Mode != workflows.ModeCouncil && req.Mode != workflows.ModeDxO {
		h.writeError(w, http.StatusBadRequest, "Invalid mode. Must be 'council' or 'dxo'")
		return
	}

	id := r.PathValue("id")
	_, err := h.store.AppendMessage(r.Context(), id, conversation.Message{
		Role:    "user",
		Content: req.Question,
		Metadata: map[string]interface{}{
			"mode": req.Mode,
		},
	})
	if errors.Is(err, conversation.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var answer string
	var data interface{}
	switch req.Mode {
	case workflows.ModeCouncil:
		result, err := h.runner.RunCouncil(r.Context(), workflows.DeliberationInput{
			Question:        req.Question,
			Members:         h.cfg.CouncilMembers,
			BaseTemperature: h.cfg.BaseTemperature,
		})
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "Council deliberation failed: "+err.Error())
			return
		}
		answer = result.Stage3.Content
		data = result
	case workflows.ModeDxO:
		result, err := h.runner.RunDxO(r.Context(), workflows.ResearchInput{Question: req.Question})
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "DxO research failed: "+err.Error())
			return
		}
		answer = result.Workflow[len(result.Workflow)-1].Content
		data = result
	}

	conv, err := h.store.AppendMessage(r.Context(), id, conversation.Message{
		Role:    "assistant",
		Content: answer,
		Metadata: map[string]interface{}{
			"mode": req.Mode,
			"data": data,
		},
	})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, conv)
}
