// Package httpapi exposes the deliberation engines over REST plus a WebSocket
// progress stream: /api/council and /api/dxo run a full deliberation,
// /api/conversations manages threads, and /invocations serves the
// single-text agent-runtime contract.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/auth"
	"github.com/consilium-ai/consilium/internal/conversation"
	"github.com/consilium-ai/consilium/internal/streaming"
	"github.com/consilium-ai/consilium/internal/workflows"
)

// Runner executes deliberations on the workflow engine.
type Runner interface {
	RunCouncil(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error)
	RunDxO(ctx context.Context, input workflows.ResearchInput) (*workflows.ResearchResult, error)
}

// ConversationStore is the conversation persistence the API depends on.
type ConversationStore interface {
	Create(ctx context.Context, title, mode string) (*conversation.Conversation, error)
	Get(ctx context.Context, id string) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, id string, msg conversation.Message) (*conversation.Conversation, error)
	List(ctx context.Context) ([]conversation.Summary, error)
	Delete(ctx context.Context, id string) error
}

// Config carries the handler's deliberation defaults and identity info.
type Config struct {
	CouncilMembers  int
	BaseTemperature float64
	ModelID         string
	Region          string
}

// Handler serves the public API.
type Handler struct {
	runner  Runner
	store   ConversationStore
	streams *streaming.Manager
	jwt     *auth.JWTManager
	authOn  bool
	cfg     Config
	logger  *zap.Logger
}

// NewHandler builds the API handler. store may be nil; conversation routes
// then answer 503.
func NewHandler(runner Runner, store ConversationStore, streams *streaming.Manager, jwt *auth.JWTManager, authEnabled bool, cfg Config, logger *zap.Logger) *Handler {
	return &Handler{
		runner:  runner,
		store:   store,
		streams: streams,
		jwt:     jwt,
		authOn:  authEnabled,
		cfg:     cfg,
		logger:  logger,
	}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	protect := auth.Middleware(h.jwt, h.authOn, h.logger)

	mux.Handle("POST /api/council", protect(http.HandlerFunc(h.handleCouncil)))
	mux.Handle("POST /api/dxo", protect(http.HandlerFunc(h.handleDxO)))

	mux.Handle("POST /api/conversations", protect(http.HandlerFunc(h.handleCreateConversation)))
	mux.Handle("GET /api/conversations", protect(http.HandlerFunc(h.handleListConversations)))
	mux.Handle("GET /api/conversations/{id}", protect(http.HandlerFunc(h.handleGetConversation)))
	mux.Handle("DELETE /api/conversations/{id}", protect(http.HandlerFunc(h.handleDeleteConversation)))
	mux.Handle("POST /api/conversations/{id}/message", protect(http.HandlerFunc(h.handleConversationMessage)))

	// Agent-runtime contract endpoints stay unauthenticated; the runtime
	// fronts them with its own access control.
	mux.HandleFunc("POST /invocations", h.handleInvocations)
	mux.HandleFunc("GET /ping", h.handlePing)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /stream/ws", h.handleWS)

	if h.jwt != nil {
		mux.HandleFunc("POST /auth/token", h.handleToken)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}
