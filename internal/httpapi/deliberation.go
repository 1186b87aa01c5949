package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/auth"
	"github.com/consilium-ai/consilium/internal/formatting"
	"github.com/consilium-ai/consilium/internal/metrics"
	"github.com/consilium-ai/consilium/internal/workflows"
)

const (
	minQuestionLen = 10
	maxQuestionLen = 1000
)

// ResearchRequest is the request body for both deliberation endpoints.
type ResearchRequest struct {
	Question string `json:"question"`
	Mode     string `json:"mode"`
}

// CouncilResponse wraps a council result with a timestamp.
type CouncilResponse struct {
	*workflows.DeliberationResult
	Timestamp time.Time `json:"timestamp"`
}

// DxOResponse wraps a research result with a timestamp.
type DxOResponse struct {
	*workflows.ResearchResult
	Timestamp time.Time `json:"timestamp"`
}

// requestFields builds the request log fields, attaching the authenticated
// client when the route ran behind the bearer middleware.
func requestFields(r *http.Request, question string) []zap.Field {
	fields := []zap.Field{zap.String("question", truncate(question, 100))}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		fields = append(fields, zap.String("client_id", claims.ClientID))
	}
	return fields
}

func validateQuestion(question string) error {
	n := len([]rune(question))
	if n < minQuestionLen {
		return fmt.Errorf("question must be at least %d characters", minQuestionLen)
	}
	if n > maxQuestionLen {
		return fmt.Errorf("question must be at most %d characters", maxQuestionLen)
	}
	return nil
}

func (h *Handler) handleCouncil(w http.ResponseWriter, r *http.Request) {
	var req ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateQuestion(req.Question); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.logger.Info("Council request", requestFields(r, req.Question)...)
	metrics.DeliberationsStarted.WithLabelValues(workflows.ModeCouncil).Inc()

	result, err := h.runner.RunCouncil(r.Context(), workflows.DeliberationInput{
		Question:        req.Question,
		Members:         h.cfg.CouncilMembers,
		BaseTemperature: h.cfg.BaseTemperature,
	})
	if err != nil {
		metrics.DeliberationsCompleted.WithLabelValues(workflows.ModeCouncil, "error").Inc()
		h.logger.Error("Council deliberation failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Council deliberation failed: "+err.Error())
		return
	}
	metrics.DeliberationsCompleted.WithLabelValues(workflows.ModeCouncil, "success").Inc()

	h.writeJSON(w, http.StatusOK, CouncilResponse{
		DeliberationResult: result,
		Timestamp:          time.Now().UTC(),
	})
}

func (h *Handler) handleDxO(w http.ResponseWriter, r *http.Request) {
	var req ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateQuestion(req.Question); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.logger.Info("DxO request", requestFields(r, req.Question)...)
	metrics.DeliberationsStarted.WithLabelValues(workflows.ModeDxO).Inc()

	result, err := h.runner.RunDxO(r.Context(), workflows.ResearchInput{Question: req.Question})
	if err != nil {
		metrics.DeliberationsCompleted.WithLabelValues(workflows.ModeDxO, "error").Inc()
		h.logger.Error("DxO research failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "DxO research failed: "+err.Error())
		return
	}
	metrics.DeliberationsCompleted.WithLabelValues(workflows.ModeDxO, "success").Inc()

	h.writeJSON(w, http.StatusOK, DxOResponse{
		ResearchResult: result,
		Timestamp:      time.Now().UTC(),
	})
}

// AgentInvocationRequest is the agent-runtime invocation contract.
type AgentInvocationRequest struct {
	Input struct {
		Mode   string `json:"mode"`
		Prompt string `json:"prompt"`
	} `json:"input"`
}

// AgentInvocationResponse flattens the deliberation into one text block.
type AgentInvocationResponse struct {
	Output struct {
		Message struct {
			Role    string              `json:"role"`
			Content []map[string]string `json:"content"`
		} `json:"message"`
		Timestamp string `json:"timestamp"`
	} `json:"output"`
}

func (h *Handler) handleInvocations(w http.ResponseWriter, r *http.Request) {
	var req AgentInvocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode := strings.ToLower(req.Input.Mode)
	if mode == "" {
		mode = workflows.ModeCouncil
	}
	h.logger.Info("Agent invocation",
		zap.String("mode", mode),
		zap.String("prompt", truncate(req.Input.Prompt, 100)),
	)

	var text string
	switch mode {
	case workflows.ModeCouncil:
		result, err := h.runner.RunCouncil(r.Context(), workflows.DeliberationInput{
			Question:        req.Input.Prompt,
			Members:         h.cfg.CouncilMembers,
			BaseTemperature: h.cfg.BaseTemperature,
		})
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "Invocation failed: "+err.Error())
			return
		}
		text = formatting.CouncilReport(result)
	case workflows.ModeDxO:
		result, err := h.runner.RunDxO(r.Context(), workflows.ResearchInput{Question: req.Input.Prompt})
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "Invocation failed: "+err.Error())
			return
		}
		text = formatting.ResearchReport(result)
	default:
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid mode '%s'. Must be 'council' or 'dxo'", mode))
		return
	}

	var resp AgentInvocationResponse
	resp.Output.Message.Role = "assistant"
	resp.Output.Message.Content = []map[string]string{{"text": text}}
	resp.Output.Timestamp = time.Now().UTC().Format(time.RFC3339)
	h.writeJSON(w, http.StatusOK, resp)
}

// HealthResponse reports service identity alongside liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Region    string    `json:"aws_region"`
	Model     string    `json:"bedrock_model"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Region:    h.cfg.Region,
		Model:     h.cfg.ModelID,
	})
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":        "healthy",
		"service":       "consilium-orchestrator",
		"aws_region":    h.cfg.Region,
		"bedrock_model": h.cfg.ModelID,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
