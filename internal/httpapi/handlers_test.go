package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/consilium-ai/consilium/internal/auth"
	"github.com/consilium-ai/consilium/internal/conversation"
	"github.com/consilium-ai/consilium/internal/streaming"
	"github.com/consilium-ai/consilium/internal/workflows"
)

type fakeRunner struct {
	council func(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error)
	dxo     func(ctx context.Context, input workflows.ResearchInput) (*workflows.ResearchResult, error)
}

func (f *fakeRunner) RunCouncil(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error) {
	return f.council(ctx, input)
}

func (f *fakeRunner) RunDxO(ctx context.Context, input workflows.ResearchInput) (*workflows.ResearchResult, error) {
	return f.dxo(ctx, input)
}

func councilResult(question string) *workflows.DeliberationResult {
	return &workflows.DeliberationResult{
		Question: question,
		Stage1:   []workflows.MemberResponse{{MemberID: "Member 1", Content: "first"}},
		Stage3:   workflows.SynthesisRecord{Content: "council answer"},
	}
}

func dxoResult(question string) *workflows.ResearchResult {
	return &workflows.ResearchResult{
		Question: question,
		Workflow: []workflows.StepRecord{
			{Role: "Lead Researcher", Step: "Initial Research", Content: "findings"},
			{Role: "Lead Researcher", Step: "Final Synthesis", Content: "dxo report"},
		},
		Metadata: workflows.ResearchMetadata{PapersFound: 2, TotalSteps: 4},
	}
}

func newTestMux(t *testing.T, runner Runner, store ConversationStore) *http.ServeMux {
	t.Helper()
	h := NewHandler(runner, store, streaming.Get(), nil, false, Config{
		CouncilMembers:  3,
		BaseTemperature: 0.7,
		ModelID:         "test-model",
		Region:          "us-east-1",
	}, zaptest.NewLogger(t))
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

const validQuestion = "What are the key challenges in quantum computing?"

func TestCouncilEndpoint(t *testing.T) {
	var gotInput workflows.DeliberationInput
	runner := &fakeRunner{
		council: func(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error) {
			gotInput = input
			return councilResult(input.Question), nil
		},
	}
	mux := newTestMux(t, runner, nil)

	rec := postJSON(t, mux, "/api/council", ResearchRequest{Question: validQuestion, Mode: "council"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 3, gotInput.Members)
	assert.InDelta(t, 0.7, gotInput.BaseTemperature, 1e-9)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, validQuestion, resp["question"])
	assert.NotEmpty(t, resp["timestamp"])
	stage3 := resp["stage3"].(map[string]interface{})
	assert.Equal(t, "council answer", stage3["content"])
}

func TestCouncilEndpointValidatesQuestion(t *testing.T) {
	runner := &fakeRunner{
		council: func(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error) {
			t.Fatal("runner must not be called")
			return nil, nil
		},
	}
	mux := newTestMux(t, runner, nil)

	rec := postJSON(t, mux, "/api/council", ResearchRequest{Question: "too short"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = postJSON(t, mux, "/api/council", ResearchRequest{Question: strings.Repeat("x", 1001)})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCouncilEndpointReportsFailure(t *testing.T) {
	runner := &fakeRunner{
		council: func(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error) {
			return nil, fmt.Errorf("no responses collected in stage 1")
		},
	}
	mux := newTestMux(t, runner, nil)

	rec := postJSON(t, mux, "/api/council", ResearchRequest{Question: validQuestion})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Council deliberation failed")
}

func TestDxOEndpoint(t *testing.T) {
	runner := &fakeRunner{
		dxo: func(ctx context.Context, input workflows.ResearchInput) (*workflows.ResearchResult, error) {
			return dxoResult(input.Question), nil
		},
	}
	mux := newTestMux(t, runner, nil)

	rec := postJSON(t, mux, "/api/dxo", ResearchRequest{Question: validQuestion, Mode: "dxo"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	steps := resp["workflow"].([]interface{})
	require.Len(t, steps, 2)
	meta := resp["metadata"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["papers_found"])
}

func TestInvocationsEndpoint(t *testing.T) {
	runner := &fakeRunner{
		council: func(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error) {
			return councilResult(input.Question), nil
		},
		dxo: func(ctx context.Context, input workflows.ResearchInput) (*workflows.ResearchResult, error) {
			return dxoResult(input.Question), nil
		},
	}
	mux := newTestMux(t, runner, nil)

	t.Run("council", func(t *testing.T) {
		body := map[string]interface{}{"input": map[string]string{"mode": "council", "prompt": validQuestion}}
		rec := postJSON(t, mux, "/invocations", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AgentInvocationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "assistant", resp.Output.Message.Role)
		require.Len(t, resp.Output.Message.Content, 1)
		text := resp.Output.Message.Content[0]["text"]
		assert.Contains(t, text, "# LLM Council Deliberation Results")
		assert.Contains(t, text, "council answer")
	})

	t.Run("dxo", func(t *testing.T) {
		body := map[string]interface{}{"input": map[string]string{"mode": "dxo", "prompt": validQuestion}}
		rec := postJSON(t, mux, "/invocations", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "DxO Decision Framework Results")
	})

	t.Run("invalid mode", func(t *testing.T) {
		body := map[string]interface{}{"input": map[string]string{"mode": "oracle", "prompt": validQuestion}}
		rec := postJSON(t, mux, "/invocations", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthAndPing(t *testing.T) {
	mux := newTestMux(t, &fakeRunner{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), "test-model")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "consilium-orchestrator")
}

func newTestStore(t *testing.T) *conversation.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := conversation.NewStore(mr.Addr(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConversationLifecycle(t *testing.T) {
	runner := &fakeRunner{
		council: func(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error) {
			return councilResult(input.Question), nil
		},
	}
	mux := newTestMux(t, runner, newTestStore(t))

	// Create with an initial message.
	rec := postJSON(t, mux, "/api/conversations", ConversationCreateRequest{
		Title:          "Quantum",
		Mode:           "council",
		InitialMessage: "seed message",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var conv conversation.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	require.NotEmpty(t, conv.ID)
	require.Len(t, conv.Messages, 1)

	// Ask a question in the thread.
	rec = postJSON(t, mux, "/api/conversations/"+conv.ID+"/message", ResearchRequest{
		Question: validQuestion,
		Mode:     "council",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "user", conv.Messages[1].Role)
	assert.Equal(t, "assistant", conv.Messages[2].Role)
	assert.Equal(t, "council answer", conv.Messages[2].Content)

	// List shows the thread.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Conversations []conversation.Summary `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Conversations, 1)
	assert.Equal(t, 3, listing.Conversations[0].MessageCount)

	// Get and delete.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/"+conv.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/conversations/"+conv.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/"+conv.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversationMessageRejectsBadMode(t *testing.T) {
	mux := newTestMux(t, &fakeRunner{}, newTestStore(t))

	rec := postJSON(t, mux, "/api/conversations", ConversationCreateRequest{Mode: "council"})
	require.Equal(t, http.StatusOK, rec.Code)
	var conv conversation.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	rec = postJSON(t, mux, "/api/conversations/"+conv.ID+"/message", ResearchRequest{
		Question: validQuestion,
		Mode:     "oracle",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationMessageMissingThread(t *testing.T) {
	mux := newTestMux(t, &fakeRunner{}, newTestStore(t))

	rec := postJSON(t, mux, "/api/conversations/missing/message", ResearchRequest{
		Question: validQuestion,
		Mode:     "council",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokenEndpoint(t *testing.T) {
	jwt := auth.NewJWTManager("key", time.Hour, map[string]string{"frontend": "secret"})
	h := NewHandler(&fakeRunner{}, nil, streaming.Get(), jwt, true, Config{}, zaptest.NewLogger(t))
	mux := http.NewServeMux()
	h.Register(mux)

	rec := postJSON(t, mux, "/auth/token", TokenRequest{ClientID: "frontend", ClientSecret: "secret", GrantType: "client_credentials"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_token")

	rec = postJSON(t, mux, "/auth/token", TokenRequest{ClientID: "frontend", ClientSecret: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Protected route rejects unauthenticated calls when auth is on.
	rec = postJSON(t, mux, "/api/council", ResearchRequest{Question: validQuestion})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCouncilEndpointLogsAuthenticatedClient(t *testing.T) {
	jwt := auth.NewJWTManager("key", time.Hour, map[string]string{"frontend": "secret"})
	core, logs := observer.New(zap.InfoLevel)
	runner := &fakeRunner{
		council: func(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error) {
			return councilResult(input.Question), nil
		},
	}
	h := NewHandler(runner, nil, streaming.Get(), jwt, true, Config{CouncilMembers: 3, BaseTemperature: 0.7}, zap.New(core))
	mux := http.NewServeMux()
	h.Register(mux)

	token, err := jwt.ExchangeCredentials("frontend", "secret")
	require.NoError(t, err)

	payload, err := json.Marshal(ResearchRequest{Question: validQuestion})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/council", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("Council request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "frontend", entries[0].ContextMap()["client_id"])
}
