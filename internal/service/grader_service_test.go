package service

import (
	"answer_eval_backend/internal/config"
	"answer_eval_backend/internal/util"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGrader(t *testing.T, handler http.HandlerFunc) (*GraderService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.AIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	}
	return NewGraderService(cfg, 5*time.Second), srv
}

func completionBody(content string, promptTokens, completionTokens int) string {
	body := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestGraderServiceEvaluate(t *testing.T) {
	var captured chatCompletionRequest
	var capturedMethod, capturedPath, capturedAuth string

	grader, _ := newTestGrader(t, func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedPath = r.URL.Path
		capturedAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&captured)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(`[{"task_answer_id":"a1","correct":true}]`, 120, 30)))
	})

	preferred := "adaptation, communication"
	answers := []AnswerForEval{
		{TaskAnswerID: "a1", Answer: "being adaptable"},
	}

	result, err := grader.Evaluate(context.Background(), "Which skill matters most?", &preferred, answers)
	require.NoError(t, err)

	assert.Equal(t, `[{"task_answer_id":"a1","correct":true}]`, result.RawText)
	assert.Equal(t, 120, result.PromptTokens)
	assert.Equal(t, 30, result.CandidateTokens)
	assert.Equal(t, 150, result.TotalTokens)
	assert.Greater(t, result.Duration, time.Duration(0))

	assert.Equal(t, http.MethodPost, capturedMethod)
	assert.Equal(t, "/chat/completions", capturedPath)
	assert.Equal(t, "Bearer test-key", capturedAuth)

	// The wire contract: system instruction first, then the JSON payload.
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "test-model", captured.Model)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "task_answer_id")
	assert.Equal(t, "user", captured.Messages[1].Role)

	var payload evaluationPayload
	require.NoError(t, json.Unmarshal([]byte(captured.Messages[1].Content), &payload))
	assert.Equal(t, "Which skill matters most?", payload.Question)
	require.NotNil(t, payload.PreferredAnswer)
	assert.Equal(t, preferred, *payload.PreferredAnswer)
	require.Len(t, payload.Answers, 1)
	assert.Equal(t, "a1", payload.Answers[0].TaskAnswerID)
}

func TestGraderServiceOmitsPreferredAnswerWhenNil(t *testing.T) {
	var captured chatCompletionRequest
	grader, _ := newTestGrader(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(completionBody(`[]`, 1, 1)))
	})

	_, err := grader.Evaluate(context.Background(), "q", nil, []AnswerForEval{{TaskAnswerID: "a1", Answer: "x"}})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 2)
	assert.NotContains(t, captured.Messages[1].Content, "preferred_answer")
}

func TestGraderServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server_error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream exploded", http.StatusBadGateway)
			},
			wantErr: util.ErrGraderUnavailable,
		},
		{
			name: "auth_rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad key", http.StatusUnauthorized)
			},
			wantErr: util.ErrGraderUnavailable,
		},
		{
			name: "api_error_body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
			},
			wantErr: util.ErrGraderUnavailable,
		},
		{
			name: "no_choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			wantErr: util.ErrGraderEmptyResponse,
		},
		{
			name: "empty_content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(completionBody("", 5, 0)))
			},
			wantErr: util.ErrGraderEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grader, _ := newTestGrader(t, tt.handler)
			_, err := grader.Evaluate(context.Background(), "q", nil, []AnswerForEval{{TaskAnswerID: "a1", Answer: "x"}})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGraderServiceUnreachableEndpoint(t *testing.T) {
	cfg := config.AIConfig{BaseURL: "http://127.0.0.1:1", Model: "m"}
	grader := NewGraderService(cfg, time.Second)

	_, err := grader.Evaluate(context.Background(), "q", nil, []AnswerForEval{{TaskAnswerID: "a1", Answer: "x"}})
	require.ErrorIs(t, err, util.ErrGraderUnavailable)
}
