package service

import (
	"answer_eval_backend/internal/config"
	"answer_eval_backend/internal/util"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// gradingInstruction is the fixed system prompt. The grader must answer with a
// JSON array of {task_answer_id, correct} covering every input id.
const gradingInstruction = `You are a highly intelligent AI model. Your task is to evaluate if the given answer to a question is correct or not. Return the result in JSON format as described below.
Input Payload:
{
"question": "The original question that needs to be evaluated",
"preferred_answer": "A preferred answer given by the user as reference",
"answers": [
  {
  "task_answer_id": "unique identifier for this answer",
  "answer": "the text of the provided answer"
  }
]
}

Desired Output:
For each provided answer, determine if it correctly addresses the question. Return the result in the following JSON format:
[
{
  "task_answer_id": "unique identifier for this answer",
  "correct": true
}
]

Instructions:
Analyse the provided question and each corresponding answer.
For each answer, decide if it correctly answers the question.
Respond with a JSON array of objects, where each object contains:
task_answer_id: The identifier for the answer being evaluated.
correct: A boolean indicating whether the answer is correct (true) or incorrect (false).`

// AnswerForEval is one (id, text) pair of the grader payload.
type AnswerForEval struct {
	TaskAnswerID string `json:"task_answer_id"`
	Answer       string `json:"answer"`
}

type evaluationPayload struct {
	Question        string          `json:"question"`
	PreferredAnswer *string         `json:"preferred_answer,omitempty"`
	Answers         []AnswerForEval `json:"answers"`
}

// GraderResult carries the raw model text plus usage counters for one call.
type GraderResult struct {
	RawText         string
	PromptTokens    int
	CandidateTokens int
	TotalTokens     int
	Duration        time.Duration
}

// Grader issues one grading call per chunk of answers. Satisfied by
// GraderService; tests substitute a canned implementation.
type Grader interface {
	Evaluate(ctx context.Context, questionText string, preferredAnswer *string, answers []AnswerForEval) (*GraderResult, error)
}

type GraderService struct {
	config config.AIConfig
	client *http.Client
}

var _ Grader = (*GraderService)(nil)

func NewGraderService(cfg config.AIConfig, timeout time.Duration) *GraderService {
	return &GraderService{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Evaluate sends one chunk to the grading model and returns its raw reply and
// token usage. It does not inspect the reply beyond checking it is non-empty;
// parsing belongs to the caller.
func (s *GraderService) Evaluate(ctx context.Context, questionText string, preferredAnswer *string, answers []AnswerForEval) (*GraderResult, error) {
	payload := evaluationPayload{
		Question:        questionText,
		PreferredAnswer: preferredAnswer,
		Answers:         answers,
	}

	payloadJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation payload: %w", err)
	}

	reqBody := chatCompletionRequest{
		Model: s.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: gradingInstruction},
			{Role: "user", Content: string(payloadJSON)},
		},
		Temperature: 0.2,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGraderUnavailable, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGraderUnavailable, err)
	}
	defer resp.Body.Close()
	duration := time.Since(start)

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", util.ErrGraderUnavailable, resp.StatusCode, string(body))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGraderUnavailable, err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %s", util.ErrGraderUnavailable, result.Error.Message)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, util.ErrGraderEmptyResponse
	}

	return &GraderResult{
		RawText:         result.Choices[0].Message.Content,
		PromptTokens:    result.Usage.PromptTokens,
		CandidateTokens: result.Usage.CompletionTokens,
		TotalTokens:     result.Usage.TotalTokens,
		Duration:        duration,
	}, nil
}
