package service

import (
	"answer_eval_backend/internal/model"
	"answer_eval_backend/internal/util"
	"answer_eval_backend/pkg/logger"
	"answer_eval_backend/pkg/monitoring"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// evaluationChunk is one grader-call-sized slice of a question's answers,
// carrying the question context it will be graded against.
type evaluationChunk struct {
	questionText    string
	preferredAnswer *string
	answers         []AnswerForEval
}

// splitChunks partitions answers into chunks of at most size, preserving
// order; the final chunk may be shorter. No answer is duplicated or dropped.
func splitChunks(q *model.Question, answers []model.TaskAnswer, size int) ([]evaluationChunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", util.ErrInvalidChunkSize, size)
	}

	chunks := make([]evaluationChunk, 0, (len(answers)+size-1)/size)
	for start := 0; start < len(answers); start += size {
		end := start + size
		if end > len(answers) {
			end = len(answers)
		}

		batch := make([]AnswerForEval, 0, end-start)
		for _, ans := range answers[start:end] {
			batch = append(batch, AnswerForEval{
				TaskAnswerID: ans.ID,
				Answer:       ans.Answer,
			})
		}

		chunks = append(chunks, evaluationChunk{
			questionText:    q.QuestionText,
			preferredAnswer: q.PreferredAnswer,
			answers:         batch,
		})
	}
	return chunks, nil
}

// AggregatedResult is the merged outcome of evaluating one question across
// all of its chunks.
type AggregatedResult struct {
	Verdicts        map[string]bool
	Duration        time.Duration
	PromptTokens    int
	CandidateTokens int
	TotalTokens     int
}

// EvaluationService drives the per-question chunk loop: one grader call and
// one parse per chunk, merging whatever succeeds.
type EvaluationService struct {
	grader    Grader
	chunkSize int
}

func NewEvaluationService(grader Grader, chunkSize int) *EvaluationService {
	return &EvaluationService{grader: grader, chunkSize: chunkSize}
}

// EvaluateQuestion evaluates every answer of q chunk by chunk, strictly in
// order. A failing chunk (grader error or unparseable reply) is logged and
// skipped; its answers simply stay ungraded. Verdicts whose id does not belong
// to the requesting chunk are dropped, since the grader is not trusted to echo
// ids back faithfully. If no chunk yields a verdict the whole question fails
// with ErrEvaluationFailed.
func (s *EvaluationService) EvaluateQuestion(ctx context.Context, q *model.Question) (*AggregatedResult, error) {
	chunks, err := splitChunks(q, q.TaskAnswers, s.chunkSize)
	if err != nil {
		return nil, err
	}

	result := &AggregatedResult{Verdicts: make(map[string]bool)}

	for i, chunk := range chunks {
		graderResult, err := s.grader.Evaluate(ctx, chunk.questionText, chunk.preferredAnswer, chunk.answers)
		if err != nil {
			monitoring.GraderRequests.WithLabelValues(graderOutcome(err)).Inc()
			logger.Log.Warn("grader call failed, skipping chunk",
				zap.String("question_id", q.ID),
				zap.Int("chunk", i),
				zap.Error(err))
			continue
		}

		verdicts, err := parseVerdicts(graderResult.RawText)
		if err != nil {
			monitoring.GraderRequests.WithLabelValues("malformed").Inc()
			logger.Log.Warn("unparseable grader output, skipping chunk",
				zap.String("question_id", q.ID),
				zap.Int("chunk", i),
				zap.Error(err))
			continue
		}

		monitoring.GraderRequests.WithLabelValues("success").Inc()

		requested := make(map[string]bool, len(chunk.answers))
		for _, a := range chunk.answers {
			requested[a.TaskAnswerID] = true
		}
		for id, correct := range verdicts {
			if !requested[id] {
				logger.Log.Warn("grader returned verdict for unknown answer id, dropping",
					zap.String("question_id", q.ID),
					zap.String("task_answer_id", id))
				continue
			}
			result.Verdicts[id] = correct
		}

		result.Duration += graderResult.Duration
		result.PromptTokens += graderResult.PromptTokens
		result.CandidateTokens += graderResult.CandidateTokens
		result.TotalTokens += graderResult.TotalTokens

		monitoring.GraderTokens.WithLabelValues("prompt").Add(float64(graderResult.PromptTokens))
		monitoring.GraderTokens.WithLabelValues("candidates").Add(float64(graderResult.CandidateTokens))
	}

	if len(result.Verdicts) == 0 {
		return nil, fmt.Errorf("%w: question %s", util.ErrEvaluationFailed, q.ID)
	}

	return result, nil
}

func graderOutcome(err error) string {
	switch {
	case errors.Is(err, util.ErrGraderEmptyResponse):
		return "empty"
	case errors.Is(err, util.ErrGraderUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
