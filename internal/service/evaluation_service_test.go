package service

import (
	"answer_eval_backend/internal/model"
	"answer_eval_backend/internal/util"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeQuestion(answerCount int) *model.Question {
	q := &model.Question{
		QuestionText: "What is the most important skill to learn today?",
	}
	q.ID = "q1"
	for i := 0; i < answerCount; i++ {
		ans := model.TaskAnswer{
			QuestionID: q.ID,
			Answer:     fmt.Sprintf("answer text %d", i),
		}
		ans.ID = fmt.Sprintf("a%d", i)
		q.TaskAnswers = append(q.TaskAnswers, ans)
	}
	return q
}

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name      string
		answers   int
		chunkSize int
		wantSizes []int
	}{
		{name: "even_split", answers: 20, chunkSize: 10, wantSizes: []int{10, 10}},
		{name: "short_final_chunk", answers: 12, chunkSize: 10, wantSizes: []int{10, 2}},
		{name: "single_chunk", answers: 3, chunkSize: 10, wantSizes: []int{3}},
		{name: "chunk_size_one", answers: 3, chunkSize: 1, wantSizes: []int{1, 1, 1}},
		{name: "no_answers", answers: 0, chunkSize: 10, wantSizes: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := makeQuestion(tt.answers)
			chunks, err := splitChunks(q, q.TaskAnswers, tt.chunkSize)
			require.NoError(t, err)
			require.Len(t, chunks, len(tt.wantSizes))

			// Concatenating the chunks must reproduce the input exactly.
			var flattened []string
			for i, chunk := range chunks {
				assert.Len(t, chunk.answers, tt.wantSizes[i])
				assert.Equal(t, q.QuestionText, chunk.questionText)
				for _, a := range chunk.answers {
					flattened = append(flattened, a.TaskAnswerID)
				}
			}
			require.Len(t, flattened, tt.answers)
			for i, id := range flattened {
				assert.Equal(t, q.TaskAnswers[i].ID, id)
			}
		})
	}
}

func TestSplitChunksInvalidSize(t *testing.T) {
	q := makeQuestion(3)
	for _, size := range []int{0, -1} {
		_, err := splitChunks(q, q.TaskAnswers, size)
		require.ErrorIs(t, err, util.ErrInvalidChunkSize)
	}
}

// fakeGrader returns scripted results per call, in order.
type fakeGrader struct {
	calls   int
	results []*GraderResult
	errs    []error
}

func (f *fakeGrader) Evaluate(ctx context.Context, questionText string, preferredAnswer *string, answers []AnswerForEval) (*GraderResult, error) {
	i := f.calls
	f.calls++
	if f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.results[i], nil
}

func verdictJSON(answers []string, correct bool) string {
	out := "["
	for i, id := range answers {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"task_answer_id":%q,"correct":%t}`, id, correct)
	}
	return out + "]"
}

func TestEvaluateQuestionMergesChunks(t *testing.T) {
	q := makeQuestion(12)

	grader := &fakeGrader{
		results: []*GraderResult{
			{
				RawText:         verdictJSON([]string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9"}, true),
				PromptTokens:    100,
				CandidateTokens: 40,
				TotalTokens:     140,
				Duration:        2 * time.Second,
			},
			{
				RawText:         verdictJSON([]string{"a10", "a11"}, false),
				PromptTokens:    30,
				CandidateTokens: 10,
				TotalTokens:     40,
				Duration:        time.Second,
			},
		},
		errs: []error{nil, nil},
	}

	svc := NewEvaluationService(grader, 10)
	result, err := svc.EvaluateQuestion(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 2, grader.calls)
	assert.Len(t, result.Verdicts, 12)
	assert.True(t, result.Verdicts["a0"])
	assert.False(t, result.Verdicts["a11"])
	assert.Equal(t, 130, result.PromptTokens)
	assert.Equal(t, 50, result.CandidateTokens)
	assert.Equal(t, 180, result.TotalTokens)
	assert.Equal(t, 3*time.Second, result.Duration)
}

func TestEvaluateQuestionSkipsFailedChunk(t *testing.T) {
	// Chunk 1 succeeds, chunk 2's raw response is unparseable: the result must
	// contain only chunk 1's verdicts and token counts, leaving a10/a11 alone.
	q := makeQuestion(12)

	grader := &fakeGrader{
		results: []*GraderResult{
			{
				RawText:         verdictJSON([]string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9"}, true),
				PromptTokens:    100,
				CandidateTokens: 40,
				TotalTokens:     140,
				Duration:        2 * time.Second,
			},
			{RawText: "sorry, I can't do that"},
		},
		errs: []error{nil, nil},
	}

	svc := NewEvaluationService(grader, 10)
	result, err := svc.EvaluateQuestion(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, result.Verdicts, 10)
	assert.NotContains(t, result.Verdicts, "a10")
	assert.NotContains(t, result.Verdicts, "a11")
	assert.Equal(t, 140, result.TotalTokens)
	assert.Equal(t, 2*time.Second, result.Duration)
}

func TestEvaluateQuestionGraderErrorIsolation(t *testing.T) {
	q := makeQuestion(12)

	grader := &fakeGrader{
		results: []*GraderResult{
			nil,
			{
				RawText:      verdictJSON([]string{"a10", "a11"}, true),
				PromptTokens: 30,
				TotalTokens:  40,
			},
		},
		errs: []error{util.ErrGraderUnavailable, nil},
	}

	svc := NewEvaluationService(grader, 10)
	result, err := svc.EvaluateQuestion(context.Background(), q)
	require.NoError(t, err)

	// Only the surviving chunk contributes verdicts and tokens.
	assert.Len(t, result.Verdicts, 2)
	assert.Equal(t, 30, result.PromptTokens)
	assert.Equal(t, 40, result.TotalTokens)
}

func TestEvaluateQuestionAllChunksFail(t *testing.T) {
	q := makeQuestion(12)

	grader := &fakeGrader{
		results: []*GraderResult{nil, nil},
		errs:    []error{util.ErrGraderUnavailable, util.ErrGraderEmptyResponse},
	}

	svc := NewEvaluationService(grader, 10)
	_, err := svc.EvaluateQuestion(context.Background(), q)
	require.ErrorIs(t, err, util.ErrEvaluationFailed)
}

func TestEvaluateQuestionDropsStrayIDs(t *testing.T) {
	q := makeQuestion(2)

	grader := &fakeGrader{
		results: []*GraderResult{
			{RawText: verdictJSON([]string{"a0", "a1", "intruder"}, true), TotalTokens: 10},
		},
		errs: []error{nil},
	}

	svc := NewEvaluationService(grader, 10)
	result, err := svc.EvaluateQuestion(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, result.Verdicts, 2)
	assert.NotContains(t, result.Verdicts, "intruder")
}
