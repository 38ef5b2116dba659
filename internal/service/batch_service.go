package service

import (
	"answer_eval_backend/internal/model"
	"answer_eval_backend/internal/util"
	"answer_eval_backend/pkg/logger"
	"answer_eval_backend/pkg/monitoring"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Per-question lifecycle inside one batch run.
type questionState string

const (
	stateSubmitted questionState = "submitted"
	stateCompleted questionState = "completed"
	stateSkipped   questionState = "skipped"
	stateFailed    questionState = "failed"
)

// EvaluationStore is the slice of the repository the runner needs.
type EvaluationStore interface {
	FindQuestionsWithAnswers(subjectID *string) ([]model.Question, error)
	UpdateAnswerStatus(answerID string, correct bool) error
	CreateRequestLog(entry *model.RequestLog) error
	FindEvaluatedAnswers() ([]model.TaskAnswer, error)
	FindRequestLogs() ([]model.RequestLog, error)
	SubjectExists(subjectID string) (bool, error)
}

type questionEvaluator interface {
	EvaluateQuestion(ctx context.Context, q *model.Question) (*AggregatedResult, error)
}

// RunSummary is the tally of one batch run, archived by the report service.
type RunSummary struct {
	SubjectID       *string   `json:"subject_id,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Questions       int       `json:"questions"`
	Completed       int       `json:"completed"`
	Skipped         int       `json:"skipped"`
	Failed          int       `json:"failed"`
	VerdictsWritten int       `json:"verdicts_written"`
	PromptTokens    int       `json:"prompt_tokens"`
	TotalTokens     int       `json:"total_tokens"`
}

type reportArchiver interface {
	Archive(ctx context.Context, summary *RunSummary) error
}

// BatchService walks all target questions sequentially, evaluates each one and
// persists verdicts plus a usage log per question. Sequential on purpose: the
// grader is rate limited, so no concurrency within a run.
type BatchService struct {
	store     EvaluationStore
	evaluator questionEvaluator
	report    reportArchiver
	lock      RunLocker

	mu    sync.RWMutex
	delay time.Duration
}

func NewBatchService(store EvaluationStore, evaluator questionEvaluator, report reportArchiver, lock RunLocker, delay time.Duration) *BatchService {
	return &BatchService{
		store:     store,
		evaluator: evaluator,
		report:    report,
		lock:      lock,
		delay:     delay,
	}
}

// SetQuestionDelay updates inter-question pacing; called on config reload.
func (s *BatchService) SetQuestionDelay(d time.Duration) {
	if d < 0 {
		return
	}
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

func (s *BatchService) questionDelay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delay
}

// Start acquires the run lock and launches the batch in the background. The
// caller gets ErrRunInProgress immediately if another run holds the lock;
// otherwise the run is detached and observable only through stored state.
func (s *BatchService) Start(subjectID *string) error {
	ctx := context.Background()
	if err := s.acquireLock(ctx); err != nil {
		return err
	}

	go func() {
		defer s.releaseLock(context.Background())
		s.run(context.Background(), subjectID)
	}()

	return nil
}

// RunAll runs one batch synchronously under the run lock. Exposed for callers
// that need completion, e.g. a CLI migration of old ungraded answers.
func (s *BatchService) RunAll(ctx context.Context, subjectID *string) (*RunSummary, error) {
	if err := s.acquireLock(ctx); err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx)
	return s.run(ctx, subjectID), nil
}

func (s *BatchService) acquireLock(ctx context.Context) error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Acquire(ctx)
}

func (s *BatchService) refreshLock(ctx context.Context) {
	if s.lock == nil {
		return
	}
	s.lock.Refresh(ctx)
}

func (s *BatchService) releaseLock(ctx context.Context) {
	if s.lock == nil {
		return
	}
	s.lock.Release(ctx)
}

// run is the batch loop. A failure of any single question is terminal for that
// question only; the loop always advances to the next one.
func (s *BatchService) run(ctx context.Context, subjectID *string) *RunSummary {
	summary := &RunSummary{SubjectID: subjectID, StartedAt: time.Now()}

	logger.Log.Info("starting batch evaluation",
		zap.Stringp("subject_id", subjectID))

	questions, err := s.store.FindQuestionsWithAnswers(subjectID)
	if err != nil {
		logger.Log.Error("failed to fetch questions", zap.Error(err))
		summary.FinishedAt = time.Now()
		return summary
	}
	summary.Questions = len(questions)

	for i := range questions {
		state := s.processQuestion(ctx, &questions[i], summary)
		monitoring.QuestionsProcessed.WithLabelValues(string(state)).Inc()

		// Keep the lock alive for long batches; its TTL only has to cover one
		// question between refreshes.
		s.refreshLock(ctx)

		switch state {
		case stateCompleted:
			summary.Completed++
		case stateSkipped:
			summary.Skipped++
		case stateFailed:
			summary.Failed++
		}

		if state == stateSkipped {
			continue
		}

		// Inter-question pacing for the grader's rate limit. Chunks within a
		// question are already serialized.
		select {
		case <-ctx.Done():
			logger.Log.Warn("batch evaluation cancelled", zap.Error(ctx.Err()))
			summary.FinishedAt = time.Now()
			return summary
		case <-time.After(s.questionDelay()):
		}
	}

	summary.FinishedAt = time.Now()

	logger.Log.Info("batch evaluation finished",
		zap.Int("questions", summary.Questions),
		zap.Int("completed", summary.Completed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("verdicts_written", summary.VerdictsWritten))

	s.archive(ctx, summary)

	return summary
}

func (s *BatchService) processQuestion(ctx context.Context, q *model.Question, summary *RunSummary) questionState {
	if len(q.TaskAnswers) == 0 {
		logger.Log.Info("skipping question without answers", zap.String("question_id", q.ID))
		return stateSkipped
	}

	logger.Log.Info("processing question",
		zap.String("question_id", q.ID),
		zap.String("state", string(stateSubmitted)),
		zap.Int("answers", len(q.TaskAnswers)))

	result, err := s.evaluator.EvaluateQuestion(ctx, q)
	if err != nil {
		logger.Log.Error("evaluation failed for question",
			zap.String("question_id", q.ID),
			zap.Error(err))
		return stateFailed
	}

	// Verdicts already written stay written even if a later write fails; the
	// updates are idempotent, so re-running the batch converges.
	for answerID, correct := range result.Verdicts {
		if err := s.store.UpdateAnswerStatus(answerID, correct); err != nil {
			logger.Log.Error("failed to persist verdict",
				zap.String("question_id", q.ID),
				zap.String("task_answer_id", answerID),
				zap.Error(err))
			return stateFailed
		}
		summary.VerdictsWritten++
	}

	entry := &model.RequestLog{
		RequestTime:          result.Duration.Seconds(),
		QuestionCount:        len(q.TaskAnswers),
		PromptTokenCount:     result.PromptTokens,
		CandidatesTokenCount: result.CandidateTokens,
		TotalTokenCount:      result.TotalTokens,
		QuestionID:           q.ID,
	}
	if err := s.store.CreateRequestLog(entry); err != nil {
		logger.Log.Error("failed to persist usage log",
			zap.String("question_id", q.ID),
			zap.Error(err))
		return stateFailed
	}

	summary.PromptTokens += result.PromptTokens
	summary.TotalTokens += result.TotalTokens

	logger.Log.Info("question evaluated",
		zap.String("question_id", q.ID),
		zap.Int("verdicts", len(result.Verdicts)),
		zap.Int("total_tokens", result.TotalTokens))

	return stateCompleted
}

func (s *BatchService) archive(ctx context.Context, summary *RunSummary) {
	if s.report == nil {
		return
	}
	if err := s.report.Archive(ctx, summary); err != nil {
		logger.Log.Error("failed to archive run report", zap.Error(err))
	}
}

// VerifySubject reports whether the given subject id exists.
func (s *BatchService) VerifySubject(subjectID string) error {
	exists, err := s.store.SubjectExists(subjectID)
	if err != nil {
		return err
	}
	if !exists {
		return util.ErrSubjectNotFound
	}
	return nil
}

func (s *BatchService) ListEvaluatedAnswers() ([]model.TaskAnswer, error) {
	return s.store.FindEvaluatedAnswers()
}

func (s *BatchService) ListUsageLogs() ([]model.RequestLog, error) {
	return s.store.FindRequestLogs()
}
