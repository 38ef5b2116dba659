package controller

import (
	"answer_eval_backend/internal/model"
	"answer_eval_backend/internal/service"
	"answer_eval_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EvaluationController struct {
	batch *service.BatchService
}

func NewEvaluationController(batch *service.BatchService) *EvaluationController {
	return &EvaluationController{batch: batch}
}

// evaluatedAnswer mirrors the grader wire shape for the status endpoint.
type evaluatedAnswer struct {
	TaskAnswerID string `json:"task_answer_id"`
	Correct      bool   `json:"correct"`
}

// TriggerAll starts a background evaluation of every question in the store
// and returns 202 immediately. Progress is observable only through the
// answers' status column and the usage logs.
func (c *EvaluationController) TriggerAll(ctx *gin.Context) {
	if err := c.batch.Start(nil); err != nil {
		if errors.Is(err, util.ErrRunInProgress) {
			util.Conflict(ctx, "an evaluation run is already in progress")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Accepted(ctx, "Evaluation process started in the background. "+
		"The status field of each task answer will be updated upon completion.")
}

// TriggerSubject starts a background evaluation limited to one subject.
func (c *EvaluationController) TriggerSubject(ctx *gin.Context) {
	subjectID := ctx.Param("subjectId")
	if _, err := uuid.Parse(subjectID); err != nil {
		util.BadRequest(ctx, "subjectId must be a valid UUID")
		return
	}

	if err := c.batch.VerifySubject(subjectID); err != nil {
		if errors.Is(err, util.ErrSubjectNotFound) {
			util.Error(ctx, http.StatusNotFound, "subject not found")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	if err := c.batch.Start(&subjectID); err != nil {
		if errors.Is(err, util.ErrRunInProgress) {
			util.Conflict(ctx, "an evaluation run is already in progress")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Accepted(ctx, "Evaluation process for subject "+subjectID+" started in the background.")
}

// GetEvaluatedAnswers lists the verdict of every answer that has one.
func (c *EvaluationController) GetEvaluatedAnswers(ctx *gin.Context) {
	answers, err := c.batch.ListEvaluatedAnswers()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	out := make([]evaluatedAnswer, 0, len(answers))
	for _, ans := range answers {
		if ans.Status == nil {
			continue
		}
		out = append(out, evaluatedAnswer{TaskAnswerID: ans.ID, Correct: *ans.Status})
	}

	util.Success(ctx, out)
}

// GetUsageLogs lists per-question grading cost records, newest first.
func (c *EvaluationController) GetUsageLogs(ctx *gin.Context) {
	logs, err := c.batch.ListUsageLogs()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	if logs == nil {
		logs = []model.RequestLog{}
	}
	util.Success(ctx, logs)
}
