package repository

import (
	"answer_eval_backend/internal/model"

	"gorm.io/gorm"
)

type EvaluationRepository struct {
	DB *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: db}
}

// FindQuestionsWithAnswers returns questions with their answers preloaded in
// one round trip. A nil subjectID returns every question in the store.
func (r *EvaluationRepository) FindQuestionsWithAnswers(subjectID *string) ([]model.Question, error) {
	var questions []model.Question
	query := r.DB.Preload("TaskAnswers")
	if subjectID != nil {
		query = query.Where("subject_id = ?", *subjectID)
	}
	err := query.Find(&questions).Error
	return questions, err
}

// UpdateAnswerStatus sets the verdict for one answer. The update is keyed by
// id only, so re-applying the same verdict is a no-op in effect.
func (r *EvaluationRepository) UpdateAnswerStatus(answerID string, correct bool) error {
	return r.DB.Model(&model.TaskAnswer{}).
		Where("id = ?", answerID).
		Update("status", correct).
		Error
}

func (r *EvaluationRepository) CreateRequestLog(entry *model.RequestLog) error {
	return r.DB.Create(entry).Error
}

// FindEvaluatedAnswers returns every answer that already carries a verdict.
func (r *EvaluationRepository) FindEvaluatedAnswers() ([]model.TaskAnswer, error) {
	var answers []model.TaskAnswer
	err := r.DB.Where("status IS NOT NULL").Find(&answers).Error
	return answers, err
}

func (r *EvaluationRepository) FindRequestLogs() ([]model.RequestLog, error) {
	var logs []model.RequestLog
	err := r.DB.Order("created_at DESC").Find(&logs).Error
	return logs, err
}

func (r *EvaluationRepository) SubjectExists(subjectID string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Subject{}).Where("id = ?", subjectID).Count(&count).Error
	return count > 0, err
}
