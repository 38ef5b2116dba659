package model

// Question is read-only to the evaluation pipeline; only its answers are mutated.
type Question struct {
	UUIDBase
	SubjectID       string  `gorm:"type:varchar(36);index;not null" json:"subjectId"`
	QuestionText    string  `gorm:"type:text;not null" json:"questionText"`
	PreferredAnswer *string `gorm:"type:text" json:"preferredAnswer,omitempty"`

	TaskAnswers []TaskAnswer `gorm:"foreignKey:QuestionID" json:"taskAnswers,omitempty"`
	RequestLogs []RequestLog `gorm:"foreignKey:QuestionID" json:"-"`
}
