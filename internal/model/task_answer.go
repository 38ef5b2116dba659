package model

// TaskAnswer is a student's answer to a question. Status is nil until the
// grader has judged it; it is the only field the pipeline ever writes.
type TaskAnswer struct {
	UUIDBase
	SubjectID   string `gorm:"type:varchar(36);index;not null" json:"subjectId"`
	QuestionID  string `gorm:"type:varchar(36);index;not null" json:"questionId"`
	StudentID   string `gorm:"type:varchar(36);index;not null" json:"studentId"`
	Answer      string `gorm:"type:text;not null" json:"answer"`
	GroundTruth bool   `gorm:"not null" json:"groundTruth"`
	Status      *bool  `json:"status"`
}
