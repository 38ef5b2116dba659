package model

// RequestLog records grading cost for one question run: wall-clock time of the
// grader calls plus token usage summed over all chunks. Append-only.
type RequestLog struct {
	UUIDBase
	RequestTime          float64 `gorm:"not null" json:"requestTime"`
	QuestionCount        int     `gorm:"not null" json:"questionCount"`
	PromptTokenCount     int     `gorm:"not null" json:"promptTokenCount"`
	CandidatesTokenCount int     `gorm:"not null" json:"candidatesTokenCount"`
	TotalTokenCount      int     `gorm:"not null" json:"totalTokenCount"`
	QuestionID           string  `gorm:"type:varchar(36);index;not null" json:"questionId"`
}
