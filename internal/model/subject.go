package model

// Subject groups questions, e.g. "IPA" or "Bahasa Indonesia".
type Subject struct {
	UUIDBase
	Name string `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`

	Questions   []Question   `gorm:"foreignKey:SubjectID" json:"questions,omitempty"`
	TaskAnswers []TaskAnswer `gorm:"foreignKey:SubjectID" json:"-"`
}
