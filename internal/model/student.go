package model

type Student struct {
	UUIDBase
	Name string `gorm:"type:varchar(255);not null" json:"name"`

	TaskAnswers []TaskAnswer `gorm:"foreignKey:StudentID" json:"-"`
}
