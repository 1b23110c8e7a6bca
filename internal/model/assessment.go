package model

import (
	"time"

	"gorm.io/datatypes"
)

type Assessment struct {
	BaseModel
	CourseID     uint                 `gorm:"index" json:"courseId"`
	Title        string               `gorm:"size:200;not null" json:"title"`
	Description  string               `gorm:"type:text" json:"description"`
	PassingScore int                  `gorm:"not null;default:60" json:"passingScore"`
	Questions    []AssessmentQuestion `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

type AssessmentQuestion struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	AssessmentID  uint                        `gorm:"index;not null" json:"assessmentId"`
	QuestionText  string                      `gorm:"type:text;not null" json:"questionText"`
	QuestionType  string                      `gorm:"size:50" json:"questionType"` // multiple_choice, true_false
	CorrectAnswer string                      `gorm:"size:500" json:"-"`
	Options       datatypes.JSONSlice[string] `json:"options,omitempty"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}

type AssessmentAttempt struct {
	ID           uint                                   `gorm:"primaryKey" json:"id"`
	UserID       uint                                   `gorm:"index;not null" json:"userId"`
	AssessmentID uint                                   `gorm:"index;not null" json:"assessmentId"`
	Answers      datatypes.JSONType[map[string]string] `json:"answers"`
	Score        int                                    `json:"score"`
	Passed       bool                                   `json:"passed"`
	SubmittedAt  time.Time                              `gorm:"not null" json:"submittedAt"`
}

func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}
