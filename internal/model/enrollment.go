package model

import "time"

// Enrollment 报名记录，(user_id, course_id) 唯一，创建后不再修改
type Enrollment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"userId"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"courseId"`
	EnrolledAt time.Time `gorm:"not null" json:"enrolledAt"`
	Course     *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// CourseProgress 与 Enrollment 一一对应，报名时以 0% 创建
type CourseProgress struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;uniqueIndex:idx_progress_user_course" json:"userId"`
	CourseID           uint       `gorm:"not null;uniqueIndex:idx_progress_user_course" json:"courseId"`
	ProgressPercentage float64    `gorm:"not null;default:0" json:"progressPercentage"`
	Completed          bool       `gorm:"not null;default:false" json:"completed"`
	LastAccessed       time.Time  `json:"lastAccessed"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

// CourseCompletion 完成日志，每个 (user, course) 只记录一次
type CourseCompletion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_completion_user_course" json:"userId"`
	CourseID    uint      `gorm:"not null;uniqueIndex:idx_completion_user_course" json:"courseId"`
	CompletedAt time.Time `gorm:"not null" json:"completedAt"`
}

func (CourseCompletion) TableName() string {
	return "course_completions"
}
