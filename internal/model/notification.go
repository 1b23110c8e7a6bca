package model

import "time"

type NotificationType string

const (
	NotificationCourseUpdate    NotificationType = "course_update"
	NotificationEventReminder   NotificationType = "event_reminder"
	NotificationForumReply      NotificationType = "forum_reply"
	NotificationAssessmentGrade NotificationType = "assessment_grade"
	NotificationSystemAlert     NotificationType = "system_alert"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"index;not null" json:"userId"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	Title     string           `gorm:"size:200" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
