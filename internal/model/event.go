package model

import "time"

type Event struct {
	BaseModel
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	StartsAt    time.Time `gorm:"not null;index" json:"datetime"`
	Duration    int       `gorm:"default:0" json:"duration"` // 分钟
	ImageURL    string    `gorm:"size:500" json:"imageUrl"`
	// MaxAttendees <= 0 表示不限人数
	MaxAttendees     int   `gorm:"not null;default:0" json:"maxAttendees"`
	CurrentAttendees int   `gorm:"not null;default:0" json:"currentAttendees"`
	SpeakerID        *uint `json:"speakerId,omitempty"`
}

func (Event) TableName() string {
	return "events"
}

// IsFull 仅用于快速失败，最终以数据库条件更新为准
func (e *Event) IsFull() bool {
	return e.MaxAttendees > 0 && e.CurrentAttendees >= e.MaxAttendees
}

type EventRegistration struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;uniqueIndex:idx_registration_user_event" json:"userId"`
	EventID           uint      `gorm:"not null;uniqueIndex:idx_registration_user_event;index" json:"eventId"`
	RegistrationDate  time.Time `gorm:"not null" json:"registrationDate"`
	Attended          bool      `gorm:"not null;default:false" json:"attended"`
	FeedbackSubmitted bool      `gorm:"not null;default:false" json:"feedbackSubmitted"`
	ReminderSent      bool      `gorm:"not null;default:false" json:"-"`
	Event             *Event    `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

func (EventRegistration) TableName() string {
	return "event_registrations"
}
