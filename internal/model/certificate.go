package model

import "time"

type Certificate struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_certificate_user_course" json:"userId"`
	CourseID     uint      `gorm:"not null;uniqueIndex:idx_certificate_user_course" json:"courseId"`
	SerialNumber string    `gorm:"size:36;not null;uniqueIndex" json:"serialNumber"`
	IssuedAt     time.Time `gorm:"not null" json:"issuedAt"`
	Course       *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Certificate) TableName() string {
	return "certificates"
}
