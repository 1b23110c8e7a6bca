package model

import "time"

// Achievement 用户徽章，Code 在同一用户下唯一
type Achievement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_achievement_user_code" json:"userId"`
	Code      string    `gorm:"size:100;not null;uniqueIndex:idx_achievement_user_code" json:"code"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Icon      string    `gorm:"size:255" json:"icon"`
	EarnedXP  int       `gorm:"default:0" json:"earnedXp"`
	CourseID  *uint     `json:"courseId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Achievement) TableName() string {
	return "achievements"
}
