package model

import "time"

// UserConsent IP 与 UserAgent 以密文保存
type UserConsent struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"userId"`
	ConsentType string     `gorm:"size:50;not null;index" json:"consentType"` // data_collection, marketing
	Granted     bool       `gorm:"not null;default:false" json:"granted"`
	GrantedAt   *time.Time `json:"grantedAt,omitempty"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	IPAddress   string     `gorm:"size:255" json:"ipAddress"`
	UserAgent   string     `gorm:"size:1024" json:"userAgent"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (UserConsent) TableName() string {
	return "user_consents"
}
