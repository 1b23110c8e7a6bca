package model

import (
	"time"

	"gorm.io/datatypes"
)

// swagger:model Resource
type Resource struct {
	BaseModel
	Title         string                      `gorm:"size:200;not null" json:"title"`
	Description   string                      `gorm:"type:text" json:"description"`
	Category      string                      `gorm:"size:100;index" json:"category"`
	Type          string                      `gorm:"size:50;index" json:"type"` // document, video, link
	Tags          datatypes.JSONSlice[string] `json:"tags"`
	FileKey       string                      `gorm:"size:255" json:"-"`
	FileName      string                      `gorm:"size:255" json:"fileName"`
	FileURL       string                      `gorm:"size:500" json:"fileUrl"`
	ContentType   string                      `gorm:"size:100" json:"contentType"`
	FileSize      int64                       `json:"fileSize"`
	Duration      float64                     `json:"duration,omitempty"` // 视频时长（秒）
	DownloadCount int                         `gorm:"not null;default:0" json:"downloadCount"`
	ViewCount     int                         `gorm:"not null;default:0" json:"viewCount"`
	UploaderID    uint                        `gorm:"index" json:"uploaderId"`
}

func (Resource) TableName() string {
	return "resources"
}

type ResourceDownload struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ResourceID   uint      `gorm:"not null;index" json:"resourceId"`
	UserID       uint      `gorm:"not null;index" json:"userId"`
	IPAddress    string    `gorm:"size:45" json:"ipAddress"`
	DownloadedAt time.Time `gorm:"not null;index" json:"downloadedAt"`
}

func (ResourceDownload) TableName() string {
	return "resource_downloads"
}

type ResourceView struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ResourceID uint      `gorm:"not null;index" json:"resourceId"`
	UserID     uint      `gorm:"not null;index" json:"userId"`
	IPAddress  string    `gorm:"size:45" json:"ipAddress"`
	ViewedAt   time.Time `gorm:"not null;index" json:"viewedAt"`
}

func (ResourceView) TableName() string {
	return "resource_views"
}
