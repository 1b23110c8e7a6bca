package repository

import (
	"context"
	"learnhub_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ConsentRepository struct {
	DB *gorm.DB
}

func NewConsentRepository(db *gorm.DB) *ConsentRepository {
	return &ConsentRepository{DB: db}
}

func (r *ConsentRepository) Create(ctx context.Context, consent *model.UserConsent) error {
	return r.DB.WithContext(ctx).Create(consent).Error
}

// FindActive 最近一条已授权且未撤销的同意记录
func (r *ConsentRepository) FindActive(ctx context.Context, userID uint, consentType string) (*model.UserConsent, error) {
	var consent model.UserConsent
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND consent_type = ? AND granted = ? AND revoked_at IS NULL", userID, consentType, true).
		Order("created_at DESC").
		Order("id DESC").
		First(&consent).Error
	if err != nil {
		return nil, err
	}
	return &consent, nil
}

func (r *ConsentRepository) Revoke(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.UserConsent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"granted":    false,
			"revoked_at": at,
		}).Error
}

func (r *ConsentRepository) ListByUser(ctx context.Context, userID uint) ([]model.UserConsent, error) {
	var consents []model.UserConsent
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&consents).Error
	return consents, err
}
