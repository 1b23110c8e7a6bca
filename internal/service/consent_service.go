package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/security"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxUserAgentLength = 512

var consentTypes = map[string]bool{
	"data_collection": true,
	"marketing":       true,
	"analytics":       true,
}

type ConsentService struct {
	ConsentRepo *repository.ConsentRepository
	Protection  *security.DataProtection
	now         func() time.Time
}

func NewConsentService(repo *repository.ConsentRepository, protection *security.DataProtection) *ConsentService {
	return &ConsentService{
		ConsentRepo: repo,
		Protection:  protection,
		now:         time.Now,
	}
}

type ConsentRequest struct {
	ConsentType string `json:"consentType" binding:"required"`
	Granted     bool   `json:"granted"`
}

// Record IP 和 UserAgent 加密后保存
func (s *ConsentService) Record(ctx context.Context, userID uint, consentType string, granted bool, ip, userAgent string) (*model.UserConsent, error) {
	if !consentTypes[consentType] {
		return nil, util.ErrInvalidConsent
	}
	if len(userAgent) > maxUserAgentLength {
		userAgent = userAgent[:maxUserAgentLength]
	}

	encIP, err := s.Protection.Encrypt(ip)
	if err != nil {
		return nil, err
	}
	encUA, err := s.Protection.Encrypt(userAgent)
	if err != nil {
		return nil, err
	}

	consent := &model.UserConsent{
		UserID:      userID,
		ConsentType: consentType,
		Granted:     granted,
		IPAddress:   encIP,
		UserAgent:   encUA,
	}
	if granted {
		now := s.now()
		consent.GrantedAt = &now
	}
	if err := s.ConsentRepo.Create(ctx, consent); err != nil {
		return nil, err
	}

	consent.IPAddress = ip
	consent.UserAgent = userAgent
	return consent, nil
}

// Revoke 撤销最近一条有效的同意记录
func (s *ConsentService) Revoke(ctx context.Context, userID uint, consentType string) error {
	if !consentTypes[consentType] {
		return util.ErrInvalidConsent
	}
	consent, err := s.ConsentRepo.FindActive(ctx, userID, consentType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrConsentNotFound
	}
	if err != nil {
		return err
	}
	return s.ConsentRepo.Revoke(ctx, consent.ID, s.now())
}

// List 返回解密后的记录，无法解密的字段置空
func (s *ConsentService) List(ctx context.Context, userID uint) ([]model.UserConsent, error) {
	consents, err := s.ConsentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range consents {
		consents[i].IPAddress = s.decrypt(consents[i].ID, consents[i].IPAddress)
		consents[i].UserAgent = s.decrypt(consents[i].ID, consents[i].UserAgent)
	}
	return consents, nil
}

func (s *ConsentService) decrypt(id uint, value string) string {
	if value == "" {
		return ""
	}
	plain, err := s.Protection.Decrypt(value)
	if err != nil {
		logger.Log.Warn("Failed to decrypt consent field", zap.Error(err), zap.Uint("consentId", id))
		return ""
	}
	return plain
}
