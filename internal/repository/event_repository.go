package repository

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type EventRepository struct {
	DB *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{DB: db}
}

func (r *EventRepository) WithTx(tx *gorm.DB) *EventRepository {
	return &EventRepository{DB: tx}
}

func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.DB.WithContext(ctx).Create(event).Error
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (*model.Event, error) {
	var event model.Event
	err := r.DB.WithContext(ctx).First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) ListUpcoming(ctx context.Context, now time.Time, skip, limit int) ([]model.Event, int64, error) {
	var events []model.Event
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Event{}).Where("starts_at > ?", now)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("starts_at ASC").Offset(skip).Limit(limit).Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ClaimSeat 条件更新占用一个名额，没有空位时返回 false
func (r *EventRepository) ClaimSeat(ctx context.Context, eventID uint) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.Event{}).
		Where("id = ? AND (max_attendees <= 0 OR current_attendees < max_attendees)", eventID).
		UpdateColumn("current_attendees", gorm.Expr("current_attendees + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *EventRepository) IsRegistered(ctx context.Context, userID, eventID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.EventRegistration{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Count(&count).Error
	return count > 0, err
}

// CreateRegistration 唯一索引冲突时返回 util.ErrAlreadyRegistered
func (r *EventRepository) CreateRegistration(ctx context.Context, reg *model.EventRegistration) error {
	err := r.DB.WithContext(ctx).Create(reg).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrAlreadyRegistered
	}
	return err
}

func (r *EventRepository) FindRegistration(ctx context.Context, userID, eventID uint) (*model.EventRegistration, error) {
	var reg model.EventRegistration
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *EventRepository) ListRegistrationsByUser(ctx context.Context, userID uint) ([]model.EventRegistration, error) {
	var regs []model.EventRegistration
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Event").
		Order("registration_date DESC").
		Find(&regs).Error
	return regs, err
}

// MarkFeedbackSubmitted 仅当尚未提交过反馈时更新
func (r *EventRepository) MarkFeedbackSubmitted(ctx context.Context, userID, eventID uint) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.EventRegistration{}).
		Where("user_id = ? AND event_id = ? AND feedback_submitted = ?", userID, eventID, false).
		UpdateColumn("feedback_submitted", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *EventRepository) MarkAttended(ctx context.Context, userID, eventID uint) (int64, error) {
	result := r.DB.WithContext(ctx).Model(&model.EventRegistration{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		UpdateColumn("attended", true)
	return result.RowsAffected, result.Error
}

// DueReminders 返回活动在 (now, until] 之间开始且尚未提醒的报名
func (r *EventRepository) DueReminders(ctx context.Context, now, until time.Time, limit int) ([]model.EventRegistration, error) {
	var regs []model.EventRegistration
	err := r.DB.WithContext(ctx).
		Joins("JOIN events ON events.id = event_registrations.event_id").
		Where("event_registrations.reminder_sent = ?", false).
		Where("events.starts_at > ? AND events.starts_at <= ?", now, until).
		Where("events.deleted_at IS NULL").
		Preload("Event").
		Order("event_registrations.id ASC").
		Limit(limit).
		Find(&regs).Error
	return regs, err
}

// MarkReminderSent 条件更新，保证每个报名只提醒一次
func (r *EventRepository) MarkReminderSent(ctx context.Context, registrationID uint) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.EventRegistration{}).
		Where("id = ? AND reminder_sent = ?", registrationID, false).
		UpdateColumn("reminder_sent", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
