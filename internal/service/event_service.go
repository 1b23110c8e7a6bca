package service

import (
	"context"
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reminderWindow   = 24 * time.Hour
	reminderBatch    = 200
	reminderSchedule = "@every 10m"
)

type EventService struct {
	DB         *gorm.DB
	EventRepo  *repository.EventRepository
	OutboxRepo *repository.OutboxRepository
	Dispatcher Dispatcher
	now        func() time.Time
}

func NewEventService(
	db *gorm.DB,
	eventRepo *repository.EventRepository,
	outboxRepo *repository.OutboxRepository,
	dispatcher Dispatcher,
) *EventService {
	return &EventService{
		DB:         db,
		EventRepo:  eventRepo,
		OutboxRepo: outboxRepo,
		Dispatcher: dispatcher,
		now:        time.Now,
	}
}

type CreateEventRequest struct {
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	Datetime     time.Time `json:"datetime" binding:"required"`
	Duration     int       `json:"duration"`
	ImageURL     string    `json:"imageUrl"`
	MaxAttendees int       `json:"maxAttendees"`
	SpeakerID    *uint     `json:"speakerId"`
}

// Register 检查顺序：活动不存在、名额已满、已报名。
// 名额通过条件更新占用，报名记录由唯一索引保证不重复，二者同一事务提交
func (s *EventService) Register(ctx context.Context, userID, eventID uint) (*model.EventRegistration, error) {
	var reg *model.EventRegistration

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.EventRepo.WithTx(tx)

		event, err := events.FindByID(ctx, eventID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrEventNotFound
		}
		if err != nil {
			return err
		}
		if event.IsFull() {
			return util.ErrEventFull
		}

		registered, err := events.IsRegistered(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if registered {
			return util.ErrAlreadyRegistered
		}

		claimed, err := events.ClaimSeat(ctx, eventID)
		if err != nil {
			return err
		}
		if !claimed {
			return util.ErrEventFull
		}

		r := &model.EventRegistration{
			UserID:           userID,
			EventID:          eventID,
			RegistrationDate: s.now(),
		}
		if err := events.CreateRegistration(ctx, r); err != nil {
			return err
		}
		r.Event = event
		event.CurrentAttendees++

		if err := enqueueNotification(ctx, s.OutboxRepo.WithTx(tx), userID,
			fmt.Sprintf("notification:event_registered:%d:%d", userID, eventID),
			model.NotificationPayload{
				Type:    model.NotificationEventReminder,
				Title:   "Event registration confirmed",
				Message: fmt.Sprintf("You are registered for %s on %s.", event.Title, event.StartsAt.Format(util.TimeFormat)),
			}); err != nil {
			return err
		}

		reg = r
		return nil
	})

	monitoring.EventRegistrationCounter.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	logger.Log.Info("User registered for event", zap.Uint("userId", userID), zap.Uint("eventId", eventID))
	if s.Dispatcher != nil {
		s.Dispatcher.Notify()
	}
	return reg, nil
}

func (s *EventService) ListUpcoming(ctx context.Context, skip, limit int) (*util.PageResponse, error) {
	events, total, err := s.EventRepo.ListUpcoming(ctx, s.now(), skip, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: events, Total: total, Skip: skip, Limit: limit}, nil
}

func (s *EventService) GetEvent(ctx context.Context, id uint) (*model.Event, error) {
	event, err := s.EventRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEventNotFound
	}
	return event, err
}

func (s *EventService) CreateEvent(ctx context.Context, req CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		Title:        req.Title,
		Description:  req.Description,
		StartsAt:     req.Datetime,
		Duration:     req.Duration,
		ImageURL:     req.ImageURL,
		MaxAttendees: req.MaxAttendees,
		SpeakerID:    req.SpeakerID,
	}
	if err := s.EventRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) ListRegistrations(ctx context.Context, userID uint) ([]model.EventRegistration, error) {
	return s.EventRepo.ListRegistrationsByUser(ctx, userID)
}

// SubmitFeedback 每个报名只能提交一次反馈
func (s *EventService) SubmitFeedback(ctx context.Context, userID, eventID uint) error {
	ok, err := s.EventRepo.MarkFeedbackSubmitted(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	_, err = s.EventRepo.FindRegistration(ctx, userID, eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNotRegistered
	}
	if err != nil {
		return err
	}
	return util.ErrFeedbackSubmitted
}

func (s *EventService) MarkAttended(ctx context.Context, userID, eventID uint) error {
	affected, err := s.EventRepo.MarkAttended(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	// 重复标记时 RowsAffected 可能为 0
	if _, err := s.EventRepo.FindRegistration(ctx, userID, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotRegistered
		}
		return err
	}
	return nil
}

// SendReminders 为 24 小时内开始的活动登记提醒，每个报名只提醒一次
func (s *EventService) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	regs, err := s.EventRepo.DueReminders(ctx, now, now.Add(reminderWindow), reminderBatch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range regs {
		reg := &regs[i]
		marked := false
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ok, err := s.EventRepo.WithTx(tx).MarkReminderSent(ctx, reg.ID)
			if err != nil || !ok {
				return err
			}
			marked = true
			title := "Upcoming event"
			message := "An event you registered for starts soon."
			if reg.Event != nil {
				title = "Upcoming event: " + reg.Event.Title
				message = fmt.Sprintf("%s starts at %s.", reg.Event.Title, reg.Event.StartsAt.Format(util.TimeFormat))
			}
			return enqueueNotification(ctx, s.OutboxRepo.WithTx(tx), reg.UserID,
				fmt.Sprintf("notification:event_reminder:%d", reg.ID),
				model.NotificationPayload{
					Type:    model.NotificationEventReminder,
					Title:   title,
					Message: message,
				})
		})
		if err != nil {
			return sent, err
		}
		if marked {
			sent++
		}
	}

	if sent > 0 && s.Dispatcher != nil {
		s.Dispatcher.Notify()
	}
	return sent, nil
}

// Schedule 注册提醒定时任务
func (s *EventService) Schedule(c *cron.Cron) error {
	_, err := c.AddFunc(reminderSchedule, func() {
		n, err := s.SendReminders(context.Background())
		if err != nil {
			logger.Log.Error("Failed to queue event reminders", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Log.Info("Queued event reminders", zap.Int("count", n))
		}
	})
	return err
}
