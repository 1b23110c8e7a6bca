package service

import (
	"context"
	"encoding/json"
	"fmt"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/tracing"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	maxBackoff = time.Hour
	staleAfter = 10 * time.Minute
)

// OutboxHandler 执行一条任务，返回错误时任务会被重试
type OutboxHandler func(ctx context.Context, task *model.OutboxTask) error

// Dispatcher 事务提交后唤醒异步任务处理
type Dispatcher interface {
	Notify()
}

// OutboxWorker 处理完成课程、活动报名等产生的异步任务
type OutboxWorker struct {
	OutboxRepo *repository.OutboxRepository

	mu       sync.RWMutex
	cfg      config.OutboxConfig
	handlers map[model.OutboxKind]OutboxHandler

	scheduler *cron.Cron
	entryID   cron.EntryID

	wake chan struct{}
	now  func() time.Time
}

func NewOutboxWorker(repo *repository.OutboxRepository, cfg config.OutboxConfig) *OutboxWorker {
	return &OutboxWorker{
		OutboxRepo: repo,
		cfg:        cfg.WithDefaults(),
		handlers:   make(map[model.OutboxKind]OutboxHandler),
		wake:       make(chan struct{}, 1),
		now:        time.Now,
	}
}

func (w *OutboxWorker) Handle(kind model.OutboxKind, h OutboxHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[kind] = h
}

// Notify 非阻塞，多次调用会合并
func (w *OutboxWorker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *OutboxWorker) config() config.OutboxConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// UpdateConfig 配置热更新，定时表达式变化时重新注册
func (w *OutboxWorker) UpdateConfig(cfg config.OutboxConfig) {
	cfg = cfg.WithDefaults()
	w.mu.Lock()
	old := w.cfg
	w.cfg = cfg
	w.mu.Unlock()

	if w.scheduler != nil && old.SweepSchedule != cfg.SweepSchedule {
		if err := w.Schedule(w.scheduler); err != nil {
			logger.Log.Error("Failed to reschedule outbox sweep", zap.Error(err), zap.String("schedule", cfg.SweepSchedule))
		}
	}
}

// Schedule 在 cron 上注册定时扫描，兜底处理漏掉的唤醒和重试到期的任务
func (w *OutboxWorker) Schedule(c *cron.Cron) error {
	schedule := w.config().SweepSchedule
	id, err := c.AddFunc(schedule, func() {
		ctx := context.Background()
		if n, err := w.OutboxRepo.ResetStale(ctx, w.now().Add(-staleAfter)); err != nil {
			logger.Log.Error("Failed to reset stale outbox tasks", zap.Error(err))
		} else if n > 0 {
			logger.Log.Warn("Reset stale outbox tasks", zap.Int64("count", n))
		}
		w.Notify()
	})
	if err != nil {
		return fmt.Errorf("invalid outbox sweep schedule %q: %w", schedule, err)
	}

	w.mu.Lock()
	if w.scheduler != nil && w.entryID != 0 {
		w.scheduler.Remove(w.entryID)
	}
	w.scheduler = c
	w.entryID = id
	w.mu.Unlock()
	return nil
}

// Run 阻塞直到 ctx 结束
func (w *OutboxWorker) Run(ctx context.Context) {
	w.Notify()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
			if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				logger.Log.Error("Outbox processing failed", zap.Error(err))
			}
		}
	}
}

// ProcessPending 处理所有到期任务，返回本次执行成功的数量
func (w *OutboxWorker) ProcessPending(ctx context.Context) (int, error) {
	cfg := w.config()
	done := 0
	for {
		tasks, err := w.OutboxRepo.FetchDue(ctx, w.now(), cfg.BatchSize)
		if err != nil {
			return done, err
		}
		if len(tasks) == 0 {
			return done, nil
		}

		for i := range tasks {
			if ctx.Err() != nil {
				return done, ctx.Err()
			}
			ok, err := w.execute(ctx, &tasks[i], cfg)
			if err != nil {
				return done, err
			}
			if ok {
				done++
			}
		}
		// 取出的任务都已离开 pending 或被推迟，不会重复获取
		if len(tasks) < cfg.BatchSize {
			return done, nil
		}
	}
}

// execute 返回 true 表示任务执行成功，错误仅代表任务表本身读写失败
func (w *OutboxWorker) execute(ctx context.Context, task *model.OutboxTask, cfg config.OutboxConfig) (bool, error) {
	claimed, err := w.OutboxRepo.Claim(ctx, task.ID)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}
	task.Attempts++

	ctx, span := tracing.Start(ctx, "outbox."+string(task.Kind))
	span.SetAttributes(
		attribute.Int64("outbox.task_id", int64(task.ID)),
		attribute.Int("outbox.attempt", task.Attempts),
	)
	defer span.End()

	w.mu.RLock()
	handler, ok := w.handlers[task.Kind]
	w.mu.RUnlock()

	var runErr error
	if !ok {
		runErr = fmt.Errorf("no handler for outbox kind %q", task.Kind)
	} else {
		runErr = safeRun(ctx, handler, task)
	}

	fields := []zap.Field{
		zap.Uint("taskId", task.ID),
		zap.String("kind", string(task.Kind)),
		zap.String("dedupKey", task.DedupKey),
		zap.Int("attempt", task.Attempts),
	}

	if runErr == nil {
		monitoring.OutboxTaskCounter.WithLabelValues(string(task.Kind), "done").Inc()
		return true, w.OutboxRepo.MarkDone(ctx, task.ID)
	}

	span.RecordError(runErr)
	span.SetStatus(codes.Error, runErr.Error())

	if task.Attempts >= cfg.MaxAttempts {
		monitoring.OutboxTaskCounter.WithLabelValues(string(task.Kind), "failed").Inc()
		logger.Log.Error("Outbox task failed permanently", append(fields, zap.Error(runErr))...)
		return false, w.OutboxRepo.MarkFailed(ctx, task.ID, runErr.Error())
	}

	next := w.now().Add(backoff(cfg.BaseBackoff, task.Attempts))
	monitoring.OutboxTaskCounter.WithLabelValues(string(task.Kind), "retry").Inc()
	logger.Log.Warn("Outbox task failed, will retry", append(fields, zap.Error(runErr), zap.Time("nextAttemptAt", next))...)
	return false, w.OutboxRepo.Reschedule(ctx, task.ID, next, runErr.Error())
}

func safeRun(ctx context.Context, h OutboxHandler, task *model.OutboxTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("outbox handler panic: %v", r)
		}
	}()
	return h(ctx, task)
}

// backoff 第 n 次失败后的等待时间：base * 2^(n-1)，上限一小时
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func enqueueNotification(ctx context.Context, repo *repository.OutboxRepository, userID uint, dedupKey string, p model.NotificationPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = repo.Enqueue(ctx, &model.OutboxTask{
		Kind:     model.OutboxNotification,
		DedupKey: dedupKey,
		UserID:   userID,
		Payload:  payload,
	})
	return err
}

// NotificationHandler 将通知类任务交给通知服务
func NotificationHandler(svc *NotificationService) OutboxHandler {
	return func(ctx context.Context, task *model.OutboxTask) error {
		var p model.NotificationPayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return fmt.Errorf("decode notification payload: %w", err)
		}
		_, err := svc.Send(ctx, task.UserID, p.Type, p.Title, p.Message)
		return err
	}
}
