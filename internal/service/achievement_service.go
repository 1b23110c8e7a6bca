package service

import (
	"context"
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"

	"gorm.io/gorm"
)

const (
	xpPerLevel       = 200
	courseBadgeXP    = 100
	leaderboardLimit = 10
)

type milestone struct {
	Code      string
	Name      string
	Threshold int64
	XP        int
}

var completionMilestones = []milestone{
	{Code: "milestone:first_course", Name: "First Course Completed", Threshold: 1, XP: 50},
	{Code: "milestone:five_courses", Name: "Five Courses Completed", Threshold: 5, XP: 200},
	{Code: "milestone:ten_courses", Name: "Ten Courses Completed", Threshold: 10, XP: 500},
}

type AchievementService struct {
	DB              *gorm.DB
	AchievementRepo *repository.AchievementRepository
	UserRepo        *repository.UserRepository
	CourseRepo      *repository.CourseRepository
	CompletionRepo  *repository.CompletionRepository
}

func NewAchievementService(
	db *gorm.DB,
	achievementRepo *repository.AchievementRepository,
	userRepo *repository.UserRepository,
	courseRepo *repository.CourseRepository,
	completionRepo *repository.CompletionRepository,
) *AchievementService {
	return &AchievementService{
		DB:              db,
		AchievementRepo: achievementRepo,
		UserRepo:        userRepo,
		CourseRepo:      courseRepo,
		CompletionRepo:  completionRepo,
	}
}

type UserAchievements struct {
	TotalXP      int                 `json:"totalXp"`
	CurrentLevel int                 `json:"currentLevel"`
	NextLevelXP  int                 `json:"nextLevelXp"`
	Badges       []model.Achievement `json:"badges"`
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID uint   `json:"userId"`
	User   string `json:"user"`
	XP     int    `json:"xp"`
	Avatar string `json:"avatar,omitempty"`
}

// UpdateForCourse 发放课程徽章和完成数里程碑，重复调用不会重复加经验
func (s *AchievementService) UpdateForCourse(ctx context.Context, userID, courseID uint) error {
	name := fmt.Sprintf("Completed course #%d", courseID)
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if course != nil {
		name = "Completed " + course.Title
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		achievements := s.AchievementRepo.WithTx(tx)
		users := s.UserRepo.WithTx(tx)

		cid := courseID
		badges := []model.Achievement{{
			UserID:   userID,
			Code:     fmt.Sprintf("course:%d", courseID),
			Name:     name,
			EarnedXP: courseBadgeXP,
			CourseID: &cid,
		}}

		completed, err := s.CompletionRepo.WithTx(tx).CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, m := range completionMilestones {
			if completed >= m.Threshold {
				badges = append(badges, model.Achievement{
					UserID:   userID,
					Code:     m.Code,
					Name:     m.Name,
					EarnedXP: m.XP,
				})
			}
		}

		for i := range badges {
			created, err := achievements.CreateIfAbsent(ctx, &badges[i])
			if err != nil {
				return err
			}
			if !created {
				continue
			}
			if err := users.AddXP(ctx, userID, badges[i].EarnedXP); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *AchievementService) GetUserAchievements(ctx context.Context, userID uint) (*UserAchievements, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	badges, err := s.AchievementRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	level, next := calculateLevel(user.XP)
	return &UserAchievements{
		TotalXP:      user.XP,
		CurrentLevel: level,
		NextLevelXP:  next,
		Badges:       badges,
	}, nil
}

func (s *AchievementService) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = leaderboardLimit
	}
	users, err := s.UserRepo.FindTopByXP(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:   i + 1,
			UserID: u.ID,
			User:   u.Name,
			XP:     u.XP,
			Avatar: u.Avatar,
		})
	}
	return entries, nil
}

// calculateLevel 每 200 经验升一级
func calculateLevel(xp int) (int, int) {
	level := xp/xpPerLevel + 1
	return level, level * xpPerLevel
}

func AchievementHandler(svc *AchievementService) OutboxHandler {
	return func(ctx context.Context, task *model.OutboxTask) error {
		return svc.UpdateForCourse(ctx, task.UserID, task.CourseID)
	}
}
