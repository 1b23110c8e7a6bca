package repository

import (
	"context"
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// WithTx 返回绑定到事务的副本
func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

type CourseQuery struct {
	Category string
	Level    string
	Search   string
	SortBy   string // popular, newest, rating
	Skip     int
	Limit    int
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetail 预加载章节和课时，按 sort_order 排序
func (r *CourseRepository) FindDetail(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) List(ctx context.Context, q CourseQuery) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Course{})
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Level != "" {
		query = query.Where("level = ?", q.Level)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch q.SortBy {
	case "popular":
		query = query.Order("enrolled_count DESC")
	case "newest":
		query = query.Order("created_at DESC")
	case "rating":
		query = query.Order("average_rating DESC")
	}
	query = query.Order("id ASC")

	err := query.Offset(q.Skip).Limit(q.Limit).Find(&courses).Error
	if err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

func (r *CourseRepository) Filter(ctx context.Context, categories []string, level string) ([]model.Course, error) {
	var courses []model.Course
	query := r.DB.WithContext(ctx).Model(&model.Course{})
	if len(categories) > 0 {
		query = query.Where("category IN ?", categories)
	}
	if level != "" {
		query = query.Where("level = ?", level)
	}
	err := query.Order("id ASC").Find(&courses).Error
	return courses, err
}

// Create 连同章节、课时一起写入
func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) IncrementEnrolled(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", id).
		UpdateColumn("enrolled_count", gorm.Expr("enrolled_count + 1")).
		Error
}
