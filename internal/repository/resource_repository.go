package repository

import (
	"context"
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResourceRepository struct {
	DB *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{DB: db}
}

func (r *ResourceRepository) WithTx(tx *gorm.DB) *ResourceRepository {
	return &ResourceRepository{DB: tx}
}

type ResourceQuery struct {
	Query    string
	Category string
	Type     string
	SortBy   string // popular, recent, relevance
	Skip     int
	Limit    int
}

func (r *ResourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	return r.DB.WithContext(ctx).Create(resource).Error
}

func (r *ResourceRepository) FindByID(ctx context.Context, id uint) (*model.Resource, error) {
	var resource model.Resource
	err := r.DB.WithContext(ctx).First(&resource, id).Error
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

func (r *ResourceRepository) Search(ctx context.Context, q ResourceQuery) ([]model.Resource, int64, error) {
	var resources []model.Resource
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Resource{})
	like := "%" + q.Query + "%"
	if q.Query != "" {
		query = query.Where("title LIKE ? OR description LIKE ? OR tags LIKE ?", like, like, like)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Type != "" {
		query = query.Where("type = ?", q.Type)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch {
	case q.SortBy == "popular":
		query = query.Order("download_count DESC").Order("id ASC")
	case q.SortBy == "recent":
		query = query.Order("created_at DESC").Order("id ASC")
	case q.Query != "":
		// 标题命中优先；带参数的排序表达式与普通列排序合并时会被 gorm 丢弃，必须写在同一个子句里
		query = query.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE WHEN title LIKE ? THEN 0 ELSE 1 END, view_count DESC, id ASC",
			Vars: []interface{}{like},
		}})
	default:
		query = query.Order("view_count DESC").Order("id ASC")
	}

	err := query.Offset(q.Skip).Limit(q.Limit).Find(&resources).Error
	if err != nil {
		return nil, 0, err
	}
	return resources, total, nil
}

func (r *ResourceRepository) IncrementDownloadCount(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Resource{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).
		Error
}

func (r *ResourceRepository) IncrementViewCount(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Resource{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).
		Error
}

func (r *ResourceRepository) CreateDownload(ctx context.Context, download *model.ResourceDownload) error {
	return r.DB.WithContext(ctx).Create(download).Error
}

func (r *ResourceRepository) CreateView(ctx context.Context, view *model.ResourceView) error {
	return r.DB.WithContext(ctx).Create(view).Error
}

// RecentInteractions 用户最近浏览或下载过的资源，按时间倒序去重
func (r *ResourceRepository) RecentInteractions(ctx context.Context, userID uint, limit int) ([]model.Resource, error) {
	var views []model.ResourceView
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("viewed_at DESC").
		Limit(limit).
		Find(&views).Error; err != nil {
		return nil, err
	}
	var downloads []model.ResourceDownload
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("downloaded_at DESC").
		Limit(limit).
		Find(&downloads).Error; err != nil {
		return nil, err
	}

	// 合并两类记录后按时间倒序
	merged := mergeInteractions(views, downloads)
	ids := make([]uint, 0, limit)
	seen := make(map[uint]bool)
	for _, id := range merged {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var resources []model.Resource
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&resources).Error
	return resources, err
}

// FindRecommended 按分类或标签匹配，排除已接触过的资源
func (r *ResourceRepository) FindRecommended(ctx context.Context, categories, tags []string, exclude []uint, limit int) ([]model.Resource, error) {
	var resources []model.Resource
	if len(categories) == 0 && len(tags) == 0 {
		return resources, nil
	}

	match := r.DB.Where("1 = 0")
	if len(categories) > 0 {
		match = match.Or("category IN ?", categories)
	}
	for _, tag := range tags {
		match = match.Or("tags LIKE ?", "%\""+tag+"\"%")
	}

	query := r.DB.WithContext(ctx).Where(match)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	err := query.Order("download_count DESC").Order("id ASC").Limit(limit).Find(&resources).Error
	return resources, err
}

func (r *ResourceRepository) FindPopular(ctx context.Context, limit int) ([]model.Resource, error) {
	var resources []model.Resource
	err := r.DB.WithContext(ctx).Order("download_count DESC").Order("id ASC").Limit(limit).Find(&resources).Error
	return resources, err
}

func mergeInteractions(views []model.ResourceView, downloads []model.ResourceDownload) []uint {
	ids := make([]uint, 0, len(views)+len(downloads))
	i, j := 0, 0
	for i < len(views) || j < len(downloads) {
		if j >= len(downloads) || (i < len(views) && !views[i].ViewedAt.Before(downloads[j].DownloadedAt)) {
			ids = append(ids, views[i].ResourceID)
			i++
			continue
		}
		ids = append(ids, downloads[j].ResourceID)
		j++
	}
	return ids
}
