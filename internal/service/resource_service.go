package service

import (
	"context"
	"errors"
	"io"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	recentInteractionLimit = 10
	recommendationLimit    = 5
)

type ResourceService struct {
	DB           *gorm.DB
	ResourceRepo *repository.ResourceRepository
	Storage      StorageProvider
	// 测试时可替换
	probeDuration func(path string) (float64, error)
	now           func() time.Time
}

func NewResourceService(db *gorm.DB, repo *repository.ResourceRepository, storage StorageProvider) *ResourceService {
	return &ResourceService{
		DB:            db,
		ResourceRepo:  repo,
		Storage:       storage,
		probeDuration: util.ProbeVideoDuration,
		now:           time.Now,
	}
}

type UploadResourceRequest struct {
	Title       string   `form:"title" binding:"required"`
	Description string   `form:"description"`
	Category    string   `form:"category"`
	Type        string   `form:"type"`
	Tags        []string `form:"tags"`
}

type DownloadResult struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

func (s *ResourceService) Search(ctx context.Context, q repository.ResourceQuery) (*util.PageResponse, error) {
	resources, total, err := s.ResourceRepo.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: resources, Total: total, Skip: q.Skip, Limit: q.Limit}, nil
}

func (s *ResourceService) Get(ctx context.Context, id uint) (*model.Resource, error) {
	resource, err := s.ResourceRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrResourceNotFound
	}
	return resource, err
}

// Upload 校验文件类型后写入存储，视频会尝试读取时长
func (s *ResourceService) Upload(ctx context.Context, uploaderID uint, req UploadResourceRequest, fileName string, file io.ReadSeeker, size int64) (*model.Resource, error) {
	contentType, err := util.ValidateMimeType(file, util.AllowedResourceTypes)
	if err != nil {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := "resources/" + model.GenerateUUID() + strings.ToLower(filepath.Ext(fileName))
	resource := &model.Resource{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Type:        req.Type,
		Tags:        req.Tags,
		FileKey:     key,
		FileName:    filepath.Base(fileName),
		ContentType: contentType,
		FileSize:    size,
		UploaderID:  uploaderID,
	}
	if resource.Type == "" {
		resource.Type = "document"
		if util.IsVideo(contentType) {
			resource.Type = "video"
		}
	}

	var url string
	if util.IsVideo(contentType) {
		url, resource.Duration, err = s.uploadVideo(ctx, key, file, contentType)
	} else {
		url, err = s.Storage.Upload(ctx, key, file, size, contentType)
	}
	if err != nil {
		return nil, err
	}
	resource.FileURL = url

	if err := s.ResourceRepo.Create(ctx, resource); err != nil {
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("Failed to clean up uploaded file", zap.Error(delErr), zap.String("key", key))
		}
		return nil, err
	}
	return resource, nil
}

// uploadVideo 先落到临时文件供 ffprobe 读取
func (s *ResourceService) uploadVideo(ctx context.Context, key string, file io.Reader, contentType string) (string, float64, error) {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(key))
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}

	duration, err := s.probeDuration(tmp.Name())
	if err != nil {
		logger.Log.Warn("Failed to probe video duration", zap.Error(err), zap.String("key", key))
		duration = 0
	}

	url, err := s.Storage.UploadFile(ctx, key, tmp.Name(), contentType)
	if err != nil {
		return "", 0, err
	}
	return url, duration, nil
}

// Download 记录下载并原子累加下载次数
func (s *ResourceService) Download(ctx context.Context, userID, resourceID uint, ip string) (*DownloadResult, error) {
	var result *DownloadResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ResourceRepo.WithTx(tx)
		resource, err := repo.FindByID(ctx, resourceID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrResourceNotFound
		}
		if err != nil {
			return err
		}

		if err := repo.CreateDownload(ctx, &model.ResourceDownload{
			ResourceID:   resourceID,
			UserID:       userID,
			IPAddress:    ip,
			DownloadedAt: s.now(),
		}); err != nil {
			return err
		}
		if err := repo.IncrementDownloadCount(ctx, resourceID); err != nil {
			return err
		}

		url := resource.FileURL
		if url == "" && resource.FileKey != "" {
			url = s.Storage.GetURL(resource.FileKey)
		}
		result = &DownloadResult{URL: url, FileName: resource.FileName}
		return nil
	})
	return result, err
}

func (s *ResourceService) TrackView(ctx context.Context, userID, resourceID uint, ip string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ResourceRepo.WithTx(tx)
		if _, err := repo.FindByID(ctx, resourceID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrResourceNotFound
			}
			return err
		}
		if err := repo.CreateView(ctx, &model.ResourceView{
			ResourceID: resourceID,
			UserID:     userID,
			IPAddress:  ip,
			ViewedAt:   s.now(),
		}); err != nil {
			return err
		}
		return repo.IncrementViewCount(ctx, resourceID)
	})
}

// Recommended 根据最近接触过的资源的分类和标签推荐，没有历史时返回最热门的资源
func (s *ResourceService) Recommended(ctx context.Context, userID uint) ([]model.Resource, error) {
	recent, err := s.ResourceRepo.RecentInteractions(ctx, userID, recentInteractionLimit)
	if err != nil {
		return nil, err
	}

	var categories, tags []string
	var exclude []uint
	seenCategory := make(map[string]bool)
	seenTag := make(map[string]bool)
	for _, r := range recent {
		exclude = append(exclude, r.ID)
		if r.Category != "" && !seenCategory[r.Category] {
			seenCategory[r.Category] = true
			categories = append(categories, r.Category)
		}
		for _, t := range r.Tags {
			if t != "" && !seenTag[t] {
				seenTag[t] = true
				tags = append(tags, t)
			}
		}
	}

	recommended, err := s.ResourceRepo.FindRecommended(ctx, categories, tags, exclude, recommendationLimit)
	if err != nil {
		return nil, err
	}
	if len(recommended) > 0 {
		return recommended, nil
	}
	return s.ResourceRepo.FindPopular(ctx, recommendationLimit)
}
