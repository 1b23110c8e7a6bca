// Package testutil 测试公共工具
package testutil

import (
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	dbSeq   atomic.Int64
	userSeq atomic.Int64
)

// DB 每个测试独立的内存数据库，单连接保证事务串行
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.InitNop()

	dsn := fmt.Sprintf("file:learnhub_test_%d?mode=memory&cache=shared&_busy_timeout=5000", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, name string, premium bool) *model.User {
	t.Helper()
	u := &model.User{
		Name:      name,
		Email:     fmt.Sprintf("%s_%d@example.com", name, userSeq.Add(1)),
		Password:  "-",
		Role:      model.Student,
		IsPremium: premium,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateCourse(t *testing.T, db *gorm.DB, title string, premium, certificate bool) *model.Course {
	t.Helper()
	c := &model.Course{
		Title:          title,
		Category:       "programming",
		Level:          "beginner",
		IsPremium:      premium,
		HasCertificate: certificate,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func CreateEvent(t *testing.T, db *gorm.DB, title string, startsAt time.Time, maxAttendees int) *model.Event {
	t.Helper()
	e := &model.Event{
		Title:        title,
		StartsAt:     startsAt,
		MaxAttendees: maxAttendees,
	}
	require.NoError(t, db.Create(e).Error)
	return e
}
