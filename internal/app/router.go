package app

import (
	"learnhub_backend/docs"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")

	// 1. 公共路由
	api.GET("/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := api.Group("")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)

		teacher := authGroup.Group("")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		a.registerTeacherRoutes(teacher, c)

		admin := authGroup.Group("")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		a.registerAdminRoutes(admin, c)
	}
}

func (a *App) registerStudentRoutes(r *gin.RouterGroup, c *controllers) {
	r.GET("/courses", c.course.ListCourses)
	r.POST("/courses/filter", c.course.FilterCourses)
	r.GET("/courses/:id", c.course.GetCourse)
	r.POST("/courses/enroll", c.course.Enroll)
	r.PUT("/courses/:id/progress", c.course.UpdateProgress)
	r.GET("/enrollments", c.course.ListEnrollments)

	r.GET("/users/:userId/progress", c.progress.GetUserProgress)
	r.GET("/certificates", c.progress.ListCertificates)

	r.GET("/achievements", c.achievement.GetUserAchievements)
	r.GET("/achievements/leaderboard", c.achievement.GetLeaderboard)

	r.GET("/events", c.event.ListUpcoming)
	r.GET("/events/registrations", c.event.ListRegistrations)
	r.GET("/events/:id", c.event.GetEvent)
	r.POST("/events/register", c.event.Register)
	r.POST("/events/:id/feedback", c.event.SubmitFeedback)

	r.GET("/resources/search", c.resource.Search)
	r.GET("/resources/recommended", c.resource.Recommended)
	r.GET("/resources/:id", c.resource.Get)
	r.POST("/resources/:id/download", c.resource.Download)
	r.POST("/resources/track-view", c.resource.TrackView)

	r.GET("/forum/topics", c.community.ListTopics)
	r.POST("/forum/topics", c.community.CreateTopic)
	r.GET("/forum/topics/:id", c.community.GetTopic)
	r.POST("/forum/topics/:id/replies", c.community.Reply)

	r.GET("/assessments/:id", c.assessment.GetAssessment)
	r.POST("/assessments/:id/attempts", c.assessment.Submit)
	r.GET("/assessments/:id/attempts", c.assessment.ListAttempts)

	r.GET("/notifications", c.notification.List)
	r.PATCH("/notifications/:id/read", c.notification.MarkAsRead)
	r.GET("/ws", c.notification.Connect)

	r.GET("/consents", c.consent.List)
	r.POST("/consents", c.consent.Record)
	r.DELETE("/consents/:type", c.consent.Revoke)
}

func (a *App) registerTeacherRoutes(r *gin.RouterGroup, c *controllers) {
	r.POST("/courses", c.course.CreateCourse)
	r.POST("/resources", c.resource.Upload)
}

func (a *App) registerAdminRoutes(r *gin.RouterGroup, c *controllers) {
	r.POST("/events", c.event.CreateEvent)
	r.POST("/events/:id/attendance/:userId", c.event.MarkAttended)
}
