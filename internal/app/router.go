package app

import (
	"lms_progress_backend/internal/middleware"
	"lms_progress_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/health", c.health.HealthCheck)
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")
	api.Use(middleware.Identity())
	{
		lessons := api.Group("/lessons")
		{
			lessons.POST("/:id/start", c.progress.StartLesson)
			lessons.POST("/:id/complete", c.progress.CompleteLesson)
			lessons.POST("/:id/reset", c.progress.ResetLesson)
			lessons.GET("/:id/progress", c.progress.GetLessonProgress)
		}

		courses := api.Group("/courses")
		{
			courses.POST("/:id/start", c.progress.StartCourse)
			courses.GET("/:id/progress", c.progress.GetCourseProgress)
			courses.DELETE("/:id/progress", c.progress.RemoveCourseProgress)
		}

		quizzes := api.Group("/quizzes")
		{
			quizzes.POST("/:id/answers", c.quiz.SaveAnswers)
			quizzes.POST("/:id/answers/file", c.quiz.UploadFileAnswer)
			quizzes.POST("/:id/submit", c.quiz.Submit)
			quizzes.GET("/:id/submission", c.quiz.GetSubmission)
			quizzes.GET("/:id/answers", c.quiz.ListAnswers)
			quizzes.GET("/:id/grades", c.quiz.ListGrades)
			quizzes.POST("/:id/grades/:userId", c.quiz.ApplyManualGrades)
		}
	}
}
