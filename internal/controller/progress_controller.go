package controller

import (
	"errors"
	"strconv"

	"lms_progress_backend/internal/middleware"
	"lms_progress_backend/internal/service"
	"lms_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Lessons *service.LessonProgressService
	Courses *service.CourseProgressService
}

func NewProgressController(lessons *service.LessonProgressService, courses *service.CourseProgressService) *ProgressController {
	return &ProgressController{Lessons: lessons, Courses: courses}
}

// serviceError maps the engine's error taxonomy onto HTTP statuses.
func serviceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrLessonNotFound),
		errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrSubmissionNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrNotEnrolled),
		errors.Is(err, util.ErrPrerequisiteNotMet),
		errors.Is(err, util.ErrResetNotAllowed),
		errors.Is(err, util.ErrPassRequired):
		util.Forbidden(ctx, err.Error())
	case errors.Is(err, util.ErrSubmissionConflict):
		util.Conflict(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// @Summary Start a lesson attempt
// @Tags progress
// @Produce json
// @Param id path int true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/start [post]
func (c *ProgressController) StartLesson(ctx *gin.Context) {
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var body struct {
		ForceComplete bool `json:"forceComplete"`
	}
	ctx.ShouldBindJSON(&body)

	progress, err := c.Lessons.Start(ctx.Request.Context(), lessonID, middleware.UserID(ctx), body.ForceComplete)
	if err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary Mark a lesson complete without grading
// @Tags progress
// @Produce json
// @Param id path int true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	progress, err := c.Lessons.Complete(ctx.Request.Context(), lessonID, middleware.UserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary Reset a lesson attempt
// @Tags progress
// @Produce json
// @Param id path int true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/reset [post]
func (c *ProgressController) ResetLesson(ctx *gin.Context) {
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Lessons.Reset(ctx.Request.Context(), lessonID, middleware.UserID(ctx)); err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"reset": true})
}

// @Summary Get lesson progress
// @Tags progress
// @Produce json
// @Param id path int true "lesson id"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/progress [get]
func (c *ProgressController) GetLessonProgress(ctx *gin.Context) {
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	progress, err := c.Lessons.Get(ctx.Request.Context(), lessonID, middleware.UserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	if progress == nil {
		util.NotFound(ctx, "lesson not started")
		return
	}
	util.Success(ctx, progress)
}

// @Summary Get course progress
// @Tags progress
// @Produce json
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/progress [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	progress, err := c.Courses.Get(ctx.Request.Context(), courseID, middleware.UserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	if progress == nil {
		util.NotFound(ctx, "course not started")
		return
	}
	util.Success(ctx, progress)
}

// @Summary Enroll: start course progress explicitly
// @Tags progress
// @Produce json
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/start [post]
func (c *ProgressController) StartCourse(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	progress, err := c.Courses.Start(ctx.Request.Context(), courseID, middleware.UserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary Remove the learner from a course, erasing all progress
// @Tags progress
// @Produce json
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/progress [delete]
func (c *ProgressController) RemoveCourseProgress(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Courses.Remove(ctx.Request.Context(), courseID, middleware.UserID(ctx), c.Lessons); err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"removed": true})
}
