package controller

import (
	"lms_progress_backend/internal/middleware"
	"lms_progress_backend/internal/model"
	"lms_progress_backend/internal/service"
	"lms_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Quizzes *service.QuizService
	Storage service.BlobStore
}

func NewQuizController(quizzes *service.QuizService, storage service.BlobStore) *QuizController {
	return &QuizController{Quizzes: quizzes, Storage: storage}
}

// @Summary Save a page of answers without grading
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path int true "quiz id"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id}/answers [post]
func (c *QuizController) SaveAnswers(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var body struct {
		Answers []service.AnswerInput `json:"answers"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.Quizzes.SaveAnswers(ctx.Request.Context(), quizID, middleware.UserID(ctx), body.Answers)
	if err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Submit the quiz for grading
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path int true "quiz id"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id}/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var body struct {
		Answers []service.AnswerInput `json:"answers"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.Quizzes.Submit(ctx.Request.Context(), quizID, middleware.UserID(ctx), body.Answers)
	if err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Upload a file answer for one question
// @Tags quiz
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "quiz id"
// @Param questionId formData int true "question id"
// @Param file formData file true "answer file"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id}/answers/file [post]
func (c *QuizController) UploadFileAnswer(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var form struct {
		QuestionID uint `form:"questionId" binding:"required"`
	}
	if err := ctx.ShouldBind(&form); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "missing file")
		return
	}
	src, err := file.Open()
	if err != nil {
		util.BadRequest(ctx, "unreadable file")
		return
	}
	defer src.Close()

	attachmentID, err := c.Storage.Store(ctx.Request.Context(), file.Filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		serviceError(ctx, err)
		return
	}

	result, err := c.Quizzes.SaveAnswers(ctx.Request.Context(), quizID, middleware.UserID(ctx), []service.AnswerInput{
		{QuestionID: form.QuestionID, Value: model.AnswerValue{AttachmentID: attachmentID}},
	})
	if err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Get the learner's submission
// @Tags quiz
// @Produce json
// @Param id path int true "quiz id"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id}/submission [get]
func (c *QuizController) GetSubmission(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	sub, err := c.Quizzes.GetSubmission(ctx.Request.Context(), quizID, middleware.UserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	if sub == nil {
		util.NotFound(ctx, "no submission")
		return
	}
	util.Success(ctx, sub)
}

// @Summary List saved answers
// @Tags quiz
// @Produce json
// @Param id path int true "quiz id"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id}/answers [get]
func (c *QuizController) ListAnswers(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	answers, err := c.Quizzes.ListAnswers(ctx.Request.Context(), quizID, middleware.UserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, answers)
}

// @Summary List per-question grades
// @Tags quiz
// @Produce json
// @Param id path int true "quiz id"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id}/grades [get]
func (c *QuizController) ListGrades(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	grades, err := c.Quizzes.ListGrades(ctx.Request.Context(), quizID, middleware.UserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, grades)
}

// @Summary Apply reviewer grades for manual questions
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path int true "quiz id"
// @Param userId path int true "learner id"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id}/grades/{userId} [post]
func (c *QuizController) ApplyManualGrades(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	learnerID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}
	var body struct {
		Grades []service.ManualGradeInput `json:"grades"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.Quizzes.ApplyManualGrades(ctx.Request.Context(), quizID, learnerID, body.Grades)
	if err != nil {
		serviceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
