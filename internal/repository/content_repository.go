package repository

import (
	"context"

	"lms_progress_backend/internal/model"
	"lms_progress_backend/internal/util"

	"gorm.io/gorm"
)

// ContentRepository reads course/lesson/quiz/question configuration.
// Content is authored outside this engine; everything here is read-only.
type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) GetCourse(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *ContentRepository) GetLesson(ctx context.Context, id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).First(&lesson, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *ContentRepository) ListCourseLessons(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("`order` asc, id asc").
		Find(&lessons).Error
	return lessons, err
}

// GetQuizForLesson returns the lesson's quiz, or nil when the lesson
// has none.
func (r *ContentRepository) GetQuizForLesson(ctx context.Context, lessonID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).Where("lesson_id = ?", lessonID).First(&quiz).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *ContentRepository) GetQuiz(ctx context.Context, id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).First(&quiz, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *ContentRepository) ListQuizQuestions(ctx context.Context, quizID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("`order` asc, id asc").
		Find(&qs).Error
	return qs, err
}
