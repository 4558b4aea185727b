package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"lms_progress_backend/internal/grading"
	"lms_progress_backend/internal/model"
	"lms_progress_backend/internal/repository"
	"lms_progress_backend/pkg/cache"
	"lms_progress_backend/pkg/database"
	"lms_progress_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

// recordSink captures emitted events for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordSink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordSink) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

type fixture struct {
	db      *gorm.DB
	sink    *recordSink
	lessons *LessonProgressService
	courses *CourseProgressService
	quizzes *QuizService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	activities := repository.NewActivityLogRepository(db, cache.NewMemoryCache(time.Minute))
	content := repository.NewContentRepository(db)
	identity := repository.NewIdentityRepository(db)
	submissions := repository.NewSubmissionRepository(activities)
	answers := repository.NewAnswerRepository(activities)
	grades := repository.NewGradeRepository(activities, answers)

	sink := &recordSink{}
	courses := NewCourseProgressService(activities, content, sink)
	lessons := NewLessonProgressService(activities, content, identity, submissions, answers, grades, courses, sink)
	quizzes := NewQuizService(content, identity, submissions, answers, grades, lessons, grading.NewDispatcher(), sink)

	return &fixture{db: db, sink: sink, lessons: lessons, courses: courses, quizzes: quizzes}
}

func (f *fixture) seedUser(t *testing.T) uint {
	t.Helper()
	u := &model.User{Name: "learner", Email: fmt.Sprintf("%s@test", strings.ReplaceAll(t.Name(), "/", "_"))}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func (f *fixture) seedCourse(t *testing.T, policy model.CompletionPolicy) uint {
	t.Helper()
	c := &model.Course{Title: "course", CompletionPolicy: policy}
	if err := f.db.Create(c).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c.ID
}

func (f *fixture) seedLesson(t *testing.T, courseID uint, prereq *uint) uint {
	t.Helper()
	l := &model.Lesson{CourseID: courseID, Title: "lesson", PrerequisiteID: prereq}
	if err := f.db.Create(l).Error; err != nil {
		t.Fatalf("seed lesson: %v", err)
	}
	return l.ID
}

func (f *fixture) seedQuiz(t *testing.T, lessonID uint, passMark int, passRequired, resetAllowed bool) uint {
	t.Helper()
	q := &model.Quiz{LessonID: lessonID, PassMark: passMark, PassRequired: passRequired, ResetAllowed: resetAllowed}
	if err := f.db.Create(q).Error; err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return q.ID
}

func (f *fixture) seedQuestion(t *testing.T, quizID uint, qt model.QuestionType, answer string, points int) uint {
	t.Helper()
	q := &model.Question{QuizID: quizID, QuestionType: qt, Content: "q", Answer: answer, Points: points}
	if err := f.db.Create(q).Error; err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q.ID
}

func (f *fixture) enroll(t *testing.T, courseID, userID uint) {
	t.Helper()
	if err := f.db.Create(&model.Enrollment{CourseID: courseID, UserID: userID}).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
}

func text(s string) model.AnswerValue {
	return model.AnswerValue{Text: s}
}
