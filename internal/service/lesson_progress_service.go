package service

import (
	"context"
	"strconv"
	"time"

	"lms_progress_backend/internal/model"
	"lms_progress_backend/internal/repository"
	"lms_progress_backend/internal/util"
	"lms_progress_backend/pkg/logger"

	"go.uber.org/zap"
)

// LessonProgressService owns the lesson state machine. Terminal
// statuses (complete, graded, passed, failed) only move again through
// resubmission or reset.
type LessonProgressService struct {
	Activities  *repository.ActivityLogRepository
	Content     *repository.ContentRepository
	Identity    *repository.IdentityRepository
	Submissions *repository.SubmissionRepository
	Answers     *repository.AnswerRepository
	Grades      *repository.GradeRepository
	Courses     *CourseProgressService
	Events      EventSink
}

func NewLessonProgressService(
	activities *repository.ActivityLogRepository,
	content *repository.ContentRepository,
	identity *repository.IdentityRepository,
	submissions *repository.SubmissionRepository,
	answers *repository.AnswerRepository,
	grades *repository.GradeRepository,
	courses *CourseProgressService,
	events EventSink,
) *LessonProgressService {
	return &LessonProgressService{
		Activities:  activities,
		Content:     content,
		Identity:    identity,
		Submissions: submissions,
		Answers:     answers,
		Grades:      grades,
		Courses:     courses,
		Events:      events,
	}
}

// Start begins a lesson attempt. Idempotent: an existing record is
// returned unchanged. The first start within a course cascades into a
// course progress record. With forceComplete the record jumps straight
// to its terminal status: complete for quiz-less lessons, passed when a
// quiz with questions exists.
func (s *LessonProgressService) Start(ctx context.Context, lessonID, userID uint, forceComplete bool) (*model.LessonProgress, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	lesson, err := s.Content.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	row, err := s.Activities.Find(ctx, lessonID, userID, model.ActivityLessonProgress)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return lessonProgressFromRow(row)
	}

	status := model.LessonInProgress
	if forceComplete {
		status = model.LessonComplete
		quiz, err := s.Content.GetQuizForLesson(ctx, lessonID)
		if err != nil {
			return nil, err
		}
		if quiz != nil {
			questions, err := s.Content.ListQuizQuestions(ctx, quiz.ID)
			if err != nil {
				return nil, err
			}
			if len(questions) > 0 {
				status = model.LessonPassed
			}
		}
	}

	row = &model.ActivityLog{
		SubjectID:    lessonID,
		UserID:       userID,
		ActivityType: model.ActivityLessonProgress,
		Status:       string(status),
		Metadata: map[string]string{
			model.MetaStart: strconv.FormatInt(time.Now().Unix(), 10),
		},
	}
	if err := s.Activities.Upsert(ctx, row); err != nil {
		return nil, err
	}

	if _, err := s.Courses.Start(ctx, lesson.CourseID, userID); err != nil {
		return nil, err
	}
	if forceComplete {
		if _, err := s.Courses.Recompute(ctx, lesson.CourseID, userID); err != nil {
			return nil, err
		}
		s.Events.Emit(ctx, Event{Name: EventLessonCompleted, UserID: userID, EntityID: lessonID})
	}
	return lessonProgressFromRow(row)
}

// Get returns the learner's lesson progress, or nil when the lesson has
// not been started.
func (s *LessonProgressService) Get(ctx context.Context, lessonID, userID uint) (*model.LessonProgress, error) {
	row, err := s.Activities.Find(ctx, lessonID, userID, model.ActivityLessonProgress)
	if err != nil || row == nil {
		return nil, err
	}
	return lessonProgressFromRow(row)
}

// Complete marks a lesson complete without a grading pass. Only valid
// when the lesson has no quiz with questions, or the quiz does not
// require passing; pass-required lessons complete through submission.
func (s *LessonProgressService) Complete(ctx context.Context, lessonID, userID uint) (*model.LessonProgress, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	lesson, err := s.Content.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.Content.GetQuizForLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if quiz != nil && quiz.PassRequired {
		questions, err := s.Content.ListQuizQuestions(ctx, quiz.ID)
		if err != nil {
			return nil, err
		}
		if len(questions) > 0 {
			return nil, util.ErrPassRequired
		}
	}

	progress, err := s.Start(ctx, lessonID, userID, false)
	if err != nil {
		return nil, err
	}
	if progress.Status != model.LessonInProgress {
		// Already terminal; completing again is a no-op.
		return progress, nil
	}

	if err := s.setStatus(ctx, lessonID, userID, model.LessonComplete, nil); err != nil {
		return nil, err
	}
	if _, err := s.Courses.Recompute(ctx, lesson.CourseID, userID); err != nil {
		return nil, err
	}
	s.Events.Emit(ctx, Event{Name: EventLessonCompleted, UserID: userID, EntityID: lessonID})
	return s.Get(ctx, lessonID, userID)
}

// Reset destroys the learner's quiz submission — answers and grades
// cascade — and returns the lesson to in-progress with a fresh start
// timestamp. Destructive but idempotent: resetting an already reset (or
// never started) lesson is a no-op.
func (s *LessonProgressService) Reset(ctx context.Context, lessonID, userID uint) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	lesson, err := s.Content.GetLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	quiz, err := s.Content.GetQuizForLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if quiz != nil && !quiz.ResetAllowed {
		return util.ErrResetNotAllowed
	}

	row, err := s.Activities.Find(ctx, lessonID, userID, model.ActivityLessonProgress)
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}

	if quiz != nil {
		if err := s.deleteSubmission(ctx, quiz.ID, userID); err != nil {
			return err
		}
	}

	row.Status = string(model.LessonInProgress)
	row.Metadata = map[string]string{
		model.MetaStart: strconv.FormatInt(time.Now().Unix(), 10),
	}
	if err := s.Activities.Upsert(ctx, row); err != nil {
		return err
	}

	if _, err := s.Courses.Recompute(ctx, lesson.CourseID, userID); err != nil {
		return err
	}
	s.Events.Emit(ctx, Event{Name: EventLessonReset, UserID: userID, EntityID: lessonID})
	logger.Log.Info("lesson reset",
		zap.Uint("lessonId", lessonID), zap.Uint("userId", userID))
	return nil
}

// applyGradingOutcome records the grading result on the lesson and
// re-aggregates the course. Called by the quiz service after a
// submission or manual grading pass.
func (s *LessonProgressService) applyGradingOutcome(ctx context.Context, lesson *model.Lesson, userID uint, status model.LessonStatus, grade *float64) error {
	if err := s.setStatus(ctx, lesson.ID, userID, status, grade); err != nil {
		return err
	}
	course, err := s.Content.GetCourse(ctx, lesson.CourseID)
	if err != nil {
		return err
	}
	if _, err := s.Courses.Recompute(ctx, lesson.CourseID, userID); err != nil {
		return err
	}
	if course.CompletionPolicy.CountsComplete(status) {
		s.Events.Emit(ctx, Event{Name: EventLessonCompleted, UserID: userID, EntityID: lesson.ID})
	}
	return nil
}

// prerequisiteMet reports whether the lesson's prerequisite, if any,
// has been completed by the learner. Prerequisites count under the
// default completed policy regardless of the course policy.
func (s *LessonProgressService) prerequisiteMet(ctx context.Context, lesson *model.Lesson, userID uint) (bool, error) {
	if lesson.PrerequisiteID == nil {
		return true, nil
	}
	progress, err := s.Get(ctx, *lesson.PrerequisiteID, userID)
	if err != nil {
		return false, err
	}
	if progress == nil {
		return false, nil
	}
	return model.PolicyLessonsCompleted.CountsComplete(progress.Status), nil
}

// removeProgress erases the lesson record and its submission without
// recomputing the course; used by forced course removal where the
// course record itself is being deleted.
func (s *LessonProgressService) removeProgress(ctx context.Context, lessonID, userID uint) error {
	quiz, err := s.Content.GetQuizForLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if quiz != nil {
		if err := s.deleteSubmission(ctx, quiz.ID, userID); err != nil {
			return err
		}
	}
	return s.Activities.Delete(ctx, lessonID, userID, model.ActivityLessonProgress)
}

func (s *LessonProgressService) deleteSubmission(ctx context.Context, quizID, userID uint) error {
	sub, err := s.Submissions.Get(ctx, quizID, userID)
	if err != nil || sub == nil {
		return err
	}
	if err := s.Answers.DeleteBySubmission(ctx, sub); err != nil {
		return err
	}
	if err := s.Grades.DeleteBySubmission(ctx, sub); err != nil {
		return err
	}
	return s.Submissions.Delete(ctx, quizID, userID)
}

func (s *LessonProgressService) setStatus(ctx context.Context, lessonID, userID uint, status model.LessonStatus, grade *float64) error {
	row, err := s.Activities.Find(ctx, lessonID, userID, model.ActivityLessonProgress)
	if err != nil {
		return err
	}
	if row == nil {
		row = &model.ActivityLog{
			SubjectID:    lessonID,
			UserID:       userID,
			ActivityType: model.ActivityLessonProgress,
			Metadata: map[string]string{
				model.MetaStart: strconv.FormatInt(time.Now().Unix(), 10),
			},
		}
	}
	if row.Metadata == nil {
		row.Metadata = map[string]string{}
	}
	row.Status = string(status)
	if grade != nil {
		row.Metadata[model.MetaGrade] = strconv.FormatFloat(*grade, 'f', -1, 64)
	} else {
		delete(row.Metadata, model.MetaGrade)
	}
	return s.Activities.Upsert(ctx, row)
}

func (s *LessonProgressService) requireUser(ctx context.Context, userID uint) error {
	ok, err := s.Identity.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrUserNotFound
	}
	return nil
}

func lessonProgressFromRow(row *model.ActivityLog) (*model.LessonProgress, error) {
	status, err := model.ParseLessonStatus(row.Status)
	if err != nil {
		return nil, err
	}
	lp := &model.LessonProgress{
		LessonID: row.SubjectID,
		UserID:   row.UserID,
		Status:   status,
	}
	if v, ok := row.Metadata[model.MetaStart]; ok {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			lp.StartedAt = time.Unix(ts, 0)
		}
	}
	if v, ok := row.Metadata[model.MetaGrade]; ok {
		if g, err := strconv.ParseFloat(v, 64); err == nil {
			lp.Grade = &g
		}
	}
	return lp, nil
}
