package service

import (
	"context"
	"math"

	"lms_progress_backend/internal/grading"
	"lms_progress_backend/internal/model"
	"lms_progress_backend/internal/repository"
	"lms_progress_backend/internal/util"
	"lms_progress_backend/pkg/logger"
	"lms_progress_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// QuizService orchestrates the submission lifecycle: answer saving with
// page-union semantics, auto-grading through the dispatcher, manual
// grading promotion, and the cascade into lesson and course progress.
type QuizService struct {
	Content     *repository.ContentRepository
	Identity    *repository.IdentityRepository
	Submissions *repository.SubmissionRepository
	Answers     *repository.AnswerRepository
	Grades      *repository.GradeRepository
	Lessons     *LessonProgressService
	Grader      *grading.Dispatcher
	Events      EventSink
}

func NewQuizService(
	content *repository.ContentRepository,
	identity *repository.IdentityRepository,
	submissions *repository.SubmissionRepository,
	answers *repository.AnswerRepository,
	grades *repository.GradeRepository,
	lessons *LessonProgressService,
	grader *grading.Dispatcher,
	events EventSink,
) *QuizService {
	return &QuizService{
		Content:     content,
		Identity:    identity,
		Submissions: submissions,
		Answers:     answers,
		Grades:      grades,
		Lessons:     lessons,
		Grader:      grader,
		Events:      events,
	}
}

// AnswerInput is one incoming answer for a question of the quiz.
type AnswerInput struct {
	QuestionID uint              `json:"questionId"`
	Value      model.AnswerValue `json:"value"`
}

// SaveResult reports which answers of a batch were accepted. Batch
// saves are best-effort per item: a dropped or failed answer never
// rolls back its siblings.
type SaveResult struct {
	Accepted []uint `json:"accepted"`
}

// SubmitResult is the outcome of a grading pass.
type SubmitResult struct {
	Submission   *model.QuizSubmission `json:"submission"`
	LessonStatus model.LessonStatus    `json:"lessonStatus"`
}

// GetSubmission returns the learner's submission for the quiz, or nil.
func (s *QuizService) GetSubmission(ctx context.Context, quizID, userID uint) (*model.QuizSubmission, error) {
	if _, err := s.Content.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return s.Submissions.Get(ctx, quizID, userID)
}

// ListAnswers returns the saved answers for the learner's submission.
func (s *QuizService) ListAnswers(ctx context.Context, quizID, userID uint) ([]model.QuizAnswer, error) {
	sub, err := s.GetSubmission(ctx, quizID, userID)
	if err != nil || sub == nil {
		return nil, err
	}
	return s.Answers.ListBySubmission(ctx, sub)
}

// ListGrades returns the per-question grades for the learner's
// submission.
func (s *QuizService) ListGrades(ctx context.Context, quizID, userID uint) ([]model.QuizGrade, error) {
	sub, err := s.GetSubmission(ctx, quizID, userID)
	if err != nil || sub == nil {
		return nil, err
	}
	return s.Grades.ListBySubmission(ctx, sub)
}

// SaveAnswers persists a page of answers without grading. Answers for
// questions outside the attempt's questions-asked set are dropped
// silently; later pages union with earlier ones.
func (s *QuizService) SaveAnswers(ctx context.Context, quizID, userID uint, answers []AnswerInput) (*SaveResult, error) {
	quiz, lesson, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, lesson, userID); err != nil {
		return nil, err
	}
	if _, err := s.Lessons.Start(ctx, lesson.ID, userID, false); err != nil {
		return nil, err
	}
	sub, err := s.ensureSubmission(ctx, quiz, userID)
	if err != nil {
		return nil, err
	}
	return s.saveAnswers(ctx, sub, answers), nil
}

// Submit saves the final page of answers and runs the grading pass over
// the full answer set. The submission's prior grades are deleted before
// recomputation, so a failure mid-grade leaves a well-defined ungraded
// submission rather than a half-written one.
func (s *QuizService) Submit(ctx context.Context, quizID, userID uint, answers []AnswerInput) (*SubmitResult, error) {
	quiz, lesson, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, lesson, userID); err != nil {
		return nil, err
	}
	if _, err := s.Lessons.Start(ctx, lesson.ID, userID, false); err != nil {
		return nil, err
	}
	sub, err := s.ensureSubmission(ctx, quiz, userID)
	if err != nil {
		return nil, err
	}
	s.saveAnswers(ctx, sub, answers)

	if err := s.Grades.DeleteBySubmission(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.Submissions.SetGrade(ctx, sub, nil, model.SubmissionUngraded); err != nil {
		return nil, err
	}

	questions, err := s.questionsByID(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	saved, err := s.Answers.ListBySubmission(ctx, sub)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[uint]model.AnswerValue, len(saved))
	for _, a := range saved {
		byQuestion[a.QuestionID] = a.Value
	}

	manualPending := false
	for _, qid := range sub.QuestionsAsked {
		q, ok := questions[qid]
		if !ok {
			continue
		}
		if !s.Grader.AutoGradable(q.QuestionType) {
			manualPending = true
			monitoring.GradingCounter.WithLabelValues(string(q.QuestionType), "manual").Inc()
			continue
		}
		res := s.Grader.Grade(q, byQuestion[qid])
		if err := s.Grades.SaveGrade(ctx, sub, qid, res.Points, ""); err != nil {
			return nil, err
		}
		outcome := "zero"
		if res.Points > 0 {
			outcome = "awarded"
		}
		monitoring.GradingCounter.WithLabelValues(string(q.QuestionType), outcome).Inc()
	}

	result, err := s.finalize(ctx, quiz, lesson, sub, questions, manualPending)
	if err != nil {
		return nil, err
	}
	s.Events.Emit(ctx, Event{Name: EventQuizSubmitted, UserID: userID, EntityID: quizID})
	monitoring.SubmissionCounter.WithLabelValues(string(result.Submission.Status)).Inc()
	return result, nil
}

// ManualGradeInput is a reviewer's grade for one question.
type ManualGradeInput struct {
	QuestionID uint    `json:"questionId"`
	Points     float64 `json:"points"`
	Feedback   string  `json:"feedback"`
}

// ApplyManualGrades records reviewer grades for questions the
// dispatcher could not grade and, once every asked question carries a
// grade, promotes the submission and lesson out of ungraded.
func (s *QuizService) ApplyManualGrades(ctx context.Context, quizID, userID uint, inputs []ManualGradeInput) (*SubmitResult, error) {
	quiz, lesson, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	sub, err := s.Submissions.Get(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, util.ErrSubmissionNotFound
	}
	questions, err := s.questionsByID(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	for _, in := range inputs {
		q, ok := questions[in.QuestionID]
		if !ok {
			continue
		}
		points := in.Points
		if points < 0 {
			points = 0
		}
		if max := float64(q.Points); points > max {
			points = max
		}
		if err := s.Grades.SaveGrade(ctx, sub, in.QuestionID, points, in.Feedback); err != nil {
			return nil, err
		}
	}

	graded, err := s.Grades.ListBySubmission(ctx, sub)
	if err != nil {
		return nil, err
	}
	gradedSet := make(map[uint]bool, len(graded))
	for _, g := range graded {
		gradedSet[g.QuestionID] = true
	}
	manualPending := false
	for _, qid := range sub.QuestionsAsked {
		if _, ok := questions[qid]; !ok {
			continue
		}
		if !gradedSet[qid] {
			manualPending = true
			break
		}
	}
	return s.finalize(ctx, quiz, lesson, sub, questions, manualPending)
}

// finalize computes the quiz-level grade from the graded subset and
// maps it onto submission and lesson status. The grade is the rounded
// percentage of earned over possible points among graded questions;
// ties with the pass mark count as a pass.
func (s *QuizService) finalize(ctx context.Context, quiz *model.Quiz, lesson *model.Lesson, sub *model.QuizSubmission, questions map[uint]*model.Question, manualPending bool) (*SubmitResult, error) {
	grades, err := s.Grades.ListBySubmission(ctx, sub)
	if err != nil {
		return nil, err
	}

	var earned, possible float64
	for _, g := range grades {
		q, ok := questions[g.QuestionID]
		if !ok {
			continue
		}
		earned += g.Points
		possible += float64(q.Points)
	}
	var grade *float64
	if possible > 0 {
		pct := math.Round(100 * earned / possible)
		grade = &pct
	}

	var status model.SubmissionStatus
	switch {
	case manualPending:
		status = model.SubmissionUngraded
	case quiz.PassRequired && grade != nil && *grade >= float64(quiz.PassMark):
		status = model.SubmissionPassed
	case quiz.PassRequired:
		status = model.SubmissionFailed
	default:
		status = model.SubmissionGraded
	}

	if err := s.Submissions.SetGrade(ctx, sub, grade, status); err != nil {
		return nil, err
	}

	lessonStatus := lessonStatusFor(status)
	if err := s.Lessons.applyGradingOutcome(ctx, lesson, sub.UserID, lessonStatus, grade); err != nil {
		return nil, err
	}

	logger.Log.Info("quiz graded",
		zap.Uint("quizId", quiz.ID),
		zap.Uint("userId", sub.UserID),
		zap.String("status", string(status)))
	return &SubmitResult{Submission: sub, LessonStatus: lessonStatus}, nil
}

func lessonStatusFor(status model.SubmissionStatus) model.LessonStatus {
	switch status {
	case model.SubmissionPassed:
		return model.LessonPassed
	case model.SubmissionFailed:
		return model.LessonFailed
	case model.SubmissionGraded:
		return model.LessonGraded
	default:
		return model.LessonUngraded
	}
}

func (s *QuizService) saveAnswers(ctx context.Context, sub *model.QuizSubmission, answers []AnswerInput) *SaveResult {
	result := &SaveResult{Accepted: []uint{}}
	for _, in := range answers {
		accepted, err := s.Answers.SaveAnswer(ctx, sub, in.QuestionID, in.Value)
		if err != nil {
			// Best effort per item: log and keep going so one failing
			// answer does not lose the rest of the page.
			logger.Log.Warn("answer save failed",
				zap.Uint("questionId", in.QuestionID),
				zap.Uint("userId", sub.UserID),
				zap.Error(err))
			continue
		}
		if accepted {
			result.Accepted = append(result.Accepted, in.QuestionID)
		}
	}
	return result
}

func (s *QuizService) ensureSubmission(ctx context.Context, quiz *model.Quiz, userID uint) (*model.QuizSubmission, error) {
	questions, err := s.Content.ListQuizQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	asked := make([]uint, 0, len(questions))
	for _, q := range questions {
		asked = append(asked, q.ID)
	}
	return s.Submissions.GetOrCreate(ctx, quiz.ID, userID, asked)
}

func (s *QuizService) loadQuiz(ctx context.Context, quizID uint) (*model.Quiz, *model.Lesson, error) {
	quiz, err := s.Content.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	lesson, err := s.Content.GetLesson(ctx, quiz.LessonID)
	if err != nil {
		return nil, nil, err
	}
	return quiz, lesson, nil
}

// checkEligibility rejects the whole operation before any write: a
// learner outside the course or short of the prerequisite produces no
// side effects at all.
func (s *QuizService) checkEligibility(ctx context.Context, lesson *model.Lesson, userID uint) error {
	ok, err := s.Identity.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrUserNotFound
	}
	enrolled, err := s.Identity.IsEnrolled(ctx, lesson.CourseID, userID)
	if err != nil {
		return err
	}
	if !enrolled {
		return util.ErrNotEnrolled
	}
	met, err := s.Lessons.prerequisiteMet(ctx, lesson, userID)
	if err != nil {
		return err
	}
	if !met {
		return util.ErrPrerequisiteNotMet
	}
	return nil
}

func (s *QuizService) questionsByID(ctx context.Context, quizID uint) (map[uint]*model.Question, error) {
	list, err := s.Content.ListQuizQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	m := make(map[uint]*model.Question, len(list))
	for i := range list {
		m[list[i].ID] = &list[i]
	}
	return m, nil
}
