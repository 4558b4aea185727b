package service

import (
	"context"
	"errors"
	"testing"

	"lms_progress_backend/internal/model"
	"lms_progress_backend/internal/util"
)

func TestStartLessonIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	lessonID := f.seedLesson(t, courseID, nil)

	first, err := f.lessons.Start(ctx, lessonID, userID, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.Status != model.LessonInProgress {
		t.Errorf("status = %s, want in-progress", first.Status)
	}

	second, err := f.lessons.Start(ctx, lessonID, userID, false)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if second.StartedAt != first.StartedAt || second.Status != first.Status {
		t.Errorf("restart changed the record: %+v vs %+v", second, first)
	}

	// The first lesson start cascades into a course record.
	cp, err := f.courses.Get(ctx, courseID, userID)
	if err != nil {
		t.Fatalf("course get: %v", err)
	}
	if cp == nil || cp.Status != model.CourseInProgress {
		t.Errorf("course progress = %+v, want in-progress", cp)
	}
}

func TestStartLessonUnknownUserOrLesson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	lessonID := f.seedLesson(t, courseID, nil)

	if _, err := f.lessons.Start(ctx, lessonID, userID+100, false); !errors.Is(err, util.ErrUserNotFound) {
		t.Errorf("unknown user: err = %v", err)
	}
	if _, err := f.lessons.Start(ctx, lessonID+100, userID, false); !errors.Is(err, util.ErrLessonNotFound) {
		t.Errorf("unknown lesson: err = %v", err)
	}
}

func TestForceCompleteOnStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	plain := f.seedLesson(t, courseID, nil)
	quizzed := f.seedLesson(t, courseID, nil)
	quizID := f.seedQuiz(t, quizzed, 50, true, true)
	f.seedQuestion(t, quizID, model.QuestionShortAnswer, "x", 1)

	lp, err := f.lessons.Start(ctx, plain, userID, true)
	if err != nil {
		t.Fatalf("force start: %v", err)
	}
	if lp.Status != model.LessonComplete {
		t.Errorf("quiz-less lesson forced to %s, want complete", lp.Status)
	}

	lp, err = f.lessons.Start(ctx, quizzed, userID, true)
	if err != nil {
		t.Fatalf("force start with quiz: %v", err)
	}
	if lp.Status != model.LessonPassed {
		t.Errorf("quizzed lesson forced to %s, want passed", lp.Status)
	}

	if n := f.sink.count(EventLessonCompleted); n != 2 {
		t.Errorf("lesson.completed events = %d, want 2", n)
	}
}

func TestCompleteLessonWithoutQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	lessonID := f.seedLesson(t, courseID, nil)

	lp, err := f.lessons.Complete(ctx, lessonID, userID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if lp.Status != model.LessonComplete {
		t.Errorf("status = %s, want complete", lp.Status)
	}
	if n := f.sink.count(EventLessonCompleted); n != 1 {
		t.Errorf("lesson.completed events = %d, want 1", n)
	}

	// Completing again is a no-op and emits nothing.
	if _, err := f.lessons.Complete(ctx, lessonID, userID); err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	if n := f.sink.count(EventLessonCompleted); n != 1 {
		t.Errorf("re-complete emitted again, events = %d", n)
	}
}

func TestCompleteRejectedWhenPassRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	lessonID := f.seedLesson(t, courseID, nil)
	quizID := f.seedQuiz(t, lessonID, 50, true, true)
	f.seedQuestion(t, quizID, model.QuestionShortAnswer, "x", 1)

	if _, err := f.lessons.Complete(ctx, lessonID, userID); !errors.Is(err, util.ErrPassRequired) {
		t.Errorf("err = %v, want ErrPassRequired", err)
	}
}

func TestCompleteAllowedWhenQuizHasNoQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	lessonID := f.seedLesson(t, courseID, nil)
	f.seedQuiz(t, lessonID, 50, true, true) // pass required but empty

	lp, err := f.lessons.Complete(ctx, lessonID, userID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if lp.Status != model.LessonComplete {
		t.Errorf("status = %s, want complete", lp.Status)
	}
}

func TestResetDestroysSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	f.enroll(t, courseID, userID)
	lessonID := f.seedLesson(t, courseID, nil)
	quizID := f.seedQuiz(t, lessonID, 50, true, true)
	qID := f.seedQuestion(t, quizID, model.QuestionShortAnswer, "right", 1)

	if _, err := f.quizzes.Submit(ctx, quizID, userID, []AnswerInput{{QuestionID: qID, Value: text("right")}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	lp, _ := f.lessons.Get(ctx, lessonID, userID)
	if lp.Status != model.LessonPassed {
		t.Fatalf("precondition: status = %s", lp.Status)
	}

	if err := f.lessons.Reset(ctx, lessonID, userID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	lp, err := f.lessons.Get(ctx, lessonID, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lp.Status != model.LessonInProgress {
		t.Errorf("status after reset = %s, want in-progress", lp.Status)
	}
	if lp.Grade != nil {
		t.Errorf("grade survived reset: %v", *lp.Grade)
	}

	sub, err := f.quizzes.GetSubmission(ctx, quizID, userID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if sub != nil {
		t.Errorf("submission survived reset: %+v", sub)
	}

	// Resetting again, and resetting a never started lesson, are no-ops.
	if err := f.lessons.Reset(ctx, lessonID, userID); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	other := f.seedLesson(t, courseID, nil)
	if err := f.lessons.Reset(ctx, other, userID); err != nil {
		t.Fatalf("reset of unstarted lesson: %v", err)
	}
	if n := f.sink.count(EventLessonReset); n != 2 {
		t.Errorf("lesson.reset events = %d, want 2", n)
	}
}

func TestResetRefusedWhenNotAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	lessonID := f.seedLesson(t, courseID, nil)
	f.seedQuiz(t, lessonID, 50, true, false)

	if err := f.lessons.Reset(ctx, lessonID, userID); !errors.Is(err, util.ErrResetNotAllowed) {
		t.Errorf("err = %v, want ErrResetNotAllowed", err)
	}
}

func TestPrerequisiteGatesQuizAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	f.enroll(t, courseID, userID)
	first := f.seedLesson(t, courseID, nil)
	second := f.seedLesson(t, courseID, &first)
	quizID := f.seedQuiz(t, second, 0, false, true)
	qID := f.seedQuestion(t, quizID, model.QuestionShortAnswer, "x", 1)

	_, err := f.quizzes.Submit(ctx, quizID, userID, []AnswerInput{{QuestionID: qID, Value: text("x")}})
	if !errors.Is(err, util.ErrPrerequisiteNotMet) {
		t.Fatalf("err = %v, want ErrPrerequisiteNotMet", err)
	}
	// The rejected attempt must leave no partial state behind.
	if lp, _ := f.lessons.Get(ctx, second, userID); lp != nil {
		t.Errorf("rejected submit left lesson progress %+v", lp)
	}
	if sub, _ := f.quizzes.GetSubmission(ctx, quizID, userID); sub != nil {
		t.Errorf("rejected submit left submission %+v", sub)
	}

	if _, err := f.lessons.Complete(ctx, first, userID); err != nil {
		t.Fatalf("complete prerequisite: %v", err)
	}
	if _, err := f.quizzes.Submit(ctx, quizID, userID, []AnswerInput{{QuestionID: qID, Value: text("x")}}); err != nil {
		t.Fatalf("submit after prerequisite: %v", err)
	}
}

func TestNotEnrolledRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	lessonID := f.seedLesson(t, courseID, nil)
	quizID := f.seedQuiz(t, lessonID, 0, false, true)
	qID := f.seedQuestion(t, quizID, model.QuestionShortAnswer, "x", 1)

	_, err := f.quizzes.Submit(ctx, quizID, userID, []AnswerInput{{QuestionID: qID, Value: text("x")}})
	if !errors.Is(err, util.ErrNotEnrolled) {
		t.Errorf("err = %v, want ErrNotEnrolled", err)
	}
}
