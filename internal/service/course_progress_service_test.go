package service

import (
	"context"
	"testing"

	"lms_progress_backend/internal/model"
)

func TestCoursePercentTracksLessons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	l1 := f.seedLesson(t, courseID, nil)
	l2 := f.seedLesson(t, courseID, nil)
	l3 := f.seedLesson(t, courseID, nil)

	if _, err := f.lessons.Complete(ctx, l1, userID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	cp, err := f.courses.Get(ctx, courseID, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cp.CompletedLessons != 1 || cp.PercentComplete != 33 {
		t.Errorf("after 1 of 3: %+v", cp)
	}
	if cp.Status != model.CourseInProgress {
		t.Errorf("status = %s, want in-progress", cp.Status)
	}

	if _, err := f.lessons.Complete(ctx, l2, userID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.lessons.Complete(ctx, l3, userID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	cp, err = f.courses.Get(ctx, courseID, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cp.CompletedLessons != 3 || cp.PercentComplete != 100 {
		t.Errorf("after 3 of 3: %+v", cp)
	}
	if cp.Status != model.CourseComplete {
		t.Errorf("status = %s, want complete", cp.Status)
	}
}

func TestCourseCompletedEmittedOncePerTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	lessonID := f.seedLesson(t, courseID, nil)

	if _, err := f.lessons.Complete(ctx, lessonID, userID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if n := f.sink.count(EventCourseCompleted); n != 1 {
		t.Fatalf("course.completed = %d, want 1", n)
	}

	// Recomputing an already complete course must not re-emit.
	if _, err := f.courses.Recompute(ctx, courseID, userID); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if n := f.sink.count(EventCourseCompleted); n != 1 {
		t.Errorf("recompute re-emitted, count = %d", n)
	}

	// A reset reopens the course; completing again is a new transition.
	if err := f.lessons.Reset(ctx, lessonID, userID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	cp, _ := f.courses.Get(ctx, courseID, userID)
	if cp.Status != model.CourseInProgress {
		t.Fatalf("status after reset = %s", cp.Status)
	}
	if _, err := f.lessons.Complete(ctx, lessonID, userID); err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	if n := f.sink.count(EventCourseCompleted); n != 2 {
		t.Errorf("second transition: count = %d, want 2", n)
	}
}

func TestZeroLessonCourseNeverCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)

	if _, err := f.courses.Start(ctx, courseID, userID); err != nil {
		t.Fatalf("start: %v", err)
	}
	cp, err := f.courses.Recompute(ctx, courseID, userID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if cp.Status != model.CourseInProgress || cp.PercentComplete != 0 {
		t.Errorf("empty course: %+v", cp)
	}
	if n := f.sink.count(EventCourseCompleted); n != 0 {
		t.Errorf("empty course emitted completion, count = %d", n)
	}
}

func TestLessonsPassedPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsPassed)
	f.enroll(t, courseID, userID)
	graded := f.seedLesson(t, courseID, nil)
	passed := f.seedLesson(t, courseID, nil)

	// A graded-only quiz: the lesson ends graded, which the passed
	// policy does not count.
	gq := f.seedQuiz(t, graded, 0, false, true)
	gqQ := f.seedQuestion(t, gq, model.QuestionShortAnswer, "a", 1)
	// A pass-required quiz: the lesson ends passed.
	pq := f.seedQuiz(t, passed, 50, true, true)
	pqQ := f.seedQuestion(t, pq, model.QuestionShortAnswer, "b", 1)

	if _, err := f.quizzes.Submit(ctx, gq, userID, []AnswerInput{{QuestionID: gqQ, Value: text("a")}}); err != nil {
		t.Fatalf("submit graded quiz: %v", err)
	}
	if _, err := f.quizzes.Submit(ctx, pq, userID, []AnswerInput{{QuestionID: pqQ, Value: text("b")}}); err != nil {
		t.Fatalf("submit pass quiz: %v", err)
	}

	cp, err := f.courses.Get(ctx, courseID, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cp.CompletedLessons != 1 || cp.PercentComplete != 50 {
		t.Errorf("passed policy counted %d lessons at %d%%, want 1 at 50", cp.CompletedLessons, cp.PercentComplete)
	}
	if cp.Status != model.CourseInProgress {
		t.Errorf("status = %s, want in-progress", cp.Status)
	}
}

func TestForcedCourseRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t)
	courseID := f.seedCourse(t, model.PolicyLessonsCompleted)
	f.enroll(t, courseID, userID)
	l1 := f.seedLesson(t, courseID, nil)
	l2 := f.seedLesson(t, courseID, nil)
	quizID := f.seedQuiz(t, l2, 50, true, true)
	qID := f.seedQuestion(t, quizID, model.QuestionShortAnswer, "x", 1)

	if _, err := f.lessons.Complete(ctx, l1, userID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.quizzes.Submit(ctx, quizID, userID, []AnswerInput{{QuestionID: qID, Value: text("x")}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.courses.Remove(ctx, courseID, userID, f.lessons); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if cp, _ := f.courses.Get(ctx, courseID, userID); cp != nil {
		t.Errorf("course progress survived removal: %+v", cp)
	}
	if lp, _ := f.lessons.Get(ctx, l1, userID); lp != nil {
		t.Errorf("lesson progress survived removal: %+v", lp)
	}
	if sub, _ := f.quizzes.GetSubmission(ctx, quizID, userID); sub != nil {
		t.Errorf("submission survived removal: %+v", sub)
	}

	// The learner can start over from a clean slate.
	if _, err := f.lessons.Start(ctx, l1, userID, false); err != nil {
		t.Fatalf("restart after removal: %v", err)
	}
}
