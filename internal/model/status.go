package model

import "fmt"

// LessonStatus is the closed set of per-(lesson,user) attempt states.
// Unknown values are rejected at the repository boundary instead of
// being persisted as free text.
type LessonStatus string

const (
	LessonInProgress LessonStatus = "in-progress"
	LessonComplete   LessonStatus = "complete" // lessons without a quiz
	LessonUngraded   LessonStatus = "ungraded" // submitted, waiting on manual review
	LessonGraded     LessonStatus = "graded"   // graded, no pass mark required
	LessonPassed     LessonStatus = "passed"
	LessonFailed     LessonStatus = "failed"
)

func ParseLessonStatus(s string) (LessonStatus, error) {
	switch LessonStatus(s) {
	case LessonInProgress, LessonComplete, LessonUngraded, LessonGraded, LessonPassed, LessonFailed:
		return LessonStatus(s), nil
	}
	return "", fmt.Errorf("unknown lesson status %q", s)
}

type CourseStatus string

const (
	CourseNotStarted CourseStatus = "not-started"
	CourseInProgress CourseStatus = "in-progress"
	CourseComplete   CourseStatus = "complete"
)

func ParseCourseStatus(s string) (CourseStatus, error) {
	switch CourseStatus(s) {
	case CourseNotStarted, CourseInProgress, CourseComplete:
		return CourseStatus(s), nil
	}
	return "", fmt.Errorf("unknown course status %q", s)
}

// CompletionPolicy selects which lesson statuses count toward course
// completion. Explicit per course, never a global setting.
type CompletionPolicy string

const (
	// PolicyLessonsCompleted counts complete, graded and passed lessons.
	PolicyLessonsCompleted CompletionPolicy = "lessons_completed"
	// PolicyLessonsPassed counts passed lessons only.
	PolicyLessonsPassed CompletionPolicy = "lessons_passed"
)

// CountsComplete reports whether a lesson in status s counts as done
// under the given policy.
func (p CompletionPolicy) CountsComplete(s LessonStatus) bool {
	if p == PolicyLessonsPassed {
		return s == LessonPassed
	}
	return s == LessonComplete || s == LessonGraded || s == LessonPassed
}

type SubmissionStatus string

const (
	SubmissionUngraded SubmissionStatus = "ungraded"
	SubmissionGraded   SubmissionStatus = "graded"
	SubmissionPassed   SubmissionStatus = "passed"
	SubmissionFailed   SubmissionStatus = "failed"
)

func ParseSubmissionStatus(s string) (SubmissionStatus, error) {
	switch SubmissionStatus(s) {
	case SubmissionUngraded, SubmissionGraded, SubmissionPassed, SubmissionFailed:
		return SubmissionStatus(s), nil
	}
	return "", fmt.Errorf("unknown submission status %q", s)
}

// QuestionType tags how a question is answered and graded. The grading
// package keeps a strategy per type; adding a type here without a
// strategy falls through to manual review.
type QuestionType string

const (
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionGapFill        QuestionType = "gap_fill"
	QuestionEssay          QuestionType = "essay"
	QuestionFileUpload     QuestionType = "file_upload"
	QuestionFreeText       QuestionType = "free_text"
)
