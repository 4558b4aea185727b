package model

import "time"

// Decoded views over activity log rows. Repositories translate between
// these and the raw (status, metadata) representation.

type LessonProgress struct {
	LessonID  uint         `json:"lessonId"`
	UserID    uint         `json:"userId"`
	Status    LessonStatus `json:"status"`
	StartedAt time.Time    `json:"startedAt"`
	// Grade mirrors the linked submission's final grade once graded.
	Grade *float64 `json:"grade,omitempty"`
}

type CourseProgress struct {
	CourseID         uint         `json:"courseId"`
	UserID           uint         `json:"userId"`
	Status           CourseStatus `json:"status"`
	PercentComplete  int          `json:"percentComplete"`
	CompletedLessons int          `json:"completedLessons"`
	StartedAt        time.Time    `json:"startedAt"`
}

// QuizSubmission holds the per-(quiz,user) attempt. ID is the surrogate
// key answers and grades hang off.
type QuizSubmission struct {
	ID             uint             `json:"id"`
	QuizID         uint             `json:"quizId"`
	UserID         uint             `json:"userId"`
	Status         SubmissionStatus `json:"status"`
	FinalGrade     *float64         `json:"finalGrade,omitempty"`
	QuestionsAsked []uint           `json:"questionsAsked"`
}

// AnswerValue is the opaque answer payload; which field is set depends
// on the question type.
type AnswerValue struct {
	Text         string   `json:"text,omitempty"`
	Selected     []string `json:"selected,omitempty"`
	AttachmentID string   `json:"attachmentId,omitempty"`
}

type QuizAnswer struct {
	SubmissionID uint        `json:"submissionId"`
	QuestionID   uint        `json:"questionId"`
	Value        AnswerValue `json:"value"`
}

type QuizGrade struct {
	SubmissionID uint    `json:"submissionId"`
	QuestionID   uint    `json:"questionId"`
	Points       float64 `json:"points"`
	Feedback     string  `json:"feedback,omitempty"`
}
