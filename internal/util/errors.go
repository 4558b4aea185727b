package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotEnrolled        = errors.New("learner not enrolled in course")
	ErrPrerequisiteNotMet = errors.New("lesson prerequisite not met")
	ErrResetNotAllowed    = errors.New("quiz does not allow resets")
	ErrPassRequired       = errors.New("lesson requires passing its quiz")
	ErrSubmissionConflict = errors.New("submission already exists for quiz and user")
	ErrContentUnavailable = errors.New("content repository unavailable")
	ErrBlobUnavailable    = errors.New("blob store unavailable")
	ErrUnknownStatus      = errors.New("unknown status value")
)
