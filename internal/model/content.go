package model

import "encoding/json"

// Content models are the read-only collaborator schema: courses,
// lessons, quizzes and questions are authored elsewhere, this engine
// only consumes their configuration.

type User struct {
	BaseModel
	Name  string `gorm:"size:100;not null" json:"name"`
	Email string `gorm:"size:255;uniqueIndex" json:"email"`
}

func (User) TableName() string {
	return "users"
}

type Course struct {
	BaseModel
	Title            string           `gorm:"size:255;not null" json:"title"`
	Description      string           `gorm:"type:text" json:"description"`
	CompletionPolicy CompletionPolicy `gorm:"size:50;default:lessons_completed" json:"completionPolicy"`
}

func (Course) TableName() string {
	return "courses"
}

type Lesson struct {
	BaseModel
	CourseID uint   `gorm:"index;not null" json:"courseId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Order    int    `gorm:"default:0" json:"order"`
	// PrerequisiteID names a lesson that must be completed before this
	// one can be started or submitted.
	PrerequisiteID *uint `json:"prerequisiteId,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

type Quiz struct {
	BaseModel
	LessonID     uint `gorm:"uniqueIndex;not null" json:"lessonId"`
	PassMark     int  `gorm:"default:0" json:"passMark"` // integer percentage
	PassRequired bool `gorm:"default:false" json:"passRequired"`
	ResetAllowed bool `gorm:"default:true" json:"resetAllowed"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Question reference-answer encoding by type:
//
//	short_answer     Answer holds accepted strings separated by "|"
//	single_choice    Options is a JSON string array, Answer the correct option
//	multiple_choice  Options is a JSON string array, Answer a JSON array of correct options
//	gap_fill         Answer is "prefix||token1|token2||suffix"
//	essay/file/free  Answer unused, graded manually
type Question struct {
	BaseModel
	QuizID       uint            `gorm:"index;not null" json:"quizId"`
	QuestionType QuestionType    `gorm:"size:50;not null" json:"questionType"`
	Content      string          `gorm:"type:text;not null" json:"content"`
	Options      json.RawMessage `gorm:"type:json" json:"options"`
	Answer       string          `gorm:"type:text" json:"answer"`
	Points       int             `gorm:"default:1" json:"points"`
	Order        int             `gorm:"default:0" json:"order"`
}

func (Question) TableName() string {
	return "questions"
}

type Enrollment struct {
	BaseModel
	CourseID uint `gorm:"uniqueIndex:idx_enrollment_key;not null" json:"courseId"`
	UserID   uint `gorm:"uniqueIndex:idx_enrollment_key;not null" json:"userId"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
