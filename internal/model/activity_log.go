package model

// ActivityType partitions the activity log by what kind of record a row
// holds. Together with SubjectID and UserID it forms the upsert key.
type ActivityType string

const (
	ActivityLessonProgress ActivityType = "lesson_progress" // subject = lesson id
	ActivityCourseProgress ActivityType = "course_progress" // subject = course id
	ActivityQuizSubmission ActivityType = "quiz_submission" // subject = quiz id
	ActivityQuizAnswer     ActivityType = "quiz_answer"     // subject = question id, parent = submission row
	ActivityQuizGrade      ActivityType = "quiz_grade"      // subject = question id, parent = submission row
)

// Metadata keys. Values are strings; structured payloads are JSON-encoded.
const (
	MetaStart          = "start"           // unix seconds the attempt started
	MetaGrade          = "grade"           // lesson copy of the submission final grade
	MetaPercent        = "percent"         // course percent complete
	MetaCompleted      = "completed"       // course completed lesson count
	MetaFinalGrade     = "final_grade"     // submission final grade
	MetaQuestionsAsked = "questions_asked" // JSON array of question ids generated for the attempt
	MetaAnswerValue    = "value"           // JSON-encoded answer payload
	MetaAttachmentID   = "attachment_id"   // blob store id for file-upload answers
	MetaPoints         = "points"          // per-question awarded points
	MetaFeedback       = "feedback"        // per-question reviewer feedback
	MetaLegacyAnswers  = "legacy_answers"  // pre-migration combined answer/feedback blob
)

// ActivityLog is the single persistent schema the engine owns: an
// append-only keyed record store with at-most-one row per
// (subject, user, type) tuple. Every repository sits on top of it.
//
// ParentID links child rows (answers, grades) to the submission row
// that owns them, so cascading deletes are a single indexed query.
type ActivityLog struct {
	BaseModel
	SubjectID    uint              `gorm:"uniqueIndex:idx_activity_key;not null" json:"subjectId"`
	UserID       uint              `gorm:"uniqueIndex:idx_activity_key;not null" json:"userId"`
	ActivityType ActivityType      `gorm:"uniqueIndex:idx_activity_key;size:50;not null" json:"activityType"`
	ParentID     uint              `gorm:"index;default:0" json:"parentId"`
	Status       string            `gorm:"size:50;not null" json:"status"`
	Metadata     map[string]string `gorm:"type:json;serializer:json" json:"metadata"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
