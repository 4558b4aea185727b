package service

import (
	"context"
	"math"
	"strconv"
	"time"

	"lms_progress_backend/internal/model"
	"lms_progress_backend/internal/repository"
	"lms_progress_backend/pkg/logger"

	"go.uber.org/zap"
)

// CourseProgressService owns the per-(course,user) aggregate. Course
// progress is derived from lesson progress and never edited directly:
// every lesson mutation funnels through Recompute.
type CourseProgressService struct {
	Activities *repository.ActivityLogRepository
	Content    *repository.ContentRepository
	Events     EventSink
}

func NewCourseProgressService(activities *repository.ActivityLogRepository, content *repository.ContentRepository, events EventSink) *CourseProgressService {
	return &CourseProgressService{Activities: activities, Content: content, Events: events}
}

// Start creates the course progress record if none exists. Called on
// explicit enrollment and as the cascade from the first lesson start.
func (s *CourseProgressService) Start(ctx context.Context, courseID, userID uint) (*model.CourseProgress, error) {
	if _, err := s.Content.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	row, err := s.Activities.Find(ctx, courseID, userID, model.ActivityCourseProgress)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return courseProgressFromRow(row)
	}

	row = &model.ActivityLog{
		SubjectID:    courseID,
		UserID:       userID,
		ActivityType: model.ActivityCourseProgress,
		Status:       string(model.CourseInProgress),
		Metadata: map[string]string{
			model.MetaStart:     strconv.FormatInt(time.Now().Unix(), 10),
			model.MetaPercent:   "0",
			model.MetaCompleted: "0",
		},
	}
	if err := s.Activities.Upsert(ctx, row); err != nil {
		return nil, err
	}
	return courseProgressFromRow(row)
}

// Get returns the aggregate, or nil when the learner has not started
// the course.
func (s *CourseProgressService) Get(ctx context.Context, courseID, userID uint) (*model.CourseProgress, error) {
	row, err := s.Activities.Find(ctx, courseID, userID, model.ActivityCourseProgress)
	if err != nil || row == nil {
		return nil, err
	}
	return courseProgressFromRow(row)
}

// Recompute re-derives completed count, percentage and status from the
// live lesson statuses under the course's completion policy. A course
// with zero lessons is never complete. The course.completed event fires
// exactly once per transition into complete; recomputing an already
// complete course does not re-emit.
func (s *CourseProgressService) Recompute(ctx context.Context, courseID, userID uint) (*model.CourseProgress, error) {
	course, err := s.Content.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.Content.ListCourseLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}

	lessonIDs := make([]uint, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	rows, err := s.Activities.ListBySubjects(ctx, lessonIDs, userID, model.ActivityLessonProgress)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, row := range rows {
		status, err := model.ParseLessonStatus(row.Status)
		if err != nil {
			logger.Log.Warn("skipping lesson progress with unknown status",
				zap.Uint("lessonId", row.SubjectID), zap.String("status", row.Status))
			continue
		}
		if course.CompletionPolicy.CountsComplete(status) {
			completed++
		}
	}

	percent := 0
	if len(lessons) > 0 {
		percent = int(math.Round(100 * float64(completed) / float64(len(lessons))))
	}
	status := model.CourseInProgress
	if len(lessons) > 0 && completed == len(lessons) {
		status = model.CourseComplete
	}

	row, err := s.Activities.Find(ctx, courseID, userID, model.ActivityCourseProgress)
	if err != nil {
		return nil, err
	}
	wasComplete := row != nil && row.Status == string(model.CourseComplete)
	if row == nil {
		row = &model.ActivityLog{
			SubjectID:    courseID,
			UserID:       userID,
			ActivityType: model.ActivityCourseProgress,
			Metadata: map[string]string{
				model.MetaStart: strconv.FormatInt(time.Now().Unix(), 10),
			},
		}
	}
	if row.Metadata == nil {
		row.Metadata = map[string]string{}
	}
	row.Status = string(status)
	row.Metadata[model.MetaPercent] = strconv.Itoa(percent)
	row.Metadata[model.MetaCompleted] = strconv.Itoa(completed)
	if err := s.Activities.Upsert(ctx, row); err != nil {
		return nil, err
	}

	if status == model.CourseComplete && !wasComplete {
		s.Events.Emit(ctx, Event{Name: EventCourseCompleted, UserID: userID, EntityID: courseID})
	}
	return courseProgressFromRow(row)
}

// Remove deletes the learner's course progress and every lesson-level
// record beneath it, used when the learner is forcibly removed from the
// course. Lesson resets cascade through the lesson service to keep
// submission cleanup in one place.
func (s *CourseProgressService) Remove(ctx context.Context, courseID, userID uint, lessons *LessonProgressService) error {
	courseLessons, err := s.Content.ListCourseLessons(ctx, courseID)
	if err != nil {
		return err
	}
	for _, l := range courseLessons {
		if err := lessons.removeProgress(ctx, l.ID, userID); err != nil {
			return err
		}
	}
	return s.Activities.Delete(ctx, courseID, userID, model.ActivityCourseProgress)
}

func courseProgressFromRow(row *model.ActivityLog) (*model.CourseProgress, error) {
	status, err := model.ParseCourseStatus(row.Status)
	if err != nil {
		return nil, err
	}
	cp := &model.CourseProgress{
		CourseID: row.SubjectID,
		UserID:   row.UserID,
		Status:   status,
	}
	if v, ok := row.Metadata[model.MetaPercent]; ok {
		cp.PercentComplete, _ = strconv.Atoi(v)
	}
	if v, ok := row.Metadata[model.MetaCompleted]; ok {
		cp.CompletedLessons, _ = strconv.Atoi(v)
	}
	if v, ok := row.Metadata[model.MetaStart]; ok {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			cp.StartedAt = time.Unix(ts, 0)
		}
	}
	return cp, nil
}
