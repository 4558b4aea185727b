package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"lms_progress_backend/internal/model"
	"lms_progress_backend/pkg/cache"
	"lms_progress_backend/pkg/monitoring"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityLogRepository is the single persistence surface of the
// engine: an upsert-keyed record store with at-most-one row per
// (subject, user, type). Reads go through the progress cache; every
// mutation invalidates the one cache key for the row it touched before
// returning.
type ActivityLogRepository struct {
	DB    *gorm.DB
	Cache cache.ProgressCache
}

func NewActivityLogRepository(db *gorm.DB, c cache.ProgressCache) *ActivityLogRepository {
	return &ActivityLogRepository{DB: db, Cache: c}
}

// validateStatus rejects values outside the closed enum for the row's
// activity type instead of persisting free text.
func validateStatus(t model.ActivityType, status string) error {
	var err error
	switch t {
	case model.ActivityLessonProgress:
		_, err = model.ParseLessonStatus(status)
	case model.ActivityCourseProgress:
		_, err = model.ParseCourseStatus(status)
	case model.ActivityQuizSubmission:
		_, err = model.ParseSubmissionStatus(status)
	case model.ActivityQuizAnswer, model.ActivityQuizGrade:
		if status != StatusLogged {
			err = fmt.Errorf("unexpected status %q for %s", status, t)
		}
	default:
		err = fmt.Errorf("unknown activity type %q", t)
	}
	return err
}

// StatusLogged marks answer and grade rows, which carry their payload
// in metadata rather than in the status column.
const StatusLogged = "log"

// Find returns the row for the key tuple, or nil when none exists.
func (r *ActivityLogRepository) Find(ctx context.Context, subjectID, userID uint, t model.ActivityType) (*model.ActivityLog, error) {
	if v, ok := r.Cache.Get(ctx, string(t), subjectID, userID); ok {
		monitoring.CacheCounter.WithLabelValues("hit").Inc()
		var row model.ActivityLog
		if err := json.Unmarshal([]byte(v), &row); err == nil {
			return &row, nil
		}
	}
	monitoring.CacheCounter.WithLabelValues("miss").Inc()

	var row model.ActivityLog
	err := r.DB.WithContext(ctx).
		Where("subject_id = ? AND user_id = ? AND activity_type = ?", subjectID, userID, t).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if buf, err := json.Marshal(&row); err == nil {
		r.Cache.Set(ctx, string(t), subjectID, userID, string(buf))
	}
	return &row, nil
}

// Create inserts a new row and fails on a key collision. Callers that
// need conflict tolerance resolve the collision by re-reading.
func (r *ActivityLogRepository) Create(ctx context.Context, row *model.ActivityLog) error {
	if err := validateStatus(row.ActivityType, row.Status); err != nil {
		return err
	}
	if err := r.DB.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	r.Cache.Invalidate(ctx, string(row.ActivityType), row.SubjectID, row.UserID)
	return nil
}

// Upsert writes the row, replacing status, metadata and parent on
// conflict with the existing key tuple. The row is re-read afterwards
// so the caller always sees the persisted ID and timestamps.
func (r *ActivityLogRepository) Upsert(ctx context.Context, row *model.ActivityLog) error {
	if err := validateStatus(row.ActivityType, row.Status); err != nil {
		return err
	}
	// Insert without the primary key so the conflict always lands on the
	// composite key, never on an ID carried over from a prior read.
	insert := *row
	insert.ID = 0
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}, {Name: "user_id"}, {Name: "activity_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "metadata", "parent_id", "updated_at"}),
	}).Create(&insert).Error
	if err != nil {
		return err
	}
	r.Cache.Invalidate(ctx, string(row.ActivityType), row.SubjectID, row.UserID)

	var persisted model.ActivityLog
	err = r.DB.WithContext(ctx).
		Where("subject_id = ? AND user_id = ? AND activity_type = ?", row.SubjectID, row.UserID, row.ActivityType).
		First(&persisted).Error
	if err != nil {
		return err
	}
	*row = persisted
	return nil
}

// Delete removes the row for the key tuple. Hard delete, so the tuple
// can be reused after a reset despite the unique index. Deleting a
// missing row is a no-op.
func (r *ActivityLogRepository) Delete(ctx context.Context, subjectID, userID uint, t model.ActivityType) error {
	err := r.DB.WithContext(ctx).Unscoped().
		Where("subject_id = ? AND user_id = ? AND activity_type = ?", subjectID, userID, t).
		Delete(&model.ActivityLog{}).Error
	if err != nil {
		return err
	}
	r.Cache.Invalidate(ctx, string(t), subjectID, userID)
	return nil
}

// ListByParent returns all child rows of a given type under a parent
// row (answers or grades of a submission).
func (r *ActivityLogRepository) ListByParent(ctx context.Context, parentID uint, t model.ActivityType) ([]model.ActivityLog, error) {
	var rows []model.ActivityLog
	err := r.DB.WithContext(ctx).
		Where("parent_id = ? AND activity_type = ?", parentID, t).
		Order("subject_id asc").
		Find(&rows).Error
	return rows, err
}

// DeleteByParent removes every child row of the given types under a
// parent, invalidating each child's cache key.
func (r *ActivityLogRepository) DeleteByParent(ctx context.Context, parentID uint, types ...model.ActivityType) error {
	for _, t := range types {
		rows, err := r.ListByParent(ctx, parentID, t)
		if err != nil {
			return err
		}
		if err := r.DB.WithContext(ctx).Unscoped().
			Where("parent_id = ? AND activity_type = ?", parentID, t).
			Delete(&model.ActivityLog{}).Error; err != nil {
			return err
		}
		for _, row := range rows {
			r.Cache.Invalidate(ctx, string(t), row.SubjectID, row.UserID)
		}
	}
	return nil
}

// ListBySubjects returns the rows of one type for a user across a
// subject set, e.g. lesson progress for every lesson of a course.
func (r *ActivityLogRepository) ListBySubjects(ctx context.Context, subjectIDs []uint, userID uint, t model.ActivityType) ([]model.ActivityLog, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	var rows []model.ActivityLog
	err := r.DB.WithContext(ctx).
		Where("subject_id IN ? AND user_id = ? AND activity_type = ?", subjectIDs, userID, t).
		Find(&rows).Error
	return rows, err
}
