package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"lms_progress_backend/internal/model"
	"lms_progress_backend/pkg/cache"
	"lms_progress_backend/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestActivityRepo(t *testing.T) (*ActivityLogRepository, *cache.MemoryCache) {
	t.Helper()
	c := cache.NewMemoryCache(time.Minute)
	return NewActivityLogRepository(newTestDB(t), c), c
}

func TestActivityLogUpsertKeepsOneRowPerKey(t *testing.T) {
	repo, _ := newTestActivityRepo(t)
	ctx := context.Background()

	row := &model.ActivityLog{
		SubjectID:    1,
		UserID:       7,
		ActivityType: model.ActivityLessonProgress,
		Status:       string(model.LessonInProgress),
	}
	if err := repo.Upsert(ctx, row); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	firstID := row.ID

	row.Status = string(model.LessonComplete)
	if err := repo.Upsert(ctx, row); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if row.ID != firstID {
		t.Errorf("upsert replaced the row: id %d != %d", row.ID, firstID)
	}

	var count int64
	repo.DB.Model(&model.ActivityLog{}).Count(&count)
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}

	got, err := repo.Find(ctx, 1, 7, model.ActivityLessonProgress)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != string(model.LessonComplete) {
		t.Errorf("status = %q, want complete", got.Status)
	}
}

func TestActivityLogRejectsUnknownStatus(t *testing.T) {
	repo, _ := newTestActivityRepo(t)
	ctx := context.Background()

	row := &model.ActivityLog{
		SubjectID:    1,
		UserID:       1,
		ActivityType: model.ActivityLessonProgress,
		Status:       "almost-done",
	}
	if err := repo.Upsert(ctx, row); err == nil {
		t.Fatal("upsert accepted a status outside the enum")
	}
	if err := repo.Create(ctx, row); err == nil {
		t.Fatal("create accepted a status outside the enum")
	}

	var count int64
	repo.DB.Model(&model.ActivityLog{}).Count(&count)
	if count != 0 {
		t.Errorf("invalid status was persisted, %d rows", count)
	}
}

func TestActivityLogFindMissingReturnsNil(t *testing.T) {
	repo, _ := newTestActivityRepo(t)
	got, err := repo.Find(context.Background(), 99, 99, model.ActivityLessonProgress)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestActivityLogDeleteFreesKeyForReuse(t *testing.T) {
	repo, _ := newTestActivityRepo(t)
	ctx := context.Background()

	row := &model.ActivityLog{
		SubjectID:    3,
		UserID:       4,
		ActivityType: model.ActivityCourseProgress,
		Status:       string(model.CourseInProgress),
	}
	if err := repo.Upsert(ctx, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Delete(ctx, 3, 4, model.ActivityCourseProgress); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The key tuple must be reusable after a hard delete.
	fresh := &model.ActivityLog{
		SubjectID:    3,
		UserID:       4,
		ActivityType: model.ActivityCourseProgress,
		Status:       string(model.CourseInProgress),
	}
	if err := repo.Create(ctx, fresh); err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}

	// Deleting a missing row is a no-op.
	if err := repo.Delete(ctx, 42, 42, model.ActivityCourseProgress); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestActivityLogCacheInvalidatedOnWrite(t *testing.T) {
	repo, _ := newTestActivityRepo(t)
	ctx := context.Background()

	row := &model.ActivityLog{
		SubjectID:    5,
		UserID:       6,
		ActivityType: model.ActivityLessonProgress,
		Status:       string(model.LessonInProgress),
	}
	if err := repo.Upsert(ctx, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Prime the cache.
	if _, err := repo.Find(ctx, 5, 6, model.ActivityLessonProgress); err != nil {
		t.Fatalf("find: %v", err)
	}

	row.Status = string(model.LessonPassed)
	if err := repo.Upsert(ctx, row); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.Find(ctx, 5, 6, model.ActivityLessonProgress)
	if err != nil {
		t.Fatalf("find after write: %v", err)
	}
	if got.Status != string(model.LessonPassed) {
		t.Errorf("read-after-write saw stale status %q", got.Status)
	}
}

func TestActivityLogChildRows(t *testing.T) {
	repo, _ := newTestActivityRepo(t)
	ctx := context.Background()

	parent := &model.ActivityLog{
		SubjectID:    10,
		UserID:       2,
		ActivityType: model.ActivityQuizSubmission,
		Status:       string(model.SubmissionUngraded),
	}
	if err := repo.Create(ctx, parent); err != nil {
		t.Fatalf("create parent: %v", err)
	}

	for _, qid := range []uint{101, 102, 103} {
		child := &model.ActivityLog{
			SubjectID:    qid,
			UserID:       2,
			ActivityType: model.ActivityQuizAnswer,
			ParentID:     parent.ID,
			Status:       StatusLogged,
		}
		if err := repo.Create(ctx, child); err != nil {
			t.Fatalf("create child %d: %v", qid, err)
		}
	}

	rows, err := repo.ListByParent(ctx, parent.ID, model.ActivityQuizAnswer)
	if err != nil {
		t.Fatalf("list by parent: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len = %d, want 3", len(rows))
	}
	if rows[0].SubjectID != 101 {
		t.Errorf("children not ordered by subject, first = %d", rows[0].SubjectID)
	}

	if err := repo.DeleteByParent(ctx, parent.ID, model.ActivityQuizAnswer); err != nil {
		t.Fatalf("delete by parent: %v", err)
	}
	rows, err = repo.ListByParent(ctx, parent.ID, model.ActivityQuizAnswer)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("children survived cascade, %d left", len(rows))
	}
}

func TestActivityLogListBySubjects(t *testing.T) {
	repo, _ := newTestActivityRepo(t)
	ctx := context.Background()

	for _, lessonID := range []uint{1, 2, 3} {
		row := &model.ActivityLog{
			SubjectID:    lessonID,
			UserID:       9,
			ActivityType: model.ActivityLessonProgress,
			Status:       string(model.LessonComplete),
		}
		if err := repo.Create(ctx, row); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	rows, err := repo.ListBySubjects(ctx, []uint{1, 3, 8}, 9, model.ActivityLessonProgress)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len = %d, want 2", len(rows))
	}

	rows, err = repo.ListBySubjects(ctx, nil, 9, model.ActivityLessonProgress)
	if err != nil || rows != nil {
		t.Errorf("empty subject set: rows=%v err=%v, want nil,nil", rows, err)
	}
}
