package repository

import (
	"context"

	"lms_progress_backend/internal/model"

	"gorm.io/gorm"
)

// IdentityRepository answers who a learner is and what they may take.
// The engine only ever reads it.
type IdentityRepository struct {
	DB *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{DB: db}
}

func (r *IdentityRepository) UserExists(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *IdentityRepository) IsEnrolled(ctx context.Context, courseID, userID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&count).Error
	return count > 0, err
}
