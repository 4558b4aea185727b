package repository

import (
	"context"
	"strconv"

	"lms_progress_backend/internal/model"
)

// GradeRepository owns the (submission, question) grade rows, created
// only after grading. Grades are deleted wholesale and recomputed on
// every re-submission so a reader never sees a partially stale set.
type GradeRepository struct {
	Activities *ActivityLogRepository
	Answers    *AnswerRepository
}

func NewGradeRepository(activities *ActivityLogRepository, answers *AnswerRepository) *GradeRepository {
	return &GradeRepository{Activities: activities, Answers: answers}
}

func (r *GradeRepository) SaveGrade(ctx context.Context, sub *model.QuizSubmission, questionID uint, points float64, feedback string) error {
	row := &model.ActivityLog{
		SubjectID:    questionID,
		UserID:       sub.UserID,
		ActivityType: model.ActivityQuizGrade,
		ParentID:     sub.ID,
		Status:       StatusLogged,
		Metadata: map[string]string{
			model.MetaPoints: strconv.FormatFloat(points, 'f', -1, 64),
		},
	}
	if feedback != "" {
		row.Metadata[model.MetaFeedback] = feedback
	}
	return r.Activities.Upsert(ctx, row)
}

// ListBySubmission returns the stored grades. With no grade rows it
// degrades to the legacy blob, surfacing feedback recorded before the
// migration (points default to zero there; legacy grades were only
// ever feedback).
func (r *GradeRepository) ListBySubmission(ctx context.Context, sub *model.QuizSubmission) ([]model.QuizGrade, error) {
	rows, err := r.Activities.ListByParent(ctx, sub.ID, model.ActivityQuizGrade)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return r.legacyGrades(ctx, sub)
	}
	grades := make([]model.QuizGrade, 0, len(rows))
	for _, row := range rows {
		g := model.QuizGrade{
			SubmissionID: sub.ID,
			QuestionID:   row.SubjectID,
			Feedback:     row.Metadata[model.MetaFeedback],
		}
		if v, ok := row.Metadata[model.MetaPoints]; ok {
			g.Points, _ = strconv.ParseFloat(v, 64)
		}
		grades = append(grades, g)
	}
	return grades, nil
}

func (r *GradeRepository) DeleteBySubmission(ctx context.Context, sub *model.QuizSubmission) error {
	return r.Activities.DeleteByParent(ctx, sub.ID, model.ActivityQuizGrade)
}

func (r *GradeRepository) legacyGrades(ctx context.Context, sub *model.QuizSubmission) ([]model.QuizGrade, error) {
	entries, err := r.Answers.legacyEntries(ctx, sub)
	if err != nil || entries == nil {
		return nil, err
	}
	var grades []model.QuizGrade
	for qid, e := range entries {
		if e.Feedback == "" {
			continue
		}
		grades = append(grades, model.QuizGrade{
			SubmissionID: sub.ID,
			QuestionID:   qid,
			Feedback:     e.Feedback,
		})
	}
	return grades, nil
}
