package repository

import (
	"context"
	"encoding/json"
	"strconv"

	"lms_progress_backend/internal/model"
)

// SubmissionRepository owns the one quiz_submission activity row per
// (quiz, user). The row's ID is the surrogate key answer and grade rows
// reference through ParentID.
type SubmissionRepository struct {
	Activities *ActivityLogRepository
}

func NewSubmissionRepository(activities *ActivityLogRepository) *SubmissionRepository {
	return &SubmissionRepository{Activities: activities}
}

// GetOrCreate returns the existing submission or creates one recording
// the questions asked for this attempt. Uniqueness lives in the storage
// layer: a racing create resolves to the winner's row via one re-read,
// never to a second submission.
func (r *SubmissionRepository) GetOrCreate(ctx context.Context, quizID, userID uint, questionsAsked []uint) (*model.QuizSubmission, error) {
	row, err := r.Activities.Find(ctx, quizID, userID, model.ActivityQuizSubmission)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return submissionFromRow(row)
	}

	asked, _ := json.Marshal(questionsAsked)
	row = &model.ActivityLog{
		SubjectID:    quizID,
		UserID:       userID,
		ActivityType: model.ActivityQuizSubmission,
		Status:       string(model.SubmissionUngraded),
		Metadata: map[string]string{
			model.MetaQuestionsAsked: string(asked),
		},
	}
	if err := r.Activities.Create(ctx, row); err != nil {
		// Key collision from a concurrent create: the unique index
		// guarantees a winner exists, so re-read once.
		existing, ferr := r.Activities.Find(ctx, quizID, userID, model.ActivityQuizSubmission)
		if ferr == nil && existing != nil {
			return submissionFromRow(existing)
		}
		return nil, err
	}
	return submissionFromRow(row)
}

// Get returns the submission, or nil when the learner has none.
func (r *SubmissionRepository) Get(ctx context.Context, quizID, userID uint) (*model.QuizSubmission, error) {
	row, err := r.Activities.Find(ctx, quizID, userID, model.ActivityQuizSubmission)
	if err != nil || row == nil {
		return nil, err
	}
	return submissionFromRow(row)
}

// SetGrade records the final grade and status flag.
func (r *SubmissionRepository) SetGrade(ctx context.Context, sub *model.QuizSubmission, finalGrade *float64, status model.SubmissionStatus) error {
	row, err := r.Activities.Find(ctx, sub.QuizID, sub.UserID, model.ActivityQuizSubmission)
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}
	if row.Metadata == nil {
		row.Metadata = map[string]string{}
	}
	if finalGrade != nil {
		row.Metadata[model.MetaFinalGrade] = strconv.FormatFloat(*finalGrade, 'f', -1, 64)
	} else {
		delete(row.Metadata, model.MetaFinalGrade)
	}
	row.Status = string(status)
	if err := r.Activities.Upsert(ctx, row); err != nil {
		return err
	}
	sub.Status = status
	sub.FinalGrade = finalGrade
	return nil
}

// Delete removes the submission row. Children are deleted by the
// answer/grade repositories beforehand.
func (r *SubmissionRepository) Delete(ctx context.Context, quizID, userID uint) error {
	return r.Activities.Delete(ctx, quizID, userID, model.ActivityQuizSubmission)
}

func submissionFromRow(row *model.ActivityLog) (*model.QuizSubmission, error) {
	status, err := model.ParseSubmissionStatus(row.Status)
	if err != nil {
		return nil, err
	}
	sub := &model.QuizSubmission{
		ID:     row.ID,
		QuizID: row.SubjectID,
		UserID: row.UserID,
		Status: status,
	}
	if v, ok := row.Metadata[model.MetaQuestionsAsked]; ok {
		json.Unmarshal([]byte(v), &sub.QuestionsAsked)
	}
	if v, ok := row.Metadata[model.MetaFinalGrade]; ok {
		if g, err := strconv.ParseFloat(v, 64); err == nil {
			sub.FinalGrade = &g
		}
	}
	return sub, nil
}
