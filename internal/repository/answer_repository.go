package repository

import (
	"context"
	"encoding/json"
	"strconv"

	"lms_progress_backend/internal/model"
)

// AnswerRepository owns the (submission, question) answer rows.
type AnswerRepository struct {
	Activities *ActivityLogRepository
}

func NewAnswerRepository(activities *ActivityLogRepository) *AnswerRepository {
	return &AnswerRepository{Activities: activities}
}

// SaveAnswer upserts one answer. Answers for questions outside the
// submission's questions-asked set are dropped silently — stale or
// tampered forms must not grow the answer set. Returns whether the
// answer was accepted.
func (r *AnswerRepository) SaveAnswer(ctx context.Context, sub *model.QuizSubmission, questionID uint, v model.AnswerValue) (bool, error) {
	if !containsID(sub.QuestionsAsked, questionID) {
		return false, nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	row := &model.ActivityLog{
		SubjectID:    questionID,
		UserID:       sub.UserID,
		ActivityType: model.ActivityQuizAnswer,
		ParentID:     sub.ID,
		Status:       StatusLogged,
		Metadata: map[string]string{
			model.MetaAnswerValue: string(buf),
		},
	}
	if v.AttachmentID != "" {
		row.Metadata[model.MetaAttachmentID] = v.AttachmentID
	}
	if err := r.Activities.Upsert(ctx, row); err != nil {
		return false, err
	}
	return true, nil
}

// ListBySubmission returns the saved answers. When no answer rows exist
// it falls back to the pre-migration format: a combined JSON blob on
// the submission row. The fallback is a deliberate degraded-read path,
// kept explicit so removing it is a tracked decision.
func (r *AnswerRepository) ListBySubmission(ctx context.Context, sub *model.QuizSubmission) ([]model.QuizAnswer, error) {
	rows, err := r.Activities.ListByParent(ctx, sub.ID, model.ActivityQuizAnswer)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return r.legacyAnswers(ctx, sub)
	}
	answers := make([]model.QuizAnswer, 0, len(rows))
	for _, row := range rows {
		var v model.AnswerValue
		if s, ok := row.Metadata[model.MetaAnswerValue]; ok {
			if err := json.Unmarshal([]byte(s), &v); err != nil {
				continue
			}
		}
		answers = append(answers, model.QuizAnswer{
			SubmissionID: sub.ID,
			QuestionID:   row.SubjectID,
			Value:        v,
		})
	}
	return answers, nil
}

// DeleteBySubmission removes every answer row of the submission.
func (r *AnswerRepository) DeleteBySubmission(ctx context.Context, sub *model.QuizSubmission) error {
	return r.Activities.DeleteByParent(ctx, sub.ID, model.ActivityQuizAnswer)
}

// legacyEntry is the pre-migration on-disk shape: answer value and
// reviewer feedback were stored together, keyed by question id.
type legacyEntry struct {
	Value    model.AnswerValue `json:"value"`
	Feedback string            `json:"feedback,omitempty"`
}

func (r *AnswerRepository) legacyAnswers(ctx context.Context, sub *model.QuizSubmission) ([]model.QuizAnswer, error) {
	entries, err := r.legacyEntries(ctx, sub)
	if err != nil || entries == nil {
		return nil, err
	}
	var answers []model.QuizAnswer
	for qid, e := range entries {
		answers = append(answers, model.QuizAnswer{
			SubmissionID: sub.ID,
			QuestionID:   qid,
			Value:        e.Value,
		})
	}
	return answers, nil
}

func (r *AnswerRepository) legacyEntries(ctx context.Context, sub *model.QuizSubmission) (map[uint]legacyEntry, error) {
	row, err := r.Activities.Find(ctx, sub.QuizID, sub.UserID, model.ActivityQuizSubmission)
	if err != nil || row == nil {
		return nil, err
	}
	blob, ok := row.Metadata[model.MetaLegacyAnswers]
	if !ok {
		return nil, nil
	}
	raw := map[string]legacyEntry{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, nil
	}
	entries := make(map[uint]legacyEntry, len(raw))
	for k, e := range raw {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		entries[uint(id)] = e
	}
	return entries, nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
