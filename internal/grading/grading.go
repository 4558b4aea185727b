// Package grading computes per-question grades for closed-form question
// types. Every strategy is a pure function of the question's reference
// answer and the submitted answer, so repeated grading of the same
// input always awards the same points.
package grading

import (
	"encoding/json"
	"strings"

	"lms_progress_backend/internal/model"
)

// Result is the outcome of grading a single answer. NeedsManual marks
// question types that cannot be auto-graded; Points is meaningless when
// it is set.
type Result struct {
	Points      float64
	MaxPoints   float64
	NeedsManual bool
}

// Strategy grades a single question type.
type Strategy interface {
	Grade(q *model.Question, answer model.AnswerValue) Result
}

// Dispatcher routes a question to the strategy for its declared type.
type Dispatcher struct {
	strategies map[model.QuestionType]Strategy
}

// NewDispatcher installs the built-in strategies. Types without a
// strategy (essay, file upload, free text) fall through to manual
// review.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		strategies: map[model.QuestionType]Strategy{
			model.QuestionShortAnswer:    shortAnswerStrategy{},
			model.QuestionSingleChoice:   choiceStrategy{},
			model.QuestionMultipleChoice: choiceStrategy{},
			model.QuestionGapFill:        gapFillStrategy{},
		},
	}
}

// Grade computes the awarded points for one answer. Unknown or
// manual-only question types return NeedsManual.
func (d *Dispatcher) Grade(q *model.Question, answer model.AnswerValue) Result {
	s, ok := d.strategies[q.QuestionType]
	if !ok {
		return Result{MaxPoints: float64(q.Points), NeedsManual: true}
	}
	return s.Grade(q, answer)
}

// AutoGradable reports whether the dispatcher has a strategy for the
// given type.
func (d *Dispatcher) AutoGradable(t model.QuestionType) bool {
	_, ok := d.strategies[t]
	return ok
}

// shortAnswerStrategy awards full points when the trimmed answer
// case-insensitively equals any accepted reference string. References
// are separated by "|". Binary credit only.
type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Grade(q *model.Question, answer model.AnswerValue) Result {
	res := Result{MaxPoints: float64(q.Points)}
	got := normalize(answer.Text)
	if got == "" {
		return res
	}
	for _, ref := range strings.Split(q.Answer, "|") {
		if normalize(ref) == got {
			res.Points = float64(q.Points)
			return res
		}
	}
	return res
}

// choiceStrategy requires the selected option set to exactly equal the
// reference correct set. Subsets and supersets score zero.
type choiceStrategy struct{}

func (choiceStrategy) Grade(q *model.Question, answer model.AnswerValue) Result {
	res := Result{MaxPoints: float64(q.Points)}
	correct := referenceSet(q)
	if len(correct) == 0 {
		return res
	}
	selected := make(map[string]struct{}, len(answer.Selected))
	for _, s := range answer.Selected {
		selected[normalize(s)] = struct{}{}
	}
	if len(selected) != len(correct) {
		return res
	}
	for k := range selected {
		if _, ok := correct[k]; !ok {
			return res
		}
	}
	res.Points = float64(q.Points)
	return res
}

// gapFillStrategy splits the reference "prefix||tok1|tok2||suffix" and
// requires the answer to reproduce prefix and suffix verbatim with one
// acceptable middle token (token match is case-insensitive).
type gapFillStrategy struct{}

func (gapFillStrategy) Grade(q *model.Question, answer model.AnswerValue) Result {
	res := Result{MaxPoints: float64(q.Points)}
	parts := strings.Split(q.Answer, "||")
	if len(parts) != 3 {
		return res
	}
	prefix, suffix := parts[0], parts[2]
	got := answer.Text
	if len(got) < len(prefix)+len(suffix) {
		return res
	}
	if !strings.HasPrefix(got, prefix) || !strings.HasSuffix(got, suffix) {
		return res
	}
	middle := strings.ToLower(strings.TrimSpace(got[len(prefix) : len(got)-len(suffix)]))
	for _, tok := range strings.Split(parts[1], "|") {
		if strings.ToLower(strings.TrimSpace(tok)) == middle {
			res.Points = float64(q.Points)
			return res
		}
	}
	return res
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func referenceSet(q *model.Question) map[string]struct{} {
	set := make(map[string]struct{})
	if q.QuestionType == model.QuestionSingleChoice {
		if v := normalize(q.Answer); v != "" {
			set[v] = struct{}{}
		}
		return set
	}
	for _, v := range decodeStringArray(q.Answer) {
		if v = normalize(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// decodeStringArray reads a JSON string array, falling back to the
// pipe-separated legacy format still present in older content.
func decodeStringArray(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out
	}
	if s == "" {
		return nil
	}
	return strings.Split(s, "|")
}
