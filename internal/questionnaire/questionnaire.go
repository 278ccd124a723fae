// Package questionnaire validates campaign questionnaires and the answers
// submitted against them.
package questionnaire

import (
	"strings"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

// MinChoiceOptions is the minimum option count of a multiple_choice question.
const MinChoiceOptions = 2

// ValidateQuestions checks a questionnaire definition. It returns the first
// violation as a *apperrors.ValidationError.
func ValidateQuestions(questions []model.Question) error {
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if strings.TrimSpace(q.ID) == "" {
			return apperrors.NewValidation("questions", "question #%d has no id", i+1)
		}
		if _, dup := seen[q.ID]; dup {
			return apperrors.NewValidation(q.ID, "duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}

		if strings.TrimSpace(q.Question) == "" {
			return apperrors.NewValidation(q.ID, "question %q has no text", q.ID)
		}
		if !q.Type.Valid() {
			return apperrors.NewValidation(q.ID, "question %q has unknown type %q", q.Question, q.Type)
		}
		if q.Type == model.QuestionMultipleChoice && len(q.Options) < MinChoiceOptions {
			return apperrors.NewValidation(q.ID, "question %q needs at least %d options", q.Question, MinChoiceOptions)
		}
	}
	return nil
}

// ValidateAnswers checks answers against questions and stops at the first
// violation.
//
// Required questions are only enforced when answers is non-empty, unless
// enforceRequired is set. Call logs recorded from an item may omit the whole
// answer block; follow-up completion always enforces required questions.
// Answers to unknown question ids are accepted unchecked. Text and date
// answers are not type checked.
func ValidateAnswers(questions []model.Question, answers []model.AnswerInput, enforceRequired bool) error {
	byID := make(map[string]model.AnswerInput, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a
	}

	if len(answers) > 0 || enforceRequired {
		for _, q := range questions {
			if !q.Required {
				continue
			}
			if _, ok := byID[q.ID]; !ok {
				return apperrors.NewValidation(q.ID, "answer for %q is required", q.Question)
			}
		}
	}

	index := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		index[q.ID] = q
	}

	for _, a := range answers {
		q, known := index[a.QuestionID]
		if !known {
			continue
		}
		if err := checkType(q, a.Answer); err != nil {
			return err
		}
	}
	return nil
}

func checkType(q model.Question, v model.AnswerValue) error {
	switch q.Type {
	case model.QuestionYesNo:
		if v.Kind() != model.AnswerKindBool {
			return apperrors.NewValidation(q.ID, "answer for %q must be a boolean", q.Question)
		}
	case model.QuestionNumber:
		if v.Kind() != model.AnswerKindNumber {
			return apperrors.NewValidation(q.ID, "answer for %q must be a number", q.Question)
		}
	case model.QuestionMultipleChoice:
		s := v.String()
		for _, opt := range q.Options {
			if opt == s {
				return nil
			}
		}
		return apperrors.NewValidation(q.ID, "answer for %q must be one of: %s", q.Question, strings.Join(q.Options, ", "))
	}
	return nil
}

// Snapshot copies question text and type onto the stored answers so history
// survives later questionnaire edits. Unknown questions keep the submitted
// type.
func Snapshot(questions []model.Question, answers []model.AnswerInput) []model.Answer {
	index := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		index[q.ID] = q
	}

	out := make([]model.Answer, 0, len(answers))
	for _, a := range answers {
		stored := model.Answer{
			QuestionID: a.QuestionID,
			Answer:     a.Answer,
			AnswerType: a.AnswerType,
		}
		if q, ok := index[a.QuestionID]; ok {
			stored.Question = q.Question
			if stored.AnswerType == "" {
				stored.AnswerType = q.Type
			}
		}
		out = append(out, stored)
	}
	return out
}
