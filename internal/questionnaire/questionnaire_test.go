package questionnaire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: "q_interest", Question: "Is the student interested?", Type: model.QuestionYesNo, Required: true, Order: 1},
		{ID: "q_siblings", Question: "How many siblings?", Type: model.QuestionNumber, Order: 2},
		{ID: "q_program", Question: "Preferred program", Type: model.QuestionMultipleChoice, Options: []string{"science", "arts", "3"}, Order: 3},
		{ID: "q_comment", Question: "Comments", Type: model.QuestionText, Order: 4},
		{ID: "q_visit", Question: "Visit date", Type: model.QuestionDate, Order: 5},
	}
}

func answer(id string, v model.AnswerValue) model.AnswerInput {
	return model.AnswerInput{QuestionID: id, Answer: v}
}

func requireValidation(t *testing.T, err error, field string) *apperrors.ValidationError {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	var ve *apperrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, field, ve.Field)
	return ve
}

func TestValidateAnswers_EmptyAnswersBypassRequired(t *testing.T) {
	assert.NoError(t, ValidateAnswers(sampleQuestions(), nil, false))
	assert.NoError(t, ValidateAnswers(sampleQuestions(), []model.AnswerInput{}, false))
}

func TestValidateAnswers_EmptyAnswersEnforcedWhenRequested(t *testing.T) {
	err := ValidateAnswers(sampleQuestions(), []model.AnswerInput{}, true)
	ve := requireValidation(t, err, "q_interest")
	assert.Contains(t, ve.Message, "Is the student interested?")
}

func TestValidateAnswers_MissingRequiredWithOtherAnswers(t *testing.T) {
	err := ValidateAnswers(sampleQuestions(), []model.AnswerInput{
		answer("q_siblings", model.NumberAnswer(2)),
	}, false)
	ve := requireValidation(t, err, "q_interest")
	assert.Contains(t, ve.Message, "required")
	assert.NotContains(t, ve.Message, "q_interest", "message names question text, not id")
}

func TestValidateAnswers_TypeChecks(t *testing.T) {
	base := answer("q_interest", model.BoolAnswer(true))

	tests := []struct {
		name      string
		extra     model.AnswerInput
		wantField string
	}{
		{"yes_no accepts bool", answer("q_interest", model.BoolAnswer(false)), ""},
		{"yes_no rejects string", answer("q_interest", model.StringAnswer("maybe")), "q_interest"},
		{"yes_no rejects string true", answer("q_interest", model.StringAnswer("true")), "q_interest"},
		{"yes_no rejects number", answer("q_interest", model.NumberAnswer(1)), "q_interest"},
		{"yes_no rejects null", answer("q_interest", model.AnswerValue{}), "q_interest"},
		{"number accepts number", answer("q_siblings", model.NumberAnswer(3)), ""},
		{"number accepts zero", answer("q_siblings", model.NumberAnswer(0)), ""},
		{"number rejects numeric string", answer("q_siblings", model.StringAnswer("3")), "q_siblings"},
		{"number rejects bool", answer("q_siblings", model.BoolAnswer(true)), "q_siblings"},
		{"choice accepts option", answer("q_program", model.StringAnswer("arts")), ""},
		{"choice compares as string", answer("q_program", model.NumberAnswer(3)), ""},
		{"choice rejects other", answer("q_program", model.StringAnswer("law")), "q_program"},
		{"choice is case sensitive", answer("q_program", model.StringAnswer("Arts")), "q_program"},
		{"choice rejects null", answer("q_program", model.AnswerValue{}), "q_program"},
		{"text accepts string", answer("q_comment", model.StringAnswer("call later")), ""},
		{"text accepts anything", answer("q_comment", model.NumberAnswer(9)), ""},
		{"date accepts string", answer("q_visit", model.StringAnswer("2025-03-01")), ""},
		{"date accepts unparsed string", answer("q_visit", model.StringAnswer("next week")), ""},
		{"unknown id accepted", answer("q_removed", model.BoolAnswer(true)), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := []model.AnswerInput{tt.extra}
			if tt.extra.QuestionID != "q_interest" {
				answers = append([]model.AnswerInput{base}, tt.extra)
			}
			err := ValidateAnswers(sampleQuestions(), answers, false)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			requireValidation(t, err, tt.wantField)
		})
	}
}

func TestValidateAnswers_FirstErrorWins(t *testing.T) {
	err := ValidateAnswers(sampleQuestions(), []model.AnswerInput{
		answer("q_interest", model.BoolAnswer(true)),
		answer("q_siblings", model.StringAnswer("two")),
		answer("q_program", model.StringAnswer("law")),
	}, false)
	requireValidation(t, err, "q_siblings")
}

func TestValidateAnswers_RequiredCheckedBeforeTypes(t *testing.T) {
	err := ValidateAnswers(sampleQuestions(), []model.AnswerInput{
		answer("q_siblings", model.StringAnswer("two")),
	}, false)
	requireValidation(t, err, "q_interest")
}

func TestValidateAnswers_NoQuestions(t *testing.T) {
	assert.NoError(t, ValidateAnswers(nil, []model.AnswerInput{answer("x", model.StringAnswer("y"))}, true))
	assert.NoError(t, ValidateAnswers(nil, nil, true))
}

func TestValidateAnswers_ChoiceMessageListsOptions(t *testing.T) {
	err := ValidateAnswers(sampleQuestions(), []model.AnswerInput{
		answer("q_interest", model.BoolAnswer(true)),
		answer("q_program", model.StringAnswer("law")),
	}, false)
	ve := requireValidation(t, err, "q_program")
	assert.Contains(t, ve.Message, "Preferred program")
	assert.Contains(t, ve.Message, "science, arts, 3")
}

func TestValidateQuestions(t *testing.T) {
	tests := []struct {
		name      string
		questions []model.Question
		wantField string
	}{
		{"valid", sampleQuestions(), ""},
		{"empty list", nil, ""},
		{"duplicate id", []model.Question{
			{ID: "a", Question: "A", Type: model.QuestionText},
			{ID: "a", Question: "B", Type: model.QuestionText},
		}, "a"},
		{"missing id", []model.Question{{ID: " ", Question: "A", Type: model.QuestionText}}, "questions"},
		{"missing text", []model.Question{{ID: "a", Type: model.QuestionText}}, "a"},
		{"unknown type", []model.Question{{ID: "a", Question: "A", Type: "rating"}}, "a"},
		{"choice with one option", []model.Question{
			{ID: "a", Question: "A", Type: model.QuestionMultipleChoice, Options: []string{"x"}},
		}, "a"},
		{"choice with no options", []model.Question{
			{ID: "a", Question: "A", Type: model.QuestionMultipleChoice},
		}, "a"},
		{"options ignored on text", []model.Question{
			{ID: "a", Question: "A", Type: model.QuestionText, Options: []string{"x"}},
		}, ""},
		{"same order allowed", []model.Question{
			{ID: "a", Question: "A", Type: model.QuestionText, Order: 1},
			{ID: "b", Question: "B", Type: model.QuestionText, Order: 1},
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestions(tt.questions)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			requireValidation(t, err, tt.wantField)
		})
	}
}

func TestSnapshot(t *testing.T) {
	qs := sampleQuestions()
	stored := Snapshot(qs, []model.AnswerInput{
		answer("q_interest", model.BoolAnswer(true)),
		{QuestionID: "q_comment", Answer: model.StringAnswer("hi"), AnswerType: model.QuestionText},
		{QuestionID: "q_gone", Answer: model.NumberAnswer(1), AnswerType: model.QuestionNumber},
	})

	require.Len(t, stored, 3)
	assert.Equal(t, "Is the student interested?", stored[0].Question)
	assert.Equal(t, model.QuestionYesNo, stored[0].AnswerType)
	assert.Equal(t, model.BoolAnswer(true), stored[0].Answer)
	assert.Equal(t, model.QuestionText, stored[1].AnswerType)
	assert.Equal(t, "", stored[2].Question)
	assert.Equal(t, model.QuestionNumber, stored[2].AnswerType)
	assert.Empty(t, Snapshot(qs, nil))
}
