package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

func TestCreateCallList(t *testing.T) {
	f := newFixture(t)

	list, err := f.svc.CreateCallList(as(admin), model.CreateCallListInput{
		Name: "Re-enrolment",
		Questions: []model.Question{
			{ID: "q2", Question: "Which program?", Type: model.QuestionMultipleChoice, Options: []string{"a", "b"}, Order: 2},
			{ID: "q1", Question: "Reached?", Type: model.QuestionYesNo, Order: 1},
		},
		Meta: map[string]interface{}{"source": "crm"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.CallListActive, list.Status)
	assert.Equal(t, testWorkspace, list.WorkspaceID)
	assert.Equal(t, admin.MemberID, list.CreatedBy)
	assert.NotNil(t, list.Messages, "messages default to an empty list")
	require.Len(t, list.Questions, 2)
	assert.Equal(t, "q1", list.Questions[0].ID)
	assert.Equal(t, "crm", list.Meta["source"])
}

func TestCreateCallList_RejectsInvalidQuestionnaire(t *testing.T) {
	f := newFixture(t)

	testCases := []struct {
		name      string
		questions []model.Question
		field     string
	}{
		{
			name: "multiple choice with one option",
			questions: []model.Question{
				{ID: "q1", Question: "Pick", Type: model.QuestionMultipleChoice, Options: []string{"only"}},
			},
			field: "q1",
		},
		{
			name: "duplicate ids",
			questions: []model.Question{
				{ID: "q1", Question: "One", Type: model.QuestionText},
				{ID: "q1", Question: "Two", Type: model.QuestionText},
			},
			field: "q1",
		},
		{
			name: "unknown type",
			questions: []model.Question{
				{ID: "q9", Question: "Rate", Type: "stars"},
			},
			field: "q9",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateCallList(as(admin), model.CreateCallListInput{Name: "Broken", Questions: tc.questions})
			require.Error(t, err)
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestUpdateCallList(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, nil)

	name := "Autumn intake"
	questions := []model.Question{{ID: "q7", Question: "Budget?", Type: model.QuestionNumber}}
	updated, err := f.svc.UpdateCallList(as(admin), list.ID, model.UpdateCallListInput{Name: &name, Questions: &questions})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	require.Len(t, updated.Questions, 1)
	assert.Equal(t, "q7", updated.Questions[0].ID)
	assert.Equal(t, []string{"Hello from admissions"}, []string(updated.Messages))

	_, err = f.svc.UpdateCallList(as(admin), "missing", model.UpdateCallListInput{Name: &name})
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestArchiveCallList_BlocksNewItems(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, nil)

	archived, err := f.svc.ArchiveCallList(as(admin), list.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallListArchived, archived.Status)

	_, err = f.svc.AddItems(as(admin), list.ID, model.AddItemsInput{Items: []model.NewItemInput{{StudentID: "stu_1"}}})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestListCallLists(t *testing.T) {
	f := newFixture(t)
	f.yesNoList(t, nil)
	_, err := f.svc.CreateCallList(as(admin), model.CreateCallListInput{Name: "Alumni survey", GroupID: strPtr("grp_1")})
	require.NoError(t, err)

	all, err := f.svc.ListCallLists(as(alice), model.CallListFilter{}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Equal(t, model.DefaultPageSize, all.Size)

	byGroup, err := f.svc.ListCallLists(as(alice), model.CallListFilter{GroupID: "grp_1"}, model.Page{})
	require.NoError(t, err)
	require.Len(t, byGroup.Items, 1)
	assert.Equal(t, "Alumni survey", byGroup.Items[0].Name)

	_, err = f.svc.ListCallLists(as(alice), model.CallListFilter{Status: "DRAFT"}, model.Page{})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestGetCallList_OtherWorkspaceIsNotFound(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, nil)

	outsider := admin
	outsider.WorkspaceID = "ws_other"
	_, err := f.svc.GetCallList(as(outsider), list.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
}
