package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

// followupFromCall records a call on a fresh item that asks for a follow-up.
func (f *fixture) followupFromCall(t *testing.T, list *model.CallList, studentID string) (*model.CallLogDetail, model.Followup) {
	t.Helper()
	item := f.assignedItem(t, list, studentID, alice)
	detail, err := f.svc.CreateCallLog(as(alice), model.CreateCallLogInput{
		CallListItemID:   item.ID,
		Status:           model.CallBusy,
		FollowUpRequired: true,
		FollowUpDate:     "2025-01-15T00:00:00Z",
	})
	require.NoError(t, err)
	require.NotNil(t, detail.Followup)
	return detail, *detail.Followup
}

func yes() []model.AnswerInput {
	return []model.AnswerInput{{QuestionID: "q1", Answer: model.BoolAnswer(true)}}
}

func TestCompleteFollowupCallLog(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, strPtr("grp_1"))
	first, fu := f.followupFromCall(t, list, "stu_1")
	f.tick(time.Hour)

	detail, err := f.svc.CompleteFollowupCallLog(as(alice), fu.ID, model.CompleteFollowupInput{
		Status:  model.CallCompleted,
		Answers: yes(),
	})
	require.NoError(t, err)
	assert.Equal(t, first.CallListItemID, detail.CallListItemID, "the existing item is reused")
	assert.Nil(t, detail.Followup)

	closed, err := f.svc.GetFollowup(as(alice), fu.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowupDone, closed.Status)
	require.NotNil(t, closed.CompletedCallLogID)
	assert.Equal(t, detail.ID, *closed.CompletedCallLogID)
	assert.NotNil(t, closed.CompletedAt)

	logs, err := f.svc.ListCallLogsByCallList(as(alice), list.ID, model.Page{})
	require.NoError(t, err)
	assert.Len(t, logs.Items, 2)

	item, err := f.svc.GetItem(as(alice), detail.CallListItemID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemDone, item.State)
	assert.Equal(t, detail.ID, *item.CallLogID)
	assert.Contains(t, f.events.types(), model.EventFollowupCompleted)

	_, err = f.svc.CompleteFollowupCallLog(as(alice), fu.ID, model.CompleteFollowupInput{Status: model.CallCompleted, Answers: yes()})
	assert.True(t, apperrors.IsNotFoundError(err), "a completed follow-up cannot be completed twice")
}

func TestCompleteFollowupCallLog_SynthesizesItem(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, strPtr("grp_1"))
	fu, err := f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{
		StudentID:  "stu_new",
		GroupID:    "grp_1",
		DueAt:      f.clock.Add(time.Hour),
		CallListID: &list.ID,
	})
	require.NoError(t, err)

	detail, err := f.svc.CompleteFollowupCallLog(as(alice), fu.ID, model.CompleteFollowupInput{
		Status:  model.CallCompleted,
		Answers: yes(),
	})
	require.NoError(t, err)

	require.NotNil(t, detail.Item)
	assert.Equal(t, "stu_new", detail.Item.StudentID)
	assert.Equal(t, model.ItemDone, detail.Item.State)
	assert.True(t, detail.Item.IsAssignedTo(alice.MemberID))

	items, err := f.svc.ListItems(as(alice), list.ID, model.ItemFilter{}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), items.Total)
}

func TestCompleteFollowupCallLog_RefreshesItemHolderStats(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, strPtr("grp_1"))
	f.assignedItem(t, list, "stu_1", bob)

	before, err := f.svc.GetMyCallsStats(as(bob), list.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), before.Queued)

	fu, err := f.svc.CreateFollowup(as(admin), model.CreateFollowupInput{
		StudentID:  "stu_1",
		GroupID:    "grp_1",
		DueAt:      f.clock.Add(time.Hour),
		CallListID: &list.ID,
		AssignedTo: &alice.MemberID,
	})
	require.NoError(t, err)

	_, err = f.svc.CompleteFollowupCallLog(as(alice), fu.ID, model.CompleteFollowupInput{
		Status:  model.CallCompleted,
		Answers: yes(),
	})
	require.NoError(t, err)
	assert.Contains(t, f.stats.invalidated, bob.MemberID)

	after, err := f.svc.GetMyCallsStats(as(bob), list.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), after.Queued)
	assert.Equal(t, int64(1), after.Done)
}

func TestCompleteFollowupCallLog_EnforcesRequiredAnswers(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, strPtr("grp_1"))
	_, fu := f.followupFromCall(t, list, "stu_1")

	_, err := f.svc.CompleteFollowupCallLog(as(alice), fu.ID, model.CompleteFollowupInput{
		Status:  model.CallCompleted,
		Answers: []model.AnswerInput{},
	})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "q1", verr.Field)

	_, err = f.svc.CompleteFollowupCallLog(as(alice), fu.ID, model.CompleteFollowupInput{Status: model.CallCompleted})
	assert.True(t, apperrors.IsValidationError(err), "answers must be present")

	stored, err := f.svc.GetFollowup(as(alice), fu.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowupPending, stored.Status)
}

func TestCompleteFollowupCallLog_ChainsNextFollowup(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, strPtr("grp_1"))
	_, fu := f.followupFromCall(t, list, "stu_1")

	detail, err := f.svc.CompleteFollowupCallLog(as(alice), fu.ID, model.CompleteFollowupInput{
		Status:           model.CallVoicemail,
		Answers:          yes(),
		FollowUpRequired: true,
		FollowUpDate:     "2025-01-20",
	})
	require.NoError(t, err)
	require.NotNil(t, detail.Followup)
	assert.NotEqual(t, fu.ID, detail.Followup.ID)
	assert.Equal(t, model.FollowupPending, detail.Followup.Status)
	assert.Equal(t, detail.ID, *detail.Followup.PreviousCallLogID)
}

func TestCompleteFollowupCallLog_Guards(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, strPtr("grp_1"))
	_, fu := f.followupFromCall(t, list, "stu_1")

	_, err := f.svc.CompleteFollowupCallLog(as(bob), fu.ID, model.CompleteFollowupInput{Status: model.CallCompleted, Answers: yes()})
	assert.True(t, apperrors.IsForbiddenError(err))

	loose, err := f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1", DueAt: f.clock})
	require.NoError(t, err)
	_, err = f.svc.CompleteFollowupCallLog(as(alice), loose.ID, model.CompleteFollowupInput{Status: model.CallCompleted, Answers: yes()})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "call_list_id", verr.Field)

	_, err = f.svc.CompleteFollowupCallLog(as(alice), "missing", model.CompleteFollowupInput{Status: model.CallCompleted, Answers: yes()})
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestCreateFollowup(t *testing.T) {
	f := newFixture(t)
	due := f.clock.Add(48 * time.Hour)

	fu, err := f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1", DueAt: due, Notes: "ask about fees"})
	require.NoError(t, err)
	assert.Equal(t, model.FollowupPending, fu.Status)
	assert.Equal(t, alice.MemberID, *fu.AssignedTo)
	assert.Nil(t, fu.CallListID)
	assert.Contains(t, f.stats.invalidated, alice.MemberID)

	_, err = f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1", DueAt: due, AssignedTo: &bob.MemberID})
	assert.True(t, apperrors.IsForbiddenError(err))

	forBob, err := f.svc.CreateFollowup(as(admin), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1", DueAt: due, AssignedTo: &bob.MemberID})
	require.NoError(t, err)
	assert.Equal(t, bob.MemberID, *forBob.AssignedTo)

	_, err = f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1"})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1", DueAt: due, CallListID: strPtr("missing")})
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestUpdateFollowup(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, strPtr("grp_1"))
	_, fu := f.followupFromCall(t, list, "stu_1")

	later := fu.DueAt.Add(72 * time.Hour)
	updated, err := f.svc.UpdateFollowup(as(alice), fu.ID, model.UpdateFollowupInput{DueAt: &later, Notes: strPtr("moved")})
	require.NoError(t, err)
	assert.True(t, later.Equal(updated.DueAt))
	assert.Equal(t, "moved", updated.Notes)

	done := model.FollowupDone
	_, err = f.svc.UpdateFollowup(as(alice), fu.ID, model.UpdateFollowupInput{Status: &done})
	assert.True(t, apperrors.IsValidationError(err), "DONE is only reached through a call")

	_, err = f.svc.UpdateFollowup(as(alice), fu.ID, model.UpdateFollowupInput{AssignedTo: &bob.MemberID})
	assert.True(t, apperrors.IsForbiddenError(err))

	reassigned, err := f.svc.UpdateFollowup(as(admin), fu.ID, model.UpdateFollowupInput{AssignedTo: &bob.MemberID})
	require.NoError(t, err)
	assert.Equal(t, bob.MemberID, *reassigned.AssignedTo)
	assert.Contains(t, f.stats.invalidated, alice.MemberID)
	assert.Contains(t, f.stats.invalidated, bob.MemberID)

	_, err = f.svc.UpdateFollowup(as(alice), fu.ID, model.UpdateFollowupInput{Notes: strPtr("mine again?")})
	assert.True(t, apperrors.IsForbiddenError(err))

	skipped := model.FollowupSkipped
	_, err = f.svc.UpdateFollowup(as(bob), fu.ID, model.UpdateFollowupInput{Status: &skipped})
	require.NoError(t, err)

	_, err = f.svc.UpdateFollowup(as(bob), fu.ID, model.UpdateFollowupInput{Notes: strPtr("too late")})
	assert.True(t, apperrors.IsNotFoundError(err), "skipped follow-ups are frozen")
}

func TestDeleteFollowup(t *testing.T) {
	f := newFixture(t)
	fu, err := f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1", DueAt: f.clock})
	require.NoError(t, err)

	err = f.svc.DeleteFollowup(as(alice), fu.ID)
	assert.True(t, apperrors.IsForbiddenError(err))

	require.NoError(t, f.svc.DeleteFollowup(as(admin), fu.ID))
	_, err = f.svc.GetFollowup(as(admin), fu.ID)
	assert.True(t, apperrors.IsNotFoundError(err))

	err = f.svc.DeleteFollowup(as(admin), fu.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestListFollowups_Overdue(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1", DueAt: f.clock.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{StudentID: "stu_2", GroupID: "grp_1", DueAt: f.clock.Add(time.Hour)})
	require.NoError(t, err)

	overdue, err := f.svc.ListFollowups(as(alice), model.FollowupFilter{Overdue: true}, model.Page{})
	require.NoError(t, err)
	require.Len(t, overdue.Items, 1)
	assert.Equal(t, "stu_1", overdue.Items[0].StudentID)

	all, err := f.svc.ListFollowups(as(alice), model.FollowupFilter{AssignedTo: alice.MemberID}, model.Page{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, "stu_1", all.Items[0].StudentID, "soonest due first")
}

func TestGetFollowupCallContext(t *testing.T) {
	f := newFixture(t)
	list := f.yesNoList(t, strPtr("grp_1"))
	f.student("stu_1", "grp_1")
	first, fu := f.followupFromCall(t, list, "stu_1")

	cc, err := f.svc.GetFollowupCallContext(as(alice), fu.ID)
	require.NoError(t, err)
	require.NotNil(t, cc.CallList)
	assert.Equal(t, list.ID, cc.CallList.ID)
	require.Len(t, cc.Questions, 1)
	assert.Equal(t, []string{"Hello from admissions"}, cc.Messages)
	require.NotNil(t, cc.Student)
	require.NotNil(t, cc.Item)
	assert.Equal(t, first.CallListItemID, cc.Item.ID)
	require.NotNil(t, cc.PreviousCallLog)
	assert.Equal(t, first.ID, cc.PreviousCallLog.ID)
	require.NotNil(t, cc.LatestCallLog)
	assert.Equal(t, first.ID, cc.LatestCallLog.ID)
}

func TestGetFollowupCallContext_MissingRelations(t *testing.T) {
	f := newFixture(t)
	fu, err := f.svc.CreateFollowup(as(alice), model.CreateFollowupInput{
		StudentID:         "stu_gone",
		GroupID:           "grp_1",
		DueAt:             f.clock,
		PreviousCallLogID: strPtr("log_gone"),
	})
	require.NoError(t, err)

	cc, err := f.svc.GetFollowupCallContext(as(alice), fu.ID)
	require.NoError(t, err)
	assert.Nil(t, cc.CallList)
	assert.Nil(t, cc.Student)
	assert.Nil(t, cc.PreviousCallLog)
	assert.Empty(t, cc.Questions)
	assert.NotNil(t, cc.Messages)
}

func TestFollowupAssignees_MustBeWorkspaceMembers(t *testing.T) {
	f := newFixture(t)
	ghost := "mem_ghost"

	_, err := f.svc.CreateFollowup(as(admin), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1", DueAt: f.clock, AssignedTo: &ghost})
	assert.True(t, apperrors.IsNotFoundError(err))

	fu, err := f.svc.CreateFollowup(as(admin), model.CreateFollowupInput{StudentID: "stu_1", GroupID: "grp_1", DueAt: f.clock, AssignedTo: &alice.MemberID})
	require.NoError(t, err)

	_, err = f.svc.UpdateFollowup(as(admin), fu.ID, model.UpdateFollowupInput{AssignedTo: &ghost})
	assert.True(t, apperrors.IsNotFoundError(err))

	kept, err := f.svc.GetFollowup(as(admin), fu.ID)
	require.NoError(t, err)
	require.NotNil(t, kept.AssignedTo)
	assert.Equal(t, alice.MemberID, *kept.AssignedTo)
}
