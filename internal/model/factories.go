package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewQuestion creates a question of the given type with fake text. Multiple
// choice questions get three options.
func NewQuestion(id string, qt QuestionType, required bool) Question {
	q := Question{
		ID:       id,
		Question: gofakeit.Question(),
		Type:     qt,
		Required: required,
		Order:    gofakeit.Number(0, 10),
	}
	if qt == QuestionMultipleChoice {
		q.Options = []string{"alpha", "beta", "gamma"}
	}
	return q
}

// NewCallList creates a CallList with fake data. Non-empty fields of the
// override replace the defaults.
func NewCallList(overrideDefaults ...*CallList) *CallList {
	base := &CallList{
		ID:          uuid.NewString(),
		WorkspaceID: "ws_" + gofakeit.LetterN(8),
		Name:        gofakeit.BuzzWord() + " campaign",
		Description: gofakeit.Sentence(8),
		Status:      CallListActive,
		Messages:    []string{gofakeit.Sentence(6), gofakeit.Sentence(6)},
		Questions: []Question{
			NewQuestion("q_interest", QuestionYesNo, true),
			NewQuestion("q_program", QuestionMultipleChoice, false),
		},
		CreatedBy: "mem_" + gofakeit.LetterN(8),
		CreatedAt: utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt: utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.WorkspaceID != "" {
			base.WorkspaceID = ovr.WorkspaceID
		}
		if ovr.GroupID != nil {
			base.GroupID = ovr.GroupID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.Questions != nil {
			base.Questions = ovr.Questions
		}
		if ovr.Messages != nil {
			base.Messages = ovr.Messages
		}
		if ovr.Meta != nil {
			base.Meta = ovr.Meta
		}
	}
	return base
}

// NewCallListItem creates a QUEUED item with fake data.
func NewCallListItem(overrideDefaults ...*CallListItem) *CallListItem {
	base := &CallListItem{
		ID:          uuid.NewString(),
		WorkspaceID: "ws_" + gofakeit.LetterN(8),
		CallListID:  uuid.NewString(),
		StudentID:   "stu_" + gofakeit.LetterN(10),
		State:       ItemQueued,
		Priority:    gofakeit.Number(0, 5),
		CreatedAt:   utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Minute),
		UpdatedAt:   utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.WorkspaceID != "" {
			base.WorkspaceID = ovr.WorkspaceID
		}
		if ovr.CallListID != "" {
			base.CallListID = ovr.CallListID
		}
		if ovr.StudentID != "" {
			base.StudentID = ovr.StudentID
		}
		if ovr.State != "" {
			base.State = ovr.State
		}
		base.AssignedTo = ovr.AssignedTo
		base.CallLogID = ovr.CallLogID
		if ovr.Priority != 0 {
			base.Priority = ovr.Priority
		}
		if ovr.Custom != nil {
			base.Custom = ovr.Custom
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
	}
	return base
}

// NewCallLog creates a completed call log with fake data.
func NewCallLog(overrideDefaults ...*CallLog) *CallLog {
	duration := gofakeit.Number(10, 900)
	base := &CallLog{
		ID:             uuid.NewString(),
		WorkspaceID:    "ws_" + gofakeit.LetterN(8),
		CallListItemID: uuid.NewString(),
		CallListID:     uuid.NewString(),
		StudentID:      "stu_" + gofakeit.LetterN(10),
		AssignedTo:     "mem_" + gofakeit.LetterN(8),
		CallDate:       utils.Now().Add(-time.Duration(gofakeit.Number(1, 48)) * time.Hour),
		CallDuration:   &duration,
		Status:         CallCompleted,
		Answers:        []Answer{},
		Notes:          gofakeit.Sentence(10),
		CreatedAt:      utils.Now(),
		UpdatedAt:      utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.WorkspaceID != "" {
			base.WorkspaceID = ovr.WorkspaceID
		}
		if ovr.CallListItemID != "" {
			base.CallListItemID = ovr.CallListItemID
		}
		if ovr.CallListID != "" {
			base.CallListID = ovr.CallListID
		}
		if ovr.StudentID != "" {
			base.StudentID = ovr.StudentID
		}
		if ovr.AssignedTo != "" {
			base.AssignedTo = ovr.AssignedTo
		}
		if !ovr.CallDate.IsZero() {
			base.CallDate = ovr.CallDate
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.Answers != nil {
			base.Answers = ovr.Answers
		}
		base.FollowUpRequired = ovr.FollowUpRequired
		base.FollowUpDate = ovr.FollowUpDate
	}
	return base
}

// NewFollowup creates a PENDING follow-up due tomorrow.
func NewFollowup(overrideDefaults ...*Followup) *Followup {
	base := &Followup{
		ID:          uuid.NewString(),
		WorkspaceID: "ws_" + gofakeit.LetterN(8),
		StudentID:   "stu_" + gofakeit.LetterN(10),
		GroupID:     "grp_" + gofakeit.LetterN(6),
		DueAt:       utils.Now().Add(24 * time.Hour),
		Status:      FollowupPending,
		Notes:       gofakeit.Sentence(6),
		CreatedAt:   utils.Now(),
		UpdatedAt:   utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.WorkspaceID != "" {
			base.WorkspaceID = ovr.WorkspaceID
		}
		if ovr.StudentID != "" {
			base.StudentID = ovr.StudentID
		}
		if ovr.GroupID != "" {
			base.GroupID = ovr.GroupID
		}
		if !ovr.DueAt.IsZero() {
			base.DueAt = ovr.DueAt
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		base.CallListID = ovr.CallListID
		base.PreviousCallLogID = ovr.PreviousCallLogID
		base.AssignedTo = ovr.AssignedTo
	}
	return base
}

// NewStudent creates a contact record with fake data.
func NewStudent(overrideDefaults ...*Student) *Student {
	base := &Student{
		ID:          "stu_" + gofakeit.LetterN(10),
		WorkspaceID: "ws_" + gofakeit.LetterN(8),
		GroupID:     "grp_" + gofakeit.LetterN(6),
		Name:        gofakeit.Name(),
		Email:       gofakeit.Email(),
		Phones:      []string{gofakeit.Phone()},
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.WorkspaceID != "" {
			base.WorkspaceID = ovr.WorkspaceID
		}
		base.GroupID = ovr.GroupID
	}
	return base
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
