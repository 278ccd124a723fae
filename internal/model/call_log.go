package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// CallStatus is the outcome of one call attempt.
type CallStatus string

const (
	CallCompleted CallStatus = "completed"
	CallMissed    CallStatus = "missed"
	CallBusy      CallStatus = "busy"
	CallNoAnswer  CallStatus = "no_answer"
	CallVoicemail CallStatus = "voicemail"
	CallOther     CallStatus = "other"
)

// CallLog is an append-only record of one call attempt. AssignedTo is the
// caller who recorded it and never changes.
type CallLog struct {
	ID               string                      `json:"id" gorm:"primaryKey;type:text"`
	WorkspaceID      string                      `json:"workspace_id" gorm:"column:workspace_id;index;type:text;not null"`
	CallListItemID   string                      `json:"call_list_item_id" gorm:"column:call_list_item_id;index;type:text;not null"`
	CallListID       string                      `json:"call_list_id" gorm:"column:call_list_id;index;type:text;not null"`
	StudentID        string                      `json:"student_id" gorm:"column:student_id;index;type:text;not null"`
	AssignedTo       string                      `json:"assigned_to" gorm:"column:assigned_to;index;type:text;not null"`
	CallDate         time.Time                   `json:"call_date" gorm:"column:call_date;index;not null"`
	CallDuration     *int                        `json:"call_duration,omitempty" gorm:"column:call_duration"`
	Status           CallStatus                  `json:"status" gorm:"type:text;not null"`
	Answers          datatypes.JSONSlice[Answer] `json:"answers" gorm:"type:jsonb"`
	Notes            string                      `json:"notes,omitempty" gorm:"type:text"`
	CallerNote       string                      `json:"caller_note,omitempty" gorm:"column:caller_note;type:text"`
	FollowUpRequired bool                        `json:"follow_up_required" gorm:"column:follow_up_required;not null"`
	FollowUpDate     *time.Time                  `json:"follow_up_date,omitempty" gorm:"column:follow_up_date"`
	CreatedAt        time.Time                   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time                   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the CallLog model, respecting the Namer.
func (CallLog) TableName(namer schema.Namer) string {
	return namer.TableName("call_logs")
}

// CallLogDetail is a call log with its relations resolved for display.
type CallLogDetail struct {
	CallLog
	Item     *CallListItem `json:"item,omitempty"`
	CallList *CallList     `json:"call_list,omitempty"`
	Student  *Student      `json:"student,omitempty"`
	// Followup is the follow-up scheduled from this log, if the best-effort step succeeded.
	Followup *Followup `json:"followup,omitempty"`
}
