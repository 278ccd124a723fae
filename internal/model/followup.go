package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// FollowupStatus is the lifecycle state of a follow-up.
type FollowupStatus string

const (
	FollowupPending FollowupStatus = "PENDING"
	FollowupDone    FollowupStatus = "DONE"
	FollowupSkipped FollowupStatus = "SKIPPED"
)

// Terminal reports whether the follow-up can no longer change.
func (s FollowupStatus) Terminal() bool {
	return s == FollowupDone || s == FollowupSkipped
}

// Followup is a scheduled future contact.
type Followup struct {
	ID                 string         `json:"id" gorm:"primaryKey;type:text"`
	WorkspaceID        string         `json:"workspace_id" gorm:"column:workspace_id;index;type:text;not null"`
	StudentID          string         `json:"student_id" gorm:"column:student_id;index;type:text;not null"`
	GroupID            string         `json:"group_id" gorm:"column:group_id;index;type:text;not null"`
	CallListID         *string        `json:"call_list_id,omitempty" gorm:"column:call_list_id;index;type:text"`
	PreviousCallLogID  *string        `json:"previous_call_log_id,omitempty" gorm:"column:previous_call_log_id;type:text"`
	CompletedCallLogID *string        `json:"completed_call_log_id,omitempty" gorm:"column:completed_call_log_id;type:text"`
	AssignedTo         *string        `json:"assigned_to,omitempty" gorm:"column:assigned_to;index;type:text"`
	DueAt              time.Time      `json:"due_at" gorm:"column:due_at;index;not null"`
	Status             FollowupStatus `json:"status" gorm:"type:text;index;not null"`
	Notes              string         `json:"notes,omitempty" gorm:"type:text"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" gorm:"column:completed_at"`
	CreatedAt          time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Followup model, respecting the Namer.
func (Followup) TableName(namer schema.Namer) string {
	return namer.TableName("followups")
}

// FollowupCallContext is everything a caller needs to execute a follow-up.
type FollowupCallContext struct {
	Followup        Followup      `json:"followup"`
	CallList        *CallList     `json:"call_list,omitempty"`
	Questions       []Question    `json:"questions"`
	Messages        []string      `json:"messages"`
	Student         *Student      `json:"student,omitempty"`
	Item            *CallListItem `json:"item,omitempty"`
	PreviousCallLog *CallLog      `json:"previous_call_log,omitempty"`
	LatestCallLog   *CallLog      `json:"latest_call_log,omitempty"`
}
