package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// ItemState is the work state of a call list item.
type ItemState string

const (
	ItemQueued  ItemState = "QUEUED"
	ItemCalling ItemState = "CALLING"
	ItemDone    ItemState = "DONE"
	ItemSkipped ItemState = "SKIPPED"
)

// Terminal reports whether no further state change is defined for s.
func (s ItemState) Terminal() bool {
	return s == ItemDone || s == ItemSkipped
}

// CallListItem is one contact's unit of work within a campaign. CallLogID
// points at the most recent call log only; history lives in call_logs.
type CallListItem struct {
	ID          string            `json:"id" gorm:"primaryKey;type:text"`
	WorkspaceID string            `json:"workspace_id" gorm:"column:workspace_id;index;type:text;not null"`
	CallListID  string            `json:"call_list_id" gorm:"column:call_list_id;uniqueIndex:idx_call_list_items_list_student;type:text;not null"`
	StudentID   string            `json:"student_id" gorm:"column:student_id;uniqueIndex:idx_call_list_items_list_student;type:text;not null"`
	AssignedTo  *string           `json:"assigned_to,omitempty" gorm:"column:assigned_to;index;type:text"`
	State       ItemState         `json:"state" gorm:"type:text;index;not null"`
	Priority    int               `json:"priority" gorm:"not null"`
	CallLogID   *string           `json:"call_log_id,omitempty" gorm:"column:call_log_id;type:text"`
	Custom      datatypes.JSONMap `json:"custom,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the CallListItem model, respecting the Namer.
func (CallListItem) TableName(namer schema.Namer) string {
	return namer.TableName("call_list_items")
}

// IsAssignedTo reports whether the item is assigned to memberID.
func (i CallListItem) IsAssignedTo(memberID string) bool {
	return i.AssignedTo != nil && *i.AssignedTo == memberID
}

// IsUnassigned reports whether nobody holds the item.
func (i CallListItem) IsUnassigned() bool {
	return i.AssignedTo == nil || *i.AssignedTo == ""
}
