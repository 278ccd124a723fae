package model

import (
	"time"
)

// --- Call list payloads --- //

type CreateCallListInput struct {
	Name        string                 `json:"name" validate:"required,max=200"`
	Description string                 `json:"description,omitempty" validate:"omitempty,max=2000"`
	GroupID     *string                `json:"group_id,omitempty" validate:"omitempty"`
	Messages    []string               `json:"messages,omitempty" validate:"omitempty,dive,required"`
	Questions   []Question             `json:"questions,omitempty" validate:"omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty" validate:"omitempty"`
}

// UpdateCallListInput carries a partial update; nil fields are left unchanged.
type UpdateCallListInput struct {
	Name        *string                `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string                `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status      *CallListStatus        `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE COMPLETED ARCHIVED"`
	Messages    *[]string              `json:"messages,omitempty" validate:"omitempty"`
	Questions   *[]Question            `json:"questions,omitempty" validate:"omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty" validate:"omitempty"`
}

type CallListFilter struct {
	Status  CallListStatus `json:"status,omitempty" form:"status" validate:"omitempty,oneof=ACTIVE COMPLETED ARCHIVED"`
	GroupID string         `json:"group_id,omitempty" form:"group_id"`
	Search  string         `json:"search,omitempty" form:"search"`
}

// --- Call list item payloads --- //

type NewItemInput struct {
	StudentID  string                 `json:"student_id" validate:"required"`
	AssignedTo *string                `json:"assigned_to,omitempty" validate:"omitempty"`
	Priority   int                    `json:"priority,omitempty" validate:"omitempty"`
	Custom     map[string]interface{} `json:"custom,omitempty" validate:"omitempty"`
}

type AddItemsInput struct {
	Items []NewItemInput `json:"items" validate:"required,min=1,dive"`
}

// AddItemsResult reports which students got a new item and which were
// already part of the list.
type AddItemsResult struct {
	Created         []CallListItem `json:"created"`
	SkippedStudents []string       `json:"skipped_students"`
}

type UpdateItemInput struct {
	State    *ItemState             `json:"state,omitempty" validate:"omitempty,oneof=QUEUED CALLING DONE SKIPPED"`
	Priority *int                   `json:"priority,omitempty" validate:"omitempty"`
	Custom   map[string]interface{} `json:"custom,omitempty" validate:"omitempty"`
}

type AssignInput struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,required"`
	// AssignedTo defaults to the acting caller when empty.
	AssignedTo *string `json:"assigned_to,omitempty" validate:"omitempty"`
}

type UnassignInput struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,required"`
}

type RemoveItemsInput struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,required"`
}

// SkippedItem is an item excluded from a bulk operation.
type SkippedItem struct {
	ID         string  `json:"id"`
	Reason     string  `json:"reason"`
	AssignedTo *string `json:"assigned_to,omitempty"`
}

const (
	SkipReasonNotFound        = "not_found"
	SkipReasonAssignedToOther = "assigned_to_other"
)

type AssignmentResult struct {
	Updated []string      `json:"updated"`
	Skipped []SkippedItem `json:"skipped"`
}

type ItemFilter struct {
	State      ItemState `json:"state,omitempty" form:"state" validate:"omitempty,oneof=QUEUED CALLING DONE SKIPPED"`
	AssignedTo string    `json:"assigned_to,omitempty" form:"assigned_to"`
	Unassigned bool      `json:"unassigned,omitempty" form:"unassigned"`
}

// --- Call log payloads --- //

type CreateCallLogInput struct {
	CallListItemID   string        `json:"call_list_item_id" validate:"required"`
	Status           CallStatus    `json:"status" validate:"required,oneof=completed missed busy no_answer voicemail other"`
	CallDuration     *int          `json:"call_duration,omitempty" validate:"omitempty,gte=0"`
	Answers          []AnswerInput `json:"answers,omitempty" validate:"omitempty,dive"`
	Notes            string        `json:"notes,omitempty"`
	CallerNote       string        `json:"caller_note,omitempty"`
	FollowUpRequired bool          `json:"follow_up_required,omitempty"`
	FollowUpDate     string        `json:"follow_up_date,omitempty"`
	FollowUpNote     string        `json:"follow_up_note,omitempty"`
}

// CompleteFollowupInput is the outcome of executing a follow-up. Answers must
// be present, although it may be an empty list.
type CompleteFollowupInput struct {
	Status           CallStatus    `json:"status" validate:"required,oneof=completed missed busy no_answer voicemail other"`
	CallDuration     *int          `json:"call_duration,omitempty" validate:"omitempty,gte=0"`
	Answers          []AnswerInput `json:"answers" validate:"required,dive"`
	Notes            string        `json:"notes,omitempty"`
	CallerNote       string        `json:"caller_note,omitempty"`
	FollowUpRequired bool          `json:"follow_up_required,omitempty"`
	FollowUpDate     string        `json:"follow_up_date,omitempty"`
	FollowUpNote     string        `json:"follow_up_note,omitempty"`
}

// ToCallLogInput maps the outcome onto the call log creation shape.
func (in CompleteFollowupInput) ToCallLogInput(itemID string) CreateCallLogInput {
	return CreateCallLogInput{
		CallListItemID:   itemID,
		Status:           in.Status,
		CallDuration:     in.CallDuration,
		Answers:          in.Answers,
		Notes:            in.Notes,
		CallerNote:       in.CallerNote,
		FollowUpRequired: in.FollowUpRequired,
		FollowUpDate:     in.FollowUpDate,
		FollowUpNote:     in.FollowUpNote,
	}
}

type UpdateCallLogInput struct {
	Notes      *string `json:"notes,omitempty"`
	CallerNote *string `json:"caller_note,omitempty"`
}

type CallLogFilter struct {
	CallListID       string     `json:"call_list_id,omitempty" form:"call_list_id"`
	StudentID        string     `json:"student_id,omitempty" form:"student_id"`
	AssignedTo       string     `json:"assigned_to,omitempty" form:"assigned_to"`
	Status           CallStatus `json:"status,omitempty" form:"status"`
	FollowUpRequired *bool      `json:"follow_up_required,omitempty" form:"follow_up_required"`
	From             *time.Time `json:"from,omitempty" form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To               *time.Time `json:"to,omitempty" form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// --- Follow-up payloads --- //

type CreateFollowupInput struct {
	StudentID         string    `json:"student_id" validate:"required"`
	GroupID           string    `json:"group_id" validate:"required"`
	DueAt             time.Time `json:"due_at" validate:"required"`
	CallListID        *string   `json:"call_list_id,omitempty"`
	PreviousCallLogID *string   `json:"previous_call_log_id,omitempty"`
	AssignedTo        *string   `json:"assigned_to,omitempty"`
	Notes             string    `json:"notes,omitempty"`
}

type UpdateFollowupInput struct {
	DueAt      *time.Time      `json:"due_at,omitempty"`
	Notes      *string         `json:"notes,omitempty"`
	AssignedTo *string         `json:"assigned_to,omitempty"`
	Status     *FollowupStatus `json:"status,omitempty" validate:"omitempty,oneof=PENDING DONE SKIPPED"`
}

type FollowupFilter struct {
	Status     FollowupStatus `json:"status,omitempty" form:"status" validate:"omitempty,oneof=PENDING DONE SKIPPED"`
	AssignedTo string         `json:"assigned_to,omitempty" form:"assigned_to"`
	CallListID string         `json:"call_list_id,omitempty" form:"call_list_id"`
	StudentID  string         `json:"student_id,omitempty" form:"student_id"`
	GroupID    string         `json:"group_id,omitempty" form:"group_id"`
	DueFrom    *time.Time     `json:"due_from,omitempty" form:"due_from" time_format:"2006-01-02T15:04:05Z07:00"`
	DueTo      *time.Time     `json:"due_to,omitempty" form:"due_to" time_format:"2006-01-02T15:04:05Z07:00"`
	// Overdue selects PENDING follow-ups whose due time has passed.
	Overdue bool `json:"overdue,omitempty" form:"overdue"`
}

// --- My calls --- //

// FollowupScope narrows the follow-up filter of the my calls view.
type FollowupScope string

const (
	FollowupScopeAny  FollowupScope = "any"
	FollowupScopeMine FollowupScope = "mine"
)

type MyCallsFilter struct {
	CallListID       string        `json:"call_list_id,omitempty" form:"call_list_id"`
	State            ItemState     `json:"state,omitempty" form:"state" validate:"omitempty,oneof=QUEUED CALLING DONE SKIPPED"`
	FollowUpRequired *bool         `json:"follow_up_required,omitempty" form:"follow_up_required"`
	FollowUpScope    FollowupScope `json:"follow_up_scope,omitempty" form:"follow_up_scope" validate:"omitempty,oneof=any mine"`
}

// MyCallItem is an assigned item with the context a caller needs.
type MyCallItem struct {
	CallListItem
	CallListName string   `json:"call_list_name,omitempty"`
	Student      *Student `json:"student,omitempty"`
	LatestLog    *CallLog `json:"latest_log,omitempty"`
}

type MyCallsStats struct {
	TotalAssigned      int64 `json:"total_assigned"`
	Queued             int64 `json:"queued"`
	Calling            int64 `json:"calling"`
	Done               int64 `json:"done"`
	Skipped            int64 `json:"skipped"`
	TotalCalls         int64 `json:"total_calls"`
	CallsToday         int64 `json:"calls_today"`
	PendingFollowups   int64 `json:"pending_followups"`
	TotalFollowupCalls int64 `json:"total_followup_calls"`
	UpcomingFollowups  int64 `json:"upcoming_followups"`
	OverdueFollowups   int64 `json:"overdue_followups"`
}
