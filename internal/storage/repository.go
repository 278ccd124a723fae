package storage

import (
	"context"
	"time"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

// All repositories scope reads and writes to the workspace carried by the
// context (tenant.WithWorkspaceID / tenant.WithCaller).

// CallListRepo defines call list storage operations
type CallListRepo interface {
	Create(ctx context.Context, list model.CallList) error
	Update(ctx context.Context, list model.CallList) error
	FindByID(ctx context.Context, id string) (*model.CallList, error)
	List(ctx context.Context, filter model.CallListFilter, page model.Page) ([]model.CallList, int64, error)
}

// CallListItemRepo defines call list item storage operations
type CallListItemRepo interface {
	// Create inserts items, skipping any (call list, student) pair that
	// already exists. It returns the inserted items.
	Create(ctx context.Context, items []model.CallListItem) ([]model.CallListItem, error)
	FindByID(ctx context.Context, id string) (*model.CallListItem, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.CallListItem, error)
	FindByListAndStudent(ctx context.Context, callListID, studentID string) (*model.CallListItem, error)
	// Update persists state, priority and custom fields.
	Update(ctx context.Context, item model.CallListItem) error
	// Assign sets assigned_to on the given items and returns the ids that
	// changed. A non-empty claimant restricts the write to items that are
	// unassigned or already held by the claimant, as a single conditional
	// update.
	Assign(ctx context.Context, ids []string, assignee, claimant string) ([]string, error)
	// Unassign clears assigned_to with the same claimant rule as Assign.
	Unassign(ctx context.Context, ids []string, claimant string) ([]string, error)
	Delete(ctx context.Context, callListID string, ids []string) (int64, error)
	// DeleteUnused removes an item only while no call log points at it and
	// reports whether it did.
	DeleteUnused(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, callListID string, filter model.ItemFilter, page model.Page) ([]model.CallListItem, int64, error)
	// FindAssigned returns every item assigned to memberID, ordered by
	// priority desc then creation time.
	FindAssigned(ctx context.Context, memberID, callListID string, state model.ItemState) ([]model.CallListItem, error)
	CountByState(ctx context.Context, memberID, callListID string) (map[model.ItemState]int64, error)
}

// CallLogRepo defines call log storage operations
type CallLogRepo interface {
	// SaveForItem inserts the log and points its item at it (state DONE) in
	// one transaction. When followupID is set the follow-up is closed in the
	// same transaction; a follow-up that is no longer PENDING aborts the
	// whole write with ErrNotFound.
	SaveForItem(ctx context.Context, log model.CallLog, followupID string) error
	FindByID(ctx context.Context, id string) (*model.CallLog, error)
	// UpdateNotes persists notes and caller_note only.
	UpdateNotes(ctx context.Context, log model.CallLog) error
	List(ctx context.Context, filter model.CallLogFilter, page model.Page) ([]model.CallLog, int64, error)
	// LatestForItems returns the most recent log per item id, by call date
	// then creation time.
	LatestForItems(ctx context.Context, itemIDs []string) (map[string]model.CallLog, error)
	CountByCaller(ctx context.Context, memberID string, q CallLogCountQuery) (int64, error)
}

// CallLogCountQuery narrows CountByCaller.
type CallLogCountQuery struct {
	CallListID   string
	Since        *time.Time
	FollowUpOnly bool
}

// FollowupRepo defines follow-up storage operations
type FollowupRepo interface {
	Create(ctx context.Context, followup model.Followup) error
	FindByID(ctx context.Context, id string) (*model.Followup, error)
	// UpdatePending persists a follow-up only while the stored row is still
	// PENDING, otherwise ErrNotFound.
	UpdatePending(ctx context.Context, followup model.Followup) error
	// DeletePending removes a PENDING follow-up, otherwise ErrNotFound.
	DeletePending(ctx context.Context, id string) error
	List(ctx context.Context, filter model.FollowupFilter, now time.Time, page model.Page) ([]model.Followup, int64, error)
	// CountPending counts PENDING follow-ups of memberID due after and
	// before now.
	CountPending(ctx context.Context, memberID, callListID string, now time.Time) (upcoming int64, overdue int64, err error)
}

// StudentDirectory is the read-only contact directory.
type StudentDirectory interface {
	FindStudent(ctx context.Context, id string) (*model.Student, error)
	FindStudents(ctx context.Context, ids []string) (map[string]model.Student, error)
}

// MemberDirectory resolves identity users to workspace members.
type MemberDirectory interface {
	ResolveMember(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error)
	// FindMember looks a member up by its own id.
	FindMember(ctx context.Context, workspaceID, memberID string) (*model.WorkspaceMember, error)
}

// Repository combines every store the engine needs.
type Repository interface {
	CallLists() CallListRepo
	Items() CallListItemRepo
	CallLogs() CallLogRepo
	Followups() FollowupRepo
	Students() StudentDirectory
	Members() MemberDirectory
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
