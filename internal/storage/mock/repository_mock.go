package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage"
)

// --- Repository Mock (Combined Interface) ---

// RepositoryMock mocks the combined Repository interface. Each store is a
// separate mock so expectations stay per store.
type RepositoryMock struct {
	mock.Mock
	CallListRepo *CallListRepoMock
	ItemRepo     *CallListItemRepoMock
	CallLogRepo  *CallLogRepoMock
	FollowupRepo *FollowupRepoMock
	StudentDir   *StudentDirectoryMock
	MemberDir    *MemberDirectoryMock
}

// NewRepositoryMock wires empty store mocks.
func NewRepositoryMock() *RepositoryMock {
	return &RepositoryMock{
		CallListRepo: &CallListRepoMock{},
		ItemRepo:     &CallListItemRepoMock{},
		CallLogRepo:  &CallLogRepoMock{},
		FollowupRepo: &FollowupRepoMock{},
		StudentDir:   &StudentDirectoryMock{},
		MemberDir:    &MemberDirectoryMock{},
	}
}

func (m *RepositoryMock) CallLists() storage.CallListRepo { return m.CallListRepo }
func (m *RepositoryMock) Items() storage.CallListItemRepo { return m.ItemRepo }
func (m *RepositoryMock) CallLogs() storage.CallLogRepo { return m.CallLogRepo }
func (m *RepositoryMock) Followups() storage.FollowupRepo { return m.FollowupRepo }
func (m *RepositoryMock) Students() storage.StudentDirectory { return m.StudentDir }
func (m *RepositoryMock) Members() storage.MemberDirectory { return m.MemberDir }

// Ping mocks the Ping method
func (m *RepositoryMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks the Close method
func (m *RepositoryMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// AssertAll asserts the expectations of every store mock.
func (m *RepositoryMock) AssertAll(t mock.TestingT) {
	m.AssertExpectations(t)
	m.CallListRepo.AssertExpectations(t)
	m.ItemRepo.AssertExpectations(t)
	m.CallLogRepo.AssertExpectations(t)
	m.FollowupRepo.AssertExpectations(t)
	m.StudentDir.AssertExpectations(t)
	m.MemberDir.AssertExpectations(t)
}

// --- CallListRepo Mock ---

// CallListRepoMock mocks the CallListRepo interface
type CallListRepoMock struct {
	mock.Mock
}

func (m *CallListRepoMock) Create(ctx context.Context, list model.CallList) error {
	args := m.Called(ctx, list)
	return args.Error(0)
}

func (m *CallListRepoMock) Update(ctx context.Context, list model.CallList) error {
	args := m.Called(ctx, list)
	return args.Error(0)
}

func (m *CallListRepoMock) FindByID(ctx context.Context, id string) (*model.CallList, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallList), args.Error(1)
}

func (m *CallListRepoMock) List(ctx context.Context, filter model.CallListFilter, page model.Page) ([]model.CallList, int64, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.CallList), args.Get(1).(int64), args.Error(2)
}

// --- CallListItemRepo Mock ---

// CallListItemRepoMock mocks the CallListItemRepo interface
type CallListItemRepoMock struct {
	mock.Mock
}

func (m *CallListItemRepoMock) Create(ctx context.Context, items []model.CallListItem) ([]model.CallListItem, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CallListItem), args.Error(1)
}

func (m *CallListItemRepoMock) FindByID(ctx context.Context, id string) (*model.CallListItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallListItem), args.Error(1)
}

func (m *CallListItemRepoMock) FindByIDs(ctx context.Context, ids []string) ([]model.CallListItem, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CallListItem), args.Error(1)
}

func (m *CallListItemRepoMock) FindByListAndStudent(ctx context.Context, callListID, studentID string) (*model.CallListItem, error) {
	args := m.Called(ctx, callListID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallListItem), args.Error(1)
}

func (m *CallListItemRepoMock) Update(ctx context.Context, item model.CallListItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *CallListItemRepoMock) Assign(ctx context.Context, ids []string, assignee, claimant string) ([]string, error) {
	args := m.Called(ctx, ids, assignee, claimant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *CallListItemRepoMock) Unassign(ctx context.Context, ids []string, claimant string) ([]string, error) {
	args := m.Called(ctx, ids, claimant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *CallListItemRepoMock) Delete(ctx context.Context, callListID string, ids []string) (int64, error) {
	args := m.Called(ctx, callListID, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CallListItemRepoMock) DeleteUnused(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *CallListItemRepoMock) List(ctx context.Context, callListID string, filter model.ItemFilter, page model.Page) ([]model.CallListItem, int64, error) {
	args := m.Called(ctx, callListID, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.CallListItem), args.Get(1).(int64), args.Error(2)
}

func (m *CallListItemRepoMock) FindAssigned(ctx context.Context, memberID, callListID string, state model.ItemState) ([]model.CallListItem, error) {
	args := m.Called(ctx, memberID, callListID, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CallListItem), args.Error(1)
}

func (m *CallListItemRepoMock) CountByState(ctx context.Context, memberID, callListID string) (map[model.ItemState]int64, error) {
	args := m.Called(ctx, memberID, callListID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.ItemState]int64), args.Error(1)
}

// --- CallLogRepo Mock ---

// CallLogRepoMock mocks the CallLogRepo interface
type CallLogRepoMock struct {
	mock.Mock
}

func (m *CallLogRepoMock) SaveForItem(ctx context.Context, log model.CallLog, followupID string) error {
	args := m.Called(ctx, log, followupID)
	return args.Error(0)
}

func (m *CallLogRepoMock) FindByID(ctx context.Context, id string) (*model.CallLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallLog), args.Error(1)
}

func (m *CallLogRepoMock) UpdateNotes(ctx context.Context, log model.CallLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *CallLogRepoMock) List(ctx context.Context, filter model.CallLogFilter, page model.Page) ([]model.CallLog, int64, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.CallLog), args.Get(1).(int64), args.Error(2)
}

func (m *CallLogRepoMock) LatestForItems(ctx context.Context, itemIDs []string) (map[string]model.CallLog, error) {
	args := m.Called(ctx, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]model.CallLog), args.Error(1)
}

func (m *CallLogRepoMock) CountByCaller(ctx context.Context, memberID string, q storage.CallLogCountQuery) (int64, error) {
	args := m.Called(ctx, memberID, q)
	return args.Get(0).(int64), args.Error(1)
}

// --- FollowupRepo Mock ---

// FollowupRepoMock mocks the FollowupRepo interface
type FollowupRepoMock struct {
	mock.Mock
}

func (m *FollowupRepoMock) Create(ctx context.Context, followup model.Followup) error {
	args := m.Called(ctx, followup)
	return args.Error(0)
}

func (m *FollowupRepoMock) FindByID(ctx context.Context, id string) (*model.Followup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Followup), args.Error(1)
}

func (m *FollowupRepoMock) UpdatePending(ctx context.Context, followup model.Followup) error {
	args := m.Called(ctx, followup)
	return args.Error(0)
}

func (m *FollowupRepoMock) DeletePending(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *FollowupRepoMock) List(ctx context.Context, filter model.FollowupFilter, now time.Time, page model.Page) ([]model.Followup, int64, error) {
	args := m.Called(ctx, filter, now, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Followup), args.Get(1).(int64), args.Error(2)
}

func (m *FollowupRepoMock) CountPending(ctx context.Context, memberID, callListID string, now time.Time) (int64, int64, error) {
	args := m.Called(ctx, memberID, callListID, now)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// --- Directory Mocks ---

// StudentDirectoryMock mocks the StudentDirectory interface
type StudentDirectoryMock struct {
	mock.Mock
}

func (m *StudentDirectoryMock) FindStudent(ctx context.Context, id string) (*model.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *StudentDirectoryMock) FindStudents(ctx context.Context, ids []string) (map[string]model.Student, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]model.Student), args.Error(1)
}

// MemberDirectoryMock mocks the MemberDirectory interface
type MemberDirectoryMock struct {
	mock.Mock
}

func (m *MemberDirectoryMock) ResolveMember(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error) {
	args := m.Called(ctx, workspaceID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkspaceMember), args.Error(1)
}

func (m *MemberDirectoryMock) FindMember(ctx context.Context, workspaceID, memberID string) (*model.WorkspaceMember, error) {
	args := m.Called(ctx, workspaceID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkspaceMember), args.Error(1)
}

var (
	_ storage.Repository       = (*RepositoryMock)(nil)
	_ storage.CallListRepo     = (*CallListRepoMock)(nil)
	_ storage.CallListItemRepo = (*CallListItemRepoMock)(nil)
	_ storage.CallLogRepo      = (*CallLogRepoMock)(nil)
	_ storage.FollowupRepo     = (*FollowupRepoMock)(nil)
)
