package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

// MemoryRepo is an in-memory Repository for tests and local development.
// One mutex guards every table, so conditional writes such as Assign are
// atomic just like their SQL counterparts.
type MemoryRepo struct {
	mu sync.Mutex

	lists     map[string]model.CallList
	items     map[string]model.CallListItem
	logs      map[string]model.CallLog
	followups map[string]model.Followup
	students  map[string]model.Student
	members   map[string]model.WorkspaceMember // key: workspace_id|user_id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		lists:     map[string]model.CallList{},
		items:     map[string]model.CallListItem{},
		logs:      map[string]model.CallLog{},
		followups: map[string]model.Followup{},
		students:  map[string]model.Student{},
		members:   map[string]model.WorkspaceMember{},
	}
}

// PutStudent seeds the contact directory.
func (r *MemoryRepo) PutStudent(s model.Student) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[s.ID] = s
}

// PutMember seeds workspace membership.
func (r *MemoryRepo) PutMember(m model.WorkspaceMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.WorkspaceID+"|"+m.UserID] = m
}

func (r *MemoryRepo) CallLists() CallListRepo { return memCallLists{r} }
func (r *MemoryRepo) Items() CallListItemRepo { return memItems{r} }
func (r *MemoryRepo) CallLogs() CallLogRepo { return memCallLogs{r} }
func (r *MemoryRepo) Followups() FollowupRepo { return memFollowups{r} }
func (r *MemoryRepo) Students() StudentDirectory { return memStudents{r} }
func (r *MemoryRepo) Members() MemberDirectory { return memMembers{r} }
func (r *MemoryRepo) Ping(ctx context.Context) error { return nil }
func (r *MemoryRepo) Close(ctx context.Context) error { return nil }

func pageOf[T any](all []T, page model.Page) ([]T, int64) {
	res := model.Paginate(all, page)
	return res.Items, res.Total
}

func claimable(item model.CallListItem, claimant string) bool {
	return claimant == "" || item.IsUnassigned() || item.IsAssignedTo(claimant)
}

// --- call lists ---

type memCallLists struct{ r *MemoryRepo }

func (m memCallLists) Create(ctx context.Context, list model.CallList) error {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	if list.WorkspaceID != ws {
		return fmt.Errorf("%w: call list workspace %s does not match workspace %s", apperrors.ErrBadRequest, list.WorkspaceID, ws)
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.lists[list.ID]; ok {
		return fmt.Errorf("%w: call list %s", apperrors.ErrDuplicate, list.ID)
	}
	now := utils.Now()
	list.CreatedAt, list.UpdatedAt = now, now
	m.r.lists[list.ID] = list
	return nil
}

func (m memCallLists) Update(ctx context.Context, list model.CallList) error {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	existing, ok := m.r.lists[list.ID]
	if !ok || existing.WorkspaceID != ws {
		return apperrors.NotFound("call list", list.ID)
	}
	existing.Name = list.Name
	existing.Description = list.Description
	existing.Status = list.Status
	existing.Messages = list.Messages
	existing.Questions = list.Questions
	existing.Meta = list.Meta
	existing.UpdatedAt = utils.Now()
	m.r.lists[list.ID] = existing
	return nil
}

func (m memCallLists) FindByID(ctx context.Context, id string) (*model.CallList, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	list, ok := m.r.lists[id]
	if !ok || list.WorkspaceID != ws {
		return nil, apperrors.NotFound("call list", id)
	}
	return &list, nil
}

func (m memCallLists) List(ctx context.Context, filter model.CallListFilter, page model.Page) ([]model.CallList, int64, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, 0, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make([]model.CallList, 0)
	for _, l := range m.r.lists {
		if l.WorkspaceID != ws {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.GroupID != "" && (l.GroupID == nil || *l.GroupID != filter.GroupID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(l.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	lists, total := pageOf(out, page)
	return lists, total, nil
}

// --- items ---

type memItems struct{ r *MemoryRepo }

func sortItems(items []model.CallListItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

func (m memItems) Create(ctx context.Context, items []model.CallListItem) ([]model.CallListItem, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()

	existing := make(map[string]struct{}, len(m.r.items))
	for _, it := range m.r.items {
		existing[it.CallListID+"|"+it.StudentID] = struct{}{}
	}
	out := make([]model.CallListItem, 0, len(items))
	now := utils.Now()
	for i, it := range items {
		if it.WorkspaceID != ws {
			return nil, fmt.Errorf("%w: item workspace %s does not match workspace %s", apperrors.ErrBadRequest, it.WorkspaceID, ws)
		}
		key := it.CallListID + "|" + it.StudentID
		if _, dup := existing[key]; dup {
			continue
		}
		existing[key] = struct{}{}
		if it.CreatedAt.IsZero() {
			// Keep batch order observable in creation-time sorts.
			it.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		it.UpdatedAt = now
		m.r.items[it.ID] = it
		out = append(out, it)
	}
	return out, nil
}

func (m memItems) FindByID(ctx context.Context, id string) (*model.CallListItem, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	it, ok := m.r.items[id]
	if !ok || it.WorkspaceID != ws {
		return nil, apperrors.NotFound("call list item", id)
	}
	return &it, nil
}

func (m memItems) FindByIDs(ctx context.Context, ids []string) ([]model.CallListItem, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make([]model.CallListItem, 0, len(ids))
	for _, id := range ids {
		if it, ok := m.r.items[id]; ok && it.WorkspaceID == ws {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m memItems) FindByListAndStudent(ctx context.Context, callListID, studentID string) (*model.CallListItem, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, it := range m.r.items {
		if it.WorkspaceID == ws && it.CallListID == callListID && it.StudentID == studentID {
			return &it, nil
		}
	}
	return nil, apperrors.NotFound("call list item", callListID+"/"+studentID)
}

func (m memItems) Update(ctx context.Context, item model.CallListItem) error {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	existing, ok := m.r.items[item.ID]
	if !ok || existing.WorkspaceID != ws {
		return apperrors.NotFound("call list item", item.ID)
	}
	existing.State = item.State
	existing.Priority = item.Priority
	existing.Custom = item.Custom
	existing.UpdatedAt = utils.Now()
	m.r.items[item.ID] = existing
	return nil
}

func (m memItems) Assign(ctx context.Context, ids []string, assignee, claimant string) ([]string, error) {
	return m.setAssignee(ctx, ids, &assignee, claimant)
}

func (m memItems) Unassign(ctx context.Context, ids []string, claimant string) ([]string, error) {
	return m.setAssignee(ctx, ids, nil, claimant)
}

func (m memItems) setAssignee(ctx context.Context, ids []string, assignee *string, claimant string) ([]string, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		it, ok := m.r.items[id]
		if !ok || it.WorkspaceID != ws || !claimable(it, claimant) {
			continue
		}
		if assignee != nil {
			v := *assignee
			it.AssignedTo = &v
		} else {
			it.AssignedTo = nil
		}
		it.UpdatedAt = utils.Now()
		m.r.items[id] = it
		out = append(out, id)
	}
	return out, nil
}

func (m memItems) Delete(ctx context.Context, callListID string, ids []string) (int64, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return 0, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if it, ok := m.r.items[id]; ok && it.WorkspaceID == ws && it.CallListID == callListID {
			delete(m.r.items, id)
			n++
		}
	}
	return n, nil
}

func (m memItems) DeleteUnused(ctx context.Context, id string) (bool, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return false, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	it, ok := m.r.items[id]
	if !ok || it.WorkspaceID != ws || it.CallLogID != nil {
		return false, nil
	}
	delete(m.r.items, id)
	return true, nil
}

func (m memItems) List(ctx context.Context, callListID string, filter model.ItemFilter, page model.Page) ([]model.CallListItem, int64, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, 0, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make([]model.CallListItem, 0)
	for _, it := range m.r.items {
		if it.WorkspaceID != ws || it.CallListID != callListID {
			continue
		}
		if filter.State != "" && it.State != filter.State {
			continue
		}
		if filter.Unassigned && !it.IsUnassigned() {
			continue
		}
		if !filter.Unassigned && filter.AssignedTo != "" && !it.IsAssignedTo(filter.AssignedTo) {
			continue
		}
		out = append(out, it)
	}
	sortItems(out)
	items, total := pageOf(out, page)
	return items, total, nil
}

func (m memItems) FindAssigned(ctx context.Context, memberID, callListID string, state model.ItemState) ([]model.CallListItem, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make([]model.CallListItem, 0)
	for _, it := range m.r.items {
		if it.WorkspaceID != ws || !it.IsAssignedTo(memberID) {
			continue
		}
		if callListID != "" && it.CallListID != callListID {
			continue
		}
		if state != "" && it.State != state {
			continue
		}
		out = append(out, it)
	}
	sortItems(out)
	return out, nil
}

func (m memItems) CountByState(ctx context.Context, memberID, callListID string) (map[model.ItemState]int64, error) {
	items, err := m.FindAssigned(ctx, memberID, callListID, "")
	if err != nil {
		return nil, err
	}
	out := map[model.ItemState]int64{}
	for _, it := range items {
		out[it.State]++
	}
	return out, nil
}

// --- call logs ---

type memCallLogs struct{ r *MemoryRepo }

// newer reports whether a is more recent than b under the latest-log order.
func newer(a, b model.CallLog) bool {
	if !a.CallDate.Equal(b.CallDate) {
		return a.CallDate.After(b.CallDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (m memCallLogs) SaveForItem(ctx context.Context, log model.CallLog, followupID string) error {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	if log.WorkspaceID != ws {
		return fmt.Errorf("%w: call log workspace %s does not match workspace %s", apperrors.ErrBadRequest, log.WorkspaceID, ws)
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()

	item, ok := m.r.items[log.CallListItemID]
	if !ok || item.WorkspaceID != ws {
		return apperrors.NotFound("call list item", log.CallListItemID)
	}
	var fu model.Followup
	if followupID != "" {
		fu, ok = m.r.followups[followupID]
		if !ok || fu.WorkspaceID != ws || fu.Status != model.FollowupPending {
			return apperrors.NotFound("pending followup", followupID)
		}
	}
	if _, dup := m.r.logs[log.ID]; dup {
		return fmt.Errorf("%w: call log %s", apperrors.ErrDuplicate, log.ID)
	}

	now := utils.Now()
	log.CreatedAt, log.UpdatedAt = now, now
	m.r.logs[log.ID] = log

	logID := log.ID
	item.State = model.ItemDone
	item.CallLogID = &logID
	item.UpdatedAt = now
	m.r.items[item.ID] = item

	if followupID != "" {
		fu.Status = model.FollowupDone
		fu.CompletedCallLogID = &logID
		fu.CompletedAt = &now
		fu.UpdatedAt = now
		m.r.followups[followupID] = fu
	}
	return nil
}

func (m memCallLogs) FindByID(ctx context.Context, id string) (*model.CallLog, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	l, ok := m.r.logs[id]
	if !ok || l.WorkspaceID != ws {
		return nil, apperrors.NotFound("call log", id)
	}
	return &l, nil
}

func (m memCallLogs) UpdateNotes(ctx context.Context, log model.CallLog) error {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	existing, ok := m.r.logs[log.ID]
	if !ok || existing.WorkspaceID != ws {
		return apperrors.NotFound("call log", log.ID)
	}
	existing.Notes = log.Notes
	existing.CallerNote = log.CallerNote
	existing.UpdatedAt = utils.Now()
	m.r.logs[log.ID] = existing
	return nil
}

func (m memCallLogs) List(ctx context.Context, filter model.CallLogFilter, page model.Page) ([]model.CallLog, int64, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, 0, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make([]model.CallLog, 0)
	for _, l := range m.r.logs {
		if l.WorkspaceID != ws {
			continue
		}
		if filter.CallListID != "" && l.CallListID != filter.CallListID {
			continue
		}
		if filter.StudentID != "" && l.StudentID != filter.StudentID {
			continue
		}
		if filter.AssignedTo != "" && l.AssignedTo != filter.AssignedTo {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.FollowUpRequired != nil && l.FollowUpRequired != *filter.FollowUpRequired {
			continue
		}
		if filter.From != nil && l.CallDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !l.CallDate.Before(*filter.To) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	logs, total := pageOf(out, page)
	return logs, total, nil
}

func (m memCallLogs) LatestForItems(ctx context.Context, itemIDs []string) (map[string]model.CallLog, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = struct{}{}
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make(map[string]model.CallLog, len(itemIDs))
	for _, l := range m.r.logs {
		if l.WorkspaceID != ws {
			continue
		}
		if _, ok := want[l.CallListItemID]; !ok {
			continue
		}
		if cur, ok := out[l.CallListItemID]; !ok || newer(l, cur) {
			out[l.CallListItemID] = l
		}
	}
	return out, nil
}

func (m memCallLogs) CountByCaller(ctx context.Context, memberID string, q CallLogCountQuery) (int64, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return 0, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var n int64
	for _, l := range m.r.logs {
		if l.WorkspaceID != ws || l.AssignedTo != memberID {
			continue
		}
		if q.CallListID != "" && l.CallListID != q.CallListID {
			continue
		}
		if q.Since != nil && l.CallDate.Before(*q.Since) {
			continue
		}
		if q.FollowUpOnly && !l.FollowUpRequired {
			continue
		}
		n++
	}
	return n, nil
}

// --- follow-ups ---

type memFollowups struct{ r *MemoryRepo }

func (m memFollowups) Create(ctx context.Context, f model.Followup) error {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	if f.WorkspaceID != ws {
		return fmt.Errorf("%w: followup workspace %s does not match workspace %s", apperrors.ErrBadRequest, f.WorkspaceID, ws)
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, dup := m.r.followups[f.ID]; dup {
		return fmt.Errorf("%w: followup %s", apperrors.ErrDuplicate, f.ID)
	}
	now := utils.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	m.r.followups[f.ID] = f
	return nil
}

func (m memFollowups) FindByID(ctx context.Context, id string) (*model.Followup, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	f, ok := m.r.followups[id]
	if !ok || f.WorkspaceID != ws {
		return nil, apperrors.NotFound("followup", id)
	}
	return &f, nil
}

func (m memFollowups) UpdatePending(ctx context.Context, f model.Followup) error {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	existing, ok := m.r.followups[f.ID]
	if !ok || existing.WorkspaceID != ws || existing.Status != model.FollowupPending {
		return apperrors.NotFound("pending followup", f.ID)
	}
	existing.DueAt = f.DueAt
	existing.Notes = f.Notes
	existing.AssignedTo = f.AssignedTo
	existing.Status = f.Status
	existing.CompletedAt = f.CompletedAt
	existing.UpdatedAt = utils.Now()
	m.r.followups[f.ID] = existing
	return nil
}

func (m memFollowups) DeletePending(ctx context.Context, id string) error {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	existing, ok := m.r.followups[id]
	if !ok || existing.WorkspaceID != ws || existing.Status != model.FollowupPending {
		return apperrors.NotFound("pending followup", id)
	}
	delete(m.r.followups, id)
	return nil
}

func (m memFollowups) List(ctx context.Context, filter model.FollowupFilter, now time.Time, page model.Page) ([]model.Followup, int64, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, 0, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make([]model.Followup, 0)
	for _, f := range m.r.followups {
		if f.WorkspaceID != ws {
			continue
		}
		if filter.Overdue {
			if f.Status != model.FollowupPending || !f.DueAt.Before(now) {
				continue
			}
		} else if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && (f.AssignedTo == nil || *f.AssignedTo != filter.AssignedTo) {
			continue
		}
		if filter.CallListID != "" && (f.CallListID == nil || *f.CallListID != filter.CallListID) {
			continue
		}
		if filter.StudentID != "" && f.StudentID != filter.StudentID {
			continue
		}
		if filter.GroupID != "" && f.GroupID != filter.GroupID {
			continue
		}
		if filter.DueFrom != nil && f.DueAt.Before(*filter.DueFrom) {
			continue
		}
		if filter.DueTo != nil && !f.DueAt.Before(*filter.DueTo) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	followups, total := pageOf(out, page)
	return followups, total, nil
}

func (m memFollowups) CountPending(ctx context.Context, memberID, callListID string, now time.Time) (int64, int64, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return 0, 0, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var upcoming, overdue int64
	for _, f := range m.r.followups {
		if f.WorkspaceID != ws || f.Status != model.FollowupPending {
			continue
		}
		if f.AssignedTo == nil || *f.AssignedTo != memberID {
			continue
		}
		if callListID != "" && (f.CallListID == nil || *f.CallListID != callListID) {
			continue
		}
		if f.DueAt.Before(now) {
			overdue++
		} else {
			upcoming++
		}
	}
	return upcoming, overdue, nil
}

// --- directories ---

type memStudents struct{ r *MemoryRepo }

func (m memStudents) FindStudent(ctx context.Context, id string) (*model.Student, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.students[id]
	if !ok || s.WorkspaceID != ws {
		return nil, apperrors.NotFound("student", id)
	}
	return &s, nil
}

func (m memStudents) FindStudents(ctx context.Context, ids []string) (map[string]model.Student, error) {
	ws, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make(map[string]model.Student, len(ids))
	for _, id := range ids {
		if s, ok := m.r.students[id]; ok && s.WorkspaceID == ws {
			out[id] = s
		}
	}
	return out, nil
}

type memMembers struct{ r *MemoryRepo }

func (m memMembers) ResolveMember(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	mem, ok := m.r.members[workspaceID+"|"+userID]
	if !ok {
		return nil, apperrors.NotFound("workspace member", userID)
	}
	return &mem, nil
}

func (m memMembers) FindMember(ctx context.Context, workspaceID, memberID string) (*model.WorkspaceMember, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, mem := range m.r.members {
		if mem.WorkspaceID == workspaceID && mem.ID == memberID {
			return &mem, nil
		}
	}
	return nil, apperrors.NotFound("workspace member", memberID)
}
