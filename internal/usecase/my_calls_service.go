package usecase

import (
	"context"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

// LatestLogFor returns the most recent log of an item, or nil when it was
// never called.
func (s *Service) LatestLogFor(ctx context.Context, itemID string) (*model.CallLog, error) {
	if _, err := s.authorize(ctx, ResourceCallLog, ActionRead); err != nil {
		return nil, err
	}
	if _, err := s.repo.Items().FindByID(ctx, itemID); err != nil {
		return nil, notFound(err, "call list item", itemID)
	}
	latest, err := s.repo.CallLogs().LatestForItems(ctx, []string{itemID})
	if err != nil {
		return nil, err
	}
	if l, ok := latest[itemID]; ok {
		return &l, nil
	}
	return nil, nil
}

// needsFollowup is the latest-only rule: only the most recent log of an item
// decides whether it still needs a follow-up. With mine set the log must also
// have been recorded by memberID.
func needsFollowup(latest *model.CallLog, mine bool, memberID string) bool {
	if latest == nil || !latest.FollowUpRequired {
		return false
	}
	return !mine || latest.AssignedTo == memberID
}

// ListMyCalls is the caller's work queue: every item assigned to them with
// its latest log, student and campaign name.
func (s *Service) ListMyCalls(ctx context.Context, filter model.MyCallsFilter, page model.Page) (model.PageResult[model.MyCallItem], error) {
	caller, err := s.authorize(ctx, ResourceItem, ActionRead)
	if err != nil {
		return model.PageResult[model.MyCallItem]{}, err
	}
	if err := validateInput(filter); err != nil {
		return model.PageResult[model.MyCallItem]{}, err
	}

	items, latest, err := s.assignedWithLatest(ctx, caller.MemberID, filter.CallListID, filter.State)
	if err != nil {
		return model.PageResult[model.MyCallItem]{}, err
	}

	mine := filter.FollowUpScope == model.FollowupScopeMine
	rows := make([]model.MyCallItem, 0, len(items))
	for _, it := range items {
		var last *model.CallLog
		if l, ok := latest[it.ID]; ok {
			last = &l
		}
		if filter.FollowUpRequired != nil && needsFollowup(last, mine, caller.MemberID) != *filter.FollowUpRequired {
			continue
		}
		rows = append(rows, model.MyCallItem{CallListItem: it, LatestLog: last})
	}

	result := model.Paginate(rows, page)
	if err := s.decorateMyCalls(ctx, result.Items); err != nil {
		return model.PageResult[model.MyCallItem]{}, err
	}
	return result, nil
}

func (s *Service) assignedWithLatest(ctx context.Context, memberID, callListID string, state model.ItemState) ([]model.CallListItem, map[string]model.CallLog, error) {
	items, err := s.repo.Items().FindAssigned(ctx, memberID, callListID, state)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	latest, err := s.repo.CallLogs().LatestForItems(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return items, latest, nil
}

// decorateMyCalls attaches students and campaign names to one page.
func (s *Service) decorateMyCalls(ctx context.Context, rows []model.MyCallItem) error {
	if len(rows) == 0 {
		return nil
	}
	studentIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		studentIDs = append(studentIDs, r.StudentID)
	}
	students, err := s.repo.Students().FindStudents(ctx, dedupe(studentIDs))
	if err != nil {
		return err
	}

	names := make(map[string]string)
	for i := range rows {
		if st, ok := students[rows[i].StudentID]; ok {
			st := st
			rows[i].Student = &st
		}
		name, ok := names[rows[i].CallListID]
		if !ok {
			if list, err := s.repo.CallLists().FindByID(ctx, rows[i].CallListID); err == nil {
				name = list.Name
			}
			names[rows[i].CallListID] = name
		}
		rows[i].CallListName = name
	}
	return nil
}

// GetMyCallsStats summarizes the caller's queue, optionally for one
// campaign. Results are cached until one of the caller's writes invalidates
// them.
func (s *Service) GetMyCallsStats(ctx context.Context, callListID string) (*model.MyCallsStats, error) {
	caller, err := s.authorize(ctx, ResourceItem, ActionRead)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.stats.Get(ctx, caller.WorkspaceID, caller.MemberID, callListID); ok {
		return cached, nil
	}

	counts, err := s.repo.Items().CountByState(ctx, caller.MemberID, callListID)
	if err != nil {
		return nil, err
	}
	stats := model.MyCallsStats{
		Queued:  counts[model.ItemQueued],
		Calling: counts[model.ItemCalling],
		Done:    counts[model.ItemDone],
		Skipped: counts[model.ItemSkipped],
	}
	stats.TotalAssigned = stats.Queued + stats.Calling + stats.Done + stats.Skipped

	now := s.now()
	today := utils.StartOfDay(now)
	logs := s.repo.CallLogs()
	if stats.TotalCalls, err = logs.CountByCaller(ctx, caller.MemberID, storage.CallLogCountQuery{CallListID: callListID}); err != nil {
		return nil, err
	}
	if stats.CallsToday, err = logs.CountByCaller(ctx, caller.MemberID, storage.CallLogCountQuery{CallListID: callListID, Since: &today}); err != nil {
		return nil, err
	}
	if stats.TotalFollowupCalls, err = logs.CountByCaller(ctx, caller.MemberID, storage.CallLogCountQuery{CallListID: callListID, FollowUpOnly: true}); err != nil {
		return nil, err
	}

	items, latest, err := s.assignedWithLatest(ctx, caller.MemberID, callListID, "")
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if l, ok := latest[it.ID]; ok && needsFollowup(&l, true, caller.MemberID) {
			stats.PendingFollowups++
		}
	}

	if stats.UpcomingFollowups, stats.OverdueFollowups, err = s.repo.Followups().CountPending(ctx, caller.MemberID, callListID, now); err != nil {
		return nil, err
	}

	s.stats.Set(ctx, caller.WorkspaceID, caller.MemberID, callListID, stats)
	return &stats, nil
}
