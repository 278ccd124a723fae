package usecase

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/observer"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

// AddItems adds students to a campaign. Students already in the list are
// reported as skipped rather than failing the batch.
func (s *Service) AddItems(ctx context.Context, callListID string, in model.AddItemsInput) (*model.AddItemsResult, error) {
	caller, err := s.authorize(ctx, ResourceItem, ActionCreate)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	list, err := s.openCallList(ctx, callListID)
	if err != nil {
		return nil, err
	}

	res, err := s.addItems(ctx, list, in.Items)
	if err != nil {
		return nil, err
	}
	s.invalidateAssignees(ctx, caller.WorkspaceID, res.Created)
	return res, nil
}

// ImportItems is the import pipeline entry point. It runs without a caller,
// scoped to the payload's workspace, and is idempotent per (list, student).
func (s *Service) ImportItems(ctx context.Context, payload model.ImportItemsPayload) (*model.AddItemsResult, error) {
	if err := validateInput(payload); err != nil {
		return nil, err
	}
	ctx = tenant.WithWorkspaceID(ctx, payload.WorkspaceID)

	list, err := s.openCallList(ctx, payload.CallListID)
	if err != nil {
		return nil, err
	}
	res, err := s.addItems(ctx, list, payload.Items)
	if err != nil {
		return nil, err
	}
	s.invalidateAssignees(ctx, payload.WorkspaceID, res.Created)
	return res, nil
}

// openCallList loads a campaign that still accepts new items.
func (s *Service) openCallList(ctx context.Context, callListID string) (*model.CallList, error) {
	list, err := s.repo.CallLists().FindByID(ctx, callListID)
	if err != nil {
		return nil, notFound(err, "call list", callListID)
	}
	if list.Status == model.CallListArchived {
		return nil, apperrors.NewValidation("call_list_id", "call list %q is archived", list.Name)
	}
	return list, nil
}

func (s *Service) addItems(ctx context.Context, list *model.CallList, inputs []model.NewItemInput) (*model.AddItemsResult, error) {
	assignees := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in.AssignedTo != nil {
			assignees = append(assignees, *in.AssignedTo)
		}
	}
	if err := s.checkMembers(ctx, list.WorkspaceID, assignees...); err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]model.CallListItem, 0, len(inputs))
	for _, in := range inputs {
		var assignee *string
		if in.AssignedTo != nil && *in.AssignedTo != "" {
			v := *in.AssignedTo
			assignee = &v
		}
		items = append(items, model.CallListItem{
			ID:          newID(),
			WorkspaceID: list.WorkspaceID,
			CallListID:  list.ID,
			StudentID:   in.StudentID,
			AssignedTo:  assignee,
			State:       model.ItemQueued,
			Priority:    in.Priority,
			Custom:      datatypes.JSONMap(in.Custom),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	created, err := s.repo.Items().Create(ctx, items)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to add call list items",
			zap.String("call_list_id", list.ID),
			zap.Int("count", len(items)),
			zap.Error(err),
		)
		return nil, err
	}

	inserted := make(map[string]struct{}, len(created))
	for _, it := range created {
		inserted[it.StudentID] = struct{}{}
	}
	skipped := make([]string, 0)
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if _, ok := inserted[in.StudentID]; ok {
			continue
		}
		if _, dup := seen[in.StudentID]; dup {
			continue
		}
		seen[in.StudentID] = struct{}{}
		skipped = append(skipped, in.StudentID)
	}

	logger.FromContext(ctx).Info("Call list items added",
		zap.String("call_list_id", list.ID),
		zap.Int("created", len(created)),
		zap.Int("skipped", len(skipped)),
	)
	return &model.AddItemsResult{Created: created, SkippedStudents: skipped}, nil
}

// RemoveItems removes items from a campaign. Their call logs are kept.
func (s *Service) RemoveItems(ctx context.Context, callListID string, in model.RemoveItemsInput) (int64, error) {
	caller, err := s.authorize(ctx, ResourceItem, ActionDelete)
	if err != nil {
		return 0, err
	}
	if err := validateInput(in); err != nil {
		return 0, err
	}
	if _, err := s.repo.CallLists().FindByID(ctx, callListID); err != nil {
		return 0, notFound(err, "call list", callListID)
	}

	before, err := s.repo.Items().FindByIDs(ctx, in.ItemIDs)
	if err != nil {
		return 0, err
	}
	removed, err := s.repo.Items().Delete(ctx, callListID, dedupe(in.ItemIDs))
	if err != nil {
		return 0, err
	}
	s.invalidateAssignees(ctx, caller.WorkspaceID, before)

	logger.FromContext(ctx).Info("Call list items removed",
		zap.String("call_list_id", callListID),
		zap.Int64("removed", removed),
	)
	return removed, nil
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, id string) (*model.CallListItem, error) {
	if _, err := s.authorize(ctx, ResourceItem, ActionRead); err != nil {
		return nil, err
	}
	item, err := s.repo.Items().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "call list item", id)
	}
	return item, nil
}

// ListItems pages through a campaign's items, priority first.
func (s *Service) ListItems(ctx context.Context, callListID string, filter model.ItemFilter, page model.Page) (model.PageResult[model.CallListItem], error) {
	if _, err := s.authorize(ctx, ResourceItem, ActionRead); err != nil {
		return model.PageResult[model.CallListItem]{}, err
	}
	if err := validateInput(filter); err != nil {
		return model.PageResult[model.CallListItem]{}, err
	}
	if _, err := s.repo.CallLists().FindByID(ctx, callListID); err != nil {
		return model.PageResult[model.CallListItem]{}, notFound(err, "call list", callListID)
	}
	page = page.Normalize()
	items, total, err := s.repo.Items().List(ctx, callListID, filter, page)
	if err != nil {
		return model.PageResult[model.CallListItem]{}, err
	}
	return model.NewPageResult(items, total, page), nil
}

// UpdateItem changes an item's operator-controlled fields. DONE is reserved
// for call log creation and DONE items keep their state. Leaving SKIPPED
// needs an administrator.
func (s *Service) UpdateItem(ctx context.Context, id string, in model.UpdateItemInput) (*model.CallListItem, error) {
	caller, err := s.authorize(ctx, ResourceItem, ActionUpdate)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	item, err := s.repo.Items().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "call list item", id)
	}
	if !caller.IsAdmin() && !item.IsUnassigned() && !item.IsAssignedTo(caller.MemberID) {
		return nil, apperrors.Forbidden("call list item %s is assigned to another member", id)
	}

	if in.State != nil && *in.State != item.State {
		if err := checkTransition(caller, item.State, *in.State); err != nil {
			return nil, err
		}
		item.State = *in.State
	}
	if in.Priority != nil {
		item.Priority = *in.Priority
	}
	if in.Custom != nil {
		item.Custom = datatypes.JSONMap(in.Custom)
	}

	if err := s.repo.Items().Update(ctx, *item); err != nil {
		return nil, notFound(err, "call list item", id)
	}
	if item.AssignedTo != nil {
		s.stats.Invalidate(ctx, caller.WorkspaceID, *item.AssignedTo)
	}
	item.UpdatedAt = s.now()
	return item, nil
}

// checkTransition enforces the operator side of the item state machine.
func checkTransition(caller tenant.Caller, from, to model.ItemState) error {
	switch {
	case to == model.ItemDone:
		return apperrors.NewValidation("state", "state DONE is set by recording a call log")
	case from == model.ItemDone:
		return apperrors.NewValidation("state", "a DONE item cannot change state")
	case from == model.ItemSkipped && !caller.IsAdmin():
		return apperrors.Forbidden("only administrators may reopen a skipped item")
	}
	return nil
}

// Assign claims items for assignedTo, defaulting to the caller. Non-admin
// callers only claim items that are unassigned or already theirs; everything
// else is reported in Skipped.
func (s *Service) Assign(ctx context.Context, in model.AssignInput) (*model.AssignmentResult, error) {
	caller, err := s.authorize(ctx, ResourceItem, ActionAssign)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	assignee := caller.MemberID
	if in.AssignedTo != nil && *in.AssignedTo != "" {
		assignee = *in.AssignedTo
	}
	if assignee != caller.MemberID && !caller.IsAdmin() {
		return nil, apperrors.Forbidden("only administrators may assign items to other members")
	}
	if assignee != caller.MemberID {
		if err := s.checkMembers(ctx, caller.WorkspaceID, assignee); err != nil {
			return nil, err
		}
	}

	ids := dedupe(in.ItemIDs)
	before, err := s.repo.Items().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Items().Assign(ctx, ids, assignee, claimantFor(caller))
	if err != nil {
		logger.FromContext(ctx).Error("Failed to assign items", zap.Int("count", len(ids)), zap.Error(err))
		return nil, err
	}

	res, err := s.assignmentResult(ctx, "assign", caller, ids, updated)
	if err != nil {
		return nil, err
	}
	s.invalidateAssignees(ctx, caller.WorkspaceID, before)
	s.stats.Invalidate(ctx, caller.WorkspaceID, assignee)
	if len(res.Updated) > 0 {
		s.publish(ctx, model.EventItemsAssigned, caller, map[string]interface{}{
			"item_ids":    res.Updated,
			"assigned_to": assignee,
		})
	}

	logger.FromContext(ctx).Info("Items assigned",
		zap.String("assigned_to", assignee),
		zap.Int("updated", len(res.Updated)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// Unassign releases items under the same rule as Assign. Releasing an item
// that nobody holds succeeds without changing it.
func (s *Service) Unassign(ctx context.Context, in model.UnassignInput) (*model.AssignmentResult, error) {
	caller, err := s.authorize(ctx, ResourceItem, ActionAssign)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ids := dedupe(in.ItemIDs)
	before, err := s.repo.Items().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Items().Unassign(ctx, ids, claimantFor(caller))
	if err != nil {
		logger.FromContext(ctx).Error("Failed to unassign items", zap.Int("count", len(ids)), zap.Error(err))
		return nil, err
	}

	res, err := s.assignmentResult(ctx, "unassign", caller, ids, updated)
	if err != nil {
		return nil, err
	}
	s.invalidateAssignees(ctx, caller.WorkspaceID, before)
	return res, nil
}

// claimantFor is empty for administrators, who may act on any item.
func claimantFor(caller tenant.Caller) string {
	if caller.IsAdmin() {
		return ""
	}
	return caller.MemberID
}

// assignmentResult classifies the ids a bulk assignment did not touch.
func (s *Service) assignmentResult(ctx context.Context, op string, caller tenant.Caller, ids, updated []string) (*model.AssignmentResult, error) {
	done := make(map[string]struct{}, len(updated))
	for _, id := range updated {
		done[id] = struct{}{}
	}
	var missed []string
	for _, id := range ids {
		if _, ok := done[id]; !ok {
			missed = append(missed, id)
		}
	}

	res := &model.AssignmentResult{Updated: nonNil(updated), Skipped: []model.SkippedItem{}}
	if len(missed) == 0 {
		return res, nil
	}

	current, err := s.repo.Items().FindByIDs(ctx, missed)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.CallListItem, len(current))
	for _, it := range current {
		byID[it.ID] = it
	}

	var notFoundN, otherN int
	for _, id := range missed {
		it, ok := byID[id]
		if !ok {
			res.Skipped = append(res.Skipped, model.SkippedItem{ID: id, Reason: model.SkipReasonNotFound})
			notFoundN++
			continue
		}
		res.Skipped = append(res.Skipped, model.SkippedItem{ID: id, Reason: model.SkipReasonAssignedToOther, AssignedTo: it.AssignedTo})
		otherN++
	}
	observer.AddAssignmentSkips(caller.WorkspaceID, op, model.SkipReasonNotFound, notFoundN)
	observer.AddAssignmentSkips(caller.WorkspaceID, op, model.SkipReasonAssignedToOther, otherN)
	return res, nil
}

// invalidateAssignees drops cached stats of everyone holding items.
func (s *Service) invalidateAssignees(ctx context.Context, workspaceID string, items []model.CallListItem) {
	members := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.IsUnassigned() {
			continue
		}
		if _, ok := seen[*it.AssignedTo]; ok {
			continue
		}
		seen[*it.AssignedTo] = struct{}{}
		members = append(members, *it.AssignedTo)
	}
	if len(members) > 0 {
		s.stats.Invalidate(ctx, workspaceID, members...)
	}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
