package usecase

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/observer"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

// CreateFollowup schedules a follow-up by hand. It defaults to the caller.
func (s *Service) CreateFollowup(ctx context.Context, in model.CreateFollowupInput) (*model.Followup, error) {
	caller, err := s.authorize(ctx, ResourceFollowup, ActionCreate)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.DueAt.IsZero() {
		return nil, apperrors.NewValidation("due_at", "due date is required")
	}

	assignee := caller.MemberID
	if in.AssignedTo != nil && *in.AssignedTo != "" {
		assignee = *in.AssignedTo
	}
	if assignee != caller.MemberID && !caller.IsAdmin() {
		return nil, apperrors.Forbidden("only administrators may schedule follow-ups for other members")
	}
	if assignee != caller.MemberID {
		if err := s.checkMembers(ctx, caller.WorkspaceID, assignee); err != nil {
			return nil, err
		}
	}
	if in.CallListID != nil && *in.CallListID != "" {
		if _, err := s.repo.CallLists().FindByID(ctx, *in.CallListID); err != nil {
			return nil, notFound(err, "call list", *in.CallListID)
		}
	}

	now := s.now()
	followup := model.Followup{
		ID:                newID(),
		WorkspaceID:       caller.WorkspaceID,
		StudentID:         in.StudentID,
		GroupID:           in.GroupID,
		CallListID:        nonEmpty(in.CallListID),
		PreviousCallLogID: nonEmpty(in.PreviousCallLogID),
		AssignedTo:        &assignee,
		DueAt:             in.DueAt,
		Status:            model.FollowupPending,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Followups().Create(ctx, followup); err != nil {
		logger.FromContext(ctx).Error("Failed to create followup",
			zap.String("student_id", in.StudentID),
			zap.Error(err),
		)
		return nil, err
	}

	observer.IncFollowupCreated(caller.WorkspaceID, "manual")
	s.stats.Invalidate(ctx, caller.WorkspaceID, assignee)
	s.publish(ctx, model.EventFollowupCreated, caller, followupEventData(followup))
	return &followup, nil
}

// UpdateFollowup edits a PENDING follow-up. DONE is only reached by
// completing it with a call.
func (s *Service) UpdateFollowup(ctx context.Context, id string, in model.UpdateFollowupInput) (*model.Followup, error) {
	caller, err := s.authorize(ctx, ResourceFollowup, ActionUpdate)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	followup, err := s.pendingFollowup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkFollowupHolder(caller, followup); err != nil {
		return nil, err
	}
	previous := followup.AssignedTo

	if in.DueAt != nil {
		if in.DueAt.IsZero() {
			return nil, apperrors.NewValidation("due_at", "due date cannot be empty")
		}
		followup.DueAt = *in.DueAt
	}
	if in.Notes != nil {
		followup.Notes = *in.Notes
	}
	if in.AssignedTo != nil {
		if *in.AssignedTo != caller.MemberID && !caller.IsAdmin() {
			return nil, apperrors.Forbidden("only administrators may reassign follow-ups")
		}
		if *in.AssignedTo != caller.MemberID {
			if err := s.checkMembers(ctx, caller.WorkspaceID, *in.AssignedTo); err != nil {
				return nil, err
			}
		}
		followup.AssignedTo = nonEmpty(in.AssignedTo)
	}
	if in.Status != nil {
		if *in.Status == model.FollowupDone {
			return nil, apperrors.NewValidation("status", "status DONE is set by completing the follow-up with a call")
		}
		followup.Status = *in.Status
	}

	if err := s.repo.Followups().UpdatePending(ctx, *followup); err != nil {
		return nil, err
	}
	followup.UpdatedAt = s.now()

	for _, m := range []*string{previous, followup.AssignedTo} {
		if m != nil {
			s.stats.Invalidate(ctx, caller.WorkspaceID, *m)
		}
	}
	return followup, nil
}

// DeleteFollowup removes a follow-up that is still PENDING.
func (s *Service) DeleteFollowup(ctx context.Context, id string) error {
	caller, err := s.authorize(ctx, ResourceFollowup, ActionDelete)
	if err != nil {
		return err
	}
	followup, err := s.pendingFollowup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Followups().DeletePending(ctx, id); err != nil {
		return err
	}
	if followup.AssignedTo != nil {
		s.stats.Invalidate(ctx, caller.WorkspaceID, *followup.AssignedTo)
	}
	return nil
}

// GetFollowup returns one follow-up.
func (s *Service) GetFollowup(ctx context.Context, id string) (*model.Followup, error) {
	if _, err := s.authorize(ctx, ResourceFollowup, ActionRead); err != nil {
		return nil, err
	}
	followup, err := s.repo.Followups().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "followup", id)
	}
	return followup, nil
}

// ListFollowups pages through follow-ups, soonest due first.
func (s *Service) ListFollowups(ctx context.Context, filter model.FollowupFilter, page model.Page) (model.PageResult[model.Followup], error) {
	if _, err := s.authorize(ctx, ResourceFollowup, ActionRead); err != nil {
		return model.PageResult[model.Followup]{}, err
	}
	if err := validateInput(filter); err != nil {
		return model.PageResult[model.Followup]{}, err
	}
	page = page.Normalize()
	out, total, err := s.repo.Followups().List(ctx, filter, s.now(), page)
	if err != nil {
		return model.PageResult[model.Followup]{}, err
	}
	return model.NewPageResult(out, total, page), nil
}

// GetFollowupCallContext gathers what a caller needs before dialing a
// follow-up. Relations that no longer exist are left empty.
func (s *Service) GetFollowupCallContext(ctx context.Context, id string) (*model.FollowupCallContext, error) {
	if _, err := s.authorize(ctx, ResourceFollowup, ActionRead); err != nil {
		return nil, err
	}
	followup, err := s.repo.Followups().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "followup", id)
	}

	out := &model.FollowupCallContext{
		Followup:  *followup,
		Questions: []model.Question{},
		Messages:  []string{},
	}

	if followup.CallListID != nil {
		list, err := s.repo.CallLists().FindByID(ctx, *followup.CallListID)
		if err != nil && !apperrors.IsNotFoundError(err) {
			return nil, err
		}
		if list != nil {
			out.CallList = list
			out.Questions = list.SortedQuestions()
			out.Messages = nonNil([]string(list.Messages))

			item, err := s.repo.Items().FindByListAndStudent(ctx, list.ID, followup.StudentID)
			if err != nil && !apperrors.IsNotFoundError(err) {
				return nil, err
			}
			if item != nil {
				out.Item = item
				latest, err := s.repo.CallLogs().LatestForItems(ctx, []string{item.ID})
				if err != nil {
					return nil, err
				}
				if l, ok := latest[item.ID]; ok {
					out.LatestCallLog = &l
				}
			}
		}
	}

	student, err := s.repo.Students().FindStudent(ctx, followup.StudentID)
	if err != nil && !apperrors.IsNotFoundError(err) {
		return nil, err
	}
	out.Student = student

	if followup.PreviousCallLogID != nil {
		prev, err := s.repo.CallLogs().FindByID(ctx, *followup.PreviousCallLogID)
		if err != nil && !apperrors.IsNotFoundError(err) {
			return nil, err
		}
		out.PreviousCallLog = prev
	}
	return out, nil
}

// CompleteFollowupCallLog records the call that executes a PENDING
// follow-up. The log, the item transition and the follow-up completion are
// committed together; a follow-up requested by the outcome is chained on a
// best-effort basis.
func (s *Service) CompleteFollowupCallLog(ctx context.Context, id string, in model.CompleteFollowupInput) (*model.CallLogDetail, error) {
	caller, err := s.authorize(ctx, ResourceFollowup, ActionUpdate)
	if err != nil {
		return nil, err
	}
	if !s.authz.HasPermission(caller, ResourceCallLog, ActionCreate) {
		return nil, apperrors.Forbidden("role %q may not %s %s", caller.Role, ActionCreate, ResourceCallLog)
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	followup, err := s.pendingFollowup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkFollowupHolder(caller, followup); err != nil {
		return nil, err
	}
	if followup.CallListID == nil || *followup.CallListID == "" {
		return nil, apperrors.NewValidation("call_list_id", "followup %s is not tied to a call list", id)
	}
	list, err := s.repo.CallLists().FindByID(ctx, *followup.CallListID)
	if err != nil {
		return nil, notFound(err, "call list", *followup.CallListID)
	}

	followUpAt, err := checkOutcome(list, in.Answers, in.FollowUpDate, true)
	if err != nil {
		return nil, err
	}

	item, synthesized, err := s.itemForFollowup(ctx, caller, list, followup.StudentID)
	if err != nil {
		return nil, err
	}
	holder := *item

	log, effect, err := s.recordCall(ctx, callRecord{
		caller:     caller,
		item:       item,
		list:       list,
		in:         in.ToCallLogInput(item.ID),
		followUpAt: followUpAt,
		closes:     followup.ID,
		source:     "followup",
	})
	if err != nil {
		if synthesized {
			s.discardItem(ctx, item)
		}
		return nil, err
	}

	observer.IncFollowupCompleted(caller.WorkspaceID)
	if followup.AssignedTo != nil && *followup.AssignedTo != caller.MemberID {
		s.stats.Invalidate(ctx, caller.WorkspaceID, *followup.AssignedTo)
	}
	// The item may be held by a third member whose counts just changed.
	s.invalidateAssignees(ctx, caller.WorkspaceID, []model.CallListItem{holder})
	s.publish(ctx, model.EventFollowupCompleted, caller, map[string]interface{}{
		"followup_id":           followup.ID,
		"completed_call_log_id": log.ID,
		"student_id":            followup.StudentID,
	})
	logger.FromContext(ctx).Info("Followup completed",
		zap.String("followup_id", followup.ID),
		zap.String("call_log_id", log.ID),
	)
	return s.callLogDetail(ctx, log, list, effect.Followup)
}

// itemForFollowup finds the student's item in the campaign, creating a
// QUEUED one held by the caller when the student has none. synthesized
// reports whether this call created it.
func (s *Service) itemForFollowup(ctx context.Context, caller tenant.Caller, list *model.CallList, studentID string) (item *model.CallListItem, synthesized bool, err error) {
	item, err = s.repo.Items().FindByListAndStudent(ctx, list.ID, studentID)
	if err == nil {
		return item, false, nil
	}
	if !apperrors.IsNotFoundError(err) {
		return nil, false, err
	}

	assignee := caller.MemberID
	now := s.now()
	created, err := s.repo.Items().Create(ctx, []model.CallListItem{{
		ID:          newID(),
		WorkspaceID: caller.WorkspaceID,
		CallListID:  list.ID,
		StudentID:   studentID,
		AssignedTo:  &assignee,
		State:       model.ItemQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}})
	if err != nil {
		return nil, false, err
	}
	if len(created) == 1 {
		return &created[0], true, nil
	}

	// Lost a race with a concurrent insert.
	item, err = s.repo.Items().FindByListAndStudent(ctx, list.ID, studentID)
	if err != nil {
		return nil, false, notFound(err, "call list item", studentID)
	}
	return item, false, nil
}

// discardItem removes an item synthesized for a completion that did not
// commit. An item some other call already logged against is kept.
func (s *Service) discardItem(ctx context.Context, item *model.CallListItem) {
	removed, err := s.repo.Items().DeleteUnused(ctx, item.ID)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to discard synthesized call list item",
			zap.String("call_list_item_id", item.ID),
			zap.Error(err),
		)
		return
	}
	if removed {
		logger.FromContext(ctx).Debug("Discarded synthesized call list item", zap.String("call_list_item_id", item.ID))
	}
}

// pendingFollowup loads a follow-up that can still change. Completed and
// skipped follow-ups read as not found.
func (s *Service) pendingFollowup(ctx context.Context, id string) (*model.Followup, error) {
	followup, err := s.repo.Followups().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "followup", id)
	}
	if followup.Status != model.FollowupPending {
		return nil, apperrors.NotFound("pending followup", id)
	}
	return followup, nil
}

func checkFollowupHolder(caller tenant.Caller, f *model.Followup) error {
	if caller.IsAdmin() || f.AssignedTo == nil || *f.AssignedTo == "" || *f.AssignedTo == caller.MemberID {
		return nil
	}
	return apperrors.Forbidden("followup %s is assigned to another member", f.ID)
}

func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	out := *v
	return &out
}
