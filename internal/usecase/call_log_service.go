package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/observer"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/questionnaire"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

// Best-effort steps that run after a call log is committed.
const (
	StepFollowupCreate = "followup_create"
)

// SideEffectResult is the outcome of a best-effort step. A failed step never
// undoes the write that triggered it.
type SideEffectResult struct {
	Step      string
	Attempted bool
	Followup  *model.Followup
	Err       error
}

// Failed reports whether the step ran and did not succeed.
func (r SideEffectResult) Failed() bool {
	return r.Attempted && r.Err != nil
}

// callRecord is everything needed to persist one call outcome.
type callRecord struct {
	caller     tenant.Caller
	item       *model.CallListItem
	list       *model.CallList
	in         model.CreateCallLogInput
	followUpAt *time.Time
	// closes is the follow-up completed by this call, if any.
	closes string
	source string
}

// CreateCallLog records a call against an item held by the caller. The item
// moves to DONE in the same transaction. When a follow-up is requested it is
// scheduled afterwards on a best-effort basis.
func (s *Service) CreateCallLog(ctx context.Context, in model.CreateCallLogInput) (*model.CallLogDetail, error) {
	caller, err := s.authorize(ctx, ResourceCallLog, ActionCreate)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	item, err := s.repo.Items().FindByID(ctx, in.CallListItemID)
	if err != nil {
		return nil, notFound(err, "call list item", in.CallListItemID)
	}
	if !item.IsAssignedTo(caller.MemberID) {
		return nil, apperrors.Forbidden("call list item %s is not assigned to you", item.ID)
	}
	list, err := s.repo.CallLists().FindByID(ctx, item.CallListID)
	if err != nil {
		return nil, notFound(err, "call list", item.CallListID)
	}

	followUpAt, err := checkOutcome(list, in.Answers, in.FollowUpDate, false)
	if err != nil {
		return nil, err
	}

	log, effect, err := s.recordCall(ctx, callRecord{
		caller:     caller,
		item:       item,
		list:       list,
		in:         in,
		followUpAt: followUpAt,
		source:     "item",
	})
	if err != nil {
		return nil, err
	}
	return s.callLogDetail(ctx, log, list, effect.Followup)
}

// checkOutcome validates answers against the questionnaire and parses the
// requested follow-up date. Nothing has been written when it fails.
func checkOutcome(list *model.CallList, answers []model.AnswerInput, followUpDate string, enforceRequired bool) (*time.Time, error) {
	if err := questionnaire.ValidateAnswers(list.Questions, answers, enforceRequired); err != nil {
		return nil, err
	}
	if followUpDate == "" {
		return nil, nil
	}
	at, err := utils.ParseFlexibleTime(followUpDate)
	if err != nil {
		return nil, apperrors.NewValidation("follow_up_date", "invalid follow-up date %q", followUpDate)
	}
	return &at, nil
}

// recordCall commits the log together with the item transition and, when
// closes is set, the follow-up completion. Everything after the commit is
// best-effort.
func (s *Service) recordCall(ctx context.Context, rec callRecord) (*model.CallLog, SideEffectResult, error) {
	now := s.now()
	log := model.CallLog{
		ID:               newID(),
		WorkspaceID:      rec.caller.WorkspaceID,
		CallListItemID:   rec.item.ID,
		CallListID:       rec.list.ID,
		StudentID:        rec.item.StudentID,
		AssignedTo:       rec.caller.MemberID,
		CallDate:         now,
		CallDuration:     rec.in.CallDuration,
		Status:           rec.in.Status,
		Answers:          questionnaire.Snapshot(rec.list.Questions, rec.in.Answers),
		Notes:            rec.in.Notes,
		CallerNote:       rec.in.CallerNote,
		FollowUpRequired: rec.in.FollowUpRequired,
		FollowUpDate:     rec.followUpAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.CallLogs().SaveForItem(ctx, log, rec.closes); err != nil {
		if rec.closes != "" && apperrors.IsNotFoundError(err) {
			return nil, SideEffectResult{}, err
		}
		logger.FromContext(ctx).Error("Failed to save call log",
			zap.String("call_list_item_id", rec.item.ID),
			zap.Error(err),
		)
		return nil, SideEffectResult{}, notFound(err, "call list item", rec.item.ID)
	}
	observer.IncCallLogCreated(rec.caller.WorkspaceID, string(log.Status), rec.source)

	effect := SideEffectResult{Step: StepFollowupCreate}
	if log.FollowUpRequired && log.FollowUpDate != nil {
		effect = s.scheduleFollowup(ctx, rec, &log)
	}
	s.reportSideEffect(ctx, rec.caller, &log, effect)

	s.stats.Invalidate(ctx, rec.caller.WorkspaceID, rec.caller.MemberID)
	s.publish(ctx, model.EventCallLogCreated, rec.caller, map[string]interface{}{
		"call_log_id":        log.ID,
		"call_list_id":       log.CallListID,
		"call_list_item_id":  log.CallListItemID,
		"student_id":         log.StudentID,
		"status":             log.Status,
		"follow_up_required": log.FollowUpRequired,
	})

	logger.FromContext(ctx).Info("Call log recorded",
		zap.String("call_log_id", log.ID),
		zap.String("call_list_item_id", log.CallListItemID),
		zap.String("status", string(log.Status)),
	)
	return &log, effect, nil
}

// scheduleFollowup creates the follow-up a call log asked for. A panic in
// here is turned into a failed result.
func (s *Service) scheduleFollowup(ctx context.Context, rec callRecord, log *model.CallLog) (res SideEffectResult) {
	res = SideEffectResult{Step: StepFollowupCreate, Attempted: true}
	defer func() {
		if r := recover(); r != nil {
			res.Followup = nil
			res.Err = fmt.Errorf("panic while scheduling followup: %v", r)
		}
	}()

	groupID, err := s.followupGroup(ctx, rec.list, log.StudentID)
	if err != nil {
		res.Err = err
		return res
	}

	note := rec.in.FollowUpNote
	if note == "" {
		note = rec.in.Notes
	}
	listID, logID, assignee := rec.list.ID, log.ID, rec.caller.MemberID
	now := s.now()
	followup := model.Followup{
		ID:                newID(),
		WorkspaceID:       log.WorkspaceID,
		StudentID:         log.StudentID,
		GroupID:           groupID,
		CallListID:        &listID,
		PreviousCallLogID: &logID,
		AssignedTo:        &assignee,
		DueAt:             *log.FollowUpDate,
		Status:            model.FollowupPending,
		Notes:             note,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Followups().Create(ctx, followup); err != nil {
		res.Err = err
		return res
	}

	observer.IncFollowupCreated(log.WorkspaceID, "call_log")
	s.publish(ctx, model.EventFollowupCreated, rec.caller, followupEventData(followup))
	res.Followup = &followup
	return res
}

// followupGroup picks the group of a new follow-up: the campaign's group,
// else the student's.
func (s *Service) followupGroup(ctx context.Context, list *model.CallList, studentID string) (string, error) {
	if list.GroupID != nil && *list.GroupID != "" {
		return *list.GroupID, nil
	}
	student, err := s.repo.Students().FindStudent(ctx, studentID)
	if err != nil {
		return "", notFound(err, "student", studentID)
	}
	if student.GroupID == "" {
		return "", apperrors.NewValidation("group_id", "no group to schedule the follow-up in for student %s", studentID)
	}
	return student.GroupID, nil
}

func (s *Service) reportSideEffect(ctx context.Context, caller tenant.Caller, log *model.CallLog, res SideEffectResult) {
	if !res.Failed() {
		return
	}
	observer.IncSideEffectFailure(caller.WorkspaceID, res.Step, res.Err)
	logger.FromContext(ctx).Warn("Best-effort step failed after call log was saved",
		zap.String("side_effect", res.Step),
		zap.String("call_log_id", log.ID),
		zap.String("student_id", log.StudentID),
		zap.Error(res.Err),
	)
}

func followupEventData(f model.Followup) map[string]interface{} {
	return map[string]interface{}{
		"followup_id":          f.ID,
		"student_id":           f.StudentID,
		"call_list_id":         f.CallListID,
		"previous_call_log_id": f.PreviousCallLogID,
		"assigned_to":          f.AssignedTo,
		"due_at":               f.DueAt,
	}
}

// callLogDetail resolves the relations of a log. Missing relations are left
// empty since items can be removed after the call.
func (s *Service) callLogDetail(ctx context.Context, log *model.CallLog, list *model.CallList, followup *model.Followup) (*model.CallLogDetail, error) {
	detail := &model.CallLogDetail{CallLog: *log, CallList: list, Followup: followup}

	item, err := s.repo.Items().FindByID(ctx, log.CallListItemID)
	switch {
	case err == nil:
		detail.Item = item
	case !apperrors.IsNotFoundError(err):
		return nil, err
	}

	if detail.CallList == nil {
		list, err := s.repo.CallLists().FindByID(ctx, log.CallListID)
		switch {
		case err == nil:
			detail.CallList = list
		case !apperrors.IsNotFoundError(err):
			return nil, err
		}
	}

	student, err := s.repo.Students().FindStudent(ctx, log.StudentID)
	switch {
	case err == nil:
		detail.Student = student
	case !apperrors.IsNotFoundError(err):
		return nil, err
	}
	return detail, nil
}

// UpdateCallLog edits the free-text fields of a log. Only the caller who
// recorded it or an administrator may do so.
func (s *Service) UpdateCallLog(ctx context.Context, id string, in model.UpdateCallLogInput) (*model.CallLog, error) {
	caller, err := s.authorize(ctx, ResourceCallLog, ActionUpdate)
	if err != nil {
		return nil, err
	}
	log, err := s.repo.CallLogs().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "call log", id)
	}
	if !caller.IsAdmin() && log.AssignedTo != caller.MemberID {
		return nil, apperrors.Forbidden("call log %s was recorded by another member", id)
	}

	if in.Notes != nil {
		log.Notes = *in.Notes
	}
	if in.CallerNote != nil {
		log.CallerNote = *in.CallerNote
	}
	if err := s.repo.CallLogs().UpdateNotes(ctx, *log); err != nil {
		return nil, notFound(err, "call log", id)
	}
	log.UpdatedAt = s.now()
	return log, nil
}

// GetCallLog returns a log with its item, campaign and student.
func (s *Service) GetCallLog(ctx context.Context, id string) (*model.CallLogDetail, error) {
	if _, err := s.authorize(ctx, ResourceCallLog, ActionRead); err != nil {
		return nil, err
	}
	log, err := s.repo.CallLogs().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "call log", id)
	}
	return s.callLogDetail(ctx, log, nil, nil)
}

// ListCallLogs pages through logs, newest call first.
func (s *Service) ListCallLogs(ctx context.Context, filter model.CallLogFilter, page model.Page) (model.PageResult[model.CallLog], error) {
	if _, err := s.authorize(ctx, ResourceCallLog, ActionRead); err != nil {
		return model.PageResult[model.CallLog]{}, err
	}
	if err := validateInput(filter); err != nil {
		return model.PageResult[model.CallLog]{}, err
	}
	page = page.Normalize()
	logs, total, err := s.repo.CallLogs().List(ctx, filter, page)
	if err != nil {
		return model.PageResult[model.CallLog]{}, err
	}
	return model.NewPageResult(logs, total, page), nil
}

// ListCallLogsByStudent is the call history of one student across campaigns.
func (s *Service) ListCallLogsByStudent(ctx context.Context, studentID string, page model.Page) (model.PageResult[model.CallLog], error) {
	if studentID == "" {
		return model.PageResult[model.CallLog]{}, apperrors.NewValidation("student_id", "student id is required")
	}
	return s.ListCallLogs(ctx, model.CallLogFilter{StudentID: studentID}, page)
}

// ListCallLogsByCallList is the call history of one campaign.
func (s *Service) ListCallLogsByCallList(ctx context.Context, callListID string, page model.Page) (model.PageResult[model.CallLog], error) {
	if _, err := s.authorize(ctx, ResourceCallLog, ActionRead); err != nil {
		return model.PageResult[model.CallLog]{}, err
	}
	if _, err := s.repo.CallLists().FindByID(ctx, callListID); err != nil {
		return model.PageResult[model.CallLog]{}, notFound(err, "call list", callListID)
	}
	return s.ListCallLogs(ctx, model.CallLogFilter{CallListID: callListID}, page)
}
