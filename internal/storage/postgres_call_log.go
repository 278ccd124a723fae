package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

type callLogRepo struct {
	*PostgresRepo
}

// SaveForItem writes the log, moves its item to DONE pointing at the log and
// optionally closes the follow-up that produced it, all in one transaction.
func (r *callLogRepo) SaveForItem(ctx context.Context, log model.CallLog, followupID string) error {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	if log.WorkspaceID != workspaceID {
		return fmt.Errorf("%w: call log workspace %s does not match workspace %s", apperrors.ErrBadRequest, log.WorkspaceID, workspaceID)
	}

	return r.write(ctx, "save_for_item", "call_log", workspaceID, func(tx *gorm.DB) error {
		if err := tx.Create(&log).Error; err != nil {
			return checkConstraintViolation(err)
		}

		now := utils.Now()
		res := tx.Model(&model.CallListItem{}).
			Where("id = ? AND workspace_id = ?", log.CallListItemID, workspaceID).
			Updates(map[string]interface{}{
				"state":       model.ItemDone,
				"call_log_id": log.ID,
				"updated_at":  now,
			})
		if res.Error != nil {
			return checkConstraintViolation(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("call list item", log.CallListItemID)
		}

		if followupID == "" {
			return nil
		}
		res = tx.Model(&model.Followup{}).
			Where("id = ? AND workspace_id = ? AND status = ?", followupID, workspaceID, model.FollowupPending).
			Updates(map[string]interface{}{
				"status":                model.FollowupDone,
				"completed_call_log_id": log.ID,
				"completed_at":          now,
				"updated_at":            now,
			})
		if res.Error != nil {
			return checkConstraintViolation(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("pending followup", followupID)
		}
		return nil
	})
}

// FindByID loads one call log of the acting workspace.
func (r *callLogRepo) FindByID(ctx context.Context, id string) (*model.CallLog, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}

	var log model.CallLog
	err = r.read(ctx, "find", "call_log", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			First(&log).Error
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// UpdateNotes persists the free-text fields of a call log.
func (r *callLogRepo) UpdateNotes(ctx context.Context, log model.CallLog) error {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}

	return r.write(ctx, "update_notes", "call_log", workspaceID, func(tx *gorm.DB) error {
		res := tx.Model(&model.CallLog{}).
			Where("id = ? AND workspace_id = ?", log.ID, workspaceID).
			Updates(map[string]interface{}{
				"notes":       log.Notes,
				"caller_note": log.CallerNote,
				"updated_at":  utils.Now(),
			})
		if res.Error != nil {
			return checkConstraintViolation(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("call log", log.ID)
		}
		return nil
	})
}

// List returns call logs, newest call first.
func (r *callLogRepo) List(ctx context.Context, filter model.CallLogFilter, page model.Page) ([]model.CallLog, int64, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, 0, err
	}

	var (
		logs  []model.CallLog
		total int64
	)
	err = r.read(ctx, "list", "call_log", workspaceID, func() error {
		q := r.db.WithContext(ctx).Model(&model.CallLog{}).Where("workspace_id = ?", workspaceID)
		if filter.CallListID != "" {
			q = q.Where("call_list_id = ?", filter.CallListID)
		}
		if filter.StudentID != "" {
			q = q.Where("student_id = ?", filter.StudentID)
		}
		if filter.AssignedTo != "" {
			q = q.Where("assigned_to = ?", filter.AssignedTo)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.FollowUpRequired != nil {
			q = q.Where("follow_up_required = ?", *filter.FollowUpRequired)
		}
		if filter.From != nil {
			q = q.Where("call_date >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("call_date < ?", *filter.To)
		}
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		return q.Order("call_date DESC, created_at DESC").
			Offset(page.Offset()).Limit(page.Limit()).
			Find(&logs).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// LatestForItems selects one log per item with DISTINCT ON.
func (r *callLogRepo) LatestForItems(ctx context.Context, itemIDs []string) (map[string]model.CallLog, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.CallLog, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	var logs []model.CallLog
	err = r.read(ctx, "latest_for_items", "call_log", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Select("DISTINCT ON (call_list_item_id) *").
			Where("workspace_id = ? AND call_list_item_id IN ?", workspaceID, itemIDs).
			Order("call_list_item_id, call_date DESC, created_at DESC, id DESC").
			Find(&logs).Error
	})
	if err != nil {
		return nil, err
	}
	for _, l := range logs {
		out[l.CallListItemID] = l
	}
	return out, nil
}

// CountByCaller counts logs recorded by memberID.
func (r *callLogRepo) CountByCaller(ctx context.Context, memberID string, q CallLogCountQuery) (int64, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	err = r.read(ctx, "count_by_caller", "call_log", workspaceID, func() error {
		tx := r.db.WithContext(ctx).Model(&model.CallLog{}).
			Where("workspace_id = ? AND assigned_to = ?", workspaceID, memberID)
		if q.CallListID != "" {
			tx = tx.Where("call_list_id = ?", q.CallListID)
		}
		if q.Since != nil {
			tx = tx.Where("call_date >= ?", *q.Since)
		}
		if q.FollowUpOnly {
			tx = tx.Where("follow_up_required = ?", true)
		}
		return tx.Count(&total).Error
	})
	return total, err
}
