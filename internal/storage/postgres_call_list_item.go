package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

type callListItemRepo struct {
	*PostgresRepo
}

// claimableClause restricts a bulk write to items a non-admin claimant may act on.
const claimableClause = "(assigned_to IS NULL OR assigned_to = '' OR assigned_to = ?)"

// Create inserts items whose student is not yet part of the call list and
// returns them. Duplicates within items collapse to the first occurrence.
func (r *callListItemRepo) Create(ctx context.Context, items []model.CallListItem) ([]model.CallListItem, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []model.CallListItem{}, nil
	}
	for _, it := range items {
		if it.WorkspaceID != workspaceID {
			return nil, fmt.Errorf("%w: item workspace %s does not match workspace %s", apperrors.ErrBadRequest, it.WorkspaceID, workspaceID)
		}
	}

	var inserted []model.CallListItem
	err = r.write(ctx, "create", "call_list_item", workspaceID, func(tx *gorm.DB) error {
		inserted = inserted[:0]
		existing := make(map[string]struct{})
		byList := make(map[string][]string)
		for _, it := range items {
			byList[it.CallListID] = append(byList[it.CallListID], it.StudentID)
		}
		for listID, studentIDs := range byList {
			var found []string
			if err := tx.Model(&model.CallListItem{}).
				Where("workspace_id = ? AND call_list_id = ? AND student_id IN ?", workspaceID, listID, studentIDs).
				Pluck("student_id", &found).Error; err != nil {
				return checkConstraintViolation(err)
			}
			for _, sid := range found {
				existing[listID+"|"+sid] = struct{}{}
			}
		}

		for _, it := range items {
			key := it.CallListID + "|" + it.StudentID
			if _, dup := existing[key]; dup {
				continue
			}
			existing[key] = struct{}{}
			inserted = append(inserted, it)
		}
		if len(inserted) == 0 {
			return nil
		}

		// A concurrent insert of the same student loses quietly.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "call_list_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).Create(&inserted).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return keepWritten(tx, workspaceID, &inserted)
	})
	if err != nil {
		return nil, err
	}
	if inserted == nil {
		inserted = []model.CallListItem{}
	}
	return inserted, nil
}

// keepWritten drops the rows a conflicting insert skipped. Item ids are
// fresh, so any id present after the insert was written by it.
func keepWritten(tx *gorm.DB, workspaceID string, items *[]model.CallListItem) error {
	ids := make([]string, 0, len(*items))
	for _, it := range *items {
		ids = append(ids, it.ID)
	}
	var written []string
	if err := tx.Model(&model.CallListItem{}).
		Where("workspace_id = ? AND id IN ?", workspaceID, ids).
		Pluck("id", &written).Error; err != nil {
		return checkConstraintViolation(err)
	}
	if len(written) == len(ids) {
		return nil
	}

	present := make(map[string]struct{}, len(written))
	for _, id := range written {
		present[id] = struct{}{}
	}
	kept := (*items)[:0]
	for _, it := range *items {
		if _, ok := present[it.ID]; ok {
			kept = append(kept, it)
		}
	}
	*items = kept
	return nil
}

// FindByID loads one item of the acting workspace.
func (r *callListItemRepo) FindByID(ctx context.Context, id string) (*model.CallListItem, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}

	var item model.CallListItem
	err = r.read(ctx, "find", "call_list_item", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			First(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDs loads the items that exist among ids.
func (r *callListItemRepo) FindByIDs(ctx context.Context, ids []string) ([]model.CallListItem, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.CallListItem{}, nil
	}

	var items []model.CallListItem
	err = r.read(ctx, "find_many", "call_list_item", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("workspace_id = ? AND id IN ?", workspaceID, ids).
			Find(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindByListAndStudent loads the item of a student within a call list.
func (r *callListItemRepo) FindByListAndStudent(ctx context.Context, callListID, studentID string) (*model.CallListItem, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}

	var item model.CallListItem
	err = r.read(ctx, "find_by_student", "call_list_item", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("workspace_id = ? AND call_list_id = ? AND student_id = ?", workspaceID, callListID, studentID).
			First(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Update persists state, priority and custom fields of an item.
func (r *callListItemRepo) Update(ctx context.Context, item model.CallListItem) error {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	item.UpdatedAt = utils.Now()

	return r.write(ctx, "update", "call_list_item", workspaceID, func(tx *gorm.DB) error {
		var existing model.CallListItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND workspace_id = ?", item.ID, workspaceID).
			First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("call list item", item.ID)
			}
			return checkConstraintViolation(err)
		}
		return checkConstraintViolation(tx.Model(&existing).Updates(map[string]interface{}{
			"state":      item.State,
			"priority":   item.Priority,
			"custom":     item.Custom,
			"updated_at": item.UpdatedAt,
		}).Error)
	})
}

// Assign claims items with a single conditional UPDATE ... RETURNING id.
func (r *callListItemRepo) Assign(ctx context.Context, ids []string, assignee, claimant string) ([]string, error) {
	return r.setAssignee(ctx, "assign", ids, &assignee, claimant)
}

// Unassign clears assigned_to with the same claimant rule as Assign.
func (r *callListItemRepo) Unassign(ctx context.Context, ids []string, claimant string) ([]string, error) {
	return r.setAssignee(ctx, "unassign", ids, nil, claimant)
}

func (r *callListItemRepo) setAssignee(ctx context.Context, op string, ids []string, assignee *string, claimant string) ([]string, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	var updated []model.CallListItem
	err = r.write(ctx, op, "call_list_item", workspaceID, func(tx *gorm.DB) error {
		updated = nil
		q := tx.Model(&updated).
			Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
			Where("workspace_id = ? AND id IN ?", workspaceID, ids)
		if claimant != "" {
			q = q.Where(claimableClause, claimant)
		}
		var value interface{}
		if assignee != nil {
			value = *assignee
		}
		return checkConstraintViolation(q.Updates(map[string]interface{}{
			"assigned_to": value,
			"updated_at":  utils.Now(),
		}).Error)
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(updated))
	for _, it := range updated {
		out = append(out, it.ID)
	}
	return out, nil
}

// Delete removes items from a call list. Their call logs stay.
func (r *callListItemRepo) Delete(ctx context.Context, callListID string, ids []string) (int64, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = r.write(ctx, "delete", "call_list_item", workspaceID, func(tx *gorm.DB) error {
		res := tx.Where("workspace_id = ? AND call_list_id = ? AND id IN ?", workspaceID, callListID, ids).
			Delete(&model.CallListItem{})
		if res.Error != nil {
			return checkConstraintViolation(res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *callListItemRepo) DeleteUnused(ctx context.Context, id string) (bool, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return false, err
	}

	var deleted bool
	err = r.write(ctx, "delete_unused", "call_list_item", workspaceID, func(tx *gorm.DB) error {
		res := tx.Where("workspace_id = ? AND id = ? AND call_log_id IS NULL", workspaceID, id).
			Delete(&model.CallListItem{})
		if res.Error != nil {
			return checkConstraintViolation(res.Error)
		}
		deleted = res.RowsAffected == 1
		return nil
	})
	return deleted, err
}

// List returns the items of a call list, priority desc then oldest first.
func (r *callListItemRepo) List(ctx context.Context, callListID string, filter model.ItemFilter, page model.Page) ([]model.CallListItem, int64, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, 0, err
	}

	var (
		items []model.CallListItem
		total int64
	)
	err = r.read(ctx, "list", "call_list_item", workspaceID, func() error {
		q := r.db.WithContext(ctx).Model(&model.CallListItem{}).
			Where("workspace_id = ? AND call_list_id = ?", workspaceID, callListID)
		if filter.State != "" {
			q = q.Where("state = ?", filter.State)
		}
		if filter.Unassigned {
			q = q.Where("(assigned_to IS NULL OR assigned_to = '')")
		} else if filter.AssignedTo != "" {
			q = q.Where("assigned_to = ?", filter.AssignedTo)
		}
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		return q.Order("priority DESC, created_at ASC").
			Offset(page.Offset()).Limit(page.Limit()).
			Find(&items).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindAssigned returns every item held by memberID.
func (r *callListItemRepo) FindAssigned(ctx context.Context, memberID, callListID string, state model.ItemState) ([]model.CallListItem, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}

	var items []model.CallListItem
	err = r.read(ctx, "find_assigned", "call_list_item", workspaceID, func() error {
		q := r.db.WithContext(ctx).
			Where("workspace_id = ? AND assigned_to = ?", workspaceID, memberID)
		if callListID != "" {
			q = q.Where("call_list_id = ?", callListID)
		}
		if state != "" {
			q = q.Where("state = ?", state)
		}
		return q.Order("priority DESC, created_at ASC").Find(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

type stateCount struct {
	State model.ItemState
	Total int64
}

// CountByState counts memberID's items per state.
func (r *callListItemRepo) CountByState(ctx context.Context, memberID, callListID string) (map[model.ItemState]int64, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}

	var rows []stateCount
	err = r.read(ctx, "count_by_state", "call_list_item", workspaceID, func() error {
		q := r.db.WithContext(ctx).Model(&model.CallListItem{}).
			Select("state, COUNT(*) AS total").
			Where("workspace_id = ? AND assigned_to = ?", workspaceID, memberID)
		if callListID != "" {
			q = q.Where("call_list_id = ?", callListID)
		}
		return q.Group("state").Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	out := make(map[model.ItemState]int64, len(rows))
	for _, row := range rows {
		out[row.State] = row.Total
	}
	return out, nil
}
