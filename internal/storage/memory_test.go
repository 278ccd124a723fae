package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

func seedItems(t *testing.T, ctx context.Context, repo *MemoryRepo, listID string, n int) []model.CallListItem {
	t.Helper()
	items := make([]model.CallListItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, *model.NewCallListItem(&model.CallListItem{
			WorkspaceID: testWorkspaceID,
			CallListID:  listID,
			StudentID:   fmt.Sprintf("stu-%d", i),
		}))
	}
	created, err := repo.Items().Create(ctx, items)
	require.NoError(t, err)
	require.Len(t, created, n)
	return created
}

func TestMemoryItems_CreateSkipsExistingStudents(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := wsCtx()
	seedItems(t, ctx, repo, "cl-1", 2)

	again := []model.CallListItem{
		*model.NewCallListItem(&model.CallListItem{WorkspaceID: testWorkspaceID, CallListID: "cl-1", StudentID: "stu-0"}),
		*model.NewCallListItem(&model.CallListItem{WorkspaceID: testWorkspaceID, CallListID: "cl-1", StudentID: "stu-9"}),
		*model.NewCallListItem(&model.CallListItem{WorkspaceID: testWorkspaceID, CallListID: "cl-1", StudentID: "stu-9"}),
		*model.NewCallListItem(&model.CallListItem{WorkspaceID: testWorkspaceID, CallListID: "cl-2", StudentID: "stu-0"}),
	}
	created, err := repo.Items().Create(ctx, again)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "stu-9", created[0].StudentID)
	assert.Equal(t, "cl-2", created[1].CallListID)
}

func TestMemoryItems_WorkspaceIsolation(t *testing.T) {
	repo := NewMemoryRepo()
	items := seedItems(t, wsCtx(), repo, "cl-1", 1)

	other := tenant.WithWorkspaceID(context.Background(), "ws-other")
	_, err := repo.Items().FindByID(other, items[0].ID)
	assert.True(t, apperrors.IsNotFoundError(err))

	ids, err := repo.Items().Assign(other, []string{items[0].ID}, "mem-x", "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryItems_AssignCompareAndSet(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := wsCtx()
	items := seedItems(t, ctx, repo, "cl-1", 3)
	ids := []string{items[0].ID, items[1].ID, items[2].ID}

	got, err := repo.Items().Assign(ctx, ids[:2], "mem-a", "mem-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[:2], got)

	// mem-b may only claim the free item.
	got, err = repo.Items().Assign(ctx, ids, "mem-b", "mem-b")
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2]}, got)

	// mem-b cannot release mem-a's items.
	got, err = repo.Items().Unassign(ctx, ids, "mem-b")
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2]}, got)

	// Admin writes ignore the holder.
	got, err = repo.Items().Assign(ctx, ids, "mem-c", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, got)
}

func TestMemoryItems_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := wsCtx()
	items := seedItems(t, ctx, repo, "cl-1", 1)

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(member string) {
			defer wg.Done()
			got, err := repo.Items().Assign(ctx, []string{items[0].ID}, member, member)
			assert.NoError(t, err)
			if len(got) == 1 {
				mu.Lock()
				winners = append(winners, member)
				mu.Unlock()
			}
		}(fmt.Sprintf("mem-%d", i))
	}
	wg.Wait()

	require.Len(t, winners, 1)
	stored, err := repo.Items().FindByID(ctx, items[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAssignedTo(winners[0]))
}

func TestMemoryCallLogs_SaveForItem(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := wsCtx()
	item := seedItems(t, ctx, repo, "cl-1", 1)[0]

	fu := model.NewFollowup(&model.Followup{WorkspaceID: testWorkspaceID, StudentID: item.StudentID})
	require.NoError(t, repo.Followups().Create(ctx, *fu))

	log := model.NewCallLog(&model.CallLog{WorkspaceID: testWorkspaceID, CallListItemID: item.ID, CallListID: "cl-1"})
	require.NoError(t, repo.CallLogs().SaveForItem(ctx, *log, fu.ID))

	stored, err := repo.Items().FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemDone, stored.State)
	require.NotNil(t, stored.CallLogID)
	assert.Equal(t, log.ID, *stored.CallLogID)

	closed, err := repo.Followups().FindByID(ctx, fu.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowupDone, closed.Status)
	require.NotNil(t, closed.CompletedCallLogID)
	assert.Equal(t, log.ID, *closed.CompletedCallLogID)
	assert.NotNil(t, closed.CompletedAt)

	// A second completion of the same follow-up writes nothing.
	second := model.NewCallLog(&model.CallLog{WorkspaceID: testWorkspaceID, CallListItemID: item.ID})
	err = repo.CallLogs().SaveForItem(ctx, *second, fu.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
	_, err = repo.CallLogs().FindByID(ctx, second.ID)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestMemoryItems_DeleteUnused(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := wsCtx()
	items := seedItems(t, ctx, repo, "cl-1", 2)

	log := model.NewCallLog(&model.CallLog{WorkspaceID: testWorkspaceID, CallListItemID: items[1].ID, CallListID: "cl-1"})
	require.NoError(t, repo.CallLogs().SaveForItem(ctx, *log, ""))

	removed, err := repo.Items().DeleteUnused(ctx, items[0].ID)
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = repo.Items().FindByID(ctx, items[0].ID)
	assert.True(t, apperrors.IsNotFoundError(err))

	removed, err = repo.Items().DeleteUnused(ctx, items[1].ID)
	require.NoError(t, err)
	assert.False(t, removed, "an item with a call log stays")
	_, err = repo.Items().FindByID(ctx, items[1].ID)
	assert.NoError(t, err)
}

func TestMemoryCallLogs_LatestForItems(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := wsCtx()
	item := seedItems(t, ctx, repo, "cl-1", 1)[0]
	base := utils.Now().Add(-24 * time.Hour)

	older := model.NewCallLog(&model.CallLog{WorkspaceID: testWorkspaceID, CallListItemID: item.ID, CallDate: base})
	newest := model.NewCallLog(&model.CallLog{WorkspaceID: testWorkspaceID, CallListItemID: item.ID, CallDate: base.Add(2 * time.Hour)})
	middle := model.NewCallLog(&model.CallLog{WorkspaceID: testWorkspaceID, CallListItemID: item.ID, CallDate: base.Add(time.Hour)})
	for _, l := range []*model.CallLog{older, newest, middle} {
		require.NoError(t, repo.CallLogs().SaveForItem(ctx, *l, ""))
	}

	latest, err := repo.CallLogs().LatestForItems(ctx, []string{item.ID, "unknown"})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, newest.ID, latest[item.ID].ID)
}

func TestNewerOrdering(t *testing.T) {
	at := utils.Now()
	a := model.CallLog{ID: "a", CallDate: at, CreatedAt: at}
	b := model.CallLog{ID: "b", CallDate: at, CreatedAt: at.Add(time.Second)}
	c := model.CallLog{ID: "c", CallDate: at, CreatedAt: at.Add(time.Second)}

	assert.True(t, newer(b, a), "later creation wins on equal call date")
	assert.True(t, newer(c, b), "id breaks full ties")
	assert.False(t, newer(a, a))
}

func TestMemoryFollowups_PendingOnlyMutations(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := wsCtx()
	now := utils.Now()
	member := "mem-a"

	due := []time.Time{now.Add(-2 * time.Hour), now.Add(time.Hour), now.Add(48 * time.Hour)}
	var ids []string
	for _, d := range due {
		fu := model.NewFollowup(&model.Followup{WorkspaceID: testWorkspaceID, AssignedTo: &member, DueAt: d})
		require.NoError(t, repo.Followups().Create(ctx, *fu))
		ids = append(ids, fu.ID)
	}

	upcoming, overdue, err := repo.Followups().CountPending(ctx, member, "", now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), upcoming)
	assert.Equal(t, int64(1), overdue)

	list, total, err := repo.Followups().List(ctx, model.FollowupFilter{Overdue: true}, now, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, ids[0], list[0].ID)

	fu, err := repo.Followups().FindByID(ctx, ids[1])
	require.NoError(t, err)
	fu.Status = model.FollowupSkipped
	require.NoError(t, repo.Followups().UpdatePending(ctx, *fu))

	assert.True(t, apperrors.IsNotFoundError(repo.Followups().UpdatePending(ctx, *fu)))
	assert.True(t, apperrors.IsNotFoundError(repo.Followups().DeletePending(ctx, ids[1])))
	assert.NoError(t, repo.Followups().DeletePending(ctx, ids[2]))
}
