package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trrhub/internal/timeline"
	"trrhub/pkg/testutil"
)

func confirmedEntity(t *testing.T, store *Store, id string, snapshot timeline.Snapshot) {
	t.Helper()
	store.OnRemoteChange(id, snapshot)
}

func TestApplyOptimistic_ImmediatelyVisible(t *testing.T) {
	store := NewStore()
	confirmedEntity(t, store, "trr-1", timeline.Snapshot{"title": "Perf", "status": "draft"})

	tag := store.ApplyOptimistic("trr-1", timeline.Snapshot{"status": "in_review"})
	require.NotEmpty(t, tag)

	got, ok := store.Get("trr-1")
	require.True(t, ok)
	assert.Equal(t, "in_review", got["status"])
	assert.Equal(t, "Perf", got["title"], "untouched fields survive the patch")
}

func TestConfirmOptimistic_ReplacesSpeculation(t *testing.T) {
	store := NewStore()
	confirmedEntity(t, store, "trr-1", timeline.Snapshot{"title": "Perf", "status": "draft", "version": 1})

	tag := store.ApplyOptimistic("trr-1", timeline.Snapshot{"status": "in_review"})
	store.ConfirmOptimistic("trr-1", tag, timeline.Snapshot{
		"title": "Perf", "status": "in_review", "version": 2,
	})

	got, ok := store.Get("trr-1")
	require.True(t, ok)
	assert.Equal(t, 2, got["version"], "authoritative snapshot wins")

	confirmed, ok := store.Confirmed("trr-1")
	require.True(t, ok)
	assert.Equal(t, "in_review", confirmed["status"])
}

func TestRejectOptimistic_RollsBackAndSurfaces(t *testing.T) {
	store := NewStore()
	confirmedEntity(t, store, "trr-1", timeline.Snapshot{"status": "draft"})

	subID, notifications := store.Subscribe()
	defer store.Unsubscribe(subID)

	tag := store.ApplyOptimistic("trr-1", timeline.Snapshot{"status": "in_review"})
	<-notifications // the optimistic apply

	store.RejectOptimistic("trr-1", tag, "durable write failed")

	got, ok := store.Get("trr-1")
	require.True(t, ok)
	assert.Equal(t, "draft", got["status"], "state reverts to last confirmed")

	notification := <-notifications
	assert.Equal(t, KindRolledBack, notification.Kind)
	assert.Equal(t, "durable write failed", notification.Reason)
}

func TestRejectOptimisticCreate_RemovesEntity(t *testing.T) {
	store := NewStore()

	tag := store.ApplyOptimistic("trr-new", timeline.Snapshot{"title": "Draft"})
	_, ok := store.Get("trr-new")
	require.True(t, ok)

	store.RejectOptimistic("trr-new", tag, "rejected")
	_, ok = store.Get("trr-new")
	assert.False(t, ok)
}

func TestOnRemoteChange_NoInflightReplacesUnconditionally(t *testing.T) {
	store := NewStore()
	confirmedEntity(t, store, "trr-1", timeline.Snapshot{"status": "draft", "owner": "alice"})

	store.OnRemoteChange("trr-1", timeline.Snapshot{"status": "approved"})

	got, ok := store.Get("trr-1")
	require.True(t, ok)
	assert.Equal(t, "approved", got["status"])
	assert.NotContains(t, got, "owner", "replacement is whole-snapshot")
}

func TestOptimisticConvergence_DisjointFields(t *testing.T) {
	// Local patch to {status}, concurrent remote update to {owner},
	// then local confirm: both edits must survive.
	base := timeline.Snapshot{"status": "draft", "owner": "alice", "title": "Perf"}

	t.Run("remote then confirm", func(t *testing.T) {
		store := NewStore()
		confirmedEntity(t, store, "trr-1", base)

		tag := store.ApplyOptimistic("trr-1", timeline.Snapshot{"status": "in_review"})
		store.OnRemoteChange("trr-1", timeline.Snapshot{"status": "draft", "owner": "bob", "title": "Perf"})

		// Mid-flight view already shows both.
		mid, ok := store.Get("trr-1")
		require.True(t, ok)
		assert.Equal(t, "in_review", mid["status"])
		assert.Equal(t, "bob", mid["owner"])

		store.ConfirmOptimistic("trr-1", tag, timeline.Snapshot{
			"status": "in_review", "owner": "alice", "title": "Perf",
		})

		final, ok := store.Get("trr-1")
		require.True(t, ok)
		assert.Equal(t, "in_review", final["status"], "locally-confirmed value")
		assert.Equal(t, "bob", final["owner"], "remotely-delivered value")
	})

	t.Run("confirm then remote", func(t *testing.T) {
		store := NewStore()
		confirmedEntity(t, store, "trr-1", base)

		tag := store.ApplyOptimistic("trr-1", timeline.Snapshot{"status": "in_review"})
		store.ConfirmOptimistic("trr-1", tag, timeline.Snapshot{
			"status": "in_review", "owner": "alice", "title": "Perf",
		})
		// The post-confirm notification from the other writer reflects the
		// serialized store state, including our write.
		store.OnRemoteChange("trr-1", timeline.Snapshot{
			"status": "in_review", "owner": "bob", "title": "Perf",
		})

		final, ok := store.Get("trr-1")
		require.True(t, ok)
		assert.Equal(t, "in_review", final["status"])
		assert.Equal(t, "bob", final["owner"])
	})
}

func TestOverlappingField_RemoteWins(t *testing.T) {
	store := NewStore()
	confirmedEntity(t, store, "trr-1", timeline.Snapshot{"status": "draft"})

	tag := store.ApplyOptimistic("trr-1", timeline.Snapshot{"status": "in_review"})
	store.OnRemoteChange("trr-1", timeline.Snapshot{"status": "archived"})

	mid, ok := store.Get("trr-1")
	require.True(t, ok)
	assert.Equal(t, "archived", mid["status"], "remote wins on field overlap")

	store.ConfirmOptimistic("trr-1", tag, timeline.Snapshot{"status": "in_review"})
	final, ok := store.Get("trr-1")
	require.True(t, ok)
	assert.Equal(t, "archived", final["status"])
}

func TestRemoteDelete_WinsOverInflightEdit(t *testing.T) {
	store := NewStore()
	confirmedEntity(t, store, "trr-1", timeline.Snapshot{"status": "draft"})

	store.ApplyOptimistic("trr-1", timeline.Snapshot{"status": "in_review"})
	store.OnRemoteChange("trr-1", nil)

	_, ok := store.Get("trr-1")
	assert.False(t, ok)
}

func TestOptimisticDelete(t *testing.T) {
	store := NewStore()
	confirmedEntity(t, store, "trr-1", timeline.Snapshot{"status": "draft"})

	tag := store.ApplyOptimisticDelete("trr-1")
	_, ok := store.Get("trr-1")
	require.False(t, ok, "optimistic delete removes from view immediately")

	t.Run("reject restores", func(t *testing.T) {
		store.RejectOptimistic("trr-1", tag, "delete failed")
		got, ok := store.Get("trr-1")
		require.True(t, ok)
		assert.Equal(t, "draft", got["status"])
	})
}

func TestOptimisticDeleteConfirm(t *testing.T) {
	store := NewStore()
	confirmedEntity(t, store, "trr-1", timeline.Snapshot{"status": "draft"})

	tag := store.ApplyOptimisticDelete("trr-1")
	store.ConfirmOptimistic("trr-1", tag, nil)

	_, ok := store.Get("trr-1")
	assert.False(t, ok)
	_, ok = store.Confirmed("trr-1")
	assert.False(t, ok)
}

func TestList_FiltersAndSorts(t *testing.T) {
	store := NewStore()
	confirmedEntity(t, store, "a", timeline.Snapshot{
		"title": "API review", "status": "draft", "priority": "high",
		"tags": []any{"infra"}, "createdAt": "2024-01-01",
	})
	confirmedEntity(t, store, "b", timeline.Snapshot{
		"title": "Batch import", "status": "in_review", "priority": "low",
		"tags": []any{"infra", "data"}, "createdAt": "2024-02-01",
	})
	confirmedEntity(t, store, "c", timeline.Snapshot{
		"title": "Cache layer", "status": "draft", "priority": "low",
		"tags": []any{"perf"}, "createdAt": "2024-03-01",
	})

	t.Run("status filter", func(t *testing.T) {
		got := store.List(Filters{Status: []string{"draft"}})
		assert.Len(t, got, 2)
	})

	t.Run("tag filter requires all tags", func(t *testing.T) {
		got := store.List(Filters{Tags: []string{"infra", "data"}})
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].ID)
	})

	t.Run("query matches title case-insensitive", func(t *testing.T) {
		got := store.List(Filters{Query: "cache"})
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].ID)
	})

	t.Run("default sort createdAt descending", func(t *testing.T) {
		got := store.List(Filters{})
		require.Len(t, got, 3)
		assert.Equal(t, "c", got[0].ID)
		assert.Equal(t, "a", got[2].ID)
	})

	t.Run("ascending by title", func(t *testing.T) {
		got := store.List(Filters{SortBy: "title", SortOrder: SortAsc})
		require.Len(t, got, 3)
		assert.Equal(t, "a", got[0].ID)
		assert.Equal(t, "c", got[2].ID)
	})
}

func TestSubscribeUnsubscribe(t *testing.T) {
	store := NewStore()
	id, ch := store.Subscribe()

	store.OnRemoteChange("trr-1", timeline.Snapshot{"status": "draft"})
	notification := <-ch
	assert.Equal(t, "trr-1", notification.EntityID)
	assert.Equal(t, KindUpdated, notification.Kind)

	store.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open, "unsubscribe closes the channel")
}

func TestRemoteDeleteLifecycle(t *testing.T) {
	store := NewStore()
	_, ch := store.Subscribe()

	testutil.Given(t, "a review synced from the backend", func(t *testing.T) {
		store.OnRemoteChange("trr-9", timeline.Snapshot{"title": "Perf", "status": "open"})
		_, ok := store.Get("trr-9")
		require.True(t, ok)
	})

	testutil.When(t, "a remote delete arrives", func(t *testing.T) {
		store.OnRemoteChange("trr-9", nil)
	})

	testutil.Then(t, "subscribers see the update then the removal", func(t *testing.T) {
		first := <-ch
		assert.Equal(t, KindUpdated, first.Kind)
		second := <-ch
		assert.Equal(t, KindRemoved, second.Kind)
		_, ok := store.Get("trr-9")
		assert.False(t, ok)
	})
}
