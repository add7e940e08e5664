package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trrhub/internal/storage"
	"trrhub/internal/timeline"
	pkgerrors "trrhub/pkg/errors"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []timeline.Event
}

func (c *captureEmitter) Emit(_ context.Context, event timeline.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureEmitter) all() []timeline.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]timeline.Event(nil), c.events...)
}

// failingDocs wraps a real store and fails writes on demand.
type failingDocs struct {
	storage.DocumentStore
	putErr    error
	deleteErr error
}

func (f *failingDocs) Put(ctx context.Context, collection, id string, snapshot timeline.Snapshot) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.DocumentStore.Put(ctx, collection, id, snapshot)
}

func (f *failingDocs) Delete(ctx context.Context, collection, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.DocumentStore.Delete(ctx, collection, id)
}

func newTestService(t *testing.T, docs storage.DocumentStore) (*Service, *captureEmitter) {
	t.Helper()
	emitter := &captureEmitter{}
	svc, err := NewService(NewStore(), docs, WithEmitter(emitter))
	require.NoError(t, err)
	return svc, emitter
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(nil, storage.NewInMemoryDocumentStore())
	require.Error(t, err)

	_, err = NewService(NewStore(), nil)
	require.Error(t, err)
}

func TestCreate_PersistsAndEmits(t *testing.T) {
	docs := storage.NewInMemoryDocumentStore()
	svc, emitter := newTestService(t, docs)

	id, err := svc.Create(context.Background(), "user-1", timeline.Snapshot{
		"title": "Perf regression triage",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	stored, err := docs.Get(context.Background(), Collection, id)
	require.NoError(t, err)
	assert.Equal(t, "draft", stored["status"], "status defaults to draft")
	assert.Equal(t, "user-1", stored["createdBy"])
	assert.Equal(t, 1, stored["version"])

	local, ok := svc.State().Get(id)
	require.True(t, ok)
	assert.Equal(t, "Perf regression triage", local["title"])

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, timeline.ActionCreated, events[0].Action)
	assert.Equal(t, "review", events[0].Object.Type)
	assert.Equal(t, "Perf regression triage", events[0].Object.Name)
}

func TestCreate_WriteFailureRollsBack(t *testing.T) {
	docs := &failingDocs{
		DocumentStore: storage.NewInMemoryDocumentStore(),
		putErr:        errors.New("backend down"),
	}
	svc, emitter := newTestService(t, docs)

	_, notifications := svc.State().Subscribe()

	id, err := svc.Create(context.Background(), "user-1", timeline.Snapshot{"title": "Doomed"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnavailable))
	assert.Empty(t, id)

	// The optimistic apply notifies first; the rollback must follow.
	deadline := time.After(time.Second)
	for {
		select {
		case n := <-notifications:
			if n.Kind != KindRolledBack {
				continue
			}
			assert.NotEmpty(t, n.Reason, "rollback is never silent")
		case <-deadline:
			t.Fatal("expected a rollback notification")
		}
		break
	}

	assert.Empty(t, svc.List(Filters{}), "rejected create leaves no entity behind")
	assert.Empty(t, emitter.all(), "no event for a write that never persisted")
}

func TestUpdate_EmitsAndIncrementsVersion(t *testing.T) {
	docs := storage.NewInMemoryDocumentStore()
	svc, emitter := newTestService(t, docs)

	id, err := svc.Create(context.Background(), "user-1", timeline.Snapshot{
		"title": "Perf", "status": "open",
	})
	require.NoError(t, err)

	err = svc.Update(context.Background(), "user-2", id, timeline.Snapshot{"status": "closed"})
	require.NoError(t, err)

	stored, err := docs.Get(context.Background(), Collection, id)
	require.NoError(t, err)
	assert.Equal(t, "closed", stored["status"])
	assert.Equal(t, 2, stored["version"])

	events := emitter.all()
	require.Len(t, events, 2)
	update := events[1]
	assert.Equal(t, timeline.ActionStatusChanged, update.Action)
	assert.Equal(t, "user-2", update.UserID)
	assert.Contains(t, update.Delta.Fields, "status")
}

func TestUpdate_MetadataOnlyPatchEmitsNothing(t *testing.T) {
	docs := storage.NewInMemoryDocumentStore()
	svc, emitter := newTestService(t, docs)

	id, err := svc.Create(context.Background(), "user-1", timeline.Snapshot{"title": "Perf"})
	require.NoError(t, err)

	err = svc.Update(context.Background(), "user-1", id, timeline.Snapshot{"_draftCursor": 42})
	require.NoError(t, err)

	assert.Len(t, emitter.all(), 1, "internal-field patch is below the audit threshold")
}

func TestUpdate_WriteFailureRestoresVisibleState(t *testing.T) {
	docs := &failingDocs{DocumentStore: storage.NewInMemoryDocumentStore()}
	svc, _ := newTestService(t, docs)

	id, err := svc.Create(context.Background(), "user-1", timeline.Snapshot{
		"title": "Perf", "status": "open",
	})
	require.NoError(t, err)

	docs.putErr = errors.New("backend down")
	err = svc.Update(context.Background(), "user-1", id, timeline.Snapshot{"status": "closed"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnavailable))

	got, ok := svc.State().Get(id)
	require.True(t, ok)
	assert.Equal(t, "open", got["status"], "speculative value rolled back")
}

func TestUpdate_UnknownReviewIsNotFound(t *testing.T) {
	svc, _ := newTestService(t, storage.NewInMemoryDocumentStore())

	err := svc.Update(context.Background(), "user-1", "missing", timeline.Snapshot{"status": "closed"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDelete_RemovesAndEmits(t *testing.T) {
	docs := storage.NewInMemoryDocumentStore()
	svc, emitter := newTestService(t, docs)

	id, err := svc.Create(context.Background(), "user-1", timeline.Snapshot{"title": "Perf"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "user-1", id)
	require.NoError(t, err)

	_, err = docs.Get(context.Background(), Collection, id)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, ok := svc.State().Get(id)
	assert.False(t, ok)

	events := emitter.all()
	require.Len(t, events, 2)
	assert.Equal(t, timeline.ActionDeleted, events[1].Action)
}

func TestGet_FallsBackToDurableStore(t *testing.T) {
	docs := storage.NewInMemoryDocumentStore()
	require.NoError(t, docs.Put(context.Background(), Collection, "trr-9", timeline.Snapshot{
		"title": "Imported", "status": "open",
	}))

	svc, _ := newTestService(t, docs)

	got, err := svc.Get(context.Background(), "trr-9")
	require.NoError(t, err)
	assert.Equal(t, "Imported", got["title"])

	local, ok := svc.State().Get("trr-9")
	require.True(t, ok)
	assert.Equal(t, "Imported", local["title"], "fallback read seeds local state")
}

func TestWatchRemote_HydratesExistingDocuments(t *testing.T) {
	docs := storage.NewInMemoryDocumentStore()
	require.NoError(t, docs.Put(context.Background(), Collection, "trr-5", timeline.Snapshot{
		"title": "Written before the watcher", "status": "open",
	}))

	svc, _ := newTestService(t, docs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.WatchRemote(ctx) }()

	// A document written before the subscription registered must still
	// become visible through the initial delivery.
	require.Eventually(t, func() bool {
		got, ok := svc.State().Get("trr-5")
		return ok && got["title"] == "Written before the watcher"
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatchRemote_AppliesRemoteChanges(t *testing.T) {
	docs := storage.NewInMemoryDocumentStore()
	svc, _ := newTestService(t, docs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.WatchRemote(ctx) }()

	require.NoError(t, docs.Put(context.Background(), Collection, "trr-7", timeline.Snapshot{
		"title": "From another writer", "status": "open",
	}))

	require.Eventually(t, func() bool {
		got, ok := svc.State().Get("trr-7")
		return ok && got["title"] == "From another writer"
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, docs.Delete(context.Background(), Collection, "trr-7"))
	require.Eventually(t, func() bool {
		_, ok := svc.State().Get("trr-7")
		return !ok
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
