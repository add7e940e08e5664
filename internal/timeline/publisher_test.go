package timeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "trrhub/pkg/errors"
)

type fakeStore struct {
	mu        sync.Mutex
	appended  []Event
	appendErr error
}

func (f *fakeStore) Append(_ context.Context, event Event) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, event)
	return nil
}

func (f *fakeStore) events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.appended...)
}

func (f *fakeStore) ListByUser(context.Context, string, int) ([]Event, error) {
	return f.events(), nil
}

func (f *fakeStore) ListByObject(context.Context, string, string, int) ([]Event, error) {
	return f.events(), nil
}

type fakeSink struct {
	published []Event
	err       error
}

func (f *fakeSink) Publish(_ context.Context, event Event) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

func TestPublisherEmit(t *testing.T) {
	ctx := context.Background()
	serverNow := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stamps server time and appends", func(t *testing.T) {
		store := &fakeStore{}
		pub, err := NewPublisher(store, WithClock(func(context.Context) (time.Time, error) {
			return serverNow, nil
		}))
		require.NoError(t, err)

		require.NoError(t, pub.Emit(ctx, NewEvent(baseParams())))
		require.Len(t, store.appended, 1)
		assert.Equal(t, serverNow, store.appended[0].TS)
	})

	t.Run("clock failure keeps provisional timestamp", func(t *testing.T) {
		store := &fakeStore{}
		pub, err := NewPublisher(store, WithClock(func(context.Context) (time.Time, error) {
			return time.Time{}, errors.New("store down")
		}))
		require.NoError(t, err)

		event := NewEvent(baseParams())
		require.NoError(t, pub.Emit(ctx, event))
		assert.Equal(t, event.TS, store.appended[0].TS)
	})

	t.Run("invalid event never persisted", func(t *testing.T) {
		store := &fakeStore{}
		pub, err := NewPublisher(store)
		require.NoError(t, err)

		event := NewEvent(baseParams())
		event.Object.ID = ""
		err = pub.Emit(ctx, event)
		require.Error(t, err)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInternal))
		assert.Empty(t, store.appended)
	})

	t.Run("append failure surfaces as unavailable", func(t *testing.T) {
		store := &fakeStore{appendErr: errors.New("connection reset")}
		pub, err := NewPublisher(store)
		require.NoError(t, err)

		err = pub.Emit(ctx, NewEvent(baseParams()))
		require.Error(t, err)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnavailable))
	})

	t.Run("sink receives persisted events", func(t *testing.T) {
		store := &fakeStore{}
		sink := &fakeSink{}
		pub, err := NewPublisher(store, WithSink(sink))
		require.NoError(t, err)

		require.NoError(t, pub.Emit(ctx, NewEvent(baseParams())))
		require.Len(t, sink.published, 1)
	})

	t.Run("sink failure does not fail the emit", func(t *testing.T) {
		store := &fakeStore{}
		sink := &fakeSink{err: errors.New("broker down")}
		pub, err := NewPublisher(store, WithSink(sink))
		require.NoError(t, err)

		require.NoError(t, pub.Emit(ctx, NewEvent(baseParams())))
		assert.Len(t, store.appended, 1)
	})
}

func TestWorkerDropsInvalidEvents(t *testing.T) {
	store := &fakeStore{}
	pub, err := NewPublisher(store)
	require.NoError(t, err)

	inbox := make(chan Event, 2)
	bad := NewEvent(baseParams())
	bad.UserID = ""
	good := NewEvent(baseParams())
	inbox <- bad
	inbox <- good

	worker := NewWorker(pub, inbox, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(store.events()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, good.EventID, store.events()[0].EventID)
}
