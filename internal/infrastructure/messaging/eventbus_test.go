package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestEventBus_DeliversToTypedSubscriber(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var got []shared.Event
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(e shared.Event) error {
		got = append(got, e)
		return nil
	}))

	up := shared.NewLevelUpEvent("g1", "u1", 0, 1, 155, "c1")
	require.NoError(t, bus.Publish(up))
	require.NoError(t, bus.Publish(shared.NewXPGrantedEvent("g1", "u1", 5, 160, "message")))

	require.Len(t, got, 1, "typed subscriber must only see its event type")
	assert.Equal(t, shared.EventLevelUp, got[0].EventType())
}

func TestEventBus_GlobalSubscriberSeesEverything(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var count int
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewXPGrantedEvent("g1", "u1", 5, 5, "message")))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("g1", "u1", 0, 1, 155, "")))

	assert.Equal(t, 2, count)
}

func TestEventBus_HandlerErrorNeverReachesPublisher(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventXPGranted, func(shared.Event) error {
		return errors.New("role sync blew up")
	}))

	err := bus.Publish(shared.NewXPGrantedEvent("g1", "u1", 5, 5, "message"))
	assert.NoError(t, err, "the grant is committed; handler failures stay downstream")
}

func TestEventBus_HandlerPanicIsContained(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventXPGranted, func(shared.Event) error {
		panic("nil role cache")
	}))

	var after int
	require.NoError(t, bus.Subscribe(shared.EventXPGranted, func(shared.Event) error {
		after++
		return nil
	}))

	err := bus.Publish(shared.NewXPGrantedEvent("g1", "u1", 5, 5, "message"))
	assert.NoError(t, err)
	assert.Equal(t, 1, after, "a panicking subscriber must not starve the rest")
}

func TestEventBus_AsyncModeDrainsOnClose(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var mu sync.Mutex
	handled := 0
	require.NoError(t, bus.Subscribe(shared.EventXPGranted, func(shared.Event) error {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewXPGrantedEvent("g1", "u1", 1, i+1, "message")))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handled == 5
	}, time.Second, 5*time.Millisecond, "all published events must eventually be handled")

	require.NoError(t, bus.Close())
}

func TestEventBus_PublishAfterCloseFails(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewXPGrantedEvent("g1", "u1", 1, 1, "message"))
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestEventBus_MetricsCountPublishes(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventXPGranted, func(shared.Event) error { return nil }))
	require.NoError(t, bus.Publish(shared.NewXPGrantedEvent("g1", "u1", 1, 1, "message")))
	require.NoError(t, bus.Publish(shared.NewXPGrantedEvent("g1", "u2", 1, 1, "message")))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
	assert.Equal(t, 1.0, snap.HandlerSuccessRate)
}
