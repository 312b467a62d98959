package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/careslot/internal/api/handlers"
	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
)

// fakeEventBus delivers published events to in-process subscribers
type fakeEventBus struct {
	mu           sync.Mutex
	subscribers  map[string][]chan *entities.AppointmentEvent
	subscribeErr error
}

func newFakeEventBus() *fakeEventBus {
	return &fakeEventBus{subscribers: make(map[string][]chan *entities.AppointmentEvent)}
}

func (b *fakeEventBus) Publish(ctx context.Context, channel string, event *entities.AppointmentEvent) error {
	b.mu.Lock()
	subs := append([]chan *entities.AppointmentEvent(nil), b.subscribers[channel]...)
	b.mu.Unlock()
	for _, ch := range subs {
		ch <- event
	}
	return nil
}

func (b *fakeEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AppointmentEvent, error) {
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *entities.AppointmentEvent, 10)
	b.subscribers[channel] = append(b.subscribers[channel], ch)
	return ch, nil
}

func (b *fakeEventBus) subscriberCount(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[channel])
}

func (b *fakeEventBus) Close() error { return nil }

func TestSSEHandler_StreamProviderUpdates(t *testing.T) {
	bus := newFakeEventBus()
	handler := handlers.NewSSEHandler(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream/providers/p1", nil).WithContext(ctx)
	req.SetPathValue("id", "p1")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.StreamProviderUpdates(w, req)
		close(done)
	}()

	channel := providers.GetProviderChannel("p1")
	require.Eventually(t, func() bool { return bus.subscriberCount(channel) == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return handler.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	event := entities.NewAppointmentEvent(entities.AppointmentEventBooked, &entities.Appointment{
		ID: "a1", ProviderID: "p1", RequesterID: "user-secret", Date: "2025-01-10", TimeSlotID: "s1",
		Status: entities.AppointmentStatusScheduled,
	})
	require.NoError(t, bus.Publish(context.Background(), channel, event))

	// Give the handler a moment to write the event before disconnecting.
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after cancel")
	}

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, "event: appointment.booked\n")
	assert.Contains(t, body, `"timeSlotId":"s1"`)
	assert.NotContains(t, body, "user-secret")
	assert.Equal(t, 0, handler.ClientCount())
}

func TestSSEHandler_StreamProviderUpdates_Errors(t *testing.T) {
	t.Run("missing provider id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.NewSSEHandler(newFakeEventBus()).StreamProviderUpdates(w, httptest.NewRequest(http.MethodGet, "/api/stream/providers/", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("subscribe failure", func(t *testing.T) {
		bus := newFakeEventBus()
		bus.subscribeErr = errors.New("redis down")

		req := httptest.NewRequest(http.MethodGet, "/api/stream/providers/p1", nil)
		req.SetPathValue("id", "p1")
		w := httptest.NewRecorder()
		handlers.NewSSEHandler(bus).StreamProviderUpdates(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
