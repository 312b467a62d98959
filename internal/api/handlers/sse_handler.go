package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/careslot/internal/domain/entities"
	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
)

const sseHeartbeatInterval = 30 * time.Second

// SlotUpdate is the public view of an appointment event. It names the slots
// that changed hands and never the requester.
type SlotUpdate struct {
	EventType      entities.AppointmentEventType `json:"eventType"`
	ProviderID     string                        `json:"providerId"`
	Date           string                        `json:"date"`
	TimeSlotID     string                        `json:"timeSlotId"`
	PreviousDate   string                        `json:"previousDate,omitempty"`
	PreviousSlotID string                        `json:"previousSlotId,omitempty"`
	Status         entities.AppointmentStatus    `json:"status"`
	Timestamp      time.Time                     `json:"timestamp"`
}

func slotUpdateFrom(event *entities.AppointmentEvent) SlotUpdate {
	return SlotUpdate{
		EventType:      event.EventType,
		ProviderID:     event.ProviderID,
		Date:           event.Date,
		TimeSlotID:     event.TimeSlotID,
		PreviousDate:   event.PreviousDate,
		PreviousSlotID: event.PreviousSlotID,
		Status:         event.Status,
		Timestamp:      event.Timestamp,
	}
}

// SSEHandler streams slot occupancy changes as Server-Sent Events
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration

	mu      sync.RWMutex
	clients map[string]int // channel -> connected clients
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: sseHeartbeatInterval,
		clients:   make(map[string]int),
	}
}

// StreamProviderUpdates handles GET /api/stream/providers/{id}
func (h *SSEHandler) StreamProviderUpdates(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	logger := observability.LoggerFromContext(r.Context())
	channel := providers.GetProviderChannel(providerID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	h.register(channel)
	defer h.unregister(channel)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.sendEvent(w, "connected", map[string]any{
		"providerId": providerID,
		"timestamp":  time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("provider_id", providerID).Msg("client disconnected from provider stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]any{"timestamp": time.Now().UTC()})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			h.sendEvent(w, string(event.EventType), slotUpdateFrom(event))
			flusher.Flush()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *SSEHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}

// Stats handles GET /api/stream/stats
func (h *SSEHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int{"connected_clients": h.ClientCount()})
}

func (h *SSEHandler) register(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[channel]++
}

func (h *SSEHandler) unregister(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[channel]--; h.clients[channel] <= 0 {
		delete(h.clients, channel)
	}
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Msg("failed to marshal event data")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
