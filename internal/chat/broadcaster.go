package chat

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/barnir16/PawfectPal-sub000/internal/services"
)

// BroadcastResult reports how a fan-out went, per recipient. Partial delivery
// is expected under transient failures; the caller sees it as data instead of
// digging through logs.
type BroadcastResult struct {
	Delivered int
	Failed    int
}

// Broadcaster fans a frame out to every live connection of a conversation,
// optionally excluding one user (typically the sender, who gets a separate
// acknowledgment instead of the broadcast copy).
//
// Delivery is best effort: no retry, no queueing, no cross-recipient ordering
// guarantee. A failed send deregisters that one connection and the fan-out
// continues.
type Broadcaster struct {
	reg *Registry
	log zerolog.Logger
}

// NewBroadcaster constructs a Broadcaster over the given registry.
func NewBroadcaster(reg *Registry, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{reg: reg, log: log.With().Str("component", "broadcaster").Logger()}
}

// Broadcast serializes event once and sends it to every member of the
// conversation whose owning user is not excludeUserID ("" excludes nobody).
func (b *Broadcaster) Broadcast(conversationID string, event any, excludeUserID string) BroadcastResult {
	var res BroadcastResult

	payload, err := json.Marshal(event)
	if err != nil {
		// Programming error in a frame type; nothing sensible to deliver.
		b.log.Error().Err(err).Str("conversation_id", conversationID).Msg("unencodable event")
		return res
	}

	for _, c := range b.reg.MembersOf(conversationID) {
		if excludeUserID != "" && c.UserID == excludeUserID {
			continue
		}
		if err := c.Send(payload); err != nil {
			// Self-healing: a dead socket leaves the registry immediately.
			b.log.Debug().Err(err).
				Str("conversation_id", conversationID).
				Str("connection_id", c.ID).
				Msg("send failed, unregistering connection")
			b.reg.Unregister(c)
			c.Close(websocket.CloseGoingAway, "send failed")
			res.Failed++
			broadcastDeliveries.WithLabelValues("failed").Inc()
			continue
		}
		res.Delivered++
		broadcastDeliveries.WithLabelValues("delivered").Inc()
	}
	return res
}

// NotifyStatus implements services.StatusNotifier by wrapping the transition
// in a message_status frame and broadcasting it to the conversation minus
// the acting user.
func (b *Broadcaster) NotifyStatus(conversationID string, ev services.StatusEvent, excludeUserID string) {
	b.Broadcast(conversationID, NewStatus(ev), excludeUserID)
}
