package services

import (
	"context"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"

	"match-ticketing/utils"
)

// Notifier publishes best-effort status updates to per-user PubNub
// channels. Polling stays the authoritative mechanism; a lost publish is
// logged and forgotten. The circuit breaker keeps a flapping PubNub from
// stalling request paths.
type Notifier struct {
	pn      *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

// NewNotifier accepts a nil client, which turns every publish into a no-op.
func NewNotifier(pn *pubnub.PubNub) *Notifier {
	return &Notifier{
		pn:      pn,
		breaker: utils.NewCircuitBreaker("pubnub"),
	}
}

func (n *Notifier) NotifyPromoted(userID, matchID string) {
	n.publish(userID, map[string]any{
		"type":     "queue_status",
		"status":   "processing",
		"match_id": matchID,
		"message":  "It's your turn! You can now book your tickets.",
	})
}

func (n *Notifier) NotifyExpired(userID, matchID string) {
	n.publish(userID, map[string]any{
		"type":     "queue_status",
		"status":   "expired",
		"match_id": matchID,
		"message":  "Your booking window has elapsed. Please rejoin the queue.",
	})
}

func (n *Notifier) NotifyBooked(userID, matchID string, quantity int, reference string) {
	n.publish(userID, map[string]any{
		"type":      "booking_confirmed",
		"match_id":  matchID,
		"quantity":  quantity,
		"reference": reference,
	})
}

func (n *Notifier) publish(userID string, payload map[string]any) {
	if n.pn == nil {
		return
	}

	channel := fmt.Sprintf("user-%s", userID)
	_, err := n.breaker.Execute(context.Background(), func() (any, error) {
		_, _, err := n.pn.Publish().
			Channel(channel).
			Message(payload).
			Execute()
		return nil, err
	})
	if err != nil {
		slog.Warn("notify publish failed", "channel", channel, "error", err)
	}
}
