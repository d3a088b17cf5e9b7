// Package push implements best-effort out-of-band notification delivery for
// chat messages whose recipient holds no live connection. Per-token failures
// are independent; the caller only ever sees an aggregate result, never an
// error. An unconfigured backend degrades to a logged no-op.
package push

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/barnir16/PawfectPal-sub000/internal/domain"
	"github.com/barnir16/PawfectPal-sub000/internal/services"
)

// ErrStaleToken marks a send failure caused by a registration token the
// backend no longer recognizes. The dispatcher deactivates such tokens so
// they stop being tried.
var ErrStaleToken = errors.New("stale notification token")

// Sender delivers one notification to one device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// TokenSource lists a user's active device tokens.
type TokenSource interface {
	ListActive(ctx context.Context, userID string) ([]domain.NotificationToken, error)
}

// TokenSink deactivates tokens reported stale by the backend.
type TokenSink interface {
	Deactivate(ctx context.Context, token string) error
}

// Result aggregates one Notify call. Sent is false when the backend is not
// configured or the conversation has no resolvable recipient.
type Result struct {
	Sent      bool
	Succeeded int
	Failed    int
}

var pushSends = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "push_notification_sends_total",
		Help: "Per-token push notification outcomes.",
	},
	[]string{"outcome"}, // "ok" | "failed" | "stale"
)

func init() {
	prometheus.MustRegister(pushSends)
}

// Dispatcher fans a message preview out to the recipient's devices.
type Dispatcher struct {
	Sender Sender      // nil means unconfigured: Notify is a no-op
	Tokens TokenSource // required
	Sink   TokenSink   // optional stale-token cleanup

	// PreviewRunes caps the notification body; longer bodies are truncated
	// and suffixed with "...".
	PreviewRunes int

	Log zerolog.Logger
}

// Notify pushes a preview of msg to every active token of the conversation
// party who is not the sender. The push title is the sender's display name.
// Notify never returns an error: failures are counted, logged, and folded
// into the Result.
func (d *Dispatcher) Notify(ctx context.Context, msg *domain.Message, conv *domain.Conversation, senderName string) Result {
	if d.Sender == nil {
		d.Log.Warn().Str("message_id", msg.ID).Msg("push backend not configured, notification skipped")
		return Result{}
	}

	recipient := services.Recipient(conv, msg.SenderID)
	if recipient == "" {
		// Unassigned request and the owner is the sender: nobody to notify yet.
		return Result{}
	}

	tokens, err := d.Tokens.ListActive(ctx, recipient)
	if err != nil {
		d.Log.Error().Err(err).Str("user_id", recipient).Msg("listing notification tokens failed")
		return Result{}
	}
	if len(tokens) == 0 {
		return Result{}
	}

	body := d.preview(msg.Body)
	data := map[string]string{
		"conversation_id": conv.ID,
		"message_id":      msg.ID,
		"sender_id":       msg.SenderID,
	}

	res := Result{Sent: true}
	for _, t := range tokens {
		err := d.Sender.Send(ctx, t.Token, senderName, body, data)
		switch {
		case err == nil:
			res.Succeeded++
			pushSends.WithLabelValues("ok").Inc()
		case errors.Is(err, ErrStaleToken):
			res.Failed++
			pushSends.WithLabelValues("stale").Inc()
			if d.Sink != nil {
				if derr := d.Sink.Deactivate(ctx, t.Token); derr != nil {
					d.Log.Warn().Err(derr).Msg("deactivating stale token failed")
				}
			}
		default:
			res.Failed++
			pushSends.WithLabelValues("failed").Inc()
			d.Log.Warn().Err(err).Str("user_id", recipient).Msg("push send failed")
		}
	}
	return res
}

// preview truncates body to PreviewRunes runes, appending "..." when cut.
func (d *Dispatcher) preview(body string) string {
	max := d.PreviewRunes
	if max <= 0 {
		max = 100
	}
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	return string(runes[:max]) + "..."
}
