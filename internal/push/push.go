// Package push delivers Web Push notifications to subscribed browsers.
package push

import (
	"context"
	"encoding/json"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/chamber/internal/logger"
	"github.com/chamber/internal/model"
)

// SubscriptionSource lists a user's stored browser subscriptions and drops
// the dead ones.
type SubscriptionSource interface {
	ListByUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	Delete(ctx context.Context, endpoint string) error
}

type notifyPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier sends notifications over the Web Push protocol with VAPID auth.
type Notifier struct {
	subs    SubscriptionSource
	keys    *VAPIDKeys
	subject string
}

func NewNotifier(subs SubscriptionSource, keys *VAPIDKeys, subject string) *Notifier {
	return &Notifier{subs: subs, keys: keys, subject: subject}
}

// Notify pushes to every subscription the user has. Endpoints answering
// 404/410 are gone and get pruned.
func (n *Notifier) Notify(ctx context.Context, userID, title, body string, data map[string]string) {
	subs, err := n.subs.ListByUser(ctx, userID)
	if err != nil {
		logger.Errorf("push: list subscriptions user=%s: %v", userID, err)
		return
	}
	if len(subs) == 0 {
		return
	}
	payload, err := json.Marshal(notifyPayload{Title: title, Body: body, Data: data})
	if err != nil {
		logger.Errorf("push: marshal payload: %v", err)
		return
	}
	for _, s := range subs {
		sub := &webpush.Subscription{
			Endpoint: s.Endpoint,
			Keys:     webpush.Keys{P256dh: s.P256dh, Auth: s.Auth},
		}
		resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
			Subscriber:      n.subject,
			VAPIDPublicKey:  n.keys.PublicKey,
			VAPIDPrivateKey: n.keys.PrivateKey,
			TTL:             60,
		})
		if err != nil {
			logger.Errorf("push: send user=%s: %v", userID, err)
			continue
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			if err := n.subs.Delete(ctx, s.Endpoint); err != nil {
				logger.Errorf("push: prune endpoint: %v", err)
			}
		}
		resp.Body.Close()
	}
}
