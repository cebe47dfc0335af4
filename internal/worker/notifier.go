package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"pocketbank/internal/model"
	"pocketbank/internal/service"
)

// Notifier consumes domain events from the bus and persists them as user
// notifications. It is the only writer of the notifications table: core
// services never perform notification I/O themselves.
type Notifier struct {
	store    service.NotificationStore
	natsConn *nats.Conn
	log      *zap.Logger
	subs     []*nats.Subscription
}

func NewNotifier(store service.NotificationStore, nc *nats.Conn, log *zap.Logger) *Notifier {
	return &Notifier{store: store, natsConn: nc, log: log}
}

// Start queue-subscribes to the event topics and blocks until ctx is
// cancelled. QueueSubscribe keeps multiple instances from writing the same
// notification twice.
func (n *Notifier) Start(ctx context.Context) error {
	topics := []string{
		model.TopicTransactionCreated,
		model.TopicTransactionApproved,
		model.TopicTransactionDeclined,
		model.TopicGoalReached,
	}
	for _, topic := range topics {
		topic := topic
		sub, err := n.natsConn.QueueSubscribe(topic, "notifier_group", func(m *nats.Msg) {
			n.handle(ctx, topic, m.Data)
		})
		if err != nil {
			return fmt.Errorf("notifier: subscribe %s: %w", topic, err)
		}
		n.subs = append(n.subs, sub)
	}

	n.log.Info("notifier is running")
	<-ctx.Done()

	n.log.Info("notifier shutting down, draining subscriptions")
	for _, s := range n.subs {
		_ = s.Drain()
	}
	return nil
}

func (n *Notifier) Stop(ctx context.Context) error {
	for _, s := range n.subs {
		_ = s.Unsubscribe()
	}
	return nil
}

func (n *Notifier) handle(ctx context.Context, topic string, data []byte) {
	notification, err := translate(topic, data)
	if err != nil {
		n.log.Error("notifier: bad event payload", zap.String("topic", topic), zap.Error(err))
		return
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := n.store.Insert(ctx, notification); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		n.log.Error("notifier: failed to persist notification",
			zap.String("topic", topic),
			zap.String("user_id", notification.UserID.String()),
			zap.Error(err))
		return
	}
	n.log.Info("notification stored",
		zap.String("kind", string(notification.Kind)),
		zap.String("user_id", notification.UserID.String()))
}

// translate turns an event payload into the notification the user sees.
func translate(topic string, data []byte) (*model.Notification, error) {
	switch topic {
	case model.TopicGoalReached:
		var ev model.GoalEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return newNotification(ev.UserID, model.KindGoalReached,
			"Savings Goal Reached!",
			fmt.Sprintf("Congratulations! You've reached your savings goal: %s", ev.Name),
			map[string]any{"goal_id": ev.GoalID.String()},
			ev.CreatedAt), nil
	}

	var ev model.TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	meta := map[string]any{"transaction_id": ev.TransactionID.String()}

	switch topic {
	case model.TopicTransactionCreated:
		return newNotification(ev.UserID, model.KindTransactionCreated,
			"New Transaction",
			fmt.Sprintf("You have a new %s transaction of $%s", strings.ToLower(string(ev.Type)), ev.Amount),
			meta, ev.CreatedAt), nil
	case model.TopicTransactionApproved:
		return newNotification(ev.UserID, model.KindTransactionApproved,
			"Transaction Approved",
			fmt.Sprintf("Your transaction of $%s has been approved", ev.Amount),
			meta, ev.CreatedAt), nil
	case model.TopicTransactionDeclined:
		body := fmt.Sprintf("Your transaction of $%s has been declined", ev.Amount)
		if ev.Reason != "" {
			body += ": " + ev.Reason
		}
		return newNotification(ev.UserID, model.KindTransactionDeclined,
			"Transaction Declined", body, meta, ev.CreatedAt), nil
	}
	return nil, fmt.Errorf("unknown topic %q", topic)
}

func newNotification(userID uuid.UUID, kind model.NotificationKind, title, body string, meta map[string]any, at time.Time) *model.Notification {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return &model.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		Metadata:  meta,
		CreatedAt: at,
	}
}
