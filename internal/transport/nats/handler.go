package nats

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"pocketbank/internal/model"
	"pocketbank/internal/service"
)

// Handler subscribes to command topics. allowances.process is the
// cron-like external trigger: any scheduler can publish an empty message to
// run a payout pass.
type Handler struct {
	allowances *service.AllowanceService
	nc         *nats.Conn
	log        *zap.Logger
	subs       []*nats.Subscription
}

func NewHandler(allowances *service.AllowanceService, nc *nats.Conn, log *zap.Logger) *Handler {
	return &Handler{allowances: allowances, nc: nc, log: log}
}

// Start subscribes and blocks until ctx is cancelled.
func (h *Handler) Start(ctx context.Context) error {
	sub, err := h.nc.QueueSubscribe(model.TopicProcessAllowances, "scheduler_group", func(m *nats.Msg) {
		now := time.Now().UTC()
		if err := h.allowances.ProcessDue(ctx, now); err != nil {
			h.log.Error("nats: allowance processing failed", zap.Error(err))
			return
		}
		h.log.Info("nats: allowance processing finished", zap.Time("as_of", now))
	})
	if err != nil {
		return err
	}
	h.subs = append(h.subs, sub)

	h.log.Info("NATS command handler is running")

	<-ctx.Done()
	h.log.Info("NATS command handler shutting down, draining subscriptions")
	for _, s := range h.subs {
		_ = s.Drain()
	}
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	for _, s := range h.subs {
		_ = s.Unsubscribe()
	}
	return nil
}
