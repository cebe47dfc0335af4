package service

import (
	"encoding/json"

	"go.uber.org/zap"
)

// EventBus publishes domain events. Publishing is fire-and-forget: a failed
// publish must never fail the operation that triggered it.
type EventBus interface {
	Publish(topic string, data []byte) error
}

func publishEvent(bus EventBus, log *zap.Logger, topic string, event any) {
	if bus == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error("marshal event", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := bus.Publish(topic, data); err != nil {
		log.Warn("publish event", zap.String("topic", topic), zap.Error(err))
	}
}
