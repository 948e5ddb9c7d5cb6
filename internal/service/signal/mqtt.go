package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"platewatch/internal/service/mqtt"
)

// MQTTSink publishes relay state as {"on":bool}.
type MQTTSink struct {
	publisher mqtt.Publisher
	topic     string
}

func NewMQTTSink(publisher mqtt.Publisher, topic string) *MQTTSink {
	return &MQTTSink{publisher: publisher, topic: topic}
}

func (s *MQTTSink) Set(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(struct {
		On bool `json:"on"`
	}{on})
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(s.topic, payload); err != nil {
		return fmt.Errorf("publish relay state: %w", err)
	}
	return nil
}
