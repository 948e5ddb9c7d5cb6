package report

import (
	"encoding/json"

	"platewatch/internal/logger"
	"platewatch/internal/model"
	"platewatch/internal/service/mqtt"
)

// Message is the JSON envelope pushed to viewers and the broker.
type Message struct {
	Type     string         `json:"type"`
	RunID    string         `json:"run_id"`
	Target   string         `json:"target"`
	Decision model.Decision `json:"decision"`
}

func encode(runID, target string, d model.Decision) ([]byte, error) {
	return json.Marshal(Message{Type: "decision", RunID: runID, Target: target, Decision: d})
}

// Broadcaster is implemented by the websocket hub.
type Broadcaster interface {
	Broadcast(message []byte) bool
}

// HubReporter pushes decisions to websocket viewers.
type HubReporter struct {
	hub    Broadcaster
	runID  string
	target string
	logger *logger.Logger
}

func NewHubReporter(hub Broadcaster, runID, target string, logger *logger.Logger) *HubReporter {
	return &HubReporter{hub: hub, runID: runID, target: target, logger: logger}
}

func (r *HubReporter) Report(d model.Decision) {
	msg, err := encode(r.runID, r.target, d)
	if err != nil {
		r.logger.Error("Failed to encode decision: %v", err)
		return
	}
	r.hub.Broadcast(msg)
}

// MQTTReporter publishes decisions to the broker.
type MQTTReporter struct {
	publisher mqtt.Publisher
	topic     string
	runID     string
	target    string
	logger    *logger.Logger
}

func NewMQTTReporter(publisher mqtt.Publisher, topic, runID, target string, logger *logger.Logger) *MQTTReporter {
	return &MQTTReporter{publisher: publisher, topic: topic, runID: runID, target: target, logger: logger}
}

func (r *MQTTReporter) Report(d model.Decision) {
	msg, err := encode(r.runID, r.target, d)
	if err != nil {
		r.logger.Error("Failed to encode decision: %v", err)
		return
	}
	if err := r.publisher.Publish(r.topic, msg); err != nil {
		r.logger.Warning("Failed to publish decision: %v", err)
	}
}
