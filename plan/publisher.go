package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher publishes session layouts and selection changes to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool

	mu            sync.Mutex
	lastLayout    []byte
	lastSelection *string
}

// layoutBody is the part of a layout message compared between publishes
type layoutBody struct {
	Room       RoomConfig      `json:"room"`
	Furniture  []FurnitureItem `json:"furniture"`
	Coverage   float64         `json:"coverage"`
	Collisions []Collision     `json:"collisions"`
}

type layoutMessage struct {
	layoutBody
	Version   uint64 `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

type selectionMessage struct {
	SelectedID string `json:"selectedId"`
	Timestamp  int64  `json:"timestamp"`
}

// NewPublisher creates a layout publisher.
// If client is nil, publishing is disabled (for testing)
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "roomplan"
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // fire and forget
		retain:        true, // late subscribers get the current layout
	}
}

// LayoutTopic is where full layouts are published
func (p *Publisher) LayoutTopic() string {
	return p.publishPrefix + "/layout"
}

// SelectionTopic is where selection changes are published
func (p *Publisher) SelectionTopic() string {
	return p.publishPrefix + "/selection"
}

// PublishLayout publishes the snapshot's layout when the room or furniture
// changed since the last publish, and its selection when that changed.
// Hover and drag flags alone never cause a publish.
func (p *Publisher) PublishLayout(snap Snapshot) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	body := layoutBody{
		Room:       snap.Config,
		Furniture:  snap.Furniture,
		Coverage:   Coverage(snap.Config, snap.Furniture),
		Collisions: Collisions(snap.Furniture),
	}
	if body.Furniture == nil {
		body.Furniture = []FurnitureItem{}
	}
	if body.Collisions == nil {
		body.Collisions = []Collision{}
	}
	key, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling layout: %w", err)
	}

	p.mu.Lock()
	layoutChanged := !bytes.Equal(key, p.lastLayout)
	selectionChanged := p.lastSelection == nil || *p.lastSelection != snap.SelectedID
	p.mu.Unlock()

	now := time.Now().Unix()
	if layoutChanged {
		msg := layoutMessage{layoutBody: body, Version: snap.Version, Timestamp: now}
		if err := p.publish(p.LayoutTopic(), msg); err != nil {
			return err
		}
		p.mu.Lock()
		p.lastLayout = key
		p.mu.Unlock()
		logger().Debugw("published layout", "version", snap.Version, "items", len(snap.Furniture))
	}

	if selectionChanged {
		msg := selectionMessage{SelectedID: snap.SelectedID, Timestamp: now}
		if err := p.publish(p.SelectionTopic(), msg); err != nil {
			return err
		}
		sel := snap.SelectedID
		p.mu.Lock()
		p.lastSelection = &sel
		p.mu.Unlock()
	}
	return nil
}

func (p *Publisher) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", topic, err)
	}
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
