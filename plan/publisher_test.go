package plan

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedMock() *MockClient {
	mc := NewMockClient()
	mc.SetConnected(true)
	return mc
}

func TestPublisher_Topics(t *testing.T) {
	p := NewPublisher(nil, "home/plan")
	assert.Equal(t, "home/plan/layout", p.LayoutTopic())
	assert.Equal(t, "home/plan/selection", p.SelectionTopic())

	p = NewPublisher(nil, "")
	assert.Equal(t, "roomplan/layout", p.LayoutTopic())
}

func TestPublisher_NotConnected(t *testing.T) {
	assert.EqualError(t, NewPublisher(nil, "x").PublishLayout(Snapshot{}), "MQTT client not connected")

	mc := NewMockClient()
	err := NewPublisher(mc, "x").PublishLayout(Snapshot{Config: DefaultRoomConfig()})
	assert.Error(t, err)
	assert.Empty(t, mc.GetPublishedMessages())
}

func TestPublisher_PublishLayout(t *testing.T) {
	mc := connectedMock()
	p := NewPublisher(mc, "rp")

	snap := Snapshot{
		Config:     DefaultRoomConfig(),
		Furniture:  []FurnitureItem{chairAt("a", 250, 200), chairAt("b", 260, 200)},
		SelectedID: "a",
		Version:    7,
	}
	require.NoError(t, p.PublishLayout(snap))

	layouts := mc.MessagesOn("rp/layout")
	require.Len(t, layouts, 1)
	assert.True(t, layouts[0].Retain)
	assert.Equal(t, byte(0), layouts[0].QoS)

	var msg struct {
		Room       RoomConfig      `json:"room"`
		Furniture  []FurnitureItem `json:"furniture"`
		Coverage   float64         `json:"coverage"`
		Collisions []Collision     `json:"collisions"`
		Version    uint64          `json:"version"`
		Timestamp  int64           `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(layouts[0].Payload, &msg))
	assert.Equal(t, snap.Config, msg.Room)
	assert.Equal(t, snap.Furniture, msg.Furniture)
	assert.Equal(t, []Collision{{A: "a", B: "b"}}, msg.Collisions)
	assert.InDelta(t, 7200.0/200000, msg.Coverage, 1e-9)
	assert.Equal(t, uint64(7), msg.Version)
	assert.Positive(t, msg.Timestamp)

	selections := mc.MessagesOn("rp/selection")
	require.Len(t, selections, 1)
	var sel map[string]any
	require.NoError(t, json.Unmarshal(selections[0].Payload, &sel))
	assert.Equal(t, "a", sel["selectedId"])
}

func TestPublisher_Deduplicates(t *testing.T) {
	mc := connectedMock()
	p := NewPublisher(mc, "rp")

	snap := Snapshot{Config: DefaultRoomConfig(), Furniture: []FurnitureItem{chairAt("a", 250, 200)}, Version: 1}
	require.NoError(t, p.PublishLayout(snap))
	require.Len(t, mc.GetPublishedMessages(), 2)

	// hover, drag flag and version alone are not layout changes
	snap.HoveredID = "a"
	snap.Dragging = true
	snap.Version = 2
	require.NoError(t, p.PublishLayout(snap))
	assert.Len(t, mc.GetPublishedMessages(), 2)

	// selection only
	snap.SelectedID = "a"
	require.NoError(t, p.PublishLayout(snap))
	assert.Len(t, mc.MessagesOn("rp/layout"), 1)
	assert.Len(t, mc.MessagesOn("rp/selection"), 2)

	// furniture moved
	snap.Furniture = []FurnitureItem{chairAt("a", 100, 100)}
	require.NoError(t, p.PublishLayout(snap))
	assert.Len(t, mc.MessagesOn("rp/layout"), 2)
	assert.Len(t, mc.MessagesOn("rp/selection"), 2)
}

func TestPublisher_EmptyLayoutUsesArrays(t *testing.T) {
	mc := connectedMock()
	require.NoError(t, NewPublisher(mc, "rp").PublishLayout(Snapshot{Config: DefaultRoomConfig()}))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(mc.MessagesOn("rp/layout")[0].Payload, &raw))
	assert.Equal(t, []any{}, raw["furniture"])
	assert.Equal(t, []any{}, raw["collisions"])
}

func TestPublisher_PublishErrorRetriesNextTime(t *testing.T) {
	mc := connectedMock()
	p := NewPublisher(mc, "rp")
	snap := Snapshot{Config: DefaultRoomConfig(), Furniture: []FurnitureItem{chairAt("a", 250, 200)}}

	mc.SetPublishError(errors.New("broker gone"))
	assert.ErrorContains(t, p.PublishLayout(snap), "broker gone")

	mc.SetPublishError(nil)
	require.NoError(t, p.PublishLayout(snap))
	assert.Len(t, mc.MessagesOn("rp/layout"), 1, "failed publish is not remembered")
}

func TestPublisher_SetQoSAndRetain(t *testing.T) {
	mc := connectedMock()
	p := NewPublisher(mc, "rp")
	p.SetQoS(1)
	p.SetQoS(7) // ignored
	p.SetRetain(false)

	require.NoError(t, p.PublishLayout(Snapshot{Config: DefaultRoomConfig()}))
	msg := mc.MessagesOn("rp/layout")[0]
	assert.Equal(t, byte(1), msg.QoS)
	assert.False(t, msg.Retain)
}

func TestPublisher_WiredToSession(t *testing.T) {
	mc := connectedMock()
	s := newTestSession(t)
	s.SetPublisher(NewPublisher(mc, "rp"))

	_, err := s.AddFurniture(KindBed)
	require.NoError(t, err)
	_, err = s.RotateSelected()
	require.NoError(t, err)

	assert.Len(t, mc.MessagesOn("rp/layout"), 2)
	assert.Len(t, mc.MessagesOn("rp/selection"), 1)
}
