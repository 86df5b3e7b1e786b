package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"action":"pointer","pointer":"move","x":12.5,"y":40}`))
	require.NoError(t, err)
	assert.Equal(t, Command{Action: ActionPointer, Pointer: PointerMove, X: 12.5, Y: 40}, cmd)

	_, err = ParseCommand([]byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = ParseCommand([]byte(`{"action":`))
	assert.Error(t, err)
}

func TestCommand_Apply(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, Command{Action: ActionAdd, Kind: KindChair}.Apply(s))
	require.Len(t, s.Furniture(), 1)
	id := s.SelectedID()

	require.NoError(t, Command{Action: ActionRotate}.Apply(s))
	assert.Equal(t, 45, s.Furniture()[0].Rotation)

	require.NoError(t, Command{Action: ActionSelect}.Apply(s))
	assert.Equal(t, "", s.SelectedID())
	assert.ErrorIs(t, Command{Action: ActionRotate}.Apply(s), ErrNoSelection)

	require.NoError(t, Command{Action: ActionSelect, ID: id}.Apply(s))
	require.NoError(t, Command{Action: ActionDelete}.Apply(s))
	assert.Empty(t, s.Furniture())

	room := RoomConfig{Width: 300, Height: 300, Type: RoomOffice, Style: StyleMinimalism}
	require.NoError(t, Command{Action: ActionRoom, Room: &room}.Apply(s))
	assert.Equal(t, room, s.Config())
	assert.ErrorIs(t, Command{Action: ActionRoom}.Apply(s), ErrInvalidConfiguration)

	assert.ErrorIs(t, Command{Action: ActionAdd, Kind: "piano"}.Apply(s), ErrUnknownKind)
	assert.ErrorIs(t, Command{Action: "teleport"}.Apply(s), ErrUnknownCommand)
}

func TestCommand_Replace(t *testing.T) {
	s := newTestSession(t)

	items := []FurnitureItem{chairAt("a", 100, 100), {ID: "b", Kind: KindBed, X: 250, Y: 200, Width: 180, Height: 200, Color: "#4B5563"}}
	require.NoError(t, Command{Action: ActionReplace, Furniture: items}.Apply(s))
	assert.Equal(t, items, s.Furniture())

	bad := []FurnitureItem{{ID: "x", Kind: "piano"}}
	assert.ErrorIs(t, Command{Action: ActionReplace, Furniture: bad}.Apply(s), ErrUnknownKind)
	assert.Equal(t, items, s.Furniture(), "rejected replace leaves the list alone")

	dup := []FurnitureItem{chairAt("a", 100, 100), chairAt("a", 300, 300)}
	assert.ErrorIs(t, Command{Action: ActionReplace, Furniture: dup}.Apply(s), ErrInvalidConfiguration)
	assert.Equal(t, items, s.Furniture())
}

func TestApplyPointer(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.ReplaceFurniture([]FurnitureItem{chairAt("c", 250, 200)}))

	require.NoError(t, ApplyPointer(s, PointerDown, Point{X: 500, Y: 350}))
	assert.Equal(t, StateDragging, s.State())

	require.NoError(t, ApplyPointer(s, PointerLeave, Point{}))
	assert.Equal(t, StateSelected, s.State())

	require.NoError(t, ApplyPointer(s, PointerUp, Point{}))
	require.NoError(t, ApplyPointer(s, PointerMove, Point{X: 10, Y: 10}))
	assert.ErrorIs(t, ApplyPointer(s, "wheel", Point{}), ErrUnknownCommand)
}
