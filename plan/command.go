package plan

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned for commands with an unrecognized action
var ErrUnknownCommand = errors.New("unknown command")

// Command actions accepted from remote clients (MQTT, websocket)
const (
	ActionAdd     = "add"
	ActionSelect  = "select"
	ActionRotate  = "rotate"
	ActionDelete  = "delete"
	ActionRoom    = "room"
	ActionReplace = "replace"
	ActionPointer = "pointer"
)

// Pointer event types carried by ActionPointer
const (
	PointerDown  = "down"
	PointerMove  = "move"
	PointerUp    = "up"
	PointerLeave = "leave"
)

// Command is a remote request to change a design session
type Command struct {
	Action    string          `json:"action"`
	Kind      FurnitureKind   `json:"kind,omitempty"`
	ID        string          `json:"id,omitempty"`
	Room      *RoomConfig     `json:"room,omitempty"`
	Furniture []FurnitureItem `json:"furniture,omitempty"`
	Pointer   string          `json:"pointer,omitempty"`
	X         float64         `json:"x,omitempty"`
	Y         float64         `json:"y,omitempty"`
}

// ParseCommand decodes a JSON command
func ParseCommand(payload []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(payload, &c); err != nil {
		return Command{}, fmt.Errorf("parsing command: %w", err)
	}
	if c.Action == "" {
		return Command{}, fmt.Errorf("command without action: %w", ErrUnknownCommand)
	}
	return c, nil
}

// Apply runs the command against a session
func (c Command) Apply(s *Session) error {
	switch c.Action {
	case ActionAdd:
		_, err := s.AddFurniture(c.Kind)
		return err
	case ActionSelect:
		return s.Select(c.ID)
	case ActionRotate:
		_, err := s.RotateSelected()
		return err
	case ActionDelete:
		return s.DeleteSelected()
	case ActionRoom:
		if c.Room == nil {
			return fmt.Errorf("room command without room: %w", ErrInvalidConfiguration)
		}
		return s.SetConfig(*c.Room)
	case ActionReplace:
		return s.ReplaceFurniture(c.Furniture)
	case ActionPointer:
		return ApplyPointer(s, c.Pointer, Point{X: c.X, Y: c.Y})
	default:
		return fmt.Errorf("%q: %w", c.Action, ErrUnknownCommand)
	}
}

// ApplyPointer dispatches a pointer event by type name
func ApplyPointer(s *Session, kind string, screen Point) error {
	switch kind {
	case PointerDown:
		s.PointerDown(screen)
	case PointerMove:
		s.PointerMove(screen)
	case PointerUp:
		s.PointerUp()
	case PointerLeave:
		s.PointerLeave()
	default:
		return fmt.Errorf("pointer event %q: %w", kind, ErrUnknownCommand)
	}
	return nil
}
