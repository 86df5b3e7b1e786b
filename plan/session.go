package plan

import (
	"fmt"
	"sync"
)

// LayoutPublisher is notified with every new session snapshot, in version
// order. PublishLayout must not call back into the session.
type LayoutPublisher interface {
	PublishLayout(snap Snapshot) error
}

// Session is the single owner of a design session's state: room config,
// furniture list and selection. The furniture list is never mutated in place;
// every change installs a new slice, and every read returns a copy.
type Session struct {
	mu         sync.Mutex
	config     RoomConfig
	furniture  []FurnitureItem
	selectedID string
	engine     *Engine
	version    uint64

	// notifyMu is taken before mu is released so snapshots leave in
	// version order
	notifyMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[int]chan Snapshot
	nextSub     int
	publisher   LayoutPublisher
}

// NewSession creates a session for a validated room config
func NewSession(cfg RoomConfig, surface Surface) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := NewViewport(cfg, surface); err != nil {
		return nil, err
	}

	s := &Session{
		config:      cfg,
		furniture:   []FurnitureItem{},
		subscribers: make(map[int]chan Snapshot),
	}
	// Callbacks run while s.mu is held by the pointer methods below
	s.engine = NewEngine(surface, Callbacks{
		OnUpdateFurniture: func(items []FurnitureItem) {
			s.furniture = items
			s.version++
		},
		OnSelect: func(id string) {
			if id != s.selectedID {
				s.selectedID = id
				s.version++
			}
		},
	})
	return s, nil
}

// SetPublisher installs a publisher notified after each change
func (s *Session) SetPublisher(p LayoutPublisher) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.publisher = p
}

// Config returns the room config
func (s *Session) Config() RoomConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// SetConfig replaces the room config. Furniture positions are left as they
// are, even if they now fall outside the room.
func (s *Session) SetConfig(cfg RoomConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := NewViewport(cfg, s.engine.Surface()); err != nil {
		return err
	}
	s.mutate(func() bool {
		if s.config == cfg {
			return false
		}
		s.config = cfg
		return true
	})
	return nil
}

// Furniture returns a copy of the furniture list
func (s *Session) Furniture() []FurnitureItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.furniture)
}

// SelectedID returns the selected item ID, or ""
func (s *Session) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Snapshot returns a consistent copy of the observable state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Config:     s.config,
		Furniture:  cloneItems(s.furniture),
		SelectedID: s.selectedID,
		Dragging:   s.engine.Dragging(),
		HoveredID:  s.engine.HoveredID(),
		Version:    s.version,
	}
}

// AddFurniture places a new catalog item at the room center and selects it
func (s *Session) AddFurniture(kind FurnitureKind) (FurnitureItem, error) {
	if _, err := ParseFurnitureKind(string(kind)); err != nil {
		return FurnitureItem{}, err
	}
	var item FurnitureItem
	s.mutate(func() bool {
		item = NewFurnitureItem(kind, s.config)
		next := make([]FurnitureItem, 0, len(s.furniture)+1)
		next = append(next, s.furniture...)
		s.furniture = append(next, item)
		s.selectedID = item.ID
		return true
	})
	logger().Debugw("furniture added", "id", item.ID, "kind", kind)
	return item, nil
}

// DeleteSelected removes the selected item and clears the selection
func (s *Session) DeleteSelected() error {
	var err error
	s.mutate(func() bool {
		if s.selectedID == "" {
			err = ErrNoSelection
			return false
		}
		next := make([]FurnitureItem, 0, len(s.furniture))
		for _, it := range s.furniture {
			if it.ID != s.selectedID {
				next = append(next, it)
			}
		}
		s.furniture = next
		s.selectedID = ""
		s.engine.PointerUp()
		return true
	})
	return err
}

// RotateSelected turns the selected item by RotationStep degrees
func (s *Session) RotateSelected() (FurnitureItem, error) {
	var (
		rotated FurnitureItem
		err     error
	)
	s.mutate(func() bool {
		if s.selectedID == "" {
			err = ErrNoSelection
			return false
		}
		next, found := replaceItem(s.furniture, s.selectedID, func(it FurnitureItem) FurnitureItem {
			rotated = RotateItem(it)
			return rotated
		})
		if !found {
			err = fmt.Errorf("selected item %s: %w", s.selectedID, ErrNoSelection)
			return false
		}
		s.furniture = next
		return true
	})
	return rotated, err
}

// ReplaceFurniture installs a new furniture list after NormalizeFurniture
// against the current room. A rejected list leaves the session unchanged. The
// selection is cleared if the selected item is no longer present.
func (s *Session) ReplaceFurniture(items []FurnitureItem) error {
	var err error
	s.mutate(func() bool {
		var next []FurnitureItem
		next, err = NormalizeFurniture(items, s.config)
		if err != nil {
			return false
		}
		s.furniture = next
		if s.selectedID != "" && !containsID(s.furniture, s.selectedID) {
			s.selectedID = ""
			s.engine.PointerUp()
		}
		return true
	})
	return err
}

// Select sets the selection; "" clears it
func (s *Session) Select(id string) error {
	var err error
	s.mutate(func() bool {
		if id != "" && !containsID(s.furniture, id) {
			err = fmt.Errorf("item %s: %w", id, ErrNoSelection)
			return false
		}
		if id == s.selectedID {
			return false
		}
		s.selectedID = id
		if id == "" {
			s.engine.PointerUp()
		}
		return true
	})
	return err
}

// PointerDown forwards a pointer press (screen px) to the engine
func (s *Session) PointerDown(screen Point) {
	s.pointer(func(p Props) { s.engine.PointerDown(p, screen) })
}

// PointerMove forwards pointer motion (screen px) to the engine
func (s *Session) PointerMove(screen Point) {
	s.pointer(func(p Props) { s.engine.PointerMove(p, screen) })
}

// PointerUp ends any drag
func (s *Session) PointerUp() {
	s.pointer(func(Props) { s.engine.PointerUp() })
}

// PointerLeave ends any drag
func (s *Session) PointerLeave() {
	s.pointer(func(Props) { s.engine.PointerLeave() })
}

// State returns the engine's interaction state
func (s *Session) State() InteractionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.State(s.propsLocked())
}

// Render draws the current scene
func (s *Session) Render() (Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Render(s.propsLocked())
}

// subscriberBuffer is the number of undelivered snapshots kept per subscriber
const subscriberBuffer = 8

// Subscribe returns a channel receiving a snapshot after every change. A slow
// reader loses its oldest pending snapshots, never the latest one.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Session) propsLocked() Props {
	return Props{Config: s.config, Furniture: s.furniture, SelectedID: s.selectedID}
}

// pointer runs an engine event and notifies if any observable state moved
func (s *Session) pointer(fn func(Props)) {
	s.mutate(func() bool {
		hovered, dragging, version := s.engine.HoveredID(), s.engine.Dragging(), s.version
		fn(s.propsLocked())
		return hovered != s.engine.HoveredID() || dragging != s.engine.Dragging() || version != s.version
	})
}

// mutate runs fn under the state lock and, if it reports a change, bumps the
// version and fans the new snapshot out to subscribers and the publisher.
func (s *Session) mutate(fn func() bool) {
	s.mu.Lock()
	before := s.version
	changed := fn()
	if !changed {
		s.mu.Unlock()
		return
	}
	if s.version == before {
		s.version++
	}
	snap := s.snapshotLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()

	defer s.notifyMu.Unlock()
	s.notify(snap)
}

// notify must be called with notifyMu held
func (s *Session) notify(snap Snapshot) {
	s.subMu.Lock()
	for _, ch := range s.subscribers {
		deliverLatest(ch, snap)
	}
	pub := s.publisher
	s.subMu.Unlock()

	if pub != nil {
		if err := pub.PublishLayout(snap); err != nil {
			logger().Debugw("layout publish failed", "version", snap.Version, "err", err)
		}
	}
}

// deliverLatest sends snap, discarding the oldest pending snapshot when the
// buffer is full. Senders are serialized by notifyMu, so after one discard the
// send cannot block.
func deliverLatest(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func containsID(items []FurnitureItem, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}
