package plan

// Props is the state the engine reads on every event. It is owned by the
// caller; the engine never keeps it between calls.
type Props struct {
	Config     RoomConfig
	Furniture  []FurnitureItem
	SelectedID string
}

// Callbacks receive the engine's requested state changes
type Callbacks struct {
	// OnUpdateFurniture receives a complete replacement list
	OnUpdateFurniture func(items []FurnitureItem)
	// OnSelect receives the selected item ID, or "" to clear the selection
	OnSelect func(id string)
}

// InteractionState is the engine's observable mode
type InteractionState int

const (
	StateIdle InteractionState = iota
	StateSelected
	StateDragging
)

func (s InteractionState) String() string {
	switch s {
	case StateSelected:
		return "selected"
	case StateDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// Engine is the interactive floor-plan canvas. It keeps only pointer
// interaction state (hover, drag flag, drag offset); room, furniture and
// selection arrive as Props and leave through Callbacks.
type Engine struct {
	surface    Surface
	callbacks  Callbacks
	hoveredID  string
	dragging   bool
	dragOffset Point
}

// NewEngine creates an engine drawing onto the given surface
func NewEngine(surface Surface, cb Callbacks) *Engine {
	return &Engine{surface: surface, callbacks: cb}
}

// Surface returns the drawing surface
func (e *Engine) Surface() Surface { return e.surface }

// HoveredID returns the item under the pointer, or ""
func (e *Engine) HoveredID() string { return e.hoveredID }

// Dragging reports whether a drag is in progress
func (e *Engine) Dragging() bool { return e.dragging }

// State derives the current mode from the engine and the caller's selection
func (e *Engine) State(props Props) InteractionState {
	switch {
	case e.dragging && props.SelectedID != "":
		return StateDragging
	case props.SelectedID != "":
		return StateSelected
	default:
		return StateIdle
	}
}

// roomPoint converts a pointer position to room space. The viewport is
// rebuilt from the current props every time.
func (e *Engine) roomPoint(props Props, screen Point) (Point, bool) {
	vp, err := NewViewport(props.Config, e.surface)
	if err != nil {
		logger().Warnw("pointer event ignored", "err", err)
		return Point{}, false
	}
	return vp.ToRoom(screen), true
}

// PointerDown selects the topmost item under the pointer and starts dragging
// it, or clears the selection when nothing is hit.
func (e *Engine) PointerDown(props Props, screen Point) {
	p, ok := e.roomPoint(props, screen)
	if !ok {
		return
	}

	item, hit := HitTest(props.Furniture, p)
	if !hit {
		e.dragging = false
		e.dragOffset = Point{}
		e.selectID("")
		return
	}

	e.selectID(item.ID)
	e.dragging = true
	e.dragOffset = p.Sub(item.Center())
}

// PointerMove refreshes hover and, while dragging, moves the selected item.
// Only the selected item changes; the list is emitted as a new slice.
func (e *Engine) PointerMove(props Props, screen Point) {
	p, ok := e.roomPoint(props, screen)
	if !ok {
		return
	}

	if over, hit := HitTest(props.Furniture, p); hit {
		e.hoveredID = over.ID
	} else {
		e.hoveredID = ""
	}

	if !e.dragging || props.SelectedID == "" {
		return
	}

	dest := p.Sub(e.dragOffset)
	updated, found := replaceItem(props.Furniture, props.SelectedID, func(it FurnitureItem) FurnitureItem {
		return MoveItem(it, dest, props.Config)
	})
	if !found {
		return
	}
	if e.callbacks.OnUpdateFurniture != nil {
		e.callbacks.OnUpdateFurniture(updated)
	}
}

// PointerUp ends a drag
func (e *Engine) PointerUp() {
	e.dragging = false
}

// PointerLeave ends a drag exactly like PointerUp so it can never get stuck
func (e *Engine) PointerLeave() {
	e.PointerUp()
}

// Render draws the full scene for the current props and interaction state
func (e *Engine) Render(props Props) (Scene, error) {
	return BuildScene(props, RenderState{HoveredID: e.hoveredID, Dragging: e.dragging}, e.surface)
}

func (e *Engine) selectID(id string) {
	if e.callbacks.OnSelect != nil {
		e.callbacks.OnSelect(id)
	}
}
