package session

import (
	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/interaction"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
)

// GestureType names a classified gesture
type GestureType string

const (
	GestureDragStart GestureType = "dragstart"
	GestureDrag      GestureType = "drag"
	GestureDragEnd   GestureType = "dragend"
	GestureClick     GestureType = "click"
)

// Gesture is a pre-classified pointer gesture on one node. Client names
// the pointer source; drags are tracked per client so ReleaseClient can
// end them.
type Gesture struct {
	Type    GestureType `json:"type" validate:"required,oneof=dragstart drag dragend click"`
	Address string      `json:"address" validate:"required"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Client  string      `json:"client,omitempty" validate:"max=128"`
}

// PointerType names a raw pointer event
type PointerType string

const (
	PointerDown   PointerType = "down"
	PointerMove   PointerType = "move"
	PointerUp     PointerType = "up"
	PointerCancel PointerType = "cancel"
)

// Pointer is a raw pointer event in layout coordinates. Address is only
// read on PointerDown; empty means empty space. Each Client gets its own
// gesture, so interleaved streams never act on each other's node.
type Pointer struct {
	Type    PointerType `json:"type" validate:"required,oneof=down move up cancel"`
	Address string      `json:"address,omitempty"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Client  string      `json:"client,omitempty" validate:"max=128"`
}

// Status of an expansion event
const (
	StatusMerged = "merged"
	StatusFailed = "failed"
)

// ExpansionEvent is published on the expansion topic once per finished
// request
type ExpansionEvent struct {
	RequestID  string            `json:"request_id"`
	Key        string            `json:"key"`
	Source     string            `json:"source"`
	Status     string            `json:"status"`
	Merge      graph.MergeResult `json:"merge"`
	Error      string            `json:"error,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}

// Failed reports whether the expansion failed
func (e ExpansionEvent) Failed() bool {
	return e.Status == StatusFailed
}

// HandleGesture queues a classified gesture
func (s *Session) HandleGesture(g Gesture) bool {
	return s.post(func() { s.applyGesture(g) })
}

// HandlePointer queues a raw pointer event for classification
func (s *Session) HandlePointer(p Pointer) bool {
	return s.post(func() { s.applyPointer(p) })
}

// ReleaseClient ends everything client has in flight: its raw gesture is
// cancelled and every drag it started is released. Presenters call it
// when a client goes away.
func (s *Session) ReleaseClient(client string) bool {
	return s.post(func() { s.releaseClient(client) })
}

func (s *Session) applyGesture(g Gesture) {
	n := s.store.Node(g.Address)
	if n == nil {
		s.logger.Debug("gesture on unknown node", logging.Address(g.Address), logging.String("gesture", string(g.Type)))
		return
	}

	switch g.Type {
	case GestureDragStart:
		wasSettled := !s.sim.Active()
		s.ctrl.DragStart(n)
		s.trackDrag(g.Client, n.Address)
		if wasSettled && s.sim.Active() {
			s.metrics.RecordReheat("drag")
		}
	case GestureDrag:
		s.ctrl.DragMove(n, graph.Position{X: g.X, Y: g.Y})
	case GestureDragEnd:
		s.ctrl.DragEnd(n)
		s.untrackDrag(g.Client, n.Address)
	case GestureClick:
		s.ctrl.Click(n)
		return
	default:
		s.logger.Debug("unknown gesture", logging.String("gesture", string(g.Type)))
		return
	}
	s.afterInteraction()
}

func (s *Session) applyPointer(p Pointer) {
	pos := graph.Position{X: p.X, Y: p.Y}
	wasSettled := !s.sim.Active()

	gc, ok := s.gestures[p.Client]
	if !ok {
		if p.Type != PointerDown {
			// nothing in flight for this client
			return
		}
		gc = interaction.NewGestureClassifier(s.ctrl)
		s.gestures[p.Client] = gc
	}

	switch p.Type {
	case PointerDown:
		gc.Press(s.store.Node(p.Address), pos)
	case PointerMove:
		gc.Move(pos)
	case PointerUp:
		gc.Release(pos)
	case PointerCancel:
		gc.Cancel()
	default:
		s.logger.Debug("unknown pointer event", logging.String("pointer", string(p.Type)))
	}
	if !gc.Active() {
		delete(s.gestures, p.Client)
	}
	if p.Type == PointerDown {
		return
	}

	if wasSettled && s.sim.Active() {
		s.metrics.RecordReheat("drag")
	}
	s.afterInteraction()
}

func (s *Session) releaseClient(client string) {
	released := 0
	if gc, ok := s.gestures[client]; ok {
		gc.Cancel()
		delete(s.gestures, client)
		released++
	}
	for addr := range s.drags[client] {
		s.ctrl.DragEnd(s.store.Node(addr))
		released++
	}
	delete(s.drags, client)

	if released > 0 {
		s.logger.Debug("client released", logging.String("client", client), logging.Count(released))
		s.afterInteraction()
	}
}

func (s *Session) trackDrag(client, address string) {
	addrs, ok := s.drags[client]
	if !ok {
		addrs = make(map[string]struct{})
		s.drags[client] = addrs
	}
	addrs[address] = struct{}{}
}

func (s *Session) untrackDrag(client, address string) {
	addrs, ok := s.drags[client]
	if !ok {
		return
	}
	delete(addrs, address)
	if len(addrs) == 0 {
		delete(s.drags, client)
	}
}

// afterInteraction republishes when pins moved while the layout is idle;
// an active layout publishes on its next tick anyway.
func (s *Session) afterInteraction() {
	if !s.sim.Active() {
		s.publishFrame()
	}
}
