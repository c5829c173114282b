// Package tui is a terminal presenter for a session: a scaled plot of the
// layout, a node table driving click and drag gestures, and a log of
// expansion results.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/pubsub"
	"github.com/dd0wney/cluso-chainviz/pkg/render"
	"github.com/dd0wney/cluso-chainviz/pkg/session"
)

// Session is the part of a session the terminal presenter drives
type Session interface {
	Latest() render.Frame
	Expand(key string) bool
	HandleGesture(g session.Gesture) bool
	Bus() *pubsub.PubSub
}

type view int

const (
	graphView view = iota
	nodesView
	expansionsView
)

var viewNames = []string{"Graph", "Nodes", "Expansions"}

const (
	// dragStep is how far one arrow press moves a node, in layout units
	dragStep = 20.0
	// maxLog bounds the expansion log
	maxLog = 100
)

type (
	frameMsg     render.Frame
	expansionMsg session.ExpansionEvent
	busClosedMsg struct{}
)

// Model is the bubbletea model
type Model struct {
	sess   Session
	frames *pubsub.Subscription
	events *pubsub.Subscription

	currentView view
	width       int
	height      int

	frame render.Frame
	table table.Model
	input textinput.Model
	help  help.Model

	prompting bool
	dragging  string
	dragPos   graph.Position

	log     []session.ExpansionEvent
	status  string
	failed  bool
	stopped bool
}

// New subscribes to sess's bus. The subscriptions end with ctx or when the
// model quits.
func New(ctx context.Context, sess Session) (Model, error) {
	frames, err := sess.Bus().Subscribe(ctx, pubsub.TopicFrames,
		pubsub.WithMode(pubsub.KeepLatest), pubsub.WithBuffer(1))
	if err != nil {
		return Model{}, fmt.Errorf("subscribe frames: %w", err)
	}
	events, err := sess.Bus().Subscribe(ctx, pubsub.TopicExpansion, pubsub.WithBuffer(64))
	if err != nil {
		frames.Unsubscribe()
		return Model{}, fmt.Errorf("subscribe expansion events: %w", err)
	}

	columns := []table.Column{
		{Title: "Address", Width: 18},
		{Title: "Name", Width: 16},
		{Title: "Balance", Width: 14},
		{Title: "Color", Width: 10},
		{Title: "Key", Width: 4},
		{Title: "Pin", Width: 4},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "expansion key"
	ti.CharLimit = 128
	ti.Width = 40

	m := Model{
		sess:   sess,
		frames: frames,
		events: events,
		width:  80,
		height: 24,
		table:  t,
		input:  ti,
		help:   help.New(),
	}
	m.setFrame(sess.Latest())
	return m, nil
}

// Init starts listening on both subscriptions
func (m Model) Init() tea.Cmd {
	return tea.Batch(listen(m.frames), listen(m.events))
}

// listen waits for the next message on sub
func listen(sub *pubsub.Subscription) tea.Cmd {
	return func() tea.Msg {
		for {
			msg, ok := <-sub.Channel()
			if !ok {
				return busClosedMsg{}
			}
			switch v := msg.(type) {
			case render.Frame:
				return frameMsg(v)
			case session.ExpansionEvent:
				return expansionMsg(v)
			}
		}
	}
}

// Update handles bus messages, window resizes and keys
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(max(m.height-12, 3))
		return m, nil

	case frameMsg:
		m.setFrame(render.Frame(msg))
		return m, listen(m.frames)

	case expansionMsg:
		m.record(session.ExpansionEvent(msg))
		return m, listen(m.events)

	case busClosedMsg:
		if !m.stopped {
			m.stopped = true
			m.setStatus("session stopped", true)
		}
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		if m.dragging != "" {
			return m.updateDrag(msg), nil
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.close()
		return m, tea.Quit

	case key.Matches(msg, keys.Tab):
		m.currentView = (m.currentView + 1) % view(len(viewNames))
		return m, nil

	case key.Matches(msg, keys.ShiftTab):
		m.currentView = (m.currentView + view(len(viewNames)) - 1) % view(len(viewNames))
		return m, nil

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, keys.Click):
		m.click()
		return m, nil

	case key.Matches(msg, keys.Move):
		m.startDrag()
		return m, nil

	case key.Matches(msg, keys.Expand):
		m.prompting = true
		m.input.Reset()
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		k := strings.TrimSpace(m.input.Value())
		m.prompting = false
		m.input.Blur()
		m.input.Reset()
		if k == "" {
			return m, nil
		}
		if m.sess.Expand(k) {
			m.setStatus(fmt.Sprintf("expanding %q", k), false)
		} else {
			m.setStatus("session stopped", true)
		}
		return m, nil
	case tea.KeyEsc:
		m.prompting = false
		m.input.Blur()
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateDrag moves the dragged node while in move mode
func (m Model) updateDrag(msg tea.KeyMsg) Model {
	switch {
	case key.Matches(msg, keys.Up):
		m.dragPos.Y -= dragStep
	case key.Matches(msg, keys.Down):
		m.dragPos.Y += dragStep
	case key.Matches(msg, keys.Left):
		m.dragPos.X -= dragStep
	case key.Matches(msg, keys.Right):
		m.dragPos.X += dragStep
	case key.Matches(msg, keys.Move), key.Matches(msg, keys.Click), key.Matches(msg, keys.Cancel):
		m.endDrag()
		return m
	default:
		return m
	}
	m.gesture(session.GestureDrag)
	return m
}

// selected returns the node under the table cursor
func (m Model) selected() (render.NodeView, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.frame.Nodes) {
		return render.NodeView{}, false
	}
	return m.frame.Nodes[i], true
}

func (m *Model) click() {
	n, ok := m.selected()
	if !ok {
		m.setStatus("no node selected", true)
		return
	}
	if !m.sess.HandleGesture(session.Gesture{Type: session.GestureClick, Address: n.Address, X: n.X, Y: n.Y}) {
		m.setStatus("session stopped", true)
		return
	}
	if n.Expandable {
		m.setStatus("expanding "+render.TruncateAddress(n.Address), false)
	} else {
		m.setStatus("no expansion for "+render.TruncateAddress(n.Address), false)
	}
}

func (m *Model) startDrag() {
	n, ok := m.selected()
	if !ok {
		m.setStatus("no node selected", true)
		return
	}
	m.dragging = n.Address
	m.dragPos = graph.Position{X: n.X, Y: n.Y}
	m.gesture(session.GestureDragStart)
	m.setStatus("moving "+render.TruncateAddress(n.Address)+", arrows to move, m to drop", false)
}

func (m *Model) endDrag() {
	m.gesture(session.GestureDragEnd)
	m.setStatus("dropped "+render.TruncateAddress(m.dragging), false)
	m.dragging = ""
}

func (m *Model) gesture(t session.GestureType) {
	m.sess.HandleGesture(session.Gesture{
		Type:    t,
		Address: m.dragging,
		X:       m.dragPos.X,
		Y:       m.dragPos.Y,
	})
}

func (m *Model) setFrame(f render.Frame) {
	m.frame = f
	rows := make([]table.Row, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		rows = append(rows, nodeRow(n))
	}
	m.table.SetRows(rows)
}

func nodeRow(n render.NodeView) table.Row {
	name, balance := "", ""
	switch len(n.Labels) {
	case 3:
		name, balance = n.Labels[0].Text, n.Labels[2].Text
	case 2:
		balance = n.Labels[1].Text
	}
	return table.Row{
		render.TruncateAddress(n.Address),
		name,
		balance,
		n.Color,
		marker(n.Expandable),
		marker(n.Pinned),
	}
}

func marker(b bool) string {
	if b {
		return "✓"
	}
	return ""
}

func (m *Model) record(e session.ExpansionEvent) {
	m.log = append(m.log, e)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
	m.setStatus(describe(e), e.Failed())
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// close ends both subscriptions
func (m *Model) close() {
	m.frames.Unsubscribe()
	m.events.Unsubscribe()
}

func describe(e session.ExpansionEvent) string {
	if e.Failed() {
		return fmt.Sprintf("%s failed: %s", e.Key, e.Error)
	}
	return fmt.Sprintf("%s merged: +%d nodes, +%d links, %d duplicates, %d unresolved",
		e.Key, e.Merge.NodesAdded, e.Merge.LinksAdded, e.Merge.DuplicatesIgnored, e.Merge.Unresolved)
}

// Run shows the presenter until the user quits or ctx is done
func Run(ctx context.Context, sess Session, opts ...tea.ProgramOption) error {
	m, err := New(ctx, sess)
	if err != nil {
		return err
	}
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err = tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
