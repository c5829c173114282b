package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-chainviz/pkg/render"
)

func plain(s string) []string {
	return strings.Split(ansi.Strip(s), "\n")
}

func TestPlot_Empty(t *testing.T) {
	assert.Empty(t, Plot(render.Frame{}, 0, 5, ""))

	rows := plain(Plot(render.Frame{}, 4, 2, ""))
	assert.Equal(t, []string{"    ", "    "}, rows)
}

func TestPlot_SingleNodeIsCentred(t *testing.T) {
	f := render.Frame{Nodes: []render.NodeView{{Address: "a", X: 480, Y: 300}}}

	rows := plain(Plot(f, 5, 3, ""))
	require.Len(t, rows, 3)
	assert.Equal(t, "  ●  ", rows[1])
	assert.Equal(t, "     ", rows[0])
}

func TestPlot_LinksAndGlyphs(t *testing.T) {
	f := render.Frame{
		Nodes: []render.NodeView{
			{Address: "a", X: 0, Y: 0, Expandable: true},
			{Address: "b", X: 100, Y: 0, Pinned: true},
			{Address: "c", X: 50, Y: 100},
		},
		Links: []render.LinkView{
			{Source: "a", Target: "b", X1: 0, Y1: 0, X2: 100, Y2: 0},
		},
	}

	rows := plain(Plot(f, 11, 3, ""))
	require.Len(t, rows, 3)
	assert.Equal(t, "◆·········◼", rows[0])
	assert.Equal(t, "           ", rows[1])
	assert.Equal(t, "     ●     ", rows[2])

	rows = plain(Plot(f, 11, 3, "c"))
	assert.Equal(t, "     ◉     ", rows[2])
}

func TestPlot_DiagonalLinkStaysInBounds(t *testing.T) {
	f := render.Frame{
		Nodes: []render.NodeView{
			{Address: "a", X: -50, Y: -50},
			{Address: "b", X: 50, Y: 50},
		},
		Links: []render.LinkView{
			{X1: -50, Y1: -50, X2: 50, Y2: 50},
		},
	}

	rows := plain(Plot(f, 4, 4, ""))
	assert.Equal(t, []string{"●   ", " ·  ", "  · ", "   ●"}, rows)
}

func TestGlyphFor(t *testing.T) {
	n := render.NodeView{Address: "a", Pinned: true, Expandable: true}
	assert.Equal(t, glyphSelected, glyphFor(n, "a"))
	assert.Equal(t, glyphPinned, glyphFor(n, "b"))
	n.Pinned = false
	assert.Equal(t, glyphExpandable, glyphFor(n, "b"))
	n.Expandable = false
	assert.Equal(t, glyphNode, glyphFor(n, "b"))
}
