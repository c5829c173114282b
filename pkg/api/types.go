package api

import (
	"github.com/dd0wney/cluso-chainviz/pkg/render"
	"github.com/dd0wney/cluso-chainviz/pkg/session"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ExpandRequest asks for the subgraph behind a key
type ExpandRequest struct {
	Key string `json:"key" validate:"required,max=128"`
}

// AcceptedResponse acknowledges a queued request. Its outcome arrives on
// the websocket as an expansion event.
type AcceptedResponse struct {
	Status string `json:"status"`
	Key    string `json:"key,omitempty"`
}

// StatsResponse summarises the store and layout
type StatsResponse struct {
	Nodes         int     `json:"nodes"`
	Links         int     `json:"links"`
	Unresolved    int     `json:"unresolved"`
	Pinned        int     `json:"pinned"`
	Seq           uint64  `json:"seq"`
	Alpha         float64 `json:"alpha"`
	Settled       bool    `json:"settled"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version"`
}

// Websocket message types
const (
	MessageFrame     = "frame"
	MessageExpansion = "expansion"
	MessageError     = "error"
	MessageGesture   = "gesture"
	MessagePointer   = "pointer"
	MessageExpand    = "expand"
)

// ClientMessage is a message from a websocket client. Exactly the field
// named by Type is read.
type ClientMessage struct {
	Type    string           `json:"type" validate:"required,oneof=gesture pointer expand"`
	Gesture *session.Gesture `json:"gesture,omitempty"`
	Pointer *session.Pointer `json:"pointer,omitempty"`
	Key     string           `json:"key,omitempty" validate:"max=128"`
}

// ServerMessage is a message to a websocket client
type ServerMessage struct {
	Type      string                  `json:"type"`
	Frame     *render.Frame           `json:"frame,omitempty"`
	Expansion *session.ExpansionEvent `json:"expansion,omitempty"`
	Error     string                  `json:"error,omitempty"`
}
