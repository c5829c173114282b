package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-chainviz/pkg/pools"
	"github.com/dd0wney/cluso-chainviz/pkg/render"
	"github.com/dd0wney/cluso-chainviz/pkg/session"
)

// Default SVG viewport
const (
	defaultWidth  = 960
	defaultHeight = 600
)

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := render.ExportOptions{
		Format: render.Format(q.Get("format")),
		Pretty: q.Get("pretty") == "true" || q.Get("pretty") == "1",
		Width:  defaultWidth,
		Height: defaultHeight,
	}
	if opts.Format == "" {
		opts.Format = render.FormatJSON
	}
	if opts.Format != render.FormatJSON && opts.Format != render.FormatSVG {
		s.respondError(w, http.StatusBadRequest, "format must be json or svg")
		return
	}
	for name, dst := range map[string]*float64{"width": &opts.Width, "height": &opts.Height} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 20000 {
			s.respondError(w, http.StatusBadRequest, name+" must be a positive number")
			return
		}
		*dst = v
	}

	buf := pools.GetBuffer()
	defer pools.PutBuffer(buf)
	if err := render.Export(buf, s.session.Latest(), opts); err != nil {
		s.respondError(w, http.StatusInternalServerError, "export failed")
		return
	}

	if opts.Format == render.FormatSVG {
		w.Header().Set("Content-Type", "image/svg+xml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.session.Stats(r.Context())
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	f := s.session.Latest()

	s.respondJSON(w, http.StatusOK, StatsResponse{
		Nodes:         st.NodeCount,
		Links:         st.LinkCount,
		Unresolved:    st.UnresolvedCount,
		Pinned:        st.PinnedCount,
		Seq:           f.Seq,
		Alpha:         f.Alpha,
		Settled:       f.Settled,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Version:       s.version,
	})
}

// handleExpand takes the key from a JSON body or the key query parameter
func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	req := ExpandRequest{Key: r.URL.Query().Get("key")}
	if s.newRequestDecoder(w, r).DecodeJSON(&req, true).Validate(&req).RespondError() {
		return
	}

	if !s.session.Expand(req.Key) {
		s.respondError(w, http.StatusServiceUnavailable, "session stopped")
		return
	}
	s.respondJSON(w, http.StatusAccepted, AcceptedResponse{Status: "queued", Key: req.Key})
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	var g session.Gesture
	if s.newRequestDecoder(w, r).DecodeJSON(&g, false).Validate(&g).RespondError() {
		return
	}
	if !s.session.HandleGesture(g) {
		s.respondError(w, http.StatusServiceUnavailable, "session stopped")
		return
	}
	s.respondJSON(w, http.StatusAccepted, AcceptedResponse{Status: "queued"})
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var p session.Pointer
	if s.newRequestDecoder(w, r).DecodeJSON(&p, false).Validate(&p).RespondError() {
		return
	}
	if p.Client == "" {
		p.Client = "http:" + s.clientID(r)
	}
	if !s.session.HandlePointer(p) {
		s.respondError(w, http.StatusServiceUnavailable, "session stopped")
		return
	}
	s.respondJSON(w, http.StatusAccepted, AcceptedResponse{Status: "queued"})
}
