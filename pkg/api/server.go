// Package api serves a session over HTTP: graph snapshots, expansion and
// gesture requests, and a websocket stream of frames.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-chainviz/pkg/api/middleware"
	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/health"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/metrics"
	"github.com/dd0wney/cluso-chainviz/pkg/pubsub"
	"github.com/dd0wney/cluso-chainviz/pkg/render"
	"github.com/dd0wney/cluso-chainviz/pkg/session"
)

// Session is the part of a session the API drives
type Session interface {
	Latest() render.Frame
	Expand(key string) bool
	HandleGesture(g session.Gesture) bool
	HandlePointer(p session.Pointer) bool
	ReleaseClient(client string) bool
	Stats(ctx context.Context) (graph.Statistics, error)
	Bus() *pubsub.PubSub
}

// Config holds the server's HTTP settings
type Config struct {
	AllowedOrigins []string
	TrustedProxies []string
	RequestRate    float64 // per client, mutating endpoints only; 0 disables
	RequestBurst   int
	MaxBodyBytes   int64
}

// Server represents the HTTP API server
type Server struct {
	session         Session
	config          Config
	metricsRegistry *metrics.Registry
	healthChecker   *health.HealthChecker
	logger          logging.Logger
	rateLimiter     *middleware.RateLimiter
	clientID        middleware.ClientIDFunc
	upgrader        websocket.Upgrader
	startTime       time.Time
	version         string
}

// Option configures a Server
type Option func(*Server)

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Server) { s.metricsRegistry = r }
}

// WithHealth sets the health checker served on /health
func WithHealth(h *health.HealthChecker) Option {
	return func(s *Server) { s.healthChecker = h }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by /stats
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates an API server for sess
func NewServer(sess Session, cfg Config, opts ...Option) (*Server, error) {
	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}

	s := &Server{
		session:   sess,
		config:    cfg,
		logger:    logging.NewNopLogger(),
		clientID:  middleware.ClientIP(trusted),
		startTime: time.Now(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("api"))
	if s.metricsRegistry == nil {
		s.metricsRegistry = metrics.NewRegistry()
	}
	if s.healthChecker == nil {
		s.healthChecker = health.NewHealthChecker()
		s.healthChecker.RegisterCheck("session", health.SessionCheck(sess.Stats))
		s.healthChecker.RegisterLivenessCheck("session", health.SessionCheck(sess.Stats))
	}
	if cfg.RequestRate > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RequestRate
		if cfg.RequestBurst > 0 {
			rl.BurstSize = cfg.RequestBurst
		}
		s.rateLimiter = middleware.NewRateLimiter(rl)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 << 10,
		WriteBufferSize: 64 << 10,
		CheckOrigin:     s.checkOrigin,
	}
	return s, nil
}

// Handler builds the routed, middleware-wrapped handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthChecker.HTTPHandler())
	mux.HandleFunc("GET /health/ready", s.healthChecker.ReadinessHandler())
	mux.HandleFunc("GET /health/live", s.healthChecker.LivenessHandler())
	mux.Handle("GET /metrics", s.metricsRegistry.Handler())

	mux.HandleFunc("GET /graph", s.handleGraph)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	limited := func(h http.HandlerFunc) http.Handler {
		return middleware.RateLimit(s.rateLimiter, s.clientID)(
			middleware.BodySizeLimit(s.config.MaxBodyBytes)(h))
	}
	mux.Handle("POST /expand", limited(s.handleExpand))
	mux.Handle("POST /gesture", limited(s.handleGesture))
	mux.Handle("POST /pointer", limited(s.handlePointer))

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = s.config.AllowedOrigins

	var h http.Handler = mux
	h = middleware.Metrics(s.metricsRegistry)(h)
	h = middleware.SecurityHeaders()(h)
	h = middleware.CORS(cors)(h)
	h = middleware.Logging(s.logger)(h)
	h = middleware.RequestID()(h)
	h = middleware.PanicRecovery(s.logger)(h)
	return h
}

// Close releases background resources
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// checkOrigin admits non-browser clients, same-origin pages and the
// configured origins
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if sameHost(origin, r.Host) {
		return true
	}
	return middleware.OriginAllowed(s.config.AllowedOrigins, origin)
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
