// Package admin exposes a loopback-bound operator HTTP surface: Prometheus
// metrics, a health check, and read-only JSON snapshots of running
// lobbies/instances. Adapted from the teacher's debug-server pattern but
// without pprof (no remote-profiling surface for a game server).
package admin

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProjectileTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_projectile_tick_duration_seconds",
		Help:    "Time spent in one projectile tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
	})

	ActiveInstances = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_active_instances",
		Help: "Currently running game instances",
	})

	ActivePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_active_players",
		Help: "Currently connected players across all instances",
	})

	QueuedRanked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_ranked_queue_size",
		Help: "Players currently waiting in the ranked queue",
	})

	PacketsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_packets_rejected_total",
		Help: "Packets rejected by movement or projectile validation, by reason",
	}, []string{"reason"}) // bounded: the validator's sentinel error messages

	MatchesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_matches_completed_total",
		Help: "Total matches that reached end-of-game",
	})
)

// Config controls the admin HTTP surface.
type Config struct {
	Enabled    bool
	ListenAddr string // must stay loopback in production
}

// DefaultConfig binds to localhost only.
func DefaultConfig() Config {
	return Config{Enabled: true, ListenAddr: "127.0.0.1:6060"}
}

// SnapshotFunc returns a JSON-serializable snapshot of live server state,
// wired in by the caller (normally the server core) to avoid this
// package importing the game/lobby/matchmaker packages directly.
type SnapshotFunc func() interface{}

// Server is the admin HTTP surface.
type Server struct {
	cfg      Config
	snapshot SnapshotFunc
	httpSrv  *http.Server
}

// New constructs an admin Server. snapshot may be nil (the /snapshot
// route then reports an empty object).
func New(cfg Config, snapshot SnapshotFunc) *Server {
	if snapshot == nil {
		snapshot = func() interface{} { return struct{}{} }
	}
	return &Server{cfg: cfg, snapshot: snapshot}
}

// Start launches the HTTP listener in the background. It is a no-op if
// the config disables the surface.
func (s *Server) Start() error {
	if !s.cfg.Enabled {
		log.Println("admin: surface disabled")
		return nil
	}
	addr := s.cfg.ListenAddr
	if addr != "127.0.0.1:6060" && addr != "localhost:6060" {
		log.Printf("admin: forcing loopback bind (was %s)", addr)
		addr = "127.0.0.1:6060"
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.snapshot())
	})

	s.httpSrv = &http.Server{Addr: addr, Handler: r}
	go func() {
		log.Printf("admin: listening on %s", addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("admin: server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the admin surface down.
func (s *Server) Stop() {
	if s.httpSrv == nil {
		return
	}
	_ = s.httpSrv.Close()
}
