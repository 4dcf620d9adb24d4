// Package monitor exposes the HTTP interface of the replay service:
// session listing, replay control, leaderboard state and debug charts.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/baenzigerbear/f1-race-replay/internal/config"
	"github.com/baenzigerbear/f1-race-replay/internal/db"
	"github.com/baenzigerbear/f1-race-replay/internal/httputil"
	"github.com/baenzigerbear/f1-race-replay/internal/monitoring"
	"github.com/baenzigerbear/f1-race-replay/internal/replayer"
	"github.com/baenzigerbear/f1-race-replay/internal/timeutil"
	"github.com/baenzigerbear/f1-race-replay/internal/version"
)

// WebServer handles the HTTP interface of the replay service.
type WebServer struct {
	address string
	db      *db.DB
	tuning  *config.TuningConfig
	clk     timeutil.Clock
	server  *http.Server

	mu       sync.Mutex
	current  *replayer.Replayer
	stopCurr context.CancelFunc
	runCtx   context.Context
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	DB      *db.DB
	Tuning  *config.TuningConfig
	Clock   timeutil.Clock
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(cfg WebServerConfig) *WebServer {
	clk := cfg.Clock
	if clk == nil {
		clk = timeutil.RealClock{}
	}
	ws := &WebServer{
		address: cfg.Address,
		db:      cfg.DB,
		tuning:  cfg.Tuning,
		clk:     clk,
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// Start begins the HTTP server and blocks until the context is
// cancelled, then shuts the server down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	ws.mu.Lock()
	ws.runCtx = ctx
	ws.mu.Unlock()

	go func() {
		monitoring.Logf("monitor: starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("monitor: server failed: %v", err)
		}
	}()

	<-ctx.Done()
	monitoring.Logf("monitor: shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("monitor: shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("monitor: force close error: %v", err)
		}
	}
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/version", ws.handleVersion)
	mux.HandleFunc("/api/sessions", ws.handleSessions)
	mux.HandleFunc("/api/replay/load", ws.handleLoad)
	mux.HandleFunc("/api/replay/state", ws.handleState)
	mux.HandleFunc("/api/replay/control", ws.handleControl)
	mux.HandleFunc("/api/replay/params", ws.handleParams)
	mux.HandleFunc("/api/replay/classification", ws.handleClassification)
	mux.HandleFunc("/api/replay/laps", ws.handleLaps)
	mux.HandleFunc("/charts/positions", ws.handlePositionsChart)
	mux.HandleFunc("/charts/laptimes", ws.handleLapTimesChart)
	mux.HandleFunc("/charts/track", ws.handleTrackChart)

	if ws.db != nil {
		ws.db.AttachAdminRoutes(mux)
	}
	return mux
}

// replayerOrNil returns the active replayer, if any.
func (ws *WebServer) replayerOrNil() *replayer.Replayer {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.current
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (ws *WebServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	sessions, err := ws.db.Sessions()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if sessions == nil {
		sessions = []db.SessionMeta{}
	}
	httputil.WriteJSONOK(w, sessions)
}

// handleLoad loads a session into a fresh replayer, replacing any
// running one.
func (ws *WebServer) handleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		httputil.BadRequest(w, "missing 'session_id' field")
		return
	}

	meta, err := ws.db.Session(req.SessionID)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	store, ref, err := ws.db.LoadSession(req.SessionID)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	pcfg := ws.tuning.PipelineConfig()
	pcfg.FinalLap = meta.TotalLaps
	rep := replayer.New(store, ref, meta,
		ws.tuning.ClockConfig(meta.StartOffset, meta.RaceStart),
		pcfg, ws.clk, ws.tuning.GetTickInterval())

	ws.mu.Lock()
	if ws.stopCurr != nil {
		ws.stopCurr()
	}
	parent := ws.runCtx
	if parent == nil {
		parent = context.Background()
	}
	runCtx, cancel := context.WithCancel(parent)
	ws.current = rep
	ws.stopCurr = cancel
	ws.mu.Unlock()

	go rep.Run(runCtx)

	httputil.WriteJSONOK(w, meta)
}

func (ws *WebServer) handleState(w http.ResponseWriter, r *http.Request) {
	rep := ws.replayerOrNil()
	if rep == nil {
		httputil.NotFound(w, "no session loaded")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"session":  rep.Session(),
		"snapshot": rep.Snapshot(),
	})
}

// handleControl applies play/pause/speed actions to the active replay.
func (ws *WebServer) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	rep := ws.replayerOrNil()
	if rep == nil {
		httputil.NotFound(w, "no session loaded")
		return
	}

	var req struct {
		Action string  `json:"action"`
		Speed  float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "malformed control request")
		return
	}

	switch req.Action {
	case "play":
		rep.Play()
	case "pause":
		rep.Pause()
	case "speed":
		rep.SetSpeed(req.Speed)
	default:
		httputil.BadRequest(w, "action must be play, pause or speed")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"playing": rep.Playing(),
	})
}

func (ws *WebServer) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, ws.tuning)
}

// handleClassification returns the final classification and persists it
// the first time it becomes available.
func (ws *WebServer) handleClassification(w http.ResponseWriter, r *http.Request) {
	rep := ws.replayerOrNil()
	if rep == nil {
		httputil.NotFound(w, "no session loaded")
		return
	}
	rows, ok := rep.FinalClassification()
	if !ok {
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "race not finished"})
		return
	}
	if err := ws.db.SaveResults(rep.Session().ID, rows); err != nil {
		monitoring.Logf("monitor: failed to persist results: %v", err)
	}
	httputil.WriteJSONOK(w, rows)
}

func (ws *WebServer) handleLaps(w http.ResponseWriter, r *http.Request) {
	rep := ws.replayerOrNil()
	if rep == nil {
		httputil.NotFound(w, "no session loaded")
		return
	}
	httputil.WriteJSONOK(w, rep.LapSummaries())
}
