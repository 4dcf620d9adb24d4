package monitor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/baenzigerbear/f1-race-replay/internal/charts"
	"github.com/baenzigerbear/f1-race-replay/internal/httputil"
)

func writeChart(w http.ResponseWriter, c interface{ Render(io.Writer) error }) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handlePositionsChart renders the position-by-lap line chart (HTML)
// for the active replay. Debugging-only endpoint, no auth.
func (ws *WebServer) handlePositionsChart(w http.ResponseWriter, r *http.Request) {
	rep := ws.replayerOrNil()
	if rep == nil {
		httputil.NotFound(w, "no session loaded")
		return
	}
	snap := rep.Snapshot()
	if len(snap.PositionsByLap) == 0 {
		httputil.NotFound(w, "no completed laps yet")
		return
	}
	writeChart(w, charts.PositionsByLap(rep.Entities(), snap.PositionsByLap))
}

// handleLapTimesChart renders the lap-time line chart (HTML) for the
// active replay.
func (ws *WebServer) handleLapTimesChart(w http.ResponseWriter, r *http.Request) {
	rep := ws.replayerOrNil()
	if rep == nil {
		httputil.NotFound(w, "no session loaded")
		return
	}
	writeChart(w, charts.LapTimes(rep.Entities(), rep.LapHistories()))
}

// handleTrackChart renders the reference path and derived gates as a
// scatter plot (HTML).
func (ws *WebServer) handleTrackChart(w http.ResponseWriter, r *http.Request) {
	rep := ws.replayerOrNil()
	if rep == nil {
		httputil.NotFound(w, "no session loaded")
		return
	}
	writeChart(w, charts.TrackMap(rep.ReferencePath(), rep.Gates()))
}
