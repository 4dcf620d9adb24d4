package monitor

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/baenzigerbear/f1-race-replay/internal/config"
	"github.com/baenzigerbear/f1-race-replay/internal/db"
	"github.com/baenzigerbear/f1-race-replay/internal/monitoring"
	"github.com/baenzigerbear/f1-race-replay/internal/replay"
	"github.com/baenzigerbear/f1-race-replay/internal/testutil"
)

func testServer(t *testing.T) (*WebServer, *db.DB, *http.ServeMux) {
	t.Helper()

	database, err := db.OpenDB(filepath.Join(t.TempDir(), "replay.db"))
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { database.Close() })
	testutil.AssertNoError(t, database.MigrateUp())

	ws := NewWebServer(WebServerConfig{
		Address: "127.0.0.1:0",
		DB:      database,
		Tuning:  config.EmptyTuningConfig(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ws.runCtx = ctx

	return ws, database, ws.setupRoutes()
}

// seedSession stores a minimal two-car session on a circular track and
// returns its id.
func seedSession(t *testing.T, database *db.DB) string {
	t.Helper()

	id, err := database.CreateSession("Test GP", "Ring", 3, 0, 5)
	testutil.AssertNoError(t, err)

	for _, entityID := range []int{1, 2} {
		lapTime := 20.0 + float64(entityID)
		err := database.AddEntity(id, replay.Entity{ID: entityID, Label: "CAR"}, false)
		testutil.AssertNoError(t, err)

		samples := make([]replay.Sample, 0, 300)
		for i := 0; i < 300; i++ {
			ts := float64(i) * 0.1
			th := 2 * math.Pi * ts / lapTime
			samples = append(samples, replay.Sample{T: ts, X: 100 * math.Cos(th), Y: 100 * math.Sin(th)})
		}
		testutil.AssertNoError(t, database.AddSamples(id, entityID, samples))
	}

	testutil.AssertNoError(t, database.SetGateReference(id, replay.GateReference{
		EntityID:        1,
		StartFinishTime: 0,
		PitEntryTime:    1000,
		MiniSectorTimes: []float64{5.25, 10.5, 15.75},
	}))
	return id
}

func TestHandleHealth(t *testing.T) {
	_, _, mux := testServer(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]string
	testutil.DecodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHandleVersion(t *testing.T) {
	_, _, mux := testServer(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]string
	testutil.DecodeJSON(t, rec, &body)
	if body["version"] == "" {
		t.Error("version missing from response")
	}
}

func TestHandleSessionsEmpty(t *testing.T) {
	_, _, mux := testServer(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var sessions []db.SessionMeta
	testutil.DecodeJSON(t, rec, &sessions)
	if len(sessions) != 0 {
		t.Errorf("sessions = %v, want empty list", sessions)
	}
}

func TestStateWithoutSession(t *testing.T) {
	_, _, mux := testServer(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/replay/state", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestLoadAndControl(t *testing.T) {
	defer monitoring.Silence()()

	_, database, mux := testServer(t)
	id := seedSession(t, database)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"session_id": "` + id + `"}`)
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/replay/load", body))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var meta db.SessionMeta
	testutil.DecodeJSON(t, rec, &meta)
	if meta.ID != id {
		t.Fatalf("loaded session = %s, want %s", meta.ID, id)
	}

	// State is now available.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/replay/state", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	// Play, then an invalid action.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/replay/control", strings.NewReader(`{"action":"play"}`)))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var ctrl map[string]interface{}
	testutil.DecodeJSON(t, rec, &ctrl)
	if ctrl["playing"] != true {
		t.Errorf("playing = %v, want true", ctrl["playing"])
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/replay/control", strings.NewReader(`{"action":"warp"}`)))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestLoadUnknownSession(t *testing.T) {
	_, _, mux := testServer(t)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"session_id": "nope"}`)
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/replay/load", body))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestHandleParams(t *testing.T) {
	_, _, mux := testServer(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/replay/params", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
}

func TestClassificationBeforeFinish(t *testing.T) {
	defer monitoring.Silence()()

	_, database, mux := testServer(t)
	id := seedSession(t, database)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/replay/load", strings.NewReader(`{"session_id": "`+id+`"}`)))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/replay/classification", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusAccepted)
}

func TestTrackChart(t *testing.T) {
	defer monitoring.Silence()()

	_, database, mux := testServer(t)
	id := seedSession(t, database)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/replay/load", strings.NewReader(`{"session_id": "`+id+`"}`)))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charts/track", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q, want text/html", ct)
	}
}
