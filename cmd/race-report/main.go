// race-report replays a stored session offline, prints the final
// classification and per-car lap statistics, and writes the debug
// charts to a standalone HTML file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/go-echarts/go-echarts/v2/components"

	"github.com/baenzigerbear/f1-race-replay/internal/charts"
	"github.com/baenzigerbear/f1-race-replay/internal/config"
	"github.com/baenzigerbear/f1-race-replay/internal/db"
	"github.com/baenzigerbear/f1-race-replay/internal/replay"
)

var (
	dbPath     = flag.String("db", "replay.db", "Path to the SQLite session database")
	sessionID  = flag.String("session", "", "Session id to replay (defaults to the newest session)")
	outFile    = flag.String("out", "", "Write charts to this HTML file")
	configPath = flag.String("config", "", "Path to a tuning config JSON file")
	maxHours   = flag.Float64("max-hours", 4, "Abort if the race has not finished after this much race time")
)

func main() {
	flag.Parse()

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	id := *sessionID
	if id == "" {
		sessions, err := database.Sessions()
		if err != nil || len(sessions) == 0 {
			log.Fatalf("No sessions found: %v", err)
		}
		id = sessions[0].ID
	}

	meta, err := database.Session(id)
	if err != nil {
		log.Fatalf("Failed to read session: %v", err)
	}
	store, ref, err := database.LoadSession(id)
	if err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}

	tuning := config.MustLoadDefaultConfig()
	if *configPath != "" {
		if tuning, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	pcfg := tuning.PipelineConfig()
	pcfg.FinalLap = meta.TotalLaps
	pipeline := replay.NewPipeline(store, tuning.ClockConfig(meta.StartOffset, meta.RaceStart), ref, pcfg)
	pipeline.Clock().Play()

	// Coarse ticks are fine offline; crossings interpolate within the
	// sample stream, not within the tick.
	const step = 0.5
	var snap replay.Snapshot
	rows, done := pipeline.FinalClassification()
	for !done && snap.RaceTime < *maxHours*3600 {
		snap = pipeline.Tick(step)
		rows, done = pipeline.FinalClassification()
	}
	if !done {
		log.Fatalf("Race did not finish within %.0fh of race time (final lap %d)", *maxHours, meta.TotalLaps)
	}

	fmt.Printf("%s at %s, %d laps\n\n", meta.Name, meta.Circuit, meta.TotalLaps)
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tCAR\tTEAM\tLAPS\tSTATUS\tGAP")
	for _, row := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			row.FinalPosition, row.Label, row.Team, row.Lap, row.Status, row.GapToLeader)
	}
	tw.Flush()

	fmt.Println()
	fmt.Fprintln(tw, "CAR\tLAPS\tBEST\tMEAN\tMEDIAN\tSTDDEV")
	for _, s := range replay.SummariseLaps(pipeline.Ledger().Entries()) {
		fmt.Fprintf(tw, "%d\t%d\t%.3f\t%.3f\t%.3f\t%.3f\n",
			s.EntityID, s.Laps, s.Best, s.Mean, s.Median, s.StdDev)
	}
	tw.Flush()

	if *outFile != "" {
		if err := writeCharts(*outFile, store, ref, pipeline, snap); err != nil {
			log.Fatalf("Failed to write charts: %v", err)
		}
		fmt.Printf("\ncharts written to %s\n", *outFile)
	}

	if err := database.SaveResults(id, rows); err != nil {
		log.Fatalf("Failed to persist results: %v", err)
	}
}

func writeCharts(path string, store *replay.TelemetryStore, ref replay.GateReference, pipeline *replay.Pipeline, snap replay.Snapshot) error {
	histories := make(map[int][]float64)
	for _, ep := range pipeline.Ledger().Entries() {
		histories[ep.EntityID] = ep.LapTimes
	}

	page := components.NewPage()
	page.AddCharts(
		charts.PositionsByLap(store.Entities(), snap.PositionsByLap),
		charts.LapTimes(store.Entities(), histories),
		charts.TrackMap(store.Samples(ref.EntityID), pipeline.Gates()),
	)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
