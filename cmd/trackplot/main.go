// trackplot renders a session's reference path and derived gate lines
// to a PNG, for checking gate placement before a replay.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/baenzigerbear/f1-race-replay/internal/config"
	"github.com/baenzigerbear/f1-race-replay/internal/db"
	"github.com/baenzigerbear/f1-race-replay/internal/replay"
)

var (
	dbPath    = flag.String("db", "replay.db", "Path to the SQLite session database")
	sessionID = flag.String("session", "", "Session id to plot (defaults to the newest session)")
	outFile   = flag.String("out", "track.png", "Output PNG path")
)

func gateSegment(g replay.Gate) plotter.XYs {
	a := g.Anchor.Add(g.Tangent.Scale(g.HalfLength))
	b := g.Anchor.Add(g.Tangent.Scale(-g.HalfLength))
	return plotter.XYs{{X: a.X, Y: a.Y}, {X: b.X, Y: b.Y}}
}

func addGate(p *plot.Plot, g *replay.Gate, c color.Color) error {
	if g == nil {
		return nil
	}
	line, err := plotter.NewLine(gateSegment(*g))
	if err != nil {
		return err
	}
	line.Width = vg.Points(2)
	line.Color = c
	p.Add(line)
	p.Legend.Add(g.ID.Kind.String(), line)
	return nil
}

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

	store, ref, err := database.LoadSession(id)
	if err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}

	tuning := config.MustLoadDefaultConfig()
	gates := replay.DeriveTrackGates(store, ref, tuning.PipelineConfig().Gate)

	path := store.Samples(ref.EntityID)
	pts := make(plotter.XYs, len(path))
	for i, s := range path {
		pts[i] = plotter.XY{X: s.X, Y: s.Y}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Track layout (session %s)", id)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	pathScatter, err := plotter.NewScatter(pts)
	if err != nil {
		log.Fatalf("Failed to build path scatter: %v", err)
	}
	pathScatter.Radius = vg.Points(0.5)
	pathScatter.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	p.Add(pathScatter)

	if err := addGate(p, gates.StartFinish, color.RGBA{R: 220, A: 255}); err != nil {
		log.Fatalf("Failed to plot start/finish gate: %v", err)
	}
	for i := range gates.MiniSectors {
		if err := addGate(p, &gates.MiniSectors[i], color.RGBA{B: 220, A: 255}); err != nil {
			log.Fatalf("Failed to plot minisector gate: %v", err)
		}
	}
	if err := addGate(p, gates.PitEntry, color.RGBA{G: 160, A: 255}); err != nil {
		log.Fatalf("Failed to plot pit gate: %v", err)
	}

	if err := p.Save(10*vg.Inch, 10*vg.Inch, *outFile); err != nil {
		log.Fatalf("Failed to save plot: %v", err)
	}
	fmt.Printf("wrote %s\n", *outFile)
}
