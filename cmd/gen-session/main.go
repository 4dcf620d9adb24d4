// gen-session writes a synthetic race session into the replay database.
// The track is an oval with light positional noise, so gate derivation
// and lap counting behave like they do on recorded telemetry.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/baenzigerbear/f1-race-replay/internal/db"
	"github.com/baenzigerbear/f1-race-replay/internal/replay"
)

var (
	dbPath    = flag.String("db", "replay.db", "Path to the SQLite session database")
	name      = flag.String("name", "Synthetic GP", "Session name")
	circuit   = flag.String("circuit", "Ovalring", "Circuit name")
	laps      = flag.Int("laps", 10, "Race length in laps")
	cars      = flag.Int("cars", 6, "Number of cars")
	seed      = flag.Int64("seed", 1, "Random seed")
	baseLap   = flag.Float64("lap-time", 60, "Base lap time in seconds")
	raceStart = flag.Float64("race-start", 30, "Green flag offset in seconds")
	retireLap = flag.Int("retire-lap", 0, "Lap on which the last car retires (0 = nobody retires)")
)

const (
	sampleHz    = 10.0
	trackWidthX = 400.0
	trackWidthY = 250.0
)

var palette = []string{
	"#00D2BE", "#DC0000", "#FF8700", "#0090FF",
	"#006F62", "#2B4562", "#B6BABD", "#900000",
}

// ovalPoint maps a lap fraction to a position on the oval.
func ovalPoint(frac float64) (x, y float64) {
	th := 2 * math.Pi * frac
	return trackWidthX * math.Cos(th), trackWidthY * math.Sin(th)
}

// carSamples produces the full run for one car. Lap times drift lap to
// lap and the position carries small measurement noise.
func carSamples(rng *rand.Rand, lapTime, until float64) []replay.Sample {
	n := int(until * sampleHz)
	samples := make([]replay.Sample, 0, n)
	frac := 0.0
	curLap := lapTime
	for i := 0; i < n; i++ {
		t := float64(i) / sampleHz
		x, y := ovalPoint(frac)
		samples = append(samples, replay.Sample{
			T: t,
			X: x + rng.NormFloat64()*0.3,
			Y: y + rng.NormFloat64()*0.3,
		})
		frac += 1 / (curLap * sampleHz)
		if frac >= 1 {
			frac -= 1
			curLap = lapTime + rng.NormFloat64()*0.4
		}
	}
	return samples
}

func main() {
	flag.Parse()

	if *cars < 2 {
		log.Fatal("need at least two cars")
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))

	id, err := database.CreateSession(*name, *circuit, *laps, 0, *raceStart)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	duration := *raceStart + float64(*laps+1)*(*baseLap)*1.1
	for i := 0; i < *cars; i++ {
		entityID := i + 1
		// Car 1 is the pace reference; the rest spread out behind it.
		lapTime := *baseLap + float64(i)*0.5 + rng.Float64()*0.3

		e := replay.Entity{
			ID:     entityID,
			Label:  fmt.Sprintf("CAR %d", entityID),
			Team:   fmt.Sprintf("Team %c", 'A'+i%8),
			Colour: palette[i%len(palette)],
		}
		startedInPit := entityID == *cars && *cars > 4
		if err := database.AddEntity(id, e, startedInPit); err != nil {
			log.Fatalf("Failed to add entity %d: %v", entityID, err)
		}

		until := duration
		if *retireLap > 0 && entityID == *cars {
			until = *raceStart + float64(*retireLap)*lapTime*0.8
			if err := database.AddRetirement(id, replay.Retirement{EntityID: entityID, AtTime: until}); err != nil {
				log.Fatalf("Failed to add retirement: %v", err)
			}
		}
		if err := database.AddSamples(id, entityID, carSamples(rng, lapTime, until)); err != nil {
			log.Fatalf("Failed to add samples for entity %d: %v", entityID, err)
		}

		// Two stints split near mid-race.
		split := *laps / 2
		if err := database.AddStint(id, replay.Stint{EntityID: entityID, LapStart: 1, LapEnd: split, Compound: "MEDIUM"}); err != nil {
			log.Fatalf("Failed to add stint: %v", err)
		}
		if err := database.AddStint(id, replay.Stint{EntityID: entityID, LapStart: split + 1, LapEnd: *laps, Compound: "HARD", StartingAge: 0}); err != nil {
			log.Fatalf("Failed to add stint: %v", err)
		}
	}

	// Gate reference from car 1's first lap: the start/finish line at
	// its starting point and four evenly spaced minisector gates. The
	// pit gate sits past the end of the recording so the synthetic
	// field never pits.
	ref := replay.GateReference{
		EntityID:        1,
		StartFinishTime: 0,
		PitEntryTime:    duration + 1000,
		MiniSectorTimes: []float64{
			0.2 * *baseLap, 0.4 * *baseLap, 0.6 * *baseLap, 0.8 * *baseLap,
		},
	}
	if err := database.SetGateReference(id, ref); err != nil {
		log.Fatalf("Failed to set gate reference: %v", err)
	}

	fmt.Printf("created session %s (%d cars, %d laps, seed %d)\n", id, *cars, *laps, *seed)
}
